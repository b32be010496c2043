// checksum.go: background SHA-256 sidecar generation and legacy gzip fallback for rotated files
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package styx

import (
	"compress/gzip"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agilira/go-timecache"
)

// timeCacheResolution is the cached-clock granularity used wherever styx
// needs a timestamp but not syscall-precision, matching the teacher's
// timecache.NewWithResolution(time.Millisecond) call sites.
const timeCacheResolution = time.Millisecond

// checksumAndReport computes a SHA-256 sidecar for filename, tolerating
// the file having already been gzip-compressed under it. Runs off the
// sink's hot path; errors go through errCb instead of a return value,
// matching the teacher's generateChecksum/BackgroundWorkers split.
func checksumAndReport(filename string, errCb func(op string, err error)) {
	report := func(err error) {
		if errCb != nil {
			errCb(OpChecksum, wrapOpError(OpChecksum, err))
		}
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		if !strings.HasSuffix(filename, ".gz") {
			if gz := filename + ".gz"; fileExists(gz) {
				filename = gz
			} else {
				report(fmt.Errorf("file not found for checksum: %s", filename))
				return
			}
		} else {
			report(fmt.Errorf("file not found for checksum: %s", filename))
			return
		}
	}

	f, err := os.Open(filename) // #nosec G304 -- filename is an internally generated rotation backup path
	if err != nil {
		report(fmt.Errorf("open for checksum %s: %w", filename, err))
		return
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		report(fmt.Errorf("read for checksum %s: %w", filename, err))
		return
	}

	sidecar := filename + ".sha256"
	content := fmt.Sprintf("%x  %s\n", hash.Sum(nil), filepath.Base(filename))
	if err := os.WriteFile(sidecar, []byte(content), 0600); err != nil {
		report(fmt.Errorf("write checksum sidecar %s: %w", sidecar, err))
	}
}

// gzipCompress compresses filename in place into filename+".gz", crash-
// consistently via a temp file and atomic rename, for deployments that
// still want the legacy gzip path alongside or instead of the zstd
// writer. Errors go through errCb.
func gzipCompress(filename string, errCb func(op string, err error)) {
	report := func(err error) {
		if errCb != nil {
			errCb(OpCompress, wrapOpError(OpCompress, err))
		}
	}

	source, err := os.Open(filename) // #nosec G304 -- filename is an internally generated rotation backup path
	if err != nil {
		report(fmt.Errorf("open %s: %w", filename, err))
		return
	}
	defer source.Close()

	compressedName := filename + ".gz"
	tempName := compressedName + ".tmp"

	target, err := os.Create(tempName) // #nosec G304 -- tempName is internally generated
	if err != nil {
		report(fmt.Errorf("create %s: %w", tempName, err))
		return
	}

	gz := gzip.NewWriter(target)
	if _, err := io.Copy(gz, source); err != nil {
		_ = gz.Close()
		_ = target.Close()
		_ = os.Remove(tempName)
		report(fmt.Errorf("compress %s: %w", filename, err))
		return
	}
	if err := gz.Close(); err != nil {
		_ = target.Close()
		_ = os.Remove(tempName)
		report(fmt.Errorf("finalize %s: %w", tempName, err))
		return
	}
	if err := target.Close(); err != nil {
		_ = os.Remove(tempName)
		report(fmt.Errorf("close %s: %w", tempName, err))
		return
	}
	if err := os.Rename(tempName, compressedName); err != nil {
		_ = os.Remove(tempName)
		report(fmt.Errorf("rename %s to %s: %w", tempName, compressedName, err))
		return
	}
	if err := os.Remove(filename); err != nil {
		report(fmt.Errorf("cleanup %s: %w", filename, err))
	}
}

// cleanupByAge removes backup files matching baseFilename+".*" whose
// modification time is older than maxAge, adapted from the teacher's
// cleanupOldFiles to work off a glob pattern instead of a *Logger field.
func cleanupByAge(baseFilename string, maxAge time.Duration, clock *timecache.TimeCache, errCb func(op string, err error)) {
	if maxAge <= 0 {
		return
	}
	matches, err := filepath.Glob(baseFilename + ".*")
	if err != nil {
		return
	}

	now := time.Now()
	if clock != nil {
		now = clock.CachedTime()
	}

	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		if age := now.Sub(info.ModTime()); age > maxAge {
			if err := os.Remove(match); err != nil && errCb != nil {
				errCb(OpCleanup, wrapOpError(OpCleanup, fmt.Errorf("remove aged file %s (age %v): %w", match, age, err)))
			}
		}
	}
}
