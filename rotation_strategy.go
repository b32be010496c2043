// rotation_strategy.go: file-set naming and rotation strategies
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package styx

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// splitExtension mirrors SplitByExtension's hidden-file-aware rule,
// applied to the last path element: a leading dot of the file name does
// not count as the extension separator (so ".bashrc" has no extension),
// but any later dot in the name does; dots in directory names are ignored.
func splitExtension(filename string) (base, ext string) {
	nameStart := strings.LastIndexByte(filename, os.PathSeparator) + 1
	idx := strings.LastIndexByte(filename, '.')
	if idx <= nameStart {
		return filename, ""
	}
	return filename[:idx], filename[idx:]
}

// RotationStrategy names the file a sink should currently be writing to
// and performs the rename/renumber dance when the sink decides to rotate.
// Two concrete strategies are provided, matching
// rotation_strategy_rename.h and rotation_strategy_incremental.h.
type RotationStrategy interface {
	// Filename returns the path for generation i (for RenameRotation, 0 is
	// the live file; for IncrementalRotation, the live file is the highest
	// generation).
	Filename(i int) string
	// LatestFilename is the path the sink should open/keep writing to.
	LatestFilename() string
	// Rotate shifts existing files to make LatestFilename() available
	// again for a fresh file.
	Rotate() Status
}

// RenameRotation renames base.ext -> base.1.ext -> base.2.ext ... on
// every rotation, keeping at most maxFiles files in total: the live file
// plus maxFiles-1 backups (0 means unlimited, as in the original).
type RenameRotation struct {
	base     string
	ext      string
	maxFiles int
}

func NewRenameRotation(filename string, maxFiles int) *RenameRotation {
	base, ext := splitExtension(filename)
	return &RenameRotation{base: base, ext: ext, maxFiles: maxFiles}
}

func (r *RenameRotation) Filename(i int) string {
	if i == 0 {
		return r.base + r.ext
	}
	return fmt.Sprintf("%s.%d%s", r.base, i, r.ext)
}

func (r *RenameRotation) LatestFilename() string { return r.Filename(0) }

func (r *RenameRotation) Rotate() Status {
	if r.maxFiles > 0 {
		for i := r.maxFiles - 1; i >= 1; i-- {
			if err := renameIfExists(r.Filename(i-1), r.Filename(i)); err != nil {
				return IOError("rotate rename", err.Error())
			}
		}
	} else {
		if st := sweepUpwardsRename(r); !st.Ok() {
			return st
		}
	}
	return cleanupSurplus(r)
}

// sweepUpwardsRename handles the unbounded (maxFiles<=0) case: find the
// current highest-numbered existing backup and shift everything up by
// one, including the live file, starting from the top so no file is
// overwritten mid-shift.
func sweepUpwardsRename(r *RenameRotation) Status {
	highest := 0
	for i := 1; ; i++ {
		if !fileExists(r.Filename(i)) {
			break
		}
		highest = i
	}
	for i := highest + 1; i >= 1; i-- {
		if err := renameIfExists(r.Filename(i-1), r.Filename(i)); err != nil {
			return IOError("rotate rename", err.Error())
		}
	}
	return OK
}

// cleanupSurplus removes files beyond maxFiles (the live file plus
// maxFiles-1 backups are kept), sweeping with the same "stop after 2
// consecutive absences" tolerance the original uses to survive a file
// being deleted out from under it by something else.
func cleanupSurplus(r *RenameRotation) Status {
	if r.maxFiles <= 0 {
		return OK
	}
	misses := 0
	for i := r.maxFiles; misses < 2; i++ {
		name := r.Filename(i)
		if !fileExists(name) {
			misses++
			continue
		}
		misses = 0
		if err := os.Remove(name); err != nil {
			return IOError("cleanup", err.Error())
		}
	}
	return OK
}

// IncrementalRotation names backups base-N.ext with a monotonically
// increasing N recorded in a base.ext.latest sidecar, so restarts resume
// numbering instead of colliding with pre-existing files.
type IncrementalRotation struct {
	base         string
	ext          string
	maxFiles     int
	finalNumber  int
	sidecarPath  string
}

func NewIncrementalRotation(filename string, maxFiles int) *IncrementalRotation {
	base, ext := splitExtension(filename)
	sidecar := base + ext + ".latest"
	r := &IncrementalRotation{base: base, ext: ext, maxFiles: maxFiles, sidecarPath: sidecar}
	r.finalNumber = readSidecar(sidecar)
	return r
}

func readSidecar(path string) int {
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from the configured log filename, not external input
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return n
}

func (r *IncrementalRotation) Filename(i int) string {
	return fmt.Sprintf("%s-%d%s", r.base, i, r.ext)
}

func (r *IncrementalRotation) LatestFilename() string { return r.Filename(r.finalNumber) }

func (r *IncrementalRotation) Rotate() Status {
	r.finalNumber++

	if r.maxFiles > 0 {
		victim := r.finalNumber - r.maxFiles
		if victim >= 0 {
			if err := os.Remove(r.Filename(victim)); err != nil && !os.IsNotExist(err) {
				return IOError("cleanup", err.Error())
			}
		}
		misses := 0
		for i := victim - 1; i >= 0 && misses < 2; i-- {
			name := r.Filename(i)
			if !fileExists(name) {
				misses++
				continue
			}
			misses = 0
			if err := os.Remove(name); err != nil {
				return IOError("cleanup", err.Error())
			}
		}
	}

	if err := os.WriteFile(r.sidecarPath, []byte(strconv.Itoa(r.finalNumber)), GetDefaultFileMode()); err != nil {
		return IOError("sidecar write", err.Error())
	}
	return OK
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func renameIfExists(oldPath, newPath string) error {
	if !fileExists(oldPath) {
		return nil
	}
	return os.Rename(oldPath, newPath)
}
