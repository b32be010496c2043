// config.go: configuration parsing utilities and the top-level Config type
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package styx

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// ParseSize converts size strings like "100MB", "1GB" to bytes.
// Supports case-insensitive input and single-letter units (K, M, G, T).
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		return val, nil
	}

	s = strings.ToUpper(s)

	var multiplier int64
	var numStr string

	switch {
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "T"):
		multiplier = 1024 * 1024 * 1024 * 1024
		numStr = s[:len(s)-1]
	default:
		return 0, fmt.Errorf("unknown size suffix in %q (supported: KB/K, MB/M, GB/G, TB/T)", s)
	}

	val, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size number in %q: %v", s, err)
	}

	result := val * multiplier
	if result < 0 {
		return 0, fmt.Errorf("size %q too large", s)
	}
	return result, nil
}

// ParseDuration converts duration strings like "7d", "24h" to
// time.Duration. Supports Go durations plus min/hour/d/w/y suffixes.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	s = strings.ToLower(s)

	var multiplier time.Duration
	var numStr string

	switch {
	case strings.HasSuffix(s, "min"):
		multiplier = time.Minute
		numStr = s[:len(s)-3]
	case strings.HasSuffix(s, "hour"):
		multiplier = time.Hour
		numStr = s[:len(s)-4]
	case strings.HasSuffix(s, "d"):
		multiplier = 24 * time.Hour
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "w"):
		multiplier = 7 * 24 * time.Hour
		numStr = s[:len(s)-1]
	case strings.HasSuffix(s, "y"):
		multiplier = 365 * 24 * time.Hour
		numStr = s[:len(s)-1]
	default:
		return 0, fmt.Errorf("unknown duration suffix in %q", s)
	}

	val, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration number in %q: %v", s, err)
	}
	return time.Duration(val) * multiplier, nil
}

// SanitizeFilename removes or replaces invalid characters for
// cross-platform compatibility.
func SanitizeFilename(filename string) string {
	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", ":", "\"", "|", "?", "*"}
		result := filename
		for _, char := range invalidChars {
			result = strings.ReplaceAll(result, char, "_")
		}
		var sanitized strings.Builder
		for _, r := range result {
			if r >= 32 {
				sanitized.WriteRune(r)
			} else {
				sanitized.WriteRune('_')
			}
		}
		return sanitized.String()
	}
	return strings.ReplaceAll(filename, "\x00", "_")
}

// ValidatePathLength checks if the path length is within OS limits.
func ValidatePathLength(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %v", err)
	}

	pathLen := len(absPath)
	switch runtime.GOOS {
	case "windows":
		if pathLen > 260 {
			return fmt.Errorf("path too long for Windows: %d characters (limit: 260)", pathLen)
		}
	default:
		if pathLen > 4096 {
			return fmt.Errorf("path too long: %d characters (limit: 4096)", pathLen)
		}
	}
	return nil
}

// GetDefaultFileMode returns the default file mode for log files.
func GetDefaultFileMode() os.FileMode {
	return 0644
}

// RetryFileOperation executes a file operation with retry logic for
// cross-platform reliability (antivirus locks on Windows, transient
// network-share errors, overlay-fs quirks in containers).
func RetryFileOperation(operation func() error, retryCount int, retryDelay time.Duration) error {
	if retryCount <= 0 {
		retryCount = 3
	}
	if retryDelay <= 0 {
		retryDelay = 10 * time.Millisecond
	}

	var lastErr error
	for i := 0; i < retryCount; i++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		if i < retryCount-1 {
			time.Sleep(retryDelay)
		}
	}
	return fmt.Errorf("operation failed after %d retries: %v", retryCount, lastErr)
}

// WriterKind selects which Writer implementation backs a Pipeline's
// rotating sink.
type WriterKind int

const (
	WriterBuffered WriterKind = iota
	WriterUnbuffered
	WriterZstd
)

// Config configures a Pipeline end to end: ring sizing, flush cadence,
// file size/count limits, rotation strategy, and the writer backing the
// rotating sink. String-based fields (MaxSizeStr, FlushPeriodStr) are
// preferred and parsed with ParseSize/ParseDuration; the numeric fields
// win if both are set.
type Config struct {
	Filename string

	MaxSize    int64
	MaxSizeStr string

	MaxFiles int
	Strategy string // "rename" (default) or "incremental"

	MaxFileAge    time.Duration
	MaxFileAgeStr string

	FlushPeriod    time.Duration
	FlushPeriodStr string

	RotateOnOpen bool
	RingCapacity int

	Writer     WriterKind
	ZstdParams ZstdParams

	Checksum      bool
	Compress      bool // legacy gzip fallback, independent of Writer==WriterZstd
	ErrorCallback func(operation string, err error)
}

// fillDefaults validates config and applies defaults, generalizing the
// pattern lethe.NewWithConfig uses for its own LoggerConfig.
func (c *Config) fillDefaults() error {
	if c.Filename == "" {
		return fmt.Errorf("styx: Filename must be set")
	}
	if err := ValidatePathLength(c.Filename); err != nil {
		return err
	}

	if c.MaxSize == 0 && c.MaxSizeStr != "" {
		size, err := ParseSize(c.MaxSizeStr)
		if err != nil {
			return fmt.Errorf("styx: invalid MaxSizeStr: %w", err)
		}
		c.MaxSize = size
	}
	if c.MaxSize <= 0 {
		c.MaxSize = 100 * 1024 * 1024 // 100MB default, matching the teacher
	}

	if c.FlushPeriod == 0 && c.FlushPeriodStr != "" {
		d, err := ParseDuration(c.FlushPeriodStr)
		if err != nil {
			return fmt.Errorf("styx: invalid FlushPeriodStr: %w", err)
		}
		c.FlushPeriod = d
	}
	if c.FlushPeriod <= 0 {
		c.FlushPeriod = time.Millisecond
	}

	if c.MaxFileAge == 0 && c.MaxFileAgeStr != "" {
		d, err := ParseDuration(c.MaxFileAgeStr)
		if err != nil {
			return fmt.Errorf("styx: invalid MaxFileAgeStr: %w", err)
		}
		c.MaxFileAge = d
	}

	if c.MaxFiles <= 0 {
		c.MaxFiles = 10
	}
	if c.Strategy == "" {
		c.Strategy = "rename"
	}
	if c.RingCapacity <= 0 {
		c.RingCapacity = 4096
	}
	if c.Writer == WriterZstd && c.ZstdParams == (ZstdParams{}) {
		c.ZstdParams = DefaultZstdParams()
	}
	return nil
}
