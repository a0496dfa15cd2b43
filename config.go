// config.go: string-based configuration and cross-platform file helpers
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/cenkalti/backoff/v5"
)

// ParseSize converts human-friendly size strings like "64KB", "1GB",
// "500MB" (and plain byte counts) into a byte count. Parsing is delegated
// to datasize.ByteSize, which reads every suffix as 1024-based
// ("1KB" is 1024 bytes); 1000-based units are not recognized.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	var bs datasize.ByteSize
	if err := bs.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(bs.Bytes()), nil
}

// ParseDuration converts duration strings like "7d", "24h", "2w" into a
// time.Duration. Standard Go duration syntax is tried first; "d" (day),
// "w" (week), and "y" (365-day year) suffixes extend it for retention
// windows longer than an hour are awkward to spell in Go's own syntax.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	lower := strings.ToLower(s)

	var multiplier time.Duration
	var numStr string

	switch {
	case strings.HasSuffix(lower, "d"):
		multiplier = 24 * time.Hour
		numStr = lower[:len(lower)-1]
	case strings.HasSuffix(lower, "w"):
		multiplier = 7 * 24 * time.Hour
		numStr = lower[:len(lower)-1]
	case strings.HasSuffix(lower, "y"):
		multiplier = 365 * 24 * time.Hour
		numStr = lower[:len(lower)-1]
	default:
		return 0, fmt.Errorf("unknown duration suffix in %q", s)
	}

	var val int64
	if _, err := fmt.Sscanf(numStr, "%d", &val); err != nil {
		return 0, fmt.Errorf("invalid duration number in %q: %w", s, err)
	}

	return time.Duration(val) * multiplier, nil
}

// SanitizeFilename removes or replaces characters that are invalid in a
// filename on the current OS.
func SanitizeFilename(filename string) string {
	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", ":", "\"", "|", "?", "*"}
		result := filename
		for _, c := range invalidChars {
			result = strings.ReplaceAll(result, c, "_")
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

// ValidatePathLength checks an absolute path against the current OS's
// path-length limit.
func ValidatePathLength(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
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

// GetDefaultFileMode returns the default file mode for newly created log
// files on the current OS.
func GetDefaultFileMode() os.FileMode {
	return 0644
}

// RetryFileOperation runs operation, retrying on failure with exponential
// backoff and jitter for at most retryCount attempts in total (starting
// from a retryDelay interval), to ride out the transient
// failures file operations see under antivirus scanners, network shares,
// and overlay filesystems.
func RetryFileOperation(operation func() error, retryCount int, retryDelay time.Duration) error {
	if retryCount <= 0 {
		retryCount = 3
	}
	if retryDelay <= 0 {
		retryDelay = 10 * time.Millisecond
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryDelay

	_, err := backoff.Retry(
		context.Background(),
		func() (struct{}, error) {
			return struct{}{}, operation()
		},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(retryCount)),
	)
	if err != nil {
		return fmt.Errorf("operation failed after %d retries: %w", retryCount, err)
	}
	return nil
}
