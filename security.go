// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains the security checks applied to archive entries.
package nwota

import (
	"fmt"
	"path"
	"strings"
)

// sanitizeEntryPath validates an archive entry name and returns it in
// slash-normalized relative form. It rejects absolute paths (Unix and
// Windows forms) and any path that escapes the extraction root via "..".
func sanitizeEntryPath(name string) (string, error) {
	if name == "" || strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty entry name", ErrSecurityViolation)
	}

	normalized := strings.ReplaceAll(name, `\`, "/")

	if strings.HasPrefix(normalized, "/") || hasDrivePrefix(normalized) {
		return "", fmt.Errorf("%w: absolute entry path %q", ErrSecurityViolation, name)
	}

	cleaned := path.Clean(normalized)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: entry path escapes extraction root: %q", ErrSecurityViolation, name)
	}
	if cleaned == "." {
		return "", fmt.Errorf("%w: entry path resolves to root: %q", ErrSecurityViolation, name)
	}
	return cleaned, nil
}

// hasDrivePrefix detects Windows drive-letter paths like "C:/...".
func hasDrivePrefix(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// extractStats tracks aggregate counters across one extraction so the limits
// in ExtractOptions can be enforced before each entry is written.
type extractStats struct {
	files     int
	totalSize int64
}

// admit reserves room for one more file of the declared size, failing when
// any configured limit would be exceeded.
func (s *extractStats) admit(name string, size int64, opts ExtractOptions) error {
	s.files++
	s.totalSize += size

	if opts.MaxFiles > 0 && s.files > opts.MaxFiles {
		return fmt.Errorf("%w: archive exceeds %d files", ErrSecurityViolation, opts.MaxFiles)
	}
	if opts.MaxFileSize > 0 && size > opts.MaxFileSize {
		return fmt.Errorf("%w: entry %q exceeds per-file limit of %d bytes", ErrSecurityViolation, name, opts.MaxFileSize)
	}
	if opts.MaxSize > 0 && s.totalSize > opts.MaxSize {
		return fmt.Errorf("%w: archive exceeds total size limit of %d bytes", ErrSecurityViolation, opts.MaxSize)
	}
	return nil
}
