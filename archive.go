// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains the archive interface and extraction options.
package nwota

import (
	"context"
	"io"
)

// Archiver bundles a directory tree into an archive stream and expands one
// back onto a filesystem. The update flow only consumes the extract side; the
// archive side serves the publish tooling and test fixtures.
type Archiver interface {
	// Archive writes sourceDir as an archive to output.
	Archive(ctx context.Context, sourceDir string, output io.Writer) error

	// Extract expands an archive into targetDir, creating any missing
	// parent directories for each entry before writing it. The input is an
	// io.ReaderAt plus size because the ZIP central directory lives at the
	// end of the file.
	Extract(ctx context.Context, input io.ReaderAt, size int64, targetDir string, opts ExtractOptions) error
}

// ExtractOptions bounds an extraction. The limits defend the updater against
// hostile or corrupted archives: a ZIP bomb must fail the update, not fill
// the disk.
type ExtractOptions struct {
	// MaxFiles caps the number of entries. 0 means unlimited.
	MaxFiles int

	// MaxSize caps the total uncompressed size of all files. 0 means
	// unlimited.
	MaxSize int64

	// MaxFileSize caps any individual file's uncompressed size. 0 means
	// unlimited.
	MaxFileSize int64

	// PreservePerms keeps each entry's recorded permission bits. When
	// false, files are written 0644 and directories 0755.
	PreservePerms bool
}

// DefaultExtractOptions provides safe defaults for bundle extraction.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		MaxFiles:    10000,
		MaxSize:     1 << 30,  // 1GB
		MaxFileSize: 100 << 20, // 100MB
	}
}
