// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains the ZIP implementation of the Archiver interface.
package nwota

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// ZipArchiver implements Archiver using the ZIP format, the wire format of
// published bundle archives. All file access goes through the bound billy
// filesystem so extraction can be exercised against in-memory fixtures.
type ZipArchiver struct {
	fs billy.Filesystem
}

// NewZipArchiver returns a ZipArchiver bound to the provided filesystem.
// A nil filesystem falls back to the host's root filesystem.
func NewZipArchiver(fsys billy.Filesystem) *ZipArchiver {
	if fsys == nil {
		fsys = osfs.New("/")
	}
	return &ZipArchiver{fs: fsys}
}

// Archive writes sourceDir as a ZIP archive to output. Entry names are
// slash-separated paths relative to sourceDir; empty directories are kept as
// explicit directory entries.
func (a *ZipArchiver) Archive(ctx context.Context, sourceDir string, output io.Writer) error {
	if sourceDir == "" {
		return fmt.Errorf("source directory cannot be empty")
	}
	if output == nil {
		return fmt.Errorf("output writer cannot be nil")
	}
	if info, err := a.fs.Stat(sourceDir); err != nil {
		return fmt.Errorf("stat source directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", sourceDir)
	}

	zw := zip.NewWriter(output)

	if err := a.archiveDir(ctx, zw, sourceDir, ""); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// archiveDir appends dir's entries under the relative prefix rel.
func (a *ZipArchiver) archiveDir(ctx context.Context, zw *zip.Writer, dir, rel string) error {
	entries, err := a.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryRel := path.Join(rel, entry.Name())
		entryPath := a.fs.Join(dir, entry.Name())

		if entry.IsDir() {
			header := &zip.FileHeader{Name: entryRel + "/"}
			header.SetMode(entry.Mode())
			if _, err := zw.CreateHeader(header); err != nil {
				return fmt.Errorf("write directory entry %s: %w", entryRel, err)
			}
			if err := a.archiveDir(ctx, zw, entryPath, entryRel); err != nil {
				return err
			}
			continue
		}

		header := &zip.FileHeader{
			Name:     entryRel,
			Method:   zip.Deflate,
			Modified: entry.ModTime(),
		}
		header.SetMode(entry.Mode())

		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("write entry header %s: %w", entryRel, err)
		}

		src, err := a.fs.Open(entryPath)
		if err != nil {
			return fmt.Errorf("open %s: %w", entryPath, err)
		}
		if _, err := io.Copy(w, src); err != nil {
			_ = src.Close()
			return fmt.Errorf("compress %s: %w", entryPath, err)
		}
		_ = src.Close()
	}
	return nil
}

// Extract expands a ZIP archive into targetDir. Every entry path is
// validated against traversal and absolute-path attacks, and the limits in
// opts are enforced before each file is written. Parent directories are
// created for every entry, so archives without explicit directory entries
// extract correctly.
func (a *ZipArchiver) Extract(ctx context.Context, input io.ReaderAt, size int64, targetDir string, opts ExtractOptions) error {
	if input == nil {
		return fmt.Errorf("input reader cannot be nil")
	}
	if targetDir == "" {
		return fmt.Errorf("target directory cannot be empty")
	}

	zr, err := zip.NewReader(input, size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveCorrupted, err)
	}

	if err := a.fs.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	var stats extractStats
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.extractEntry(f, targetDir, opts, &stats); err != nil {
			return err
		}
	}
	return nil
}

// extractEntry writes a single archive entry under targetDir.
func (a *ZipArchiver) extractEntry(f *zip.File, targetDir string, opts ExtractOptions, stats *extractStats) error {
	rel, err := sanitizeEntryPath(f.Name)
	if err != nil {
		return err
	}
	target := a.fs.Join(targetDir, filepath.FromSlash(rel))

	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		dirPerm := os.FileMode(0o755)
		if opts.PreservePerms {
			if p := f.Mode().Perm(); p != 0 {
				dirPerm = p
			}
		}
		if err := a.fs.MkdirAll(target, dirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", target, err)
		}
		return nil
	}

	declared := int64(f.UncompressedSize64)
	if err := stats.admit(f.Name, declared, opts); err != nil {
		return err
	}

	if parent := filepath.Dir(target); parent != "." {
		if err := a.fs.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create parent directory %s: %w", parent, err)
		}
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %w", ErrArchiveCorrupted, f.Name, err)
	}
	defer rc.Close()

	perm := os.FileMode(0o644)
	if opts.PreservePerms {
		if p := f.Mode().Perm(); p != 0 {
			perm = p
		}
	}

	dst, err := a.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	// Copy against the limit rather than the header's declared size: a
	// hostile archive can lie about UncompressedSize64.
	written, copyErr := copyLimited(dst, rc, opts.MaxFileSize)
	closeErr := dst.Close()
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", target, closeErr)
	}
	if written > declared {
		stats.totalSize += written - declared
		if opts.MaxSize > 0 && stats.totalSize > opts.MaxSize {
			return fmt.Errorf("%w: archive exceeds total size limit of %d bytes", ErrSecurityViolation, opts.MaxSize)
		}
	}
	return nil
}

// copyLimited copies src into dst, failing once more than limit bytes have
// been produced. limit 0 means unlimited.
func copyLimited(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	if limit <= 0 {
		n, err := io.Copy(dst, src)
		if err != nil {
			return n, fmt.Errorf("%w: %w", ErrArchiveCorrupted, err)
		}
		return n, nil
	}

	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrArchiveCorrupted, err)
	}
	if n > limit {
		return n, fmt.Errorf("%w: entry larger than per-file limit of %d bytes", ErrSecurityViolation, limit)
	}
	return n, nil
}

// ReadFileSize stats path on the archiver's filesystem. Convenience for
// callers that need the (reader, size) pair Extract expects.
func (a *ZipArchiver) ReadFileSize(path string) (billy.File, int64, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	f, err := a.fs.Open(path)
	if err != nil {
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// ExtractFile is a convenience that extracts the archive stored at
// archivePath on the archiver's filesystem.
func (a *ZipArchiver) ExtractFile(ctx context.Context, archivePath, targetDir string, opts ExtractOptions) error {
	f, size, err := a.ReadFileSize(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open archive %s: %w", ErrArchiveCorrupted, archivePath, err)
	}
	defer f.Close()
	return a.Extract(ctx, f, size, targetDir, opts)
}

// WriteArchive is a convenience that archives sourceDir into a file at
// archivePath on the archiver's filesystem.
func (a *ZipArchiver) WriteArchive(ctx context.Context, sourceDir, archivePath string) error {
	if parent := filepath.Dir(archivePath); parent != "." {
		if err := a.fs.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create archive directory %s: %w", parent, err)
		}
	}
	out, err := a.fs.OpenFile(archivePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", archivePath, err)
	}
	if err := a.Archive(ctx, sourceDir, out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
