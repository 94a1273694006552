// Package fsutil provides resilient filesystem operations on top of billy
// filesystems. The operations here absorb the transient lock errors that show
// up when a bundle directory is touched while the host runtime still holds
// files in it open, which is the normal situation during a hot swap.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5"
)

// RetryOptions controls the retry behavior of RemoveAll and ClearDir when a
// delete fails with a transient lock error.
type RetryOptions struct {
	// MaxRetries is the number of additional attempts after the first failure.
	MaxRetries int

	// Delay is the base delay between attempts. The actual delay grows
	// linearly: Delay * attempt.
	Delay time.Duration
}

// DefaultRetryOptions returns the retry behavior used when callers do not
// override it: three retries with a 100ms linearly increasing delay.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries: 3,
		Delay:      100 * time.Millisecond,
	}
}

// RemoveAll deletes the file or directory tree at path.
//
// An already absent path is treated as success, so calling RemoveAll twice in
// a row never fails on the second call. Errors classified as transient locks
// (file busy, permission denied because the file is open elsewhere, directory
// not empty due to a concurrent write) are retried per opts; any other error
// surfaces immediately. Exhausting the retries surfaces the last error.
func RemoveAll(fsys billy.Filesystem, path string, opts RetryOptions) error {
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(opts.Delay * time.Duration(attempt))
		}

		err := removeTree(fsys, path)
		if err == nil || os.IsNotExist(err) {
			return nil
		}
		lastErr = err

		if !IsTransientLock(err) {
			return err
		}
	}
	return fmt.Errorf("remove %s: retries exhausted: %w", path, lastErr)
}

// removeTree deletes path and everything below it, children before parents.
func removeTree(fsys billy.Filesystem, path string) error {
	info, err := fsys.Lstat(path)
	if err != nil {
		return err
	}

	if info.IsDir() {
		entries, err := fsys.ReadDir(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		for _, entry := range entries {
			if err := removeTree(fsys, fsys.Join(path, entry.Name())); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}

	if err := fsys.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClearDir removes every entry inside path while preserving path itself.
// It is a no-op when path does not exist or is not a directory.
// Each child is removed with the same retry behavior as RemoveAll.
func ClearDir(fsys billy.Filesystem, path string, opts RetryOptions) error {
	info, err := fsys.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := fsys.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", path, err)
	}
	for _, entry := range entries {
		if err := RemoveAll(fsys, fsys.Join(path, entry.Name()), opts); err != nil {
			return err
		}
	}
	return nil
}

// CopyDir mirrors every file and subdirectory from src into dst, creating dst
// and any missing parents. The copy is additive and overwriting: files already
// present under dst that have no counterpart in src are left alone, so CopyDir
// is never a sync.
func CopyDir(fsys billy.Filesystem, src, dst string) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return fmt.Errorf("stat copy source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("copy source %s is not a directory", src)
	}

	if err := fsys.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create copy destination %s: %w", dst, err)
	}

	entries, err := fsys.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", src, err)
	}
	for _, entry := range entries {
		srcPath := fsys.Join(src, entry.Name())
		dstPath := fsys.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := CopyDir(fsys, srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(fsys, srcPath, dstPath, entry.Mode().Perm()); err != nil {
			return err
		}
	}
	return nil
}

// copyFile streams src into dst, truncating dst if it already exists.
func copyFile(fsys billy.Filesystem, src, dst string, perm os.FileMode) error {
	in, err := fsys.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if perm == 0 {
		perm = 0o644
	}
	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

// TempDir creates a fresh directory under root with the given prefix and
// returns its path. The caller owns removal.
func TempDir(fsys billy.Filesystem, root, prefix string) (string, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create temp root %s: %w", root, err)
	}

	base := time.Now().UnixNano()
	for i := 0; i < 1000; i++ {
		candidate := fsys.Join(root, fmt.Sprintf("%s%d-%d", prefix, base, i))
		if _, err := fsys.Stat(candidate); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return "", err
		}
		if err := fsys.MkdirAll(candidate, 0o755); err != nil {
			return "", fmt.Errorf("create temp dir %s: %w", candidate, err)
		}
		return candidate, nil
	}
	return "", fmt.Errorf("create temp dir under %s: no free name", root)
}

// IsTransientLock reports whether err looks like a lock held by another
// process rather than a permanent failure. Windows refuses deletes of open
// files with sharing violations surfaced as permission errors, and a
// directory emptied moments ago can still report ENOTEMPTY.
func IsTransientLock(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ENOTEMPTY) ||
		errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, os.ErrPermission) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "being used by another process") ||
		strings.Contains(msg, "access is denied") ||
		strings.Contains(msg, "sharing violation") ||
		strings.Contains(msg, "directory not empty") ||
		strings.Contains(msg, "resource busy")
}

// ParentDir returns the directory containing path, using OS path semantics.
func ParentDir(path string) string {
	return filepath.Dir(path)
}
