// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains the bundle replacement engine: backup, clear, install,
// and rollback of a single bundle directory.
package nwota

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/AntonSeagull/nw-ota/internal/fsutil"
)

// Replacer swaps a bundle directory for new content. One Replace call is one
// swap attempt:
//
//	backup -> clear -> install, with rollback on any error after the backup.
//
// The bundle directory is exclusively owned by the Replacer for the duration
// of a swap. Replacer takes no lock of its own on the bundle path: the host
// process also touches the directory outside this system's control, so the
// locking discipline is the OS's own file-lock errors, absorbed by the
// retry layer.
type Replacer struct {
	fs         billy.Filesystem
	bundlePath string
	platform   Platform
	backup     bool
	retry      fsutil.RetryOptions

	// now is injectable for deterministic snapshot names in tests.
	now func() time.Time
}

// ReplacerOption configures a Replacer.
type ReplacerOption func(*Replacer)

// WithoutBackup disables the pre-swap backup. A failed swap then has nothing
// to roll back to and may leave the bundle empty or partially written; that
// is the declared risk of disabling backup, not a bug.
func WithoutBackup() ReplacerOption {
	return func(r *Replacer) {
		r.backup = false
	}
}

// WithReplacerRetry overrides the retry behavior of the destructive steps.
func WithReplacerRetry(retry fsutil.RetryOptions) ReplacerOption {
	return func(r *Replacer) {
		r.retry = retry
	}
}

// NewReplacer returns a Replacer for the bundle at bundlePath on the given
// platform. Backup is enabled by default.
func NewReplacer(fsys billy.Filesystem, bundlePath string, platform Platform, opts ...ReplacerOption) *Replacer {
	r := &Replacer{
		fs:         fsys,
		bundlePath: bundlePath,
		platform:   platform,
		backup:     true,
		retry:      fsutil.DefaultRetryOptions(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Replace swaps the bundle directory for the content at newContentPath.
//
// When backup is enabled and the bundle exists, a full copy is taken first;
// a backup failure aborts before any destructive step. Any error during the
// clear or install steps triggers a rollback from that backup, and the
// returned error states the rollback outcome so callers can distinguish
// "safely reverted" from "bundle left inconsistent".
func (r *Replacer) Replace(newContentPath string) error {
	backupPath, err := r.maybeBackup()
	if err != nil {
		return &UpdateError{Op: "backup", Target: r.bundlePath, Err: err}
	}

	if err := r.clearBundle(); err != nil {
		return r.fail("clear", err, backupPath)
	}

	if err := r.fs.MkdirAll(r.bundlePath, 0o755); err != nil {
		return r.fail("install", fmt.Errorf("recreate bundle directory: %w", err), backupPath)
	}
	if err := fsutil.CopyDir(r.fs, newContentPath, r.bundlePath); err != nil {
		return r.fail("install", err, backupPath)
	}
	return nil
}

// Backup copies the current bundle to a fresh timestamped snapshot path and
// returns it. Returns "" when the bundle directory does not exist yet.
// Snapshots are left on disk as recovery evidence; only a rollback-restore
// consumes one.
func (r *Replacer) Backup() (string, error) {
	exists, err := r.bundleExists()
	if err != nil {
		return "", err
	}
	if !exists {
		return "", nil
	}

	snapshot, err := r.snapshotPath()
	if err != nil {
		return "", err
	}
	if err := fsutil.CopyDir(r.fs, r.bundlePath, snapshot); err != nil {
		return "", fmt.Errorf("copy bundle to snapshot %s: %w", snapshot, err)
	}
	return snapshot, nil
}

// maybeBackup takes a backup when enabled, returning its path or "".
func (r *Replacer) maybeBackup() (string, error) {
	if !r.backup {
		return "", nil
	}
	return r.Backup()
}

// clearBundle removes the current bundle content using the platform-specific
// strategy. On platforms that lock the reserved bundle directory by name the
// directory inode is preserved and only its contents are removed; everywhere
// else the whole directory is removed and the parent is ensured.
func (r *Replacer) clearBundle() error {
	if r.preserveBundleDir() {
		return fsutil.ClearDir(r.fs, r.bundlePath, r.retry)
	}

	if err := fsutil.RemoveAll(r.fs, r.bundlePath, r.retry); err != nil {
		return err
	}
	parent := fsutil.ParentDir(r.bundlePath)
	if parent == "." || parent == string(os.PathSeparator) || parent == "/" {
		return nil
	}
	return r.fs.MkdirAll(parent, 0o755)
}

// preserveBundleDir reports whether the clear step must keep the bundle
// directory itself.
func (r *Replacer) preserveBundleDir() bool {
	return r.platform.locksBundleDir() && filepath.Base(r.bundlePath) == ReservedBundleDir
}

// fail restores the backup (when one was taken) and wraps the original error
// with the rollback outcome. Rollback never turns a failure into success; it
// only restores the prior state before re-reporting.
func (r *Replacer) fail(op string, cause error, backupPath string) error {
	if backupPath == "" {
		return &UpdateError{
			Op:       op,
			Target:   r.bundlePath,
			Err:      cause,
			Rollback: &RollbackResult{Attempted: false},
		}
	}

	rollback := &RollbackResult{Attempted: true}
	if err := r.restore(backupPath); err != nil {
		rollback.Err = err
	} else {
		rollback.Restored = true
		// The snapshot has served its purpose once restored.
		_ = fsutil.RemoveAll(r.fs, backupPath, r.retry)
	}

	return &UpdateError{Op: op, Target: r.bundlePath, Err: cause, Rollback: rollback}
}

// restore undoes a partial swap: clear-or-remove whatever the failed attempt
// left at the bundle path, then copy the snapshot back.
func (r *Replacer) restore(backupPath string) error {
	if err := r.clearBundle(); err != nil {
		return fmt.Errorf("clear partial bundle: %w", err)
	}
	if err := fsutil.CopyDir(r.fs, backupPath, r.bundlePath); err != nil {
		return fmt.Errorf("restore snapshot %s: %w", backupPath, err)
	}
	return nil
}

// bundleExists reports whether the bundle directory is present.
func (r *Replacer) bundleExists() (bool, error) {
	if _, err := r.fs.Stat(r.bundlePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat bundle directory: %w", err)
	}
	return true, nil
}

// snapshotPath picks a fresh sibling path tagged with the creation time.
func (r *Replacer) snapshotPath() (string, error) {
	base := fmt.Sprintf("%s.backup-%d", r.bundlePath, r.now().Unix())
	candidate := base
	for i := 1; ; i++ {
		if _, err := r.fs.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				return candidate, nil
			}
			return "", fmt.Errorf("stat snapshot candidate: %w", err)
		}
		if i > 1000 {
			return "", fmt.Errorf("no free snapshot path near %s", base)
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
