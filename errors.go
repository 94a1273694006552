// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains domain-specific error types for update operations.
package nwota

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes callers may want to branch on.
// They can be checked with errors.Is anywhere in a wrapped chain.
var (
	// ErrManifestFetch indicates the update manifest could not be retrieved.
	// Note that an HTTP 404 for the manifest is NOT this error: an absent
	// manifest is equivalent to an empty one and maps to "no update".
	ErrManifestFetch = errors.New("manifest fetch failed")

	// ErrManifestInvalid indicates the manifest body could not be decoded.
	ErrManifestInvalid = errors.New("manifest invalid")

	// ErrDownloadFailed indicates the archive download failed
	// (timeout, non-2xx response, or connection failure).
	ErrDownloadFailed = errors.New("archive download failed")

	// ErrArchiveCorrupted indicates the downloaded archive could not be read
	// as a ZIP file.
	ErrArchiveCorrupted = errors.New("archive corrupted or invalid")

	// ErrSecurityViolation indicates an archive entry violated an extraction
	// constraint: path traversal, absolute path, or a configured size or
	// file-count limit.
	ErrSecurityViolation = errors.New("security constraint violated")

	// ErrInvalidPlatform indicates an unknown platform tag.
	ErrInvalidPlatform = errors.New("invalid platform")
)

// RollbackResult records what happened when the replacement engine tried to
// restore the backup after a failed swap. It lets operators distinguish
// "safely reverted" from "bundle left inconsistent".
type RollbackResult struct {
	// Attempted is true when a backup existed and a restore was tried.
	Attempted bool

	// Restored is true when the restore completed and the bundle holds the
	// pre-swap content again.
	Restored bool

	// Err is the restore's own failure, if any. Independent of the original
	// error that triggered the rollback.
	Err error
}

// UpdateError wraps a failure of one update operation with the operation
// name, the target it was acting on (a channel or a bundle path), and, for
// replacement failures, the rollback outcome.
type UpdateError struct {
	// Op is the operation that failed: "check", "download", "unpack",
	// "backup", "clear", "install".
	Op string

	// Target is the channel or filesystem path being processed.
	Target string

	// Err is the underlying cause.
	Err error

	// Rollback is non-nil when the failure happened during a swap and
	// describes whether the prior bundle state was restored.
	Rollback *RollbackResult
}

// Error implements the error interface. For swap failures the message states
// the rollback outcome so the distinction survives even when the caller only
// keeps the text.
func (e *UpdateError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Target, e.Err)
	switch {
	case e.Rollback == nil:
		return msg
	case !e.Rollback.Attempted:
		return msg + " (no backup, rollback not attempted)"
	case e.Rollback.Restored:
		return msg + " (rolled back to previous bundle)"
	case e.Rollback.Err != nil:
		return fmt.Sprintf("%s (rollback failed: %s; bundle may be inconsistent)", msg, e.Rollback.Err)
	default:
		return msg + " (rollback incomplete; bundle may be inconsistent)"
	}
}

// Unwrap returns the underlying cause so UpdateError works with errors.Is
// and errors.As.
func (e *UpdateError) Unwrap() error {
	return e.Err
}

// RolledBack reports whether err is a swap failure whose rollback restored
// the previous bundle.
func RolledBack(err error) bool {
	var ue *UpdateError
	if errors.As(err, &ue) {
		return ue.Rollback != nil && ue.Rollback.Restored
	}
	return false
}
