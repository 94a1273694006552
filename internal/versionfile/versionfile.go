// Package versionfile persists the installed OTA version of a bundle as a
// small JSON record next to the bundle directory. The record is bookkeeping,
// not part of the swap's atomicity guarantee: a damaged or missing record must
// never block an update check, so reads degrade to version 0 instead of
// erroring.
package versionfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// record is the on-disk shape of the version file.
type record struct {
	Version int `json:"version"`
}

// Store reads and writes the installed OTA version record.
type Store struct {
	fs   billy.Filesystem
	path string
}

// New returns a Store persisting to path on the given filesystem.
func New(fsys billy.Filesystem, path string) *Store {
	return &Store{fs: fsys, path: path}
}

// Path returns the location of the version record.
func (s *Store) Path() string {
	return s.path
}

// Load returns the last successfully installed OTA version. Absent,
// unreadable, or corrupt records all read as 0; none of those conditions is
// an error.
func (s *Store) Load() int {
	data, err := util.ReadFile(s.fs, s.path)
	if err != nil {
		return 0
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return 0
	}
	if r.Version < 0 {
		return 0
	}
	return r.Version
}

// Save persists version. Failures are returned so the caller can log them,
// but a failed Save must not fail an update whose swap already succeeded.
func (s *Store) Save(version int) error {
	data, err := json.Marshal(record{Version: version})
	if err != nil {
		return fmt.Errorf("encode version record: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != string(os.PathSeparator) {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create version record directory: %w", err)
		}
	}

	if err := util.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write version record %s: %w", s.path, err)
	}
	return nil
}
