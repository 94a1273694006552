package fsutil

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T) billy.Filesystem {
	t.Helper()
	return osfs.New(t.TempDir())
}

func seedTree(t *testing.T, fsys billy.Filesystem, root string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(root+"/nested/deep", 0o755))
	require.NoError(t, util.WriteFile(fsys, root+"/top.txt", []byte("top"), 0o644))
	require.NoError(t, util.WriteFile(fsys, root+"/nested/mid.txt", []byte("mid"), 0o644))
	require.NoError(t, util.WriteFile(fsys, root+"/nested/deep/leaf.txt", []byte("leaf"), 0o644))
}

// flakyFS fails Remove with a configurable error a fixed number of times
// before delegating, mimicking a host process briefly holding a file open.
type flakyFS struct {
	billy.Filesystem
	failures int
	err      error
	calls    int
}

func (f *flakyFS) Remove(path string) error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return f.err
	}
	return f.Filesystem.Remove(path)
}

func TestRemoveAll_DeletesTree(t *testing.T) {
	fsys := newTestFS(t)
	seedTree(t, fsys, "/victim")

	require.NoError(t, RemoveAll(fsys, "/victim", DefaultRetryOptions()))

	_, err := fsys.Stat("/victim")
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveAll_AbsentPathIsSuccess(t *testing.T) {
	fsys := newTestFS(t)

	opts := DefaultRetryOptions()
	require.NoError(t, RemoveAll(fsys, "/never-existed", opts))

	// Idempotent: removing the same path twice never fails the second time.
	seedTree(t, fsys, "/victim")
	require.NoError(t, RemoveAll(fsys, "/victim", opts))
	require.NoError(t, RemoveAll(fsys, "/victim", opts))
}

func TestRemoveAll_RetriesTransientLocks(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, util.WriteFile(fsys, "/locked.txt", []byte("x"), 0o644))

	flaky := &flakyFS{Filesystem: fsys, failures: 2, err: syscall.EBUSY}
	opts := RetryOptions{MaxRetries: 3, Delay: time.Millisecond}

	require.NoError(t, RemoveAll(flaky, "/locked.txt", opts))
	assert.Equal(t, 3, flaky.calls, "two busy failures then one success")

	_, err := fsys.Stat("/locked.txt")
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveAll_ExhaustedRetriesSurfaceLastError(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, util.WriteFile(fsys, "/locked.txt", []byte("x"), 0o644))

	flaky := &flakyFS{Filesystem: fsys, failures: 100, err: syscall.EBUSY}
	opts := RetryOptions{MaxRetries: 2, Delay: time.Millisecond}

	err := RemoveAll(flaky, "/locked.txt", opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EBUSY)
	assert.Equal(t, 3, flaky.calls, "first attempt plus two retries")
}

func TestRemoveAll_NonTransientErrorSurfacesImmediately(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, util.WriteFile(fsys, "/victim.txt", []byte("x"), 0o644))

	fatal := errors.New("filesystem corrupted")
	flaky := &flakyFS{Filesystem: fsys, failures: 100, err: fatal}
	opts := RetryOptions{MaxRetries: 5, Delay: time.Millisecond}

	err := RemoveAll(flaky, "/victim.txt", opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, flaky.calls, "no retry for a non-transient error")
}

func TestClearDir_EmptiesButKeepsDirectory(t *testing.T) {
	fsys := newTestFS(t)
	seedTree(t, fsys, "/bundle")

	require.NoError(t, ClearDir(fsys, "/bundle", DefaultRetryOptions()))

	info, err := fsys.Stat("/bundle")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := fsys.ReadDir("/bundle")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClearDir_AbsentPathIsNoop(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, ClearDir(fsys, "/missing", DefaultRetryOptions()))
}

func TestCopyDir_MirrorsTree(t *testing.T) {
	fsys := newTestFS(t)
	seedTree(t, fsys, "/src")

	require.NoError(t, CopyDir(fsys, "/src", "/dst"))

	for path, want := range map[string]string{
		"/dst/top.txt":              "top",
		"/dst/nested/mid.txt":       "mid",
		"/dst/nested/deep/leaf.txt": "leaf",
	} {
		content, err := util.ReadFile(fsys, path)
		require.NoError(t, err, path)
		assert.Equal(t, want, string(content), path)
	}
}

func TestCopyDir_IsAdditiveAndOverwriting(t *testing.T) {
	fsys := newTestFS(t)
	seedTree(t, fsys, "/src")
	require.NoError(t, fsys.MkdirAll("/dst", 0o755))
	require.NoError(t, util.WriteFile(fsys, "/dst/extra.txt", []byte("keep me"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "/dst/top.txt", []byte("stale"), 0o644))

	require.NoError(t, CopyDir(fsys, "/src", "/dst"))

	content, err := util.ReadFile(fsys, "/dst/extra.txt")
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(content), "files without a source counterpart survive")

	content, err = util.ReadFile(fsys, "/dst/top.txt")
	require.NoError(t, err)
	assert.Equal(t, "top", string(content), "colliding files are overwritten")
}

func TestCopyDir_RejectsFileSource(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, util.WriteFile(fsys, "/file.txt", []byte("x"), 0o644))

	assert.Error(t, CopyDir(fsys, "/file.txt", "/dst"))
	assert.Error(t, CopyDir(fsys, "/missing", "/dst"))
}

func TestTempDir_CreatesDistinctDirectories(t *testing.T) {
	fsys := newTestFS(t)

	first, err := TempDir(fsys, "/tmp-root", "stage-")
	require.NoError(t, err)
	second, err := TempDir(fsys, "/tmp-root", "stage-")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	for _, dir := range []string{first, second} {
		info, statErr := fsys.Stat(dir)
		require.NoError(t, statErr)
		assert.True(t, info.IsDir())
	}
}

func TestIsTransientLock(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"ebusy", syscall.EBUSY, true},
		{"enotempty", syscall.ENOTEMPTY, true},
		{"eacces", syscall.EACCES, true},
		{"eperm", syscall.EPERM, true},
		{"permission sentinel", os.ErrPermission, true},
		{"wrapped ebusy", &os.PathError{Op: "remove", Path: "/x", Err: syscall.EBUSY}, true},
		{"windows sharing text", errors.New("remove C:\\x: The process cannot access the file because it is being used by another process."), true},
		{"access denied text", errors.New("Access is denied."), true},
		{"not empty text", errors.New("remove /x: directory not empty"), true},
		{"plain failure", errors.New("disk exploded"), false},
		{"not exist", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransientLock(tt.err))
		})
	}
}
