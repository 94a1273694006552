package versionfile

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadDefaultsToZero(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"absent file", ""},
		{"empty file", " "},
		{"garbage", "not json at all"},
		{"wrong shape", `{"version":"three"}`},
		{"negative version", `{"version":-4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := memfs.New()
			if tt.name != "absent file" {
				require.NoError(t, util.WriteFile(fsys, "/bundle.version.json", []byte(tt.content), 0o644))
			}

			store := New(fsys, "/bundle.version.json")
			assert.Equal(t, 0, store.Load())
		})
	}
}

func TestStore_SaveThenLoad(t *testing.T) {
	fsys := memfs.New()
	store := New(fsys, "/state/bundle.version.json")

	require.NoError(t, store.Save(7))
	assert.Equal(t, 7, store.Load())

	// Overwrite, not append.
	require.NoError(t, store.Save(8))
	assert.Equal(t, 8, store.Load())
}

func TestStore_SaveWritesCanonicalRecord(t *testing.T) {
	fsys := memfs.New()
	store := New(fsys, "/bundle.version.json")

	require.NoError(t, store.Save(3))

	content, err := util.ReadFile(fsys, "/bundle.version.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":3}`, string(content))
}

func TestStore_Path(t *testing.T) {
	store := New(memfs.New(), "/x/y.json")
	assert.Equal(t, "/x/y.json", store.Path())
}
