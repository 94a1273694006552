package nwota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSelect_PicksHighestEligibleVersion verifies the basic selection rule:
// highest enabled version above the current one wins, disabled entries are
// invisible.
func TestSelect_PicksHighestEligibleVersion(t *testing.T) {
	manifest := []UpdateEntry{
		{Version: 1, Enable: true, Download: "u1"},
		{Version: 2, Enable: false, Download: "u2"},
		{Version: 3, Enable: true, Download: "u3"},
	}

	entry, ok := Select(manifest, 0)
	require.True(t, ok)
	assert.Equal(t, 3, entry.Version)
	assert.Equal(t, "u3", entry.Download)
}

func TestSelect_SkipsIntermediateVersions(t *testing.T) {
	manifest := []UpdateEntry{
		{Version: 2, Enable: true, Download: "u2"},
		{Version: 5, Enable: true, Download: "u5"},
		{Version: 4, Enable: true, Download: "u4"},
	}

	entry, ok := Select(manifest, 1)
	require.True(t, ok)
	assert.Equal(t, 5, entry.Version, "always the latest eligible, never one step at a time")
}

func TestSelect_NoEligibleEntries(t *testing.T) {
	tests := []struct {
		name     string
		manifest []UpdateEntry
		current  int
	}{
		{name: "empty manifest", manifest: nil, current: 0},
		{name: "all disabled", manifest: []UpdateEntry{{Version: 5, Enable: false}}, current: 0},
		{name: "nothing newer", manifest: []UpdateEntry{{Version: 3, Enable: true}}, current: 3},
		{name: "only older", manifest: []UpdateEntry{{Version: 1, Enable: true}, {Version: 2, Enable: true}}, current: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Select(tt.manifest, tt.current)
			assert.False(t, ok)
		})
	}
}

// TestSelect_NoDowngrade verifies that any returned selection is strictly
// newer than the current version, over a spread of current values.
func TestSelect_NoDowngrade(t *testing.T) {
	manifest := []UpdateEntry{
		{Version: 1, Enable: true},
		{Version: 3, Enable: true},
		{Version: 4, Enable: false},
		{Version: 7, Enable: true},
	}

	for current := 0; current <= 10; current++ {
		entry, ok := Select(manifest, current)
		if ok {
			assert.Greater(t, entry.Version, current, "current=%d", current)
		}
	}
}

// TestSelect_DuplicateVersionsFirstInManifestOrderWins pins the documented
// tie-break for the undefined duplicate-version input.
func TestSelect_DuplicateVersionsFirstInManifestOrderWins(t *testing.T) {
	manifest := []UpdateEntry{
		{Version: 2, Enable: true, Download: "first"},
		{Version: 2, Enable: true, Download: "second"},
	}

	entry, ok := Select(manifest, 0)
	require.True(t, ok)
	assert.Equal(t, "first", entry.Download)
}
