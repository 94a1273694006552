package nwota

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_ManifestURL(t *testing.T) {
	channel := Channel{ProjectKey: "my-game", Platform: PlatformWin, AppVersion: "1.2.3"}

	url := channel.ManifestURL("https://updates.example.com", "nw")
	assert.Equal(t, "https://updates.example.com/ota/nw/my-game/win/1.2.3/update.json", url)

	// Trailing slash on the endpoint must not double up.
	url = channel.ManifestURL("https://updates.example.com/", "nw")
	assert.Equal(t, "https://updates.example.com/ota/nw/my-game/win/1.2.3/update.json", url)
}

func TestFetchManifest_DecodesEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"version":1,"enable":true,"download":"https://cdn.example.com/package-v1.zip"}]`))
	}))
	defer server.Close()

	entries, err := FetchManifest(context.Background(), server.Client(), server.URL)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, UpdateEntry{
		Version:  1,
		Enable:   true,
		Download: "https://cdn.example.com/package-v1.zip",
	}, entries[0])
}

// TestFetchManifest_NotFoundIsEmptyManifest verifies that an absent manifest
// is not an error: 404 reads as an empty channel.
func TestFetchManifest_NotFoundIsEmptyManifest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	entries, err := FetchManifest(context.Background(), server.Client(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchManifest_ServerErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := FetchManifest(context.Background(), server.Client(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrManifestFetch)
}

func TestFetchManifest_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer server.Close()

	_, err := FetchManifest(context.Background(), server.Client(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrManifestInvalid)
}
