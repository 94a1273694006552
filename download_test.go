package nwota

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_WritesFileAndReportsProgress(t *testing.T) {
	payload := []byte("archive payload bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	fsys := memfs.New()
	var lastReceived, lastTotal int64
	downloader := NewDownloader(fsys, srv.Client())

	written, err := downloader.Download(context.Background(), srv.URL, "/staging/package-v1.zip",
		func(received, total int64) { lastReceived, lastTotal = received, total })
	require.NoError(t, err)

	assert.Equal(t, int64(len(payload)), written)
	assert.Equal(t, int64(len(payload)), lastReceived)
	assert.Equal(t, int64(len(payload)), lastTotal)

	content, err := util.ReadFile(fsys, "/staging/package-v1.zip")
	require.NoError(t, err)
	assert.Equal(t, payload, content)
}

func TestDownloader_UnknownContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing before the body completes suppresses Content-Length.
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("streamed"))
	}))
	t.Cleanup(srv.Close)

	fsys := memfs.New()
	var lastTotal int64 = -2
	downloader := NewDownloader(fsys, srv.Client())

	written, err := downloader.Download(context.Background(), srv.URL, "/out.zip",
		func(received, total int64) { lastTotal = total })
	require.NoError(t, err)
	assert.Equal(t, int64(len("streamed")), written)
	assert.Equal(t, int64(-1), lastTotal, "unknown length is reported as -1")
}

func TestDownloader_NonSuccessStatusIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	fsys := memfs.New()
	downloader := NewDownloader(fsys, srv.Client())

	_, err := downloader.Download(context.Background(), srv.URL, "/out.zip", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDownloadFailed)

	_, statErr := fsys.Stat("/out.zip")
	assert.Error(t, statErr, "no file is created for a failed response")
}

func TestDownloader_NilProgressIsAllowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	downloader := NewDownloader(memfs.New(), srv.Client())
	written, err := downloader.Download(context.Background(), srv.URL, "/out.zip", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), written)
}
