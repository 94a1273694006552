// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains the HTTP archive download.
package nwota

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
)

// Downloader fetches a byte stream from a URL into a local file. It is a
// pure I/O capability with no state beyond its HTTP client and filesystem.
type Downloader struct {
	fs     billy.Filesystem
	client *http.Client
}

// NewDownloader returns a Downloader writing through fsys using client.
// A nil client falls back to http.DefaultClient; callers that need a
// download timeout pass a client carrying one.
func NewDownloader(fsys billy.Filesystem, client *http.Client) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{fs: fsys, client: client}
}

// Download fetches url into dest, creating parent directories as needed, and
// returns the number of bytes written. progress, when non-nil, is invoked as
// bytes arrive with the running total and the server-announced content
// length (-1 when unknown). A non-2xx response or transport failure is
// fatal; there is no automatic retry of the network call.
func (d *Downloader) Download(ctx context.Context, url, dest string, progress func(received, total int64)) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: unexpected status %s for %s", ErrDownloadFailed, resp.Status, url)
	}

	if parent := filepath.Dir(dest); parent != "." {
		if err := d.fs.MkdirAll(parent, 0o755); err != nil {
			return 0, fmt.Errorf("create download directory %s: %w", parent, err)
		}
	}

	out, err := d.fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create download file %s: %w", dest, err)
	}

	written, copyErr := copyWithProgress(out, resp.Body, resp.ContentLength, progress)
	closeErr := out.Close()
	if copyErr != nil {
		return written, fmt.Errorf("%w: %w", ErrDownloadFailed, copyErr)
	}
	if closeErr != nil {
		return written, fmt.Errorf("%w: close %s: %w", ErrDownloadFailed, dest, closeErr)
	}
	return written, nil
}

// copyWithProgress copies src into dst, reporting the running byte count
// after every chunk.
func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress func(received, total int64)) (int64, error) {
	buf := make([]byte, 32*1024)
	var received int64

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return received, writeErr
			}
			received += int64(n)
			if progress != nil {
				progress(received, total)
			}
		}
		if err == io.EOF {
			return received, nil
		}
		if err != nil {
			return received, err
		}
	}
}
