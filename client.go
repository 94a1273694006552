// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains the update orchestrator.
package nwota

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/AntonSeagull/nw-ota/internal/fsutil"
	"github.com/AntonSeagull/nw-ota/internal/versionfile"
)

// Client drives the update flow for one bundle: check, download, unpack,
// swap, persist. A Client serializes its own operations with a mutex, but
// running two Clients against the same bundle path concurrently is undefined
// behavior; callers must serialize update attempts per bundle.
type Client struct {
	options *ClientOptions

	endpoint   string
	projectKey string
	bundlePath string
	info       PlatformInfo

	fs     billy.Filesystem
	logger *log.Logger
	store  *versionfile.Store

	// mu serializes CheckForUpdate/Update on this instance. There is no
	// internal parallelism: every stage is awaited before the next begins.
	mu sync.Mutex
}

// New creates a Client for the bundle at bundlePath, updated from endpoint
// under projectKey. The platform tag and application version come from info;
// together with projectKey they address the update channel.
func New(endpoint, projectKey, bundlePath string, info PlatformInfo, opts ...ClientOption) (*Client, error) {
	options := DefaultClientOptions()
	for _, opt := range opts {
		opt(options)
	}

	if endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if projectKey == "" {
		return nil, fmt.Errorf("project key cannot be empty")
	}
	if bundlePath == "" {
		return nil, fmt.Errorf("bundle path cannot be empty")
	}
	if info == nil {
		return nil, fmt.Errorf("platform info cannot be nil")
	}
	if !info.Platform().Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlatform, info.Platform())
	}

	fsys := options.FS
	if fsys == nil {
		fsys = osfs.New("/")
	}

	logger := options.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	versionPath := options.VersionFile
	if versionPath == "" {
		versionPath = bundlePath + ".version.json"
	}

	return &Client{
		options:    options,
		endpoint:   endpoint,
		projectKey: projectKey,
		bundlePath: bundlePath,
		info:       info,
		fs:         fsys,
		logger:     logger,
		store:      versionfile.New(fsys, versionPath),
	}, nil
}

// Channel returns the update channel this client is bound to.
func (c *Client) Channel() Channel {
	return Channel{
		ProjectKey: c.projectKey,
		Platform:   c.info.Platform(),
		AppVersion: c.info.AppVersion(),
	}
}

// InstalledVersion returns the currently persisted OTA version (0 if the
// bundle was never updated).
func (c *Client) InstalledVersion() int {
	return c.store.Load()
}

// CheckForUpdate fetches the channel manifest and reports the entry that
// would be installed, or nil when the bundle is up to date. It performs no
// filesystem mutation. The flow emits "checking" and then either
// "update-found" or "no-update"; a fetch failure emits "error" and fires the
// failure callback.
func (c *Client) CheckForUpdate(ctx context.Context) (*UpdateEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.check(ctx)
	if err != nil {
		return nil, c.fail(err)
	}
	return entry, nil
}

// Update runs the full flow: check, download, unpack, swap, persist, clean.
// A run with no eligible update stops at the "no-update" report with no side
// effects. Any fatal error terminates the flow at an "error" report after a
// best-effort cleanup of temporary artifacts. Exactly one of the no-update,
// success, or failure callbacks fires per run.
func (c *Client) Update(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.check(ctx)
	if err != nil {
		return c.fail(err)
	}
	if entry == nil {
		return nil
	}

	tempDir, err := fsutil.TempDir(c.fs, c.options.TempRoot, "nw-ota-")
	if err != nil {
		return c.fail(&UpdateError{Op: "download", Target: c.Channel().String(), Err: err})
	}
	cleanup := func() {
		if err := fsutil.RemoveAll(c.fs, tempDir, c.options.Retry); err != nil {
			c.logger.Warn("temporary artifact cleanup failed", "dir", tempDir, "err", err)
		}
	}

	archivePath, err := c.download(ctx, *entry, tempDir)
	if err != nil {
		cleanup()
		return c.fail(err)
	}

	contentDir, err := c.unpack(ctx, archivePath, tempDir)
	if err != nil {
		cleanup()
		return c.fail(err)
	}

	if err := c.replace(contentDir); err != nil {
		cleanup()
		return c.fail(err)
	}

	c.emit(StatusSaving)
	if err := c.store.Save(entry.Version); err != nil {
		// The swap already succeeded on disk; a persistence failure is
		// bookkeeping and must not fail the update.
		c.logger.Warn("version record not persisted", "version", entry.Version, "err", err)
	}

	c.emit(StatusCleaning)
	cleanup()

	c.emit(StatusSuccess)
	if c.options.Callbacks.OnSuccess != nil {
		c.options.Callbacks.OnSuccess()
	}

	c.emit(StatusRestartNeeded)
	if c.options.Callbacks.OnRestartNeeded != nil {
		c.options.Callbacks.OnRestartNeeded()
	}
	c.logger.Info("bundle updated", "channel", c.Channel().String(), "version", entry.Version)
	return nil
}

// check fetches the manifest and selects the install target. A nil entry
// with nil error means no update; the no-update report has already been
// emitted in that case.
func (c *Client) check(ctx context.Context) (*UpdateEntry, error) {
	c.emit(StatusChecking)

	channel := c.Channel()
	url := channel.ManifestURL(c.endpoint, c.options.Family)
	c.logger.Debug("fetching manifest", "url", url)

	manifest, err := FetchManifest(ctx, c.manifestClient(), url)
	if err != nil {
		return nil, &UpdateError{Op: "check", Target: channel.String(), Err: err}
	}

	current := c.store.Load()
	entry, ok := Select(manifest, current)
	if !ok {
		c.emit(StatusNoUpdate)
		if c.options.Callbacks.OnNoUpdate != nil {
			c.options.Callbacks.OnNoUpdate()
		}
		c.logger.Debug("no eligible update", "channel", channel.String(), "current", current)
		return nil, nil
	}

	c.emit(StatusUpdateFound)
	if c.options.Callbacks.OnUpdateFound != nil {
		c.options.Callbacks.OnUpdateFound(entry)
	}
	c.logger.Info("update found", "channel", channel.String(), "current", current, "target", entry.Version)
	return &entry, nil
}

// download fetches the entry's archive into tempDir.
func (c *Client) download(ctx context.Context, entry UpdateEntry, tempDir string) (string, error) {
	c.emit(StatusDownloading)

	archivePath := c.fs.Join(tempDir, ArchiveName(entry.Version))
	downloader := NewDownloader(c.fs, c.downloadClient())
	size, err := downloader.Download(ctx, entry.Download, archivePath, c.options.Callbacks.OnProgress)
	if err != nil {
		return "", &UpdateError{Op: "download", Target: entry.Download, Err: err}
	}

	c.emit(StatusDownloaded)
	c.logger.Debug("archive downloaded", "bytes", size, "path", archivePath)
	return archivePath, nil
}

// unpack extracts the downloaded archive into a content directory under
// tempDir and returns it.
func (c *Client) unpack(ctx context.Context, archivePath, tempDir string) (string, error) {
	c.emit(StatusUnpacking)

	contentDir := c.fs.Join(tempDir, "content")
	archiver := NewZipArchiver(c.fs)
	if err := archiver.ExtractFile(ctx, archivePath, contentDir, c.options.Extract); err != nil {
		return "", &UpdateError{Op: "unpack", Target: archivePath, Err: err}
	}

	c.emit(StatusUnpacked)
	return contentDir, nil
}

// replace swaps the extracted content into the bundle path.
func (c *Client) replace(contentDir string) error {
	c.emit(StatusReplacing)

	replacerOpts := []ReplacerOption{WithReplacerRetry(c.options.Retry)}
	if !c.options.Backup {
		replacerOpts = append(replacerOpts, WithoutBackup())
	}
	replacer := NewReplacer(c.fs, c.bundlePath, c.info.Platform(), replacerOpts...)
	if err := replacer.Replace(contentDir); err != nil {
		return err
	}

	c.emit(StatusReplaced)
	return nil
}

// fail funnels every fatal error into the single error report and failure
// callback, then returns it.
func (c *Client) fail(err error) error {
	c.emit(StatusError)
	if c.options.Callbacks.OnFailure != nil {
		c.options.Callbacks.OnFailure(err)
	}
	c.logger.Error("update failed", "channel", c.Channel().String(), "err", err)
	return err
}

// emit forwards a status token to the observer.
func (c *Client) emit(s Status) {
	c.options.Callbacks.emitStatus(s)
}

// manifestClient returns the HTTP client for the manifest fetch.
func (c *Client) manifestClient() *http.Client {
	if c.options.HTTPClient != nil {
		return c.options.HTTPClient
	}
	return &http.Client{Timeout: c.options.ManifestTimeout}
}

// downloadClient returns the HTTP client for the archive download.
func (c *Client) downloadClient() *http.Client {
	if c.options.HTTPClient != nil {
		return c.options.HTTPClient
	}
	return &http.Client{Timeout: c.options.DownloadTimeout}
}
