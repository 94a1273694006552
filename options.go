// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains functional options for client configuration.
package nwota

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"

	"github.com/AntonSeagull/nw-ota/internal/fsutil"
)

// DefaultFamily is the platform-family segment of the manifest URL used when
// no override is configured.
const DefaultFamily = "nw"

// ClientOptions contains the configuration of a Client.
type ClientOptions struct {
	// Family is the platform-family segment of the manifest URL.
	Family string

	// FS provides all filesystem access. If nil, the host's root
	// filesystem is used.
	FS billy.Filesystem

	// HTTPClient, when set, is used for both the manifest fetch and the
	// archive download, and its own timeout applies. When nil, per-call
	// clients are built from ManifestTimeout and DownloadTimeout.
	HTTPClient *http.Client

	// Logger receives diagnostic output. If nil, logging is discarded.
	Logger *log.Logger

	// Backup controls whether the replacement engine snapshots the bundle
	// before the swap. Enabled by default.
	Backup bool

	// ManifestTimeout bounds the manifest fetch.
	ManifestTimeout time.Duration

	// DownloadTimeout bounds the archive download.
	DownloadTimeout time.Duration

	// Retry controls the filesystem remove retry behavior.
	Retry fsutil.RetryOptions

	// Extract bounds archive extraction.
	Extract ExtractOptions

	// VersionFile is the path of the persisted version record. Defaults to
	// "<bundle path>.version.json".
	VersionFile string

	// TempRoot is the directory temporary downloads and extractions are
	// created under. Defaults to the OS temp directory.
	TempRoot string

	// Callbacks is the observer surface of the flow.
	Callbacks Callbacks
}

// DefaultClientOptions returns the default client options.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		Family:          DefaultFamily,
		Backup:          true,
		ManifestTimeout: 10 * time.Second,
		DownloadTimeout: 5 * time.Minute,
		Retry:           fsutil.DefaultRetryOptions(),
		Extract:         DefaultExtractOptions(),
	}
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*ClientOptions)

// WithFilesystem injects a custom filesystem implementation used by the
// client for every disk operation. Tests typically pass an in-memory or
// chrooted filesystem.
func WithFilesystem(fsys billy.Filesystem) ClientOption {
	return func(opts *ClientOptions) {
		opts.FS = fsys
	}
}

// WithHTTPClient injects the HTTP client used for the manifest fetch and the
// archive download. The client's own timeout then governs both.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(opts *ClientOptions) {
		opts.HTTPClient = client
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(opts *ClientOptions) {
		opts.Logger = logger
	}
}

// WithFamily overrides the platform-family segment of the manifest URL.
func WithFamily(family string) ClientOption {
	return func(opts *ClientOptions) {
		opts.Family = family
	}
}

// WithBackup enables or disables the pre-swap backup.
func WithBackup(enabled bool) ClientOption {
	return func(opts *ClientOptions) {
		opts.Backup = enabled
	}
}

// WithManifestTimeout bounds the manifest fetch.
func WithManifestTimeout(d time.Duration) ClientOption {
	return func(opts *ClientOptions) {
		opts.ManifestTimeout = d
	}
}

// WithDownloadTimeout bounds the archive download.
func WithDownloadTimeout(d time.Duration) ClientOption {
	return func(opts *ClientOptions) {
		opts.DownloadTimeout = d
	}
}

// WithRetryOptions overrides the filesystem remove retry behavior.
func WithRetryOptions(retry fsutil.RetryOptions) ClientOption {
	return func(opts *ClientOptions) {
		opts.Retry = retry
	}
}

// WithExtractOptions overrides the archive extraction limits.
func WithExtractOptions(extract ExtractOptions) ClientOption {
	return func(opts *ClientOptions) {
		opts.Extract = extract
	}
}

// WithVersionFile overrides the location of the persisted version record.
func WithVersionFile(path string) ClientOption {
	return func(opts *ClientOptions) {
		opts.VersionFile = path
	}
}

// WithTempRoot overrides where temporary download and extraction artifacts
// are created.
func WithTempRoot(root string) ClientOption {
	return func(opts *ClientOptions) {
		opts.TempRoot = root
	}
}

// WithCallbacks sets the whole callback surface at once.
func WithCallbacks(cb Callbacks) ClientOption {
	return func(opts *ClientOptions) {
		opts.Callbacks = cb
	}
}

// WithOnStatus registers the status token observer.
func WithOnStatus(fn func(Status)) ClientOption {
	return func(opts *ClientOptions) {
		opts.Callbacks.OnStatus = fn
	}
}

// WithOnUpdateFound registers the update-found observer.
func WithOnUpdateFound(fn func(UpdateEntry)) ClientOption {
	return func(opts *ClientOptions) {
		opts.Callbacks.OnUpdateFound = fn
	}
}

// WithOnNoUpdate registers the no-update observer.
func WithOnNoUpdate(fn func()) ClientOption {
	return func(opts *ClientOptions) {
		opts.Callbacks.OnNoUpdate = fn
	}
}

// WithOnSuccess registers the success observer.
func WithOnSuccess(fn func()) ClientOption {
	return func(opts *ClientOptions) {
		opts.Callbacks.OnSuccess = fn
	}
}

// WithOnFailure registers the failure observer.
func WithOnFailure(fn func(error)) ClientOption {
	return func(opts *ClientOptions) {
		opts.Callbacks.OnFailure = fn
	}
}

// WithOnProgress registers the download progress observer.
func WithOnProgress(fn func(received, total int64)) ClientOption {
	return func(opts *ClientOptions) {
		opts.Callbacks.OnProgress = fn
	}
}

// WithOnRestartNeeded registers the restart-needed observer.
func WithOnRestartNeeded(fn func()) ClientOption {
	return func(opts *ClientOptions) {
		opts.Callbacks.OnRestartNeeded = fn
	}
}
