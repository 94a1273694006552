// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains the manifest data model and the manifest fetch.
package nwota

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// UpdateEntry is one publishable unit in a channel's manifest. Entries are
// immutable once published.
type UpdateEntry struct {
	// Version is the OTA version number, monotonically increasing and
	// unique within a channel.
	Version int `json:"version"`

	// Enable gates the entry. Disabled entries must never be selected,
	// which gives publishers a kill switch for a bad release.
	Enable bool `json:"enable"`

	// Download is the URL of the ZIP archive for this version.
	Download string `json:"download"`
}

// Channel is the (project key, platform, application version) tuple that
// addresses exactly one manifest. The tuple, not any single field, is the
// unit of update isolation: two app versions on the same platform have
// independent update histories.
type Channel struct {
	ProjectKey string
	Platform   Platform
	AppVersion string
}

// String renders the channel for diagnostics.
func (c Channel) String() string {
	return fmt.Sprintf("%s/%s/%s", c.ProjectKey, c.Platform, c.AppVersion)
}

// ManifestURL builds the manifest location for this channel under the given
// endpoint and platform family:
//
//	{endpoint}/ota/{family}/{projectKey}/{platform}/{appVersion}/update.json
func (c Channel) ManifestURL(endpoint, family string) string {
	return fmt.Sprintf("%s/ota/%s/%s/%s/%s/update.json",
		strings.TrimRight(endpoint, "/"), family, c.ProjectKey, c.Platform, c.AppVersion)
}

// ArchiveName returns the publish-side archive filename for a version,
// following the monotonically increasing version suffix convention.
func ArchiveName(version int) string {
	return fmt.Sprintf("package-v%d.zip", version)
}

// FetchManifest retrieves and decodes the manifest at url. An HTTP 404 is not
// an error: an absent manifest is equivalent to an empty one, so the return
// is (nil, nil). Any other non-2xx response, transport failure, or decode
// failure is fatal.
func FetchManifest(ctx context.Context, client *http.Client, url string) ([]UpdateEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestFetch, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %s for %s", ErrManifestFetch, resp.Status, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrManifestFetch, err)
	}

	var entries []UpdateEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestInvalid, err)
	}
	return entries, nil
}
