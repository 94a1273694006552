// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains the update selection logic.
package nwota

// Select decides whether an update exists for a bundle currently at
// currentVersion, and which entry to install. It is a pure function over its
// inputs.
//
// Eligible entries are those with Enable set and a Version strictly greater
// than currentVersion; intermediate versions are never installed one at a
// time, the highest eligible version always wins. When no entry is eligible
// the second return is false, which maps to the "no-update" outcome.
//
// Duplicate Version values are undefined input (versions are unique within a
// channel by contract); Select tolerates them deterministically by keeping
// the first such entry in manifest order.
func Select(manifest []UpdateEntry, currentVersion int) (UpdateEntry, bool) {
	var best UpdateEntry
	found := false

	for _, entry := range manifest {
		if !entry.Enable || entry.Version <= currentVersion {
			continue
		}
		if !found || entry.Version > best.Version {
			best = entry
			found = true
		}
	}
	return best, found
}
