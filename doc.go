// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle without touching the host runtime or executable.
//
// A client periodically asks a remote feed whether a newer bundle exists for
// its update channel (project key, platform, application version), and on a
// hit downloads a ZIP archive, unpacks it, and atomically swaps it in for the
// running bundle with backup and rollback on failure. Key features:
//   - Backup-then-swap replacement with rollback to the pre-swap bundle
//   - Locked-file retry handling for files held open by the host process
//   - Platform-aware clearing of the reserved package.nw directory on Windows
//   - Security-validated extraction (path traversal, size and count limits)
//   - Observable status stream and optional callbacks for every stage
//   - Filesystem abstraction for testing against in-memory fixtures
//
// Basic usage:
//
//	client, err := nwota.New(
//	    "https://updates.example.com",
//	    "my-project",
//	    "/opt/myapp/package.nw",
//	    nwota.StaticPlatformInfo{Plat: nwota.CurrentPlatform(), Version: "1.4.0"},
//	)
//	if err != nil {
//	    return err
//	}
//
//	// Report only.
//	entry, err := client.CheckForUpdate(ctx)
//
//	// Full flow: download, unpack, swap, persist.
//	err = client.Update(ctx)
//
// Activating a newly installed bundle requires restarting the host process;
// the client reports this via the restart-needed status but never restarts
// anything itself.
package nwota
