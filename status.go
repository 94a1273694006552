// Package nwota delivers incremental over-the-air updates of an NW.js
// application's asset bundle.
// This file contains the observable status tokens and the callback surface.
package nwota

// Status is one token of the observable update flow. On the happy path the
// tokens are emitted in this fixed order:
//
//	checking, update-found, downloading, downloaded, unpacking, unpacked,
//	replacing, replaced, saving, cleaning, success, restart-needed
//
// "no-update" is the terminal alternative to "update-found", and "error" is
// the terminal alternative at any stage.
type Status string

const (
	StatusChecking      Status = "checking"
	StatusUpdateFound   Status = "update-found"
	StatusNoUpdate      Status = "no-update"
	StatusDownloading   Status = "downloading"
	StatusDownloaded    Status = "downloaded"
	StatusUnpacking     Status = "unpacking"
	StatusUnpacked      Status = "unpacked"
	StatusReplacing     Status = "replacing"
	StatusReplaced      Status = "replaced"
	StatusSaving        Status = "saving"
	StatusCleaning      Status = "cleaning"
	StatusSuccess       Status = "success"
	StatusRestartNeeded Status = "restart-needed"
	StatusError         Status = "error"
)

// Callbacks is the optional, side-effect-only observer surface of the update
// flow. Every callback is invoked synchronously from within the flow; nil
// callbacks are skipped. Exactly one of OnNoUpdate, OnSuccess or OnFailure
// fires per run, never zero and never more than one.
type Callbacks struct {
	// OnStatus receives every status token as it is emitted.
	OnStatus func(Status)

	// OnUpdateFound fires once a target entry has been selected.
	OnUpdateFound func(UpdateEntry)

	// OnNoUpdate fires when the manifest yields no eligible entry
	// (including a 404 manifest).
	OnNoUpdate func()

	// OnSuccess fires after the swap succeeded and cleanup ran.
	OnSuccess func()

	// OnFailure fires with the fatal error of a failed run.
	OnFailure func(error)

	// OnProgress reports download progress. total is -1 when the server
	// does not announce a content length.
	OnProgress func(received, total int64)

	// OnRestartNeeded fires last on the happy path: the new bundle is on
	// disk but activating it requires the caller to restart the host
	// process. This system never restarts anything itself.
	OnRestartNeeded func()
}

// emitStatus forwards a token to the OnStatus callback, if set.
func (cb *Callbacks) emitStatus(s Status) {
	if cb.OnStatus != nil {
		cb.OnStatus(s)
	}
}
