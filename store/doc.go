// Package store persists one durable JSON record per session and serializes
// concurrent updaters, possibly in different OS processes, with a
// file-based advisory lock protocol.
//
// Each update acquires a lock marker next to the record, reads the current
// record, applies the status and deltas, recomputes progress, enforces the
// completeness invariants (including synchronous first-segment recovery),
// persists atomically and releases the marker. Markers older than a
// staleness threshold are treated as abandoned by a crashed updater and
// taken over. Contention and decode failures are retried with increasing
// delay, bounded by a small attempt count; exhausting the attempts surfaces
// the failure to the caller rather than dropping the update.
package store
