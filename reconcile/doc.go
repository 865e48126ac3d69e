// Package reconcile runs the periodic session audit: it compares the
// expected segment set against the transcript, downgrades records that
// claim completion with gaps, re-enqueues missing segments, and applies
// first-segment recovery when index 0 never produced a transcript.
package reconcile
