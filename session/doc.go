// Package session defines the durable data model for one transcription
// session: the record, its segment descriptors, transcript entries and
// phrase spans, and the merge-by-index semantics the store relies on.
//
// A Record is owned exclusively by the store; everything here is either an
// immutable value or a pure function over record state so that merge and
// completeness behavior can be tested without a filesystem.
package session
