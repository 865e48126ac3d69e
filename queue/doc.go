// Package queue provides the bounded, ordered dispatch channel between
// segmentation and the transcription workers.
//
// Producers (the segmenter hand-off and the reconciler's re-enqueue) block
// with a timeout when the queue is full and retry with backoff rather than
// drop work. Within a session, segment index 0 is always enqueued ahead of
// the remaining indices.
package queue
