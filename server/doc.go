// Package server exposes the transcription pipeline over HTTP.
//
// Routes:
//
//	POST /sessions/:id/transcribe    segment a recording and queue its segments
//	GET  /sessions/:id/status        progress, missing segments, errors
//	GET  /sessions/:id/transcript    merged transcript entries
//	POST /sessions/:id/reprocess     re-enqueue missing segments
//	POST /sessions/:id/recover-first force the synthetic first segment
//	GET  /health                     liveness plus pipeline vitals
package server
