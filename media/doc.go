// Package media shells out to ffmpeg and ffprobe to prepare audio for
// transcription: chunking a source recording into fixed-length mono 16 kHz
// WAV segments, probing segment durations, and re-normalizing artifacts
// that trip the model's tensor-shape checks.
package media
