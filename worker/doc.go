// Package worker drains the dispatch queue and turns audio segments into
// transcript entries.
//
// Each segment runs through a bounded attempt loop over a three-tier decode
// ladder: a high-quality beam-search preset, a greedy fallback, and a
// silence-tolerant final preset. Raw model output is post-processed to strip
// priming-prompt leakage, collapse back-to-back repeated n-grams, and drop
// duplicate consecutive phrases before the result is merged into the
// session store. A segment that exhausts all tiers records one per-segment
// error; the session keeps going.
package worker
