// Package embedding computes and caches the vector matrix for the taxonomy
// leaves, and embeds search queries against it.
//
// The matrix is expensive to compute (one embedding per classifiable code),
// so it is persisted to a single cache file keyed by a digest of the input
// texts. Any change to the taxonomy produces a different digest and the
// stale cache is simply never matched. Cache writes are atomic via a temp
// file rename.
//
// Batch computation runs on an ants worker pool with fixed-size batches;
// each batch writes into preassigned matrix rows, so the row-per-leaf
// invariant holds regardless of completion order. Transient embedding API
// failures are retried with exponential backoff.
package embedding
