// Package dispatch runs long-lived background work keyed by cluster id.
//
// A key can hold at most one lease at a time. The caller acquires the lease
// before its synchronous work, hands it to [Lease.Go] for the background
// remainder, and the key is released when that work returns. Overlapping
// lifecycle operations on one cluster are rejected with [ErrBusy] rather
// than queued.
package dispatch
