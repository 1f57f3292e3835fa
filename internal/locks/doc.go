// Package locks provides the per-workflow poll lock. One lock holder per
// workflow keeps overlapping execute polls from racing each other across
// processes; the store's compare-and-set claims remain the final guard.
package locks
