// Package scheduler drives sync and dispatch cycles on a fixed interval.
//
// Run executes one cycle immediately, then one per tick until its context is
// cancelled. Cycles never overlap: a cycle that outlasts the interval is
// followed by at most one immediate re-run, because the ticker drops ticks a
// slow receiver misses. Each cycle runs on a context detached from
// cancellation, so a shutdown requested mid-cycle takes effect once that
// cycle has dispatched everything it found.
//
// A sync failure is logged and the loop waits for the next tick.
package scheduler
