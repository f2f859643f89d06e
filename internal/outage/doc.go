// Package outage turns a stream of probe outcomes into availability metrics.
//
// Classifier keeps the running tally (total, dropped, consecutive drops) and
// labels every probe with a domain.Event. Ledger consumes those events and
// keeps a bounded, newest-first list of outage intervals: an interval opens
// when a run of failures reaches the threshold and closes on the next
// success. When the ledger is full the oldest interval is evicted; the
// outage count keeps including it.
//
// Monitor wraps both behind a single lock. One call to Apply is one tick;
// Stats, Snapshot and View may be called from other goroutines at any time.
package outage
