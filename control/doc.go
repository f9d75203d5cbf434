// Package control
// Author: momentics <momentics@gmail.com>
//
// Operational statistics for the arena server: a fixed table of counters,
// rolling averages and timers, the per-tick accumulators that feed them,
// the periodic textual report, a Prometheus view of the same table, and
// named debug probes for runtime introspection.
//
// The metric table is closed: its entries are known at compile time and the
// kind of each entry never changes. Calling an operation on an entry of the
// wrong kind is a programming error and panics.
package control
