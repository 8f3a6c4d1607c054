// Package store holds the Metric Store: the last observed value of every
// per-server series, kept on a private Prometheus registry together with the
// exporter's own cycle-health metrics.
//
// Writes go through Update and RecordCycle, which serialise on one mutex so
// concurrent resource fetches of a batch never interleave a partial label
// tuple. Reads go through Gather (prometheus.Gatherer).
//
// A series exists only after its first successful Update and keeps its value
// until overwritten. With a non-zero stale-after duration, Run evicts label
// tuples that have not been refreshed within that window; with zero (the
// default) series live until the process exits.
package store
