/*
Package metrics registers the Prometheus gauges, counters and histograms
that instrument storage, the write-ahead log, the graph, and transactions.
All metrics are package-level variables registered against the default
registry at init; the module never listens on a port itself, so a host
process mounts Handler() at whatever path its own mux uses.

Collector polls a Source (satisfied by *agdb.DB) on a fixed interval and
republishes its Stats snapshot as gauges, mirroring the way record counts
and load factors would otherwise have to be read by reaching into storage
internals from outside the package.
*/
package metrics
