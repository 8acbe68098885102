// Package analysis computes the dashboard views over a derived dataset:
// subset selection from filter criteria, generic group-by aggregation, and
// the shaped payloads for each dashboard tab.
//
// Everything here is pure computation over domain.Record slices; no I/O.
package analysis
