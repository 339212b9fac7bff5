// Package journal keeps an append-only SQLite log of graph transitions.
//
// The journal is an audit trail. Nothing in softgraph rebuilds graph state
// from it; the graph itself stays purely in memory.
//
// Ordering: rows are read back in insertion order (seq ASC). Because the
// graph calls its recorder while the affected entity is write-locked, the
// rows for any one entity appear in that entity's history order.
package journal
