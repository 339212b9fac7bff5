// Package harness runs YAML scenarios against a fresh graph and checks the
// outcome.
//
// A scenario is a list of steps (new_node, update, delete, restore, connect,
// disconnect, delete_edge, restore_edge) followed by assertions over the
// final state. Steps refer to nodes and edges by binding names: new_node
// binds a node with "as", and connect may bind the connecting edge the same
// way. A step either succeeds or fails with exactly the error code named in
// its expect_error.
//
// Runs are deterministic. The clock starts at 2024-01-01T00:00:00Z and
// advances one second per transition, and identifiers are id-1, id-2, ...
// in creation order. The recorded trace can therefore be compared against a
// golden file of canonical JSON lines:
//
//	{"at":"2024-01-01T00:00:01Z","entity_id":"id-1","kind":"node.created","value":"v1"}
//
// Scenario files are validated three ways before they run: strict YAML
// decoding, the embedded CUE schema (schema.cue), and binding resolution.
package harness
