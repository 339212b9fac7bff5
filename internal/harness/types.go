package harness

import "github.com/roach88/softgraph/internal/graph"

// Result is the outcome of a scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass is true if every step behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Trace is every transition in the order the graph recorded it.
	Trace []graph.Event `json:"-"`

	// TraceDigest is the content digest of Trace.
	TraceDigest string `json:"trace_digest"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Nodes summarizes every bound node, in binding order.
	Nodes []NodeSummary `json:"nodes"`
}

// NodeSummary is the final state of one bound node.
type NodeSummary struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	Value     string `json:"value"`
	Deleted   bool   `json:"deleted"`
	EdgeCount int    `json:"edge_count"`
	Digest    string `json:"digest,omitempty"`

	// Error is set when the node's state could not be read.
	Error string `json:"error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Trace:  []graph.Event{},
		Errors: []string{},
		Nodes:  []NodeSummary{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
