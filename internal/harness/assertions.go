package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/softgraph/internal/graph"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Index    int    // Position in the scenario's assertion list
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertions[%d] %s failed\n", e.Index, e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the harness state and
// returns one message per failure, in assertion order.
func EvaluateAssertions(h *Harness, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(h, a); err != nil {
			if ae, ok := err.(*AssertionError); ok {
				ae.Index = i
			}
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(h *Harness, a Assertion) error {
	switch a.Type {
	case AssertValue:
		return assertValue(h, a)
	case AssertDeleted:
		return assertDeleted(h, a)
	case AssertEdgeCount:
		return assertEdgeCount(h, a)
	case AssertIsParentOf:
		return assertIsParentOf(h, a)
	case AssertHistoryLength:
		return assertHistoryLength(h, a)
	case AssertSameEdge:
		return assertSameEdge(h, a)
	case AssertEdgeLive:
		return assertEdgeLive(h, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertValue(h *Harness, a Assertion) error {
	n, err := h.node(a.Node)
	if err != nil {
		return err
	}
	if a.Equals == nil {
		return fmt.Errorf("value assertion requires equals")
	}
	got, err := n.Value()
	if err != nil {
		return mismatch(a, fmt.Sprintf("%s = %q", a.Node, *a.Equals), fmt.Sprintf("error: %v", err))
	}
	if got != *a.Equals {
		return mismatch(a, fmt.Sprintf("%s = %q", a.Node, *a.Equals), fmt.Sprintf("%q", got))
	}
	return nil
}

func assertDeleted(h *Harness, a Assertion) error {
	n, err := h.node(a.Node)
	if err != nil {
		return err
	}
	return expectBool(a, fmt.Sprintf("%s deleted", a.Node), n.IsDeleted())
}

func assertEdgeCount(h *Harness, a Assertion) error {
	n, err := h.node(a.Node)
	if err != nil {
		return err
	}
	count, err := n.EdgeCount()
	if err != nil {
		return mismatch(a, fmt.Sprintf("%s has %d live edges", a.Node, deref(a.Count)), fmt.Sprintf("error: %v", err))
	}
	return expectInt(a, fmt.Sprintf("%s live edges", a.Node), count)
}

func assertHistoryLength(h *Harness, a Assertion) error {
	n, err := h.node(a.Node)
	if err != nil {
		return err
	}
	history, err := n.History()
	if err != nil {
		return mismatch(a, fmt.Sprintf("%s has %d instances", a.Node, deref(a.Count)), fmt.Sprintf("error: %v", err))
	}
	return expectInt(a, fmt.Sprintf("%s instances", a.Node), len(history))
}

func assertIsParentOf(h *Harness, a Assertion) error {
	parent, child, err := h.pair(Step{Parent: a.Parent, Child: a.Child})
	if err != nil {
		return err
	}
	return expectBool(a, fmt.Sprintf("%s is parent of %s", a.Parent, a.Child), parent.IsParentOf(child))
}

func assertSameEdge(h *Harness, a Assertion) error {
	e, err := h.edge(a.Edge)
	if err != nil {
		return err
	}
	parent, child, err := h.pair(Step{Parent: a.Parent, Child: a.Child})
	if err != nil {
		return err
	}
	current := parent.EdgeTo(child)
	return expectBool(a, fmt.Sprintf("%s is the edge %s -> %s", a.Edge, a.Parent, a.Child), graph.SameEdge(e, current))
}

func assertEdgeLive(h *Harness, a Assertion) error {
	e, err := h.edge(a.Edge)
	if err != nil {
		return err
	}
	return expectBool(a, fmt.Sprintf("%s live", a.Edge), e.IsLive())
}

func expectBool(a Assertion, what string, got bool) error {
	if a.Expect == nil {
		return fmt.Errorf("%s assertion requires expect", a.Type)
	}
	if got != *a.Expect {
		return mismatch(a, fmt.Sprintf("%s = %t", what, *a.Expect), fmt.Sprintf("%t", got))
	}
	return nil
}

func expectInt(a Assertion, what string, got int) error {
	if a.Count == nil {
		return fmt.Errorf("%s assertion requires count", a.Type)
	}
	if got != *a.Count {
		return mismatch(a, fmt.Sprintf("%s = %d", what, *a.Count), fmt.Sprintf("%d", got))
	}
	return nil
}

func mismatch(a Assertion, expected, actual string) *AssertionError {
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
