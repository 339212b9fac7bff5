package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Scenario is a scripted sequence of graph operations followed by
// assertions over the final state.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Steps run in order against one fresh graph.
	Steps []Step `yaml:"steps" json:"steps"`

	// Assertions are evaluated after every step has run.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// Step is one graph operation. Nodes and edges are referred to by the
// binding names scenarios give them, never by generated ids.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op" json:"op"`

	// As binds the created node (new_node) or the connecting edge (connect).
	As string `yaml:"as,omitempty" json:"as,omitempty"`

	Node   string `yaml:"node,omitempty" json:"node,omitempty"`
	Value  string `yaml:"value,omitempty" json:"value,omitempty"`
	Parent string `yaml:"parent,omitempty" json:"parent,omitempty"`
	Child  string `yaml:"child,omitempty" json:"child,omitempty"`
	Edge   string `yaml:"edge,omitempty" json:"edge,omitempty"`

	// ExpectError is the error code the step must fail with. Empty means
	// the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
}

// Step operations.
const (
	OpNewNode     = "new_node"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpRestore     = "restore"
	OpConnect     = "connect"
	OpDisconnect  = "disconnect"
	OpDeleteEdge  = "delete_edge"
	OpRestoreEdge = "restore_edge"
)

// Assertion checks one property of the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type" json:"type"`

	Node   string `yaml:"node,omitempty" json:"node,omitempty"`
	Parent string `yaml:"parent,omitempty" json:"parent,omitempty"`
	Child  string `yaml:"child,omitempty" json:"child,omitempty"`
	Edge   string `yaml:"edge,omitempty" json:"edge,omitempty"`

	// Equals is the expected value (value).
	Equals *string `yaml:"equals,omitempty" json:"equals,omitempty"`

	// Expect is the expected truth (deleted, is_parent_of, same_edge, edge_live).
	Expect *bool `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Count is the expected number (edge_count, history_length).
	Count *int `yaml:"count,omitempty" json:"count,omitempty"`
}

// Assertion types.
const (
	AssertValue         = "value"
	AssertDeleted       = "deleted"
	AssertEdgeCount     = "edge_count"
	AssertIsParentOf    = "is_parent_of"
	AssertHistoryLength = "history_length"
	AssertSameEdge      = "same_edge"
	AssertEdgeLive      = "edge_live"
)

// LoadScenario reads, parses and validates a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
//
// Validation happens in three passes: strict YAML decoding (unknown fields
// are rejected), the embedded CUE schema, and binding resolution (every
// name must be bound by an earlier step).
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if err := validateBindings(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateSchema unifies the decoded document with #Scenario.
func validateSchema(doc map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	v := ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// validateBindings checks that names are bound before use and never rebound.
func validateBindings(s *Scenario) error {
	nodes := make(map[string]bool)
	edges := make(map[string]bool)

	needNode := func(where, name string) error {
		if !nodes[name] {
			return fmt.Errorf("%s: unknown node %q", where, name)
		}
		return nil
	}
	needEdge := func(where, name string) error {
		if !edges[name] {
			return fmt.Errorf("%s: unknown edge %q", where, name)
		}
		return nil
	}

	for i, step := range s.Steps {
		where := fmt.Sprintf("steps[%d] %s", i, step.Op)
		switch step.Op {
		case OpNewNode:
			if nodes[step.As] || edges[step.As] {
				return fmt.Errorf("%s: %q is already bound", where, step.As)
			}
			nodes[step.As] = true
		case OpUpdate, OpDelete, OpRestore:
			if err := needNode(where, step.Node); err != nil {
				return err
			}
		case OpConnect, OpDisconnect:
			if err := needNode(where, step.Parent); err != nil {
				return err
			}
			if err := needNode(where, step.Child); err != nil {
				return err
			}
			if step.As != "" {
				if step.Op != OpConnect {
					return fmt.Errorf("%s: only connect can bind an edge", where)
				}
				if nodes[step.As] || edges[step.As] {
					return fmt.Errorf("%s: %q is already bound", where, step.As)
				}
				edges[step.As] = true
			}
		case OpDeleteEdge, OpRestoreEdge:
			if err := needEdge(where, step.Edge); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: unknown op", where)
		}
	}

	for i, a := range s.Assertions {
		where := fmt.Sprintf("assertions[%d] %s", i, a.Type)
		for _, name := range []string{a.Node, a.Parent, a.Child} {
			if name == "" {
				continue
			}
			if err := needNode(where, name); err != nil {
				return err
			}
		}
		if a.Edge != "" {
			if err := needEdge(where, a.Edge); err != nil {
				return err
			}
		}
	}
	return nil
}
