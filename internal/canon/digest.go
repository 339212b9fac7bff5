package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/roach88/softgraph/internal/graph"
)

// Domain prefixes. The version suffix allows the encoding to change without
// colliding with older digests.
const (
	DomainNode  = "softgraph/node/v1"
	DomainTrace = "softgraph/trace/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Timestamp renders t the way every canonical document does.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NodeDocument converts a snapshot to the canonical object NodeDigest hashes.
// Edges are listed in collection order with their own marker and liveness.
func NodeDocument(s graph.NodeSnapshot) map[string]any {
	instances := make([]any, len(s.Instances))
	for i, inst := range s.Instances {
		instances[i] = map[string]any{
			"kind":     string(inst.Kind),
			"saved_at": Timestamp(inst.SavedAt),
			"value":    inst.Value,
		}
	}

	edges := make([]any, len(s.Edges))
	for i, e := range s.Edges {
		doc := map[string]any{
			"id":         e.ID,
			"parent_id":  e.ParentID,
			"child_id":   e.ChildID,
			"created_at": Timestamp(e.CreatedAt),
			"live":       e.Live,
		}
		if e.DeletedAt != nil {
			doc["deleted_at"] = Timestamp(*e.DeletedAt)
		}
		if e.Poisoned {
			doc["poisoned"] = true
		}
		edges[i] = doc
	}

	doc := map[string]any{
		"id":         s.ID,
		"created_at": Timestamp(s.CreatedAt),
		"instances":  instances,
		"edges":      edges,
	}
	if s.DeletedAt != nil {
		doc["deleted_at"] = Timestamp(*s.DeletedAt)
	}
	return doc
}

// NodeDigest returns the content digest of a node snapshot.
func NodeDigest(s graph.NodeSnapshot) (string, error) {
	data, err := Marshal(NodeDocument(s))
	if err != nil {
		return "", fmt.Errorf("NodeDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainNode, data), nil
}

// EventDocument converts an event to its canonical object. Empty fields are
// omitted so node and edge events share one shape.
func EventDocument(ev graph.Event) map[string]any {
	doc := map[string]any{
		"kind":      string(ev.Kind),
		"entity_id": ev.EntityID,
		"at":        Timestamp(ev.At),
	}
	if ev.ParentID != "" {
		doc["parent_id"] = ev.ParentID
	}
	if ev.ChildID != "" {
		doc["child_id"] = ev.ChildID
	}
	if ev.Kind.IsNode() {
		doc["value"] = ev.Value
	}
	return doc
}

// EventLine renders one event as a single line of canonical JSON, without
// the trailing newline.
func EventLine(ev graph.Event) ([]byte, error) {
	return Marshal(EventDocument(ev))
}

// TraceDigest hashes an ordered event trace.
func TraceDigest(events []graph.Event) (string, error) {
	docs := make([]any, len(events))
	for i, ev := range events {
		docs[i] = EventDocument(ev)
	}
	data, err := Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("TraceDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, data), nil
}
