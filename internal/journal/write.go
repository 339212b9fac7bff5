package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/softgraph/internal/graph"
)

// Append writes one transition and returns its sequence number.
func (s *Store) Append(ctx context.Context, ev graph.Event) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events (kind, entity_id, parent_id, child_id, value, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		string(ev.Kind),
		ev.EntityID,
		ev.ParentID,
		ev.ChildID,
		ev.Value,
		ev.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("append %s for %s: %w", ev.Kind, ev.EntityID, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append %s for %s: read seq: %w", ev.Kind, ev.EntityID, err)
	}
	return seq, nil
}
