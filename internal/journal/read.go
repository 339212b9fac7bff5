package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/softgraph/internal/graph"
)

// Entry is a journaled transition with its sequence number.
type Entry struct {
	Seq int64
	graph.Event
}

const selectEvents = `SELECT seq, kind, entity_id, parent_id, child_id, value, at FROM events`

// ReadEntity returns the transitions of one node or edge in seq order.
// Returns an empty slice (not nil) if the entity was never journaled.
func (s *Store) ReadEntity(ctx context.Context, entityID string) ([]Entry, error) {
	return s.query(ctx, selectEvents+` WHERE entity_id = ? ORDER BY seq ASC`, entityID)
}

// ReadNodeEdges returns the transitions of every edge the node is an
// endpoint of, in seq order.
func (s *Store) ReadNodeEdges(ctx context.Context, nodeID string) ([]Entry, error) {
	return s.query(ctx, selectEvents+` WHERE parent_id = ? OR child_id = ? ORDER BY seq ASC`, nodeID, nodeID)
}

// ReadAll returns every transition in seq order.
func (s *Store) ReadAll(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, selectEvents+` ORDER BY seq ASC`)
}

// Count returns the number of journaled transitions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var kind, at string
	if err := rows.Scan(&e.Seq, &kind, &e.EntityID, &e.ParentID, &e.ChildID, &e.Value, &at); err != nil {
		return Entry{}, fmt.Errorf("scan event: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return Entry{}, fmt.Errorf("event %d: parse timestamp %q: %w", e.Seq, at, err)
	}
	e.Kind = graph.EventKind(kind)
	e.At = ts
	return e, nil
}
