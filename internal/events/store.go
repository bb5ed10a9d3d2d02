package events

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MemoryStore keeps the most recent events in a bounded ring.
type MemoryStore struct {
	mu     sync.RWMutex
	cap    int
	events []Event
}

// NewMemoryStore returns a store retaining at most capacity events.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryStore{cap: capacity}
}

// Append implements EventStore.
func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if over := len(s.events) - s.cap; over > 0 {
		s.events = append([]Event(nil), s.events[over:]...)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *MemoryStore) Recent(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out
}

// DBTX is the subset of pgx used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore writes events to the domain_events table.
type PGStore struct {
	DB DBTX
}

const insertDomainEvent = `INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5)`

// Append implements EventStore.
func (s PGStore) Append(ctx context.Context, event Event) error {
	_, err := s.DB.Exec(ctx, insertDomainEvent, event.ID, event.Topic, event.AggregateID, []byte(event.Payload), event.OccurredAt)
	return err
}

const listRecentDomainEvents = `SELECT id, topic, aggregate_id, payload, occurred_at
FROM domain_events ORDER BY occurred_at DESC LIMIT $1`

// Recent returns up to limit events, newest first.
func (s PGStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.DB.Query(ctx, listRecentDomainEvents, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var ev Event
		var payload []byte
		if err := row.Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &payload, &ev.OccurredAt); err != nil {
			return Event{}, err
		}
		ev.Payload = payload
		return ev, nil
	})
}
