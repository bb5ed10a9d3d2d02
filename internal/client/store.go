package client

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store persists clients.
type Store interface {
	Create(ctx context.Context, c Client) error
	Update(ctx context.Context, c Client) error
	Get(ctx context.Context, id string) (Client, error)
	// List returns clients matching query ordered by name.
	List(ctx context.Context, query string) ([]Client, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps clients in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clients: make(map[string]Client)}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, c Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
	return nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, c Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.ID]; !ok {
		return ErrNotFound
	}
	s.clients[c.ID] = c
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return Client{}, ErrNotFound
	}
	return c, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, query string) ([]Client, error) {
	s.mu.RLock()
	out := make([]Client, 0, len(s.clients))
	for _, c := range s.clients {
		if c.Matches(query) {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return ErrNotFound
	}
	delete(s.clients, id)
	return nil
}

// DBTX is the subset of pgx used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore persists clients in PostgreSQL.
type PGStore struct {
	DB DBTX
}

const clientColumns = `id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), status, created_at, updated_at`

// Create implements Store.
func (s PGStore) Create(ctx context.Context, c Client) error {
	_, err := s.DB.Exec(ctx, `INSERT INTO clients (id, name, email, phone, address, status, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, string(c.Status), c.CreatedAt, c.UpdatedAt)
	return err
}

// Update implements Store.
func (s PGStore) Update(ctx context.Context, c Client) error {
	tag, err := s.DB.Exec(ctx, `UPDATE clients SET name = $2, email = NULLIF($3, ''), phone = NULLIF($4, ''),
	address = NULLIF($5, ''), status = $6, updated_at = $7 WHERE id = $1`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, string(c.Status), c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get implements Store.
func (s PGStore) Get(ctx context.Context, id string) (Client, error) {
	c, err := scanClient(s.DB.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	return c, err
}

// List implements Store.
func (s PGStore) List(ctx context.Context, query string) ([]Client, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+clientColumns+` FROM clients
WHERE $1::text = '' OR name ILIKE '%' || $1::text || '%' OR email ILIKE '%' || $1::text || '%'
ORDER BY name, id`, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Client, error) {
		return scanClient(row)
	})
}

// Delete implements Store. Invoices keep their client name snapshot.
func (s PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	var status string
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Client{}, err
	}
	c.Status = Status(status)
	return c, nil
}
