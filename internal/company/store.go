package company

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store keeps the company settings record.
type Store interface {
	// Get returns empty settings when nothing was saved.
	Get(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	Reset(ctx context.Context) error
}

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	settings Settings
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (m *MemoryStore) Get(context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

// Reset implements Store.
func (m *MemoryStore) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = Settings{}
	return nil
}

// DBTX is the subset of pgx used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps the settings as a single row of the companies table.
type PGStore struct {
	DB DBTX
}

const settingsRowID = "default"

// Get implements Store.
func (p PGStore) Get(ctx context.Context) (Settings, error) {
	var s Settings
	err := p.DB.QueryRow(ctx, `SELECT name, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(email, ''),
	COALESCE(logo, ''), COALESCE(bank_account_info, ''), updated_at
FROM companies WHERE id = $1`, settingsRowID).
		Scan(&s.Name, &s.Address, &s.Phone, &s.Email, &s.Logo, &s.BankAccountInfo, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, nil
	}
	return s, err
}

// Save implements Store.
func (p PGStore) Save(ctx context.Context, s Settings) error {
	_, err := p.DB.Exec(ctx, `INSERT INTO companies (id, name, address, phone, email, logo, bank_account_info, updated_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, address = EXCLUDED.address, phone = EXCLUDED.phone, email = EXCLUDED.email,
	logo = EXCLUDED.logo, bank_account_info = EXCLUDED.bank_account_info, updated_at = EXCLUDED.updated_at`,
		settingsRowID, s.Name, s.Address, s.Phone, s.Email, s.Logo, s.BankAccountInfo, s.UpdatedAt)
	return err
}

// Reset implements Store.
func (p PGStore) Reset(ctx context.Context) error {
	_, err := p.DB.Exec(ctx, `DELETE FROM companies WHERE id = $1`, settingsRowID)
	return err
}
