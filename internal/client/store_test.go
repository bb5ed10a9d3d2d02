package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-invoice/internal/pgtest"
)

var pgStamp = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func TestPGStoreGetAndList(t *testing.T) {
	db := &pgtest.DB{Row: pgtest.Row{Values: []any{"c-1", "Acme Corporation", "contact@acme.com", "", "", "active", pgStamp, pgStamp}}}
	c, err := PGStore{DB: db}.Get(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Name != "Acme Corporation" || c.Status != StatusActive || !c.CreatedAt.Equal(pgStamp) {
		t.Fatalf("unexpected client %+v", c)
	}

	db = &pgtest.DB{Row: pgtest.Row{Err: pgx.ErrNoRows}}
	if _, err := (PGStore{DB: db}).Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rows := &pgtest.Rows{Data: [][]any{
		{"c-1", "Acme Corporation", "contact@acme.com", "", "", "active", pgStamp, pgStamp},
		{"c-2", "Startup Innovations", "", "", "", "inactive", pgStamp, pgStamp},
	}}
	db = &pgtest.DB{Rows: []*pgtest.Rows{rows}}
	list, err := PGStore{DB: db}.List(context.Background(), "acme")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[1].Status != StatusInactive {
		t.Fatalf("unexpected list %+v", list)
	}
	if !rows.Closed {
		t.Fatal("expected rows to be closed")
	}
	if db.Queries[0].Args[0] != "acme" {
		t.Fatalf("unexpected search argument %v", db.Queries[0].Args)
	}
}

func TestPGStoreWritesReportMissingRows(t *testing.T) {
	db := &pgtest.DB{ExecTag: pgtest.Tag("UPDATE 0")}
	store := PGStore{DB: db}
	c := Client{ID: "c-9", Name: "Ghost", Status: StatusActive, UpdatedAt: pgStamp}
	if err := store.Update(context.Background(), c); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	db.ExecTag = pgtest.Tag("DELETE 0")
	if err := store.Delete(context.Background(), "c-9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}

	db.ExecTag = pgtest.Tag("INSERT 0 1")
	if err := store.Create(context.Background(), c); err != nil {
		t.Fatalf("create: %v", err)
	}
	args := db.Execs[len(db.Execs)-1].Args
	if args[0] != "c-9" || args[5] != "active" {
		t.Fatalf("unexpected insert args %v", args)
	}
}
