package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/events"
	"github.com/noah-isme/backend-invoice/internal/pgtest"
)

func TestPGStoreAppendAndRecent(t *testing.T) {
	at := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	db := &pgtest.DB{ExecTag: pgtest.Tag("INSERT 0 1")}
	bus := &events.Bus{Store: events.PGStore{DB: db}, Now: func() time.Time { return at }}

	ev, err := bus.Emit(context.Background(), events.TopicInvoiceCreated, "inv-1", map[string]any{"grandTotal": 264})
	require.NoError(t, err)
	require.Len(t, db.Execs, 1)
	args := db.Execs[0].Args
	require.Equal(t, ev.ID, args[0])
	require.Equal(t, events.TopicInvoiceCreated, args[1])
	require.Equal(t, "inv-1", args[2])
	require.JSONEq(t, `{"grandTotal":264}`, string(args[3].([]byte)))
	require.Equal(t, at, args[4])

	db.Rows = []*pgtest.Rows{{Data: [][]any{
		{"ev-2", events.TopicInvoicePaymentRecorded, "inv-1", []byte(`{"amount":100}`), at.Add(time.Minute)},
		{"ev-1", events.TopicInvoiceCreated, "inv-1", []byte(`{"grandTotal":264}`), at},
	}}}
	recent, err := events.PGStore{DB: db}.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "ev-2", recent[0].ID)
	require.Equal(t, json.RawMessage(`{"amount":100}`), recent[0].Payload)
	require.Equal(t, 2, db.Queries[0].Args[0])
}
