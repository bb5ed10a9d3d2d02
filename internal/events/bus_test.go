package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/events"
)

type captureNotifier struct {
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitRecordsAndNotifies(t *testing.T) {
	store := events.NewMemoryStore(10)
	notifier := &captureNotifier{}
	fixed := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	bus := events.Bus{
		Store:     store,
		Notifiers: []events.Notifier{notifier},
		Now:       func() time.Time { return fixed },
	}

	event, err := bus.Emit(context.Background(), events.TopicInvoiceCreated, "inv-1", map[string]any{"number": "INV-001"})
	require.NoError(t, err)
	require.NotEmpty(t, event.ID)
	require.Equal(t, fixed, event.OccurredAt)
	require.JSONEq(t, `{"number":"INV-001"}`, string(event.Payload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	recent := store.Recent(5)
	require.Len(t, recent, 1)
	require.Equal(t, events.TopicInvoiceCreated, recent[0].Topic)
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{}
	_, err := bus.Emit(context.Background(), " ", "id", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicClientCreated, "", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicClientCreated, "c1", []byte("{not json"))
	require.Error(t, err)
}

func TestEmitOnNilBusIsNoop(t *testing.T) {
	var bus *events.Bus
	_, err := bus.Emit(context.Background(), events.TopicCompanyUpdated, "company", nil)
	require.NoError(t, err)
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	capture := &captureNotifier{}
	bus := events.Bus{Notifiers: []events.Notifier{
		events.NotifierFunc(func(context.Context, events.Event) error { return errors.New("boom") }),
		capture,
	}}
	event, err := bus.Emit(context.Background(), events.TopicInvoiceDeleted, "inv-1", nil)
	require.ErrorContains(t, err, "boom")
	require.Equal(t, "inv-1", event.AggregateID)
	require.Len(t, capture.events, 1, "later notifiers still run")
}

func TestMemoryStoreIsBounded(t *testing.T) {
	store := events.NewMemoryStore(2)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(context.Background(), events.Event{ID: id}))
	}
	recent := store.Recent(0)
	require.Len(t, recent, 2)
	require.Equal(t, "c", recent[0].ID)
	require.Equal(t, "b", recent[1].ID)
}

func TestLogNotifierWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	n := events.LogNotifier{Logger: zerolog.New(&buf)}
	require.NoError(t, n.Notify(context.Background(), events.Event{
		ID: "e1", Topic: events.TopicClientUpdated, AggregateID: "c1", Payload: json.RawMessage(`{"name":"Acme"}`),
	}))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "domain_event", line["message"])
	require.Equal(t, "client.updated", line["topic"])
}

func TestIsInvoiceTopic(t *testing.T) {
	require.True(t, events.IsInvoiceTopic(events.TopicInvoicePaymentRecorded))
	require.False(t, events.IsInvoiceTopic(events.TopicCompanyUpdated))
	require.Len(t, events.DefaultTopics(), 8)
}
