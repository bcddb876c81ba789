package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/events"
)

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitFansOut(t *testing.T) {
	first := &captureNotifier{}
	second := &captureNotifier{}
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	bus := events.Bus{
		Notifiers: []events.Notifier{first, second},
		Now:       func() time.Time { return now },
		NewID:     func() string { return "evt-1" },
	}

	event, err := bus.Emit(context.Background(), events.TopicSaleRecorded, map[string]any{"saleId": "123"})
	require.NoError(t, err)
	require.Equal(t, "evt-1", event.ID)
	require.Equal(t, now, event.OccurredAt)
	require.JSONEq(t, `{"saleId":"123"}`, string(event.Payload))
	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "123", decoded["saleId"])
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := &captureNotifier{err: boom}
	ok := &captureNotifier{}
	bus := events.Bus{Notifiers: []events.Notifier{failing, ok}}

	_, err := bus.Emit(context.Background(), events.TopicHistoryCleared, nil)
	require.ErrorIs(t, err, boom)
	// The failure does not stop fan-out to the remaining notifiers.
	require.Len(t, ok.events, 1)
}

func TestEmitRequiresTopic(t *testing.T) {
	bus := events.Bus{}
	_, err := bus.Emit(context.Background(), "  ", nil)
	require.Error(t, err)
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := events.Bus{}
	_, err := bus.Emit(context.Background(), events.TopicCatalogUpdated, []byte("{not json"))
	require.Error(t, err)
}

func TestEmitEmptyPayloadBecomesObject(t *testing.T) {
	bus := events.Bus{}
	event, err := bus.Emit(context.Background(), events.TopicCatalogUpdated, "")
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(event.Payload))
}
