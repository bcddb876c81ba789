package audit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/backend-pos/internal/audit"
	"github.com/noah-isme/backend-pos/internal/events"
)

func setupTrail(t *testing.T) *audit.Trail {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	trail, err := audit.NewTrail(db)
	require.NoError(t, err)
	return trail
}

func TestTrailRecordsEmittedEvents(t *testing.T) {
	trail := setupTrail(t)
	bus := &events.Bus{Notifiers: []events.Notifier{trail}}

	_, err := bus.Emit(context.Background(), events.TopicSaleRecorded, map[string]any{"saleId": "sale-1"})
	require.NoError(t, err)
	_, err = bus.Emit(context.Background(), events.TopicHistoryCleared, nil)
	require.NoError(t, err)

	entries, err := trail.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, events.TopicHistoryCleared, entries[0].Topic)
	assert.Equal(t, events.TopicSaleRecorded, entries[1].Topic)
	assert.Contains(t, entries[1].Payload, "sale-1")
	assert.NotEmpty(t, entries[1].EventID)
	assert.False(t, entries[1].OccurredAt.IsZero())
}

func TestTrailListPagination(t *testing.T) {
	trail := setupTrail(t)
	for i := 0; i < 5; i++ {
		err := trail.Notify(context.Background(), events.Event{
			ID:         "evt",
			Topic:      events.TopicCatalogUpdated,
			OccurredAt: time.Now(),
		})
		require.NoError(t, err)
	}

	page, err := trail.List(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = trail.List(context.Background(), 2, 4)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestHandlerList(t *testing.T) {
	trail := setupTrail(t)
	require.NoError(t, trail.Notify(context.Background(), events.Event{
		ID:         "evt-1",
		Topic:      events.TopicSaleRecorded,
		OccurredAt: time.Now(),
	}))

	h := audit.Handler{Trail: trail}
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/audit?limit=25", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Data []audit.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "evt-1", envelope.Data[0].EventID)
}
