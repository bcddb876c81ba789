package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/backend-pos/internal/events"
)

// ErrPersistence wraps durable-store failures.
var ErrPersistence = errors.New("persistence failure")

// Entry is one persisted register event.
type Entry struct {
	ID         uint      `json:"id"`
	EventID    string    `json:"eventId"`
	Topic      string    `json:"topic"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    string    `json:"payload"`
}

type entryRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	EventID    string `gorm:"size:36"`
	Topic      string `gorm:"index"`
	OccurredAt time.Time
	Payload    string
}

func (entryRow) TableName() string { return "audit_entries" }

// Trail persists every emitted register event. It sits on the event bus as a
// notifier, so recording a sale and auditing it share one code path.
type Trail struct {
	DB *gorm.DB
}

// NewTrail runs schema migration and returns a Trail over the connection.
func NewTrail(db *gorm.DB) (*Trail, error) {
	if db == nil {
		return nil, errors.New("audit: db is required")
	}
	if err := db.AutoMigrate(&entryRow{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return &Trail{DB: db}, nil
}

// Notify implements events.Notifier.
func (t *Trail) Notify(ctx context.Context, event events.Event) error {
	if t == nil || t.DB == nil {
		return errors.New("audit trail not configured")
	}
	row := entryRow{
		EventID:    event.ID,
		Topic:      event.Topic,
		OccurredAt: event.OccurredAt,
		Payload:    string(event.Payload),
	}
	if err := t.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("audit event %s: %v: %w", event.ID, err, ErrPersistence)
	}
	return nil
}

// List returns entries newest first.
func (t *Trail) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if t == nil || t.DB == nil {
		return nil, errors.New("audit trail not configured")
	}
	var rows []entryRow
	err := t.DB.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %v: %w", err, ErrPersistence)
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, Entry{
			ID:         row.ID,
			EventID:    row.EventID,
			Topic:      row.Topic,
			OccurredAt: row.OccurredAt,
			Payload:    row.Payload,
		})
	}
	return out, nil
}
