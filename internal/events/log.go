package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes every emitted event to the structured log. It is the
// default downstream of the bus; exporters and audit sinks implement the same
// interface.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, event Event) error {
	n.Logger.Info().
		Str("event_id", event.ID).
		Str("topic", event.Topic).
		Time("occurred_at", event.OccurredAt).
		RawJSON("payload", payloadOrNull(event.Payload)).
		Msg("event emitted")
	return nil
}

func payloadOrNull(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
