package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Ledger event types published after a write commits.
const (
	EventPaymentRecorded  = "payment.recorded"
	EventCreditNoteIssued = "credit_note.issued"
	EventStudentDeleted   = "student.deleted"
)

// LedgerEvent is the message other services receive about ledger changes.
type LedgerEvent struct {
	Type          string                 `json:"type"`
	StudentID     uint                   `json:"student_id"`
	EntityID      *uint                  `json:"entity_id,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// LedgerPublisher broadcasts committed ledger events.
type LedgerPublisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
}

type natsLedgerPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewLedgerPublisher publishes on "<subject>.<event type>". A nil connection
// yields a publisher that drops events.
func NewLedgerPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) LedgerPublisher {
	if conn == nil || subject == "" {
		return noopLedgerPublisher{}
	}
	return &natsLedgerPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "ledger_events").Logger(),
	}
}

func (p *natsLedgerPublisher) Publish(ctx context.Context, event LedgerEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = CorrelationIDFromContext(ctx)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s.%s", p.subject, event.Type)
	if err := p.conn.Publish(subject, payload); err != nil {
		return err
	}
	p.logger.Debug().Str("subject", subject).Uint("student_id", event.StudentID).Msg("ledger event published")
	return nil
}

type noopLedgerPublisher struct{}

func (noopLedgerPublisher) Publish(context.Context, LedgerEvent) error { return nil }

func publishEvent(ctx context.Context, publisher LedgerPublisher, logger zerolog.Logger, event LedgerEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish ledger event")
	}
}
