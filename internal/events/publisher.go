package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	EventReferralClicked         = "affiliate.referral.clicked"
	EventCommissionAccrued       = "affiliate.commission.accrued"
	EventCommissionStatusChanged = "affiliate.commission.status_changed"
	EventWithdrawalRequested     = "affiliate.withdrawal.requested"
	EventWithdrawalStatusChanged = "affiliate.withdrawal.status_changed"
	EventPaymentMethodUpdated    = "affiliate.payment_method.updated"
)

// Publisher delivers domain events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

// Envelope wraps every published payload
type Envelope struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Emit publishes data as a JSON envelope. Events are auxiliary: failures are
// logged and never returned, so a ledger write is never undone by them.
func Emit(ctx context.Context, p Publisher, eventType, partitionKey string, data interface{}) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		log.Printf("[events] failed to encode %s: %v", eventType, err)
		return
	}
	if err := p.Publish(ctx, eventType, payload, partitionKey); err != nil {
		log.Printf("[events] failed to publish %s: %v", eventType, err)
	}
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, eventType string, payload []byte, partitionKey string) error {
	log.Printf("[events] %s key=%s %s", eventType, partitionKey, payload)
	return nil
}
