package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type recordingPublisher struct {
	eventType string
	key       string
	payload   []byte
	err       error
}

func (r *recordingPublisher) Publish(_ context.Context, eventType string, payload []byte, key string) error {
	r.eventType = eventType
	r.key = key
	r.payload = payload
	return r.err
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	p := &recordingPublisher{}
	Emit(context.Background(), p, EventWithdrawalRequested, "affiliate:7", map[string]int{"withdrawal_id": 3})

	if p.eventType != EventWithdrawalRequested || p.key != "affiliate:7" {
		t.Fatalf("unexpected publish call: %s %s", p.eventType, p.key)
	}
	var env struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]int `json:"data"`
	}
	if err := json.Unmarshal(p.payload, &env); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if env.EventID == "" || env.EventType != EventWithdrawalRequested || env.Data["withdrawal_id"] != 3 {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	p := &recordingPublisher{err: errors.New("broker down")}
	// Must not panic or propagate
	Emit(context.Background(), p, EventCommissionAccrued, "k", nil)
	Emit(context.Background(), nil, EventCommissionAccrued, "k", nil)
}
