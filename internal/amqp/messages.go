package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"financeiro/internal/core"
)

// Event types published on ledger changes.
const (
	EventTransactionCreated = "transaction.created"
	EventLedgerReset        = "ledger.reset"
)

// LedgerEvent describes one ledger mutation. Transaction is set only for
// transaction.created events.
type LedgerEvent struct {
	Type        string            `json:"type"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewTransactionCreatedEvent creates the event for a newly added transaction
func NewTransactionCreatedEvent(t core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Type:        EventTransactionCreated,
		Transaction: &t,
		Timestamp:   time.Now(),
	}
}

// NewLedgerResetEvent creates the event emitted after the ledger is cleared
func NewLedgerResetEvent() *LedgerEvent {
	return &LedgerEvent{
		Type:      EventLedgerReset,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventTransactionCreated:
		if e.Transaction == nil {
			return nil, fmt.Errorf("%s event without transaction", e.Type)
		}
		if err := e.Transaction.Validate(); err != nil {
			return nil, fmt.Errorf("%s event: %w", e.Type, err)
		}
	case EventLedgerReset:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return &e, nil
}
