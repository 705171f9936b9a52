package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SlipVerifier decodes a bank-transfer slip through the verification API
type SlipVerifier interface {
	Verify(ctx context.Context, slip SlipUpload) (*SlipDetails, error)
}

// QuoteCache keeps the latest customer quotes. Get returns ErrNotFound on a miss.
type QuoteCache interface {
	Get(ctx context.Context) ([]Quote, error)
	Set(ctx context.Context, quotes []Quote) error
}

// Event names published on the realtime channel
const (
	EventTransaction         = "transaction"
	EventExchange            = "exchange"
	EventAddToUser           = "add-to-user"
	EventTransactionCanceled = "transaction-canceled"
	EventTransactionDeleted  = "transaction-deleted"
	EventWithdrawal          = "withdrawal"
	EventDeposit             = "deposit"
)

// LedgerEvent describes a committed ledger mutation
type LedgerEvent struct {
	Name     string
	Type     string
	UserID   uuid.UUID
	ActorID  uuid.UUID
	GoldType GoldType
	Amount   decimal.Decimal
	Total    decimal.Decimal
	Detail   string
	At       time.Time
}

// RealtimeEvent is the payload dashboards receive. It carries no ledger data;
// clients re-query the API after receiving one.
type RealtimeEvent struct {
	Event     string    `json:"event"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Realtime strips a ledger event down to its broadcast form
func (e LedgerEvent) Realtime() RealtimeEvent {
	return RealtimeEvent{Event: e.Name, Type: e.Type, Timestamp: e.At}
}

// EventSink receives ledger events after commit. Emit must not block.
type EventSink interface {
	Emit(evt LedgerEvent)
}

// NotificationChannel delivers a human-readable message for an event
type NotificationChannel interface {
	Name() string
	Notify(ctx context.Context, evt LedgerEvent) error
}

// EventPublisher broadcasts realtime events to connected dashboards
type EventPublisher interface {
	Publish(ctx context.Context, evt RealtimeEvent) error
	Subscribe(ctx context.Context) (<-chan RealtimeEvent, func(), error)
}
