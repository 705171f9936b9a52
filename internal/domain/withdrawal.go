package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalKind constants
const (
	WithdrawCash = "cash"
	WithdrawGold = "gold"
)

// WithdrawalStatus constants
const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

// WithdrawalRequest holds cash or gold taken out of a customer's account
// until an admin decides on it. CostBasis is the cash amount for cash
// withdrawals and the FIFO cost of the removed lots for gold.
type WithdrawalRequest struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      string          `json:"kind"`
	GoldType  GoldType        `json:"gold_type,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	Status    string          `json:"status"`
	Note      string          `json:"note,omitempty"`
	DecidedBy *uuid.UUID      `json:"decided_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	DecidedAt *time.Time      `json:"decided_at,omitempty"`
}

// WithdrawalInput is the customer payload
type WithdrawalInput struct {
	Kind     string
	GoldType GoldType
	Amount   decimal.Decimal
}

// Validate checks the withdrawal payload
func (in WithdrawalInput) Validate() error {
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	switch in.Kind {
	case WithdrawCash:
		return CheckScale("amount", in.Amount, CashScale)
	case WithdrawGold:
		if !in.GoldType.Valid() {
			return fmt.Errorf("%w: unknown gold type %q", ErrInvalidInput, in.GoldType)
		}
		return CheckScale("amount", in.Amount, GoldScale)
	default:
		return fmt.Errorf("%w: unknown withdrawal kind %q", ErrInvalidInput, in.Kind)
	}
}

// Decide moves a pending request to approved or rejected
func (w *WithdrawalRequest) Decide(status string, adminID uuid.UUID, note string, now time.Time) error {
	if w.Status != WithdrawalPending {
		return fmt.Errorf("%w: withdrawal is %s", ErrInvalidTransition, w.Status)
	}
	if status != WithdrawalApproved && status != WithdrawalRejected {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	w.Status = status
	w.Note = note
	w.DecidedBy = &adminID
	w.DecidedAt = &now
	return nil
}

// UnitCost returns the average cost per unit of withdrawn gold
func (w *WithdrawalRequest) UnitCost() decimal.Decimal {
	if !w.Amount.IsPositive() {
		return decimal.Zero
	}
	return w.CostBasis.Div(w.Amount)
}
