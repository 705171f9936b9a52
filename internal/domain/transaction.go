package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the tag of a TransactionKind
type TransactionType string

// TransactionType constants
const (
	TxnBuy             TransactionType = "buy"
	TxnSell            TransactionType = "sell"
	TxnExchange        TransactionType = "exchange"
	TxnJewelryExchange TransactionType = "jewelry_exchange"
	TxnCancelled       TransactionType = "cancelled"
	TxnRestock         TransactionType = "restock"
	TxnWithdraw        TransactionType = "withdraw"
)

// TransactionKind is a tagged variant. JewelryItem is set for jewelry
// exchanges (and kept after cancellation), Original only for cancelled rows.
type TransactionKind struct {
	Type        TransactionType
	JewelryItem string
	Original    TransactionType
}

// Buy returns the kind of a purchase
func Buy() TransactionKind { return TransactionKind{Type: TxnBuy} }

// Sell returns the kind of a sale
func Sell() TransactionKind { return TransactionKind{Type: TxnSell} }

// Exchange returns the kind of a customer-to-inventory exchange
func Exchange() TransactionKind { return TransactionKind{Type: TxnExchange} }

// Restock returns the kind of an inventory addition
func Restock() TransactionKind { return TransactionKind{Type: TxnRestock} }

// Withdraw returns the kind of a physical gold withdrawal
func Withdraw() TransactionKind { return TransactionKind{Type: TxnWithdraw} }

// JewelryExchange returns the kind of a bullion-for-jewelry trade
func JewelryExchange(item string) TransactionKind {
	return TransactionKind{Type: TxnJewelryExchange, JewelryItem: item}
}

// Cancellable reports whether the kind may move to cancelled
func (k TransactionKind) Cancellable() bool {
	return k.Type == TxnJewelryExchange
}

// Cancelled returns the terminal kind that replaces k
func (k TransactionKind) Cancelled() (TransactionKind, error) {
	if !k.Cancellable() {
		return TransactionKind{}, fmt.Errorf("%w: cannot cancel %s", ErrInvalidTransition, k.Type)
	}
	return TransactionKind{Type: TxnCancelled, JewelryItem: k.JewelryItem, Original: k.Type}, nil
}

func (k TransactionKind) String() string {
	switch k.Type {
	case TxnJewelryExchange:
		return fmt.Sprintf("%s(%s)", k.Type, k.JewelryItem)
	case TxnCancelled:
		return fmt.Sprintf("%s(%s)", k.Type, k.Original)
	default:
		return string(k.Type)
	}
}

// MarshalJSON flattens the variant for API clients
func (k TransactionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        TransactionType `json:"type"`
		JewelryItem string          `json:"jewelry_item,omitempty"`
		Original    TransactionType `json:"original,omitempty"`
	}{k.Type, k.JewelryItem, k.Original})
}

// Transaction is an immutable ledger entry. Only a jewelry exchange can
// change afterwards, and only into its cancelled form.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	GoldType     GoldType        `json:"gold_type"`
	Kind         TransactionKind `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewTransaction creates a ledger entry
func NewTransaction(userID uuid.UUID, goldType GoldType, kind TransactionKind, amount, pricePerUnit, totalPrice decimal.Decimal, now time.Time) *Transaction {
	return &Transaction{
		ID:           uuid.New(),
		UserID:       userID,
		GoldType:     goldType,
		Kind:         kind,
		Amount:       amount,
		PricePerUnit: pricePerUnit,
		TotalPrice:   totalPrice,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Cancel moves a jewelry exchange to its terminal cancelled state
func (t *Transaction) Cancel(now time.Time) error {
	kind, err := t.Kind.Cancelled()
	if err != nil {
		return err
	}
	t.Kind = kind
	t.UpdatedAt = now
	return nil
}

// TradeRequest is the customer buy/sell payload
type TradeRequest struct {
	GoldType     GoldType
	Amount       decimal.Decimal
	PricePerUnit decimal.Decimal
	TotalPrice   decimal.Decimal
}

// Validate checks the request fields
func (r TradeRequest) Validate() error {
	if !r.GoldType.Valid() {
		return fmt.Errorf("%w: unknown gold type %q", ErrInvalidInput, r.GoldType)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if r.PricePerUnit.IsNegative() || r.TotalPrice.IsNegative() {
		return fmt.Errorf("%w: prices must not be negative", ErrInvalidInput)
	}
	if err := CheckScale("amount", r.Amount, GoldScale); err != nil {
		return err
	}
	if err := CheckScale("pricePerUnit", r.PricePerUnit, CashScale); err != nil {
		return err
	}
	return CheckScale("totalPrice", r.TotalPrice, CashScale)
}

// TradeResult is returned by buy and sell
type TradeResult struct {
	TransactionID     uuid.UUID       `json:"transaction_id"`
	Balance           decimal.Decimal `json:"balance"`
	GoldAmount        decimal.Decimal `json:"goldAmount"`
	AverageCost       decimal.Decimal `json:"averageCost"`
	TotalCost         decimal.Decimal `json:"totalCost"`
	PreviousAvgCost   decimal.Decimal `json:"previousAvgCost"`
	PreviousTotalCost decimal.Decimal `json:"previousTotalCost"`
	ProfitLoss        decimal.Decimal `json:"profitLoss"`
	AvailableStock    decimal.Decimal `json:"availableStock"`
}

// StockMoveResult is returned by the admin stock operations
type StockMoveResult struct {
	TransactionID  uuid.UUID       `json:"transaction_id"`
	GoldType       GoldType        `json:"gold_type"`
	Amount         decimal.Decimal `json:"amount"`
	CustomerGold   decimal.Decimal `json:"customer_gold"`
	AverageCost    decimal.Decimal `json:"average_cost"`
	AvailableStock decimal.Decimal `json:"available_stock"`
}
