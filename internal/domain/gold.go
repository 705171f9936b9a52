package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoldType identifies a tradable gold product
type GoldType string

// GoldType constants
const (
	GoldBar      GoldType = "gold_bar"      // 96.5% bullion
	GoldOrnament GoldType = "gold_ornament" // 96.5% ornament
)

// GoldTypes lists every tradable gold type in display order
var GoldTypes = []GoldType{GoldBar, GoldOrnament}

// Valid reports whether t is a known gold type
func (t GoldType) Valid() bool {
	return t == GoldBar || t == GoldOrnament
}

// Stored precision of gold amounts and baht values
const (
	GoldScale int32 = 4
	CashScale int32 = 2
)

// CheckScale rejects values with more significant decimal places than the
// column they are stored in. Trailing zeros are allowed.
func CheckScale(field string, v decimal.Decimal, places int32) error {
	if !v.Equal(v.Round(places)) {
		return fmt.Errorf("%w: %s allows at most %d decimal places", ErrInvalidInput, field, places)
	}
	return nil
}

// Holder identifies who owns a lot: the shop inventory or a customer.
// The zero value is the inventory.
type Holder struct {
	UserID uuid.UUID
}

// InventoryHolder returns the holder of the shop's own stock
func InventoryHolder() Holder {
	return Holder{}
}

// CustomerHolder returns the holder for a customer's lots
func CustomerHolder(userID uuid.UUID) Holder {
	return Holder{UserID: userID}
}

// IsInventory reports whether the holder is the shop inventory
func (h Holder) IsInventory() bool {
	return h.UserID == uuid.Nil
}

func (h Holder) String() string {
	if h.IsInventory() {
		return "inventory"
	}
	return h.UserID.String()
}

// LotReason records which movement created a lot
type LotReason string

// LotReason constants
const (
	LotReasonBuy              LotReason = "buy"
	LotReasonAdminCredit      LotReason = "admin_credit"
	LotReasonRestock          LotReason = "restock"
	LotReasonExchange         LotReason = "exchange"
	LotReasonJewelryCancel    LotReason = "jewelry_cancel"
	LotReasonWithdrawalRefund LotReason = "withdrawal_refund"
)

// Lot is a single acquisition of gold at a specific cost basis
type Lot struct {
	ID            uuid.UUID       `json:"id"`
	Seq           int64           `json:"-"`
	Holder        Holder          `json:"-"`
	GoldType      GoldType        `json:"gold_type"`
	Amount        decimal.Decimal `json:"amount"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Reason        LotReason       `json:"reason"`
	SourceTxnID   *uuid.UUID      `json:"source_txn_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewLot creates a lot produced by the given transaction
func NewLot(holder Holder, goldType GoldType, amount, purchasePrice decimal.Decimal, reason LotReason, sourceTxnID *uuid.UUID, now time.Time) *Lot {
	return &Lot{
		ID:            uuid.New(),
		Holder:        holder,
		GoldType:      goldType,
		Amount:        amount,
		PurchasePrice: purchasePrice,
		Reason:        reason,
		SourceTxnID:   sourceTxnID,
		CreatedAt:     now,
	}
}

// Cost returns amount * purchase price
func (l *Lot) Cost() decimal.Decimal {
	return l.Amount.Mul(l.PurchasePrice)
}

// CostBasis summarizes a set of lots
type CostBasis struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	AverageCost decimal.Decimal `json:"average_cost"`
}

// Lots is a collection of lots of one holder
type Lots []*Lot

// Total returns the sum of the lot amounts, ignoring empty lots
func (ls Lots) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range ls {
		if l.Amount.IsPositive() {
			total = total.Add(l.Amount)
		}
	}
	return total
}

// CostBasis recomputes the weighted average cost from the lots.
// AverageCost is zero when there is nothing left.
func (ls Lots) CostBasis() CostBasis {
	basis := CostBasis{TotalAmount: decimal.Zero, TotalCost: decimal.Zero, AverageCost: decimal.Zero}
	for _, l := range ls {
		if !l.Amount.IsPositive() {
			continue
		}
		basis.TotalAmount = basis.TotalAmount.Add(l.Amount)
		basis.TotalCost = basis.TotalCost.Add(l.Cost())
	}
	if basis.TotalAmount.IsPositive() {
		basis.AverageCost = basis.TotalCost.Div(basis.TotalAmount)
	}
	return basis
}

// ByType groups lots per gold type
func (ls Lots) ByType() map[GoldType]Lots {
	out := make(map[GoldType]Lots)
	for _, l := range ls {
		out[l.GoldType] = append(out[l.GoldType], l)
	}
	return out
}

// Oldest returns the lots ordered oldest first. Ties on CreatedAt are broken
// by insertion sequence. The receiver is not modified.
func (ls Lots) Oldest() Lots {
	sorted := make(Lots, 0, len(ls))
	for _, l := range ls {
		if l.Amount.IsPositive() {
			sorted = append(sorted, l)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].Seq < sorted[j].Seq
	})
	return sorted
}

// LotTake is the part of a single lot removed by a consumption
type LotTake struct {
	LotID     uuid.UUID
	Taken     decimal.Decimal
	Remaining decimal.Decimal
	Price     decimal.Decimal
}

// Exhausted reports whether the lot has nothing left and must be deleted
func (t LotTake) Exhausted() bool {
	return !t.Remaining.IsPositive()
}

// Consumption is the outcome of removing gold from a holder's lots
type Consumption struct {
	Amount    decimal.Decimal
	Cost      decimal.Decimal
	Takes     []LotTake
	Remaining Lots
}

// AverageCost returns the weighted cost of the consumed gold
func (c *Consumption) AverageCost() decimal.Decimal {
	if !c.Amount.IsPositive() {
		return decimal.Zero
	}
	return c.Cost.Div(c.Amount)
}

// ConsumeFIFO plans the removal of amount from the lots, oldest first.
// The lots themselves are not modified; Remaining holds copies reflecting
// the post-consumption state.
func (ls Lots) ConsumeFIFO(amount decimal.Decimal) (*Consumption, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	available := ls.Total()
	if available.LessThan(amount) {
		return nil, fmt.Errorf("%w: available %s, requested %s", ErrInsufficientBalance, available.String(), amount.String())
	}

	c := &Consumption{Amount: amount, Cost: decimal.Zero}
	left := amount
	for _, lot := range ls.Oldest() {
		if !left.IsPositive() {
			rest := *lot
			c.Remaining = append(c.Remaining, &rest)
			continue
		}

		taken := decimal.Min(lot.Amount, left)
		remaining := lot.Amount.Sub(taken)
		left = left.Sub(taken)

		c.Cost = c.Cost.Add(taken.Mul(lot.PurchasePrice))
		c.Takes = append(c.Takes, LotTake{
			LotID:     lot.ID,
			Taken:     taken,
			Remaining: remaining,
			Price:     lot.PurchasePrice,
		})

		if remaining.IsPositive() {
			rest := *lot
			rest.Amount = remaining
			c.Remaining = append(c.Remaining, &rest)
		}
	}

	return c, nil
}

// StockSummary is the available-stock invariant for one gold type
type StockSummary struct {
	GoldType       GoldType        `json:"gold_type"`
	InventoryTotal decimal.Decimal `json:"inventory_total"`
	CustomerTotal  decimal.Decimal `json:"customer_total"`
	Available      decimal.Decimal `json:"available"`
}

// NewStockSummary derives available stock from the two aggregates
func NewStockSummary(goldType GoldType, inventory, customers decimal.Decimal) StockSummary {
	return StockSummary{
		GoldType:       goldType,
		InventoryTotal: inventory,
		CustomerTotal:  customers,
		Available:      inventory.Sub(customers),
	}
}

// Holding is a customer's position in one gold type
type Holding struct {
	GoldType GoldType `json:"gold_type"`
	CostBasis
	Lots Lots `json:"lots"`
}
