package dto

import (
	"github.com/shopspring/decimal"
)

// AddStockRequest restocks the shop inventory
type AddStockRequest struct {
	GoldType      string          `json:"goldType" validate:"required,oneof=gold_bar gold_ornament"`
	Amount        decimal.Decimal `json:"amount"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
}

// AddToUserRequest credits gold bought in the shop to a customer
type AddToUserRequest struct {
	UserID     string          `json:"userId" validate:"required,uuid"`
	GoldType   string          `json:"goldType" validate:"required,oneof=gold_bar gold_ornament"`
	CashAmount decimal.Decimal `json:"cashAmount"`
	GoldPrice  decimal.Decimal `json:"goldPrice"`
}

// ExchangeRequest moves customer gold into the inventory
type ExchangeRequest struct {
	UserID   string          `json:"userId" validate:"required,uuid"`
	GoldType string          `json:"goldType" validate:"required,oneof=gold_bar gold_ornament"`
	Amount   decimal.Decimal `json:"amount"`
}

// JewelryExchangeRequest trades customer bullion for a jewelry item
type JewelryExchangeRequest struct {
	UserID      string          `json:"userId" validate:"required,uuid"`
	JewelryItem string          `json:"jewelryItem" validate:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"`
}

// DecisionRequest carries an admin's note on a withdrawal decision
type DecisionRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

// TradingRequest switches customer trading
type TradingRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// DepositLimitRequest creates a deposit limit tier; zero leaves a window uncapped
type DepositLimitRequest struct {
	Name         string          `json:"name" validate:"required,max=100"`
	DailyLimit   decimal.Decimal `json:"dailyLimit"`
	MonthlyLimit decimal.Decimal `json:"monthlyLimit"`
}

// AssignLimitRequest assigns a tier to a user; empty removes it
type AssignLimitRequest struct {
	DepositLimitID string `json:"depositLimitId" validate:"omitempty,uuid"`
}
