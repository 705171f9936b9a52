package http

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"goldtrade/internal/domain"
)

// LedgerUsecase is the gold ledger as seen by the handlers
type LedgerUsecase interface {
	Buy(ctx context.Context, userID uuid.UUID, req domain.TradeRequest) (*domain.TradeResult, error)
	Sell(ctx context.Context, userID uuid.UUID, req domain.TradeRequest) (*domain.TradeResult, error)
	AddStock(ctx context.Context, adminID uuid.UUID, goldType domain.GoldType, amount, purchasePrice decimal.Decimal) (*domain.StockMoveResult, error)
	AddToUser(ctx context.Context, adminID, customerID uuid.UUID, goldType domain.GoldType, cashAmount, goldPrice decimal.Decimal) (*domain.StockMoveResult, error)
	Exchange(ctx context.Context, adminID, customerID uuid.UUID, goldType domain.GoldType, amount decimal.Decimal) (*domain.StockMoveResult, error)
	JewelryExchange(ctx context.Context, adminID, customerID uuid.UUID, item string, amount decimal.Decimal) (*domain.StockMoveResult, error)
	CancelJewelryExchange(ctx context.Context, adminID, txnID uuid.UUID) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, adminID, txnID uuid.UUID) error
	Holdings(ctx context.Context, userID uuid.UUID) ([]domain.Holding, error)
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Transactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	Stock(ctx context.Context) ([]domain.StockSummary, error)
	InventoryLots(ctx context.Context, goldType domain.GoldType) (domain.Lots, error)
}

// DepositUsecase redeems transfer slips
type DepositUsecase interface {
	SubmitSlip(ctx context.Context, userID uuid.UUID, upload domain.SlipUpload) (*domain.DepositResult, error)
}

// WithdrawalUsecase handles payout requests
type WithdrawalUsecase interface {
	Request(ctx context.Context, userID uuid.UUID, in domain.WithdrawalInput) (*domain.WithdrawalRequest, error)
	Approve(ctx context.Context, adminID, id uuid.UUID, note string) (*domain.WithdrawalRequest, error)
	Reject(ctx context.Context, adminID, id uuid.UUID, note string) (*domain.WithdrawalRequest, error)
	List(ctx context.Context, filter domain.WithdrawalFilter) ([]*domain.WithdrawalRequest, error)
}

// PriceUsecase serves marked-up quotes
type PriceUsecase interface {
	Quotes(ctx context.Context) ([]domain.Quote, error)
	Markup(ctx context.Context) (domain.MarkupSettings, error)
	UpdateMarkup(ctx context.Context, markup domain.MarkupSettings) error
}
