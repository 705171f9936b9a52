package http

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"goldtrade/internal/domain"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Buy(ctx context.Context, userID uuid.UUID, req domain.TradeRequest) (*domain.TradeResult, error) {
	args := m.Called(ctx, userID, req)
	r, _ := args.Get(0).(*domain.TradeResult)
	return r, args.Error(1)
}

func (m *MockLedger) Sell(ctx context.Context, userID uuid.UUID, req domain.TradeRequest) (*domain.TradeResult, error) {
	args := m.Called(ctx, userID, req)
	r, _ := args.Get(0).(*domain.TradeResult)
	return r, args.Error(1)
}

func (m *MockLedger) AddStock(ctx context.Context, adminID uuid.UUID, goldType domain.GoldType, amount, purchasePrice decimal.Decimal) (*domain.StockMoveResult, error) {
	args := m.Called(ctx, adminID, goldType, amount, purchasePrice)
	r, _ := args.Get(0).(*domain.StockMoveResult)
	return r, args.Error(1)
}

func (m *MockLedger) AddToUser(ctx context.Context, adminID, customerID uuid.UUID, goldType domain.GoldType, cashAmount, goldPrice decimal.Decimal) (*domain.StockMoveResult, error) {
	args := m.Called(ctx, adminID, customerID, goldType, cashAmount, goldPrice)
	r, _ := args.Get(0).(*domain.StockMoveResult)
	return r, args.Error(1)
}

func (m *MockLedger) Exchange(ctx context.Context, adminID, customerID uuid.UUID, goldType domain.GoldType, amount decimal.Decimal) (*domain.StockMoveResult, error) {
	args := m.Called(ctx, adminID, customerID, goldType, amount)
	r, _ := args.Get(0).(*domain.StockMoveResult)
	return r, args.Error(1)
}

func (m *MockLedger) JewelryExchange(ctx context.Context, adminID, customerID uuid.UUID, item string, amount decimal.Decimal) (*domain.StockMoveResult, error) {
	args := m.Called(ctx, adminID, customerID, item, amount)
	r, _ := args.Get(0).(*domain.StockMoveResult)
	return r, args.Error(1)
}

func (m *MockLedger) CancelJewelryExchange(ctx context.Context, adminID, txnID uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, adminID, txnID)
	r, _ := args.Get(0).(*domain.Transaction)
	return r, args.Error(1)
}

func (m *MockLedger) DeleteTransaction(ctx context.Context, adminID, txnID uuid.UUID) error {
	return m.Called(ctx, adminID, txnID).Error(0)
}

func (m *MockLedger) Holdings(ctx context.Context, userID uuid.UUID) ([]domain.Holding, error) {
	args := m.Called(ctx, userID)
	r, _ := args.Get(0).([]domain.Holding)
	return r, args.Error(1)
}

func (m *MockLedger) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedger) Transactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	args := m.Called(ctx, filter)
	r, _ := args.Get(0).([]*domain.Transaction)
	return r, args.Error(1)
}

func (m *MockLedger) Stock(ctx context.Context) ([]domain.StockSummary, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).([]domain.StockSummary)
	return r, args.Error(1)
}

func (m *MockLedger) InventoryLots(ctx context.Context, goldType domain.GoldType) (domain.Lots, error) {
	args := m.Called(ctx, goldType)
	r, _ := args.Get(0).(domain.Lots)
	return r, args.Error(1)
}

type MockDeposits struct {
	mock.Mock
}

func (m *MockDeposits) SubmitSlip(ctx context.Context, userID uuid.UUID, upload domain.SlipUpload) (*domain.DepositResult, error) {
	args := m.Called(ctx, userID, upload)
	r, _ := args.Get(0).(*domain.DepositResult)
	return r, args.Error(1)
}

type MockWithdrawals struct {
	mock.Mock
}

func (m *MockWithdrawals) Request(ctx context.Context, userID uuid.UUID, in domain.WithdrawalInput) (*domain.WithdrawalRequest, error) {
	args := m.Called(ctx, userID, in)
	r, _ := args.Get(0).(*domain.WithdrawalRequest)
	return r, args.Error(1)
}

func (m *MockWithdrawals) Approve(ctx context.Context, adminID, id uuid.UUID, note string) (*domain.WithdrawalRequest, error) {
	args := m.Called(ctx, adminID, id, note)
	r, _ := args.Get(0).(*domain.WithdrawalRequest)
	return r, args.Error(1)
}

func (m *MockWithdrawals) Reject(ctx context.Context, adminID, id uuid.UUID, note string) (*domain.WithdrawalRequest, error) {
	args := m.Called(ctx, adminID, id, note)
	r, _ := args.Get(0).(*domain.WithdrawalRequest)
	return r, args.Error(1)
}

func (m *MockWithdrawals) List(ctx context.Context, filter domain.WithdrawalFilter) ([]*domain.WithdrawalRequest, error) {
	args := m.Called(ctx, filter)
	r, _ := args.Get(0).([]*domain.WithdrawalRequest)
	return r, args.Error(1)
}
