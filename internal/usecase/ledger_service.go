package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"goldtrade/internal/domain"
	"goldtrade/internal/metrics"
)

// LedgerConfig holds the product switches of the ledger
type LedgerConfig struct {
	// AllowNegativeBalance lets a buy debit more cash than the user holds
	AllowNegativeBalance bool
	// EnforceStock rejects buys and admin credits that would push the
	// available stock below zero
	EnforceStock bool
}

// LedgerService handles the gold ledger: customer trades and admin stock moves
type LedgerService struct {
	store   domain.LedgerStore
	users   domain.UserRepository
	events  domain.EventSink
	metrics *metrics.LedgerMetrics
	log     *zap.Logger
	cfg     LedgerConfig
	now     func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	store domain.LedgerStore,
	users domain.UserRepository,
	events domain.EventSink,
	m *metrics.LedgerMetrics,
	log *zap.Logger,
	cfg LedgerConfig,
) *LedgerService {
	return &LedgerService{
		store:   store,
		users:   users,
		events:  events,
		metrics: m,
		log:     log.Named("ledger"),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Buy debits the user's cash and records a new lot at the given price
func (s *LedgerService) Buy(ctx context.Context, userID uuid.UUID, req domain.TradeRequest) (*domain.TradeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var res *domain.TradeResult
	err := s.run(ctx, "buy", func(tx domain.LedgerTx) error {
		balance, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.checkStock(ctx, tx, req.GoldType, req.Amount); err != nil {
			return err
		}
		if !s.cfg.AllowNegativeBalance && balance.LessThan(req.TotalPrice) {
			return fmt.Errorf("%w: balance %s, required %s", domain.ErrInsufficientBalance, balance, req.TotalPrice)
		}

		now := s.now()
		balance = balance.Sub(req.TotalPrice)
		if err := tx.SetBalance(ctx, userID, balance); err != nil {
			return err
		}

		txn := domain.NewTransaction(userID, req.GoldType, domain.Buy(), req.Amount, req.PricePerUnit, req.TotalPrice, now)
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		lot := domain.NewLot(domain.CustomerHolder(userID), req.GoldType, req.Amount, req.PricePerUnit, domain.LotReasonBuy, &txn.ID, now)
		if err := tx.InsertLot(ctx, lot); err != nil {
			return err
		}

		lots, err := tx.Lots(ctx, domain.CustomerHolder(userID), req.GoldType)
		if err != nil {
			return err
		}
		stock, err := tx.StockSummary(ctx, req.GoldType)
		if err != nil {
			return err
		}

		basis := lots.CostBasis()
		res = &domain.TradeResult{
			TransactionID:  txn.ID,
			Balance:        balance,
			GoldAmount:     basis.TotalAmount,
			AverageCost:    basis.AverageCost,
			TotalCost:      basis.TotalCost,
			AvailableStock: stock.Available,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to buy gold: %w", err)
	}

	s.recordMove("buy", req.GoldType, req.Amount, res.AvailableStock)
	s.emit(domain.LedgerEvent{
		Name: domain.EventTransaction, Type: string(domain.TxnBuy), UserID: userID,
		GoldType: req.GoldType, Amount: req.Amount, Total: req.TotalPrice,
	})
	return res, nil
}

// Sell consumes the user's lots oldest first and credits the proceeds.
// Profit/loss is measured against the average cost before the sale.
func (s *LedgerService) Sell(ctx context.Context, userID uuid.UUID, req domain.TradeRequest) (*domain.TradeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var res *domain.TradeResult
	err := s.run(ctx, "sell", func(tx domain.LedgerTx) error {
		balance, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		lots, err := tx.Lots(ctx, domain.CustomerHolder(userID), req.GoldType)
		if err != nil {
			return err
		}
		before := lots.CostBasis()

		consumed, err := lots.ConsumeFIFO(req.Amount)
		if err != nil {
			return err
		}
		if err := applyConsumption(ctx, tx, consumed); err != nil {
			return err
		}

		balance = balance.Add(req.TotalPrice)
		if err := tx.SetBalance(ctx, userID, balance); err != nil {
			return err
		}

		txn := domain.NewTransaction(userID, req.GoldType, domain.Sell(), req.Amount, req.PricePerUnit, req.TotalPrice, s.now())
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		stock, err := tx.StockSummary(ctx, req.GoldType)
		if err != nil {
			return err
		}

		after := consumed.Remaining.CostBasis()
		res = &domain.TradeResult{
			TransactionID:     txn.ID,
			Balance:           balance,
			GoldAmount:        after.TotalAmount,
			AverageCost:       after.AverageCost,
			TotalCost:         after.TotalCost,
			PreviousAvgCost:   before.AverageCost,
			PreviousTotalCost: before.TotalCost,
			ProfitLoss:        req.TotalPrice.Sub(req.Amount.Mul(before.AverageCost)),
			AvailableStock:    stock.Available,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sell gold: %w", err)
	}

	s.recordMove("sell", req.GoldType, req.Amount, res.AvailableStock)
	s.emit(domain.LedgerEvent{
		Name: domain.EventTransaction, Type: string(domain.TxnSell), UserID: userID,
		GoldType: req.GoldType, Amount: req.Amount, Total: req.TotalPrice,
	})
	return res, nil
}

// AddStock adds a lot to the shop inventory
func (s *LedgerService) AddStock(ctx context.Context, adminID uuid.UUID, goldType domain.GoldType, amount, purchasePrice decimal.Decimal) (*domain.StockMoveResult, error) {
	if err := validateMove(goldType, amount); err != nil {
		return nil, err
	}
	if purchasePrice.IsNegative() {
		return nil, fmt.Errorf("%w: purchase price must not be negative", domain.ErrInvalidInput)
	}
	if err := domain.CheckScale("purchasePrice", purchasePrice, domain.CashScale); err != nil {
		return nil, err
	}

	var res *domain.StockMoveResult
	err := s.run(ctx, "add_stock", func(tx domain.LedgerTx) error {
		if err := tx.LockInventory(ctx); err != nil {
			return err
		}

		now := s.now()
		txn := domain.NewTransaction(adminID, goldType, domain.Restock(), amount, purchasePrice, amount.Mul(purchasePrice), now)
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		lot := domain.NewLot(domain.InventoryHolder(), goldType, amount, purchasePrice, domain.LotReasonRestock, &txn.ID, now)
		if err := tx.InsertLot(ctx, lot); err != nil {
			return err
		}

		inventory, err := tx.Lots(ctx, domain.InventoryHolder(), goldType)
		if err != nil {
			return err
		}
		stock, err := tx.StockSummary(ctx, goldType)
		if err != nil {
			return err
		}

		res = &domain.StockMoveResult{
			TransactionID:  txn.ID,
			GoldType:       goldType,
			Amount:         amount,
			AverageCost:    inventory.CostBasis().AverageCost,
			AvailableStock: stock.Available,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add stock: %w", err)
	}

	s.recordMove("add_stock", goldType, amount, res.AvailableStock)
	s.emit(domain.LedgerEvent{
		Name: domain.EventTransaction, Type: string(domain.TxnRestock), ActorID: adminID,
		GoldType: goldType, Amount: amount, Total: amount.Mul(purchasePrice),
	})
	return res, nil
}

// AddToUser credits a customer with cashAmount / goldPrice of gold, as if the
// customer had bought it. The inventory is not debited.
func (s *LedgerService) AddToUser(ctx context.Context, adminID, customerID uuid.UUID, goldType domain.GoldType, cashAmount, goldPrice decimal.Decimal) (*domain.StockMoveResult, error) {
	if !goldType.Valid() {
		return nil, fmt.Errorf("%w: unknown gold type %q", domain.ErrInvalidInput, goldType)
	}
	if !cashAmount.IsPositive() || !goldPrice.IsPositive() {
		return nil, fmt.Errorf("%w: amount and gold price must be positive", domain.ErrInvalidInput)
	}
	if err := domain.CheckScale("amount", cashAmount, domain.CashScale); err != nil {
		return nil, err
	}
	if err := domain.CheckScale("goldPrice", goldPrice, domain.CashScale); err != nil {
		return nil, err
	}

	// Stored amounts keep four places; rounding down never credits more
	// gold than was paid for.
	goldAmount := cashAmount.Div(goldPrice).RoundDown(domain.GoldScale)
	if !goldAmount.IsPositive() {
		return nil, fmt.Errorf("%w: amount buys less than %s of gold", domain.ErrInvalidInput, decimal.New(1, -domain.GoldScale))
	}
	if err := s.ensureCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	var res *domain.StockMoveResult
	err := s.run(ctx, "add_to_user", func(tx domain.LedgerTx) error {
		if _, err := tx.LockUser(ctx, customerID); err != nil {
			return err
		}
		if err := s.checkStock(ctx, tx, goldType, goldAmount); err != nil {
			return err
		}

		now := s.now()
		txn := domain.NewTransaction(customerID, goldType, domain.Buy(), goldAmount, goldPrice, cashAmount, now)
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		lot := domain.NewLot(domain.CustomerHolder(customerID), goldType, goldAmount, goldPrice, domain.LotReasonAdminCredit, &txn.ID, now)
		if err := tx.InsertLot(ctx, lot); err != nil {
			return err
		}

		var err error
		res, err = s.customerMoveResult(ctx, tx, customerID, goldType, txn)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add gold to user: %w", err)
	}

	s.recordMove("add_to_user", goldType, goldAmount, res.AvailableStock)
	s.emit(domain.LedgerEvent{
		Name: domain.EventAddToUser, Type: string(domain.TxnBuy), UserID: customerID, ActorID: adminID,
		GoldType: goldType, Amount: goldAmount, Total: cashAmount,
	})
	return res, nil
}

// Exchange moves gold from a customer into the shop inventory at the
// average cost of the consumed customer lots
func (s *LedgerService) Exchange(ctx context.Context, adminID, customerID uuid.UUID, goldType domain.GoldType, amount decimal.Decimal) (*domain.StockMoveResult, error) {
	if err := validateMove(goldType, amount); err != nil {
		return nil, err
	}
	if err := s.ensureCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	var res *domain.StockMoveResult
	err := s.run(ctx, "exchange", func(tx domain.LedgerTx) error {
		if _, err := tx.LockUser(ctx, customerID); err != nil {
			return err
		}
		if err := tx.LockInventory(ctx); err != nil {
			return err
		}

		inventory, err := tx.Lots(ctx, domain.InventoryHolder(), goldType)
		if err != nil {
			return err
		}
		if held := inventory.Total(); held.LessThan(amount) {
			return fmt.Errorf("%w: inventory holds %s, requested %s", domain.ErrInsufficientGoldStock, held, amount)
		}

		lots, err := tx.Lots(ctx, domain.CustomerHolder(customerID), goldType)
		if err != nil {
			return err
		}
		consumed, err := lots.ConsumeFIFO(amount)
		if err != nil {
			return err
		}
		if err := applyConsumption(ctx, tx, consumed); err != nil {
			return err
		}

		now := s.now()
		unitCost := consumed.AverageCost()
		txn := domain.NewTransaction(customerID, goldType, domain.Exchange(), amount, unitCost, consumed.Cost, now)
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		lot := domain.NewLot(domain.InventoryHolder(), goldType, amount, unitCost, domain.LotReasonExchange, &txn.ID, now)
		if err := tx.InsertLot(ctx, lot); err != nil {
			return err
		}

		res, err = s.customerMoveResult(ctx, tx, customerID, goldType, txn)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to exchange gold: %w", err)
	}

	s.recordMove("exchange", goldType, amount, res.AvailableStock)
	s.emit(domain.LedgerEvent{
		Name: domain.EventExchange, Type: string(domain.TxnExchange), UserID: customerID, ActorID: adminID,
		GoldType: goldType, Amount: amount,
	})
	return res, nil
}

// JewelryExchange trades a customer's bullion for a named jewelry item.
// The bullion leaves the ledger; the inventory is not credited.
func (s *LedgerService) JewelryExchange(ctx context.Context, adminID, customerID uuid.UUID, item string, amount decimal.Decimal) (*domain.StockMoveResult, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, fmt.Errorf("%w: jewelry item is required", domain.ErrInvalidInput)
	}
	if err := validateMove(domain.GoldBar, amount); err != nil {
		return nil, err
	}
	if err := s.ensureCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	var res *domain.StockMoveResult
	err := s.run(ctx, "jewelry_exchange", func(tx domain.LedgerTx) error {
		if _, err := tx.LockUser(ctx, customerID); err != nil {
			return err
		}

		lots, err := tx.Lots(ctx, domain.CustomerHolder(customerID), domain.GoldBar)
		if err != nil {
			return err
		}
		consumed, err := lots.ConsumeFIFO(amount)
		if err != nil {
			return err
		}
		if err := applyConsumption(ctx, tx, consumed); err != nil {
			return err
		}

		txn := domain.NewTransaction(customerID, domain.GoldBar, domain.JewelryExchange(item), amount, consumed.AverageCost(), consumed.Cost, s.now())
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		res, err = s.customerMoveResult(ctx, tx, customerID, domain.GoldBar, txn)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to exchange jewelry: %w", err)
	}

	s.recordMove("jewelry_exchange", domain.GoldBar, amount, res.AvailableStock)
	s.emit(domain.LedgerEvent{
		Name: domain.EventTransaction, Type: string(domain.TxnJewelryExchange), UserID: customerID, ActorID: adminID,
		GoldType: domain.GoldBar, Amount: amount, Detail: item,
	})
	return res, nil
}

// CancelJewelryExchange reverses a jewelry exchange. The bullion goes back
// onto the customer's oldest lot, or onto a new zero-cost lot when none is left.
func (s *LedgerService) CancelJewelryExchange(ctx context.Context, adminID, txnID uuid.UUID) (*domain.Transaction, error) {
	var cancelled *domain.Transaction
	err := s.run(ctx, "cancel_jewelry_exchange", func(tx domain.LedgerTx) error {
		txn, err := tx.GetTransaction(ctx, txnID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := txn.Cancel(now); err != nil {
			return err
		}
		if _, err := tx.LockUser(ctx, txn.UserID); err != nil {
			return err
		}

		holder := domain.CustomerHolder(txn.UserID)
		lots, err := tx.Lots(ctx, holder, txn.GoldType)
		if err != nil {
			return err
		}
		if oldest := lots.Oldest(); len(oldest) > 0 {
			if err := tx.UpdateLotAmount(ctx, oldest[0].ID, oldest[0].Amount.Add(txn.Amount)); err != nil {
				return err
			}
		} else {
			lot := domain.NewLot(holder, txn.GoldType, txn.Amount, decimal.Zero, domain.LotReasonJewelryCancel, &txn.ID, now)
			if err := tx.InsertLot(ctx, lot); err != nil {
				return err
			}
		}

		if err := tx.UpdateTransaction(ctx, txn); err != nil {
			return err
		}
		cancelled = txn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel jewelry exchange: %w", err)
	}

	s.emit(domain.LedgerEvent{
		Name: domain.EventTransactionCanceled, Type: string(domain.TxnCancelled), UserID: cancelled.UserID, ActorID: adminID,
		GoldType: cancelled.GoldType, Amount: cancelled.Amount, Detail: cancelled.Kind.JewelryItem,
	})
	return cancelled, nil
}

// DeleteTransaction removes a jewelry exchange record. The customer's gold
// is not restored.
func (s *LedgerService) DeleteTransaction(ctx context.Context, adminID, txnID uuid.UUID) error {
	var deleted *domain.Transaction
	err := s.run(ctx, "delete_transaction", func(tx domain.LedgerTx) error {
		txn, err := tx.GetTransaction(ctx, txnID)
		if err != nil {
			return err
		}
		if txn.Kind.Type != domain.TxnJewelryExchange {
			return fmt.Errorf("%w: cannot delete %s transaction", domain.ErrInvalidTransition, txn.Kind.Type)
		}
		if err := tx.DeleteTransaction(ctx, txn.ID); err != nil {
			return err
		}
		deleted = txn
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	s.emit(domain.LedgerEvent{
		Name: domain.EventTransactionDeleted, Type: string(deleted.Kind.Type), UserID: deleted.UserID, ActorID: adminID,
		GoldType: deleted.GoldType, Amount: deleted.Amount, Detail: deleted.Kind.JewelryItem,
	})
	return nil
}

// Holdings returns the customer's position per gold type
func (s *LedgerService) Holdings(ctx context.Context, userID uuid.UUID) ([]domain.Holding, error) {
	lots, err := s.store.ListLots(ctx, domain.CustomerHolder(userID), "")
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	byType := lots.ByType()
	holdings := make([]domain.Holding, 0, len(byType))
	for _, t := range domain.GoldTypes {
		typed, ok := byType[t]
		if !ok {
			continue
		}
		oldest := typed.Oldest()
		holdings = append(holdings, domain.Holding{GoldType: t, CostBasis: oldest.CostBasis(), Lots: oldest})
	}
	return holdings, nil
}

// Balance returns the user's cash balance
func (s *LedgerService) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return s.store.Balance(ctx, userID)
}

// Transactions lists ledger entries
func (s *LedgerService) Transactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.store.ListTransactions(ctx, filter)
}

// Stock returns the available stock of every gold type
func (s *LedgerService) Stock(ctx context.Context) ([]domain.StockSummary, error) {
	summaries, err := s.store.StockSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize stock: %w", err)
	}
	return summaries, nil
}

// InventoryLots returns the shop's lots of one gold type, oldest first
func (s *LedgerService) InventoryLots(ctx context.Context, goldType domain.GoldType) (domain.Lots, error) {
	lots, err := s.store.ListLots(ctx, domain.InventoryHolder(), goldType)
	if err != nil {
		return nil, err
	}
	return lots.Oldest(), nil
}

func (s *LedgerService) run(ctx context.Context, op string, fn func(tx domain.LedgerTx) error) error {
	start := time.Now()
	err := s.store.WithinTx(ctx, fn)
	s.metrics.ObserveOperation(op, time.Since(start).Seconds(), err)
	if err != nil {
		s.log.Info("ledger operation rejected", zap.String("operation", op), zap.Error(err))
	}
	return err
}

// checkStock holds the inventory lock for the rest of the transaction
func (s *LedgerService) checkStock(ctx context.Context, tx domain.LedgerTx, goldType domain.GoldType, amount decimal.Decimal) error {
	if !s.cfg.EnforceStock {
		return nil
	}
	if err := tx.LockInventory(ctx); err != nil {
		return err
	}
	stock, err := tx.StockSummary(ctx, goldType)
	if err != nil {
		return err
	}
	if stock.Available.LessThan(amount) {
		return fmt.Errorf("%w: available %s, requested %s", domain.ErrInsufficientGoldStock, stock.Available, amount)
	}
	return nil
}

func (s *LedgerService) ensureCustomer(ctx context.Context, id uuid.UUID) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return fmt.Errorf("%w: %s is not a customer", domain.ErrInvalidInput, id)
	}
	return nil
}

func (s *LedgerService) customerMoveResult(ctx context.Context, tx domain.LedgerTx, customerID uuid.UUID, goldType domain.GoldType, txn *domain.Transaction) (*domain.StockMoveResult, error) {
	lots, err := tx.Lots(ctx, domain.CustomerHolder(customerID), goldType)
	if err != nil {
		return nil, err
	}
	stock, err := tx.StockSummary(ctx, goldType)
	if err != nil {
		return nil, err
	}
	basis := lots.CostBasis()
	return &domain.StockMoveResult{
		TransactionID:  txn.ID,
		GoldType:       goldType,
		Amount:         txn.Amount,
		CustomerGold:   basis.TotalAmount,
		AverageCost:    basis.AverageCost,
		AvailableStock: stock.Available,
	}, nil
}

func (s *LedgerService) recordMove(op string, goldType domain.GoldType, amount, available decimal.Decimal) {
	s.metrics.AddGoldMoved(op, string(goldType), amount.InexactFloat64())
	s.metrics.SetAvailableStock(string(goldType), available.InexactFloat64())
	if available.IsNegative() {
		s.log.Warn("available stock is negative",
			zap.String("operation", op),
			zap.String("gold_type", string(goldType)),
			zap.String("available", available.String()),
		)
	}
}

func (s *LedgerService) emit(evt domain.LedgerEvent) {
	if s.events == nil {
		return
	}
	evt.At = s.now()
	s.events.Emit(evt)
}

// applyConsumption writes a FIFO plan: exhausted lots are deleted, the
// partially consumed one is shrunk
func applyConsumption(ctx context.Context, tx domain.LedgerTx, c *domain.Consumption) error {
	for _, take := range c.Takes {
		if take.Exhausted() {
			if err := tx.DeleteLot(ctx, take.LotID); err != nil {
				return err
			}
			continue
		}
		if err := tx.UpdateLotAmount(ctx, take.LotID, take.Remaining); err != nil {
			return err
		}
	}
	return nil
}

func validateMove(goldType domain.GoldType, amount decimal.Decimal) error {
	if !goldType.Valid() {
		return fmt.Errorf("%w: unknown gold type %q", domain.ErrInvalidInput, goldType)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	return domain.CheckScale("amount", amount, domain.GoldScale)
}
