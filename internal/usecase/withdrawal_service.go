package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goldtrade/internal/domain"
	"goldtrade/internal/metrics"
)

// WithdrawalService handles cash and gold withdrawal requests. Funds leave
// the account when the request is made and come back on rejection.
type WithdrawalService struct {
	store   domain.LedgerStore
	events  domain.EventSink
	metrics *metrics.LedgerMetrics
	log     *zap.Logger
	now     func() time.Time
}

// NewWithdrawalService creates a new WithdrawalService
func NewWithdrawalService(store domain.LedgerStore, events domain.EventSink, m *metrics.LedgerMetrics, log *zap.Logger) *WithdrawalService {
	return &WithdrawalService{
		store:   store,
		events:  events,
		metrics: m,
		log:     log.Named("withdrawal"),
		now:     time.Now,
	}
}

// Request holds the funds and files a pending withdrawal
func (s *WithdrawalService) Request(ctx context.Context, userID uuid.UUID, in domain.WithdrawalInput) (*domain.WithdrawalRequest, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	w := &domain.WithdrawalRequest{
		ID:       uuid.New(),
		UserID:   userID,
		Kind:     in.Kind,
		GoldType: in.GoldType,
		Amount:   in.Amount,
		Status:   domain.WithdrawalPending,
	}
	if in.Kind == domain.WithdrawCash {
		w.GoldType = ""
	}

	start := time.Now()
	err := s.store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		balance, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		switch w.Kind {
		case domain.WithdrawCash:
			if balance.LessThan(w.Amount) {
				return fmt.Errorf("%w: balance %s, requested %s", domain.ErrInsufficientBalance, balance, w.Amount)
			}
			if err := tx.SetBalance(ctx, userID, balance.Sub(w.Amount)); err != nil {
				return err
			}
			w.CostBasis = w.Amount
		case domain.WithdrawGold:
			lots, err := tx.Lots(ctx, domain.CustomerHolder(userID), w.GoldType)
			if err != nil {
				return err
			}
			consumed, err := lots.ConsumeFIFO(w.Amount)
			if err != nil {
				return err
			}
			if err := applyConsumption(ctx, tx, consumed); err != nil {
				return err
			}
			w.CostBasis = consumed.Cost
		}

		w.CreatedAt = s.now()
		return tx.InsertWithdrawal(ctx, w)
	})
	s.metrics.ObserveOperation("withdrawal_request", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("failed to request withdrawal: %w", err)
	}

	s.log.Info("withdrawal requested",
		zap.String("id", w.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("kind", w.Kind),
		zap.String("amount", w.Amount.String()),
	)
	s.emit(w, userID)
	return w, nil
}

// Approve completes a pending withdrawal. Gold withdrawals are written to
// the ledger at their recorded cost.
func (s *WithdrawalService) Approve(ctx context.Context, adminID, id uuid.UUID, note string) (*domain.WithdrawalRequest, error) {
	return s.decide(ctx, adminID, id, domain.WithdrawalApproved, note, func(tx domain.LedgerTx, w *domain.WithdrawalRequest) error {
		if w.Kind != domain.WithdrawGold {
			return nil
		}
		txn := domain.NewTransaction(w.UserID, w.GoldType, domain.Withdraw(), w.Amount, w.UnitCost(), w.CostBasis, s.now())
		return tx.InsertTransaction(ctx, txn)
	})
}

// Reject returns the held funds to the customer
func (s *WithdrawalService) Reject(ctx context.Context, adminID, id uuid.UUID, note string) (*domain.WithdrawalRequest, error) {
	return s.decide(ctx, adminID, id, domain.WithdrawalRejected, note, func(tx domain.LedgerTx, w *domain.WithdrawalRequest) error {
		balance, err := tx.LockUser(ctx, w.UserID)
		if err != nil {
			return err
		}
		if w.Kind == domain.WithdrawCash {
			return tx.SetBalance(ctx, w.UserID, balance.Add(w.Amount))
		}
		lot := domain.NewLot(domain.CustomerHolder(w.UserID), w.GoldType, w.Amount, w.UnitCost(), domain.LotReasonWithdrawalRefund, nil, s.now())
		return tx.InsertLot(ctx, lot)
	})
}

// List returns withdrawal requests, newest first
func (s *WithdrawalService) List(ctx context.Context, filter domain.WithdrawalFilter) ([]*domain.WithdrawalRequest, error) {
	return s.store.ListWithdrawals(ctx, filter)
}

func (s *WithdrawalService) decide(
	ctx context.Context,
	adminID, id uuid.UUID,
	status, note string,
	apply func(tx domain.LedgerTx, w *domain.WithdrawalRequest) error,
) (*domain.WithdrawalRequest, error) {
	var decided *domain.WithdrawalRequest
	start := time.Now()
	err := s.store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		w, err := tx.GetWithdrawal(ctx, id)
		if err != nil {
			return err
		}
		if err := w.Decide(status, adminID, note, s.now()); err != nil {
			return err
		}
		if err := apply(tx, w); err != nil {
			return err
		}
		if err := tx.UpdateWithdrawal(ctx, w); err != nil {
			return err
		}
		decided = w
		return nil
	})
	s.metrics.ObserveOperation("withdrawal_"+status, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("failed to %s withdrawal: %w", verb(status), err)
	}

	s.log.Info("withdrawal decided",
		zap.String("id", id.String()),
		zap.String("status", status),
		zap.String("admin_id", adminID.String()),
	)
	s.emit(decided, adminID)
	return decided, nil
}

func (s *WithdrawalService) emit(w *domain.WithdrawalRequest, actor uuid.UUID) {
	if s.events == nil {
		return
	}
	s.events.Emit(domain.LedgerEvent{
		Name:     domain.EventWithdrawal,
		Type:     w.Status,
		UserID:   w.UserID,
		ActorID:  actor,
		GoldType: w.GoldType,
		Amount:   w.Amount,
		Total:    w.CostBasis,
		Detail:   w.Kind,
		At:       s.now(),
	})
}

func verb(status string) string {
	if status == domain.WithdrawalApproved {
		return "approve"
	}
	return "reject"
}
