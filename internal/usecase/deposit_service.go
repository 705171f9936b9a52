package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goldtrade/internal/domain"
	"goldtrade/internal/metrics"
	"goldtrade/internal/utils"
)

// DefaultSlipMaxBytes caps slip uploads when no limit is configured
const DefaultSlipMaxBytes = 5 << 20

// DepositService verifies bank-transfer slips and credits the cash balance
type DepositService struct {
	store    domain.LedgerStore
	verifier domain.SlipVerifier
	receiver domain.Receiver
	events   domain.EventSink
	metrics  *metrics.LedgerMetrics
	log      *zap.Logger
	maxBytes int
	now      func() time.Time
}

// NewDepositService creates a new DepositService
func NewDepositService(
	store domain.LedgerStore,
	verifier domain.SlipVerifier,
	receiver domain.Receiver,
	maxBytes int,
	events domain.EventSink,
	m *metrics.LedgerMetrics,
	log *zap.Logger,
) *DepositService {
	if maxBytes <= 0 {
		maxBytes = DefaultSlipMaxBytes
	}
	return &DepositService{
		store:    store,
		verifier: verifier,
		receiver: receiver,
		events:   events,
		metrics:  m,
		log:      log.Named("deposit"),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// SubmitSlip verifies the slip and credits its amount. A slip is redeemed at
// most once; the daily and monthly limits count Bangkok calendar days.
func (s *DepositService) SubmitSlip(ctx context.Context, userID uuid.UUID, upload domain.SlipUpload) (*domain.DepositResult, error) {
	res, err := s.submit(ctx, userID, upload)
	outcome := domain.SlipOutcome(err)

	credited := 0.0
	if res != nil {
		credited = res.Amount.InexactFloat64()
	}
	s.metrics.ObserveSlip(outcome, credited)

	if err != nil {
		if outcome == domain.SlipServerError {
			s.log.Error("slip verification failed", zap.String("user_id", userID.String()), zap.Error(err))
		} else {
			s.log.Info("slip rejected", zap.String("user_id", userID.String()), zap.String("outcome", outcome), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("deposit credited",
		zap.String("user_id", userID.String()),
		zap.String("trans_ref", res.TransRef),
		zap.String("amount", res.Amount.String()),
	)
	if s.events != nil {
		s.events.Emit(domain.LedgerEvent{
			Name:   domain.EventDeposit,
			Type:   "slip",
			UserID: userID,
			Amount: res.Amount,
			Total:  res.Balance,
			Detail: res.TransRef,
			At:     s.now(),
		})
	}
	return res, nil
}

func (s *DepositService) submit(ctx context.Context, userID uuid.UUID, upload domain.SlipUpload) (*domain.DepositResult, error) {
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("%w: slip image is required", domain.ErrInvalidInput)
	}
	if !upload.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	if err := domain.CheckScale("amount", upload.Amount, domain.CashScale); err != nil {
		return nil, err
	}
	if len(upload.Data) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", domain.ErrImageTooLarge, len(upload.Data), s.maxBytes)
	}
	if ct := http.DetectContentType(upload.Data); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: content type %s", domain.ErrInvalidImage, ct)
	}

	slip, err := s.verifier.Verify(ctx, upload)
	if err != nil {
		return nil, err
	}
	if !s.receiver.Matches(slip.Receiver) {
		return nil, fmt.Errorf("%w: slip was sent to %s %s", domain.ErrInvalidReceiver, slip.Receiver.BankID, slip.Receiver.AccountNo)
	}
	if !slip.Amount.Equal(upload.Amount) {
		return nil, fmt.Errorf("%w: slip amount %s does not match %s", domain.ErrInvalidInput, slip.Amount, upload.Amount)
	}

	res := &domain.DepositResult{TransRef: slip.TransRef, Amount: slip.Amount}
	err = s.store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		balance, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		used, err := tx.SlipExists(ctx, slip.TransRef)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyUsed, slip.TransRef)
		}

		now := s.now()
		limit, err := tx.DepositLimitFor(ctx, userID)
		if err != nil {
			return err
		}
		if limit != nil {
			today, err := tx.DepositTotalSince(ctx, userID, utils.StartOfDay(now))
			if err != nil {
				return err
			}
			month, err := tx.DepositTotalSince(ctx, userID, utils.StartOfMonth(now))
			if err != nil {
				return err
			}
			if !limit.Allows(today, month, slip.Amount) {
				return fmt.Errorf("%w: tier %s, deposited today %s, this month %s", domain.ErrLimitExceeded, limit.Name, today, month)
			}
		}

		if err := tx.InsertSlip(ctx, &domain.VerifiedSlip{
			TransRef:   slip.TransRef,
			UserID:     userID,
			Amount:     slip.Amount,
			VerifiedAt: now,
		}); err != nil {
			return err
		}

		res.Balance = balance.Add(slip.Amount)
		return tx.SetBalance(ctx, userID, res.Balance)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to credit deposit: %w", err)
	}
	return res, nil
}
