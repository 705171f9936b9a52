package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goldtrade/internal/domain"
)

// MockSlipVerifier is a mock implementation for testing
type MockSlipVerifier struct {
	mock.Mock
}

func (m *MockSlipVerifier) Verify(ctx context.Context, slip domain.SlipUpload) (*domain.SlipDetails, error) {
	args := m.Called(ctx, slip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SlipDetails), args.Error(1)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

var shopReceiver = domain.Receiver{BankID: "004", AccountFragment: "7788", NameTH: "ทองดี", NameEN: "THONGDEE"}

func slipTo(ref, amount string) *domain.SlipDetails {
	return &domain.SlipDetails{
		TransRef: ref,
		Amount:   dec(amount),
		Receiver: domain.SlipParty{BankID: "004", AccountNo: "xxx-x-x7788-x", NameTH: "บจก. ทองดี", NameEN: "THONGDEE CO LTD"},
	}
}

type depositFixture struct {
	store    *memStore
	verifier *MockSlipVerifier
	sink     *recordingSink
	svc      *DepositService
	userID   uuid.UUID
}

func newDepositFixture(now time.Time) *depositFixture {
	store := newMemStore()
	verifier := &MockSlipVerifier{}
	sink := &recordingSink{}
	svc := NewDepositService(store, verifier, shopReceiver, 1024, sink, nil, zap.NewNop())
	svc.now = func() time.Time { return now }
	return &depositFixture{store: store, verifier: verifier, sink: sink, svc: svc, userID: uuid.New()}
}

func (f *depositFixture) submit(ref, amount string) (*domain.DepositResult, error) {
	upload := domain.SlipUpload{Filename: ref + ".png", Data: pngHeader, Amount: dec(amount)}
	f.verifier.On("Verify", mock.Anything, upload).Return(slipTo(ref, amount), nil).Once()
	return f.svc.SubmitSlip(context.Background(), f.userID, upload)
}

func TestDepositService_SlipIdempotency(t *testing.T) {
	f := newDepositFixture(time.Now())

	res, err := f.submit("TXN-0001", "500")
	require.NoError(t, err)
	assert.True(t, res.Balance.Equal(dec("500")))

	_, err = f.submit("TXN-0001", "500")
	require.ErrorIs(t, err, domain.ErrAlreadyUsed)
	assert.Equal(t, domain.SlipAlreadyUsed, domain.SlipOutcome(err))

	balance, _ := f.store.Balance(context.Background(), f.userID)
	assert.True(t, balance.Equal(dec("500")), "credited exactly once")
	assert.Equal(t, []string{domain.EventDeposit}, f.sink.names())
	f.verifier.AssertExpectations(t)
}

func TestDepositService_DailyLimitBoundary(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC)
	f := newDepositFixture(now)
	f.store.limits[f.userID] = &domain.DepositLimit{ID: uuid.New(), Name: "basic", DailyLimit: dec("1000"), MonthlyLimit: dec("50000")}

	// yesterday does not count towards today
	f.store.slips["OLD"] = &domain.VerifiedSlip{TransRef: "OLD", UserID: f.userID, Amount: dec("900"), VerifiedAt: now.Add(-24 * time.Hour)}

	_, err := f.submit("TXN-1", "600")
	require.NoError(t, err)
	res, err := f.submit("TXN-2", "400")
	require.NoError(t, err, "reaching the limit exactly is allowed")
	assert.True(t, res.Balance.Equal(dec("1000")))

	_, err = f.submit("TXN-3", "1")
	require.ErrorIs(t, err, domain.ErrLimitExceeded)
	assert.Equal(t, domain.SlipDepositLimitExceeded, domain.SlipOutcome(err))
	assert.NotContains(t, f.store.slips, "TXN-3")
}

func TestDepositService_MonthlyLimit(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC)
	f := newDepositFixture(now)
	f.store.limits[f.userID] = &domain.DepositLimit{ID: uuid.New(), Name: "basic", DailyLimit: dec("1000"), MonthlyLimit: dec("2000")}
	f.store.slips["EARLIER"] = &domain.VerifiedSlip{TransRef: "EARLIER", UserID: f.userID, Amount: dec("1800"), VerifiedAt: now.Add(-72 * time.Hour)}

	_, err := f.submit("TXN-1", "300")
	assert.ErrorIs(t, err, domain.ErrLimitExceeded)
}

func TestDepositService_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newDepositFixture(time.Now())

	tests := []struct {
		name    string
		upload  domain.SlipUpload
		outcome string
	}{
		{"missing image", domain.SlipUpload{Amount: dec("100")}, domain.SlipInvalidPayload},
		{"missing amount", domain.SlipUpload{Data: pngHeader}, domain.SlipInvalidPayload},
		{"amount past satang", domain.SlipUpload{Data: pngHeader, Amount: dec("100.005")}, domain.SlipInvalidPayload},
		{"too large", domain.SlipUpload{Data: make([]byte, 2048), Amount: dec("100")}, domain.SlipImageTooLarge},
		{"not an image", domain.SlipUpload{Data: []byte("hello, world"), Amount: dec("100")}, domain.SlipInvalidImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SubmitSlip(ctx, f.userID, tt.upload)
			require.Error(t, err)
			assert.Equal(t, tt.outcome, domain.SlipOutcome(err))
		})
	}
	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestDepositService_ReceiverAndAmountChecks(t *testing.T) {
	ctx := context.Background()
	f := newDepositFixture(time.Now())
	upload := domain.SlipUpload{Data: pngHeader, Amount: dec("100")}

	wrongReceiver := slipTo("TXN-X", "100")
	wrongReceiver.Receiver.AccountNo = "xxx-x-x1111-x"
	f.verifier.On("Verify", mock.Anything, upload).Return(wrongReceiver, nil).Once()
	_, err := f.svc.SubmitSlip(ctx, f.userID, upload)
	assert.Equal(t, domain.SlipInvalidReceiver, domain.SlipOutcome(err))

	f.verifier.On("Verify", mock.Anything, upload).Return(slipTo("TXN-Y", "99"), nil).Once()
	_, err = f.svc.SubmitSlip(ctx, f.userID, upload)
	assert.Equal(t, domain.SlipInvalidPayload, domain.SlipOutcome(err))

	f.verifier.On("Verify", mock.Anything, upload).Return(nil, errors.Join(domain.ErrUpstreamFailure, errors.New("503"))).Once()
	_, err = f.svc.SubmitSlip(ctx, f.userID, upload)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Equal(t, domain.SlipServerError, domain.SlipOutcome(err))

	balance, _ := f.store.Balance(ctx, f.userID)
	assert.True(t, balance.IsZero())
	assert.Empty(t, f.sink.names())
}
