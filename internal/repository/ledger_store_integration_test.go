//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goldtrade/internal/database"
	"goldtrade/internal/domain"
)

// Run with: GOLDTRADE_TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository
var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	url := os.Getenv("GOLDTRADE_TEST_DATABASE_URL")
	if url == "" {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}
	if err := database.RunMigrations(ctx, pool, zap.NewNop()); err != nil {
		panic("failed to migrate test database: " + err.Error())
	}
	testPool = pool

	code := m.Run()
	pool.Close()
	os.Exit(code)
}

func setupStore(t *testing.T) (*LedgerStoreImpl, context.Context) {
	t.Helper()
	if testPool == nil {
		t.Skip("GOLDTRADE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `
		TRUNCATE gold_lots, transactions, verified_slips, withdrawal_requests,
		         user_balances, users, deposit_limits CASCADE
	`)
	require.NoError(t, err)
	return &LedgerStoreImpl{db: testPool}, ctx
}

func createUser(t *testing.T, ctx context.Context) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testPool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash) VALUES ($1, $2, 'hash')
	`, id, "user-"+id.String()[:8]+"@example.com")
	require.NoError(t, err)
	return id
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLedgerStore_LockUserCreatesBalance(t *testing.T) {
	store, ctx := setupStore(t)
	userID := createUser(t, ctx)

	err := store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		balance, err := tx.LockUser(ctx, userID)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
		return tx.SetBalance(ctx, userID, dec("1500.25"))
	})
	require.NoError(t, err)

	balance, err := store.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "1500.25", balance.String())

	err = store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.LockUser(ctx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound, "unknown users have no balance row")
}

func TestLedgerStore_LockUserSerializes(t *testing.T) {
	store, ctx := setupStore(t)
	userID := createUser(t, ctx)

	locked := make(chan struct{})
	release := make(chan struct{})
	held := make(chan error, 1)
	go func() {
		held <- store.WithinTx(ctx, func(tx domain.LedgerTx) error {
			if _, err := tx.LockUser(ctx, userID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	err := store.WithinTx(waitCtx, func(tx domain.LedgerTx) error {
		_, err := tx.LockUser(waitCtx, userID)
		return err
	})
	assert.Error(t, err, "second locker waits on the row lock")

	other := createUser(t, ctx)
	err = store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.LockUser(ctx, other)
		return err
	})
	assert.NoError(t, err, "other users are not blocked")

	close(release)
	require.NoError(t, <-held)
}

func TestLedgerStore_LotsRoundTrip(t *testing.T) {
	store, ctx := setupStore(t)
	userID := createUser(t, ctx)
	holder := domain.CustomerHolder(userID)
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	first := domain.NewLot(holder, domain.GoldBar, dec("1.2345"), dec("40000.50"), domain.LotReasonBuy, nil, at)
	second := domain.NewLot(holder, domain.GoldBar, dec("0.5"), dec("41000"), domain.LotReasonBuy, nil, at)
	err := store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		require.NoError(t, tx.InsertLot(ctx, first))
		require.NoError(t, tx.InsertLot(ctx, second))
		return tx.InsertLot(ctx, domain.NewLot(domain.InventoryHolder(), domain.GoldBar, dec("10"), dec("39000"), domain.LotReasonRestock, nil, at))
	})
	require.NoError(t, err)
	assert.Less(t, first.Seq, second.Seq)

	lots, err := store.ListLots(ctx, holder, domain.GoldBar)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, first.ID, lots[0].ID, "equal timestamps fall back to insertion order")
	assert.Equal(t, "1.2345", lots[0].Amount.String())
	assert.Equal(t, "40000.5", lots[0].PurchasePrice.String())
	assert.Equal(t, holder, lots[0].Holder)

	summaries, err := store.StockSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "10", summaries[0].InventoryTotal.String())
	assert.Equal(t, "1.7345", summaries[0].CustomerTotal.String())

	err = store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		require.NoError(t, tx.UpdateLotAmount(ctx, first.ID, dec("0.2345")))
		require.NoError(t, tx.DeleteLot(ctx, second.ID))
		assert.ErrorIs(t, tx.DeleteLot(ctx, second.ID), domain.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	lots, err = store.ListLots(ctx, holder, domain.GoldBar)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "0.2345", lots[0].Amount.String())
}

func TestLedgerStore_NumericScale(t *testing.T) {
	store, ctx := setupStore(t)
	at := time.Now()

	err := store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		return tx.InsertLot(ctx, domain.NewLot(domain.InventoryHolder(), domain.GoldOrnament, dec("1.00005"), dec("1"), domain.LotReasonRestock, nil, at))
	})
	require.NoError(t, err)
	lots, err := store.ListLots(ctx, domain.InventoryHolder(), domain.GoldOrnament)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "1.0001", lots[0].Amount.String(), "the column rounds to four places")

	err = store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		return tx.InsertLot(ctx, domain.NewLot(domain.InventoryHolder(), domain.GoldOrnament, dec("0.00004"), dec("1"), domain.LotReasonRestock, nil, at))
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "a lot rounded to zero violates the amount check")
}

func TestLedgerStore_InventoryLockIsExclusive(t *testing.T) {
	store, ctx := setupStore(t)

	locked := make(chan struct{})
	release := make(chan struct{})
	held := make(chan error, 1)
	go func() {
		held <- store.WithinTx(ctx, func(tx domain.LedgerTx) error {
			if err := tx.LockInventory(ctx); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	err := store.WithinTx(waitCtx, func(tx domain.LedgerTx) error {
		return tx.LockInventory(waitCtx)
	})
	assert.Error(t, err)

	close(release)
	require.NoError(t, <-held)

	err = store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		return tx.LockInventory(ctx)
	})
	assert.NoError(t, err, "released at commit")
}

func TestLedgerStore_Slips(t *testing.T) {
	store, ctx := setupStore(t)
	userID := createUser(t, ctx)
	now := time.Now()

	slip := &domain.VerifiedSlip{TransRef: "REF-001", UserID: userID, Amount: dec("2500"), VerifiedAt: now}
	err := store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		exists, err := tx.SlipExists(ctx, slip.TransRef)
		require.NoError(t, err)
		assert.False(t, exists)
		return tx.InsertSlip(ctx, slip)
	})
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		return tx.InsertSlip(ctx, slip)
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyUsed)

	err = store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		total, err := tx.DepositTotalSince(ctx, userID, now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "2500", total.String())

		total, err = tx.DepositTotalSince(ctx, userID, now.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, total.IsZero())

		limit, err := tx.DepositLimitFor(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, limit, "no tier assigned")
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerStore_TransactionsAndWithdrawals(t *testing.T) {
	store, ctx := setupStore(t)
	userID := createUser(t, ctx)
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	txn := domain.NewTransaction(userID, domain.GoldBar, domain.JewelryExchange("ring"), dec("1"), dec("0"), dec("0"), at)
	w := &domain.WithdrawalRequest{
		ID: uuid.New(), UserID: userID, Kind: domain.WithdrawGold, GoldType: domain.GoldBar,
		Amount: dec("0.5"), CostBasis: dec("20000"), Status: domain.WithdrawalPending, CreatedAt: at,
	}
	err := store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		require.NoError(t, tx.InsertTransaction(ctx, txn))
		return tx.InsertWithdrawal(ctx, w)
	})
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		got, err := tx.GetTransaction(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, "ring", got.Kind.JewelryItem)

		_, err = tx.GetTransaction(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)

		pending, err := tx.GetWithdrawal(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.WithdrawalPending, pending.Status)
		return nil
	})
	require.NoError(t, err)

	txns, err := store.ListTransactions(ctx, domain.TransactionFilter{UserID: &userID, Types: []domain.TransactionType{domain.TxnJewelryExchange}})
	require.NoError(t, err)
	assert.Len(t, txns, 1)

	list, err := store.ListWithdrawals(ctx, domain.WithdrawalFilter{Status: domain.WithdrawalPending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "0.5", list[0].Amount.String())
}
