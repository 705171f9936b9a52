package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"goldtrade/internal/domain"
)

// ledgerTx implements domain.LedgerTx over an open pgx transaction
type ledgerTx struct {
	q querier
}

// LockUser creates the user's balance row on first use and locks it
func (t *ledgerTx) LockUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	_, err := t.q.Exec(ctx, `
		INSERT INTO user_balances (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return decimal.Zero, mapErr(err, fmt.Sprintf("failed to init balance for user %s", userID))
	}

	var balance decimal.Decimal
	err = t.q.QueryRow(ctx, `
		SELECT balance FROM user_balances WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&balance)
	if err != nil {
		return decimal.Zero, mapErr(err, fmt.Sprintf("failed to lock user %s", userID))
	}
	return balance, nil
}

// LockInventory takes the transaction-scoped inventory advisory lock
func (t *ledgerTx) LockInventory(ctx context.Context) error {
	if _, err := t.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, inventoryLockKey); err != nil {
		return fmt.Errorf("failed to lock inventory: %w", err)
	}
	return nil
}

func (t *ledgerTx) SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE user_balances SET balance = $1, updated_at = NOW() WHERE user_id = $2
	`, balance, userID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance for user %s: %w", userID, domain.ErrNotFound)
	}
	return nil
}

func (t *ledgerTx) Lots(ctx context.Context, holder domain.Holder, goldType domain.GoldType) (domain.Lots, error) {
	return listLots(ctx, t.q, holder, goldType)
}

// InsertLot stores the lot and records its insertion sequence
func (t *ledgerTx) InsertLot(ctx context.Context, lot *domain.Lot) error {
	var userID *uuid.UUID
	if !lot.Holder.IsInventory() {
		id := lot.Holder.UserID
		userID = &id
	}

	err := t.q.QueryRow(ctx, `
		INSERT INTO gold_lots (
			id, user_id, gold_type, amount, purchase_price, reason, source_txn_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING seq
	`,
		lot.ID,
		userID,
		lot.GoldType,
		lot.Amount,
		lot.PurchasePrice,
		lot.Reason,
		lot.SourceTxnID,
		lot.CreatedAt,
	).Scan(&lot.Seq)
	if err != nil {
		return mapErr(err, "failed to insert lot")
	}
	return nil
}

func (t *ledgerTx) UpdateLotAmount(ctx context.Context, lotID uuid.UUID, amount decimal.Decimal) error {
	tag, err := t.q.Exec(ctx, `UPDATE gold_lots SET amount = $1 WHERE id = $2`, amount, lotID)
	if err != nil {
		return fmt.Errorf("failed to update lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lot %s: %w", lotID, domain.ErrNotFound)
	}
	return nil
}

func (t *ledgerTx) DeleteLot(ctx context.Context, lotID uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM gold_lots WHERE id = $1`, lotID)
	if err != nil {
		return fmt.Errorf("failed to delete lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lot %s: %w", lotID, domain.ErrNotFound)
	}
	return nil
}

func (t *ledgerTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO transactions (
			id, user_id, gold_type, type, jewelry_item, original_type,
			amount, price_per_unit, total_price, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`,
		txn.ID,
		txn.UserID,
		txn.GoldType,
		txn.Kind.Type,
		txn.Kind.JewelryItem,
		txn.Kind.Original,
		txn.Amount,
		txn.PricePerUnit,
		txn.TotalPrice,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		return mapErr(err, "failed to insert transaction")
	}
	return nil
}

// GetTransaction loads the transaction and locks its row
func (t *ledgerTx) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := t.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", id, err)
	}
	return txn, nil
}

func (t *ledgerTx) UpdateTransaction(ctx context.Context, txn *domain.Transaction) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE transactions
		SET type = $1,
		    jewelry_item = $2,
		    original_type = $3,
		    amount = $4,
		    price_per_unit = $5,
		    total_price = $6,
		    updated_at = $7
		WHERE id = $8
	`,
		txn.Kind.Type,
		txn.Kind.JewelryItem,
		txn.Kind.Original,
		txn.Amount,
		txn.PricePerUnit,
		txn.TotalPrice,
		txn.UpdatedAt,
		txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", txn.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes the record; lots sourced from it keep their
// gold and lose the back reference
func (t *ledgerTx) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

func (t *ledgerTx) StockSummary(ctx context.Context, goldType domain.GoldType) (domain.StockSummary, error) {
	return stockSummary(ctx, t.q, goldType)
}

func (t *ledgerTx) SlipExists(ctx context.Context, transRef string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM verified_slips WHERE trans_ref = $1)
	`, transRef).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slip: %w", err)
	}
	return exists, nil
}

// InsertSlip records the slip; the primary key on trans_ref rejects reuse
func (t *ledgerTx) InsertSlip(ctx context.Context, slip *domain.VerifiedSlip) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO verified_slips (trans_ref, user_id, amount, verified_at)
		VALUES ($1, $2, $3, $4)
	`, slip.TransRef, slip.UserID, slip.Amount, slip.VerifiedAt)
	if err != nil {
		return mapErr(err, fmt.Sprintf("failed to record slip %s", slip.TransRef))
	}
	return nil
}

func (t *ledgerTx) DepositTotalSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM verified_slips
		WHERE user_id = $1 AND verified_at >= $2
	`, userID, since).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum deposits: %w", err)
	}
	return total, nil
}

// DepositLimitFor returns nil when the user has no tier assigned
func (t *ledgerTx) DepositLimitFor(ctx context.Context, userID uuid.UUID) (*domain.DepositLimit, error) {
	limit := &domain.DepositLimit{}
	err := t.q.QueryRow(ctx, `
		SELECT dl.id, dl.name, dl.daily_limit, dl.monthly_limit, dl.created_at
		FROM users u
		JOIN deposit_limits dl ON dl.id = u.deposit_limit_id
		WHERE u.id = $1
	`, userID).Scan(
		&limit.ID,
		&limit.Name,
		&limit.DailyLimit,
		&limit.MonthlyLimit,
		&limit.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit limit: %w", err)
	}
	return limit, nil
}

func (t *ledgerTx) InsertWithdrawal(ctx context.Context, w *domain.WithdrawalRequest) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO withdrawal_requests (
			id, user_id, kind, gold_type, amount, cost_basis, status, note, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`,
		w.ID,
		w.UserID,
		w.Kind,
		w.GoldType,
		w.Amount,
		w.CostBasis,
		w.Status,
		w.Note,
		w.CreatedAt,
	)
	if err != nil {
		return mapErr(err, "failed to insert withdrawal")
	}
	return nil
}

// GetWithdrawal loads the request and locks its row
func (t *ledgerTx) GetWithdrawal(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	row := t.q.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		return nil, fmt.Errorf("withdrawal %s: %w", id, err)
	}
	return w, nil
}

func (t *ledgerTx) UpdateWithdrawal(ctx context.Context, w *domain.WithdrawalRequest) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE withdrawal_requests
		SET status = $1,
		    note = $2,
		    decided_by = $3,
		    decided_at = $4
		WHERE id = $5
	`, w.Status, w.Note, w.DecidedBy, w.DecidedAt, w.ID)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("withdrawal %s: %w", w.ID, domain.ErrNotFound)
	}
	return nil
}
