package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"goldtrade/internal/domain"
)

// inventoryLockKey is the advisory lock guarding the shop inventory
const inventoryLockKey int64 = 0x676f6c64 // "gold"

// querier is satisfied by both the pool and an open transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// LedgerStoreImpl implements domain.LedgerStore on PostgreSQL
type LedgerStoreImpl struct {
	db *pgxpool.Pool
}

// NewLedgerStore creates a new LedgerStore
func NewLedgerStore(db *pgxpool.Pool) domain.LedgerStore {
	return &LedgerStoreImpl{db: db}
}

// WithinTx runs fn in a read-committed transaction; row and advisory locks
// taken through LedgerTx are held until commit
func (s *LedgerStoreImpl) WithinTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	return pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&ledgerTx{q: tx})
	})
}

// ListLots returns the holder's lots, oldest first
func (s *LedgerStoreImpl) ListLots(ctx context.Context, holder domain.Holder, goldType domain.GoldType) (domain.Lots, error) {
	return listLots(ctx, s.db, holder, goldType)
}

// ListTransactions returns transactions newest first
func (s *LedgerStoreImpl) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		where = append(where, fmt.Sprintf("type = ANY($%d)", len(args)))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

// StockSummaries returns the available stock of every gold type
func (s *LedgerStoreImpl) StockSummaries(ctx context.Context) ([]domain.StockSummary, error) {
	out := make([]domain.StockSummary, 0, len(domain.GoldTypes))
	for _, t := range domain.GoldTypes {
		summary, err := stockSummary(ctx, s.db, t)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

// Balance returns the user's cash balance
func (s *LedgerStoreImpl) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.QueryRow(ctx, `SELECT balance FROM user_balances WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// ListWithdrawals returns withdrawal requests newest first
func (s *LedgerStoreImpl) ListWithdrawals(ctx context.Context, filter domain.WithdrawalFilter) ([]*domain.WithdrawalRequest, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	var out []*domain.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawals: %w", err)
	}

	return out, nil
}

const lotColumns = `id, seq, user_id, gold_type, amount, purchase_price, reason, source_txn_id, created_at`

func listLots(ctx context.Context, q querier, holder domain.Holder, goldType domain.GoldType) (domain.Lots, error) {
	var (
		where []string
		args  []any
	)
	if holder.IsInventory() {
		where = append(where, "user_id IS NULL")
	} else {
		args = append(args, holder.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if goldType != "" {
		args = append(args, goldType)
		where = append(where, fmt.Sprintf("gold_type = $%d", len(args)))
	}

	query := `SELECT ` + lotColumns + ` FROM gold_lots WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at ASC, seq ASC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var lots domain.Lots
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}

	return lots, nil
}

func scanLot(row scanner) (*domain.Lot, error) {
	lot := &domain.Lot{}
	var userID *uuid.UUID
	err := row.Scan(
		&lot.ID,
		&lot.Seq,
		&userID,
		&lot.GoldType,
		&lot.Amount,
		&lot.PurchasePrice,
		&lot.Reason,
		&lot.SourceTxnID,
		&lot.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan lot: %w", err)
	}
	if userID != nil {
		lot.Holder = domain.CustomerHolder(*userID)
	}
	return lot, nil
}

func stockSummary(ctx context.Context, q querier, goldType domain.GoldType) (domain.StockSummary, error) {
	var inventory, customers decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount) FILTER (WHERE user_id IS NULL), 0),
		       COALESCE(SUM(amount) FILTER (WHERE user_id IS NOT NULL), 0)
		FROM gold_lots
		WHERE gold_type = $1
	`, goldType).Scan(&inventory, &customers)
	if err != nil {
		return domain.StockSummary{}, fmt.Errorf("failed to summarize %s stock: %w", goldType, err)
	}
	return domain.NewStockSummary(goldType, inventory, customers), nil
}

const transactionColumns = `id, user_id, gold_type, type, jewelry_item, original_type,
	amount, price_per_unit, total_price, created_at, updated_at`

func scanTransaction(row scanner) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.GoldType,
		&txn.Kind.Type,
		&txn.Kind.JewelryItem,
		&txn.Kind.Original,
		&txn.Amount,
		&txn.PricePerUnit,
		&txn.TotalPrice,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err, "failed to scan transaction")
	}
	return txn, nil
}

const withdrawalColumns = `id, user_id, kind, gold_type, amount, cost_basis, status, note,
	decided_by, created_at, decided_at`

func scanWithdrawal(row scanner) (*domain.WithdrawalRequest, error) {
	w := &domain.WithdrawalRequest{}
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Kind,
		&w.GoldType,
		&w.Amount,
		&w.CostBasis,
		&w.Status,
		&w.Note,
		&w.DecidedBy,
		&w.CreatedAt,
		&w.DecidedAt,
	)
	if err != nil {
		return nil, mapErr(err, "failed to scan withdrawal")
	}
	return w, nil
}

// mapErr translates driver errors into ledger errors
func mapErr(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", msg, domain.ErrAlreadyUsed)
		case "23503":
			return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
		case "23514":
			return fmt.Errorf("%s: %w: %s", msg, domain.ErrInvalidInput, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
