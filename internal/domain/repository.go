package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetAll retrieves all users
	GetAll(ctx context.Context) ([]*User, error)

	// SetDepositLimit assigns a deposit limit tier; nil removes it
	SetDepositLimit(ctx context.Context, userID uuid.UUID, limitID *uuid.UUID) error
}

// DepositLimitRepository defines the interface for deposit limit tiers
type DepositLimitRepository interface {
	Create(ctx context.Context, limit *DepositLimit) error
	GetByID(ctx context.Context, id uuid.UUID) (*DepositLimit, error)
	GetAll(ctx context.Context) ([]*DepositLimit, error)
}

// SettingsRepository stores the runtime switches admins can change
type SettingsRepository interface {
	TradingEnabled(ctx context.Context) (bool, error)
	SetTradingEnabled(ctx context.Context, enabled bool) error
	Markup(ctx context.Context) (MarkupSettings, error)
	SetMarkup(ctx context.Context, settings MarkupSettings) error
}

// TransactionFilter narrows transaction listings. A nil UserID lists all users.
type TransactionFilter struct {
	UserID *uuid.UUID
	Types  []TransactionType
	Limit  int
}

// WithdrawalFilter narrows withdrawal listings
type WithdrawalFilter struct {
	UserID *uuid.UUID
	Status string
}

// LedgerStore is the persistence boundary of the ledger. Every mutation goes
// through WithinTx; the read methods run outside any transaction.
type LedgerStore interface {
	// WithinTx runs fn in one database transaction. A returned error rolls
	// everything back.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error

	// ListLots returns the lots of a holder; an empty goldType lists all types
	ListLots(ctx context.Context, holder Holder, goldType GoldType) (Lots, error)

	// ListTransactions returns transactions newest first
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)

	// StockSummaries returns the available stock of every gold type
	StockSummaries(ctx context.Context) ([]StockSummary, error)

	// Balance returns a user's cash balance, zero if none was ever credited
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// ListWithdrawals returns withdrawal requests newest first
	ListWithdrawals(ctx context.Context, filter WithdrawalFilter) ([]*WithdrawalRequest, error)
}

// LedgerTx is the set of operations available inside a ledger transaction.
// Callers lock the user before the inventory.
type LedgerTx interface {
	// LockUser serializes all ledger work for the user and returns the
	// current balance
	LockUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// LockInventory serializes all work touching the shop inventory
	LockInventory(ctx context.Context) error

	SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error

	// Lots returns the holder's lots of one gold type, oldest first
	Lots(ctx context.Context, holder Holder, goldType GoldType) (Lots, error)
	InsertLot(ctx context.Context, lot *Lot) error
	UpdateLotAmount(ctx context.Context, lotID uuid.UUID, amount decimal.Decimal) error
	DeleteLot(ctx context.Context, lotID uuid.UUID) error

	InsertTransaction(ctx context.Context, txn *Transaction) error
	// GetTransaction loads and locks a transaction
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, txn *Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error

	StockSummary(ctx context.Context, goldType GoldType) (StockSummary, error)

	SlipExists(ctx context.Context, transRef string) (bool, error)
	// InsertSlip fails with ErrAlreadyUsed on a duplicate trans_ref
	InsertSlip(ctx context.Context, slip *VerifiedSlip) error
	DepositTotalSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)
	// DepositLimitFor returns the user's limit tier, nil when unlimited
	DepositLimitFor(ctx context.Context, userID uuid.UUID) (*DepositLimit, error)

	InsertWithdrawal(ctx context.Context, w *WithdrawalRequest) error
	// GetWithdrawal loads and locks a withdrawal request
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*WithdrawalRequest, error)
	UpdateWithdrawal(ctx context.Context, w *WithdrawalRequest) error
}
