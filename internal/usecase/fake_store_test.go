package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"goldtrade/internal/domain"
)

// memStore is an in-memory LedgerStore. Transactions are serialized and
// rolled back by restoring a snapshot. Lot amounts are rounded to the
// column scale on write, as Postgres does.
type memStore struct {
	mu sync.Mutex

	balances    map[uuid.UUID]decimal.Decimal
	lots        []*domain.Lot
	txns        map[uuid.UUID]*domain.Transaction
	slips       map[string]*domain.VerifiedSlip
	limits      map[uuid.UUID]*domain.DepositLimit
	withdrawals map[uuid.UUID]*domain.WithdrawalRequest
	seq         int64
}

func newMemStore() *memStore {
	return &memStore{
		balances:    make(map[uuid.UUID]decimal.Decimal),
		txns:        make(map[uuid.UUID]*domain.Transaction),
		slips:       make(map[string]*domain.VerifiedSlip),
		limits:      make(map[uuid.UUID]*domain.DepositLimit),
		withdrawals: make(map[uuid.UUID]*domain.WithdrawalRequest),
	}
}

type memSnapshot struct {
	balances    map[uuid.UUID]decimal.Decimal
	lots        []*domain.Lot
	txns        map[uuid.UUID]*domain.Transaction
	slips       map[string]*domain.VerifiedSlip
	withdrawals map[uuid.UUID]*domain.WithdrawalRequest
	seq         int64
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		balances:    make(map[uuid.UUID]decimal.Decimal, len(m.balances)),
		txns:        make(map[uuid.UUID]*domain.Transaction, len(m.txns)),
		slips:       make(map[string]*domain.VerifiedSlip, len(m.slips)),
		withdrawals: make(map[uuid.UUID]*domain.WithdrawalRequest, len(m.withdrawals)),
		seq:         m.seq,
	}
	for k, v := range m.balances {
		s.balances[k] = v
	}
	for _, l := range m.lots {
		c := *l
		s.lots = append(s.lots, &c)
	}
	for k, v := range m.txns {
		c := *v
		s.txns[k] = &c
	}
	for k, v := range m.slips {
		c := *v
		s.slips[k] = &c
	}
	for k, v := range m.withdrawals {
		c := *v
		s.withdrawals[k] = &c
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.balances = s.balances
	m.lots = s.lots
	m.txns = s.txns
	m.slips = s.slips
	m.withdrawals = s.withdrawals
	m.seq = s.seq
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&memTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) ListLots(ctx context.Context, holder domain.Holder, goldType domain.GoldType) (domain.Lots, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lotsOf(holder, goldType), nil
}

func (m *memStore) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Transaction
	for _, t := range m.txns {
		if filter.UserID != nil && t.UserID != *filter.UserID {
			continue
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, t.Kind.Type) {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func containsType(types []domain.TransactionType, t domain.TransactionType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func (m *memStore) StockSummaries(ctx context.Context) ([]domain.StockSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.StockSummary, 0, len(domain.GoldTypes))
	for _, t := range domain.GoldTypes {
		out = append(out, m.summary(t))
	}
	return out, nil
}

func (m *memStore) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *memStore) ListWithdrawals(ctx context.Context, filter domain.WithdrawalFilter) ([]*domain.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.WithdrawalRequest
	for _, w := range m.withdrawals {
		if filter.UserID != nil && w.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && w.Status != filter.Status {
			continue
		}
		c := *w
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) lotsOf(holder domain.Holder, goldType domain.GoldType) domain.Lots {
	var out domain.Lots
	for _, l := range m.lots {
		if l.Holder != holder || (goldType != "" && l.GoldType != goldType) {
			continue
		}
		c := *l
		out = append(out, &c)
	}
	return out.Oldest()
}

func (m *memStore) summary(goldType domain.GoldType) domain.StockSummary {
	inventory, customers := decimal.Zero, decimal.Zero
	for _, l := range m.lots {
		if l.GoldType != goldType {
			continue
		}
		if l.Holder.IsInventory() {
			inventory = inventory.Add(l.Amount)
		} else {
			customers = customers.Add(l.Amount)
		}
	}
	return domain.NewStockSummary(goldType, inventory, customers)
}

// seed helpers

func (m *memStore) setBalance(userID uuid.UUID, v string) {
	m.balances[userID] = decimal.RequireFromString(v)
}

func (m *memStore) addLot(holder domain.Holder, goldType domain.GoldType, amount, price string, at time.Time) *domain.Lot {
	l := domain.NewLot(holder, goldType, decimal.RequireFromString(amount), decimal.RequireFromString(price), domain.LotReasonRestock, nil, at)
	m.seq++
	l.Seq = m.seq
	m.lots = append(m.lots, l)
	return l
}

func (m *memStore) total(holder domain.Holder, goldType domain.GoldType) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lotsOf(holder, goldType).Total()
}

type memTx struct {
	m *memStore
}

func (t *memTx) LockUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return t.m.balances[userID], nil
}

func (t *memTx) LockInventory(ctx context.Context) error { return nil }

func (t *memTx) SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error {
	t.m.balances[userID] = balance
	return nil
}

func (t *memTx) Lots(ctx context.Context, holder domain.Holder, goldType domain.GoldType) (domain.Lots, error) {
	return t.m.lotsOf(holder, goldType), nil
}

func (t *memTx) InsertLot(ctx context.Context, lot *domain.Lot) error {
	t.m.seq++
	c := *lot
	c.Seq = t.m.seq
	c.Amount = c.Amount.Round(domain.GoldScale)
	t.m.lots = append(t.m.lots, &c)
	return nil
}

func (t *memTx) UpdateLotAmount(ctx context.Context, lotID uuid.UUID, amount decimal.Decimal) error {
	for _, l := range t.m.lots {
		if l.ID == lotID {
			l.Amount = amount.Round(domain.GoldScale)
			return nil
		}
	}
	return fmt.Errorf("lot %s: %w", lotID, domain.ErrNotFound)
}

func (t *memTx) DeleteLot(ctx context.Context, lotID uuid.UUID) error {
	for i, l := range t.m.lots {
		if l.ID == lotID {
			t.m.lots = append(t.m.lots[:i], t.m.lots[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("lot %s: %w", lotID, domain.ErrNotFound)
}

func (t *memTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	c := *txn
	t.m.txns[txn.ID] = &c
	return nil
}

func (t *memTx) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	txn, ok := t.m.txns[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	c := *txn
	return &c, nil
}

func (t *memTx) UpdateTransaction(ctx context.Context, txn *domain.Transaction) error {
	if _, ok := t.m.txns[txn.ID]; !ok {
		return fmt.Errorf("transaction %s: %w", txn.ID, domain.ErrNotFound)
	}
	c := *txn
	t.m.txns[txn.ID] = &c
	return nil
}

func (t *memTx) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	delete(t.m.txns, id)
	return nil
}

func (t *memTx) StockSummary(ctx context.Context, goldType domain.GoldType) (domain.StockSummary, error) {
	return t.m.summary(goldType), nil
}

func (t *memTx) SlipExists(ctx context.Context, transRef string) (bool, error) {
	_, ok := t.m.slips[transRef]
	return ok, nil
}

func (t *memTx) InsertSlip(ctx context.Context, slip *domain.VerifiedSlip) error {
	if _, ok := t.m.slips[slip.TransRef]; ok {
		return domain.ErrAlreadyUsed
	}
	c := *slip
	t.m.slips[slip.TransRef] = &c
	return nil
}

func (t *memTx) DepositTotalSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, s := range t.m.slips {
		if s.UserID == userID && !s.VerifiedAt.Before(since) {
			total = total.Add(s.Amount)
		}
	}
	return total, nil
}

func (t *memTx) DepositLimitFor(ctx context.Context, userID uuid.UUID) (*domain.DepositLimit, error) {
	return t.m.limits[userID], nil
}

func (t *memTx) InsertWithdrawal(ctx context.Context, w *domain.WithdrawalRequest) error {
	c := *w
	t.m.withdrawals[w.ID] = &c
	return nil
}

func (t *memTx) GetWithdrawal(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	w, ok := t.m.withdrawals[id]
	if !ok {
		return nil, fmt.Errorf("withdrawal %s: %w", id, domain.ErrNotFound)
	}
	c := *w
	return &c, nil
}

func (t *memTx) UpdateWithdrawal(ctx context.Context, w *domain.WithdrawalRequest) error {
	c := *w
	t.m.withdrawals[w.ID] = &c
	return nil
}

// memUsers is an in-memory UserRepository
type memUsers struct {
	users map[uuid.UUID]*domain.User
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(ctx context.Context, user *domain.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

func (m *memUsers) GetAll(ctx context.Context) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) SetDepositLimit(ctx context.Context, userID uuid.UUID, limitID *uuid.UUID) error {
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.DepositLimitID = limitID
	return nil
}

// recordingSink keeps emitted events for assertions
type recordingSink struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

func (r *recordingSink) Emit(evt domain.LedgerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingSink) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

// tickingClock returns a clock that advances one second per call
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
