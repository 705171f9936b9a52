package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a customer or an operator account
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	PasswordHash   string     `json:"-"` // Never expose password hash in JSON
	Role           string     `json:"role"`
	DepositLimitID *uuid.UUID `json:"deposit_limit_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserRole constants
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// IsAdmin reports whether the user operates the shop
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DepositLimit is a named tier of cash deposit ceilings.
// A zero limit means that window is not capped.
type DepositLimit struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	DailyLimit   decimal.Decimal `json:"daily_limit"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Allows reports whether amount can be deposited on top of what was already
// deposited today and this month. Reaching a limit exactly is allowed.
func (l *DepositLimit) Allows(depositedToday, depositedThisMonth, amount decimal.Decimal) bool {
	if l == nil {
		return true
	}
	if l.DailyLimit.IsPositive() && depositedToday.Add(amount).GreaterThan(l.DailyLimit) {
		return false
	}
	if l.MonthlyLimit.IsPositive() && depositedThisMonth.Add(amount).GreaterThan(l.MonthlyLimit) {
		return false
	}
	return true
}
