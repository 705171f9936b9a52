package dto

import (
	"github.com/shopspring/decimal"

	"goldtrade/internal/domain"
)

// UserOutput represents user details in API responses
type UserOutput struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// NewUserOutput converts a domain user
func NewUserOutput(u *domain.User) *UserOutput {
	return &UserOutput{
		ID:    u.ID.String(),
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

// MeOutput is the signed-in user with their cash balance
type MeOutput struct {
	*UserOutput
	Balance decimal.Decimal `json:"balance"`
}

// AssetsOutput lists a customer's cash and gold
type AssetsOutput struct {
	Balance  decimal.Decimal  `json:"balance"`
	Holdings []domain.Holding `json:"holdings"`
}

// TradeRequest is a customer buy or sell
type TradeRequest struct {
	Type         string          `json:"type" validate:"required,oneof=buy sell"`
	GoldType     string          `json:"goldType" validate:"required,oneof=gold_bar gold_ornament"`
	Amount       decimal.Decimal `json:"amount"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
}

// ToDomain converts the payload into a trade request
func (r *TradeRequest) ToDomain() domain.TradeRequest {
	return domain.TradeRequest{
		GoldType:     domain.GoldType(r.GoldType),
		Amount:       r.Amount,
		PricePerUnit: r.PricePerUnit,
		TotalPrice:   r.TotalPrice,
	}
}

// WithdrawalRequest asks for cash or gold to be paid out
type WithdrawalRequest struct {
	Kind     string          `json:"kind" validate:"required,oneof=cash gold"`
	GoldType string          `json:"goldType" validate:"omitempty,oneof=gold_bar gold_ornament"`
	Amount   decimal.Decimal `json:"amount"`
}

// ToDomain converts the payload into a withdrawal input
func (r *WithdrawalRequest) ToDomain() domain.WithdrawalInput {
	return domain.WithdrawalInput{
		Kind:     r.Kind,
		GoldType: domain.GoldType(r.GoldType),
		Amount:   r.Amount,
	}
}

// SlipResponse is the deposit endpoint's outcome
type SlipResponse struct {
	Status  string                `json:"status"`
	Message string                `json:"message"`
	Data    *domain.DepositResult `json:"data,omitempty"`
}
