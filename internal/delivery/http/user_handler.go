package http

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"goldtrade/internal/delivery/http/dto"
	"goldtrade/internal/domain"
	"goldtrade/internal/middleware"
)

// UserHandler handles customer requests
type UserHandler struct {
	userRepo    domain.UserRepository
	ledger      LedgerUsecase
	withdrawals WithdrawalUsecase
	log         *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(
	userRepo domain.UserRepository,
	ledger LedgerUsecase,
	withdrawals WithdrawalUsecase,
	log *zap.Logger,
) *UserHandler {
	return &UserHandler{
		userRepo:    userRepo,
		ledger:      ledger,
		withdrawals: withdrawals,
		log:         log,
	}
}

// GetMe returns current user details
// GET /api/user/me
func (h *UserHandler) GetMe(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		return HandleError(c, h.log, "Failed to get user details", err)
	}
	balance, err := h.ledger.Balance(ctx, userID)
	if err != nil {
		return HandleError(c, h.log, "Failed to get balance", err)
	}

	return SuccessResponse(c, dto.MeOutput{
		UserOutput: dto.NewUserOutput(user),
		Balance:    balance,
	})
}

// GetAssets returns the cash balance and gold holdings
// GET /api/user/assets
func (h *UserHandler) GetAssets(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	balance, err := h.ledger.Balance(ctx, userID)
	if err != nil {
		return HandleError(c, h.log, "Failed to get balance", err)
	}
	holdings, err := h.ledger.Holdings(ctx, userID)
	if err != nil {
		return HandleError(c, h.log, "Failed to get holdings", err)
	}

	return SuccessResponse(c, dto.AssetsOutput{Balance: balance, Holdings: holdings})
}

// GetTransactions lists the user's transactions, newest first
// GET /api/user/transactions?type=buy,sell&limit=50
func (h *UserHandler) GetTransactions(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	filter, err := transactionFilter(c)
	if err != nil {
		return BadRequestResponse(c, err.Error())
	}
	filter.UserID = &userID

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	txns, err := h.ledger.Transactions(ctx, filter)
	if err != nil {
		return HandleError(c, h.log, "Failed to get transactions", err)
	}
	return SuccessResponse(c, txns)
}

// Trade buys or sells gold
// POST /api/user/transactions
func (h *UserHandler) Trade(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	req, ok, err := bindAndValidate[dto.TradeRequest](c)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var result *domain.TradeResult
	switch req.Type {
	case string(domain.TxnBuy):
		result, err = h.ledger.Buy(ctx, userID, req.ToDomain())
	default:
		result, err = h.ledger.Sell(ctx, userID, req.ToDomain())
	}
	if err != nil {
		return HandleError(c, h.log, fmt.Sprintf("Failed to %s gold", req.Type), err)
	}

	return CreatedResponse(c, result)
}

// RequestWithdrawal files a cash or gold withdrawal
// POST /api/user/withdrawals
func (h *UserHandler) RequestWithdrawal(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	req, ok, err := bindAndValidate[dto.WithdrawalRequest](c)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	w, err := h.withdrawals.Request(ctx, userID, req.ToDomain())
	if err != nil {
		return HandleError(c, h.log, "Failed to request withdrawal", err)
	}
	return CreatedResponse(c, w)
}

// GetWithdrawals lists the user's withdrawal requests
// GET /api/user/withdrawals
func (h *UserHandler) GetWithdrawals(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.withdrawals.List(ctx, domain.WithdrawalFilter{UserID: &userID, Status: c.QueryParam("status")})
	if err != nil {
		return HandleError(c, h.log, "Failed to get withdrawals", err)
	}
	return SuccessResponse(c, list)
}

// transactionFilter reads the type and limit query parameters
func transactionFilter(c echo.Context) (domain.TransactionFilter, error) {
	var filter domain.TransactionFilter
	if raw := c.QueryParam("type"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			filter.Types = append(filter.Types, domain.TransactionType(strings.TrimSpace(t)))
		}
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}
