package http

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"goldtrade/internal/delivery/http/dto"
	"goldtrade/internal/domain"
	"goldtrade/internal/middleware"
)

// AdminHandler handles shop operator requests
type AdminHandler struct {
	ledger      LedgerUsecase
	withdrawals WithdrawalUsecase
	prices      PriceUsecase
	settings    domain.SettingsRepository
	userRepo    domain.UserRepository
	limitRepo   domain.DepositLimitRepository
	log         *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	ledger LedgerUsecase,
	withdrawals WithdrawalUsecase,
	prices PriceUsecase,
	settings domain.SettingsRepository,
	userRepo domain.UserRepository,
	limitRepo domain.DepositLimitRepository,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		ledger:      ledger,
		withdrawals: withdrawals,
		prices:      prices,
		settings:    settings,
		userRepo:    userRepo,
		limitRepo:   limitRepo,
		log:         log,
	}
}

// GetStock returns the available stock per gold type
// GET /api/admin/stock
func (h *AdminHandler) GetStock(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stock, err := h.ledger.Stock(ctx)
	if err != nil {
		return HandleError(c, h.log, "Failed to get stock", err)
	}
	return SuccessResponse(c, stock)
}

// GetInventoryLots returns the inventory lots, oldest first
// GET /api/admin/stock/lots?goldType=gold_bar
func (h *AdminHandler) GetInventoryLots(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lots, err := h.ledger.InventoryLots(ctx, domain.GoldType(c.QueryParam("goldType")))
	if err != nil {
		return HandleError(c, h.log, "Failed to get inventory lots", err)
	}
	return SuccessResponse(c, lots)
}

// AddStock restocks the inventory
// POST /api/admin/stock
func (h *AdminHandler) AddStock(c echo.Context) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}
	req, ok, err := bindAndValidate[dto.AddStockRequest](c)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	result, err := h.ledger.AddStock(ctx, adminID, domain.GoldType(req.GoldType), req.Amount, req.PurchasePrice)
	if err != nil {
		return HandleError(c, h.log, "Failed to add stock", err)
	}
	return CreatedResponse(c, result)
}

// AddToUser credits gold bought over the counter to a customer
// POST /api/admin/add-to-user
func (h *AdminHandler) AddToUser(c echo.Context) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}
	req, ok, err := bindAndValidate[dto.AddToUserRequest](c)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	result, err := h.ledger.AddToUser(ctx, adminID, uuid.MustParse(req.UserID), domain.GoldType(req.GoldType), req.CashAmount, req.GoldPrice)
	if err != nil {
		return HandleError(c, h.log, "Failed to add gold to user", err)
	}
	return CreatedResponse(c, result)
}

// Exchange moves customer gold into the inventory
// POST /api/admin/exchange
func (h *AdminHandler) Exchange(c echo.Context) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}
	req, ok, err := bindAndValidate[dto.ExchangeRequest](c)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	result, err := h.ledger.Exchange(ctx, adminID, uuid.MustParse(req.UserID), domain.GoldType(req.GoldType), req.Amount)
	if err != nil {
		return HandleError(c, h.log, "Failed to exchange gold", err)
	}
	return CreatedResponse(c, result)
}

// JewelryExchange trades customer bullion for a jewelry item
// POST /api/admin/jewelry-exchange
func (h *AdminHandler) JewelryExchange(c echo.Context) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}
	req, ok, err := bindAndValidate[dto.JewelryExchangeRequest](c)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	result, err := h.ledger.JewelryExchange(ctx, adminID, uuid.MustParse(req.UserID), req.JewelryItem, req.Amount)
	if err != nil {
		return HandleError(c, h.log, "Failed to exchange for jewelry", err)
	}
	return CreatedResponse(c, result)
}

// GetTransactions lists transactions across users
// GET /api/admin/transactions?userId=&type=&limit=
func (h *AdminHandler) GetTransactions(c echo.Context) error {
	filter, err := transactionFilter(c)
	if err != nil {
		return BadRequestResponse(c, err.Error())
	}
	if raw := c.QueryParam("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return BadRequestResponse(c, "Invalid userId")
		}
		filter.UserID = &id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	txns, err := h.ledger.Transactions(ctx, filter)
	if err != nil {
		return HandleError(c, h.log, "Failed to get transactions", err)
	}
	return SuccessResponse(c, txns)
}

// CancelTransaction reverses a jewelry exchange
// POST /api/admin/transactions/:id/cancel
func (h *AdminHandler) CancelTransaction(c echo.Context) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}
	txnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid transaction ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	txn, err := h.ledger.CancelJewelryExchange(ctx, adminID, txnID)
	if err != nil {
		return HandleError(c, h.log, "Failed to cancel transaction", err)
	}
	return SuccessMessageResponse(c, "Transaction cancelled", txn)
}

// DeleteTransaction removes a jewelry exchange record
// DELETE /api/admin/transactions/:id
func (h *AdminHandler) DeleteTransaction(c echo.Context) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}
	txnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid transaction ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.ledger.DeleteTransaction(ctx, adminID, txnID); err != nil {
		return HandleError(c, h.log, "Failed to delete transaction", err)
	}
	return SuccessMessageResponse(c, "Transaction deleted", nil)
}

// GetMarkup returns the markup per gold type
// GET /api/admin/markup
func (h *AdminHandler) GetMarkup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	markup, err := h.prices.Markup(ctx)
	if err != nil {
		return HandleError(c, h.log, "Failed to get markup", err)
	}
	return SuccessResponse(c, markup)
}

// UpdateMarkup replaces the markup settings
// PUT /api/admin/markup
func (h *AdminHandler) UpdateMarkup(c echo.Context) error {
	var markup domain.MarkupSettings
	if err := c.Bind(&markup); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.prices.UpdateMarkup(ctx, markup); err != nil {
		return HandleError(c, h.log, "Failed to update markup", err)
	}
	return SuccessMessageResponse(c, "Markup updated", markup)
}

// SetTrading switches customer trading on or off
// PUT /api/admin/trading
func (h *AdminHandler) SetTrading(c echo.Context) error {
	req, ok, err := bindAndValidate[dto.TradingRequest](c)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.settings.SetTradingEnabled(ctx, *req.Enabled); err != nil {
		return HandleError(c, h.log, "Failed to update trading status", err)
	}
	return SuccessResponse(c, map[string]bool{"enabled": *req.Enabled})
}

// GetWithdrawals lists withdrawal requests, optionally by status
// GET /api/admin/withdrawals?status=pending
func (h *AdminHandler) GetWithdrawals(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.withdrawals.List(ctx, domain.WithdrawalFilter{Status: c.QueryParam("status")})
	if err != nil {
		return HandleError(c, h.log, "Failed to get withdrawals", err)
	}
	return SuccessResponse(c, list)
}

// ApproveWithdrawal marks a pending withdrawal as paid out
// POST /api/admin/withdrawals/:id/approve
func (h *AdminHandler) ApproveWithdrawal(c echo.Context) error {
	return h.decide(c, h.withdrawals.Approve, "Failed to approve withdrawal")
}

// RejectWithdrawal refunds a pending withdrawal
// POST /api/admin/withdrawals/:id/reject
func (h *AdminHandler) RejectWithdrawal(c echo.Context) error {
	return h.decide(c, h.withdrawals.Reject, "Failed to reject withdrawal")
}

func (h *AdminHandler) decide(
	c echo.Context,
	fn func(ctx context.Context, adminID, id uuid.UUID, note string) (*domain.WithdrawalRequest, error),
	failMsg string,
) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid withdrawal ID")
	}
	req, ok, err := bindAndValidate[dto.DecisionRequest](c)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	w, err := fn(ctx, adminID, id, req.Note)
	if err != nil {
		return HandleError(c, h.log, failMsg, err)
	}
	return SuccessResponse(c, w)
}

// GetUsers lists every account
// GET /api/admin/users
func (h *AdminHandler) GetUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.userRepo.GetAll(ctx)
	if err != nil {
		return HandleError(c, h.log, "Failed to get users", err)
	}
	return SuccessResponse(c, users)
}

// SetUserDepositLimit assigns a deposit limit tier to a user
// PUT /api/admin/users/:id/deposit-limit
func (h *AdminHandler) SetUserDepositLimit(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid user ID")
	}
	req, ok, err := bindAndValidate[dto.AssignLimitRequest](c)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var limitID *uuid.UUID
	if req.DepositLimitID != "" {
		id := uuid.MustParse(req.DepositLimitID)
		if _, err := h.limitRepo.GetByID(ctx, id); err != nil {
			return HandleError(c, h.log, "Deposit limit not found", err)
		}
		limitID = &id
	}

	if err := h.userRepo.SetDepositLimit(ctx, userID, limitID); err != nil {
		return HandleError(c, h.log, "Failed to set deposit limit", err)
	}
	return SuccessMessageResponse(c, "Deposit limit updated", nil)
}

// GetDepositLimits lists the deposit limit tiers
// GET /api/admin/deposit-limits
func (h *AdminHandler) GetDepositLimits(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	limits, err := h.limitRepo.GetAll(ctx)
	if err != nil {
		return HandleError(c, h.log, "Failed to get deposit limits", err)
	}
	return SuccessResponse(c, limits)
}

// CreateDepositLimit adds a deposit limit tier
// POST /api/admin/deposit-limits
func (h *AdminHandler) CreateDepositLimit(c echo.Context) error {
	req, ok, err := bindAndValidate[dto.DepositLimitRequest](c)
	if !ok {
		return err
	}
	if req.DailyLimit.IsNegative() || req.MonthlyLimit.IsNegative() {
		return BadRequestResponse(c, "Limits must not be negative")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	limit := &domain.DepositLimit{
		ID:           uuid.New(),
		Name:         req.Name,
		DailyLimit:   req.DailyLimit,
		MonthlyLimit: req.MonthlyLimit,
		CreatedAt:    time.Now(),
	}
	if err := h.limitRepo.Create(ctx, limit); err != nil {
		return HandleError(c, h.log, "Failed to create deposit limit", err)
	}
	return CreatedResponse(c, limit)
}
