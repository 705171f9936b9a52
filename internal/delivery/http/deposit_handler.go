package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"goldtrade/internal/delivery/http/dto"
	"goldtrade/internal/domain"
	"goldtrade/internal/middleware"
)

// DepositHandler accepts bank-transfer slips
type DepositHandler struct {
	deposits DepositUsecase
	maxBytes int64
	log      *zap.Logger
}

// NewDepositHandler creates a new DepositHandler
func NewDepositHandler(deposits DepositUsecase, maxBytes int64, log *zap.Logger) *DepositHandler {
	return &DepositHandler{deposits: deposits, maxBytes: maxBytes, log: log}
}

var slipMessages = map[string]string{
	domain.SlipOK:                   "Deposit credited",
	domain.SlipInvalidPayload:       "Slip image and amount are required",
	domain.SlipImageTooLarge:        "Slip image is too large",
	domain.SlipInvalidImage:         "Slip image could not be read",
	domain.SlipInvalidReceiver:      "Transfer was not made to the shop account",
	domain.SlipAlreadyUsed:          "Slip has already been used",
	domain.SlipDepositLimitExceeded: "Deposit limit exceeded",
	domain.SlipServerError:          "Slip verification failed, please try again",
}

// SubmitSlip verifies an uploaded slip and credits the balance
// POST /api/user/deposits/slip (multipart: slip, amount)
func (h *DepositHandler) SubmitSlip(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	upload, err := h.readUpload(c)
	if err != nil {
		return h.respond(c, nil, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	result, err := h.deposits.SubmitSlip(ctx, userID, upload)
	return h.respond(c, result, err)
}

// slipFormOverhead is the room left for the amount field and multipart
// headers around the image
const slipFormOverhead = 64 << 10

func (h *DepositHandler) readUpload(c echo.Context) (domain.SlipUpload, error) {
	req := c.Request()
	if h.maxBytes > 0 {
		limit := h.maxBytes + slipFormOverhead
		if req.ContentLength > limit {
			return domain.SlipUpload{}, fmt.Errorf("%w: request of %d bytes", domain.ErrImageTooLarge, req.ContentLength)
		}
		req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)
	}
	if _, err := c.MultipartForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.SlipUpload{}, fmt.Errorf("%w: request over %d bytes", domain.ErrImageTooLarge, tooLarge.Limit)
		}
		return domain.SlipUpload{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	amount, err := decimal.NewFromString(c.FormValue("amount"))
	if err != nil {
		return domain.SlipUpload{}, fmt.Errorf("%w: invalid amount", domain.ErrInvalidInput)
	}

	fh, err := c.FormFile("slip")
	if err != nil {
		return domain.SlipUpload{}, fmt.Errorf("%w: missing slip", domain.ErrInvalidInput)
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		return domain.SlipUpload{}, fmt.Errorf("%w: %d bytes", domain.ErrImageTooLarge, fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return domain.SlipUpload{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	defer f.Close()

	// one extra byte lets the usecase see an oversized body
	limit := h.maxBytes
	if limit <= 0 {
		limit = 32 << 20
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return domain.SlipUpload{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	return domain.SlipUpload{Filename: fh.Filename, Data: data, Amount: amount}, nil
}

func (h *DepositHandler) respond(c echo.Context, result *domain.DepositResult, err error) error {
	outcome := domain.SlipOutcome(err)
	status := http.StatusOK
	if err != nil {
		status = ErrorToStatusCode(err)
		if outcome == domain.SlipServerError && !errors.Is(err, domain.ErrUpstreamFailure) {
			h.log.Error("slip deposit failed", zap.Error(err))
		}
	}
	return c.JSON(status, dto.SlipResponse{
		Status:  outcome,
		Message: slipMessages[outcome],
		Data:    result,
	})
}
