package http

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"goldtrade/internal/domain"
)

// Response represents a standardized API response
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// SuccessResponse sends a success response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// SuccessMessageResponse sends a success response with a message
func SuccessMessageResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Status: "success",
		Data:   data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c echo.Context, statusCode int, message string, err interface{}) error {
	return c.JSON(statusCode, Response{
		Status:  "error",
		Message: message,
		Error:   err,
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, message, nil)
}

// UnauthorizedResponse sends a 401 Unauthorized response
func UnauthorizedResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

// ErrorToStatusCode maps ledger errors to HTTP status codes
func ErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInvalidImage),
		errors.Is(err, domain.ErrInvalidReceiver):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInsufficientGoldStock),
		errors.Is(err, domain.ErrAlreadyUsed),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLimitExceeded):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUpstreamFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes the envelope for a usecase error. Internal errors keep
// their detail out of the response.
func HandleError(c echo.Context, log *zap.Logger, message string, err error) error {
	status := ErrorToStatusCode(err)
	if status == http.StatusInternalServerError {
		log.Error(message, zap.Error(err), zap.String("path", c.Path()))
		return ErrorResponse(c, status, message, nil)
	}
	return ErrorResponse(c, status, message, err.Error())
}

// Validator adapts go-playground/validator to echo
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates the request validator
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate validates a bound request struct
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// bindAndValidate binds the request into a T and runs its validate tags.
// On failure the 400 response has already been written and ok is false.
func bindAndValidate[T any](c echo.Context) (req *T, ok bool, err error) {
	var input T
	if err := c.Bind(&input); err != nil {
		return nil, false, BadRequestResponse(c, "Invalid request payload")
	}
	if err := c.Validate(&input); err != nil {
		return nil, false, ErrorResponse(c, http.StatusBadRequest, "Validation failed", err.Error())
	}
	return &input, true, nil
}
