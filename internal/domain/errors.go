package domain

import "errors"

// Ledger error taxonomy. Callers wrap these with context using %w and
// match them with errors.Is.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientGoldStock = errors.New("insufficient gold stock")
	ErrAlreadyUsed           = errors.New("slip already used")
	ErrLimitExceeded         = errors.New("deposit limit exceeded")
	ErrUpstreamFailure       = errors.New("upstream failure")
	ErrInvalidTransition     = errors.New("invalid transition")

	// Slip upload rejections
	ErrImageTooLarge   = errors.New("image size too large")
	ErrInvalidImage    = errors.New("invalid image")
	ErrInvalidReceiver = errors.New("invalid receiver")
)
