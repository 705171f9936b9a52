package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VerifiedSlip records a redeemed bank-transfer slip. TransRef is unique.
type VerifiedSlip struct {
	TransRef   string          `json:"trans_ref"`
	UserID     uuid.UUID       `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	VerifiedAt time.Time       `json:"verified_at"`
}

// SlipUpload is a slip image submitted by a customer
type SlipUpload struct {
	Filename string
	Data     []byte
	Amount   decimal.Decimal
}

// SlipParty is one side of a decoded transfer
type SlipParty struct {
	BankID    string
	BankName  string
	NameTH    string
	NameEN    string
	AccountNo string
}

// SlipDetails is what the verification API decoded from the image
type SlipDetails struct {
	TransRef string
	Amount   decimal.Decimal
	Date     time.Time
	Sender   SlipParty
	Receiver SlipParty
}

// Receiver is the shop account every deposit must be sent to
type Receiver struct {
	BankID          string
	AccountFragment string
	NameTH          string
	NameEN          string
}

// Matches checks the decoded receiver against the expected one. The bank and
// account fragment must match; the name matches on either language, exactly
// or partially (one containing the other), ignoring case and spacing.
func (r Receiver) Matches(p SlipParty) bool {
	if r.BankID != "" && !strings.EqualFold(strings.TrimSpace(p.BankID), r.BankID) {
		return false
	}
	if r.AccountFragment != "" && !strings.Contains(digitsAndX(p.AccountNo), digitsAndX(r.AccountFragment)) {
		return false
	}
	return nameMatches(r.NameTH, p.NameTH) || nameMatches(r.NameEN, p.NameEN)
}

func nameMatches(expected, actual string) bool {
	e, a := normalizeName(expected), normalizeName(actual)
	if e == "" || a == "" {
		return false
	}
	return e == a || strings.Contains(e, a) || strings.Contains(a, e)
}

// Thai honorifics that slips include or drop inconsistently
var namePrefixes = []string{"นาย", "นางสาว", "นาง", "น.ส.", "mr.", "mrs.", "ms.", "miss"}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range namePrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimPrefix(s, p)
			break
		}
	}
	return strings.Join(strings.Fields(s), "")
}

// account numbers arrive masked, e.g. "xxx-x-x1234-x"
func digitsAndX(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= '0' && r <= '9') || r == 'x' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "x")
}

// DepositResult is returned after a slip has been credited
type DepositResult struct {
	TransRef string          `json:"trans_ref"`
	Amount   decimal.Decimal `json:"amount"`
	Balance  decimal.Decimal `json:"balance"`
}

// Slip outcome codes returned to the uploader
const (
	SlipOK                   = "success"
	SlipInvalidPayload       = "invalid_payload"
	SlipImageTooLarge        = "image_size_too_large"
	SlipInvalidImage         = "invalid_image"
	SlipInvalidReceiver      = "invalid_receiver"
	SlipAlreadyUsed          = "slip_already_used"
	SlipDepositLimitExceeded = "deposit_limit_exceeded"
	SlipServerError          = "server_error"
)

// SlipOutcome maps a slip submission error to its outcome code
func SlipOutcome(err error) string {
	switch {
	case err == nil:
		return SlipOK
	case errors.Is(err, ErrImageTooLarge):
		return SlipImageTooLarge
	case errors.Is(err, ErrInvalidImage):
		return SlipInvalidImage
	case errors.Is(err, ErrInvalidReceiver):
		return SlipInvalidReceiver
	case errors.Is(err, ErrAlreadyUsed):
		return SlipAlreadyUsed
	case errors.Is(err, ErrLimitExceeded):
		return SlipDepositLimitExceeded
	case errors.Is(err, ErrInvalidInput):
		return SlipInvalidPayload
	default:
		return SlipServerError
	}
}
