package slip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"goldtrade/internal/domain"
)

// Client verifies transfer slips against an EasySlip-compatible API
type Client struct {
	httpClient *retryablehttp.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a new slip verification client
func NewClient(httpClient *retryablehttp.Client, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type bankInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Short string `json:"short"`
}

type party struct {
	Bank    bankInfo `json:"bank"`
	Account struct {
		Name struct {
			TH string `json:"th"`
			EN string `json:"en"`
		} `json:"name"`
		Bank struct {
			Type    string `json:"type"`
			Account string `json:"account"`
		} `json:"bank"`
	} `json:"account"`
}

type verifyResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    struct {
		TransRef string `json:"transRef"`
		Date     string `json:"date"`
		Amount   struct {
			Amount decimal.Decimal `json:"amount"`
		} `json:"amount"`
		Sender   party `json:"sender"`
		Receiver party `json:"receiver"`
	} `json:"data"`
}

// Verify uploads the slip image and returns the decoded transfer
func (c *Client) Verify(ctx context.Context, upload domain.SlipUpload) (*domain.SlipDetails, error) {
	body, contentType, err := multipartBody(upload)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: slip API request failed: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", domain.ErrUpstreamFailure, err)
	}

	var out verifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: slip API status=%d, body=%s", domain.ErrUpstreamFailure, resp.StatusCode, string(raw))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, out.Message)
	}
	if out.Data.TransRef == "" {
		return nil, fmt.Errorf("%w: slip API returned no transaction reference", domain.ErrUpstreamFailure)
	}

	details := &domain.SlipDetails{
		TransRef: out.Data.TransRef,
		Amount:   out.Data.Amount.Amount,
		Sender:   toParty(out.Data.Sender),
		Receiver: toParty(out.Data.Receiver),
	}
	if out.Data.Date != "" {
		if t, err := time.Parse(time.RFC3339, out.Data.Date); err == nil {
			details.Date = t
		}
	}
	return details, nil
}

func multipartBody(upload domain.SlipUpload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := upload.Filename
	if name == "" {
		name = "slip.jpg"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write slip image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// apiError maps the API's error message to a ledger error
func apiError(status int, message string) error {
	switch message {
	case "invalid_image", "qrcode_not_found", "slip_not_found":
		return fmt.Errorf("%w: %s", domain.ErrInvalidImage, message)
	case "image_size_too_large":
		return fmt.Errorf("%w: %s", domain.ErrImageTooLarge, message)
	case "duplicate_slip":
		return fmt.Errorf("%w: %s", domain.ErrAlreadyUsed, message)
	}
	return fmt.Errorf("%w: slip API status=%d, message=%s", domain.ErrUpstreamFailure, status, message)
}

func toParty(p party) domain.SlipParty {
	bankID := p.Bank.ID
	if bankID == "" {
		bankID = p.Bank.Short
	}
	return domain.SlipParty{
		BankID:    bankID,
		BankName:  p.Bank.Name,
		NameTH:    p.Account.Name.TH,
		NameEN:    p.Account.Name.EN,
		AccountNo: p.Account.Bank.Account,
	}
}
