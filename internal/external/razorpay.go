package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"craftfolio/internal/types"
)

// razorpayAPIBase is the default Razorpay API base URL.
// Overridable in tests via RazorpayClientConfig.BaseURL.
const razorpayAPIBase = "https://api.razorpay.com"

// maxProviderResponseSize caps how much of a provider response we are
// willing to buffer (256 KB). Order objects are small; this protects
// against a misbehaving upstream.
const maxProviderResponseSize = 256 * 1024

// OrderCreator mints a provider order that the client-side checkout flow
// completes. The returned order object is the provider's own representation,
// passed through verbatim.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req OrderRequest) (json.RawMessage, error)
}

// OrderRequest carries the parameters for minting a provider order.
// Amount is in the currency's minor units (e.g., paise).
type OrderRequest struct {
	Amount   int64
	Currency string
	PlanName string
	UserID   string
}

// RazorpayClientConfig holds the configuration for creating a RazorpayClient.
type RazorpayClientConfig struct {
	KeyID     string
	KeySecret types.SecretString
	BaseURL   string // Override for testing; defaults to razorpayAPIBase
	Logger    *slog.Logger
}

// RazorpayClient implements OrderCreator by making direct HTTP calls to the
// Razorpay REST API through BaseClient. Routing all requests through
// BaseClient gives the provider integration the platform's resilience
// behavior (circuit breaker, retries, error mapping) and makes testing with
// httptest straightforward.
type RazorpayClient struct {
	base      *BaseClient
	keyID     string
	keySecret types.SecretString
	baseURL   string
	logger    *slog.Logger
}

// NewRazorpayClient creates a new RazorpayClient. The httpClient timeout
// bounds each individual attempt; retries are governed by the BaseClient
// retry policy.
func NewRazorpayClient(httpClient *http.Client, cfg RazorpayClientConfig) *RazorpayClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = razorpayAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(
		httpClient,
		"razorpay",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		"Craftfolio/1.0",
	)

	return &RazorpayClient{
		base:      base,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
	}
}

// NewRazorpayClientWithBase creates a RazorpayClient with a pre-configured
// BaseClient. This is useful for testing when you want to control the
// BaseClient configuration (e.g., no-op sleep between retries).
func NewRazorpayClientWithBase(base *BaseClient, cfg RazorpayClientConfig) *RazorpayClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = razorpayAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RazorpayClient{
		base:      base,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
	}
}

// razorpayOrderPayload is the request body for POST /v1/orders.
type razorpayOrderPayload struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// CreateOrder mints an order with the provider and returns the provider's
// order object verbatim. The receipt is a server-generated unique reference;
// plan name and user ID travel in the order notes so the charge can be
// reconciled from the provider dashboard.
func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (json.RawMessage, error) {
	payload := razorpayOrderPayload{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  "receipt_" + uuid.NewString(),
		Notes: map[string]string{
			"planName": req.PlanName,
			"userId":   req.UserID,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to encode order payload",
			err,
		)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to build order request",
			err,
		)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret.Unmask())

	resp, err := c.base.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseSize))
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamProvider,
			"failed to read provider response",
			err,
		)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorContext(ctx, "order creation rejected by provider",
			"status", resp.StatusCode,
			"plan", req.PlanName,
		)
		return nil, types.NewAppError(
			types.ErrCodeUpstreamProvider,
			fmt.Sprintf("provider rejected order creation with status %d", resp.StatusCode),
			nil,
		)
	}

	// Validate that the body is well-formed JSON before passing it through.
	if !json.Valid(respBody) {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamProvider,
			"provider returned malformed order object",
			nil,
		)
	}

	return json.RawMessage(respBody), nil
}

// Compile-time assertion that RazorpayClient satisfies OrderCreator.
var _ OrderCreator = (*RazorpayClient)(nil)
