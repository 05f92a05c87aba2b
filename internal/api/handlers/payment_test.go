package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftfolio/internal/billing"
	"craftfolio/internal/core"
	"craftfolio/internal/types"
)

// mockPaymentService is a function-field test double for PaymentService.
type mockPaymentService struct {
	createOrder    func(ctx context.Context, userID string, amount int64, planName string) (json.RawMessage, error)
	verifyCallback func(ctx context.Context, userID string, cb types.PaymentCallback) (*billing.VerificationResult, error)
}

func (m *mockPaymentService) CreateOrder(ctx context.Context, userID string, amount int64, planName string) (json.RawMessage, error) {
	return m.createOrder(ctx, userID, amount, planName)
}

func (m *mockPaymentService) VerifyCallback(ctx context.Context, userID string, cb types.PaymentCallback) (*billing.VerificationResult, error) {
	return m.verifyCallback(ctx, userID, cb)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPaymentHandler(svc PaymentService) *PaymentHandler {
	return NewPaymentHandler(svc, core.NewValidator(testLogger()), testLogger())
}

func authedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := types.WithActor(r.Context(), types.Actor{UserID: "user_1", Email: "ada@example.com"})
	ctx = types.WithRequestID(ctx, "req_test_1")
	return r.WithContext(ctx)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) core.APIErrorResponse {
	t.Helper()
	var resp core.APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- CreateOrder ---

func TestCreateOrder_Success(t *testing.T) {
	var gotUserID, gotPlan string
	var gotAmount int64
	svc := &mockPaymentService{
		createOrder: func(ctx context.Context, userID string, amount int64, planName string) (json.RawMessage, error) {
			gotUserID, gotAmount, gotPlan = userID, amount, planName
			return json.RawMessage(`{"id":"order_123","amount":1000,"currency":"INR"}`), nil
		},
	}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/v1/payments/orders", `{"amount":1000,"planName":"basic"}`)

	newPaymentHandler(svc).CreateOrder(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user_1", gotUserID)
	assert.Equal(t, int64(1000), gotAmount)
	assert.Equal(t, "basic", gotPlan)
	// The provider order object comes back verbatim under data.order.
	assert.JSONEq(t,
		`{"data":{"order":{"id":"order_123","amount":1000,"currency":"INR"}}}`,
		w.Body.String(),
	)
}

func TestCreateOrder_MissingPlanName(t *testing.T) {
	svc := &mockPaymentService{
		createOrder: func(ctx context.Context, userID string, amount int64, planName string) (json.RawMessage, error) {
			t.Fatal("service must not be called for invalid input")
			return nil, nil
		},
	}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/v1/payments/orders", `{"amount":1000}`)

	newPaymentHandler(svc).CreateOrder(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, string(types.ErrCodeValidationMissingField), resp.Error.Code)
	assert.Equal(t, "planName", resp.Error.Details["field"])
}

func TestCreateOrder_NonPositiveAmount(t *testing.T) {
	svc := &mockPaymentService{}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/v1/payments/orders", `{"amount":-5,"planName":"basic"}`)

	newPaymentHandler(svc).CreateOrder(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, string(types.ErrCodeValidationInvalidField), resp.Error.Code)
}

func TestCreateOrder_UnknownPlanFromService(t *testing.T) {
	svc := &mockPaymentService{
		createOrder: func(ctx context.Context, userID string, amount int64, planName string) (json.RawMessage, error) {
			return nil, types.NewAppError(types.ErrCodeBillingInvalidPlan, "unknown plan: gold", nil)
		},
	}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/v1/payments/orders", `{"amount":1000,"planName":"gold"}`)

	newPaymentHandler(svc).CreateOrder(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(types.ErrCodeBillingInvalidPlan), decodeError(t, w).Error.Code)
}

func TestCreateOrder_ProviderDown(t *testing.T) {
	svc := &mockPaymentService{
		createOrder: func(ctx context.Context, userID string, amount int64, planName string) (json.RawMessage, error) {
			return nil, types.NewAppError(types.ErrCodeUpstreamProvider, "provider unavailable", nil)
		},
	}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/v1/payments/orders", `{"amount":1000,"planName":"basic"}`)

	newPaymentHandler(svc).CreateOrder(w, r)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	svc := &mockPaymentService{}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/payments/orders", strings.NewReader(`{"amount":1000,"planName":"basic"}`))

	newPaymentHandler(svc).CreateOrder(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- VerifyPayment ---

func verifyBody() string {
	return `{
		"razorpay_order_id": "order_abc",
		"razorpay_payment_id": "pay_xyz",
		"razorpay_signature": "deadbeef",
		"planName": "basic"
	}`
}

func TestVerifyPayment_Activated(t *testing.T) {
	expiresOn := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	var gotCB types.PaymentCallback
	svc := &mockPaymentService{
		verifyCallback: func(ctx context.Context, userID string, cb types.PaymentCallback) (*billing.VerificationResult, error) {
			gotCB = cb
			return &billing.VerificationResult{
				Outcome: types.OutcomeActivated,
				State: types.SubscriptionState{
					Current: &types.ActivePlan{Name: "basic", ExpiresAt: expiresOn},
				},
			}, nil
		},
	}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/v1/payments/verify", verifyBody())

	newPaymentHandler(svc).VerifyPayment(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order_abc", gotCB.OrderID)
	assert.Equal(t, "pay_xyz", gotCB.PaymentID)
	assert.Equal(t, "deadbeef", gotCB.Signature)
	assert.Equal(t, "basic", gotCB.PlanName)

	var resp struct {
		Data VerifyPaymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "activated", resp.Data.Status)
	require.NotNil(t, resp.Data.ExpiresOn)
	assert.Equal(t, expiresOn, resp.Data.ExpiresOn.UTC())
	assert.Nil(t, resp.Data.ActivatesOn)
	assert.NotEmpty(t, resp.Data.Message)
}

func TestVerifyPayment_Queued(t *testing.T) {
	startsAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockPaymentService{
		verifyCallback: func(ctx context.Context, userID string, cb types.PaymentCallback) (*billing.VerificationResult, error) {
			return &billing.VerificationResult{
				Outcome: types.OutcomeQueued,
				State: types.SubscriptionState{
					Current: &types.ActivePlan{Name: "basic"},
					Queued:  &types.QueuedPlan{Name: "premium", StartsAt: startsAt},
				},
			}, nil
		},
	}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/v1/payments/verify", verifyBody())

	newPaymentHandler(svc).VerifyPayment(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data VerifyPaymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "queued", resp.Data.Status)
	require.NotNil(t, resp.Data.ActivatesOn)
	assert.Equal(t, startsAt, resp.Data.ActivatesOn.UTC())
	assert.Nil(t, resp.Data.ExpiresOn)
}

func TestVerifyPayment_RejectedDuplicate(t *testing.T) {
	svc := &mockPaymentService{
		verifyCallback: func(ctx context.Context, userID string, cb types.PaymentCallback) (*billing.VerificationResult, error) {
			return &billing.VerificationResult{Outcome: types.OutcomeRejectedDuplicate}, nil
		},
	}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/v1/payments/verify", verifyBody())

	newPaymentHandler(svc).VerifyPayment(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data VerifyPaymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rejected-duplicate", resp.Data.Status)
	assert.Nil(t, resp.Data.ExpiresOn)
	assert.Nil(t, resp.Data.ActivatesOn)
}

func TestVerifyPayment_MissingFields(t *testing.T) {
	svc := &mockPaymentService{
		verifyCallback: func(ctx context.Context, userID string, cb types.PaymentCallback) (*billing.VerificationResult, error) {
			t.Fatal("service must not be called for invalid input")
			return nil, nil
		},
	}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/v1/payments/verify",
		`{"razorpay_order_id":"order_abc","planName":"basic"}`)

	newPaymentHandler(svc).VerifyPayment(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, string(types.ErrCodeValidationMissingField), resp.Error.Code)
	assert.Equal(t, "razorpay_payment_id", resp.Error.Details["field"])
}

func TestVerifyPayment_InvalidSignature(t *testing.T) {
	svc := &mockPaymentService{
		verifyCallback: func(ctx context.Context, userID string, cb types.PaymentCallback) (*billing.VerificationResult, error) {
			return nil, types.NewAppError(types.ErrCodeBillingInvalidSignature, "payment signature verification failed", nil)
		},
	}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/v1/payments/verify", verifyBody())

	newPaymentHandler(svc).VerifyPayment(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(types.ErrCodeBillingInvalidSignature), decodeError(t, w).Error.Code)
}

func TestVerifyPayment_MalformedJSON(t *testing.T) {
	svc := &mockPaymentService{}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodPost, "/v1/payments/verify", `{"razorpay_order_id":`)

	newPaymentHandler(svc).VerifyPayment(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidJSON), decodeError(t, w).Error.Code)
}
