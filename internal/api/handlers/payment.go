// Package handlers contains the HTTP handler implementations for the API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"craftfolio/internal/billing"
	"craftfolio/internal/core"
	"craftfolio/internal/types"
)

// PaymentService abstracts order creation and callback verification. The
// contract is defined at the handler so tests can inject mocks without
// pulling in the full billing service.
type PaymentService interface {
	// CreateOrder opens a provider order and returns the provider's order
	// object verbatim.
	CreateOrder(ctx context.Context, userID string, amount int64, planName string) (json.RawMessage, error)

	// VerifyCallback authenticates the provider callback and applies the
	// purchase to the user's subscription.
	VerifyCallback(ctx context.Context, userID string, cb types.PaymentCallback) (*billing.VerificationResult, error)
}

// CreateOrderRequest is the request body for POST /v1/payments/orders.
// Amount is in minor currency units, as the provider expects.
type CreateOrderRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	PlanName string `json:"planName" validate:"required"`
}

// VerifyPaymentRequest is the request body for POST /v1/payments/verify.
// Field names mirror the provider's checkout callback payload.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
	PlanName  string `json:"planName" validate:"required"`
}

// VerifyPaymentResponse is the response for POST /v1/payments/verify.
// Exactly one of ExpiresOn (activated) or ActivatesOn (queued) is set.
type VerifyPaymentResponse struct {
	Status      string     `json:"status"`
	Message     string     `json:"message"`
	ExpiresOn   *time.Time `json:"expires_on,omitempty"`
	ActivatesOn *time.Time `json:"activates_on,omitempty"`
}

// PaymentHandler handles payment order creation and verification callbacks.
type PaymentHandler struct {
	service   PaymentService
	validator *core.Validator
	logger    *slog.Logger
}

func NewPaymentHandler(svc PaymentService, v *core.Validator, l *slog.Logger) *PaymentHandler {
	if l == nil {
		l = slog.Default()
	}
	return &PaymentHandler{service: svc, validator: v, logger: l}
}

// RegisterRoutes mounts the payment endpoints. Both require authentication,
// applied by the parent router's middleware chain.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payments/orders", h.CreateOrder)
	r.Post("/payments/verify", h.VerifyPayment)
}

// CreateOrder handles POST /v1/payments/orders. It validates the plan and
// opens a provider order; the provider's order object is passed through
// verbatim so the client can feed it to the checkout widget unchanged.
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return
	}

	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	order, err := h.service.CreateOrder(r.Context(), actor.UserID, req.Amount, req.PlanName)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "order creation failed",
			slog.String("user_id", actor.UserID),
			slog.String("plan", req.PlanName),
			slog.String("error", err.Error()),
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{
		Data: map[string]json.RawMessage{"order": order},
	})
}

// VerifyPayment handles POST /v1/payments/verify. A verified purchase
// resolves to exactly one of three outcomes: immediate activation, queueing
// behind the current plan, or rejection as a duplicate of the active plan.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return
	}

	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	result, err := h.service.VerifyCallback(r.Context(), actor.UserID, types.PaymentCallback{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		PlanName:  req.PlanName,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: verifyResponse(result)})
}

// verifyResponse shapes a verification result for the client.
func verifyResponse(result *billing.VerificationResult) VerifyPaymentResponse {
	switch result.Outcome {
	case types.OutcomeActivated:
		resp := VerifyPaymentResponse{
			Status:  string(types.OutcomeActivated),
			Message: "Payment verified; your plan is now active.",
		}
		if cur := result.State.Current; cur != nil {
			resp.ExpiresOn = &cur.ExpiresAt
		}
		return resp

	case types.OutcomeQueued:
		resp := VerifyPaymentResponse{
			Status:  string(types.OutcomeQueued),
			Message: "Payment verified; the plan starts when your current plan ends.",
		}
		if q := result.State.Queued; q != nil {
			resp.ActivatesOn = &q.StartsAt
		}
		return resp

	default:
		return VerifyPaymentResponse{
			Status:  string(types.OutcomeRejectedDuplicate),
			Message: "This plan is already active; the purchase was not applied.",
		}
	}
}
