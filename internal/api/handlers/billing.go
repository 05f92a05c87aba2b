package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"craftfolio/internal/billing"
	"craftfolio/internal/core"
	"craftfolio/internal/types"
)

// UserReader provides the minimal read access the billing handler needs for
// user records. *db.UserRepository satisfies it.
type UserReader interface {
	GetByID(ctx context.Context, userID string) (*types.User, error)
}

// SubscriptionResponse is the response for GET /v1/billing/subscription.
type SubscriptionResponse struct {
	Current *types.ActivePlan     `json:"current_plan"`
	Queued  *types.QueuedPlan     `json:"queued_plan,omitempty"`
	Usage   billing.UsageSnapshot `json:"usage"`
}

// BillingHandler serves the plan catalog and the user's subscription state.
type BillingHandler struct {
	catalog billing.Catalog
	users   UserReader
	logger  *slog.Logger
}

func NewBillingHandler(catalog billing.Catalog, users UserReader, l *slog.Logger) *BillingHandler {
	if l == nil {
		l = slog.Default()
	}
	return &BillingHandler{catalog: catalog, users: users, logger: l}
}

// RegisterRoutes mounts the billing endpoints. GET /billing/plans is public
// (exempted in the auth middleware); GET /billing/subscription requires
// authentication.
func (h *BillingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/billing/plans", h.ListPlans)
	r.Get("/billing/subscription", h.GetSubscription)
}

// ListPlans handles GET /v1/billing/plans. Clients need the catalog with
// prices to start a checkout.
func (h *BillingHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: map[string][]types.PlanDefinition{"plans": h.catalog.List()},
	})
}

// GetSubscription handles GET /v1/billing/subscription. The expiry sweep
// middleware has already reconciled lapsed state, so what the repository
// returns is current as of this request.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	user, err := h.users.GetByID(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: SubscriptionResponse{
			Current: user.Subscription.Current,
			Queued:  user.Subscription.Queued,
			Usage:   billing.UsageFor(user, h.catalog.FreeTier()),
		},
	})
}
