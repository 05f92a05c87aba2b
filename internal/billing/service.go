package billing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"craftfolio/internal/external"
	"craftfolio/internal/types"
)

// PaymentLedger records verification outcomes keyed by the provider's
// (order_id, payment_id) pair. *db.PaymentRepository satisfies it.
type PaymentLedger interface {
	RecordOutcome(ctx context.Context, p types.Payment) (inserted bool, err error)
	GetByProviderIDs(ctx context.Context, orderID, paymentID string) (*types.Payment, error)
}

// VerificationResult is what a processed payment callback resolves to.
// State is the user's subscription state after the callback was applied
// (or as found, when the callback was a replay or a duplicate).
type VerificationResult struct {
	Outcome  types.VerificationOutcome
	State    types.SubscriptionState
	Replayed bool
}

// Service orchestrates payment order creation and callback verification.
type Service struct {
	users    UserStore
	ledger   PaymentLedger
	catalog  Catalog
	verifier external.CallbackVerifier
	orders   external.OrderCreator
	currency string
	logger   *slog.Logger
	nowFn    func() time.Time

	// Collapses concurrent identical callbacks so only one flight runs
	// the decide-and-persist path per (order, payment) pair.
	group singleflight.Group
}

// ServiceConfig carries the collaborators Service needs.
type ServiceConfig struct {
	Users    UserStore
	Ledger   PaymentLedger
	Catalog  Catalog
	Verifier external.CallbackVerifier
	Orders   external.OrderCreator
	Currency string
	Logger   *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:    cfg.Users,
		ledger:   cfg.Ledger,
		catalog:  cfg.Catalog,
		verifier: cfg.Verifier,
		orders:   cfg.Orders,
		currency: cfg.Currency,
		logger:   logger,
		nowFn:    time.Now,
	}
}

// CreateOrder validates the plan and opens a provider order for the given
// amount. The provider's order object is returned verbatim so the client
// can hand it to the checkout widget unchanged.
func (s *Service) CreateOrder(ctx context.Context, userID string, amount int64, planName string) (json.RawMessage, error) {
	if _, ok := s.catalog.Lookup(planName); !ok {
		return nil, types.NewAppError(types.ErrCodeBillingInvalidPlan, "unknown plan: "+planName, nil)
	}

	return s.orders.CreateOrder(ctx, external.OrderRequest{
		Amount:   amount,
		Currency: s.currency,
		PlanName: planName,
		UserID:   userID,
	})
}

// VerifyCallback authenticates a provider payment callback and applies it to
// the user's subscription. Signature verification happens before any state
// is read or written; a forged callback never mutates anything.
//
// Replays of an already-recorded (order, payment) pair return the originally
// recorded outcome without touching plan state.
func (s *Service) VerifyCallback(ctx context.Context, userID string, cb types.PaymentCallback) (*VerificationResult, error) {
	def, ok := s.catalog.Lookup(cb.PlanName)
	if !ok {
		return nil, types.NewAppError(types.ErrCodeBillingInvalidPlan, "unknown plan: "+cb.PlanName, nil)
	}

	if !s.verifier.Verify(cb.OrderID, cb.PaymentID, cb.Signature) {
		s.logger.Warn("payment callback failed signature verification",
			slog.String("user_id", userID),
			slog.String("order_id", cb.OrderID),
		)
		return nil, types.NewAppError(types.ErrCodeBillingInvalidSignature, "payment signature verification failed", nil)
	}

	key := cb.OrderID + "|" + cb.PaymentID
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.applyCallback(ctx, userID, cb, def)
	})
	if err != nil {
		return nil, err
	}
	return v.(*VerificationResult), nil
}

func (s *Service) applyCallback(ctx context.Context, userID string, cb types.PaymentCallback, def types.PlanDefinition) (*VerificationResult, error) {
	prior, err := s.ledger.GetByProviderIDs(ctx, cb.OrderID, cb.PaymentID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return s.replayResult(ctx, userID, prior)
	}

	var decision Decision
	for attempt := 0; ; attempt++ {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}

		decision = Decide(user.Subscription, cb.PlanName, def, cb.Details(), s.nowFn().UTC())
		if !decision.Mutated {
			decision.State = user.Subscription
			break
		}

		err = s.users.UpdatePlanState(ctx, userID, decision.State)
		if err == nil {
			break
		}

		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeConflictConcurrent && attempt < maxCASAttempts-1 {
			continue
		}
		return nil, err
	}

	inserted, err := s.ledger.RecordOutcome(ctx, types.Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		PlanName:    cb.PlanName,
		AmountMinor: def.PriceMinorUnits,
		Currency:    s.currency,
		OrderID:     cb.OrderID,
		PaymentID:   cb.PaymentID,
		Status:      types.PaymentStatusCompleted,
		Outcome:     decision.Outcome,
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		// A concurrent replay in another process recorded first; report
		// what the ledger holds rather than this flight's decision.
		prior, err := s.ledger.GetByProviderIDs(ctx, cb.OrderID, cb.PaymentID)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return s.replayResult(ctx, userID, prior)
		}
	}

	s.logger.Info("payment callback applied",
		slog.String("user_id", userID),
		slog.String("order_id", cb.OrderID),
		slog.String("plan", cb.PlanName),
		slog.String("outcome", string(decision.Outcome)),
	)

	return &VerificationResult{Outcome: decision.Outcome, State: decision.State}, nil
}

func (s *Service) replayResult(ctx context.Context, userID string, prior *types.Payment) (*VerificationResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &VerificationResult{
		Outcome:  prior.Outcome,
		State:    user.Subscription,
		Replayed: true,
	}, nil
}
