package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"craftfolio/internal/types"
)

// SweepAction describes what a reconciliation pass did to a user's plan state.
type SweepAction int

const (
	SweepNone SweepAction = iota
	SweepPromoted
	SweepDowngraded
)

func (a SweepAction) String() string {
	switch a {
	case SweepPromoted:
		return "promoted"
	case SweepDowngraded:
		return "downgraded"
	default:
		return "none"
	}
}

// Reconcile advances expired plan state to what it should be at the given
// instant. Pure: no I/O, no mutation of the input.
//
// While the current plan is a paid tier that has lapsed:
//   - a queued plan whose start has arrived is promoted to current, valid
//     for the standard window from its start time (not from now, so a
//     long-idle account ages through the queue correctly);
//   - otherwise the user drops to the free tier and the caller must
//     truncate portfolio media to the free design quota.
//
// The loop handles a promoted plan that is itself already past its window.
func Reconcile(state types.SubscriptionState, free types.PlanDefinition, now time.Time) (types.SubscriptionState, SweepAction) {
	next := state
	action := SweepNone

	for next.Current != nil && next.Current.IsPaid() && next.Current.Expired(now) {
		q := next.Queued
		if q != nil && !q.StartsAt.After(now) {
			next.Current = &types.ActivePlan{
				Name:           q.Name,
				LinksAllowed:   q.LinksAllowed,
				DesignLimit:    q.DesignLimit,
				PurchasedAt:    q.StartsAt,
				ExpiresAt:      q.StartsAt.Add(types.PlanValidity),
				PaymentDetails: q.PaymentDetails,
			}
			next.Queued = nil
			action = SweepPromoted
			continue
		}

		next.Current = &types.ActivePlan{
			Name:         free.ID,
			LinksAllowed: free.LinksAllowed,
			DesignLimit:  free.DesignLimit,
		}
		next.Queued = nil
		action = SweepDowngraded
	}

	return next, action
}

// UserStore is the minimal persistence surface the sweeper and the
// verification service need. *db.UserRepository satisfies it.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*types.User, error)
	UpdatePlanState(ctx context.Context, userID string, state types.SubscriptionState) error
	UpdatePlanStateAndMedia(
		ctx context.Context,
		userID string,
		state types.SubscriptionState,
		shortVideos, longVideos, graphicImages types.StringList,
	) error
}

// maxCASAttempts bounds the reload-and-retry loop on lost compare-and-swaps.
const maxCASAttempts = 3

// Sweeper lazily reconciles expired plan state at request time. It runs
// before authenticated requests proceed, so every handler observes plan
// state that is current as of its own request.
type Sweeper struct {
	users   UserStore
	catalog Catalog
	logger  *slog.Logger
	nowFn   func() time.Time
}

func NewSweeper(users UserStore, catalog Catalog, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{users: users, catalog: catalog, logger: logger, nowFn: time.Now}
}

// Sweep reconciles the user's plan state and persists any change through the
// per-user compare-and-swap. A lost swap means another writer advanced the
// state first; the sweep reloads and re-decides, up to maxCASAttempts.
func (s *Sweeper) Sweep(ctx context.Context, userID string) error {
	var lastErr error

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		now := s.nowFn().UTC()
		next, action := Reconcile(user.Subscription, s.catalog.FreeTier(), now)
		if action == SweepNone {
			return nil
		}

		if action == SweepDowngraded {
			keep := next.Current.DesignLimit
			err = s.users.UpdatePlanStateAndMedia(ctx, userID, next,
				user.ShortVideos.Tail(keep),
				user.LongVideos.Tail(keep),
				user.GraphicImages.Tail(keep),
			)
		} else {
			err = s.users.UpdatePlanState(ctx, userID, next)
		}
		if err == nil {
			s.logger.Info("expired plan state reconciled",
				slog.String("user_id", userID),
				slog.String("action", action.String()),
				slog.String("plan", next.Current.Name),
			)
			return nil
		}

		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeConflictConcurrent {
			lastErr = err
			continue
		}
		return err
	}

	return lastErr
}
