package billing

import (
	"time"

	"craftfolio/internal/types"
)

// Decision is the outcome of running a verified payment callback against a
// user's current subscription state. State carries the new state to persist;
// it is only meaningful when Mutated is true.
type Decision struct {
	Outcome types.VerificationOutcome
	State   types.SubscriptionState
	Mutated bool
}

// Decide applies a verified purchase of planName to the given subscription
// state. It is pure: no I/O, no clock reads, no mutation of the input.
//
// The rules, in order:
//
//  1. No current paid plan, or the current plan has expired: the purchase
//     activates immediately for the standard validity window and clears any
//     queued plan.
//  2. The current plan is active and its name matches planName exactly
//     (case-sensitive, as stored): the purchase is rejected as a duplicate.
//  3. The current plan is active and planName differs: the purchase is
//     queued to start when the current plan expires. A previously queued
//     plan is overwritten; the last purchase wins.
//
// planName is stored verbatim as submitted; def supplies the quotas and
// must be the catalog entry planName resolved to.
func Decide(
	state types.SubscriptionState,
	planName string,
	def types.PlanDefinition,
	details types.PaymentDetails,
	now time.Time,
) Decision {
	current := state.Current

	if current == nil || !current.IsPaid() || current.Expired(now) {
		next := state
		next.Current = &types.ActivePlan{
			Name:           planName,
			LinksAllowed:   def.LinksAllowed,
			DesignLimit:    def.DesignLimit,
			PurchasedAt:    now,
			ExpiresAt:      now.Add(types.PlanValidity),
			PaymentDetails: details,
		}
		next.Queued = nil
		return Decision{Outcome: types.OutcomeActivated, State: next, Mutated: true}
	}

	if current.Name == planName {
		return Decision{Outcome: types.OutcomeRejectedDuplicate}
	}

	next := state
	next.Queued = &types.QueuedPlan{
		Name:           planName,
		LinksAllowed:   def.LinksAllowed,
		DesignLimit:    def.DesignLimit,
		StartsAt:       current.ExpiresAt,
		PaymentDetails: details,
	}
	return Decision{Outcome: types.OutcomeQueued, State: next, Mutated: true}
}
