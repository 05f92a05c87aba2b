// Package types defines the domain model shared across the craftfolio
// backend: users, plan state, payment callbacks, typed error codes, and
// context helpers. It has no dependencies on transport or storage packages
// so that every layer can import it freely.
package types

import "time"

// FreePlanName is the reserved name of the unpaid tier. Users without a
// purchased plan are on this tier implicitly; the sweeper writes it back
// explicitly when a paid plan lapses.
const FreePlanName = "free"

// PlanValidityDays is the validity window of every paid plan.
const PlanValidityDays = 30

// PlanValidity is PlanValidityDays expressed as a duration.
const PlanValidity = PlanValidityDays * 24 * time.Hour

// PlanDefinition is a static catalog entry mapping a plan identifier to its
// price and entitlement quotas. Definitions are immutable after startup.
type PlanDefinition struct {
	ID              string `json:"id"`
	PriceMinorUnits int64  `json:"price_minor_units"`
	LinksAllowed    int    `json:"links_allowed"`
	DesignLimit     int    `json:"design_limit"`
}

// PaymentDetails is the verified provider callback folded into plan state
// for audit purposes. Field names mirror the provider's wire format.
type PaymentDetails struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// ActivePlan is the currently-effective plan embedded in the user record.
// A nil ActivePlan means the user is on the free tier.
type ActivePlan struct {
	Name           string         `json:"name"`
	LinksAllowed   int            `json:"links_allowed"`
	DesignLimit    int            `json:"design_limit"`
	PurchasedAt    time.Time      `json:"purchased_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
	PaymentDetails PaymentDetails `json:"payment_details"`
}

// Expired reports whether the plan has lapsed at the given instant.
// ExpiresAt is the single authoritative expiry clock; it is set to
// PurchasedAt + PlanValidity at activation and never drifts from it.
func (p *ActivePlan) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// IsPaid reports whether the plan is a purchased tier (anything but free).
func (p *ActivePlan) IsPaid() bool {
	return p.Name != FreePlanName
}

// QueuedPlan is a purchased plan deferred until the current one lapses.
// At most one queued plan exists per user; a later purchase while one is
// queued overwrites it (last purchase wins).
type QueuedPlan struct {
	Name           string         `json:"name"`
	LinksAllowed   int            `json:"links_allowed"`
	DesignLimit    int            `json:"design_limit"`
	StartsAt       time.Time      `json:"starts_at"`
	PaymentDetails PaymentDetails `json:"payment_details"`
}

// SubscriptionState is the plan sub-record of a user account. It transitions
// only through the verification state machine and the expiry sweeper, guarded
// by the Version counter (compare-and-swap on every write).
type SubscriptionState struct {
	Current *ActivePlan `json:"current_plan,omitempty"`
	Queued  *QueuedPlan `json:"queued_plan,omitempty"`
	Version int64       `json:"-"`
}

// User is the account record. Portfolio media lists are ordered oldest
// first; quota truncation keeps the tail (most recently added).
type User struct {
	ID            string
	Email         string
	Username      string
	Name          string
	ShortVideos   StringList
	LongVideos    StringList
	GraphicImages StringList
	Subscription  SubscriptionState
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaymentCallback is the transient, unverified callback a client relays
// after completing a charge with the provider. It must pass signature
// verification before it is trusted.
type PaymentCallback struct {
	OrderID   string
	PaymentID string
	Signature string
	PlanName  string
}

// Details returns the callback's audit copy for embedding into plan state.
func (c PaymentCallback) Details() PaymentDetails {
	return PaymentDetails{
		OrderID:   c.OrderID,
		PaymentID: c.PaymentID,
		Signature: c.Signature,
	}
}

// VerificationOutcome is the terminal state of one verified callback.
type VerificationOutcome string

const (
	// OutcomeActivated means the plan became effective immediately.
	OutcomeActivated VerificationOutcome = "activated"
	// OutcomeQueued means the plan was deferred until the current one lapses.
	OutcomeQueued VerificationOutcome = "queued"
	// OutcomeRejectedDuplicate means the same plan is already active and
	// unexpired; nothing was mutated. This is a guard, not a fault.
	OutcomeRejectedDuplicate VerificationOutcome = "rejected-duplicate"
)

// PaymentStatus tracks a ledger entry's lifecycle.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment is one row of the payments ledger. The UNIQUE (order_id,
// payment_id) constraint on the ledger is the idempotency guard for
// verification retries: a replayed callback resolves to its recorded
// outcome instead of re-mutating plan state.
type Payment struct {
	ID         string
	UserID     string
	PlanName   string
	AmountMinor int64
	Currency   string
	OrderID    string
	PaymentID  string
	Status     PaymentStatus
	Outcome    VerificationOutcome
	CreatedAt  time.Time
}
