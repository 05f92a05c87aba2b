// Package billing provides the plan catalog, the subscription state
// machine, and the payment verification service.
package billing

import (
	"strings"

	"craftfolio/internal/types"
)

// Catalog is the authoritative registry of purchasable plans.
// This is the single source of truth for what each plan costs and allows.
type Catalog interface {
	// Lookup resolves a plan by name. The match is case-insensitive so
	// that client-supplied names like "Basic" or "PREMIUM" resolve, but
	// the returned definition always carries the canonical lowercase ID.
	// The second return is false for unknown plans.
	Lookup(planName string) (types.PlanDefinition, bool)

	// List returns all purchasable plans in ascending price order.
	List() []types.PlanDefinition

	// FreeTier returns the fallback tier users hold without a purchase.
	// It is not purchasable and never appears in List.
	FreeTier() types.PlanDefinition
}

// staticCatalog is a compile-time catalog backed by an in-memory map.
// It implements Catalog and is the standard implementation for production use.
type staticCatalog struct {
	plans map[string]types.PlanDefinition
	order []string
}

// planDefaults defines the hardcoded plan pricing and quotas:
//
//	| Plan     | Price (minor units) | Links | Designs |
//	|----------|---------------------|-------|---------|
//	| basic    | 1000                | 5     | 5       |
//	| standard | 2500                | 10    | 10      |
//	| premium  | 5000                | 25    | 25      |
//
// Prices are minor currency units (paise for INR), matching what the
// payment provider expects in order amounts.
var planDefaults = map[string]types.PlanDefinition{
	"basic": {
		ID:              "basic",
		PriceMinorUnits: 1000,
		LinksAllowed:    5,
		DesignLimit:     5,
	},
	"standard": {
		ID:              "standard",
		PriceMinorUnits: 2500,
		LinksAllowed:    10,
		DesignLimit:     10,
	},
	"premium": {
		ID:              "premium",
		PriceMinorUnits: 5000,
		LinksAllowed:    25,
		DesignLimit:     25,
	},
}

// freeTier is what expired subscribers fall back to. Same quotas as basic
// but free of charge and never purchasable.
var freeTier = types.PlanDefinition{
	ID:              types.FreePlanName,
	PriceMinorUnits: 0,
	LinksAllowed:    5,
	DesignLimit:     5,
}

// NewStaticCatalog returns a Catalog backed by the hardcoded plan
// definitions. This is the standard production implementation; no
// database or external service is required.
func NewStaticCatalog() Catalog {
	// Copy the defaults into a new map so callers cannot mutate the package-level variable.
	m := make(map[string]types.PlanDefinition, len(planDefaults))
	for k, v := range planDefaults {
		m[k] = v
	}
	return &staticCatalog{
		plans: m,
		order: []string{"basic", "standard", "premium"},
	}
}

func (c *staticCatalog) Lookup(planName string) (types.PlanDefinition, bool) {
	def, ok := c.plans[strings.ToLower(planName)]
	return def, ok
}

func (c *staticCatalog) List() []types.PlanDefinition {
	out := make([]types.PlanDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id])
	}
	return out
}

func (c *staticCatalog) FreeTier() types.PlanDefinition {
	return freeTier
}
