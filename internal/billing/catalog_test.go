package billing

import (
	"testing"

	"craftfolio/internal/types"
)

func TestNewStaticCatalog(t *testing.T) {
	cat := NewStaticCatalog()
	if cat == nil {
		t.Fatal("NewStaticCatalog returned nil")
	}
}

func TestLookup_KnownPlans(t *testing.T) {
	cat := NewStaticCatalog()

	tests := []struct {
		name      string
		wantPrice int64
		wantLinks int
		wantDes   int
	}{
		{"basic", 1000, 5, 5},
		{"standard", 2500, 10, 10},
		{"premium", 5000, 25, 25},
	}

	for _, tt := range tests {
		def, ok := cat.Lookup(tt.name)
		if !ok {
			t.Fatalf("Lookup(%q) not found", tt.name)
		}
		assertPlan(t, tt.name, def, types.PlanDefinition{
			ID:              tt.name,
			PriceMinorUnits: tt.wantPrice,
			LinksAllowed:    tt.wantLinks,
			DesignLimit:     tt.wantDes,
		})
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	cat := NewStaticCatalog()

	for _, name := range []string{"Basic", "BASIC", "bAsIc"} {
		def, ok := cat.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) not found", name)
		}
		// The canonical ID comes back lowercase regardless of input casing.
		if def.ID != "basic" {
			t.Errorf("Lookup(%q).ID = %q, want %q", name, def.ID, "basic")
		}
	}
}

func TestLookup_UnknownPlan(t *testing.T) {
	cat := NewStaticCatalog()

	for _, name := range []string{"gold", "", "free"} {
		if _, ok := cat.Lookup(name); ok {
			t.Errorf("Lookup(%q) = found, want not found", name)
		}
	}
}

func TestList_StablePriceOrder(t *testing.T) {
	cat := NewStaticCatalog()

	plans := cat.List()
	if len(plans) != 3 {
		t.Fatalf("List returned %d plans, want 3", len(plans))
	}

	want := []string{"basic", "standard", "premium"}
	for i, id := range want {
		if plans[i].ID != id {
			t.Errorf("List[%d].ID = %q, want %q", i, plans[i].ID, id)
		}
	}
	for i := 1; i < len(plans); i++ {
		if plans[i].PriceMinorUnits <= plans[i-1].PriceMinorUnits {
			t.Errorf("List not in ascending price order at index %d", i)
		}
	}
}

func TestFreeTier(t *testing.T) {
	cat := NewStaticCatalog()

	free := cat.FreeTier()
	assertPlan(t, "free", free, types.PlanDefinition{
		ID:              types.FreePlanName,
		PriceMinorUnits: 0,
		LinksAllowed:    5,
		DesignLimit:     5,
	})
}

func TestCatalogInterface(t *testing.T) {
	// Compile-time check that staticCatalog satisfies Catalog.
	var _ Catalog = NewStaticCatalog()
}

// assertPlan is a test helper that compares two PlanDefinition values and
// reports field-level mismatches.
func assertPlan(t *testing.T, name string, got, want types.PlanDefinition) {
	t.Helper()

	if got.ID != want.ID {
		t.Errorf("%s: ID = %q, want %q", name, got.ID, want.ID)
	}
	if got.PriceMinorUnits != want.PriceMinorUnits {
		t.Errorf("%s: PriceMinorUnits = %d, want %d", name, got.PriceMinorUnits, want.PriceMinorUnits)
	}
	if got.LinksAllowed != want.LinksAllowed {
		t.Errorf("%s: LinksAllowed = %d, want %d", name, got.LinksAllowed, want.LinksAllowed)
	}
	if got.DesignLimit != want.DesignLimit {
		t.Errorf("%s: DesignLimit = %d, want %d", name, got.DesignLimit, want.DesignLimit)
	}
}
