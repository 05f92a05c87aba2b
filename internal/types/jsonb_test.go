package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList_ScanValue(t *testing.T) {
	t.Run("nil scans to nil", func(t *testing.T) {
		var l StringList
		require.NoError(t, l.Scan(nil))
		assert.Nil(t, l)
	})

	t.Run("scans bytes and strings", func(t *testing.T) {
		var l StringList
		require.NoError(t, l.Scan([]byte(`["a","b"]`)))
		assert.Equal(t, StringList{"a", "b"}, l)

		var l2 StringList
		require.NoError(t, l2.Scan(`["c"]`))
		assert.Equal(t, StringList{"c"}, l2)
	})

	t.Run("rejects unsupported types", func(t *testing.T) {
		var l StringList
		assert.Error(t, l.Scan(42))
	})

	t.Run("nil list stores as empty array", func(t *testing.T) {
		var l StringList
		v, err := l.Value()
		require.NoError(t, err)
		assert.Equal(t, []byte("[]"), v)
	})
}

func TestActivePlan_ScanValue(t *testing.T) {
	purchased := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	plan := ActivePlan{
		Name:         "standard",
		LinksAllowed: 10,
		DesignLimit:  10,
		PurchasedAt:  purchased,
		ExpiresAt:    purchased.Add(PlanValidity),
		PaymentDetails: PaymentDetails{
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: "sig",
		},
	}

	v, err := plan.Value()
	require.NoError(t, err)

	var got ActivePlan
	require.NoError(t, got.Scan(v))
	assert.Equal(t, plan, got)
}

func TestQueuedPlan_ScanValue(t *testing.T) {
	starts := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	queued := QueuedPlan{
		Name:         "premium",
		LinksAllowed: 25,
		DesignLimit:  25,
		StartsAt:     starts,
	}

	v, err := queued.Value()
	require.NoError(t, err)

	var got QueuedPlan
	require.NoError(t, got.Scan(v))
	assert.Equal(t, queued, got)
}
