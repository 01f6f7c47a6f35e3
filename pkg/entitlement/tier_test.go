package entitlement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearclaim/backend/pkg/entitlement"
)

func TestTier_Ordering(t *testing.T) {
	t.Parallel()

	tiers := entitlement.Tiers()
	require.Len(t, tiers, 4)

	for i := 1; i < len(tiers); i++ {
		assert.Equal(t, -1, tiers[i-1].Compare(tiers[i]),
			"%s must rank below %s", tiers[i-1], tiers[i])
		assert.True(t, tiers[i].AtLeast(tiers[i-1]))
	}

	assert.True(t, entitlement.TierEnterprise.AtLeast(entitlement.TierFree))
	assert.False(t, entitlement.TierFree.AtLeast(entitlement.TierStarter))
	assert.Equal(t, 0, entitlement.TierPro.Compare(entitlement.TierPro))
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	t.Run("known names round-trip", func(t *testing.T) {
		t.Parallel()

		for _, tier := range entitlement.Tiers() {
			parsed, err := entitlement.ParseTier(tier.String())
			require.NoError(t, err)
			assert.Equal(t, tier, parsed)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		t.Parallel()

		_, err := entitlement.ParseTier("platinum")
		assert.ErrorIs(t, err, entitlement.ErrUnknownTier)
	})
}

func TestTier_TextMarshalling(t *testing.T) {
	t.Parallel()

	b, err := entitlement.TierPro.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "pro", string(b))

	var tier entitlement.Tier
	require.NoError(t, tier.UnmarshalText([]byte("enterprise")))
	assert.Equal(t, entitlement.TierEnterprise, tier)

	_, err = entitlement.Tier(42).MarshalText()
	assert.ErrorIs(t, err, entitlement.ErrUnknownTier)
}
