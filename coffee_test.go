package graft

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The coffee shop fixture exercises delegates, lazy requests, set
// multibindings and a scoped subcomponent in one round.
func TestCoffeeShop(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	round, err := e.ResolveDir(context.Background(), "testdata/coffee")
	require.NoError(t, err)
	require.False(t, round.Failed, "diagnostics: %v", round.Report.Diagnostics)

	q := e.Query()
	cs, err := q.Components(round.ID)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "CoffeeShop/CupService", cs[1].Path)

	t.Run("delegate", func(t *testing.T) {
		pump := mustBinding(t, q, round.ID, "CoffeeShop", "Pump")
		assert.Equal(t, "delegate", pump.Kind)
		assert.Equal(t, "PumpModule", pump.Module)
	})

	t.Run("lazy request", func(t *testing.T) {
		maker := mustBinding(t, q, round.ID, "CoffeeShop", "CoffeeMaker")
		assert.Equal(t, "injection", maker.Kind)
		deps, err := q.Dependencies(maker.ID)
		require.NoError(t, err)
		require.Len(t, deps, 3)
		assert.Equal(t, "Heater", deps[0].Key)
		assert.Equal(t, "lazy", deps[0].RequestKind)
		assert.Equal(t, "CoffeeMaker(heater)", deps[0].Element)
		assert.Equal(t, "instance", deps[1].RequestKind)
	})

	t.Run("set multibinding", func(t *testing.T) {
		set := mustBinding(t, q, round.ID, "CoffeeShop", "Set<String>")
		assert.Equal(t, "multibound_set", set.Kind)
		deps, err := q.Dependencies(set.ID)
		require.NoError(t, err)
		assert.Len(t, deps, 2)
	})

	t.Run("scoped bindings are cached", func(t *testing.T) {
		heater := mustBinding(t, q, round.ID, "CoffeeShop", "Heater")
		s, err := q.Strategy(heater.ID)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, "double_check", s.Caching)

		cup := mustBinding(t, q, round.ID, "CoffeeShop/CupService", "Cup")
		assert.True(t, cup.Owned)
		assert.Equal(t, "@CupScope", cup.Scope)
	})

	t.Run("heater is shared with the subcomponent", func(t *testing.T) {
		ref := mustBinding(t, q, round.ID, "CoffeeShop/CupService", "Heater")
		assert.False(t, ref.Owned)
		owner, err := q.Owner(ref)
		require.NoError(t, err)
		assert.Equal(t, mustBinding(t, q, round.ID, "CoffeeShop", "Heater").ID, owner.ID)
	})
}
