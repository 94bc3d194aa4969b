package market

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarunbandi/repricer/internal/domain"
	"github.com/tarunbandi/repricer/internal/modules/reward"
)

func testEnv(t *testing.T, extended bool, seed int64) *Environment {
	t.Helper()
	env, err := NewEnvironment(Config{
		Rows:        testRows(120, extended),
		Weights:     reward.Weights{Revenue: 0.4, Margin: 0.4, Volume: 0.2},
		Multipliers: domain.DefaultActionMultipliers,
		Rand:        rand.New(rand.NewSource(seed)),
	})
	require.NoError(t, err)
	return env
}

func TestNewEnvironmentValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "No rows",
			cfg: Config{
				Weights:     reward.Weights{Revenue: 1},
				Multipliers: domain.DefaultActionMultipliers,
			},
		},
		{
			name: "No multipliers",
			cfg: Config{
				Rows:    testRows(10, false),
				Weights: reward.Weights{Revenue: 1},
			},
		},
		{
			name: "Zero-sum weights",
			cfg: Config{
				Rows:        testRows(10, false),
				Weights:     reward.Weights{},
				Multipliers: domain.DefaultActionMultipliers,
			},
		},
		{
			name: "Single-bin dimension",
			cfg: Config{
				Rows:        testRows(10, false),
				Weights:     reward.Weights{Revenue: 1},
				Multipliers: domain.DefaultActionMultipliers,
				Bins:        BinConfig{Demand: 3, Competitor: 1, Lag: 3, Inventory: 3, Forecast: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEnvironment(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestStepAdvancesCursorCircularly(t *testing.T) {
	env := testEnv(t, false, 7)
	env.Reset()

	seen := make(map[int]bool)
	for i := 0; i < len(env.rows)+5; i++ {
		res, err := env.Step(4)
		require.NoError(t, err)
		seen[res.StateIndex] = true
		if res.Quantity < 1 {
			t.Fatalf("quantity floored at 1, got %v", res.Quantity)
		}
	}

	// Wrapping the full slice revisits earlier states instead of failing.
	if len(seen) == 0 {
		t.Fatal("no states visited")
	}
}

func TestStepStabilityPenalty(t *testing.T) {
	// Same row, same action, differing only in action history: the reward
	// gap must equal the stability penalty exactly.
	envFresh := testEnv(t, false, 3)
	envFresh.cursor = 0
	envFresh.lastAction = -1

	envSwitched := testEnv(t, false, 3)
	envSwitched.cursor = 0
	envSwitched.lastAction = 4

	unpenalized, err := envFresh.Step(11)
	require.NoError(t, err)
	penalized, err := envSwitched.Step(11)
	require.NoError(t, err)

	mults := envFresh.Multipliers()
	wantPenalty := reward.PriceChangePenalty(mults[4], mults[11], defaultPriceChangePenalty)

	assert.InDelta(t, unpenalized.Reward-wantPenalty, penalized.Reward, 1e-12)

	// Repeating the previous action costs nothing.
	envRepeat := testEnv(t, false, 3)
	envRepeat.cursor = 0
	envRepeat.lastAction = 11
	repeated, err := envRepeat.Step(11)
	require.NoError(t, err)
	assert.InDelta(t, unpenalized.Reward, repeated.Reward, 1e-12)
}

func TestSyntheticStepCoversArbitraryStates(t *testing.T) {
	env := testEnv(t, false, 11)
	state := State{DemandBin: 2, CompetitorBin: 2, SeasonBin: 2, LagBin: 2}

	res, err := env.SyntheticStep(state, 3)
	require.NoError(t, err)

	assert.Equal(t, state, res.State)
	assert.True(t, res.Synthetic)
	assert.GreaterOrEqual(t, res.Quantity, 1.0)
	assert.Less(t, res.NextStateIndex, env.TotalStates())
	assert.GreaterOrEqual(t, res.NextStateIndex, 0)
}

func TestSyntheticStepNoiseBounds(t *testing.T) {
	env := testEnv(t, false, 19)
	state := State{DemandBin: 1, CompetitorBin: 1, SeasonBin: 1, LagBin: 1}

	det, err := env.SimulateAction(state, 4, nil)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		res, err := env.SyntheticStep(state, 4)
		require.NoError(t, err)
		lo := det.Quantity*0.9 - 1e-9
		hi := det.Quantity*1.1 + 1e-9
		if res.Quantity < lo || res.Quantity > hi {
			t.Fatalf("synthetic quantity %v outside ±10%% band [%v, %v]", res.Quantity, lo, hi)
		}
	}
}

func TestSimulateActionDeterministic(t *testing.T) {
	env := testEnv(t, false, 5)
	state := State{DemandBin: 0, CompetitorBin: 1, SeasonBin: 3, LagBin: 2}

	first, err := env.SimulateAction(state, 8, nil)
	require.NoError(t, err)
	cursorBefore := env.cursor

	second, err := env.SimulateAction(state, 8, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second, "what-if queries must be deterministic")
	assert.Equal(t, cursorBefore, env.cursor, "what-if queries must not advance the cursor")
}

func TestSimulateActionOverrides(t *testing.T) {
	env := testEnv(t, false, 5)
	state := State{DemandBin: 1, CompetitorBin: 1, SeasonBin: 1, LagBin: 1}

	base, err := env.SimulateAction(state, 9, nil)
	require.NoError(t, err)

	bigQty := env.BaseQty() * 3
	boosted, err := env.SimulateAction(state, 9, &Overrides{BaseQty: &bigQty})
	require.NoError(t, err)
	assert.Greater(t, boosted.Quantity, base.Quantity)

	rigid := 0.05
	lessElastic, err := env.SimulateAction(state, 9, &Overrides{Elasticity: &rigid})
	require.NoError(t, err)
	assert.Greater(t, lessElastic.Quantity, base.Quantity,
		"lower elasticity should shed less volume at a high multiplier")
}

func TestEffectiveElasticityStateDependence(t *testing.T) {
	env := testEnv(t, false, 5)
	m := env.elasticity

	lowDemand := m.EffectiveElasticity(State{DemandBin: 0, CompetitorBin: 1, SeasonBin: 1, LagBin: 1})
	highDemand := m.EffectiveElasticity(State{DemandBin: 2, CompetitorBin: 1, SeasonBin: 1, LagBin: 1})
	assert.Greater(t, lowDemand, highDemand, "high demand means less price sensitivity")

	winter := m.EffectiveElasticity(State{DemandBin: 1, CompetitorBin: 1, SeasonBin: 0, LagBin: 1})
	summer := m.EffectiveElasticity(State{DemandBin: 1, CompetitorBin: 1, SeasonBin: 2, LagBin: 1})
	assert.Greater(t, winter, summer, "summer demand is less elastic than winter")

	for d := 0; d < 3; d++ {
		for c := 0; c < 3; c++ {
			for s := 0; s < 4; s++ {
				e := m.EffectiveElasticity(State{DemandBin: d, CompetitorBin: c, SeasonBin: s})
				if e < 0.05 || e > 4.0 {
					t.Fatalf("effective elasticity %v outside [0.05, 4.0]", e)
				}
			}
		}
	}
}

func TestZeroBasePriceGuard(t *testing.T) {
	rows := testRows(30, false)
	for i := range rows {
		rows[i].UnitPrice = 0
	}
	env, err := NewEnvironment(Config{
		Rows:        rows,
		Weights:     reward.Weights{Revenue: 0.4, Margin: 0.4, Volume: 0.2},
		Multipliers: domain.DefaultActionMultipliers,
	})
	require.NoError(t, err)
	env.Reset()

	res, err := env.Step(0)
	require.NoError(t, err)
	if math.IsNaN(res.Reward) || math.IsInf(res.Reward, 0) {
		t.Fatalf("zero base price must not produce NaN/Inf rewards, got %v", res.Reward)
	}
}

type fixedDemand struct{ qty float64 }

func (f fixedDemand) PredictQuantity(domain.RetailRecord, State, float64) float64 {
	return f.qty
}

func TestInjectedDemandModel(t *testing.T) {
	env := testEnv(t, false, 5)
	env.SetDemandModel(fixedDemand{qty: 42})

	state := State{DemandBin: 1, CompetitorBin: 1, SeasonBin: 1, LagBin: 1}
	res, err := env.SimulateAction(state, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 42.0, res.Quantity)

	env.SetDemandModel(nil)
	res, err = env.SimulateAction(state, 4, nil)
	require.NoError(t, err)
	assert.NotEqual(t, 42.0, res.Quantity, "nil restores the elasticity backend")
}
