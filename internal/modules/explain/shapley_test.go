package explain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarunbandi/repricer/internal/domain"
	"github.com/tarunbandi/repricer/internal/modules/agent"
	"github.com/tarunbandi/repricer/internal/modules/market"
	"github.com/tarunbandi/repricer/internal/modules/reward"
)

func testEnv(t *testing.T, seed int64) *market.Environment {
	t.Helper()

	rows := make([]domain.RetailRecord, 120)
	for i := range rows {
		rows[i] = domain.RetailRecord{
			ProductID:     "product_0",
			Month:         i%12 + 1,
			UnitPrice:     80 + float64(i%20),
			Qty:           10 + float64(i%30),
			FreightPrice:  12 + float64(i%5),
			CompetitorOne: 75 + float64((i*7)%25),
			LagPrice:      78 + float64((i*3)%18),
		}
	}

	env, err := market.NewEnvironment(market.Config{
		Rows:        rows,
		Weights:     reward.Weights{Revenue: 0.4, Margin: 0.4, Volume: 0.2},
		Multipliers: domain.DefaultActionMultipliers,
		Rand:        rand.New(rand.NewSource(seed)),
	})
	require.NoError(t, err)
	return env
}

// zeroTable is an untrained value table.
type zeroTable struct{ actions int }

func (z zeroTable) QValues(int) []float64 { return make([]float64, z.actions) }

// hashTable fills Q-rows with a deterministic pseudo-random pattern.
type hashTable struct{ actions int }

func (h hashTable) QValues(stateIndex int) []float64 {
	q := make([]float64, h.actions)
	for a := range q {
		q[a] = math.Sin(float64(stateIndex*31+a*7)) * 0.5
	}
	return q
}

// pairTable peaks on an action determined only by demand+competitor, so
// the two features are interchangeable.
type pairTable struct {
	env     *market.Environment
	actions int
}

func (p pairTable) QValues(stateIndex int) []float64 {
	s := p.env.IndexToState(stateIndex)
	q := make([]float64, p.actions)
	q[(s.DemandBin+s.CompetitorBin)%p.actions] = 1
	return q
}

func attributionSum(exp Explanation) float64 {
	var sum float64
	for _, a := range exp.Attributions {
		sum += a.Value
	}
	return sum
}

func TestUntrainedTableExplainsNothing(t *testing.T) {
	env := testEnv(t, 1)
	state := market.State{DemandBin: 2, CompetitorBin: 0, SeasonBin: 3, LagBin: 1}

	exp, err := ComputeShapleyValues(state, zeroTable{actions: env.NumActions()}, env)
	require.NoError(t, err)

	assert.Equal(t, env.BasePrice(), exp.BasePrice)
	assert.Equal(t, env.BasePrice(), exp.FinalPrice)
	for _, a := range exp.Attributions {
		assert.Zero(t, a.Value, "feature %s", a.Feature)
	}
}

func TestAdditivity(t *testing.T) {
	env := testEnv(t, 1)
	table := hashTable{actions: env.NumActions()}

	states := []market.State{
		{DemandBin: 0, CompetitorBin: 0, SeasonBin: 0, LagBin: 0},
		{DemandBin: 2, CompetitorBin: 1, SeasonBin: 3, LagBin: 2},
		{DemandBin: 1, CompetitorBin: 2, SeasonBin: 2, LagBin: 0},
	}

	for _, state := range states {
		exp, err := ComputeShapleyValues(state, table, env)
		require.NoError(t, err)

		assert.InDelta(t, exp.FinalPrice, exp.BasePrice+attributionSum(exp), 1e-9,
			"attributions must decompose the price exactly for %+v", state)
		assert.Len(t, exp.Attributions, 4)
	}
}

func TestSymmetricFeaturesGetEqualCredit(t *testing.T) {
	env := testEnv(t, 1)
	table := pairTable{env: env, actions: env.NumActions()}

	state := market.State{DemandBin: 2, CompetitorBin: 2, SeasonBin: 1, LagBin: 1}
	exp, err := ComputeShapleyValues(state, table, env)
	require.NoError(t, err)

	byName := map[string]float64{}
	for _, a := range exp.Attributions {
		byName[a.Feature] = a.Value
	}

	assert.InDelta(t, byName["demand"], byName["competitor"], 1e-12,
		"interchangeable features must receive identical credit")
	assert.InDelta(t, 0, byName["season"], 1e-12, "inert feature must get zero credit")
	assert.InDelta(t, 0, byName["lag_price"], 1e-12, "inert feature must get zero credit")
}

func TestPricesStayWithinActionLadder(t *testing.T) {
	env := testEnv(t, 1)
	table := hashTable{actions: env.NumActions()}

	exp, err := ComputeShapleyValues(market.State{DemandBin: 1, CompetitorBin: 1, SeasonBin: 2, LagBin: 2}, table, env)
	require.NoError(t, err)

	mults := env.Multipliers()
	lo := mults[0] * env.BasePrice()
	hi := mults[len(mults)-1] * env.BasePrice()

	assert.GreaterOrEqual(t, exp.FinalPrice, lo)
	assert.LessOrEqual(t, exp.FinalPrice, hi)
	assert.GreaterOrEqual(t, exp.BasePrice, lo)
	assert.LessOrEqual(t, exp.BasePrice, hi)
}

func TestExplainTrainedAgent(t *testing.T) {
	env := testEnv(t, 23)
	cfg := agent.DefaultConfig()
	cfg.Seed = 23

	a, err := agent.New(cfg, env)
	require.NoError(t, err)
	for e := 0; e < 100; e++ {
		_, err := a.RunEpisode(env, 48)
		require.NoError(t, err)
	}

	state := env.RandomState()
	exp, err := ComputeShapleyValues(state, a, env)
	require.NoError(t, err)

	assert.InDelta(t, exp.FinalPrice, exp.BasePrice+attributionSum(exp), 1e-9)
	assert.Len(t, exp.Attributions, 4)
}
