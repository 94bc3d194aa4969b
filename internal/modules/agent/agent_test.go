package agent

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarunbandi/repricer/internal/domain"
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

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "Alpha zero", mutate: func(c *Config) { c.Alpha = 0 }},
		{name: "Alpha above one", mutate: func(c *Config) { c.Alpha = 1.5 }},
		{name: "Gamma negative", mutate: func(c *Config) { c.Gamma = -0.1 }},
		{name: "Gamma one", mutate: func(c *Config) { c.Gamma = 1 }},
		{name: "Epsilon start below floor", mutate: func(c *Config) { c.EpsilonStart = 0.001 }},
		{name: "Decay zero", mutate: func(c *Config) { c.EpsilonDecay = 0 }},
		{name: "Synthetic ratio above one", mutate: func(c *Config) { c.SyntheticRatio = 1.2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestUpdateConvergesGeometrically(t *testing.T) {
	env := testEnv(t, 1)
	cfg := DefaultConfig()
	a, err := New(cfg, env)
	require.NoError(t, err)

	const (
		state  = 5
		action = 3
		target = 0.8
	)

	prevGap := target
	for i := 0; i < 40; i++ {
		a.Update(state, action, target, 0)
		gap := target - a.QValues(state)[action]

		assert.InDelta(t, prevGap*(1-cfg.Alpha), gap, 1e-12,
			"gap must shrink by exactly (1-alpha) per update")
		prevGap = gap
	}

	assert.InDelta(t, target, a.QValues(state)[action], 1e-3)
}

func TestUpdateBootstrapsWithGamma(t *testing.T) {
	env := testEnv(t, 1)
	cfg := DefaultConfig()
	cfg.Gamma = 0.9
	a, err := New(cfg, env)
	require.NoError(t, err)

	// Seed the next state's best value, then update once from zero.
	a.Update(7, 2, 1.0, 0) // q[7][2] = alpha * 1.0
	nextBest := a.QValues(7)[2]

	a.Update(3, 0, 0.5, 7)
	want := cfg.Alpha * (0.5 + cfg.Gamma*nextBest)
	assert.InDelta(t, want, a.QValues(3)[0], 1e-12)
}

func TestEpsilonDecayMonotoneWithFloor(t *testing.T) {
	env := testEnv(t, 1)
	a, err := New(DefaultConfig(), env)
	require.NoError(t, err)

	prev := a.Epsilon()
	for i := 0; i < 3000; i++ {
		a.DecayEpsilon()
		cur := a.Epsilon()
		if cur > prev {
			t.Fatalf("epsilon increased from %v to %v at step %d", prev, cur, i)
		}
		prev = cur
	}

	assert.Equal(t, DefaultConfig().EpsilonEnd, a.Epsilon(), "epsilon must settle at the floor")
}

func TestEpsilonBelowGateBySchedule(t *testing.T) {
	// 0.997^1000 ~= 0.0497, so the default decay crosses the 0.05
	// early-stopping gate within the first thousand episodes.
	eps := 1.0
	for i := 0; i < 1000; i++ {
		eps *= 0.997
	}
	assert.Less(t, eps, 0.05)
}

func TestReset(t *testing.T) {
	env := testEnv(t, 2)
	a, err := New(DefaultConfig(), env)
	require.NoError(t, err)

	_, err = a.RunEpisode(env, 48)
	require.NoError(t, err)
	require.Less(t, a.Epsilon(), 1.0)

	a.Reset()

	assert.Equal(t, 1.0, a.Epsilon())
	for s := 0; s < a.NumStates(); s++ {
		for _, q := range a.QValues(s) {
			if q != 0 {
				t.Fatalf("state %d holds residual value %v after reset", s, q)
			}
		}
	}
}

func TestRunEpisodeMixesSyntheticSteps(t *testing.T) {
	env := testEnv(t, 3)
	cfg := DefaultConfig()
	cfg.SyntheticRatio = 0.5
	a, err := New(cfg, env)
	require.NoError(t, err)

	total := 0
	synthetic := 0
	for e := 0; e < 20; e++ {
		stats, err := a.RunEpisode(env, 48)
		require.NoError(t, err)
		total += stats.Steps
		synthetic += stats.SyntheticSteps
	}

	ratio := float64(synthetic) / float64(total)
	assert.InDelta(t, cfg.SyntheticRatio, ratio, 0.1,
		"synthetic step share should track the configured ratio")
}

func TestRunEpisodeRewardsBounded(t *testing.T) {
	env := testEnv(t, 4)
	a, err := New(DefaultConfig(), env)
	require.NoError(t, err)

	for e := 0; e < 50; e++ {
		stats, err := a.RunEpisode(env, 48)
		require.NoError(t, err)
		if stats.AvgReward < -0.2 || stats.AvgReward > 1.0+1e-9 {
			t.Fatalf("episode %d avg reward %v outside the normalized band", e, stats.AvgReward)
		}
		if math.IsNaN(stats.AvgReward) {
			t.Fatalf("episode %d produced NaN reward", e)
		}
	}
}

func TestBestActionPicksArgmax(t *testing.T) {
	env := testEnv(t, 1)
	a, err := New(DefaultConfig(), env)
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		a.Update(9, 6, 1.0, 0)
	}
	a.Update(9, 2, 0.1, 0)

	assert.Equal(t, 6, a.BestAction(9))
}
