package agent

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarunbandi/repricer/internal/domain"
	"github.com/tarunbandi/repricer/internal/modules/market"
)

func testTrainer(t *testing.T, seed int64, cfg TrainerConfig) *Trainer {
	t.Helper()

	env := testEnv(t, seed)
	agentCfg := DefaultConfig()
	agentCfg.Seed = seed

	a, err := New(agentCfg, env)
	require.NoError(t, err)

	tr, err := NewTrainer(a, env, cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	return tr
}

func TestTrainerConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TrainerConfig)
	}{
		{name: "No episodes", mutate: func(c *TrainerConfig) { c.Episodes = 0 }},
		{name: "No steps", mutate: func(c *TrainerConfig) { c.StepsPerEpisode = 0 }},
		{name: "No window", mutate: func(c *TrainerConfig) { c.Window = 0 }},
		{name: "No patience", mutate: func(c *TrainerConfig) { c.Patience = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultTrainerConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestTrainBatchingIsDeterministic(t *testing.T) {
	cfg := DefaultTrainerConfig()
	cfg.Episodes = 400
	cfg.LogInterval = 0

	oneShot := testTrainer(t, 21, cfg)
	_, err := oneShot.Train()
	require.NoError(t, err)

	batched := testTrainer(t, 21, cfg)
	for !batched.Done() {
		_, err := batched.RunBatch(80)
		require.NoError(t, err)
	}

	require.Equal(t, oneShot.episodesRun, batched.episodesRun)
	for s := 0; s < oneShot.agent.NumStates(); s++ {
		assert.Equal(t, oneShot.agent.QValues(s), batched.agent.QValues(s),
			"value tables must match regardless of batch boundaries")
	}
	assert.Equal(t, oneShot.agent.Epsilon(), batched.agent.Epsilon())
}

func TestEarlyStopFiresOnFlatWindow(t *testing.T) {
	cfg := DefaultTrainerConfig()
	cfg.Window = 5
	cfg.Patience = 10

	tr := testTrainer(t, 1, cfg)
	tr.agent.epsilon = 0.01 // below the gate

	// An improving window keeps resetting patience.
	for i := 0; i < 5; i++ {
		tr.pushWindow(float64(i) * 0.1)
		tr.checkEarlyStop()
	}
	require.False(t, tr.stopped)

	// A flat window exhausts patience.
	for i := 0; i < cfg.Patience; i++ {
		tr.pushWindow(0.4)
		tr.checkEarlyStop()
	}

	assert.True(t, tr.stopped)
	assert.Equal(t, domain.StopReasonEarlyStop, tr.stopReason)
}

func TestEarlyStopGatedOnEpsilon(t *testing.T) {
	cfg := DefaultTrainerConfig()
	cfg.Window = 5
	cfg.Patience = 3

	tr := testTrainer(t, 1, cfg)
	tr.agent.epsilon = 0.5 // still exploring

	for i := 0; i < 30; i++ {
		tr.pushWindow(0.4)
		tr.checkEarlyStop()
	}

	assert.False(t, tr.stopped, "stopping must wait until exploration settles")
}

func TestTrainReportsCompleted(t *testing.T) {
	cfg := DefaultTrainerConfig()
	cfg.Episodes = 30
	cfg.LogInterval = 0

	tr := testTrainer(t, 9, cfg)
	res, err := tr.Train()
	require.NoError(t, err)

	assert.Equal(t, 30, res.EpisodesRun)
	assert.Equal(t, domain.StopReasonCompleted, res.StopReason)
	assert.Len(t, res.EpisodeRewards, 30)
	assert.Less(t, res.FinalEpsilon, 1.0)
}

func TestTrainedPolicyRaisesPriceInHotMarket(t *testing.T) {
	// High demand, expensive competitors, summer and a high lag price all
	// lower price sensitivity, so the full schedule should settle on one
	// of the top multipliers for that state.
	cfg := DefaultTrainerConfig()
	cfg.LogInterval = 0

	tr := testTrainer(t, 29, cfg)
	_, err := tr.Train()
	require.NoError(t, err)

	hot := market.State{DemandBin: 2, CompetitorBin: 2, SeasonBin: 2, LagBin: 2}
	best := tr.agent.BestAction(tr.env.StateToIndex(hot))

	numActions := tr.agent.NumActions()
	assert.GreaterOrEqual(t, best, numActions-3,
		"hot-market state should map to one of the three highest multipliers, got action %d", best)
}

func TestExportPolicyCoversEveryState(t *testing.T) {
	cfg := DefaultTrainerConfig()
	cfg.Episodes = 50
	cfg.LogInterval = 0

	tr := testTrainer(t, 13, cfg)
	_, err := tr.Train()
	require.NoError(t, err)

	policy := tr.ExportPolicy()
	require.Len(t, policy, tr.agent.NumStates())
	for s, a := range policy {
		if a < 0 || a >= tr.agent.NumActions() {
			t.Fatalf("state %d maps to out-of-range action %d", s, a)
		}
	}
}

func TestEvaluateGreedy(t *testing.T) {
	cfg := DefaultTrainerConfig()
	cfg.Episodes = 50
	cfg.LogInterval = 0

	tr := testTrainer(t, 17, cfg)
	_, err := tr.Train()
	require.NoError(t, err)

	epsBefore := tr.agent.Epsilon()
	res, err := tr.EvaluateGreedy(5)
	require.NoError(t, err)

	total := 0
	for _, n := range res.ActionDistribution {
		total += n
	}
	assert.Equal(t, 5*cfg.StepsPerEpisode, total)
	assert.Equal(t, epsBefore, tr.agent.Epsilon(), "evaluation must not touch epsilon")
	assert.GreaterOrEqual(t, res.AvgReward, -0.2)
	assert.LessOrEqual(t, res.AvgReward, 1.0)
}
