package agent

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/tarunbandi/repricer/internal/domain"
	"github.com/tarunbandi/repricer/internal/events"
	"github.com/tarunbandi/repricer/internal/modules/market"
	"github.com/tarunbandi/repricer/pkg/formulas"
)

// TrainerConfig controls the driving loop around the agent.
type TrainerConfig struct {
	Episodes        int     `json:"episodes"`
	StepsPerEpisode int     `json:"steps_per_episode"`
	Window          int     `json:"window"`            // rolling-average window
	Patience        int     `json:"patience"`          // episodes without improvement before stopping
	MinDelta        float64 `json:"min_delta"`         // improvement threshold
	EpsilonGate     float64 `json:"epsilon_gate"`      // early stopping only evaluated below this epsilon
	LogInterval     int     `json:"log_interval"`
}

// DefaultTrainerConfig mirrors the standard training schedule.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Episodes:        2000,
		StepsPerEpisode: 48,
		Window:          50,
		Patience:        200,
		MinDelta:        0.001,
		EpsilonGate:     0.05,
		LogInterval:     100,
	}
}

// Validate rejects schedules that cannot run.
func (c TrainerConfig) Validate() error {
	if c.Episodes <= 0 {
		return fmt.Errorf("episodes must be positive, got %d", c.Episodes)
	}
	if c.StepsPerEpisode <= 0 {
		return fmt.Errorf("steps per episode must be positive, got %d", c.StepsPerEpisode)
	}
	if c.Window <= 0 {
		return fmt.Errorf("rolling window must be positive, got %d", c.Window)
	}
	if c.Patience <= 0 {
		return fmt.Errorf("patience must be positive, got %d", c.Patience)
	}
	return nil
}

// Result summarizes a finished (or stopped) training session.
type Result struct {
	EpisodesRun    int       `json:"episodes_run"`
	BestAvgReward  float64   `json:"best_avg_reward"`
	FinalEpsilon   float64   `json:"final_epsilon"`
	StopReason     string    `json:"stop_reason"`
	EpisodeRewards []float64 `json:"episode_rewards"`
	DurationMS     int64     `json:"duration_ms"`
}

// Trainer drives episodes against the environment and owns convergence
// detection. All loop state lives on the struct, so batching episodes
// across calls produces the same value table as one uninterrupted run
// given the same random sequence.
type Trainer struct {
	agent *Agent
	env   *market.Environment
	cfg   TrainerConfig
	log   zerolog.Logger
	ev    *events.Manager

	episodesRun    int
	episodeRewards []float64
	window         []float64
	bestAvgReward  float64
	noImprove      int
	stopped        bool
	stopReason     string
}

// NewTrainer validates the schedule and prepares a fresh loop.
func NewTrainer(a *Agent, env *market.Environment, cfg TrainerConfig, log zerolog.Logger, ev *events.Manager) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trainer config: %w", err)
	}
	return &Trainer{
		agent:         a,
		env:           env,
		cfg:           cfg,
		log:           log.With().Str("module", "trainer").Logger(),
		ev:            ev,
		bestAvgReward: negInf(),
	}, nil
}

// Train runs the full schedule to completion or early stop.
func (t *Trainer) Train() (Result, error) {
	start := time.Now()
	t.emit(events.TrainingStarted, map[string]interface{}{
		"episodes": t.cfg.Episodes,
	})

	if _, err := t.RunBatch(t.cfg.Episodes); err != nil {
		return Result{}, err
	}

	res := t.result()
	res.DurationMS = time.Since(start).Milliseconds()

	evType := events.TrainingCompleted
	if res.StopReason == domain.StopReasonEarlyStop {
		evType = events.TrainingEarlyStop
	}
	t.emit(evType, map[string]interface{}{
		"episodes_run":    res.EpisodesRun,
		"best_avg_reward": res.BestAvgReward,
		"final_epsilon":   res.FinalEpsilon,
	})

	return res, nil
}

// RunBatch runs up to n further episodes, returning the interim result.
// Callers may spread the schedule across batches for responsiveness;
// results are identical either way.
func (t *Trainer) RunBatch(n int) (Result, error) {
	for i := 0; i < n && !t.Done(); i++ {
		stats, err := t.agent.RunEpisode(t.env, t.cfg.StepsPerEpisode)
		if err != nil {
			return Result{}, fmt.Errorf("episode %d: %w", t.episodesRun+1, err)
		}

		t.episodesRun++
		t.episodeRewards = append(t.episodeRewards, stats.AvgReward)
		t.pushWindow(stats.AvgReward)

		t.checkEarlyStop()

		if t.cfg.LogInterval > 0 && t.episodesRun%t.cfg.LogInterval == 0 {
			t.log.Info().
				Int("episode", t.episodesRun).
				Float64("avg_reward", stats.AvgReward).
				Float64("epsilon", stats.Epsilon).
				Int("synthetic_steps", stats.SyntheticSteps).
				Msg("Training progress")
		}
	}

	return t.result(), nil
}

// Done reports whether the schedule finished or early stopping fired.
func (t *Trainer) Done() bool {
	return t.stopped || t.episodesRun >= t.cfg.Episodes
}

// Agent exposes the trained agent.
func (t *Trainer) Agent() *Agent { return t.agent }

// ExportPolicy returns the greedy action for every discrete state index.
func (t *Trainer) ExportPolicy() []int {
	policy := make([]int, t.agent.NumStates())
	for s := range policy {
		policy[s] = t.agent.BestAction(s)
	}
	return policy
}

// EvalResult reports greedy-policy performance over held-out episodes.
type EvalResult struct {
	Episodes           int     `json:"episodes"`
	AvgReward          float64 `json:"avg_reward"`
	AvgRevenue         float64 `json:"avg_revenue"`
	AvgMargin          float64 `json:"avg_margin"`
	ActionDistribution []int   `json:"action_distribution"`
}

// EvaluateGreedy runs purely greedy episodes (no exploration, no learning
// side effects on epsilon) and reports aggregate performance plus how
// often each action is chosen.
func (t *Trainer) EvaluateGreedy(episodes int) (EvalResult, error) {
	res := EvalResult{
		Episodes:           episodes,
		ActionDistribution: make([]int, t.agent.NumActions()),
	}

	var totalReward, totalRevenue, totalMargin float64
	steps := 0

	for e := 0; e < episodes; e++ {
		t.env.Reset()
		for s := 0; s < t.cfg.StepsPerEpisode; s++ {
			stateIndex := t.env.StateToIndex(t.env.CurrentState())
			action := t.agent.BestAction(stateIndex)

			step, err := t.env.Step(action)
			if err != nil {
				return res, err
			}

			res.ActionDistribution[action]++
			totalReward += step.Reward
			totalRevenue += step.Revenue
			totalMargin += step.Margin
			steps++
		}
	}

	if steps > 0 {
		res.AvgReward = totalReward / float64(steps)
		res.AvgRevenue = totalRevenue / float64(steps)
		res.AvgMargin = totalMargin / float64(steps)
	}

	return res, nil
}

// pushWindow appends to the rolling window, evicting the oldest entry.
func (t *Trainer) pushWindow(avgReward float64) {
	t.window = append(t.window, avgReward)
	if len(t.window) > t.cfg.Window {
		t.window = t.window[1:]
	}
}

// checkEarlyStop evaluates the rolling average once exploration has
// settled. Earlier episodes are dominated by exploration noise, so the
// reward signal only becomes meaningful below the epsilon gate.
func (t *Trainer) checkEarlyStop() {
	if t.agent.Epsilon() >= t.cfg.EpsilonGate || len(t.window) < t.cfg.Window {
		return
	}

	avg := formulas.Mean(t.window)
	if avg > t.bestAvgReward+t.cfg.MinDelta {
		t.bestAvgReward = avg
		t.noImprove = 0
		return
	}

	t.noImprove++
	if t.noImprove >= t.cfg.Patience {
		t.stopped = true
		t.stopReason = domain.StopReasonEarlyStop
		t.log.Info().
			Int("episode", t.episodesRun).
			Float64("best_avg_reward", t.bestAvgReward).
			Msg("Early stopping")
	}
}

func (t *Trainer) result() Result {
	reason := t.stopReason
	if reason == "" {
		reason = domain.StopReasonCompleted
	}

	best := t.bestAvgReward
	if best == negInf() {
		// Early stopping never engaged; report the window average instead.
		best = formulas.Mean(t.window)
	}

	return Result{
		EpisodesRun:    t.episodesRun,
		BestAvgReward:  best,
		FinalEpsilon:   t.agent.Epsilon(),
		StopReason:     reason,
		EpisodeRewards: append([]float64(nil), t.episodeRewards...),
	}
}

func (t *Trainer) emit(evType events.EventType, data map[string]interface{}) {
	if t.ev != nil {
		t.ev.Emit(evType, "trainer", data)
	}
}

func negInf() float64 {
	return math.Inf(-1)
}
