package agent

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/tarunbandi/repricer/internal/modules/market"
)

// Config holds the Q-learning hyperparameters.
type Config struct {
	Alpha          float64 `json:"alpha"`           // learning rate
	Gamma          float64 `json:"gamma"`           // discount; 0 treats decisions as independent
	EpsilonStart   float64 `json:"epsilon_start"`   // initial exploration rate
	EpsilonEnd     float64 `json:"epsilon_end"`     // exploration floor
	EpsilonDecay   float64 `json:"epsilon_decay"`   // per-episode multiplicative decay
	SyntheticRatio float64 `json:"synthetic_ratio"` // per-step probability of a synthetic step
	Seed           int64   `json:"seed"`
}

// DefaultConfig matches the standard contextual-bandit setup.
func DefaultConfig() Config {
	return Config{
		Alpha:          0.2,
		Gamma:          0,
		EpsilonStart:   1.0,
		EpsilonEnd:     0.01,
		EpsilonDecay:   0.997,
		SyntheticRatio: 0.3,
		Seed:           1,
	}
}

// Validate rejects hyperparameters that cannot train.
func (c Config) Validate() error {
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1], got %v", c.Alpha)
	}
	if c.Gamma < 0 || c.Gamma >= 1 {
		return fmt.Errorf("gamma must be in [0, 1), got %v", c.Gamma)
	}
	if c.EpsilonStart < c.EpsilonEnd {
		return fmt.Errorf("epsilon start %v below floor %v", c.EpsilonStart, c.EpsilonEnd)
	}
	if c.EpsilonDecay <= 0 || c.EpsilonDecay > 1 {
		return fmt.Errorf("epsilon decay must be in (0, 1], got %v", c.EpsilonDecay)
	}
	if c.SyntheticRatio < 0 || c.SyntheticRatio > 1 {
		return fmt.Errorf("synthetic ratio must be in [0, 1], got %v", c.SyntheticRatio)
	}
	return nil
}

// EpisodeStats summarizes one training episode.
type EpisodeStats struct {
	Steps          int     `json:"steps"`
	SyntheticSteps int     `json:"synthetic_steps"`
	Explorations   int     `json:"explorations"`
	Reward         float64 `json:"reward"`
	AvgReward      float64 `json:"avg_reward"`
	Revenue        float64 `json:"revenue"`
	Margin         float64 `json:"margin"`
	Epsilon        float64 `json:"epsilon"`
}

// Agent is a tabular Q-learner over the environment's discrete state
// space. Its only persistent state is the dense value table and the
// current epsilon.
type Agent struct {
	q          []float64 // numStates x numActions, row-major
	numStates  int
	numActions int

	cfg     Config
	epsilon float64
	rng     *rand.Rand
}

// New builds an agent sized to the environment's state/action space. The
// value table starts at zero.
func New(cfg Config, env *market.Environment) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	numStates := env.TotalStates()
	numActions := env.NumActions()

	return &Agent{
		q:          make([]float64, numStates*numActions),
		numStates:  numStates,
		numActions: numActions,
		cfg:        cfg,
		epsilon:    cfg.EpsilonStart,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// SelectAction picks epsilon-greedily: a uniform random action with
// probability epsilon, otherwise the argmax of the state's Q-row.
func (a *Agent) SelectAction(stateIndex int) int {
	action, _ := a.selectAction(stateIndex)
	return action
}

func (a *Agent) selectAction(stateIndex int) (int, bool) {
	if a.rng.Float64() < a.epsilon {
		return a.rng.Intn(a.numActions), true
	}
	return a.BestAction(stateIndex), false
}

// Update applies the Q-learning rule. With gamma configured to zero the
// target collapses to the immediate reward (contextual bandit), but the
// general bootstrapped form is kept so non-zero gamma degrades correctly.
func (a *Agent) Update(stateIndex, action int, reward float64, nextStateIndex int) {
	target := reward
	if a.cfg.Gamma > 0 {
		next := a.row(nextStateIndex)
		target += a.cfg.Gamma * next[floats.MaxIdx(next)]
	}

	idx := stateIndex*a.numActions + action
	a.q[idx] += a.cfg.Alpha * (target - a.q[idx])
}

// DecayEpsilon applies one episode's exploration decay, bounded below by
// the configured floor.
func (a *Agent) DecayEpsilon() {
	a.epsilon *= a.cfg.EpsilonDecay
	if a.epsilon < a.cfg.EpsilonEnd {
		a.epsilon = a.cfg.EpsilonEnd
	}
}

// Reset restores the value table and epsilon to their initial values.
func (a *Agent) Reset() {
	for i := range a.q {
		a.q[i] = 0
	}
	a.epsilon = a.cfg.EpsilonStart
}

// RunEpisode interleaves real-cursor steps with synthetic steps from
// random states, one probability branch per step. The interleaving lets
// the value table track the empirical distribution while still covering
// states the historical slice rarely visits. Epsilon decays once at the
// end of the episode.
func (a *Agent) RunEpisode(env *market.Environment, steps int) (EpisodeStats, error) {
	stats := EpisodeStats{Steps: steps}

	for i := 0; i < steps; i++ {
		var res market.StepResult
		var err error

		if a.rng.Float64() < a.cfg.SyntheticRatio {
			state := env.RandomState()
			stateIndex := env.StateToIndex(state)
			action, explored := a.selectAction(stateIndex)
			res, err = env.SyntheticStep(state, action)
			if err != nil {
				return stats, err
			}
			if explored {
				stats.Explorations++
			}
			stats.SyntheticSteps++
		} else {
			stateIndex := env.StateToIndex(env.CurrentState())
			action, explored := a.selectAction(stateIndex)
			res, err = env.Step(action)
			if err != nil {
				return stats, err
			}
			if explored {
				stats.Explorations++
			}
		}

		a.Update(res.StateIndex, res.Action, res.Reward, res.NextStateIndex)

		stats.Reward += res.Reward
		stats.Revenue += res.Revenue
		stats.Margin += res.Margin
	}

	a.DecayEpsilon()

	if steps > 0 {
		stats.AvgReward = stats.Reward / float64(steps)
	}
	stats.Epsilon = a.epsilon

	return stats, nil
}

// QValues returns a copy of the state's Q-row.
func (a *Agent) QValues(stateIndex int) []float64 {
	return append([]float64(nil), a.row(stateIndex)...)
}

// BestAction returns the greedy action for a state.
func (a *Agent) BestAction(stateIndex int) int {
	return floats.MaxIdx(a.row(stateIndex))
}

// Epsilon returns the current exploration rate.
func (a *Agent) Epsilon() float64 {
	return a.epsilon
}

// NumStates returns the value table's state dimension.
func (a *Agent) NumStates() int { return a.numStates }

// NumActions returns the value table's action dimension.
func (a *Agent) NumActions() int { return a.numActions }

func (a *Agent) row(stateIndex int) []float64 {
	start := stateIndex * a.numActions
	return a.q[start : start+a.numActions]
}
