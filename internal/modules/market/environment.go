package market

import (
	"fmt"
	"math/rand"

	"github.com/tarunbandi/repricer/internal/domain"
	"github.com/tarunbandi/repricer/internal/modules/reward"
)

// defaultPriceChangePenalty weights the stability penalty applied when an
// action differs from the previous one.
const defaultPriceChangePenalty = 0.15

// Config describes an environment for one product's historical slice.
type Config struct {
	Rows               []domain.RetailRecord
	Weights            reward.Weights
	Multipliers        []float64
	PriceChangePenalty float64 // 0 means default
	Bins               BinConfig
	Rand               *rand.Rand // nil means a fixed-seed source
}

// Environment owns the discretization, the demand backend and the frozen
// reward normalization ranges, and simulates pricing steps over the
// historical slice. One instance is exclusively owned by one caller.
type Environment struct {
	rows          []domain.RetailRecord
	weights       reward.Weights
	multipliers   []float64
	penaltyWeight float64

	encoder    *Encoder
	elasticity *ElasticityModel
	demand     DemandModel

	revenueRange reward.Range
	marginRange  reward.Range
	volumeRange  reward.Range

	cursor     int
	lastAction int
	rng        *rand.Rand
}

// NewEnvironment validates the configuration and freezes thresholds, base
// statistics and reward normalization ranges. The ranges project revenue,
// margin and volume from the cheapest and most expensive actions against
// plausible demand swings, so rewards stay comparable across training.
func NewEnvironment(cfg Config) (*Environment, error) {
	if len(cfg.Rows) == 0 {
		return nil, fmt.Errorf("environment requires at least one retail record")
	}
	if len(cfg.Multipliers) == 0 {
		return nil, fmt.Errorf("environment requires a non-empty action multiplier list")
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reward weights: %w", err)
	}

	bins := cfg.Bins
	if bins.Demand == 0 {
		bins = DefaultBinConfig()
	}
	if err := bins.Validate(); err != nil {
		return nil, err
	}

	penalty := cfg.PriceChangePenalty
	if penalty == 0 {
		penalty = defaultPriceChangePenalty
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	encoder := NewEncoder(cfg.Rows, bins)

	basePrice := encoder.BasePrice()
	baseCost := encoder.BaseCost()
	baseQty := encoder.BaseQty()

	env := &Environment{
		rows:          cfg.Rows,
		weights:       cfg.Weights,
		multipliers:   append([]float64(nil), cfg.Multipliers...),
		penaltyWeight: penalty,
		encoder:       encoder,
		elasticity:    NewElasticityModel(encoder),
		revenueRange: reward.Range{
			Min: basePrice * 0.95 * baseQty * 0.6,
			Max: basePrice * 1.30 * baseQty * 1.1,
		},
		marginRange: reward.Range{
			Min: (basePrice*0.95 - baseCost) * baseQty * 0.6,
			Max: (basePrice*1.30 - baseCost) * baseQty * 1.1,
		},
		volumeRange: reward.Range{
			Min: baseQty * 0.3,
			Max: baseQty * 1.2,
		},
		lastAction: -1,
		rng:        rng,
	}
	env.demand = env.elasticity

	return env, nil
}

// SetDemandModel swaps in a learned demand backend. Passing nil restores
// the default elasticity strategy.
func (e *Environment) SetDemandModel(m DemandModel) {
	if m == nil {
		e.demand = e.elasticity
		return
	}
	e.demand = m
}

// Reset moves the cursor to a random row and clears the action history.
func (e *Environment) Reset() State {
	e.cursor = e.rng.Intn(len(e.rows))
	e.lastAction = -1
	return e.encoder.EncodeState(e.rows[e.cursor])
}

// CurrentState returns the discrete state at the data cursor.
func (e *Environment) CurrentState() State {
	return e.encoder.EncodeState(e.rows[e.cursor])
}

// Step applies an action at the cursor row, advances the cursor circularly
// and returns the transition. A stability penalty applies when the action
// differs from the previous one.
func (e *Environment) Step(action int) (StepResult, error) {
	if err := e.checkAction(action); err != nil {
		return StepResult{}, err
	}

	row := e.rows[e.cursor]
	state := e.encoder.EncodeState(row)

	res := e.outcome(state, row, action, false)
	res.Reward -= e.stabilityPenalty(action)
	e.lastAction = action

	e.cursor = (e.cursor + 1) % len(e.rows)
	res.NextState = e.encoder.EncodeState(e.rows[e.cursor])
	res.NextStateIndex = e.encoder.StateToIndex(res.NextState)

	return res, nil
}

// SyntheticStep evaluates an action from an arbitrary state with ±10%
// multiplicative demand noise and a uniformly random next state. It gives
// rare or absent states training coverage the historical cursor alone
// would never provide. The cursor and action history are untouched, so
// real-data transitions are never penalized against synthetic ones.
func (e *Environment) SyntheticStep(state State, action int) (StepResult, error) {
	if err := e.checkAction(action); err != nil {
		return StepResult{}, err
	}

	rec := e.encoder.RecordFromState(state)
	res := e.outcome(state, rec, action, true)

	noise := 0.9 + e.rng.Float64()*0.2
	res.Quantity = maxf(1, res.Quantity*noise)
	res.Revenue = res.Price * res.Quantity
	res.Margin = (res.Price - e.encoder.BaseCost()) * res.Quantity
	res.Reward = reward.Compute(res.Revenue, res.Margin, res.Quantity,
		e.weights, e.revenueRange, e.marginRange, e.volumeRange)
	res.Reward -= e.stabilityPenalty(action)

	res.NextState = e.RandomState()
	res.NextStateIndex = e.encoder.StateToIndex(res.NextState)

	return res, nil
}

// SimulateAction is the deterministic, side-effect-free what-if query: no
// noise, no penalty, no cursor movement.
func (e *Environment) SimulateAction(state State, action int, ov *Overrides) (StepResult, error) {
	if err := e.checkAction(action); err != nil {
		return StepResult{}, err
	}

	rec := e.encoder.RecordFromState(state)
	if ov != nil && ov.BaseQty != nil {
		rec.Qty = *ov.BaseQty
		if e.encoder.HasExtendedState() {
			rec.DemandForecast = *ov.BaseQty
		}
	}

	demand := e.demand
	if ov != nil && ov.Elasticity != nil {
		demand = e.elasticity.WithElasticity(*ov.Elasticity)
	}

	res := e.outcomeWith(demand, state, rec, action, false)
	res.NextState = state
	res.NextStateIndex = res.StateIndex
	return res, nil
}

// RandomState samples a uniformly random reachable state.
func (e *Environment) RandomState() State {
	return e.encoder.IndexToState(e.rng.Intn(e.encoder.TotalStates()))
}

// outcome computes price, quantity, revenue, margin and the base reward
// for an action taken in a state backed by the given record.
func (e *Environment) outcome(state State, rec domain.RetailRecord, action int, synthetic bool) StepResult {
	return e.outcomeWith(e.demand, state, rec, action, synthetic)
}

func (e *Environment) outcomeWith(demand DemandModel, state State, rec domain.RetailRecord, action int, synthetic bool) StepResult {
	price := e.encoder.BasePrice() * e.multipliers[action]
	qty := maxf(1, demand.PredictQuantity(rec, state, price))

	revenue := price * qty
	margin := (price - e.encoder.BaseCost()) * qty

	return StepResult{
		State:      state,
		StateIndex: e.encoder.StateToIndex(state),
		Action:     action,
		Price:      price,
		Quantity:   qty,
		Revenue:    revenue,
		Margin:     margin,
		Reward: reward.Compute(revenue, margin, qty,
			e.weights, e.revenueRange, e.marginRange, e.volumeRange),
		Synthetic: synthetic,
	}
}

func (e *Environment) stabilityPenalty(action int) float64 {
	if e.lastAction < 0 {
		return 0
	}
	return reward.PriceChangePenalty(
		e.multipliers[e.lastAction], e.multipliers[action], e.penaltyWeight)
}

func (e *Environment) checkAction(action int) error {
	if action < 0 || action >= len(e.multipliers) {
		return fmt.Errorf("action %d out of range [0, %d)", action, len(e.multipliers))
	}
	return nil
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Accessors used by the agent, the explainer and the HTTP handlers.

func (e *Environment) Encoder() *Encoder { return e.encoder }

func (e *Environment) StateToIndex(s State) int { return e.encoder.StateToIndex(s) }

func (e *Environment) IndexToState(i int) State { return e.encoder.IndexToState(i) }

func (e *Environment) TotalStates() int { return e.encoder.TotalStates() }

func (e *Environment) NumActions() int { return len(e.multipliers) }

func (e *Environment) BasePrice() float64 { return e.encoder.BasePrice() }

func (e *Environment) BaseCost() float64 { return e.encoder.BaseCost() }

func (e *Environment) BaseQty() float64 { return e.encoder.BaseQty() }

func (e *Environment) Rows() []domain.RetailRecord { return e.rows }

// Multipliers returns a copy of the action ladder.
func (e *Environment) Multipliers() []float64 {
	return append([]float64(nil), e.multipliers...)
}
