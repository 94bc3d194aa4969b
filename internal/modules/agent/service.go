package agent

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tarunbandi/repricer/internal/database/repositories"
	"github.com/tarunbandi/repricer/internal/domain"
	"github.com/tarunbandi/repricer/internal/events"
	"github.com/tarunbandi/repricer/internal/modules/market"
	"github.com/tarunbandi/repricer/internal/modules/reward"
)

// ServiceConfig bundles the pieces a training session is built from.
type ServiceConfig struct {
	Agent       Config
	Trainer     TrainerConfig
	Weights     reward.Weights
	Multipliers []float64
}

// Service owns the agent lifecycle for the active session: it builds
// the environment from a product's records, runs training, persists the
// run outcome and answers policy queries.
type Service struct {
	mu sync.Mutex

	cfg     ServiceConfig
	market  *market.Service
	records *repositories.RecordRepository
	runs    *repositories.RunRepository
	ev      *events.Manager
	log     zerolog.Logger

	agent   *Agent
	trainer *Trainer
}

// NewService creates a new agent service
func NewService(
	cfg ServiceConfig,
	marketSvc *market.Service,
	records *repositories.RecordRepository,
	runs *repositories.RunRepository,
	ev *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:     cfg,
		market:  marketSvc,
		records: records,
		runs:    runs,
		ev:      ev,
		log:     log.With().Str("module", "agent").Logger(),
	}
}

// Train loads the product's records, builds a fresh environment and
// agent, runs the full schedule and records the outcome.
func (s *Service) Train(productID string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.records.GetByProduct(productID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load records: %w", err)
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("no records for product %s", productID)
	}

	env, err := s.market.Build(productID, market.Config{
		Rows:        rows,
		Weights:     s.cfg.Weights,
		Multipliers: s.cfg.Multipliers,
	})
	if err != nil {
		return Result{}, err
	}

	a, err := New(s.cfg.Agent, env)
	if err != nil {
		return Result{}, err
	}

	trainer, err := NewTrainer(a, env, s.cfg.Trainer, s.log, s.ev)
	if err != nil {
		return Result{}, err
	}

	res, err := trainer.Train()
	if err != nil {
		return Result{}, err
	}

	s.agent = a
	s.trainer = trainer

	if err := s.runs.Create(domain.TrainingRun{
		ProductID:     productID,
		Episodes:      res.EpisodesRun,
		BestAvgReward: res.BestAvgReward,
		FinalEpsilon:  res.FinalEpsilon,
		StopReason:    res.StopReason,
		DurationMS:    res.DurationMS,
	}); err != nil {
		// Training succeeded; a bookkeeping failure should not hide the result.
		s.log.Error().Err(err).Msg("Failed to persist training run")
	}

	return res, nil
}

// Agent returns the trained agent for the active session.
func (s *Service) Agent() (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agent == nil {
		return nil, fmt.Errorf("no trained agent, run training first")
	}
	return s.agent, nil
}

// Policy exports the greedy action per state index.
func (s *Service) Policy() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trainer == nil {
		return nil, fmt.Errorf("no trained agent, run training first")
	}
	return s.trainer.ExportPolicy(), nil
}

// Recommendation is the policy's answer for one market state.
type Recommendation struct {
	State      market.State `json:"state"`
	StateIndex int          `json:"state_index"`
	Action     int          `json:"action"`
	Multiplier float64      `json:"multiplier"`
	Price      float64      `json:"price"`
	QValues    []float64    `json:"q_values"`
}

// Recommend returns the greedy action and resulting price for a state.
func (s *Service) Recommend(state market.State) (Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agent == nil {
		return Recommendation{}, fmt.Errorf("no trained agent, run training first")
	}

	env, err := s.market.Env()
	if err != nil {
		return Recommendation{}, err
	}

	idx := env.StateToIndex(state)
	if idx < 0 || idx >= s.agent.NumStates() {
		return Recommendation{}, fmt.Errorf("state %+v is outside the trained state space", state)
	}

	action := s.agent.BestAction(idx)
	mult := env.Multipliers()[action]

	return Recommendation{
		State:      state,
		StateIndex: idx,
		Action:     action,
		Multiplier: mult,
		Price:      mult * env.BasePrice(),
		QValues:    s.agent.QValues(idx),
	}, nil
}

// Evaluate runs greedy episodes against the active session.
func (s *Service) Evaluate(episodes int) (EvalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trainer == nil {
		return EvalResult{}, fmt.Errorf("no trained agent, run training first")
	}
	if episodes <= 0 {
		return EvalResult{}, fmt.Errorf("episodes must be positive, got %d", episodes)
	}
	return s.trainer.EvaluateGreedy(episodes)
}

// Runs returns recent training runs for a product.
func (s *Service) Runs(productID string, limit int) ([]domain.TrainingRun, error) {
	return s.runs.GetRecent(productID, limit)
}
