package market

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Service owns the active simulation session: one environment built
// from one product's historical slice. Rebuilding replaces the session.
type Service struct {
	mu        sync.RWMutex
	env       *Environment
	productID string
	log       zerolog.Logger
}

// NewService creates a new market service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("module", "market").Logger(),
	}
}

// Build constructs a fresh environment and makes it the active session.
func (s *Service) Build(productID string, cfg Config) (*Environment, error) {
	env, err := NewEnvironment(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build environment for %s: %w", productID, err)
	}

	s.mu.Lock()
	s.env = env
	s.productID = productID
	s.mu.Unlock()

	s.log.Info().
		Str("product_id", productID).
		Int("rows", len(cfg.Rows)).
		Int("states", env.TotalStates()).
		Bool("extended_state", env.Encoder().HasExtendedState()).
		Msg("Environment built")

	return env, nil
}

// Env returns the active environment, or an error when no session exists.
func (s *Service) Env() (*Environment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.env == nil {
		return nil, fmt.Errorf("no active environment, train or build a session first")
	}
	return s.env, nil
}

// ProductID returns the active session's product.
func (s *Service) ProductID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.productID
}
