package gbrt

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tarunbandi/repricer/internal/database/repositories"
	"github.com/tarunbandi/repricer/internal/events"
	"github.com/tarunbandi/repricer/internal/modules/market"
)

const testFraction = 0.2

// FitResult summarizes a demand model fit.
type FitResult struct {
	ProductID   string    `json:"product_id"`
	Rows        int       `json:"rows"`
	Trees       int       `json:"trees"`
	TrainR2     float64   `json:"train_r2"`
	TestR2      float64   `json:"test_r2"`
	Intercept   float64   `json:"intercept"`
	Importances []float64 `json:"importances"`
	Features    []string  `json:"features"`
}

// Service owns the learned demand model for the active session and its
// binding into the market environment.
type Service struct {
	mu sync.Mutex

	cfg     Config
	records *repositories.RecordRepository
	market  *market.Service
	ev      *events.Manager
	log     zerolog.Logger

	model     *Model
	productID string
	lastFit   FitResult
	bound     bool
}

// NewService creates a new demand model service
func NewService(
	cfg Config,
	records *repositories.RecordRepository,
	marketSvc *market.Service,
	ev *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:     cfg,
		records: records,
		market:  marketSvc,
		ev:      ev,
		log:     log.With().Str("module", "gbrt").Logger(),
	}
}

// Fit trains a fresh ensemble on the product's records with a held-out
// split for overfitting detection.
func (s *Service) Fit(productID string) (FitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.records.GetByProduct(productID)
	if err != nil {
		return FitResult{}, fmt.Errorf("failed to load records: %w", err)
	}
	if len(rows) == 0 {
		return FitResult{}, fmt.Errorf("no records for product %s", productID)
	}

	ds, err := PrepareFeatures(rows)
	if err != nil {
		return FitResult{}, err
	}

	train, test := TrainTestSplit(ds, testFraction, rand.New(rand.NewSource(s.cfg.Seed)))

	model, err := NewModel(s.cfg, train)
	if err != nil {
		return FitResult{}, err
	}
	model.Train()

	res := FitResult{
		ProductID:   productID,
		Rows:        ds.Len(),
		Trees:       model.NumTrees(),
		TrainR2:     model.RSquared(train),
		TestR2:      model.RSquared(test),
		Intercept:   model.Intercept(),
		Importances: model.FeatureImportances(),
		Features:    model.FeatureNames(),
	}

	s.model = model
	s.productID = productID
	s.lastFit = res
	s.bound = false

	s.log.Info().
		Str("product_id", productID).
		Int("rows", res.Rows).
		Float64("train_r2", res.TrainR2).
		Float64("test_r2", res.TestR2).
		Msg("Demand model fitted")

	if s.ev != nil {
		s.ev.Emit(events.DemandModelFitted, "gbrt", map[string]interface{}{
			"product_id": productID,
			"train_r2":   res.TrainR2,
			"test_r2":    res.TestR2,
		})
	}

	return res, nil
}

// Bind injects the fitted model into the active environment as its
// demand backend.
func (s *Service) Bind() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model == nil {
		return fmt.Errorf("no fitted model, fit one first")
	}

	env, err := s.market.Env()
	if err != nil {
		return err
	}
	if s.market.ProductID() != s.productID {
		return fmt.Errorf("model fitted for %s but active session is %s", s.productID, s.market.ProductID())
	}

	env.SetDemandModel(NewDemandAdapter(s.model))
	s.bound = true

	s.log.Info().Str("product_id", s.productID).Msg("Demand model bound to environment")
	if s.ev != nil {
		s.ev.Emit(events.DemandModelBound, "gbrt", map[string]interface{}{
			"product_id": s.productID,
		})
	}

	return nil
}

// Unbind restores the environment's default elasticity backend.
func (s *Service) Unbind() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.market.Env()
	if err != nil {
		return err
	}

	env.SetDemandModel(nil)
	s.bound = false
	return nil
}

// LastFit returns the most recent fit summary.
func (s *Service) LastFit() (FitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return FitResult{}, fmt.Errorf("no fitted model, fit one first")
	}
	return s.lastFit, nil
}

// Curve computes the demand curve over the given prices.
func (s *Service) Curve(prices []float64) ([]CurvePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return nil, fmt.Errorf("no fitted model, fit one first")
	}
	return s.model.DemandCurve(prices), nil
}

// Dependence computes partial dependence, optionally conditioned on a
// second feature's quantile bins.
func (s *Service) Dependence(feature int, points []float64, condFeature, condBins int) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return nil, fmt.Errorf("no fitted model, fit one first")
	}

	if condBins > 0 {
		return s.model.ConditionalDependence(feature, points, condFeature, condBins)
	}
	return s.model.PartialDependence(feature, points)
}
