package gbrt

import (
	"fmt"
	"math/rand"

	"github.com/tarunbandi/repricer/pkg/formulas"
)

// Config holds the boosting hyperparameters.
type Config struct {
	Trees          int     `json:"trees"`
	MaxDepth       int     `json:"max_depth"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	LearningRate   float64 `json:"learning_rate"`
	Subsample      float64 `json:"subsample"` // fraction of rows each tree sees
	Seed           int64   `json:"seed"`
}

// DefaultConfig matches the standard demand-model setup.
func DefaultConfig() Config {
	return Config{
		Trees:          50,
		MaxDepth:       3,
		MinSamplesLeaf: 5,
		LearningRate:   0.1,
		Subsample:      0.8,
		Seed:           1,
	}
}

// Validate rejects hyperparameters that cannot fit.
func (c Config) Validate() error {
	if c.Trees <= 0 {
		return fmt.Errorf("trees must be positive, got %d", c.Trees)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive, got %d", c.MaxDepth)
	}
	if c.MinSamplesLeaf < 1 {
		return fmt.Errorf("min samples leaf must be at least 1, got %d", c.MinSamplesLeaf)
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning rate must be in (0, 1], got %v", c.LearningRate)
	}
	if c.Subsample <= 0 || c.Subsample > 1 {
		return fmt.Errorf("subsample must be in (0, 1], got %v", c.Subsample)
	}
	return nil
}

// Model is a stochastic gradient-boosted regression-tree ensemble for
// demand prediction. Trees are grown on a subsample of rows, but after
// each tree the predictions and residuals of EVERY training row are
// refreshed, so later trees always see residuals consistent with the
// full ensemble.
type Model struct {
	cfg  Config
	data Dataset

	intercept   float64
	trees       []*node
	predictions []float64 // current ensemble output per training row
	residuals   []float64 // y - predictions, kept in lockstep
	importances []float64 // accumulated split gains per feature
	rng         *rand.Rand
}

// NewModel validates the configuration and initializes the boosting
// state: intercept = mean target, residuals = target - intercept.
func NewModel(cfg Config, data Dataset) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}
	if data.Len() == 0 {
		return nil, fmt.Errorf("empty training data")
	}

	intercept := formulas.Mean(data.Y)

	m := &Model{
		cfg:         cfg,
		data:        data,
		intercept:   intercept,
		predictions: make([]float64, data.Len()),
		residuals:   make([]float64, data.Len()),
		importances: make([]float64, len(data.Names)),
		rng:         rand.New(rand.NewSource(cfg.Seed)),
	}
	for i, y := range data.Y {
		m.predictions[i] = intercept
		m.residuals[i] = y - intercept
	}
	return m, nil
}

// Train grows the full configured ensemble.
func (m *Model) Train() {
	for len(m.trees) < m.cfg.Trees {
		m.TrainOneTree()
	}
}

// TrainOneTree grows one tree on a row subsample of the current
// residuals, then updates predictions and residuals across the whole
// training set.
func (m *Model) TrainOneTree() {
	rows := m.subsampleRows()
	tree := growTree(m.data.X, m.residuals, rows, 0, m.cfg.MaxDepth, m.cfg.MinSamplesLeaf, m.importances)
	m.trees = append(m.trees, tree)

	for i, row := range m.data.X {
		m.predictions[i] += m.cfg.LearningRate * tree.predict(row)
		m.residuals[i] = m.data.Y[i] - m.predictions[i]
	}
}

// subsampleRows shuffles the row indices and keeps the leading
// fraction. A rate of 1 keeps every row.
func (m *Model) subsampleRows() []int {
	n := m.data.Len()
	if m.cfg.Subsample >= 1 {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}

	k := int(m.cfg.Subsample * float64(n))
	if k < 1 {
		k = 1
	}
	return m.rng.Perm(n)[:k]
}

// Predict scores a feature vector: intercept plus the scaled tree
// outputs, floored at zero since negative demand is meaningless.
func (m *Model) Predict(features []float64) float64 {
	pred := m.intercept
	for _, t := range m.trees {
		pred += m.cfg.LearningRate * t.predict(features)
	}
	if pred < 0 {
		return 0
	}
	return pred
}

// FeatureImportances returns the per-feature split gains normalized to
// sum to 1. An intercept-only model has no splits and reports zeros.
func (m *Model) FeatureImportances() []float64 {
	out := make([]float64, len(m.importances))
	var total float64
	for _, g := range m.importances {
		total += g
	}
	if total == 0 {
		return out
	}
	for i, g := range m.importances {
		out[i] = g / total
	}
	return out
}

// Intercept returns the constant base prediction.
func (m *Model) Intercept() float64 { return m.intercept }

// NumTrees returns how many trees have been grown so far.
func (m *Model) NumTrees() int { return len(m.trees) }

// FeatureNames returns the training matrix column names.
func (m *Model) FeatureNames() []string { return m.data.Names }
