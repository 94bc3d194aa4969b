package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tarunbandi/repricer/internal/domain"
)

// RunRepository persists training run metadata. The value table itself
// is never stored, only the run's outcome.
type RunRepository struct {
	*BaseRepository
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		BaseRepository: NewBase(db, log.With().Str("repo", "runs").Logger()),
	}
}

// Create inserts a completed run.
func (r *RunRepository) Create(run domain.TrainingRun) error {
	query := `
		INSERT INTO training_runs
		(product_id, episodes_run, best_avg_reward, final_epsilon, stop_reason, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ProductID,
		run.Episodes,
		run.BestAvgReward,
		run.FinalEpsilon,
		run.StopReason,
		run.DurationMS,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create training run: %w", err)
	}

	r.log.Info().
		Str("product_id", run.ProductID).
		Int("episodes", run.Episodes).
		Str("stop_reason", run.StopReason).
		Msg("Training run recorded")

	return nil
}

// GetRecent retrieves the most recent runs for a product.
func (r *RunRepository) GetRecent(productID string, limit int) ([]domain.TrainingRun, error) {
	query := `
		SELECT id, product_id, episodes_run, best_avg_reward, final_epsilon,
		       stop_reason, duration_ms, created_at
		FROM training_runs
		WHERE product_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.TrainingRun
	for rows.Next() {
		var run domain.TrainingRun
		var createdAt sql.NullString

		err := rows.Scan(
			&run.ID,
			&run.ProductID,
			&run.Episodes,
			&run.BestAvgReward,
			&run.FinalEpsilon,
			&run.StopReason,
			&run.DurationMS,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}

		if createdAt.Valid {
			if t, err := time.Parse(time.RFC3339, createdAt.String); err == nil {
				run.CreatedAt = t
			}
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating training runs: %w", err)
	}

	return runs, nil
}
