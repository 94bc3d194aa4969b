package jobs

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tarunbandi/repricer/internal/database/repositories"
	"github.com/tarunbandi/repricer/internal/modules/agent"
)

// minRecordsForTraining guards against retraining on slices too short
// to produce meaningful quantile thresholds.
const minRecordsForTraining = 24

// RetrainJob re-runs training for every product with enough history.
// The last product trained stays the active session.
type RetrainJob struct {
	service *agent.Service
	records *repositories.RecordRepository
	log     zerolog.Logger
}

// NewRetrainJob creates a new retrain job
func NewRetrainJob(service *agent.Service, records *repositories.RecordRepository, log zerolog.Logger) *RetrainJob {
	return &RetrainJob{
		service: service,
		records: records,
		log:     log.With().Str("job", "retrain").Logger(),
	}
}

// Name returns the job name
func (j *RetrainJob) Name() string {
	return "retrain"
}

// Run retrains each eligible product sequentially.
func (j *RetrainJob) Run() error {
	products, err := j.records.Products()
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	trained := 0
	for productID, count := range products {
		if count < minRecordsForTraining {
			j.log.Debug().
				Str("product_id", productID).
				Int("records", count).
				Msg("Skipping product with too little history")
			continue
		}

		res, err := j.service.Train(productID)
		if err != nil {
			j.log.Error().Err(err).Str("product_id", productID).Msg("Retraining failed")
			continue
		}

		trained++
		j.log.Info().
			Str("product_id", productID).
			Int("episodes_run", res.EpisodesRun).
			Float64("best_avg_reward", res.BestAvgReward).
			Str("stop_reason", res.StopReason).
			Msg("Product retrained")
	}

	if trained == 0 && len(products) > 0 {
		return fmt.Errorf("no product retrained successfully")
	}

	return nil
}
