package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tarunbandi/repricer/internal/config"
	"github.com/tarunbandi/repricer/internal/database"
	"github.com/tarunbandi/repricer/internal/database/repositories"
	"github.com/tarunbandi/repricer/internal/dataset"
	"github.com/tarunbandi/repricer/internal/domain"
	"github.com/tarunbandi/repricer/internal/events"
	"github.com/tarunbandi/repricer/internal/modules/agent"
	"github.com/tarunbandi/repricer/internal/modules/agent/jobs"
	"github.com/tarunbandi/repricer/internal/modules/explain"
	"github.com/tarunbandi/repricer/internal/modules/gbrt"
	"github.com/tarunbandi/repricer/internal/modules/market"
	"github.com/tarunbandi/repricer/internal/modules/reward"
	"github.com/tarunbandi/repricer/internal/scheduler"
	"github.com/tarunbandi/repricer/internal/server"
	"github.com/tarunbandi/repricer/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet; config errors go straight to stderr.
		panic(err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Repricer")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Event bus
	ev := events.NewManager(log)

	// Repositories
	records := repositories.NewRecordRepository(db.Conn(), log)
	runs := repositories.NewRunRepository(db.Conn(), log)

	// Module services
	marketSvc := market.NewService(log)

	agentSvc := agent.NewService(agent.ServiceConfig{
		Agent: agent.Config{
			Alpha:          cfg.Alpha,
			Gamma:          cfg.Gamma,
			EpsilonStart:   cfg.EpsilonStart,
			EpsilonEnd:     cfg.EpsilonEnd,
			EpsilonDecay:   cfg.EpsilonDecay,
			SyntheticRatio: cfg.SyntheticRatio,
			Seed:           cfg.Seed,
		},
		Trainer: func() agent.TrainerConfig {
			tc := agent.DefaultTrainerConfig()
			tc.Episodes = cfg.Episodes
			tc.StepsPerEpisode = cfg.StepsPerEpisode
			return tc
		}(),
		Weights: reward.Weights{
			Revenue: cfg.RevenueWeight,
			Margin:  cfg.MarginWeight,
			Volume:  cfg.VolumeWeight,
		},
		Multipliers: domain.DefaultActionMultipliers,
	}, marketSvc, records, runs, ev, log)

	demandSvc := gbrt.NewService(gbrt.Config{
		Trees:          cfg.Trees,
		MaxDepth:       cfg.MaxDepth,
		MinSamplesLeaf: cfg.MinSamplesLeaf,
		LearningRate:   cfg.LearningRate,
		Subsample:      cfg.Subsample,
		Seed:           cfg.Seed,
	}, records, marketSvc, ev, log)

	// Per-product history databases are optional
	var historyDB *dataset.HistoryDB
	if cfg.HistoryDir != "" {
		historyDB = dataset.NewHistoryDB(cfg.HistoryDir, log)
	}

	// Seed a demo product on first start so the API is usable out of the box
	if err := seedDemoProduct(cfg, records, ev, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed demo product")
	}

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	retrain := jobs.NewRetrainJob(agentSvc, records, log)
	if err := sched.AddJob(cfg.RetrainSchedule, retrain); err != nil {
		log.Fatal().Err(err).Msg("Failed to register retrain job")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:   cfg.Port,
		Log:    log,
		DB:     db,
		Config: cfg,
		Handlers: server.Handlers{
			Market:  market.NewHandler(marketSvc, log),
			Agent:   agent.NewHandler(agentSvc, log),
			Demand:  gbrt.NewHandler(demandSvc, log),
			Explain: explain.NewHandler(agentSvc, marketSvc, log),
			Dataset: dataset.NewHandler(records, historyDB, ev, log),
		},
		DevMode: cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// seedDemoProduct populates an empty store with a synthetic history so
// training and fitting endpoints work immediately.
func seedDemoProduct(cfg *config.Config, records *repositories.RecordRepository, ev *events.Manager, log zerolog.Logger) error {
	count, err := records.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rows := dataset.Generate(dataset.GeneratorConfig{
		ProductID: cfg.DemoProductID,
		Months:    36,
		Seed:      cfg.Seed,
		Extended:  true,
	})
	if err := records.InsertBatch(rows); err != nil {
		return err
	}

	ev.Emit(events.DatasetSeeded, "dataset", map[string]interface{}{
		"product_id": cfg.DemoProductID,
		"months":     len(rows),
		"synthetic":  true,
	})

	log.Info().
		Str("product_id", cfg.DemoProductID).
		Int("months", len(rows)).
		Msg("Seeded demo product")

	return nil
}
