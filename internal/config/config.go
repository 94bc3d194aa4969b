package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	HistoryDir   string
	LogLevel     string
	Port         int
	DevMode      bool

	// Demo product seeded on first start when the store is empty.
	DemoProductID string

	// Reward weighting
	RevenueWeight float64
	MarginWeight  float64
	VolumeWeight  float64

	// Agent hyperparameters
	Alpha          float64
	Gamma          float64
	EpsilonStart   float64
	EpsilonEnd     float64
	EpsilonDecay   float64
	SyntheticRatio float64
	Seed           int64

	// Training schedule
	Episodes        int
	StepsPerEpisode int

	// Demand model
	Trees          int
	MaxDepth       int
	MinSamplesLeaf int
	LearningRate   float64
	Subsample      float64

	// Cron expression with seconds field, e.g. "0 0 3 * * *"
	RetrainSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("GO_PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		DatabasePath: getEnv("DATABASE_PATH", "./data/repricer.db"),
		HistoryDir:   getEnv("HISTORY_DIR", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		DemoProductID: getEnv("DEMO_PRODUCT_ID", "demo_product"),

		RevenueWeight: getEnvAsFloat("REVENUE_WEIGHT", 0.5),
		MarginWeight:  getEnvAsFloat("MARGIN_WEIGHT", 0.3),
		VolumeWeight:  getEnvAsFloat("VOLUME_WEIGHT", 0.2),

		Alpha:          getEnvAsFloat("AGENT_ALPHA", 0.1),
		Gamma:          getEnvAsFloat("AGENT_GAMMA", 0.0),
		EpsilonStart:   getEnvAsFloat("AGENT_EPSILON_START", 1.0),
		EpsilonEnd:     getEnvAsFloat("AGENT_EPSILON_END", 0.01),
		EpsilonDecay:   getEnvAsFloat("AGENT_EPSILON_DECAY", 0.997),
		SyntheticRatio: getEnvAsFloat("AGENT_SYNTHETIC_RATIO", 0.3),
		Seed:           int64(getEnvAsInt("AGENT_SEED", 1)),

		Episodes:        getEnvAsInt("TRAIN_EPISODES", 2000),
		StepsPerEpisode: getEnvAsInt("TRAIN_STEPS_PER_EPISODE", 48),

		Trees:          getEnvAsInt("GBRT_TREES", 50),
		MaxDepth:       getEnvAsInt("GBRT_MAX_DEPTH", 3),
		MinSamplesLeaf: getEnvAsInt("GBRT_MIN_SAMPLES_LEAF", 5),
		LearningRate:   getEnvAsFloat("GBRT_LEARNING_RATE", 0.1),
		Subsample:      getEnvAsFloat("GBRT_SUBSAMPLE", 0.8),

		RetrainSchedule: getEnv("RETRAIN_SCHEDULE", "0 0 3 * * *"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.RevenueWeight+c.MarginWeight+c.VolumeWeight <= 0 {
		return fmt.Errorf("reward weights must sum to a positive value")
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("AGENT_ALPHA must be in (0, 1], got %v", c.Alpha)
	}
	if c.EpsilonDecay <= 0 || c.EpsilonDecay > 1 {
		return fmt.Errorf("AGENT_EPSILON_DECAY must be in (0, 1], got %v", c.EpsilonDecay)
	}
	if c.Episodes <= 0 {
		return fmt.Errorf("TRAIN_EPISODES must be positive, got %d", c.Episodes)
	}
	if c.Trees <= 0 {
		return fmt.Errorf("GBRT_TREES must be positive, got %d", c.Trees)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
