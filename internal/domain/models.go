package domain

import "time"

// RetailRecord represents one historical retail observation for a product.
// Records are immutable inputs: the environment and the demand model read
// them but never mutate them.
type RetailRecord struct {
	ID             int64   `json:"id"`
	ProductID      string  `json:"product_id"`
	Category       string  `json:"category"`
	MonthYear      string  `json:"month_year"` // e.g. "2017-06"
	Month          int     `json:"month"`      // 1-12
	Year           int     `json:"year"`
	UnitPrice      float64 `json:"unit_price"`
	Qty            float64 `json:"qty"`
	FreightPrice   float64 `json:"freight_price"`
	CompetitorOne  float64 `json:"comp_1"`
	LagPrice       float64 `json:"lag_price"`
	InventoryLevel float64 `json:"inventory_level"` // 0 when not tracked
	DemandForecast float64 `json:"demand_forecast"` // 0 when not tracked
	Weekday        int     `json:"weekday"`
	Holiday        int     `json:"holiday"`
}

// TrainingRun records the outcome of one completed training session.
// Only run metadata is persisted, never the value table itself.
type TrainingRun struct {
	ID            int64     `json:"id"`
	ProductID     string    `json:"product_id"`
	Episodes      int       `json:"episodes"`
	BestAvgReward float64   `json:"best_avg_reward"`
	FinalEpsilon  float64   `json:"final_epsilon"`
	StopReason    string    `json:"stop_reason"` // "completed" or "early_stop"
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// StopReason values for TrainingRun.
const (
	StopReasonCompleted = "completed"
	StopReasonEarlyStop = "early_stop"
)

// DefaultActionMultipliers is the standard price action ladder: twelve
// multipliers from 0.80x to 1.60x, denser around 1.00x where most
// repricing decisions live.
var DefaultActionMultipliers = []float64{
	0.80, 0.85, 0.90, 0.95, 1.00, 1.05, 1.10, 1.15, 1.20, 1.30, 1.45, 1.60,
}
