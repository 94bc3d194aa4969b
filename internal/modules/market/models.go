package market

// State is a tuple of small integer bins describing discretized market
// conditions. Inventory and forecast bins stay 0 when the historical slice
// does not support the extended state.
type State struct {
	DemandBin     int `json:"demand_bin"`
	CompetitorBin int `json:"competitor_bin"`
	SeasonBin     int `json:"season_bin"`
	LagBin        int `json:"lag_bin"`
	InventoryBin  int `json:"inventory_bin"`
	ForecastBin   int `json:"forecast_bin"`
}

// StepResult carries the outcome of one environment transition.
type StepResult struct {
	State          State   `json:"state"`
	StateIndex     int     `json:"state_index"`
	NextState      State   `json:"next_state"`
	NextStateIndex int     `json:"next_state_index"`
	Action         int     `json:"action"`
	Price          float64 `json:"price"`
	Quantity       float64 `json:"quantity"`
	Revenue        float64 `json:"revenue"`
	Margin         float64 `json:"margin"`
	Reward         float64 `json:"reward"`
	Synthetic      bool    `json:"synthetic"`
}

// Overrides adjusts what-if simulations without touching environment state.
type Overrides struct {
	BaseQty    *float64 `json:"base_qty,omitempty"`
	Elasticity *float64 `json:"elasticity,omitempty"`
}
