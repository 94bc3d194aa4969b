package market

import (
	"math"
	"testing"

	"github.com/tarunbandi/repricer/internal/domain"
)

func testRows(n int, extended bool) []domain.RetailRecord {
	rows := make([]domain.RetailRecord, n)
	for i := 0; i < n; i++ {
		r := domain.RetailRecord{
			ProductID:     "product_0",
			Month:         i%12 + 1,
			UnitPrice:     80 + float64(i%20),
			Qty:           10 + float64(i%30),
			FreightPrice:  12 + float64(i%5),
			CompetitorOne: 75 + float64((i*7)%25),
			LagPrice:      78 + float64((i*3)%18),
		}
		if extended {
			r.InventoryLevel = 100 + float64((i*11)%200)
			r.DemandForecast = 12 + float64((i*5)%28)
		}
		rows[i] = r
	}
	return rows
}

func TestStateIndexBijection(t *testing.T) {
	tests := []struct {
		name       string
		extended   bool
		wantStates int
	}{
		{name: "Base state space 3x3x4x3", extended: false, wantStates: 108},
		{name: "Extended state space 3x3x4x3x3x3", extended: true, wantStates: 972},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewEncoder(testRows(120, tt.extended), DefaultBinConfig())

			if got := enc.TotalStates(); got != tt.wantStates {
				t.Fatalf("TotalStates() = %d, want %d", got, tt.wantStates)
			}

			for idx := 0; idx < enc.TotalStates(); idx++ {
				s := enc.IndexToState(idx)
				back := enc.StateToIndex(s)
				if back != idx {
					t.Fatalf("StateToIndex(IndexToState(%d)) = %d", idx, back)
				}
			}
		})
	}
}

func TestUnsupportedDimensionsCollapse(t *testing.T) {
	enc := NewEncoder(testRows(120, false), DefaultBinConfig())

	if enc.HasExtendedState() {
		t.Fatal("rows without inventory/forecast should not enable extended state")
	}

	s := enc.EncodeState(testRows(1, false)[0])
	if s.InventoryBin != 0 || s.ForecastBin != 0 {
		t.Errorf("unsupported dimensions should bin to 0, got %+v", s)
	}
}

func TestExtendedStateCoverageThreshold(t *testing.T) {
	// Inventory/forecast populated on fewer than 10% of rows stays unsupported.
	rows := testRows(100, false)
	for i := 0; i < 8; i++ {
		rows[i].InventoryLevel = 50
		rows[i].DemandForecast = 20
	}

	enc := NewEncoder(rows, DefaultBinConfig())
	if enc.HasExtendedState() {
		t.Error("sparse inventory/forecast columns should not enable extended state")
	}
}

func TestSeasonBin(t *testing.T) {
	tests := []struct {
		month int
		want  int
	}{
		{12, 0}, {1, 0}, {2, 0},
		{3, 1}, {5, 1},
		{6, 2}, {8, 2},
		{9, 3}, {11, 3},
	}

	for _, tt := range tests {
		if got := SeasonBin(tt.month); got != tt.want {
			t.Errorf("SeasonBin(%d) = %d, want %d", tt.month, got, tt.want)
		}
	}
}

func TestMissingCompetitorColumnFallback(t *testing.T) {
	rows := testRows(60, false)
	for i := range rows {
		rows[i].CompetitorOne = 0
		rows[i].LagPrice = 0
	}

	enc := NewEncoder(rows, DefaultBinConfig())

	// Binning must still work, everything lands in a valid bin.
	s := enc.EncodeState(rows[0])
	if s.CompetitorBin < 0 || s.CompetitorBin >= 3 || s.LagBin < 0 || s.LagBin >= 3 {
		t.Errorf("fallback thresholds produced out-of-range bins: %+v", s)
	}
}

func TestRecordFromStateRoundTrip(t *testing.T) {
	enc := NewEncoder(testRows(120, true), DefaultBinConfig())

	s := State{DemandBin: 2, CompetitorBin: 1, SeasonBin: 2, LagBin: 0, InventoryBin: 1, ForecastBin: 2}
	rec := enc.RecordFromState(s)

	if rec.Month != 7 {
		t.Errorf("summer state should map to a representative summer month, got %d", rec.Month)
	}
	if rec.Qty <= 0 {
		t.Errorf("reconstructed quantity must be positive, got %v", rec.Qty)
	}
	if rec.DemandForecast != rec.Qty {
		t.Errorf("reconstructed forecast should track scaled quantity, got %v vs %v", rec.DemandForecast, rec.Qty)
	}
}

func TestDemandScale(t *testing.T) {
	if got := DemandScale(0, 3); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("lowest demand bin should scale to 0.6, got %v", got)
	}
	if got := DemandScale(2, 3); math.Abs(got-1.1) > 1e-12 {
		t.Errorf("highest demand bin should scale to 1.1, got %v", got)
	}
}
