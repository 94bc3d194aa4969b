package dataset

import (
	"fmt"
	"math"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/tarunbandi/repricer/internal/domain"
)

// GeneratorConfig controls synthetic dataset generation.
type GeneratorConfig struct {
	ProductID string
	Category  string
	Months    int
	StartYear int
	Seed      int64
	Extended  bool // populate inventory/forecast columns
}

// Generate produces a plausible monthly retail history for one product:
// seasonal demand, price-sensitive quantities, a competitor shadowing
// the price, and last month's price as the lag column. Output is
// deterministic for a given seed.
func Generate(cfg GeneratorConfig) []domain.RetailRecord {
	if cfg.Months <= 0 {
		return nil
	}
	if cfg.StartYear == 0 {
		cfg.StartYear = 2023
	}

	faker := gofakeit.New(cfg.Seed)

	if cfg.ProductID == "" {
		cfg.ProductID = fmt.Sprintf("product_%d", faker.Number(1000, 9999))
	}
	if cfg.Category == "" {
		cfg.Category = faker.ProductCategory()
	}

	basePrice := faker.Float64Range(60, 140)
	baseQty := faker.Float64Range(20, 80)

	records := make([]domain.RetailRecord, 0, cfg.Months)
	lagPrice := basePrice

	for i := 0; i < cfg.Months; i++ {
		month := i%12 + 1
		year := cfg.StartYear + i/12

		// Summer peak, winter trough.
		seasonal := 1 + 0.25*math.Sin(2*math.Pi*float64(month-4)/12)

		price := basePrice * faker.Float64Range(0.9, 1.1)
		qty := baseQty * seasonal * (basePrice / price) * faker.Float64Range(0.85, 1.15)
		if qty < 1 {
			qty = 1
		}

		rec := domain.RetailRecord{
			ProductID:     cfg.ProductID,
			Category:      cfg.Category,
			MonthYear:     fmt.Sprintf("%04d-%02d", year, month),
			Month:         month,
			Year:          year,
			UnitPrice:     price,
			Qty:           qty,
			FreightPrice:  faker.Float64Range(5, 20),
			CompetitorOne: price * faker.Float64Range(0.92, 1.08),
			LagPrice:      lagPrice,
			Weekday:       faker.Number(19, 23),
			Holiday:       faker.Number(0, 3),
		}
		if cfg.Extended {
			rec.InventoryLevel = faker.Float64Range(50, 400)
			rec.DemandForecast = qty * faker.Float64Range(0.9, 1.1)
		}

		records = append(records, rec)
		lagPrice = price
	}

	return records
}
