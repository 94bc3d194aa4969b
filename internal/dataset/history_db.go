package dataset

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/tarunbandi/repricer/internal/domain"
)

// HistoryDB provides read-only access to per-product monthly sales
// history files, one SQLite database per product.
type HistoryDB struct {
	historyDir string
	log        zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(historyDir string, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

// GetMonthlyHistory fetches a product's monthly sales rows, oldest
// first, converted to retail records ready for import.
func (h *HistoryDB) GetMonthlyHistory(productID string, limit int) ([]domain.RetailRecord, error) {
	db, err := h.openHistoryDB(productID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `
		SELECT year_month, unit_price, qty, freight_price, comp_1, lag_price,
		       inventory_level, demand_forecast, weekday, holiday
		FROM monthly_sales
		ORDER BY year_month ASC
		LIMIT ?
	`

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly sales: %w", err)
	}
	defer rows.Close()

	var records []domain.RetailRecord
	for rows.Next() {
		var rec domain.RetailRecord
		var yearMonth string
		var freight, comp, lag, inventory, forecast sql.NullFloat64
		var weekday, holiday sql.NullInt64

		err := rows.Scan(&yearMonth, &rec.UnitPrice, &rec.Qty, &freight, &comp,
			&lag, &inventory, &forecast, &weekday, &holiday)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly sales row: %w", err)
		}

		rec.ProductID = productID
		rec.MonthYear = yearMonth
		rec.Year, rec.Month = parseYearMonth(yearMonth)
		if freight.Valid {
			rec.FreightPrice = freight.Float64
		}
		if comp.Valid {
			rec.CompetitorOne = comp.Float64
		}
		if lag.Valid {
			rec.LagPrice = lag.Float64
		}
		if inventory.Valid {
			rec.InventoryLevel = inventory.Float64
		}
		if forecast.Valid {
			rec.DemandForecast = forecast.Float64
		}
		if weekday.Valid {
			rec.Weekday = int(weekday.Int64)
		}
		if holiday.Valid {
			rec.Holiday = int(holiday.Int64)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly sales: %w", err)
	}

	return records, nil
}

// openHistoryDB opens the history database for a product
func (h *HistoryDB) openHistoryDB(productID string) (*sql.DB, error) {
	// Convert ID format: bed_bath_table.BR -> bed_bath_table_BR
	dbName := strings.ReplaceAll(productID, ".", "_")

	dbPath := filepath.Join(h.historyDir, dbName+".db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for %s: %w", productID, err)
	}

	// Verify database is accessible
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database for %s: %w", productID, err)
	}

	return db, nil
}

// parseYearMonth splits "2017-06" into year and month, zero on malformed input.
func parseYearMonth(s string) (year, month int) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	year, _ = strconv.Atoi(parts[0])
	month, _ = strconv.Atoi(parts[1])
	return year, month
}
