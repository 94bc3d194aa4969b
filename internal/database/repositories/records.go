package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tarunbandi/repricer/internal/domain"
)

// RecordRepository handles retail record database operations.
type RecordRepository struct {
	*BaseRepository
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB, log zerolog.Logger) *RecordRepository {
	return &RecordRepository{
		BaseRepository: NewBase(db, log.With().Str("repo", "records").Logger()),
	}
}

// InsertBatch inserts records in a single transaction.
func (r *RecordRepository) InsertBatch(records []domain.RetailRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO retail_records
		(product_id, category, month_year, month, year, unit_price, qty,
		 freight_price, comp_1, lag_price, inventory_level, demand_forecast,
		 weekday, holiday, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Format(time.RFC3339)
	for _, rec := range records {
		_, err := stmt.Exec(
			rec.ProductID,
			rec.Category,
			rec.MonthYear,
			rec.Month,
			rec.Year,
			rec.UnitPrice,
			rec.Qty,
			rec.FreightPrice,
			rec.CompetitorOne,
			rec.LagPrice,
			rec.InventoryLevel,
			rec.DemandForecast,
			rec.Weekday,
			rec.Holiday,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record for %s: %w", rec.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}

	r.log.Info().Int("count", len(records)).Msg("Records inserted")
	return nil
}

// GetByProduct retrieves a product's records in chronological order.
func (r *RecordRepository) GetByProduct(productID string) ([]domain.RetailRecord, error) {
	query := `
		SELECT id, product_id, category, month_year, month, year, unit_price, qty,
		       freight_price, comp_1, lag_price, inventory_level, demand_forecast,
		       weekday, holiday
		FROM retail_records
		WHERE product_id = ?
		ORDER BY year ASC, month ASC, id ASC
	`

	rows, err := r.db.Query(query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []domain.RetailRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// Products lists distinct product IDs with their record counts.
func (r *RecordRepository) Products() (map[string]int, error) {
	query := `
		SELECT product_id, COUNT(*) as cnt
		FROM retail_records
		GROUP BY product_id
		ORDER BY product_id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make(map[string]int)
	for rows.Next() {
		var id string
		var cnt int
		if err := rows.Scan(&id, &cnt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[id] = cnt
	}

	return products, nil
}

// Count returns the total number of stored records.
func (r *RecordRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM retail_records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// DeleteByProduct removes a product's records, returning the number deleted.
func (r *RecordRepository) DeleteByProduct(productID string) (int64, error) {
	res, err := r.db.Exec("DELETE FROM retail_records WHERE product_id = ?", productID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return res.RowsAffected()
}

func scanRecord(rows *sql.Rows) (domain.RetailRecord, error) {
	var rec domain.RetailRecord
	var category, monthYear sql.NullString
	var freight, comp, lag, inventory, forecast sql.NullFloat64
	var weekday, holiday sql.NullInt64

	err := rows.Scan(
		&rec.ID,
		&rec.ProductID,
		&category,
		&monthYear,
		&rec.Month,
		&rec.Year,
		&rec.UnitPrice,
		&rec.Qty,
		&freight,
		&comp,
		&lag,
		&inventory,
		&forecast,
		&weekday,
		&holiday,
	)
	if err != nil {
		return rec, err
	}

	if category.Valid {
		rec.Category = category.String
	}
	if monthYear.Valid {
		rec.MonthYear = monthYear.String
	}
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

	return rec, nil
}
