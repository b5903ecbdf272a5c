package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/capitalx/capitalx/internal/database"
	"github.com/capitalx/capitalx/internal/domain"
	"github.com/rs/zerolog"
)

const annualPerformanceColumns = `id, customer_id, financial_year, opening_value, closing_value,
	total_invested_during_year, total_profit_loss, best_performing_asset, worst_performing_asset, updated_at`

// AnnualPerformanceRepository handles annual performance database operations
type AnnualPerformanceRepository struct {
	db  database.Queryer
	log zerolog.Logger
}

// NewAnnualPerformanceRepository creates a new annual performance repository
func NewAnnualPerformanceRepository(db database.Queryer, log zerolog.Logger) *AnnualPerformanceRepository {
	return &AnnualPerformanceRepository{
		db:  db,
		log: log.With().Str("repo", "annual_performance").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *AnnualPerformanceRepository) WithTx(tx *sql.Tx) *AnnualPerformanceRepository {
	return &AnnualPerformanceRepository{db: tx, log: r.log}
}

// Get returns the record for (customer, year), or nil if none exists
func (r *AnnualPerformanceRepository) Get(ctx context.Context, customerID int64, year int) (*domain.AnnualPerformance, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+annualPerformanceColumns+` FROM annual_performance
		WHERE customer_id = ? AND financial_year = ?`, customerID, year)
	ap, err := scanAnnualPerformance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get annual performance %d/%d: %w", customerID, year, err)
	}
	return ap, nil
}

// ListByCustomer returns all annual records of a customer, latest year first
func (r *AnnualPerformanceRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.AnnualPerformance, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+annualPerformanceColumns+` FROM annual_performance
		WHERE customer_id = ? ORDER BY financial_year DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query annual performance: %w", err)
	}
	defer rows.Close()

	var records []domain.AnnualPerformance
	for rows.Next() {
		ap, err := scanAnnualPerformance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annual performance: %w", err)
		}
		records = append(records, *ap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating annual performance: %w", err)
	}
	return records, nil
}

// Upsert inserts or replaces the record keyed by (customer, year) and sets its ID
func (r *AnnualPerformanceRepository) Upsert(ctx context.Context, ap *domain.AnnualPerformance) error {
	ap.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `INSERT INTO annual_performance (
		customer_id, financial_year, opening_value, closing_value, total_invested_during_year,
		total_profit_loss, best_performing_asset, worst_performing_asset, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (customer_id, financial_year) DO UPDATE SET
		opening_value = excluded.opening_value,
		closing_value = excluded.closing_value,
		total_invested_during_year = excluded.total_invested_during_year,
		total_profit_loss = excluded.total_profit_loss,
		best_performing_asset = excluded.best_performing_asset,
		worst_performing_asset = excluded.worst_performing_asset,
		updated_at = excluded.updated_at`,
		ap.CustomerID, ap.FinancialYear,
		ap.OpeningValue.String(), ap.ClosingValue.String(), ap.TotalInvestedDuringYear.String(), ap.TotalProfitLoss.String(),
		nullString(ap.BestPerformingAsset), nullString(ap.WorstPerformingAsset), ap.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert annual performance %d/%d: %w", ap.CustomerID, ap.FinancialYear, err)
	}

	// LastInsertId is unreliable on the update path
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM annual_performance WHERE customer_id = ? AND financial_year = ?`,
		ap.CustomerID, ap.FinancialYear).Scan(&ap.ID); err != nil {
		return fmt.Errorf("failed to read annual performance id: %w", err)
	}
	return nil
}

func scanAnnualPerformance(s rowScanner) (*domain.AnnualPerformance, error) {
	var ap domain.AnnualPerformance
	var best, worst sql.NullString
	var updatedAt int64
	if err := s.Scan(&ap.ID, &ap.CustomerID, &ap.FinancialYear,
		&ap.OpeningValue, &ap.ClosingValue, &ap.TotalInvestedDuringYear, &ap.TotalProfitLoss,
		&best, &worst, &updatedAt); err != nil {
		return nil, err
	}
	ap.BestPerformingAsset = best.String
	ap.WorstPerformingAsset = worst.String
	ap.UpdatedAt = unixTime(updatedAt)
	return &ap, nil
}
