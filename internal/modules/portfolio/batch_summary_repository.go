package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/capitalx/capitalx/internal/database"
	"github.com/capitalx/capitalx/internal/domain"
	"github.com/rs/zerolog"
)

// BatchSummaryRepository handles batch summary database operations
type BatchSummaryRepository struct {
	db  database.Queryer
	log zerolog.Logger
}

// NewBatchSummaryRepository creates a new batch summary repository
func NewBatchSummaryRepository(db database.Queryer, log zerolog.Logger) *BatchSummaryRepository {
	return &BatchSummaryRepository{
		db:  db,
		log: log.With().Str("repo", "batch_summary").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *BatchSummaryRepository) WithTx(tx *sql.Tx) *BatchSummaryRepository {
	return &BatchSummaryRepository{db: tx, log: r.log}
}

// Create inserts the summary of a batch. A batch has at most one summary.
func (r *BatchSummaryRepository) Create(ctx context.Context, s *domain.BatchSummary) error {
	result, err := r.db.ExecContext(ctx, `INSERT INTO batch_summaries (
		upload_id, customer_id, total_invested_value, total_current_value, total_profit_loss,
		number_of_assets, number_of_profitable_assets, number_of_loss_assets
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UploadID, s.CustomerID,
		s.TotalInvestedValue.String(), s.TotalCurrentValue.String(), s.TotalProfitLoss.String(),
		s.NumberOfAssets, s.NumberOfProfitableAssets, s.NumberOfLossAssets)
	if err != nil {
		return fmt.Errorf("failed to insert summary for upload %d: %w", s.UploadID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get summary id: %w", err)
	}
	s.ID = id
	return nil
}

// GetByUpload returns the summary of a batch, or nil if none exists
func (r *BatchSummaryRepository) GetByUpload(ctx context.Context, uploadID int64) (*domain.BatchSummary, error) {
	var s domain.BatchSummary
	err := r.db.QueryRowContext(ctx, `SELECT id, upload_id, customer_id,
		total_invested_value, total_current_value, total_profit_loss,
		number_of_assets, number_of_profitable_assets, number_of_loss_assets
		FROM batch_summaries WHERE upload_id = ?`, uploadID).Scan(
		&s.ID, &s.UploadID, &s.CustomerID,
		&s.TotalInvestedValue, &s.TotalCurrentValue, &s.TotalProfitLoss,
		&s.NumberOfAssets, &s.NumberOfProfitableAssets, &s.NumberOfLossAssets,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary for upload %d: %w", uploadID, err)
	}
	return &s, nil
}
