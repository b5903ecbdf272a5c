package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/capitalx/capitalx/internal/database"
	"github.com/capitalx/capitalx/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const uploadBatchColumns = `id, reference, customer_id, period_type, period_label, file_name, created_at`

// UploadBatchRepository handles upload batch database operations
type UploadBatchRepository struct {
	db  database.Queryer
	log zerolog.Logger
}

// NewUploadBatchRepository creates a new upload batch repository
func NewUploadBatchRepository(db database.Queryer, log zerolog.Logger) *UploadBatchRepository {
	return &UploadBatchRepository{
		db:  db,
		log: log.With().Str("repo", "upload_batch").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *UploadBatchRepository) WithTx(tx *sql.Tx) *UploadBatchRepository {
	return &UploadBatchRepository{db: tx, log: r.log}
}

// Create inserts a batch, assigning ID, a fresh Reference when empty, and CreatedAt
func (r *UploadBatchRepository) Create(ctx context.Context, b *domain.UploadBatch) error {
	if b.Reference == "" {
		b.Reference = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO upload_batches (reference, customer_id, period_type, period_label, file_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.Reference, b.CustomerID, string(b.PeriodType), b.PeriodLabel, b.FileName, b.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert upload batch for customer %d: %w", b.CustomerID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get upload batch id: %w", err)
	}
	b.ID = id
	b.CreatedAt = unixTime(b.CreatedAt.Unix())
	return nil
}

// GetByID returns the batch with the given id, or nil if none exists
func (r *UploadBatchRepository) GetByID(ctx context.Context, id int64) (*domain.UploadBatch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+uploadBatchColumns+` FROM upload_batches WHERE id = ?`, id)
	b, err := scanUploadBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload batch %d: %w", id, err)
	}
	return b, nil
}

// GetLatestForCustomer returns the most recent batch of a customer, or nil
func (r *UploadBatchRepository) GetLatestForCustomer(ctx context.Context, customerID int64) (*domain.UploadBatch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+uploadBatchColumns+` FROM upload_batches
		WHERE customer_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, customerID)
	b, err := scanUploadBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest upload batch for customer %d: %w", customerID, err)
	}
	return b, nil
}

// ListForCustomer returns all batches of a customer, newest first
func (r *UploadBatchRepository) ListForCustomer(ctx context.Context, customerID int64) ([]domain.UploadBatch, error) {
	return r.list(ctx, `WHERE customer_id = ?`, customerID)
}

// ListForCustomerByPeriod returns a customer's batches of one period type, newest first
func (r *UploadBatchRepository) ListForCustomerByPeriod(ctx context.Context, customerID int64, periodType domain.PeriodType) ([]domain.UploadBatch, error) {
	return r.list(ctx, `WHERE customer_id = ? AND period_type = ?`, customerID, string(periodType))
}

// ListForCustomerByYear returns a customer's batches uploaded during a calendar year (UTC), newest first
func (r *UploadBatchRepository) ListForCustomerByYear(ctx context.Context, customerID int64, year int) ([]domain.UploadBatch, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	return r.list(ctx, `WHERE customer_id = ? AND created_at >= ? AND created_at < ?`, customerID, start.Unix(), end.Unix())
}

func (r *UploadBatchRepository) list(ctx context.Context, where string, args ...interface{}) ([]domain.UploadBatch, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+uploadBatchColumns+` FROM upload_batches `+where+
		` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.UploadBatch
	for rows.Next() {
		b, err := scanUploadBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload batch: %w", err)
		}
		batches = append(batches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating upload batches: %w", err)
	}
	return batches, nil
}

func scanUploadBatch(s rowScanner) (*domain.UploadBatch, error) {
	var b domain.UploadBatch
	var periodType string
	var createdAt int64
	if err := s.Scan(&b.ID, &b.Reference, &b.CustomerID, &periodType, &b.PeriodLabel, &b.FileName, &createdAt); err != nil {
		return nil, err
	}
	b.PeriodType = domain.PeriodType(periodType)
	b.CreatedAt = unixTime(createdAt)
	return &b, nil
}
