package portfolio

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/capitalx/capitalx/internal/database"
	"github.com/capitalx/capitalx/internal/domain"
	"github.com/rs/zerolog"
)

// HoldingWithAsset is a holding joined with the asset it refers to
type HoldingWithAsset struct {
	domain.Holding
	Asset domain.Asset
}

const holdingWithAssetQuery = `SELECT h.id, h.upload_id, h.customer_id, h.asset_id,
	h.quantity, h.buy_price, h.current_price, h.invested_value, h.current_value, h.profit_loss,
	h.investment_start_date, h.investment_end_date,
	a.id, a.asset_code, a.asset_name, a.asset_type, a.exchange_or_market, a.created_at
	FROM holdings h
	JOIN assets a ON a.id = h.asset_id`

// HoldingRepository handles holding database operations
type HoldingRepository struct {
	db  database.Queryer
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db database.Queryer, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repo", "holding").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *HoldingRepository) WithTx(tx *sql.Tx) *HoldingRepository {
	return &HoldingRepository{db: tx, log: r.log}
}

// Create inserts a holding and sets its ID
func (r *HoldingRepository) Create(ctx context.Context, h *domain.Holding) error {
	result, err := r.db.ExecContext(ctx, `INSERT INTO holdings (
		upload_id, customer_id, asset_id, quantity, buy_price, current_price,
		invested_value, current_value, profit_loss, investment_start_date, investment_end_date
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.UploadID, h.CustomerID, h.AssetID,
		h.Quantity, h.BuyPrice, h.CurrentPrice, h.InvestedValue, h.CurrentValue, h.ProfitLoss,
		formatDate(h.InvestmentStartDate), nullDate(h.InvestmentEndDate))
	if err != nil {
		return fmt.Errorf("failed to insert holding for upload %d: %w", h.UploadID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get holding id: %w", err)
	}
	h.ID = id
	return nil
}

// CountByUpload returns the number of holdings stored for a batch
func (r *HoldingRepository) CountByUpload(ctx context.Context, uploadID int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM holdings WHERE upload_id = ?`, uploadID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count holdings for upload %d: %w", uploadID, err)
	}
	return count, nil
}

// ListByUpload returns the holdings of a batch in file order
func (r *HoldingRepository) ListByUpload(ctx context.Context, uploadID int64) ([]HoldingWithAsset, error) {
	return r.list(ctx, ` WHERE h.upload_id = ? ORDER BY h.id`, uploadID)
}

// ListByCustomer returns every holding of a customer across all batches,
// newest batch first and file order within a batch
func (r *HoldingRepository) ListByCustomer(ctx context.Context, customerID int64) ([]HoldingWithAsset, error) {
	return r.list(ctx, ` JOIN upload_batches b ON b.id = h.upload_id
		WHERE h.customer_id = ? ORDER BY b.created_at DESC, b.id DESC, h.id`, customerID)
}

func (r *HoldingRepository) list(ctx context.Context, clause string, args ...interface{}) ([]HoldingWithAsset, error) {
	rows, err := r.db.QueryContext(ctx, holdingWithAssetQuery+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []HoldingWithAsset
	for rows.Next() {
		h, err := scanHoldingWithAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

func scanHoldingWithAsset(rows *sql.Rows) (HoldingWithAsset, error) {
	var hw HoldingWithAsset
	var startDate string
	var endDate, market sql.NullString
	var assetType string
	var assetCreatedAt int64

	err := rows.Scan(
		&hw.ID, &hw.UploadID, &hw.CustomerID, &hw.AssetID,
		&hw.Quantity, &hw.BuyPrice, &hw.CurrentPrice, &hw.InvestedValue, &hw.CurrentValue, &hw.ProfitLoss,
		&startDate, &endDate,
		&hw.Asset.ID, &hw.Asset.Code, &hw.Asset.Name, &assetType, &market, &assetCreatedAt,
	)
	if err != nil {
		return hw, err
	}

	if hw.InvestmentStartDate, err = parseDate(startDate); err != nil {
		return hw, err
	}
	if hw.InvestmentEndDate, err = parseNullDate(endDate); err != nil {
		return hw, err
	}
	hw.Asset.Type = domain.AssetType(assetType)
	hw.Asset.ExchangeOrMarket = market.String
	hw.Asset.CreatedAt = unixTime(assetCreatedAt)
	return hw, nil
}
