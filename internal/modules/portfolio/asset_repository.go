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

const assetColumns = `id, asset_code, asset_name, asset_type, exchange_or_market, created_at`

// AssetRepository handles asset database operations
type AssetRepository struct {
	db  database.Queryer
	log zerolog.Logger
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db database.Queryer, log zerolog.Logger) *AssetRepository {
	return &AssetRepository{
		db:  db,
		log: log.With().Str("repo", "asset").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *AssetRepository) WithTx(tx *sql.Tx) *AssetRepository {
	return &AssetRepository{db: tx, log: r.log}
}

// GetByCode returns the asset with the given code, or nil if none exists
func (r *AssetRepository) GetByCode(ctx context.Context, code string) (*domain.Asset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE asset_code = ?`, code)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", code, err)
	}
	return a, nil
}

// Create inserts an asset and sets its ID and CreatedAt.
// Assets are never updated after creation.
func (r *AssetRepository) Create(ctx context.Context, a *domain.Asset) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (asset_code, asset_name, asset_type, exchange_or_market, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.Code, a.Name, string(a.Type), nullString(a.ExchangeOrMarket), a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert asset %s: %w", a.Code, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get asset id: %w", err)
	}
	a.ID = id
	a.CreatedAt = unixTime(a.CreatedAt.Unix())

	r.log.Debug().Str("asset_code", a.Code).Int64("id", id).Msg("Asset created")
	return nil
}

func scanAsset(s rowScanner) (*domain.Asset, error) {
	var a domain.Asset
	var assetType string
	var market sql.NullString
	var createdAt int64
	if err := s.Scan(&a.ID, &a.Code, &a.Name, &assetType, &market, &createdAt); err != nil {
		return nil, err
	}
	a.Type = domain.AssetType(assetType)
	a.ExchangeOrMarket = market.String
	a.CreatedAt = unixTime(createdAt)
	return &a, nil
}
