package ingestion

import (
	"context"
	"database/sql"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/capitalx/capitalx/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// Resolver finds or creates the reference data an upload points at.
// Uniqueness of codes is enforced by storage; a lost creation race surfaces
// as a *domain.ResolutionError.
type Resolver struct {
	customers *portfolio.CustomerRepository
	assets    *portfolio.AssetRepository
	log       zerolog.Logger
}

// NewResolver creates a new reference resolver
func NewResolver(customers *portfolio.CustomerRepository, assets *portfolio.AssetRepository, log zerolog.Logger) *Resolver {
	return &Resolver{
		customers: customers,
		assets:    assets,
		log:       log.With().Str("component", "resolver").Logger(),
	}
}

// WithTx returns a resolver reading and writing through tx
func (r *Resolver) WithTx(tx *sql.Tx) *Resolver {
	return &Resolver{
		customers: r.customers.WithTx(tx),
		assets:    r.assets.WithTx(tx),
		log:       r.log,
	}
}

// ResolveCustomer returns the customer with code, creating it when absent.
// A differing name overwrites the stored one; the code never changes.
func (r *Resolver) ResolveCustomer(ctx context.Context, code, name string) (*domain.Customer, error) {
	customer, err := r.customers.GetByCode(ctx, code)
	if err != nil {
		return nil, &domain.ResolutionError{Entity: "customer", Code: code, Err: err}
	}

	if customer == nil {
		customer = &domain.Customer{Code: code, Name: name}
		if err := r.customers.Create(ctx, customer); err != nil {
			return nil, &domain.ResolutionError{Entity: "customer", Code: code, Err: err}
		}
		r.log.Info().Str("customer_code", code).Int64("customer_id", customer.ID).Msg("New customer created")
		return customer, nil
	}

	if customer.Name != name {
		if err := r.customers.UpdateName(ctx, customer.ID, name); err != nil {
			return nil, &domain.ResolutionError{Entity: "customer", Code: code, Err: err}
		}
		r.log.Info().
			Str("customer_code", code).
			Str("old_name", customer.Name).
			Str("new_name", name).
			Msg("Customer name updated")
		customer.Name = name
	}
	return customer, nil
}

// ResolveAsset returns the asset with the row's code, creating it from the
// row when absent. Existing assets are returned unchanged.
func (r *Resolver) ResolveAsset(ctx context.Context, row HoldingRow) (*domain.Asset, error) {
	asset, err := r.assets.GetByCode(ctx, row.AssetCode)
	if err != nil {
		return nil, &domain.ResolutionError{Entity: "asset", Code: row.AssetCode, Err: err}
	}
	if asset != nil {
		return asset, nil
	}

	asset = &domain.Asset{
		Code:             row.AssetCode,
		Name:             row.AssetName,
		Type:             row.AssetType,
		ExchangeOrMarket: row.ExchangeOrMarket,
	}
	if err := r.assets.Create(ctx, asset); err != nil {
		return nil, &domain.ResolutionError{Entity: "asset", Code: row.AssetCode, Err: err}
	}
	r.log.Debug().Str("asset_code", asset.Code).Str("asset_type", string(asset.Type)).Msg("New asset created")
	return asset, nil
}
