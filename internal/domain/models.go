// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the storage and wire layout for calendar dates.
const DateLayout = "2006-01-02"

// PeriodType classifies the reporting period of an upload batch
type PeriodType string

const (
	PeriodQuarterly PeriodType = "QUARTERLY"
	PeriodAnnual    PeriodType = "ANNUAL"
	PeriodCustom    PeriodType = "CUSTOM"
)

// ParsePeriodType parses a period type name, case-insensitively.
func ParsePeriodType(s string) (PeriodType, error) {
	p := PeriodType(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PeriodQuarterly, PeriodAnnual, PeriodCustom:
		return p, nil
	}
	return "", fmt.Errorf("invalid period type %q, expected QUARTERLY, ANNUAL or CUSTOM", s)
}

// AssetType is the instrument class of an asset
type AssetType string

const (
	AssetStock     AssetType = "STOCK"
	AssetCrypto    AssetType = "CRYPTO"
	AssetCommodity AssetType = "COMMODITY"
	AssetETF       AssetType = "ETF"
	AssetOther     AssetType = "OTHER"
)

// AssetTypes lists the valid asset types in canonical order.
func AssetTypes() []AssetType {
	return []AssetType{AssetStock, AssetCrypto, AssetCommodity, AssetETF, AssetOther}
}

// ParseAssetType matches s against the valid asset types, ignoring case and
// surrounding whitespace.
func ParseAssetType(s string) (AssetType, bool) {
	t := AssetType(strings.ToUpper(strings.TrimSpace(s)))
	for _, valid := range AssetTypes() {
		if t == valid {
			return t, true
		}
	}
	return "", false
}

// HoldingStatus is derived from a holding's end date
type HoldingStatus string

const (
	HoldingActive HoldingStatus = "ACTIVE"
	HoldingExited HoldingStatus = "EXITED"
)

// Customer is an end client whose portfolio is uploaded
type Customer struct {
	CreatedAt time.Time `json:"created_at"`
	Code      string    `json:"customer_code"`
	Name      string    `json:"customer_name"`
	ID        int64     `json:"id"`
}

// Asset is an instrument that can be held. First write wins; never updated.
type Asset struct {
	CreatedAt        time.Time `json:"created_at"`
	Code             string    `json:"asset_code"`
	Name             string    `json:"asset_name"`
	Type             AssetType `json:"asset_type"`
	ExchangeOrMarket string    `json:"exchange_or_market,omitempty"`
	ID               int64     `json:"id"`
}

// UploadBatch is one ingestion event. Immutable after creation.
type UploadBatch struct {
	CreatedAt   time.Time  `json:"created_at"`
	Reference   string     `json:"reference"`
	PeriodType  PeriodType `json:"period_type"`
	PeriodLabel string     `json:"period_label"`
	FileName    string     `json:"file_name"`
	ID          int64      `json:"id"`
	CustomerID  int64      `json:"customer_id"`
}

// Holding is one position row belonging to an upload batch
type Holding struct {
	InvestmentStartDate time.Time           `json:"investment_start_date"`
	InvestmentEndDate   *time.Time          `json:"investment_end_date,omitempty"`
	Quantity            decimal.NullDecimal `json:"quantity"`
	BuyPrice            decimal.NullDecimal `json:"buy_price"`
	CurrentPrice        decimal.NullDecimal `json:"current_price"`
	InvestedValue       decimal.NullDecimal `json:"invested_value"`
	CurrentValue        decimal.NullDecimal `json:"current_value"`
	ProfitLoss          decimal.NullDecimal `json:"profit_loss"`
	ID                  int64               `json:"id"`
	UploadID            int64               `json:"upload_id"`
	CustomerID          int64               `json:"customer_id"`
	AssetID             int64               `json:"asset_id"`
}

// Status reports ACTIVE while the holding has no end date.
func (h *Holding) Status() HoldingStatus {
	if h.InvestmentEndDate == nil {
		return HoldingActive
	}
	return HoldingExited
}

// BatchSummary holds the totals of one upload batch. One per batch.
type BatchSummary struct {
	TotalInvestedValue       decimal.Decimal `json:"total_invested_value"`
	TotalCurrentValue        decimal.Decimal `json:"total_current_value"`
	TotalProfitLoss          decimal.Decimal `json:"total_profit_loss"`
	ID                       int64           `json:"id"`
	UploadID                 int64           `json:"upload_id"`
	CustomerID               int64           `json:"customer_id"`
	NumberOfAssets           int             `json:"number_of_assets"`
	NumberOfProfitableAssets int             `json:"number_of_profitable_assets"`
	NumberOfLossAssets       int             `json:"number_of_loss_assets"`
}

// AnnualPerformance is the per-customer, per-financial-year rollup
type AnnualPerformance struct {
	UpdatedAt               time.Time       `json:"updated_at"`
	OpeningValue            decimal.Decimal `json:"opening_value"`
	ClosingValue            decimal.Decimal `json:"closing_value"`
	TotalInvestedDuringYear decimal.Decimal `json:"total_invested_during_year"`
	TotalProfitLoss         decimal.Decimal `json:"total_profit_loss"`
	BestPerformingAsset     string          `json:"best_performing_asset,omitempty"`
	WorstPerformingAsset    string          `json:"worst_performing_asset,omitempty"`
	ID                      int64           `json:"id"`
	CustomerID              int64           `json:"customer_id"`
	FinancialYear           int             `json:"financial_year"`
}
