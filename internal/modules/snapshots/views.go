package snapshots

import (
	"time"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/capitalx/capitalx/internal/modules/portfolio"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Snapshot is an upload batch together with its totals
type Snapshot struct {
	UploadDate               time.Time         `json:"upload_date"`
	UploadReference          string            `json:"upload_reference"`
	PeriodLabel              string            `json:"period_label"`
	PeriodType               domain.PeriodType `json:"period_type"`
	FileName                 string            `json:"file_name"`
	TotalInvestedValue       decimal.Decimal   `json:"total_invested_value"`
	TotalCurrentValue        decimal.Decimal   `json:"total_current_value"`
	TotalProfitLoss          decimal.Decimal   `json:"total_profit_loss"`
	UploadID                 int64             `json:"upload_id"`
	CustomerID               int64             `json:"customer_id"`
	NumberOfAssets           int               `json:"number_of_assets"`
	NumberOfProfitableAssets int               `json:"number_of_profitable_assets"`
	NumberOfLossAssets       int               `json:"number_of_loss_assets"`
}

func newSnapshot(b domain.UploadBatch, s *domain.BatchSummary) Snapshot {
	snap := Snapshot{
		UploadDate:      b.CreatedAt,
		UploadReference: b.Reference,
		PeriodLabel:     b.PeriodLabel,
		PeriodType:      b.PeriodType,
		FileName:        b.FileName,
		UploadID:        b.ID,
		CustomerID:      b.CustomerID,
	}
	if s != nil {
		snap.TotalInvestedValue = s.TotalInvestedValue
		snap.TotalCurrentValue = s.TotalCurrentValue
		snap.TotalProfitLoss = s.TotalProfitLoss
		snap.NumberOfAssets = s.NumberOfAssets
		snap.NumberOfProfitableAssets = s.NumberOfProfitableAssets
		snap.NumberOfLossAssets = s.NumberOfLossAssets
	}
	return snap
}

// HoldingView is a holding as presented to clients
type HoldingView struct {
	PurchaseDate       time.Time            `json:"purchase_date"`
	ExitDate           *time.Time           `json:"exit_date,omitempty"`
	AssetCode          string               `json:"asset_code"`
	AssetName          string               `json:"asset_name"`
	AssetType          domain.AssetType     `json:"asset_type"`
	Status             domain.HoldingStatus `json:"status"`
	Quantity           decimal.NullDecimal  `json:"quantity"`
	PurchasePrice      decimal.NullDecimal  `json:"purchase_price"`
	CurrentPrice       decimal.NullDecimal  `json:"current_price"`
	TotalCost          decimal.NullDecimal  `json:"total_cost"`
	CurrentValue       decimal.NullDecimal  `json:"current_value"`
	GainLoss           decimal.NullDecimal  `json:"gain_loss"`
	GainLossPercentage decimal.NullDecimal  `json:"gain_loss_percentage"`
	HoldingID          int64                `json:"holding_id"`
	AssetID            int64                `json:"asset_id"`
	UploadID           int64                `json:"upload_id"`
}

func newHoldingView(h portfolio.HoldingWithAsset) HoldingView {
	return HoldingView{
		PurchaseDate:       h.InvestmentStartDate,
		ExitDate:           h.InvestmentEndDate,
		AssetCode:          h.Asset.Code,
		AssetName:          h.Asset.Name,
		AssetType:          h.Asset.Type,
		Status:             h.Status(),
		Quantity:           h.Quantity,
		PurchasePrice:      h.BuyPrice,
		CurrentPrice:       h.CurrentPrice,
		TotalCost:          h.InvestedValue,
		CurrentValue:       h.CurrentValue,
		GainLoss:           h.ProfitLoss,
		GainLossPercentage: GainLossPercentage(h.ProfitLoss, h.InvestedValue),
		HoldingID:          h.ID,
		AssetID:            h.Asset.ID,
		UploadID:           h.UploadID,
	}
}

// GainLossPercentage is profitLoss / invested rounded half up to four
// places, then scaled to a percentage. It is null unless both values are
// present and invested is positive.
func GainLossPercentage(profitLoss, invested decimal.NullDecimal) decimal.NullDecimal {
	if !profitLoss.Valid || !invested.Valid || !invested.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(profitLoss.Decimal.DivRound(invested.Decimal, 4).Mul(hundred))
}

// AnnualReport is a customer's yearly rollup with its return on the
// opening value
type AnnualReport struct {
	domain.AnnualPerformance
	ReturnPercentage decimal.NullDecimal `json:"return_percentage"`
}

func newAnnualReport(ap domain.AnnualPerformance) AnnualReport {
	return AnnualReport{
		AnnualPerformance: ap,
		ReturnPercentage:  ReturnPercentage(ap.TotalProfitLoss, ap.OpeningValue),
	}
}

// ReturnPercentage is profitLoss / opening rounded half up to four places,
// then scaled to a percentage. It is null when opening is not positive.
func ReturnPercentage(profitLoss, opening decimal.Decimal) decimal.NullDecimal {
	if !opening.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(profitLoss.DivRound(opening, 4).Mul(hundred))
}
