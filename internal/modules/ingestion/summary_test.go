package ingestion

import (
	"testing"
	"time"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func nd(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func row(code, invested, current, pl string) HoldingRow {
	return HoldingRow{
		AssetCode:           code,
		AssetName:           code,
		AssetType:           domain.AssetStock,
		InvestedValue:       nd(invested),
		CurrentValue:        nd(current),
		ProfitLoss:          nd(pl),
		InvestmentStartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSummarize(t *testing.T) {
	rows := []HoldingRow{
		row("AAPL", "1000", "1200", "200"),
		row("TSLA", "1000", "750", "-250"),
		row("FLAT", "500", "500", "0"),
		row("NONE", "", "", ""),
		row("FRAC", "0.10", "0.20", "0.10"),
	}

	s := Summarize(rows)
	assert.Equal(t, "2500.1", s.TotalInvestedValue.String())
	assert.Equal(t, "2450.2", s.TotalCurrentValue.String())
	assert.Equal(t, "-49.9", s.TotalProfitLoss.String())
	assert.Equal(t, 5, s.NumberOfAssets)
	assert.Equal(t, 2, s.NumberOfProfitableAssets)
	assert.Equal(t, 1, s.NumberOfLossAssets)
	assert.LessOrEqual(t, s.NumberOfProfitableAssets+s.NumberOfLossAssets, s.NumberOfAssets)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.True(t, s.TotalInvestedValue.IsZero())
	assert.Zero(t, s.NumberOfAssets)
}
