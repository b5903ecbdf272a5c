package ingestion

import (
	"github.com/capitalx/capitalx/internal/domain"
	"github.com/shopspring/decimal"
)

// valueOrZero treats a missing amount as zero
func valueOrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// Summarize reduces parsed rows into batch totals. Missing amounts count as
// zero and a zero profit/loss is neither profitable nor a loss. IDs are left
// for the caller to fill in.
func Summarize(rows []HoldingRow) domain.BatchSummary {
	s := domain.BatchSummary{
		TotalInvestedValue: decimal.Zero,
		TotalCurrentValue:  decimal.Zero,
		TotalProfitLoss:    decimal.Zero,
		NumberOfAssets:     len(rows),
	}

	for _, r := range rows {
		s.TotalInvestedValue = s.TotalInvestedValue.Add(valueOrZero(r.InvestedValue))
		s.TotalCurrentValue = s.TotalCurrentValue.Add(valueOrZero(r.CurrentValue))

		pl := valueOrZero(r.ProfitLoss)
		s.TotalProfitLoss = s.TotalProfitLoss.Add(pl)
		switch pl.Sign() {
		case 1:
			s.NumberOfProfitableAssets++
		case -1:
			s.NumberOfLossAssets++
		}
	}

	return s
}
