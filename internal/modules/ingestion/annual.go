package ingestion

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"
	"strings"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/capitalx/capitalx/internal/modules/portfolio"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var fourDigits = regexp.MustCompile(`\d{4}`)

// ExtractFinancialYear pulls the first four digit run out of a period label
// after removing "FY", "YEAR" and "-". "FY2025" and "Year-2024" both work.
func ExtractFinancialYear(label string) (int, bool) {
	cleaned := strings.ToUpper(label)
	for _, noise := range []string{"FY", "YEAR", "-"} {
		cleaned = strings.ReplaceAll(cleaned, noise, "")
	}

	match := fourDigits.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}

// ComputeAnnualPerformance recomputes a customer's yearly rollup from the
// rows of one batch. When existing is nil a new record with a zero opening
// value is returned; otherwise existing is updated in place and returned.
//
// Best and worst assets are the rows with the highest and lowest profit/loss.
// Rows without a profit/loss are ignored and ties keep the earliest row.
func ComputeAnnualPerformance(existing *domain.AnnualPerformance, customerID int64, year int, rows []HoldingRow) *domain.AnnualPerformance {
	ap := existing
	if ap == nil {
		ap = &domain.AnnualPerformance{
			CustomerID:    customerID,
			FinancialYear: year,
			OpeningValue:  decimal.Zero,
		}
	}

	closing, invested, pl := decimal.Zero, decimal.Zero, decimal.Zero
	var best, worst *HoldingRow
	for i := range rows {
		r := &rows[i]
		closing = closing.Add(valueOrZero(r.CurrentValue))
		invested = invested.Add(valueOrZero(r.InvestedValue))
		pl = pl.Add(valueOrZero(r.ProfitLoss))

		if !r.ProfitLoss.Valid {
			continue
		}
		if best == nil || r.ProfitLoss.Decimal.GreaterThan(best.ProfitLoss.Decimal) {
			best = r
		}
		if worst == nil || r.ProfitLoss.Decimal.LessThan(worst.ProfitLoss.Decimal) {
			worst = r
		}
	}

	ap.ClosingValue = closing
	ap.TotalInvestedDuringYear = invested
	ap.TotalProfitLoss = pl
	ap.BestPerformingAsset = ""
	ap.WorstPerformingAsset = ""
	if best != nil {
		ap.BestPerformingAsset = best.AssetCode
	}
	if worst != nil {
		ap.WorstPerformingAsset = worst.AssetCode
	}
	return ap
}

// AnnualUpdater maintains the per-year rollup after an annual upload
type AnnualUpdater struct {
	repo *portfolio.AnnualPerformanceRepository
	log  zerolog.Logger
}

// NewAnnualUpdater creates a new annual performance updater
func NewAnnualUpdater(repo *portfolio.AnnualPerformanceRepository, log zerolog.Logger) *AnnualUpdater {
	return &AnnualUpdater{
		repo: repo,
		log:  log.With().Str("component", "annual_updater").Logger(),
	}
}

// WithTx returns an updater writing through tx
func (u *AnnualUpdater) WithTx(tx *sql.Tx) *AnnualUpdater {
	return &AnnualUpdater{repo: u.repo.WithTx(tx), log: u.log}
}

// Update upserts the rollup for the year named by the batch's period label.
// It returns nil without error when the label carries no year.
func (u *AnnualUpdater) Update(ctx context.Context, customer *domain.Customer, batch *domain.UploadBatch, rows []HoldingRow) (*domain.AnnualPerformance, error) {
	year, ok := ExtractFinancialYear(batch.PeriodLabel)
	if !ok {
		u.log.Debug().Str("period_label", batch.PeriodLabel).Msg("No financial year in period label, skipping annual performance")
		return nil, nil
	}

	existing, err := u.repo.Get(ctx, customer.ID, year)
	if err != nil {
		return nil, err
	}

	ap := ComputeAnnualPerformance(existing, customer.ID, year, rows)
	if err := u.repo.Upsert(ctx, ap); err != nil {
		return nil, err
	}

	u.log.Debug().
		Int64("customer_id", customer.ID).
		Int("financial_year", year).
		Str("closing_value", ap.ClosingValue.String()).
		Msg("Annual performance updated")
	return ap, nil
}
