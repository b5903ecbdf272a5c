package portfolio

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/capitalx/capitalx/internal/database"
	"github.com/capitalx/capitalx/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.ApplySchema(context.Background(), db, "portfolio"))
	return db
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCustomerRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCustomerRepository(db, zerolog.Nop())
	ctx := context.Background()

	missing, err := repo.GetByCode(ctx, "CUST001")
	require.NoError(t, err)
	assert.Nil(t, missing)

	c := &domain.Customer{Code: "CUST001", Name: "Ravi Kumar"}
	require.NoError(t, repo.Create(ctx, c))
	assert.NotZero(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := repo.GetByCode(ctx, "CUST001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "Ravi Kumar", got.Name)

	require.NoError(t, repo.UpdateName(ctx, c.ID, "Ravi K"))
	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi K", got.Name)

	err = repo.UpdateName(ctx, 999, "Nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	dup := &domain.Customer{Code: "CUST001", Name: "Other"}
	assert.Error(t, repo.Create(ctx, dup), "customer codes are unique")

	require.NoError(t, repo.Create(ctx, &domain.Customer{Code: "ACME", Name: "Acme"}))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ACME", all[0].Code)
}

func TestAssetRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssetRepository(db, zerolog.Nop())
	ctx := context.Background()

	a := &domain.Asset{Code: "TCS", Name: "Tata Consultancy", Type: domain.AssetStock, ExchangeOrMarket: "NSE"}
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.GetByCode(ctx, "TCS")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.AssetStock, got.Type)
	assert.Equal(t, "NSE", got.ExchangeOrMarket)

	noMarket := &domain.Asset{Code: "BTC", Name: "Bitcoin", Type: domain.AssetCrypto}
	require.NoError(t, repo.Create(ctx, noMarket))
	got, err = repo.GetByCode(ctx, "BTC")
	require.NoError(t, err)
	assert.Empty(t, got.ExchangeOrMarket)

	assert.Error(t, repo.Create(ctx, &domain.Asset{Code: "TCS", Name: "x", Type: domain.AssetStock}))
	assert.Error(t, repo.Create(ctx, &domain.Asset{Code: "BOND", Name: "x", Type: "BOND"}))
}

func seedCustomerAndAsset(t *testing.T, db *sql.DB) (*domain.Customer, *domain.Asset) {
	t.Helper()
	ctx := context.Background()
	c := &domain.Customer{Code: "CUST001", Name: "Ravi"}
	require.NoError(t, NewCustomerRepository(db, zerolog.Nop()).Create(ctx, c))
	a := &domain.Asset{Code: "TCS", Name: "TCS", Type: domain.AssetStock}
	require.NoError(t, NewAssetRepository(db, zerolog.Nop()).Create(ctx, a))
	return c, a
}

func TestUploadBatchRepository(t *testing.T) {
	db := setupTestDB(t)
	c, _ := seedCustomerAndAsset(t, db)
	repo := NewUploadBatchRepository(db, zerolog.Nop())
	ctx := context.Background()

	older := &domain.UploadBatch{CustomerID: c.ID, PeriodType: domain.PeriodQuarterly, PeriodLabel: "Q4-2024",
		FileName: "CUST001_Ravi_Q4-2024.csv", CreatedAt: time.Date(2024, 12, 31, 10, 0, 0, 0, time.UTC)}
	newer := &domain.UploadBatch{CustomerID: c.ID, PeriodType: domain.PeriodAnnual, PeriodLabel: "FY2025",
		FileName: "CUST001_Ravi_FY2025.csv", CreatedAt: time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	assert.NotEmpty(t, older.Reference)
	assert.NotEqual(t, older.Reference, newer.Reference)

	latest, err := repo.GetLatestForCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	history, err := repo.ListForCustomer(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, newer.ID, history[0].ID)

	annual, err := repo.ListForCustomerByPeriod(ctx, c.ID, domain.PeriodAnnual)
	require.NoError(t, err)
	require.Len(t, annual, 1)
	assert.Equal(t, "FY2025", annual[0].PeriodLabel)

	in2024, err := repo.ListForCustomerByYear(ctx, c.ID, 2024)
	require.NoError(t, err)
	require.Len(t, in2024, 1)
	assert.Equal(t, older.ID, in2024[0].ID)

	none, err := repo.GetLatestForCustomer(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, none)

	got, err := repo.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.Reference, got.Reference)
	assert.Equal(t, older.CreatedAt, got.CreatedAt)
}

func TestHoldingRepository_RoundTripsNullableValues(t *testing.T) {
	db := setupTestDB(t)
	c, a := seedCustomerAndAsset(t, db)
	ctx := context.Background()

	batch := &domain.UploadBatch{CustomerID: c.ID, PeriodType: domain.PeriodAnnual, PeriodLabel: "FY2025", FileName: "f.csv"}
	require.NoError(t, NewUploadBatchRepository(db, zerolog.Nop()).Create(ctx, batch))

	repo := NewHoldingRepository(db, zerolog.Nop())
	end := date(2025, 3, 31)
	full := &domain.Holding{
		UploadID: batch.ID, CustomerID: c.ID, AssetID: a.ID,
		Quantity: dec("10"), BuyPrice: dec("3500.123456"), CurrentPrice: dec("3800"),
		InvestedValue: dec("35000"), CurrentValue: dec("38000"), ProfitLoss: dec("3000"),
		InvestmentStartDate: date(2024, 1, 15), InvestmentEndDate: &end,
	}
	sparse := &domain.Holding{
		UploadID: batch.ID, CustomerID: c.ID, AssetID: a.ID,
		InvestmentStartDate: date(2024, 2, 1),
	}
	require.NoError(t, repo.Create(ctx, full))
	require.NoError(t, repo.Create(ctx, sparse))

	holdings, err := repo.ListByUpload(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	assert.Equal(t, "3500.123456", holdings[0].BuyPrice.Decimal.String())
	assert.True(t, holdings[0].ProfitLoss.Valid)
	require.NotNil(t, holdings[0].InvestmentEndDate)
	assert.Equal(t, end, *holdings[0].InvestmentEndDate)
	assert.Equal(t, domain.HoldingExited, holdings[0].Status())
	assert.Equal(t, "TCS", holdings[0].Asset.Code)

	assert.False(t, holdings[1].Quantity.Valid)
	assert.False(t, holdings[1].ProfitLoss.Valid)
	assert.Nil(t, holdings[1].InvestmentEndDate)
	assert.Equal(t, domain.HoldingActive, holdings[1].Status())

	count, err := repo.CountByUpload(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	byCustomer, err := repo.ListByCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)
}

func TestBatchSummaryRepository(t *testing.T) {
	db := setupTestDB(t)
	c, _ := seedCustomerAndAsset(t, db)
	ctx := context.Background()

	batch := &domain.UploadBatch{CustomerID: c.ID, PeriodType: domain.PeriodCustom, PeriodLabel: "H1", FileName: "f.csv"}
	require.NoError(t, NewUploadBatchRepository(db, zerolog.Nop()).Create(ctx, batch))

	repo := NewBatchSummaryRepository(db, zerolog.Nop())
	s := &domain.BatchSummary{
		UploadID: batch.ID, CustomerID: c.ID,
		TotalInvestedValue: decimal.RequireFromString("41000"),
		TotalCurrentValue:  decimal.RequireFromString("40500"),
		TotalProfitLoss:    decimal.RequireFromString("-500"),
		NumberOfAssets:     2, NumberOfProfitableAssets: 1, NumberOfLossAssets: 1,
	}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByUpload(ctx, batch.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.TotalProfitLoss.Equal(decimal.RequireFromString("-500")))
	assert.Equal(t, 2, got.NumberOfAssets)

	assert.Error(t, repo.Create(ctx, s), "one summary per batch")

	missing, err := repo.GetByUpload(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAnnualPerformanceRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	c, _ := seedCustomerAndAsset(t, db)
	repo := NewAnnualPerformanceRepository(db, zerolog.Nop())
	ctx := context.Background()

	ap := &domain.AnnualPerformance{
		CustomerID: c.ID, FinancialYear: 2025,
		OpeningValue: decimal.Zero, ClosingValue: decimal.RequireFromString("40500"),
		TotalInvestedDuringYear: decimal.RequireFromString("41000"), TotalProfitLoss: decimal.RequireFromString("-500"),
		BestPerformingAsset: "TCS", WorstPerformingAsset: "INFY",
	}
	require.NoError(t, repo.Upsert(ctx, ap))
	firstID := ap.ID
	assert.NotZero(t, firstID)

	ap2 := &domain.AnnualPerformance{
		CustomerID: c.ID, FinancialYear: 2025,
		OpeningValue: decimal.Zero, ClosingValue: decimal.RequireFromString("50000"),
		TotalInvestedDuringYear: decimal.RequireFromString("45000"), TotalProfitLoss: decimal.RequireFromString("5000"),
	}
	require.NoError(t, repo.Upsert(ctx, ap2))
	assert.Equal(t, firstID, ap2.ID)

	got, err := repo.Get(ctx, c.ID, 2025)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.ClosingValue.Equal(decimal.RequireFromString("50000")))
	assert.Empty(t, got.BestPerformingAsset)

	require.NoError(t, repo.Upsert(ctx, &domain.AnnualPerformance{CustomerID: c.ID, FinancialYear: 2024}))
	list, err := repo.ListByCustomer(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2025, list[0].FinancialYear)

	missing, err := repo.Get(ctx, c.ID, 1999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWithTx_RollbackDiscardsWrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCustomerRepository(db, zerolog.Nop())
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.WithTx(tx).Create(ctx, &domain.Customer{Code: "TMP", Name: "Temp"}))
	require.NoError(t, tx.Rollback())

	got, err := repo.GetByCode(ctx, "TMP")
	require.NoError(t, err)
	assert.Nil(t, got)
}
