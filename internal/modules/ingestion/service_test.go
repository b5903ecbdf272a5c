package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/capitalx/capitalx/internal/database"
	"github.com/capitalx/capitalx/internal/domain"
	"github.com/capitalx/capitalx/internal/events"
	"github.com/capitalx/capitalx/internal/modules/portfolio"
	testingpkg "github.com/capitalx/capitalx/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fixture struct {
	db      *database.DB
	repos   portfolio.Repositories
	service *Service
	emitter *testingpkg.RecordingEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)

	log := zerolog.Nop()
	conn := db.Conn()
	repos := portfolio.NewRepositories(conn, log)
	emitter := testingpkg.NewRecordingEmitter()

	return &fixture{
		db:      db,
		repos:   repos,
		service: NewService(conn, repos, emitter, log),
		emitter: emitter,
	}
}

func (f *fixture) ingest(t *testing.T, filename, content string) (*Result, error) {
	t.Helper()
	return f.service.Ingest(context.Background(), filename, strings.NewReader(content))
}

func (f *fixture) assertEmpty(t *testing.T) {
	t.Helper()
	for _, table := range []string{"customers", "assets", "upload_batches", "holdings", "batch_summaries", "annual_performance"} {
		assert.Zero(t, testingpkg.CountRows(t, f.db, table), "table %s should be empty", table)
	}
}

func TestIngest_WorkedExample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.ingest(t, "CUST001_RaviKumar_FY2025.csv", testingpkg.BuildHoldingsCSV(testingpkg.NewHoldingFixtures()...))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "Portfolio ingestion successful", result.Message)
	assert.Equal(t, "CUST001", result.CustomerCode)
	assert.Equal(t, "RaviKumar", result.CustomerName)
	assert.Equal(t, "FY2025", result.PeriodLabel)
	assert.Equal(t, domain.PeriodAnnual, result.PeriodType)
	assert.Equal(t, 2, result.HoldingsCount)
	assert.NotEmpty(t, result.UploadReference)

	batch, err := f.repos.Batches.GetByID(ctx, result.UploadID)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, domain.PeriodAnnual, batch.PeriodType)
	assert.Equal(t, "FY2025", batch.PeriodLabel)
	assert.Equal(t, "CUST001_RaviKumar_FY2025.csv", batch.FileName)
	assert.Equal(t, result.CustomerID, batch.CustomerID)

	holdings, err := f.repos.Holdings.ListByUpload(ctx, result.UploadID)
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "AAPL", holdings[0].Asset.Code)
	assert.Equal(t, "Apple Inc", holdings[0].Asset.Name)
	assert.Equal(t, "NASDAQ", holdings[0].Asset.ExchangeOrMarket)
	assert.Equal(t, "TSLA", holdings[1].Asset.Code)
	for _, h := range holdings {
		assert.Equal(t, result.CustomerID, h.CustomerID)
	}

	summary, err := f.repos.Summaries.GetByUpload(ctx, result.UploadID)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "2000", summary.TotalInvestedValue.String())
	assert.Equal(t, "1950", summary.TotalCurrentValue.String())
	assert.Equal(t, "-50", summary.TotalProfitLoss.String())
	assert.Equal(t, 2, summary.NumberOfAssets)
	assert.Equal(t, 1, summary.NumberOfProfitableAssets)
	assert.Equal(t, 1, summary.NumberOfLossAssets)

	annual, err := f.repos.Annual.Get(ctx, result.CustomerID, 2025)
	require.NoError(t, err)
	require.NotNil(t, annual)
	assert.True(t, annual.OpeningValue.IsZero())
	assert.Equal(t, "1950", annual.ClosingValue.String())
	assert.Equal(t, "2000", annual.TotalInvestedDuringYear.String())
	assert.Equal(t, "-50", annual.TotalProfitLoss.String())
	assert.Equal(t, "AAPL", annual.BestPerformingAsset)
	assert.Equal(t, "TSLA", annual.WorstPerformingAsset)

	ingested := f.emitter.OfType(events.PortfolioIngested)
	require.Len(t, ingested, 1)
	data := ingested[0].(*events.PortfolioIngestedData)
	assert.Equal(t, result.UploadID, data.UploadID)
	assert.Contains(t, string(data.Content), "AAPL,Apple Inc")
}

func TestIngest_RerunIsIdempotentForReferenceData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := testingpkg.BuildHoldingsCSV(testingpkg.NewHoldingFixtures()...)

	first, err := f.ingest(t, "CUST001_RaviKumar_FY2025.csv", content)
	require.NoError(t, err)
	second, err := f.ingest(t, "CUST001_RaviKumar_FY2025.csv", content)
	require.NoError(t, err)

	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.NotEqual(t, first.UploadID, second.UploadID)
	assert.NotEqual(t, first.UploadReference, second.UploadReference)

	assert.Equal(t, 1, testingpkg.CountRows(t, f.db, "customers"))
	assert.Equal(t, 2, testingpkg.CountRows(t, f.db, "assets"))
	assert.Equal(t, 2, testingpkg.CountRows(t, f.db, "upload_batches"))
	assert.Equal(t, 4, testingpkg.CountRows(t, f.db, "holdings"))
	assert.Equal(t, 2, testingpkg.CountRows(t, f.db, "batch_summaries"))
	assert.Equal(t, 1, testingpkg.CountRows(t, f.db, "annual_performance"))

	records, err := f.repos.Annual.ListByCustomer(ctx, first.CustomerID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1950", records[0].ClosingValue.String(), "recomputed from the latest batch, not accumulated")
}

func TestIngest_CustomerNameDriftUpdatesName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := testingpkg.BuildHoldingsCSV(testingpkg.NewHoldingFixtures()...)

	first, err := f.ingest(t, "CUST001_RaviKumar_Q1.csv", content)
	require.NoError(t, err)
	second, err := f.ingest(t, "CUST001_Ravi Kumar_Q2.csv", content)
	require.NoError(t, err)

	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.Equal(t, "Ravi Kumar", second.CustomerName)

	customer, err := f.repos.Customers.GetByCode(ctx, "CUST001")
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", customer.Name)
	assert.Equal(t, 1, testingpkg.CountRows(t, f.db, "customers"))
}

func TestIngest_AssetFirstWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rows := testingpkg.NewHoldingFixtures()
	_, err := f.ingest(t, "CUST001_Ravi_Q1.csv", testingpkg.BuildHoldingsCSV(rows...))
	require.NoError(t, err)

	renamed := rows[0]
	renamed.AssetName = "Apple Incorporated"
	renamed.AssetType = "ETF"
	renamed.Market = "LSE"
	_, err = f.ingest(t, "CUST002_Other_Q1.csv", testingpkg.BuildHoldingsCSV(renamed))
	require.NoError(t, err)

	asset, err := f.repos.Assets.GetByCode(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", asset.Name)
	assert.Equal(t, domain.AssetStock, asset.Type)
	assert.Equal(t, "NASDAQ", asset.ExchangeOrMarket)
	assert.Equal(t, 2, testingpkg.CountRows(t, f.db, "assets"))
}

func TestIngest_NonAnnualPeriodSkipsAnnualPerformance(t *testing.T) {
	f := newFixture(t)

	result, err := f.ingest(t, "CUST001_Ravi_Q3.csv", testingpkg.BuildHoldingsCSV(testingpkg.NewHoldingFixtures()...))
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodQuarterly, result.PeriodType)
	assert.Zero(t, testingpkg.CountRows(t, f.db, "annual_performance"))
	assert.Equal(t, 1, testingpkg.CountRows(t, f.db, "batch_summaries"))
}

func TestIngest_AnnualLabelWithoutYearIsSkippedSilently(t *testing.T) {
	f := newFixture(t)

	result, err := f.ingest(t, "CUST001_Ravi_Annual.csv", testingpkg.BuildHoldingsCSV(testingpkg.NewHoldingFixtures()...))
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodAnnual, result.PeriodType)
	assert.Zero(t, testingpkg.CountRows(t, f.db, "annual_performance"))
}

func TestIngest_ExistingOpeningValueIsKept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	customer := &domain.Customer{Code: "CUST001", Name: "Ravi"}
	require.NoError(t, f.repos.Customers.Create(ctx, customer))
	require.NoError(t, f.repos.Annual.Upsert(ctx, &domain.AnnualPerformance{
		CustomerID: customer.ID, FinancialYear: 2025,
		OpeningValue: decimal.RequireFromString("1500"),
	}))

	_, err := f.ingest(t, "CUST001_Ravi_FY2025.csv", testingpkg.BuildHoldingsCSV(testingpkg.NewHoldingFixtures()...))
	require.NoError(t, err)

	annual, err := f.repos.Annual.Get(ctx, customer.ID, 2025)
	require.NoError(t, err)
	assert.Equal(t, "1500", annual.OpeningValue.String())
	assert.Equal(t, "1950", annual.ClosingValue.String())
}

func TestIngest_InvalidFilenameHasNoSideEffects(t *testing.T) {
	f := newFixture(t)

	_, err := f.ingest(t, "CUST001_FY2025.csv", testingpkg.BuildHoldingsCSV(testingpkg.NewHoldingFixtures()...))
	require.Error(t, err)

	var formatErr *domain.InvalidFileFormatError
	assert.ErrorAs(t, err, &formatErr)
	f.assertEmpty(t)

	failed := f.emitter.OfType(events.IngestionFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "INVALID_FILE_FORMAT", failed[0].(*events.IngestionFailedData).ErrorKind)
	assert.Empty(t, f.emitter.OfType(events.PortfolioIngested))
}

func TestIngest_MissingColumnRollsBack(t *testing.T) {
	f := newFixture(t)

	content := "asset_code,asset_name,asset_type,exchange_or_market,quantity,buy_price,current_price,invested_value,current_value,investment_start_date\n" +
		"AAPL,Apple Inc,STOCK,NASDAQ,10,100,120,1000,1200,2024-01-01\n"
	_, err := f.ingest(t, "CUST001_RaviKumar_FY2025.csv", content)
	require.Error(t, err)

	var csvErr *domain.InvalidCSVError
	require.ErrorAs(t, err, &csvErr)
	assert.Equal(t, []string{"profit_loss"}, csvErr.Columns)

	// Customer and batch were written before parsing and must be gone too
	f.assertEmpty(t)
}

func TestIngest_BadRowAbortsWholeBatch(t *testing.T) {
	f := newFixture(t)

	rows := testingpkg.NewHoldingFixtures()
	bad := rows[1]
	bad.Quantity = "five"
	_, err := f.ingest(t, "CUST001_RaviKumar_FY2025.csv", testingpkg.BuildHoldingsCSV(rows[0], bad))
	require.Error(t, err)

	var csvErr *domain.InvalidCSVError
	require.ErrorAs(t, err, &csvErr)
	assert.Equal(t, 3, csvErr.Row)
	assert.Contains(t, err.Error(), "row 3")
	f.assertEmpty(t)
}

func TestIngest_AssetPersistenceFailureIsResolutionError(t *testing.T) {
	f := newFixture(t)
	_, err := f.db.Conn().Exec(`CREATE TRIGGER reject_assets BEFORE INSERT ON assets
		BEGIN SELECT RAISE(ABORT, 'asset store unavailable'); END;`)
	require.NoError(t, err)

	_, err = f.ingest(t, "CUST001_RaviKumar_FY2025.csv", testingpkg.BuildHoldingsCSV(testingpkg.NewHoldingFixtures()...))
	require.Error(t, err)

	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "asset", resErr.Entity)
	assert.Equal(t, "AAPL", resErr.Code)
	assert.ErrorIs(t, err, domain.ErrAssetResolution)
	f.assertEmpty(t)

	failed := f.emitter.OfType(events.IngestionFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "RESOLUTION_FAILED", failed[0].(*events.IngestionFailedData).ErrorKind)
}

func TestIngest_UnexpectedErrorsAreWrapped(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Ingest(ctx, "CUST001_RaviKumar_FY2025.csv",
		strings.NewReader(testingpkg.BuildHoldingsCSV(testingpkg.NewHoldingFixtures()...)))
	require.Error(t, err)

	var ingestionErr *domain.IngestionError
	require.ErrorAs(t, err, &ingestionErr)
	assert.ErrorIs(t, err, domain.ErrIngestion)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, errors.Unwrap(err))
	f.assertEmpty(t)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestIngest_UnreadableContent(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Ingest(context.Background(), "CUST001_RaviKumar_FY2025.csv", failingReader{})
	assert.ErrorIs(t, err, domain.ErrInvalidCSV)
	f.assertEmpty(t)
}

func TestIngest_Spreadsheet(t *testing.T) {
	f := newFixture(t)

	content := buildWorkbook(t, testingpkg.NewHoldingFixtures())
	result, err := f.service.Ingest(context.Background(), "CUST001_RaviKumar_FY2025.xlsx", content)
	require.NoError(t, err)
	assert.Equal(t, 2, result.HoldingsCount)
	assert.Equal(t, 2, testingpkg.CountRows(t, f.db, "holdings"))
}

func TestIngest_LegacySpreadsheet(t *testing.T) {
	f := newFixture(t)

	content, err := os.Open("testdata/holdings_mixed.xls")
	require.NoError(t, err)
	defer content.Close()

	result, err := f.service.Ingest(context.Background(), "CUST001_RaviKumar_FY2025.xls", content)
	require.NoError(t, err)
	assert.Equal(t, 3, result.HoldingsCount)
	assert.Equal(t, 3, testingpkg.CountRows(t, f.db, "holdings"))
}

func buildWorkbook(t *testing.T, rows []testingpkg.HoldingFixture) io.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []interface{}{}
	for _, col := range strings.Split(testingpkg.HoldingsHeader, ",") {
		header = append(header, col)
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, r := range rows {
		cells := []interface{}{}
		for _, v := range strings.Split(r.CSVRow(), ",") {
			cells = append(cells, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &cells))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}
