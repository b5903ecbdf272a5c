// Package ingestion turns uploaded holdings files into persisted portfolio
// snapshots.
//
// A file named CODE_NAME_PERIOD.{csv,xlsx,xls} is classified, parsed and
// written as one unit of work: the customer is resolved, an upload batch is
// recorded, every row becomes a holding against a resolved asset, the batch
// summary is stored and, for annual periods, the customer's yearly rollup is
// refreshed. Any failure rolls the whole batch back.
package ingestion

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/capitalx/capitalx/internal/database"
	"github.com/capitalx/capitalx/internal/domain"
	"github.com/capitalx/capitalx/internal/events"
	"github.com/capitalx/capitalx/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

const successMessage = "Portfolio ingestion successful"

// Result describes a committed upload
type Result struct {
	UploadReference string            `json:"upload_reference"`
	CustomerCode    string            `json:"customer_code"`
	CustomerName    string            `json:"customer_name"`
	PeriodLabel     string            `json:"period_label"`
	PeriodType      domain.PeriodType `json:"period_type"`
	Message         string            `json:"message"`
	UploadID        int64             `json:"upload_id"`
	CustomerID      int64             `json:"customer_id"`
	HoldingsCount   int               `json:"holdings_count"`
	Success         bool              `json:"success"`
}

// EventEmitter receives ingestion outcomes after the transaction has ended
type EventEmitter interface {
	Emit(ctx context.Context, module string, data events.EventData)
}

// Service runs the ingestion pipeline
type Service struct {
	db        *sql.DB
	resolver  *Resolver
	batches   *portfolio.UploadBatchRepository
	holdings  *portfolio.HoldingRepository
	summaries *portfolio.BatchSummaryRepository
	annual    *AnnualUpdater
	events    EventEmitter
	log       zerolog.Logger
}

// NewService creates a new ingestion service. emitter may be nil.
func NewService(db *sql.DB, repos portfolio.Repositories, emitter EventEmitter, log zerolog.Logger) *Service {
	return &Service{
		db:        db,
		resolver:  NewResolver(repos.Customers, repos.Assets, log),
		batches:   repos.Batches,
		holdings:  repos.Holdings,
		summaries: repos.Summaries,
		annual:    NewAnnualUpdater(repos.Annual, log),
		events:    emitter,
		log:       log.With().Str("service", "ingestion").Logger(),
	}
}

// Ingest classifies, parses and persists one uploaded file.
//
// Errors of type *domain.InvalidFileFormatError, *domain.InvalidCSVError and
// *domain.ResolutionError are returned as they are; anything else is wrapped
// in a *domain.IngestionError. Nothing is persisted unless Ingest succeeds.
func (s *Service) Ingest(ctx context.Context, filename string, content io.Reader) (*Result, error) {
	start := time.Now()

	meta, err := ParseFilename(filename)
	if err != nil {
		s.reportFailure(ctx, filename, err)
		return nil, err
	}

	log := s.log.With().
		Str("file_name", filename).
		Str("customer_code", meta.CustomerCode).
		Str("period_label", meta.PeriodLabel).
		Logger()
	log.Info().Str("period_type", string(meta.PeriodType)).Msg("Starting portfolio ingestion")

	// Held in memory so the raw upload can be archived after commit
	raw, err := io.ReadAll(content)
	if err != nil {
		err = &domain.InvalidCSVError{Msg: "failed to read file content", Err: err}
		s.reportFailure(ctx, filename, err)
		return nil, err
	}

	var result *Result
	err = database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		result, txErr = s.ingestTx(ctx, tx, meta, raw)
		return txErr
	})
	if err != nil {
		err = classify(err)
		if domain.IsClientError(err) {
			log.Warn().Err(err).Msg("Portfolio upload rejected")
		} else {
			log.Error().Err(err).Msg("Portfolio ingestion failed")
		}
		s.reportFailure(ctx, filename, err)
		return nil, err
	}

	log.Info().
		Int64("upload_id", result.UploadID).
		Int("holdings", result.HoldingsCount).
		Dur("duration", time.Since(start)).
		Msg("Portfolio ingestion completed")

	if s.events != nil {
		s.events.Emit(ctx, "ingestion", &events.PortfolioIngestedData{
			CustomerID:      result.CustomerID,
			CustomerCode:    result.CustomerCode,
			UploadID:        result.UploadID,
			UploadReference: result.UploadReference,
			PeriodLabel:     result.PeriodLabel,
			PeriodType:      string(result.PeriodType),
			FileName:        filename,
			HoldingsCount:   result.HoldingsCount,
			Content:         raw,
		})
	}

	return result, nil
}

func (s *Service) ingestTx(ctx context.Context, tx *sql.Tx, meta *FileMetadata, raw []byte) (*Result, error) {
	resolver := s.resolver.WithTx(tx)

	customer, err := resolver.ResolveCustomer(ctx, meta.CustomerCode, meta.CustomerName)
	if err != nil {
		return nil, err
	}

	batch := &domain.UploadBatch{
		CustomerID:  customer.ID,
		PeriodType:  meta.PeriodType,
		PeriodLabel: meta.PeriodLabel,
		FileName:    meta.FileName,
	}
	if err := s.batches.WithTx(tx).Create(ctx, batch); err != nil {
		return nil, err
	}

	parser, err := ParserFor(meta.Format)
	if err != nil {
		return nil, err
	}
	rows, err := parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	holdings := s.holdings.WithTx(tx)
	for _, row := range rows {
		if err := checkMandatory(row); err != nil {
			return nil, err
		}

		asset, err := resolver.ResolveAsset(ctx, row)
		if err != nil {
			return nil, err
		}

		holding := &domain.Holding{
			UploadID:            batch.ID,
			CustomerID:          customer.ID,
			AssetID:             asset.ID,
			Quantity:            row.Quantity,
			BuyPrice:            row.BuyPrice,
			CurrentPrice:        row.CurrentPrice,
			InvestedValue:       row.InvestedValue,
			CurrentValue:        row.CurrentValue,
			ProfitLoss:          row.ProfitLoss,
			InvestmentStartDate: row.InvestmentStartDate,
			InvestmentEndDate:   row.InvestmentEndDate,
		}
		if err := holdings.Create(ctx, holding); err != nil {
			return nil, err
		}
	}

	summary := Summarize(rows)
	summary.UploadID = batch.ID
	summary.CustomerID = customer.ID
	if err := s.summaries.WithTx(tx).Create(ctx, &summary); err != nil {
		return nil, err
	}

	if meta.PeriodType == domain.PeriodAnnual {
		if _, err := s.annual.WithTx(tx).Update(ctx, customer, batch, rows); err != nil {
			return nil, err
		}
	}

	return &Result{
		UploadID:        batch.ID,
		UploadReference: batch.Reference,
		CustomerID:      customer.ID,
		CustomerCode:    customer.Code,
		CustomerName:    customer.Name,
		PeriodLabel:     batch.PeriodLabel,
		PeriodType:      batch.PeriodType,
		HoldingsCount:   len(rows),
		Message:         successMessage,
		Success:         true,
	}, nil
}

// checkMandatory re-validates the fields a holding cannot be stored without
func checkMandatory(row HoldingRow) error {
	var missing string
	switch {
	case row.AssetCode == "":
		missing = colAssetCode
	case row.AssetName == "":
		missing = colAssetName
	case row.AssetType == "":
		missing = colAssetType
	case row.InvestmentStartDate.IsZero():
		missing = colInvestmentStartDate
	default:
		return nil
	}
	return &domain.InvalidCSVError{Row: row.Row, Columns: []string{missing}, Msg: missing + " cannot be empty"}
}

// classify passes the known error kinds through and wraps everything else
func classify(err error) error {
	var (
		formatErr     *domain.InvalidFileFormatError
		csvErr        *domain.InvalidCSVError
		resolutionErr *domain.ResolutionError
		ingestionErr  *domain.IngestionError
	)
	switch {
	case errors.As(err, &formatErr):
		return formatErr
	case errors.As(err, &csvErr):
		return csvErr
	case errors.As(err, &resolutionErr):
		return resolutionErr
	case errors.As(err, &ingestionErr):
		return ingestionErr
	}
	return &domain.IngestionError{Msg: "unexpected error during portfolio ingestion", Err: err}
}

func (s *Service) reportFailure(ctx context.Context, filename string, err error) {
	if s.events == nil {
		return
	}
	s.events.Emit(ctx, "ingestion", &events.IngestionFailedData{
		FileName:  filename,
		ErrorKind: domain.ErrorKind(err),
		Error:     err.Error(),
	})
}
