package ingestion

import (
	"io"
	"time"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/shopspring/decimal"
)

// HoldingRow is one decoded data row of an upload
type HoldingRow struct {
	InvestmentStartDate time.Time           `json:"investment_start_date"`
	InvestmentEndDate   *time.Time          `json:"investment_end_date"`
	AssetCode           string              `json:"asset_code"`
	AssetName           string              `json:"asset_name"`
	AssetType           domain.AssetType    `json:"asset_type"`
	ExchangeOrMarket    string              `json:"exchange_or_market"`
	Quantity            decimal.NullDecimal `json:"quantity"`
	BuyPrice            decimal.NullDecimal `json:"buy_price"`
	CurrentPrice        decimal.NullDecimal `json:"current_price"`
	InvestedValue       decimal.NullDecimal `json:"invested_value"`
	CurrentValue        decimal.NullDecimal `json:"current_value"`
	ProfitLoss          decimal.NullDecimal `json:"profit_loss"`
	Row                 int                 `json:"row"` // 1-based source row, header is row 1
}

// Parser decodes tabular holdings content.
// Implementations fail with *domain.InvalidCSVError on any malformed input
// and never return a partial result.
type Parser interface {
	Parse(r io.Reader) ([]HoldingRow, error)
}

// ParserFor returns the parser strategy for a file format
func ParserFor(format FileFormat) (Parser, error) {
	switch format {
	case FormatCSV:
		return &csvParser{}, nil
	case FormatXLSX:
		return &spreadsheetParser{}, nil
	case FormatXLS:
		return &legacySpreadsheetParser{}, nil
	}
	return nil, domain.NewInvalidFileFormat("", "unsupported file format: %q", format)
}

func errNoHoldings() error {
	return &domain.InvalidCSVError{Msg: "file contains no valid holdings data"}
}
