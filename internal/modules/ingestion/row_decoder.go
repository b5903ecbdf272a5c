package ingestion

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Column names, matched case-insensitively after trimming
const (
	colAssetCode           = "asset_code"
	colAssetName           = "asset_name"
	colAssetType           = "asset_type"
	colExchangeOrMarket    = "exchange_or_market"
	colQuantity            = "quantity"
	colBuyPrice            = "buy_price"
	colCurrentPrice        = "current_price"
	colInvestedValue       = "invested_value"
	colCurrentValue        = "current_value"
	colProfitLoss          = "profit_loss"
	colInvestmentStartDate = "investment_start_date"
	colInvestmentEndDate   = "investment_end_date"
)

// RequiredColumns lists the mandatory header columns in canonical order
var RequiredColumns = []string{
	colAssetCode, colAssetName, colAssetType, colExchangeOrMarket,
	colQuantity, colBuyPrice, colCurrentPrice,
	colInvestedValue, colCurrentValue, colProfitLoss,
	colInvestmentStartDate,
}

// dateLayouts are tried in order; the first match wins
var dateLayouts = []struct {
	layout  string
	display string
}{
	{"2006-01-02", "yyyy-MM-dd"},
	{"02-01-2006", "dd-MM-yyyy"},
	{"01/02/2006", "MM/dd/yyyy"},
	{"02/01/2006", "dd/MM/yyyy"},
}

// rowDecoder turns raw cells into HoldingRows using a header column map
type rowDecoder struct {
	columns map[string]int
	// serialDates accepts spreadsheet serial numbers in date columns
	serialDates bool
	date1904    bool
}

// newRowDecoder indexes the header and checks every required column is present
func newRowDecoder(header []string) (*rowDecoder, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		// Later duplicates win
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.InvalidCSVError{
			Columns: missing,
			Msg:     fmt.Sprintf("missing required columns: [%s]", strings.Join(missing, ", ")),
		}
	}

	return &rowDecoder{columns: columns}, nil
}

// isBlankRow reports whether every cell is empty after trimming
func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cell returns the trimmed value of a column, or "" when absent from the row
func (d *rowDecoder) cell(cells []string, column string) string {
	i, ok := d.columns[column]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func (d *rowDecoder) decode(cells []string, row int) (HoldingRow, error) {
	h := HoldingRow{Row: row}
	fail := func(column, format string, args ...interface{}) (HoldingRow, error) {
		err := &domain.InvalidCSVError{Row: row, Msg: fmt.Sprintf(format, args...)}
		if column != "" {
			err.Columns = []string{column}
		}
		return HoldingRow{}, err
	}

	if h.AssetCode = d.cell(cells, colAssetCode); h.AssetCode == "" {
		return fail(colAssetCode, "asset code cannot be empty")
	}
	if h.AssetName = d.cell(cells, colAssetName); h.AssetName == "" {
		return fail(colAssetName, "asset name cannot be empty")
	}

	rawType := d.cell(cells, colAssetType)
	if rawType == "" {
		return fail(colAssetType, "asset type cannot be empty")
	}
	assetType, ok := domain.ParseAssetType(rawType)
	if !ok {
		return fail(colAssetType, "invalid asset type: %s. Valid types: %s", rawType, validAssetTypes())
	}
	h.AssetType = assetType
	h.ExchangeOrMarket = d.cell(cells, colExchangeOrMarket)

	numbers := []struct {
		column string
		dest   *decimal.NullDecimal
	}{
		{colQuantity, &h.Quantity},
		{colBuyPrice, &h.BuyPrice},
		{colCurrentPrice, &h.CurrentPrice},
		{colInvestedValue, &h.InvestedValue},
		{colCurrentValue, &h.CurrentValue},
		{colProfitLoss, &h.ProfitLoss},
	}
	for _, n := range numbers {
		raw := d.cell(cells, n.column)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return fail(n.column, "invalid number format in column %s: %q", n.column, raw)
		}
		*n.dest = decimal.NewNullDecimal(v)
	}

	rawStart := d.cell(cells, colInvestmentStartDate)
	if rawStart == "" {
		return fail(colInvestmentStartDate, "investment start date cannot be empty")
	}
	start, err := d.parseDate(rawStart)
	if err != nil {
		return fail(colInvestmentStartDate, "%v", err)
	}
	h.InvestmentStartDate = start

	if rawEnd := d.cell(cells, colInvestmentEndDate); rawEnd != "" {
		end, err := d.parseDate(rawEnd)
		if err != nil {
			return fail(colInvestmentEndDate, "%v", err)
		}
		h.InvestmentEndDate = &end
	}

	return h, nil
}

func (d *rowDecoder) parseDate(value string) (time.Time, error) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l.layout, value); err == nil {
			return t, nil
		}
	}

	if d.serialDates {
		if serial, err := strconv.ParseFloat(value, 64); err == nil {
			if t, err := excelize.ExcelDateToTime(serial, d.date1904); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
			}
		}
	}

	supported := make([]string, len(dateLayouts))
	for i, l := range dateLayouts {
		supported[i] = l.display
	}
	return time.Time{}, fmt.Errorf("cannot parse date '%s'. Supported formats: %s", value, strings.Join(supported, ", "))
}

func validAssetTypes() string {
	types := domain.AssetTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
