package ingestion

import (
	"io"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/xuri/excelize/v2"
)

// spreadsheetParser reads the first worksheet of an Office Open XML workbook
type spreadsheetParser struct{}

func (p *spreadsheetParser) Parse(r io.Reader) ([]HoldingRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &domain.InvalidCSVError{Msg: "failed to read spreadsheet", Err: err}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &domain.InvalidCSVError{Msg: "spreadsheet contains no worksheets"}
	}

	// Raw values keep numbers unformatted and dates as serial numbers
	cells, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &domain.InvalidCSVError{Msg: "failed to read worksheet " + sheet, Err: err}
	}
	if len(cells) == 0 {
		return nil, errNoHoldings()
	}

	decoder, err := newRowDecoder(cells[0])
	if err != nil {
		return nil, err
	}
	decoder.serialDates = true
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		decoder.date1904 = *props.Date1904
	}

	var rows []HoldingRow
	for i, record := range cells[1:] {
		if isBlankRow(record) {
			continue
		}
		// cells[0] is row 1
		row, err := decoder.decode(record, i+2)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errNoHoldings()
	}
	return rows, nil
}
