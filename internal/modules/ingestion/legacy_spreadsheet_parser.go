package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/extrame/xls"
)

// BIFF8 worksheets are at most 256 columns wide
const legacyMaxColumns = 256

// legacySpreadsheetParser reads the first worksheet of an Excel 97-2003
// (BIFF8) workbook.
type legacySpreadsheetParser struct{}

func (p *legacySpreadsheetParser) Parse(r io.Reader) (rows []HoldingRow, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &domain.InvalidCSVError{Msg: "failed to read spreadsheet", Err: err}
	}

	// The reader panics on truncated or corrupt records
	defer func() {
		if rec := recover(); rec != nil {
			rows, err = nil, &domain.InvalidCSVError{Msg: "failed to read spreadsheet", Err: fmt.Errorf("%v", rec)}
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, &domain.InvalidCSVError{Msg: "failed to read spreadsheet", Err: err}
	}
	if wb == nil {
		return nil, &domain.InvalidCSVError{Msg: "spreadsheet contains no workbook stream"}
	}
	// Without cell formats every number comes back raw, so date cells
	// arrive as serial numbers instead of lossy formatted strings
	wb.Xfs = nil

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, &domain.InvalidCSVError{Msg: "spreadsheet contains no worksheets"}
	}

	cells := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		cells = append(cells, legacyRowCells(sheet, i))
	}
	if len(cells) == 0 || isBlankRow(cells[0]) {
		return nil, errNoHoldings()
	}

	decoder, err := newRowDecoder(cells[0])
	if err != nil {
		return nil, err
	}
	decoder.serialDates = true

	for i, record := range cells[1:] {
		if isBlankRow(record) {
			continue
		}
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

// legacyRowCells returns the cell texts of a row with trailing empty cells
// trimmed. Rows without any records come back empty.
func legacyRowCells(sheet *xls.WorkSheet, index int) []string {
	row := sheetRow(sheet, index)
	if row == nil {
		return nil
	}

	cells := make([]string, legacyMaxColumns)
	last := -1
	for c := range cells {
		cells[c] = row.Col(c)
		if strings.TrimSpace(cells[c]) != "" {
			last = c
		}
	}
	return cells[:last+1]
}

// sheetRow looks up a row, returning nil for rows the sheet never recorded
func sheetRow(sheet *xls.WorkSheet, index int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(index)
}
