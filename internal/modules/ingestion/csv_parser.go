package ingestion

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/capitalx/capitalx/internal/domain"
)

const utf8BOM = "\ufeff"

// csvParser reads comma separated content
type csvParser struct{}

func (p *csvParser) Parse(r io.Reader) ([]HoldingRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Short rows read missing trailing cells as empty

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errNoHoldings()
	}
	if err != nil {
		return nil, csvReadError(err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	decoder, err := newRowDecoder(header)
	if err != nil {
		return nil, err
	}

	var rows []HoldingRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvReadError(err)
		}
		if isBlankRow(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		row, err := decoder.decode(record, line)
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

func csvReadError(err error) error {
	invalid := &domain.InvalidCSVError{Msg: "failed to read CSV content", Err: err}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		invalid.Row = parseErr.StartLine
	}
	return invalid
}
