package ingestion

import (
	"regexp"
	"strings"

	"github.com/capitalx/capitalx/internal/domain"
)

// FileFormat is the tabular encoding of an upload, taken from its extension
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatXLSX FileFormat = "xlsx"
	FormatXLS  FileFormat = "xls"
)

var (
	endsWithYear    = regexp.MustCompile(`\d{4}$`)
	startsQuarterly = regexp.MustCompile(`^Q[1-4]`)
)

// FileMetadata is what an upload filename CODE_NAME_PERIOD.ext encodes
type FileMetadata struct {
	FileName     string            `json:"file_name"`
	CustomerCode string            `json:"customer_code"`
	CustomerName string            `json:"customer_name"`
	PeriodLabel  string            `json:"period_label"`
	PeriodType   domain.PeriodType `json:"period_type"`
	Format       FileFormat        `json:"format"`
}

// ParseFilename classifies an upload filename of the form
// CUSTOMERCODE_CUSTOMERNAME_PERIOD.{csv,xlsx,xls}.
func ParseFilename(name string) (*FileMetadata, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.NewInvalidFileFormat(name, "filename cannot be empty")
	}

	stem, format, ok := splitExtension(name)
	if !ok {
		return nil, domain.NewInvalidFileFormat(name,
			"invalid file extension, expected .csv, .xlsx or .xls: %s", name)
	}

	parts := strings.Split(stem, "_")
	if len(parts) != 3 {
		return nil, domain.NewInvalidFileFormat(name,
			"invalid filename format, expected customerCode_customerName_period.csv: %s", name)
	}

	meta := &FileMetadata{
		FileName:     name,
		CustomerCode: strings.TrimSpace(parts[0]),
		CustomerName: strings.TrimSpace(parts[1]),
		PeriodLabel:  strings.TrimSpace(parts[2]),
		Format:       format,
	}

	switch {
	case meta.CustomerCode == "":
		return nil, domain.NewInvalidFileFormat(name, "customer code cannot be empty")
	case meta.CustomerName == "":
		return nil, domain.NewInvalidFileFormat(name, "customer name cannot be empty")
	case meta.PeriodLabel == "":
		return nil, domain.NewInvalidFileFormat(name, "period label cannot be empty")
	}

	meta.PeriodType = DerivePeriodType(meta.PeriodLabel)
	return meta, nil
}

// splitExtension strips a supported extension, matched case-insensitively.
func splitExtension(name string) (string, FileFormat, bool) {
	lower := strings.ToLower(name)
	for _, format := range []FileFormat{FormatCSV, FormatXLSX, FormatXLS} {
		ext := "." + string(format)
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)], format, true
		}
	}
	return "", "", false
}

// DerivePeriodType classifies a period label. The rules are checked in
// order and the first match wins:
//
//	starts with FY, contains ANNUAL, or ends in four digits -> ANNUAL
//	starts with Q1..Q4 or contains QUARTER                  -> QUARTERLY
//	anything else                                           -> CUSTOM
//
// This is a heuristic; "Q1-2026" ends in a year and is therefore ANNUAL.
func DerivePeriodType(label string) domain.PeriodType {
	upper := strings.ToUpper(label)

	if strings.HasPrefix(upper, "FY") || strings.Contains(upper, "ANNUAL") || endsWithYear.MatchString(upper) {
		return domain.PeriodAnnual
	}
	if startsQuarterly.MatchString(upper) || strings.Contains(upper, "QUARTER") {
		return domain.PeriodQuarterly
	}
	return domain.PeriodCustom
}
