package ingestion

import (
	"testing"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename_Valid(t *testing.T) {
	tests := []struct {
		name     string
		expected FileMetadata
	}{
		{
			name: "CUST001_RaviKumar_FY2025.csv",
			expected: FileMetadata{CustomerCode: "CUST001", CustomerName: "RaviKumar", PeriodLabel: "FY2025",
				PeriodType: domain.PeriodAnnual, Format: FormatCSV},
		},
		{
			name: "ACME_Acme Corp_Q3.XLSX",
			expected: FileMetadata{CustomerCode: "ACME", CustomerName: "Acme Corp", PeriodLabel: "Q3",
				PeriodType: domain.PeriodQuarterly, Format: FormatXLSX},
		},
		{
			name: " C9 _ Jane _ H1 .xls",
			expected: FileMetadata{CustomerCode: "C9", CustomerName: "Jane", PeriodLabel: "H1",
				PeriodType: domain.PeriodCustom, Format: FormatXLS},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ParseFilename(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, meta.FileName)
			assert.Equal(t, tt.expected.CustomerCode, meta.CustomerCode)
			assert.Equal(t, tt.expected.CustomerName, meta.CustomerName)
			assert.Equal(t, tt.expected.Format, meta.Format)
			assert.Equal(t, tt.expected.PeriodType, meta.PeriodType)
		})
	}
}

func TestParseFilename_TrimsSegments(t *testing.T) {
	meta, err := ParseFilename(" C9 _ Jane _ H1 .csv")
	require.NoError(t, err)
	assert.Equal(t, "C9", meta.CustomerCode)
	assert.Equal(t, "Jane", meta.CustomerName)
	assert.Equal(t, "H1", meta.PeriodLabel)
}

func TestParseFilename_Invalid(t *testing.T) {
	for _, name := range []string{
		"",
		"   ",
		"CUST001_Ravi_FY2025.txt",
		"CUST001_Ravi_FY2025",
		"CUST001_FY2025.csv",
		"CUST001_Ravi_Kumar_FY2025.csv",
		"_Ravi_FY2025.csv",
		"CUST001__FY2025.csv",
		"CUST001_Ravi_.csv",
		"CUST001_Ravi_ .csv",
		".csv",
	} {
		t.Run(name, func(t *testing.T) {
			meta, err := ParseFilename(name)
			assert.Nil(t, meta)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidFileFormat)
		})
	}
}

func TestDerivePeriodType(t *testing.T) {
	tests := []struct {
		label    string
		expected domain.PeriodType
	}{
		{"FY2025", domain.PeriodAnnual},
		{"fy25", domain.PeriodAnnual},
		{"Annual-Review", domain.PeriodAnnual},
		{"2024", domain.PeriodAnnual},
		{"Dec2024", domain.PeriodAnnual},
		{"Q1-2026", domain.PeriodAnnual}, // ends in a year, checked first
		{"Q2025", domain.PeriodAnnual},
		{"Q1", domain.PeriodQuarterly},
		{"q4-final", domain.PeriodQuarterly},
		{"Quarter3", domain.PeriodQuarterly},
		{"LastQuarter", domain.PeriodQuarterly},
		{"Q5", domain.PeriodCustom},
		{"H1", domain.PeriodCustom},
		{"Custom", domain.PeriodCustom},
		{"2024-H1", domain.PeriodCustom},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.expected, DerivePeriodType(tt.label))
		})
	}
}
