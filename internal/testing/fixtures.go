package testing

import (
	"strings"
)

// HoldingsHeader is the canonical header row of a holdings upload
const HoldingsHeader = "asset_code,asset_name,asset_type,exchange_or_market,quantity,buy_price,current_price," +
	"invested_value,current_value,profit_loss,investment_start_date,investment_end_date"

// HoldingFixture is one data row of a holdings upload
type HoldingFixture struct {
	AssetCode     string
	AssetName     string
	AssetType     string
	Market        string
	Quantity      string
	BuyPrice      string
	CurrentPrice  string
	InvestedValue string
	CurrentValue  string
	ProfitLoss    string
	StartDate     string
	EndDate       string
}

// CSVRow renders the fixture in HoldingsHeader column order
func (h HoldingFixture) CSVRow() string {
	return strings.Join([]string{
		h.AssetCode, h.AssetName, h.AssetType, h.Market,
		h.Quantity, h.BuyPrice, h.CurrentPrice,
		h.InvestedValue, h.CurrentValue, h.ProfitLoss,
		h.StartDate, h.EndDate,
	}, ",")
}

// NewHoldingFixtures returns the two-row example portfolio:
// AAPL gains 200 and TSLA loses 250.
func NewHoldingFixtures() []HoldingFixture {
	return []HoldingFixture{
		{
			AssetCode: "AAPL", AssetName: "Apple Inc", AssetType: "STOCK", Market: "NASDAQ",
			Quantity: "10", BuyPrice: "100", CurrentPrice: "120",
			InvestedValue: "1000", CurrentValue: "1200", ProfitLoss: "200",
			StartDate: "2024-01-01",
		},
		{
			AssetCode: "TSLA", AssetName: "Tesla Inc", AssetType: "STOCK", Market: "NASDAQ",
			Quantity: "5", BuyPrice: "200", CurrentPrice: "150",
			InvestedValue: "1000", CurrentValue: "750", ProfitLoss: "-250",
			StartDate: "2024-02-01",
		},
	}
}

// BuildHoldingsCSV renders a complete CSV upload from fixtures
func BuildHoldingsCSV(rows ...HoldingFixture) string {
	var b strings.Builder
	b.WriteString(HoldingsHeader)
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(r.CSVRow())
		b.WriteString("\n")
	}
	return b.String()
}
