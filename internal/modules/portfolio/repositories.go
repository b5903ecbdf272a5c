package portfolio

import (
	"github.com/capitalx/capitalx/internal/database"
	"github.com/rs/zerolog"
)

// Repositories groups the portfolio stores over one database
type Repositories struct {
	Customers *CustomerRepository
	Assets    *AssetRepository
	Batches   *UploadBatchRepository
	Holdings  *HoldingRepository
	Summaries *BatchSummaryRepository
	Annual    *AnnualPerformanceRepository
}

// NewRepositories creates every portfolio repository over db
func NewRepositories(db database.Queryer, log zerolog.Logger) Repositories {
	return Repositories{
		Customers: NewCustomerRepository(db, log),
		Assets:    NewAssetRepository(db, log),
		Batches:   NewUploadBatchRepository(db, log),
		Holdings:  NewHoldingRepository(db, log),
		Summaries: NewBatchSummaryRepository(db, log),
		Annual:    NewAnnualPerformanceRepository(db, log),
	}
}
