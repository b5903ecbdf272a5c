// Package snapshots serves read views over ingested portfolios: customer
// profiles, upload snapshots with their totals, holdings and annual reports.
package snapshots

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/capitalx/capitalx/internal/events"
	"github.com/capitalx/capitalx/internal/modules/portfolio"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Cache keys, all scoped by customer ID so Invalidate can drop them together
const (
	ckPrefix    = "customer:%d:"
	ckSnapshots = ckPrefix + "snapshots"
	ckHoldings  = ckPrefix + "holdings"
	ckAnnual    = ckPrefix + "annual"
)

// Service provides the portfolio read views
type Service struct {
	repos portfolio.Repositories
	cache *cache.Cache
	log   zerolog.Logger
}

// NewService creates a new snapshot service. Per-customer views are cached
// for ttl or until Invalidate is called for the customer.
func NewService(repos portfolio.Repositories, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repos: repos,
		cache: cache.New(ttl, 2*ttl),
		log:   log.With().Str("service", "snapshots").Logger(),
	}
}

// Invalidate drops every cached view of the customer
func (s *Service) Invalidate(customerID int64) {
	prefix := fmt.Sprintf(ckPrefix, customerID)
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
	s.log.Debug().Int64("customer_id", customerID).Msg("Invalidated snapshot cache")
}

// HandlePortfolioIngested invalidates the customer's views after an upload
func (s *Service) HandlePortfolioIngested(ctx context.Context, event events.Event) {
	data, ok := event.Data.(*events.PortfolioIngestedData)
	if !ok {
		return
	}
	s.Invalidate(data.CustomerID)
}

// cached returns the value stored under key, loading and storing it on a miss
func cached[T any](s *Service, key string, load func() (T, error)) (T, error) {
	if v, found := s.cache.Get(key); found {
		return v.(T), nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	s.cache.SetDefault(key, v)
	return v, nil
}

// ListCustomers returns all customers ordered by code
func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repos.Customers.List(ctx)
}

// GetCustomer returns the customer with id
func (s *Service) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := s.repos.Customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

// GetCustomerByCode returns the customer with code
func (s *Service) GetCustomerByCode(ctx context.Context, code string) (*domain.Customer, error) {
	c, err := s.repos.Customers.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("customer %q: %w", code, domain.ErrNotFound)
	}
	return c, nil
}

// ListSnapshots returns every upload of the customer, newest first
func (s *Service) ListSnapshots(ctx context.Context, customerID int64) ([]Snapshot, error) {
	return cached(s, fmt.Sprintf(ckSnapshots, customerID), func() ([]Snapshot, error) {
		batches, err := s.repos.Batches.ListForCustomer(ctx, customerID)
		if err != nil {
			return nil, err
		}
		return s.withSummaries(ctx, batches)
	})
}

// GetLatestSnapshot returns the customer's most recent upload
func (s *Service) GetLatestSnapshot(ctx context.Context, customerID int64) (*Snapshot, error) {
	snaps, err := s.ListSnapshots(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no portfolio snapshot for customer %d: %w", customerID, domain.ErrNotFound)
	}
	latest := snaps[0]
	return &latest, nil
}

// GetSnapshot returns one upload of the customer
func (s *Service) GetSnapshot(ctx context.Context, customerID, uploadID int64) (*Snapshot, error) {
	batch, err := s.repos.Batches.GetByID(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if batch == nil || batch.CustomerID != customerID {
		return nil, fmt.Errorf("portfolio snapshot %d: %w", uploadID, domain.ErrNotFound)
	}

	summary, err := s.repos.Summaries.GetByUpload(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	snap := newSnapshot(*batch, summary)
	return &snap, nil
}

// ListSnapshotsByPeriod returns the customer's uploads of one period type,
// newest first
func (s *Service) ListSnapshotsByPeriod(ctx context.Context, customerID int64, periodType domain.PeriodType) ([]Snapshot, error) {
	batches, err := s.repos.Batches.ListForCustomerByPeriod(ctx, customerID, periodType)
	if err != nil {
		return nil, err
	}
	return s.withSummaries(ctx, batches)
}

// ListSnapshotsByYear returns the customer's uploads made in year (UTC),
// newest first
func (s *Service) ListSnapshotsByYear(ctx context.Context, customerID int64, year int) ([]Snapshot, error) {
	batches, err := s.repos.Batches.ListForCustomerByYear(ctx, customerID, year)
	if err != nil {
		return nil, err
	}
	return s.withSummaries(ctx, batches)
}

func (s *Service) withSummaries(ctx context.Context, batches []domain.UploadBatch) ([]Snapshot, error) {
	snaps := make([]Snapshot, 0, len(batches))
	for _, b := range batches {
		summary, err := s.repos.Summaries.GetByUpload(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, newSnapshot(b, summary))
	}
	return snaps, nil
}

// HoldingsForUpload returns the holdings of one upload in file order
func (s *Service) HoldingsForUpload(ctx context.Context, uploadID int64) ([]HoldingView, error) {
	holdings, err := s.repos.Holdings.ListByUpload(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return toViews(holdings), nil
}

// LatestHoldings returns the holdings of the customer's most recent upload
func (s *Service) LatestHoldings(ctx context.Context, customerID int64) ([]HoldingView, error) {
	latest, err := s.repos.Batches.GetLatestForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("no portfolio snapshot for customer %d: %w", customerID, domain.ErrNotFound)
	}
	return s.HoldingsForUpload(ctx, latest.ID)
}

// HoldingFilter selects holdings across all of a customer's uploads
type HoldingFilter func(h HoldingView) bool

// Holding filters
var (
	Active     HoldingFilter = func(h HoldingView) bool { return h.Status == domain.HoldingActive }
	Exited     HoldingFilter = func(h HoldingView) bool { return h.Status == domain.HoldingExited }
	Profitable HoldingFilter = func(h HoldingView) bool { return h.GainLoss.Valid && h.GainLoss.Decimal.IsPositive() }
	Losses     HoldingFilter = func(h HoldingView) bool { return h.GainLoss.Valid && h.GainLoss.Decimal.IsNegative() }
)

// OfType selects holdings of one asset type
func OfType(t domain.AssetType) HoldingFilter {
	return func(h HoldingView) bool { return h.AssetType == t }
}

// Holdings returns the customer's holdings across all uploads, newest upload
// first, keeping those that match filter. A nil filter keeps everything.
func (s *Service) Holdings(ctx context.Context, customerID int64, filter HoldingFilter) ([]HoldingView, error) {
	all, err := cached(s, fmt.Sprintf(ckHoldings, customerID), func() ([]HoldingView, error) {
		holdings, err := s.repos.Holdings.ListByCustomer(ctx, customerID)
		if err != nil {
			return nil, err
		}
		return toViews(holdings), nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]HoldingView, 0, len(all))
	for _, h := range all {
		if filter == nil || filter(h) {
			out = append(out, h)
		}
	}
	return out, nil
}

func toViews(holdings []portfolio.HoldingWithAsset) []HoldingView {
	views := make([]HoldingView, 0, len(holdings))
	for _, h := range holdings {
		views = append(views, newHoldingView(h))
	}
	return views
}

// ListAnnualReports returns the customer's yearly rollups, newest year first
func (s *Service) ListAnnualReports(ctx context.Context, customerID int64) ([]AnnualReport, error) {
	return cached(s, fmt.Sprintf(ckAnnual, customerID), func() ([]AnnualReport, error) {
		records, err := s.repos.Annual.ListByCustomer(ctx, customerID)
		if err != nil {
			return nil, err
		}
		reports := make([]AnnualReport, 0, len(records))
		for _, ap := range records {
			reports = append(reports, newAnnualReport(ap))
		}
		return reports, nil
	})
}

// GetAnnualReport returns the customer's rollup for one financial year
func (s *Service) GetAnnualReport(ctx context.Context, customerID int64, year int) (*AnnualReport, error) {
	ap, err := s.repos.Annual.Get(ctx, customerID, year)
	if err != nil {
		return nil, err
	}
	if ap == nil {
		return nil, fmt.Errorf("annual performance for customer %d, year %d: %w", customerID, year, domain.ErrNotFound)
	}
	report := newAnnualReport(*ap)
	return &report, nil
}
