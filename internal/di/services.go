// Package di provides dependency injection for repositories and services.
package di

import (
	"context"
	"fmt"

	"github.com/capitalx/capitalx/internal/config"
	"github.com/capitalx/capitalx/internal/events"
	"github.com/capitalx/capitalx/internal/modules/archive"
	"github.com/capitalx/capitalx/internal/modules/ingestion"
	"github.com/capitalx/capitalx/internal/modules/portfolio"
	"github.com/capitalx/capitalx/internal/modules/snapshots"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the portfolio repositories on the container's database
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.PortfolioDB == nil {
		return fmt.Errorf("container database not initialized")
	}

	container.Repos = portfolio.NewRepositories(container.PortfolioDB.Conn(), log)

	return nil
}

// InitializeServices creates the services and subscribes them to ingestion events
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.EventManager = events.NewManager(log)

	container.IngestionService = ingestion.NewService(
		container.PortfolioDB.Conn(),
		container.Repos,
		container.EventManager,
		log,
	)

	container.SnapshotService = snapshots.NewService(container.Repos, cfg.SnapshotCacheTTL, log)

	archiver, err := archive.NewFromConfig(ctx, cfg.Archive, log)
	if err != nil {
		return fmt.Errorf("failed to initialize archive: %w", err)
	}
	container.Archiver = archiver
	container.ArchiveSubscriber = archive.NewSubscriber(archiver, container.EventManager, log)

	// Cache invalidation runs before archiving so reads are fresh as soon as possible
	container.EventManager.Subscribe(events.PortfolioIngested, container.SnapshotService.HandlePortfolioIngested)
	container.EventManager.Subscribe(events.PortfolioIngested, container.ArchiveSubscriber.HandlePortfolioIngested)

	return nil
}
