/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived dependency of the service. It is
 * created by Wire() and handed to the HTTP server and the CLI.
 */
package di

import (
	"github.com/capitalx/capitalx/internal/database"
	"github.com/capitalx/capitalx/internal/events"
	"github.com/capitalx/capitalx/internal/modules/archive"
	"github.com/capitalx/capitalx/internal/modules/ingestion"
	"github.com/capitalx/capitalx/internal/modules/portfolio"
	"github.com/capitalx/capitalx/internal/modules/snapshots"
	"github.com/capitalx/capitalx/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Database
	PortfolioDB *database.DB // Customers, assets, upload batches, holdings and rollups

	// Repositories
	Repos portfolio.Repositories

	// Events
	EventManager *events.Manager

	// Services
	IngestionService  *ingestion.Service
	SnapshotService   *snapshots.Service
	Archiver          archive.Archiver
	ArchiveSubscriber *archive.Subscriber

	// Background jobs
	Scheduler      *scheduler.Scheduler
	MaintenanceJob *scheduler.MaintenanceJob
}

// Close releases the resources held by the container. Safe to call on a
// partially initialized container.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.PortfolioDB != nil {
		return c.PortfolioDB.Close()
	}
	return nil
}
