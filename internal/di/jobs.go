// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/capitalx/capitalx/internal/config"
	"github.com/capitalx/capitalx/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the scheduler and registers the background jobs.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(log)
	container.MaintenanceJob = scheduler.NewMaintenanceJob(container.PortfolioDB, container.EventManager, log)

	if err := container.Scheduler.AddJob(cfg.MaintenanceSchedule, container.MaintenanceJob); err != nil {
		return fmt.Errorf("failed to register maintenance job: %w", err)
	}

	log.Info().Int("jobs", container.Scheduler.Entries()).Msg("Background jobs registered")

	return nil
}
