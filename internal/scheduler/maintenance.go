package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/capitalx/capitalx/internal/database"
	"github.com/capitalx/capitalx/internal/events"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	maintenanceTimeout = 2 * time.Minute
	lowDiskBytes       = 1 << 30 // 1 GiB
)

// EventEmitter receives maintenance outcomes
type EventEmitter interface {
	Emit(ctx context.Context, module string, data events.EventData)
}

// MaintenanceJob checks the database and truncates its WAL
type MaintenanceJob struct {
	db     *database.DB
	events EventEmitter
	log    zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job. emitter may be nil.
func NewMaintenanceJob(db *database.DB, emitter EventEmitter, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:     db,
		events: emitter,
		log:    log.With().Str("job", "maintenance").Str("database", db.Name()).Logger(),
	}
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	start := time.Now()
	j.log.Info().Msg("Starting database maintenance")

	if err := j.db.HealthCheck(ctx); err != nil {
		err = fmt.Errorf("CRITICAL: %s failed integrity check: %w", j.db.Name(), err)
		if j.events != nil {
			j.events.Emit(ctx, "scheduler", &events.ErrorOccurredData{
				Error:   err.Error(),
				Context: map[string]interface{}{"job": j.Name()},
			})
		}
		return err
	}

	// Checkpoint failures are not fatal; the next run retries
	if err := j.db.WALCheckpoint(ctx, "TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	j.checkDiskSpace()

	var walSize int64
	if stats, err := j.db.GetStats(ctx); err != nil {
		j.log.Warn().Err(err).Msg("Failed to read database stats")
	} else {
		walSize = stats.WALSizeBytes
		j.log.Debug().
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Int64("freelist_count", stats.FreelistCount).
			Msg("Database stats")
	}

	duration := time.Since(start)
	j.log.Info().Dur("duration_ms", duration).Msg("Database maintenance completed")

	if j.events != nil {
		j.events.Emit(ctx, "scheduler", &events.MaintenanceCompletedData{
			Database:     j.db.Name(),
			DurationMs:   duration.Milliseconds(),
			WALSizeBytes: walSize,
		})
	}
	return nil
}

// checkDiskSpace warns when the volume holding the database runs low
func (j *MaintenanceJob) checkDiskSpace() {
	usage, err := disk.Usage(filepath.Dir(j.db.Path()))
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return
	}

	if usage.Free < lowDiskBytes {
		j.log.Error().
			Uint64("free_bytes", usage.Free).
			Float64("used_percent", usage.UsedPercent).
			Msg("Low disk space")
		return
	}
	j.log.Debug().Uint64("free_bytes", usage.Free).Msg("Disk space check")
}
