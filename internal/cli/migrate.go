package cli

import (
	"github.com/spf13/cobra"

	"github.com/capitalx/capitalx/internal/database"
)

// MigrateResult describes the migrated database.
type MigrateResult struct {
	Path      string                   `json:"path"`
	Profile   database.DatabaseProfile `json:"profile"`
	SizeBytes int64                    `json:"size_bytes"`
	PageCount int64                    `json:"page_count"`
}

func (r MigrateResult) String() string {
	return "✓ Schema applied to " + r.Path + " (" + string(r.Profile) + " profile)\n"
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the portfolio database schema",
		Long: `Apply the portfolio schema to portfolio.db in the data directory.

The schema only creates missing tables and indexes, so running it
against an existing database is safe.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, cmd)
		},
	}
}

func runMigrate(rootOpts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	cfg, err := loadConfig(rootOpts)
	if err != nil {
		_ = formatter.Error("COMMAND_ERROR", err.Error(), nil)
		return err
	}

	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		_ = formatter.Error("COMMAND_ERROR", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	formatter.VerboseLog("Applying schema to %s", db.Path())
	if err := db.Migrate(ctx); err != nil {
		_ = formatter.Error("MIGRATION_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to migrate database", err)
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		_ = formatter.Error("MIGRATION_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read database statistics", err)
	}

	return formatter.Success(MigrateResult{
		Path:      db.Path(),
		Profile:   stats.Profile,
		SizeBytes: stats.SizeBytes,
		PageCount: stats.PageCount,
	})
}
