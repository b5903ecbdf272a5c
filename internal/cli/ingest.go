package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/capitalx/capitalx/internal/modules/ingestion"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	FailFast bool
}

// FileOutcome is the result of ingesting one file.
type FileOutcome struct {
	Path   string            `json:"path"`
	Result *ingestion.Result `json:"result,omitempty"`
	Error  *CLIError         `json:"error,omitempty"`
}

// IngestReport summarizes an ingest run.
type IngestReport struct {
	Files     []FileOutcome `json:"files"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// String renders the report for text output.
func (r IngestReport) String() string {
	var b strings.Builder
	for _, f := range r.Files {
		if f.Error != nil {
			fmt.Fprintf(&b, "✗ %s: [%s] %s\n", f.Path, f.Error.Kind, f.Error.Message)
			continue
		}
		fmt.Fprintf(&b, "✓ %s: customer %s, period %s (%s), %d holdings, upload %d\n",
			f.Path, f.Result.CustomerCode, f.Result.PeriodLabel, f.Result.PeriodType,
			f.Result.HoldingsCount, f.Result.UploadID)
	}
	fmt.Fprintf(&b, "%d succeeded, %d failed\n", r.Succeeded, r.Failed)
	return b.String()
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest holdings files into the portfolio database",
		Long: `Ingest one or more holdings files.

Each file is its own unit of work: a rejected file leaves no trace in the
database and does not affect the others unless --fail-fast is given.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first rejected file")

	return cmd
}

func runIngest(rootOpts *RootOptions, opts *IngestOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	ctx := cmd.Context()
	container, err := openContainer(ctx, rootOpts, formatter)
	if err != nil {
		_ = formatter.Error("COMMAND_ERROR", err.Error(), nil)
		return err
	}
	defer container.Close()

	report := IngestReport{}
	for _, path := range paths {
		formatter.VerboseLog("Ingesting %s", path)

		outcome := ingestFile(cmd, container.IngestionService, path)
		report.Files = append(report.Files, outcome)
		if outcome.Error != nil {
			report.Failed++
			if opts.FailFast {
				break
			}
			continue
		}
		report.Succeeded++
	}

	if report.Failed > 0 {
		_ = formatter.Failure(report, &CLIError{
			Kind:    "INGESTION_FAILED",
			Message: fmt.Sprintf("%d of %d file(s) rejected", report.Failed, len(report.Files)),
		})
		return NewExitError(ExitFailure, "ingestion failed")
	}

	return formatter.Success(report)
}

func ingestFile(cmd *cobra.Command, service *ingestion.Service, path string) FileOutcome {
	outcome := FileOutcome{Path: path}

	f, err := os.Open(path)
	if err != nil {
		outcome.Error = &CLIError{Kind: "FILE_UNREADABLE", Message: err.Error()}
		return outcome
	}
	defer f.Close()

	result, err := service.Ingest(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		outcome.Error = ingestError(err)
		return outcome
	}

	outcome.Result = result
	return outcome
}

func ingestError(err error) *CLIError {
	cliErr := &CLIError{Kind: domain.ErrorKind(err), Message: err.Error()}

	var csvErr *domain.InvalidCSVError
	if errors.As(err, &csvErr) && (csvErr.Row > 0 || len(csvErr.Columns) > 0) {
		cliErr.Details = map[string]interface{}{
			"row":     csvErr.Row,
			"columns": csvErr.Columns,
		}
	}
	return cliErr
}
