package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for matching the ingestion error taxonomy with errors.Is.
var (
	ErrInvalidFileFormat = errors.New("invalid file format")
	ErrInvalidCSV        = errors.New("invalid tabular content")
	ErrAssetResolution   = errors.New("reference resolution failed")
	ErrIngestion         = errors.New("portfolio ingestion failed")
	ErrNotFound          = errors.New("not found")
)

// InvalidFileFormatError reports a filename or format that cannot be ingested.
type InvalidFileFormatError struct {
	FileName string
	Reason   string
}

func (e *InvalidFileFormatError) Error() string {
	return e.Reason
}

func (e *InvalidFileFormatError) Is(target error) bool {
	return target == ErrInvalidFileFormat
}

// NewInvalidFileFormat builds an InvalidFileFormatError
func NewInvalidFileFormat(fileName, format string, args ...interface{}) *InvalidFileFormatError {
	return &InvalidFileFormatError{FileName: fileName, Reason: fmt.Sprintf(format, args...)}
}

// InvalidCSVError reports malformed tabular content. Row is the 1-based
// physical row (header is row 1) or zero when the error is not row specific.
type InvalidCSVError struct {
	Err     error
	Msg     string
	Columns []string
	Row     int
}

func (e *InvalidCSVError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "error parsing row %d: ", e.Row)
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *InvalidCSVError) Unwrap() error {
	return e.Err
}

func (e *InvalidCSVError) Is(target error) bool {
	return target == ErrInvalidCSV
}

// ResolutionError reports a failure to find or create a customer or asset.
type ResolutionError struct {
	Err    error
	Entity string // "customer" or "asset"
	Code   string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %s %q: %v", e.Entity, e.Code, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func (e *ResolutionError) Is(target error) bool {
	return target == ErrAssetResolution
}

// IngestionError wraps any unexpected failure during ingestion, preserving the cause.
type IngestionError struct {
	Err error
	Msg string
}

func (e *IngestionError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

func (e *IngestionError) Is(target error) bool {
	return target == ErrIngestion
}

// IsClientError reports whether err is caused by the uploaded input rather
// than by the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidFileFormat) || errors.Is(err, ErrInvalidCSV)
}

// ErrorKind names the taxonomy bucket of err for API bodies and events
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFileFormat):
		return "INVALID_FILE_FORMAT"
	case errors.Is(err, ErrInvalidCSV):
		return "INVALID_CSV"
	case errors.Is(err, ErrAssetResolution):
		return "RESOLUTION_FAILED"
	default:
		return "INGESTION_FAILED"
	}
}
