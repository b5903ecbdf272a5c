package events

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// PortfolioIngestedData is emitted once an upload batch has been committed
type PortfolioIngestedData struct {
	CustomerCode    string `json:"customer_code"`
	UploadReference string `json:"upload_reference"`
	PeriodLabel     string `json:"period_label"`
	PeriodType      string `json:"period_type"`
	FileName        string `json:"file_name"`
	Content         []byte `json:"-"` // Raw uploaded bytes, for archiving
	CustomerID      int64  `json:"customer_id"`
	UploadID        int64  `json:"upload_id"`
	HoldingsCount   int    `json:"holdings_count"`
}

// EventType returns the event type for PortfolioIngestedData
func (d *PortfolioIngestedData) EventType() EventType {
	return PortfolioIngested
}

// IngestionFailedData is emitted when an upload is rejected or rolled back
type IngestionFailedData struct {
	FileName  string `json:"file_name"`
	ErrorKind string `json:"error_kind"`
	Error     string `json:"error"`
}

// EventType returns the event type for IngestionFailedData
func (d *IngestionFailedData) EventType() EventType {
	return IngestionFailed
}

// UploadArchivedData is emitted after the raw upload was stored in the archive
type UploadArchivedData struct {
	UploadReference string `json:"upload_reference"`
	Key             string `json:"key"`
	UploadID        int64  `json:"upload_id"`
	SizeBytes       int    `json:"size_bytes"`
}

// EventType returns the event type for UploadArchivedData
func (d *UploadArchivedData) EventType() EventType {
	return UploadArchived
}

// MaintenanceCompletedData is emitted by the database maintenance job
type MaintenanceCompletedData struct {
	Database     string `json:"database"`
	DurationMs   int64  `json:"duration_ms"`
	WALSizeBytes int64  `json:"wal_size_bytes"`
}

// EventType returns the event type for MaintenanceCompletedData
func (d *MaintenanceCompletedData) EventType() EventType {
	return MaintenanceCompleted
}

// ErrorOccurredData contains data for ErrorOccurred events
type ErrorOccurredData struct {
	Context map[string]interface{} `json:"context,omitempty"`
	Error   string                 `json:"error"`
}

// EventType returns the event type for ErrorOccurredData
func (d *ErrorOccurredData) EventType() EventType {
	return ErrorOccurred
}
