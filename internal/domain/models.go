package domain

import (
	"time"

	"github.com/locvowork/sheet_aggregator/pkg/sheetmerge"
)

// SourceEntry is one workbook to merge, in output order.
type SourceEntry struct {
	Location       string `json:"location" yaml:"location"`
	RenameHint     string `json:"rename_hint,omitempty" yaml:"rename_hint"`
	DuplicateIndex int    `json:"duplicate_index,omitempty" yaml:"duplicate_index"`
	ProcessID      string `json:"process_id,omitempty" yaml:"process_id"`
	ProcessNo      string `json:"process_no,omitempty" yaml:"process_no"`
}

// AggregateRequest is the body of POST /api/workbooks/aggregate.
type AggregateRequest struct {
	Sources []SourceEntry `json:"sources"`
	// FieldData locates the field payload: a path or URL holding JSON, or
	// "datastore:" optionally followed by comma-separated process ids.
	FieldData string `json:"field_data,omitempty"`
	Marker    string `json:"marker,omitempty"`
}

// AggregateResult carries the encoded workbook and what went into it.
type AggregateResult struct {
	Data   []byte             `json:"-"`
	Report *sheetmerge.Report `json:"report"`
	RunID  int64              `json:"run_id,omitempty"`
}

// PreviewRequest is the body of POST /api/workbooks/preview.
type PreviewRequest struct {
	Location    string `json:"location"`
	Sheet       string `json:"sheet"`
	Recalculate bool   `json:"recalculate"`
}

// Run statuses
const (
	RunSucceeded = "succeeded"
	RunPartial   = "partial"
	RunFailed    = "failed"
)

// AggregationRun is the audit record of one aggregation.
type AggregationRun struct {
	ID         int64     `json:"id" db:"id"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
	Status     string    `json:"status" db:"status"`
	Sources    int       `json:"sources" db:"sources"`
	Skipped    int       `json:"skipped" db:"skipped"`
	Sheets     int       `json:"sheets" db:"sheets"`
	Styles     int       `json:"styles" db:"styles"`
	// Labels are the source locations, SheetNames the output sheets.
	Labels     []string `json:"labels" db:"-"`
	SheetNames []string `json:"sheet_names" db:"-"`
	Error      string   `json:"error,omitempty" db:"error"`
}

// ProcessField is one attribute of a process record as stored in
// Datastore. Value holds the raw JSON of the attribute.
type ProcessField struct {
	ProcessID   string `datastore:"ProcessID" json:"process_id"`
	ProcessNo   string `datastore:"ProcessNo" json:"process_no"`
	ProcessName string `datastore:"ProcessName" json:"process_name"`
	Name        string `datastore:"Name" json:"name"`
	Value       string `datastore:"Value,noindex" json:"value"`
	Position    int    `datastore:"Position" json:"position"`
}
