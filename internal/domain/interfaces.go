package domain

import (
	"context"

	"github.com/locvowork/sheet_aggregator/pkg/fielddata"
)

// Fetcher loads the raw bytes behind a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FieldDataProvider loads the field payload named by ref.
type FieldDataProvider interface {
	Load(ctx context.Context, ref string) (*fielddata.Payload, error)
}

// RunRecorder keeps the aggregation audit trail.
type RunRecorder interface {
	Record(ctx context.Context, run *AggregationRun) error
	Recent(ctx context.Context, limit int) ([]AggregationRun, error)
}

// RunSearcher finds past runs by source or sheet name.
type RunSearcher interface {
	IndexRun(ctx context.Context, run *AggregationRun) error
	SearchRuns(ctx context.Context, text string, limit int) ([]AggregationRun, error)
}

// WorkbookService is the use-case layer behind the HTTP handlers and CLI.
type WorkbookService interface {
	Aggregate(ctx context.Context, req AggregateRequest) (*AggregateResult, error)
	Preview(ctx context.Context, req PreviewRequest) (string, error)
	PreviewUpload(ctx context.Context, data []byte, sheet string, recalc bool) (string, error)
	SheetNames(ctx context.Context, location string) ([]string, error)
	Runs(ctx context.Context, limit int) ([]AggregationRun, error)
	SearchRuns(ctx context.Context, text string, limit int) ([]AggregationRun, error)
}
