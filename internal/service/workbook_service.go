package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/locvowork/sheet_aggregator/internal/domain"
	"github.com/locvowork/sheet_aggregator/internal/logger"
	"github.com/locvowork/sheet_aggregator/internal/source"
	"github.com/locvowork/sheet_aggregator/pkg/dataflow"
	"github.com/locvowork/sheet_aggregator/pkg/fielddata"
	"github.com/locvowork/sheet_aggregator/pkg/palette"
	"github.com/locvowork/sheet_aggregator/pkg/recalc"
	"github.com/locvowork/sheet_aggregator/pkg/sheethtml"
	"github.com/locvowork/sheet_aggregator/pkg/sheetmerge"
	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

var (
	// ErrInvalidRequest is wrapped for requests that cannot be served as sent.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSearchDisabled is returned by SearchRuns when no run index is configured.
	ErrSearchDisabled = errors.New("run search is not configured")
)

// Options tunes WorkbookService.
type Options struct {
	Workers         int
	Retries         int
	RetryBackoff    time.Duration
	Marker          string
	RecalcOnPreview bool
}

// WorkbookService fetches, aggregates and previews workbooks.
type WorkbookService struct {
	fetcher    domain.Fetcher
	jsonFields domain.FieldDataProvider
	dsFields   domain.FieldDataProvider
	runs       domain.RunRecorder
	search     domain.RunSearcher
	opts       Options
}

// NewWorkbookService creates a new WorkbookService instance. dsFields and
// search may be nil.
func NewWorkbookService(
	fetcher domain.Fetcher,
	dsFields domain.FieldDataProvider,
	runs domain.RunRecorder,
	search domain.RunSearcher,
	opts Options,
) *WorkbookService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 200 * time.Millisecond
	}
	return &WorkbookService{
		fetcher:    fetcher,
		jsonFields: source.JSONFieldProvider{Fetcher: fetcher},
		dsFields:   dsFields,
		runs:       runs,
		search:     search,
		opts:       opts,
	}
}

var _ domain.WorkbookService = (*WorkbookService)(nil)

// ==================== Aggregation ====================

// Aggregate merges the requested sources into one workbook and records
// the run. Sources that cannot be fetched or decoded are skipped.
func (s *WorkbookService) Aggregate(ctx context.Context, req domain.AggregateRequest) (*domain.AggregateResult, error) {
	if len(req.Sources) == 0 {
		return nil, fmt.Errorf("%w: no sources", ErrInvalidRequest)
	}
	for i, e := range req.Sources {
		if strings.TrimSpace(e.Location) == "" {
			return nil, fmt.Errorf("%w: source %d has no location", ErrInvalidRequest, i)
		}
	}

	run := &domain.AggregationRun{StartedAt: time.Now().UTC(), Sources: len(req.Sources)}
	for _, e := range req.Sources {
		run.Labels = append(run.Labels, e.Location)
	}

	result, err := s.aggregate(ctx, req, run)
	run.FinishedAt = time.Now().UTC()
	switch {
	case err != nil:
		run.Status = domain.RunFailed
		run.Error = err.Error()
	case run.Skipped > 0:
		run.Status = domain.RunPartial
	default:
		run.Status = domain.RunSucceeded
	}
	s.record(ctx, run)
	if err != nil {
		return nil, err
	}
	result.RunID = run.ID
	return result, nil
}

func (s *WorkbookService) aggregate(ctx context.Context, req domain.AggregateRequest, run *domain.AggregationRun) (*domain.AggregateResult, error) {
	docs, payload, err := s.gather(ctx, req.Sources, req.FieldData)
	if err != nil {
		return nil, err
	}

	sources := make([]sheetmerge.Source, len(req.Sources))
	for i, e := range req.Sources {
		sources[i] = sheetmerge.Source{
			Label:          e.Location,
			Doc:            docs[i].doc,
			Err:            docs[i].err,
			RenameHint:     e.RenameHint,
			DuplicateIndex: e.DuplicateIndex,
			ProcessID:      e.ProcessID,
			ProcessNo:      e.ProcessNo,
			FieldData:      payload,
		}
	}

	var aggOpts []sheetmerge.Option
	if req.Marker != "" {
		aggOpts = append(aggOpts, sheetmerge.WithFieldSheetMarker(req.Marker))
	} else if s.opts.Marker != "" {
		aggOpts = append(aggOpts, sheetmerge.WithFieldSheetMarker(s.opts.Marker))
	}
	out, rep, err := sheetmerge.NewAggregator(aggOpts...).Aggregate(ctx, sources)
	if rep != nil {
		run.Skipped = len(rep.Skipped)
	}
	if err != nil {
		return nil, err
	}
	run.Sheets = len(rep.Sheets)
	run.Styles = rep.Styles
	run.SheetNames = out.SheetNames()

	data, err := out.Bytes(workbook.WithColorFunc(palette.ColorFunc))
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return &domain.AggregateResult{Data: data, Report: rep}, nil
}

// loadFieldData picks the provider by ref; an empty ref means no field data.
func (s *WorkbookService) loadFieldData(ctx context.Context, ref string) (*fielddata.Payload, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	provider := s.jsonFields
	if strings.HasPrefix(strings.ToLower(ref), source.DatastorePrefix) {
		if s.dsFields == nil {
			return nil, fmt.Errorf("%w: datastore field data is not configured", ErrInvalidRequest)
		}
		provider = s.dsFields
	}
	payload, err := provider.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load field data: %w", err)
	}
	return payload, nil
}

type fetchJob struct {
	idx      int
	entry    domain.SourceEntry
	attempts int
}

// loaded is one result of gather: a source workbook, or the field data
// payload when idx is fieldDataIdx.
type loaded struct {
	idx    int
	doc    *workbook.Document
	fields *fielddata.Payload
	err    error
}

const fieldDataIdx = -1

// gather fetches the sources and loads the field data side by side. The
// documents are in entry order; failed entries carry their error. A field
// data failure fails the whole call.
func (s *WorkbookService) gather(ctx context.Context, entries []domain.SourceEntry, fieldRef string) ([]loaded, *fielddata.Payload, error) {
	items, err := dataflow.Collect(ctx, dataflow.FanIn(ctx,
		s.fetchSources(ctx, entries),
		s.fieldDataStream(ctx, fieldRef),
	))
	if err != nil {
		return nil, nil, err
	}

	var payload *fielddata.Payload
	byLocation := make(map[string]loaded, len(entries))
	for _, it := range items {
		if it.idx == fieldDataIdx {
			if it.err != nil {
				return nil, nil, it.err
			}
			payload = it.fields
			continue
		}
		byLocation[entries[it.idx].Location] = it
	}

	out := make([]loaded, len(entries))
	for i, e := range entries {
		it, ok := byLocation[e.Location]
		if !ok {
			it = loaded{err: errors.New("source was not fetched")}
		}
		it.idx = i
		out[i] = it
		if it.err != nil {
			logger.WarnLog(ctx, "source %d (%s) skipped: %v", i, e.Location, it.err)
		}
	}
	return out, payload, nil
}

// fetchSources downloads and decodes every distinct location once.
// Failed fetches are retried up to Options.Retries times, except for
// timeouts, and then reported as a result carrying the error.
func (s *WorkbookService) fetchSources(ctx context.Context, entries []domain.SourceEntry) dataflow.Stream[loaded] {
	jobs := make([]*fetchJob, len(entries))
	for i, e := range entries {
		jobs[i] = &fetchJob{idx: i, entry: e}
	}

	// Filter runs a single worker, so seen needs no lock
	seen := make(map[string]bool, len(jobs))
	distinct := dataflow.Filter(ctx, dataflow.From(ctx, jobs...), func(j *fetchJob) bool {
		if seen[j.entry.Location] {
			return false
		}
		seen[j.entry.Location] = true
		return true
	}, dataflow.WithBufferSize(len(jobs)))

	return dataflow.Map(ctx, distinct, func(j *fetchJob) (loaded, error) {
		data, err := s.fetcher.Fetch(ctx, j.entry.Location)
		if err != nil {
			j.attempts++
			if !isTimeout(err) && j.attempts <= s.opts.Retries {
				return loaded{}, err
			}
			return loaded{idx: j.idx, err: err}, nil
		}
		doc, err := workbook.Decode(data)
		return loaded{idx: j.idx, doc: doc, err: err}, nil
	},
		dataflow.WithWorkers(s.opts.Workers),
		dataflow.WithBufferSize(len(jobs)),
		dataflow.WithRetry(s.opts.Retries, func(attempt int) time.Duration {
			return time.Duration(attempt) * s.opts.RetryBackoff
		}),
	)
}

// fieldDataStream loads the field data payload in the background and
// yields it as a single item.
func (s *WorkbookService) fieldDataStream(ctx context.Context, ref string) dataflow.Stream[loaded] {
	out := make(chan loaded, 1)
	go func() {
		defer close(out)
		payload, err := s.loadFieldData(ctx, ref)
		out <- loaded{idx: fieldDataIdx, fields: payload, err: err}
	}()
	return dataflow.New(out)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// record stores the run; storage failures are logged, never returned.
func (s *WorkbookService) record(ctx context.Context, run *domain.AggregationRun) {
	if s.runs != nil {
		if err := s.runs.Record(ctx, run); err != nil {
			logger.ErrorLog(ctx, err, "failed to record aggregation run")
		}
	}
	if s.search != nil {
		if err := s.search.IndexRun(ctx, run); err != nil {
			logger.ErrorLog(ctx, err, "failed to index aggregation run")
		}
	}
}

// ==================== Preview ====================

// Preview renders one sheet of the workbook at req.Location.
func (s *WorkbookService) Preview(ctx context.Context, req domain.PreviewRequest) (string, error) {
	doc, err := s.load(ctx, req.Location)
	if err != nil {
		return "", err
	}
	return s.render(ctx, doc, req.Sheet, req.Recalculate)
}

// PreviewUpload renders one sheet of an uploaded workbook.
func (s *WorkbookService) PreviewUpload(ctx context.Context, data []byte, sheet string, recalculate bool) (string, error) {
	doc, err := workbook.Decode(data)
	if err != nil {
		return "", err
	}
	return s.render(ctx, doc, sheet, recalculate)
}

// render draws sheet, or the first sheet when sheet is empty.
func (s *WorkbookService) render(ctx context.Context, doc *workbook.Document, sheet string, recalculate bool) (string, error) {
	if sheet == "" {
		names := doc.SheetNames()
		if len(names) == 0 {
			return "", workbook.ErrNoSheets
		}
		sheet = names[0]
	}
	if !doc.HasSheet(sheet) {
		return "", fmt.Errorf("%w: %q", workbook.ErrSheetNotFound, sheet)
	}
	if recalculate || s.opts.RecalcOnPreview {
		st, err := recalc.Document(ctx, doc)
		if err != nil {
			return "", err
		}
		logger.DebugLog(ctx, "recalculated %d formulas, %d failed", st.Evaluated, st.Failed)
	}

	var buf bytes.Buffer
	if err := sheethtml.NewRenderer(sheethtml.WithTitle(sheet)).Render(&buf, doc, sheet); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SheetNames lists the sheets of the workbook at location.
func (s *WorkbookService) SheetNames(ctx context.Context, location string) ([]string, error) {
	doc, err := s.load(ctx, location)
	if err != nil {
		return nil, err
	}
	return doc.SheetNames(), nil
}

func (s *WorkbookService) load(ctx context.Context, location string) (*workbook.Document, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidRequest)
	}
	data, err := s.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	return workbook.Decode(data)
}

// ==================== Runs ====================

// Runs returns the latest aggregation runs.
func (s *WorkbookService) Runs(ctx context.Context, limit int) ([]domain.AggregationRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.Recent(ctx, clampLimit(limit))
}

// SearchRuns finds runs by source location or sheet name.
func (s *WorkbookService) SearchRuns(ctx context.Context, text string, limit int) ([]domain.AggregationRun, error) {
	if s.search == nil {
		return nil, ErrSearchDisabled
	}
	return s.search.SearchRuns(ctx, strings.TrimSpace(text), clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > 500:
		return 500
	}
	return limit
}
