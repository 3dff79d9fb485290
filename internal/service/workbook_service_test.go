package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/sheet_aggregator/internal/domain"
	"github.com/locvowork/sheet_aggregator/internal/repository"
	"github.com/locvowork/sheet_aggregator/internal/source"
	"github.com/locvowork/sheet_aggregator/pkg/fielddata"
	"github.com/locvowork/sheet_aggregator/pkg/sheetmerge"
	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

// stubFetcher serves fixed bodies; unknown locations fail with a 404.
type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	errs   map[string][]error
	delay  map[string]time.Duration
	calls  map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		bodies: make(map[string][]byte),
		errs:   make(map[string][]error),
		delay:  make(map[string]time.Duration),
		calls:  make(map[string]int),
	}
}

func (f *stubFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	f.mu.Lock()
	f.calls[location]++
	var err error
	if queue := f.errs[location]; len(queue) > 0 {
		err, f.errs[location] = queue[0], queue[1:]
	}
	body, ok := f.bodies[location]
	d := f.delay[location]
	f.mu.Unlock()

	if d > 0 {
		time.Sleep(d)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &source.FetchError{Location: location, Status: 404}
	}
	return body, nil
}

func (f *stubFetcher) callCount(location string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[location]
}

func workbookBytes(t *testing.T, sheets ...string) []byte {
	t.Helper()
	doc := workbook.New()
	for i, name := range sheets {
		s, err := doc.AddSheet(name)
		require.NoError(t, err)
		s.SetCell(0, 0, workbook.Text(name), doc.DefaultStyle)
		s.SetCell(0, 1, workbook.Number(float64(i+1)), doc.DefaultStyle)
	}
	data, err := doc.Bytes()
	require.NoError(t, err)
	return data
}

func decode(t *testing.T, data []byte) *workbook.Document {
	t.Helper()
	doc, err := workbook.Decode(data)
	require.NoError(t, err)
	return doc
}

type stubSearcher struct {
	indexed []domain.AggregationRun
}

func (s *stubSearcher) IndexRun(_ context.Context, run *domain.AggregationRun) error {
	s.indexed = append(s.indexed, *run)
	return nil
}

func (s *stubSearcher) SearchRuns(_ context.Context, text string, _ int) ([]domain.AggregationRun, error) {
	var out []domain.AggregationRun
	for _, r := range s.indexed {
		if strings.Contains(strings.Join(r.Labels, " "), text) {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestAggregate_SkipsFailedSourceAndRecordsRun(t *testing.T) {
	f := newStubFetcher()
	f.bodies["a.xlsx"] = workbookBytes(t, "A")
	f.bodies["c.xlsx"] = workbookBytes(t, "A")
	runs := repository.NewMemoryRunRepository(0)
	search := &stubSearcher{}
	svc := NewWorkbookService(f, nil, runs, search, Options{Workers: 3})

	res, err := svc.Aggregate(context.Background(), domain.AggregateRequest{Sources: []domain.SourceEntry{
		{Location: "a.xlsx"}, {Location: "missing.xlsx"}, {Location: "c.xlsx"},
	}})
	require.NoError(t, err)
	require.Len(t, res.Report.Skipped, 1)
	assert.Equal(t, 1, res.Report.Skipped[0].Source)
	assert.Equal(t, int64(1), res.RunID)

	out := decode(t, res.Data)
	assert.Equal(t, []string{"A", "DATAIN", "A_1", "DATAIN_1"}, out.SheetNames())

	recent, err := svc.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.RunPartial, recent[0].Status)
	assert.Equal(t, 3, recent[0].Sources)
	assert.Equal(t, 1, recent[0].Skipped)
	assert.Equal(t, []string{"a.xlsx", "missing.xlsx", "c.xlsx"}, recent[0].Labels)

	found, err := svc.SearchRuns(context.Background(), "missing", 5)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestAggregate_KeepsRequestOrderUnderConcurrency(t *testing.T) {
	f := newStubFetcher()
	var entries []domain.SourceEntry
	var want []string
	for i := 0; i < 6; i++ {
		loc := fmt.Sprintf("s%d.xlsx", i)
		name := fmt.Sprintf("S%d", i)
		f.bodies[loc] = workbookBytes(t, name)
		f.delay[loc] = time.Duration(6-i) * 5 * time.Millisecond
		entries = append(entries, domain.SourceEntry{Location: loc})
		want = append(want, name)
	}
	svc := NewWorkbookService(f, nil, nil, nil, Options{Workers: 6})

	res, err := svc.Aggregate(context.Background(), domain.AggregateRequest{Sources: entries, Marker: "FIELDS"})
	require.NoError(t, err)

	var got []string
	for _, s := range res.Report.Sheets {
		if !s.FieldSheet {
			got = append(got, s.Name)
		}
	}
	assert.Equal(t, want, got)
}

func TestAggregate_FetchesRepeatedLocationOnce(t *testing.T) {
	f := newStubFetcher()
	f.bodies["shared.xlsx"] = workbookBytes(t, "Calc")
	f.bodies["other.xlsx"] = workbookBytes(t, "Calc")
	svc := NewWorkbookService(f, nil, nil, nil, Options{Workers: 3})

	res, err := svc.Aggregate(context.Background(), domain.AggregateRequest{Sources: []domain.SourceEntry{
		{Location: "shared.xlsx", RenameHint: "P"},
		{Location: "other.xlsx", RenameHint: "Q"},
		{Location: "shared.xlsx", RenameHint: "P", DuplicateIndex: 2},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, f.callCount("shared.xlsx"))
	assert.Equal(t, 1, f.callCount("other.xlsx"))

	out := decode(t, res.Data)
	assert.Equal(t, []string{"P_Calc", "P_DATAIN", "Q_Calc", "Q_DATAIN", "P_Calc(2)", "P_DATAIN(2)"}, out.SheetNames())
}

func TestAggregate_RepeatedFailingLocationSkipsEveryEntry(t *testing.T) {
	f := newStubFetcher()
	f.bodies["a.xlsx"] = workbookBytes(t, "A")
	svc := NewWorkbookService(f, nil, nil, nil, Options{Workers: 2})

	res, err := svc.Aggregate(context.Background(), domain.AggregateRequest{Sources: []domain.SourceEntry{
		{Location: "gone.xlsx"}, {Location: "a.xlsx"}, {Location: "gone.xlsx"},
	}})
	require.NoError(t, err)
	require.Len(t, res.Report.Skipped, 2)
	assert.Equal(t, 0, res.Report.Skipped[0].Source)
	assert.Equal(t, 2, res.Report.Skipped[1].Source)
	assert.Equal(t, 1, f.callCount("gone.xlsx"))
}

func TestAggregate_FieldDataFailureFailsRun(t *testing.T) {
	f := newStubFetcher()
	f.bodies["p1.xlsx"] = workbookBytes(t, "DATAIN")
	runs := repository.NewMemoryRunRepository(0)
	svc := NewWorkbookService(f, nil, runs, nil, Options{Workers: 2})

	_, err := svc.Aggregate(context.Background(), domain.AggregateRequest{
		Sources:   []domain.SourceEntry{{Location: "p1.xlsx"}},
		FieldData: "missing.json",
	})
	assert.ErrorIs(t, err, source.ErrFetchFailed)
	assert.Equal(t, 1, f.callCount("p1.xlsx"))

	recent, _ := runs.Recent(context.Background(), 1)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.RunFailed, recent[0].Status)
}

func TestAggregate_RetriesTransientFailures(t *testing.T) {
	f := newStubFetcher()
	f.bodies["a.xlsx"] = workbookBytes(t, "A")
	f.errs["a.xlsx"] = []error{&source.FetchError{Location: "a.xlsx", Status: 503}}
	svc := NewWorkbookService(f, nil, nil, nil, Options{Retries: 2, RetryBackoff: time.Millisecond})

	res, err := svc.Aggregate(context.Background(), domain.AggregateRequest{Sources: []domain.SourceEntry{{Location: "a.xlsx"}}})
	require.NoError(t, err)
	assert.Empty(t, res.Report.Skipped)
	assert.Equal(t, 2, f.callCount("a.xlsx"))
}

func TestAggregate_TimeoutIsNotRetried(t *testing.T) {
	f := newStubFetcher()
	f.bodies["a.xlsx"] = workbookBytes(t, "A")
	f.errs["slow.xlsx"] = []error{&source.FetchError{Location: "slow.xlsx", Err: context.DeadlineExceeded}}
	svc := NewWorkbookService(f, nil, nil, nil, Options{Retries: 3, RetryBackoff: time.Millisecond})

	res, err := svc.Aggregate(context.Background(), domain.AggregateRequest{Sources: []domain.SourceEntry{
		{Location: "slow.xlsx"}, {Location: "a.xlsx"},
	}})
	require.NoError(t, err)
	require.Len(t, res.Report.Skipped, 1)
	assert.Equal(t, "slow.xlsx", res.Report.Skipped[0].Label)
	assert.Equal(t, 1, f.callCount("slow.xlsx"))
}

func TestAggregate_AllSourcesFail(t *testing.T) {
	f := newStubFetcher()
	f.bodies["junk.xlsx"] = []byte("not a zip")
	runs := repository.NewMemoryRunRepository(0)
	svc := NewWorkbookService(f, nil, runs, nil, Options{})

	_, err := svc.Aggregate(context.Background(), domain.AggregateRequest{Sources: []domain.SourceEntry{
		{Location: "junk.xlsx"}, {Location: "gone.xlsx"},
	}})
	assert.ErrorIs(t, err, sheetmerge.ErrNoSources)

	recent, _ := runs.Recent(context.Background(), 1)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.RunFailed, recent[0].Status)
	assert.Equal(t, 2, recent[0].Skipped)
	assert.NotEmpty(t, recent[0].Error)
}

func TestAggregate_InvalidRequests(t *testing.T) {
	svc := NewWorkbookService(newStubFetcher(), nil, nil, nil, Options{})

	_, err := svc.Aggregate(context.Background(), domain.AggregateRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Aggregate(context.Background(), domain.AggregateRequest{Sources: []domain.SourceEntry{{Location: " "}}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Aggregate(context.Background(), domain.AggregateRequest{
		Sources:   []domain.SourceEntry{{Location: "a.xlsx"}},
		FieldData: "datastore:P1",
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAggregate_FieldDataFromJSON(t *testing.T) {
	f := newStubFetcher()
	f.bodies["p1.xlsx"] = workbookBytes(t, "Calc", "DATAIN")
	f.bodies["fields.json"] = []byte(`{"processes":[{"processId":"P1","processNo":"1","processName":"Cutting","Operator":"Ann"}]}`)
	svc := NewWorkbookService(f, nil, nil, nil, Options{Marker: "DATAIN"})

	res, err := svc.Aggregate(context.Background(), domain.AggregateRequest{
		Sources:   []domain.SourceEntry{{Location: "p1.xlsx", RenameHint: "Proc1", ProcessID: "P1", ProcessNo: "1"}},
		FieldData: "fields.json",
	})
	require.NoError(t, err)

	out := decode(t, res.Data)
	assert.Equal(t, []string{"Proc1_Calc", "Proc1_DATAIN"}, out.SheetNames())
	v, err := out.GetCell("Proc1_DATAIN", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, workbook.Text("Operator"), v)
	v, err = out.GetCell("Proc1_DATAIN", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, workbook.Text("Ann"), v)
}

type payloadProvider struct {
	ref string
}

func (p *payloadProvider) Load(_ context.Context, ref string) (*fielddata.Payload, error) {
	p.ref = ref
	return &fielddata.Payload{Records: []fielddata.Record{{ProcessID: "P1", ProcessNo: "1", ProcessName: "Cut"}}}, nil
}

func TestAggregate_FieldDataFromDatastore(t *testing.T) {
	f := newStubFetcher()
	f.bodies["p1.xlsx"] = workbookBytes(t, "DATAIN")
	ds := &payloadProvider{}
	svc := NewWorkbookService(f, ds, nil, nil, Options{})

	res, err := svc.Aggregate(context.Background(), domain.AggregateRequest{
		Sources:   []domain.SourceEntry{{Location: "p1.xlsx", ProcessID: "P1", ProcessNo: "1"}},
		FieldData: "datastore:P1",
	})
	require.NoError(t, err)
	assert.Equal(t, "datastore:P1", ds.ref)
	for _, d := range res.Report.Diagnostics {
		assert.NotEqual(t, sheetmerge.DiagNoFieldRecord, d.Code)
	}
}

func TestAggregate_Cancelled(t *testing.T) {
	f := newStubFetcher()
	f.bodies["a.xlsx"] = workbookBytes(t, "A")
	svc := NewWorkbookService(f, nil, nil, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Aggregate(ctx, domain.AggregateRequest{Sources: []domain.SourceEntry{{Location: "a.xlsx"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreview(t *testing.T) {
	doc := workbook.New()
	s, err := doc.AddSheet("Calc")
	require.NoError(t, err)
	s.SetCell(0, 0, workbook.Number(4), doc.DefaultStyle)
	s.SetCell(0, 1, workbook.Formula("A1*10", nil), doc.DefaultStyle)
	_, err = doc.AddSheet("Other")
	require.NoError(t, err)
	data, err := doc.Bytes()
	require.NoError(t, err)

	f := newStubFetcher()
	f.bodies["calc.xlsx"] = data
	svc := NewWorkbookService(f, nil, nil, nil, Options{})
	ctx := context.Background()

	page, err := svc.Preview(ctx, domain.PreviewRequest{Location: "calc.xlsx"})
	require.NoError(t, err)
	assert.Contains(t, page, `data-sheet="Calc"`)
	assert.NotContains(t, page, ">40</td>")

	page, err = svc.Preview(ctx, domain.PreviewRequest{Location: "calc.xlsx", Sheet: "Calc", Recalculate: true})
	require.NoError(t, err)
	assert.Contains(t, page, ">40</td>")

	_, err = svc.Preview(ctx, domain.PreviewRequest{Location: "calc.xlsx", Sheet: "Nope"})
	assert.ErrorIs(t, err, workbook.ErrSheetNotFound)

	_, err = svc.Preview(ctx, domain.PreviewRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	page, err = svc.PreviewUpload(ctx, data, "Other", false)
	require.NoError(t, err)
	assert.Contains(t, page, `data-sheet="Other"`)

	_, err = svc.PreviewUpload(ctx, []byte("junk"), "", false)
	assert.ErrorIs(t, err, workbook.ErrInvalidPackage)

	names, err := svc.SheetNames(ctx, "calc.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Calc", "Other"}, names)

	_, err = svc.SheetNames(ctx, "gone.xlsx")
	assert.True(t, errors.Is(err, source.ErrFetchFailed))
}

func TestSearchRuns_Disabled(t *testing.T) {
	svc := NewWorkbookService(newStubFetcher(), nil, nil, nil, Options{})
	_, err := svc.SearchRuns(context.Background(), "x", 0)
	assert.ErrorIs(t, err, ErrSearchDisabled)

	runs, err := svc.Runs(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
