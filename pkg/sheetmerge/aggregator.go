// Package sheetmerge combines sheets from independently authored workbooks
// into one document. Sheet names are made unique, styles are interned,
// and formulas follow the sheets they reference when those are renamed.
package sheetmerge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/locvowork/sheet_aggregator/pkg/fielddata"
	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

// DefaultFieldSheetMarker identifies the field sheet of a source workbook.
const DefaultFieldSheetMarker = "DATAIN"

// ErrNoSources is returned when not a single source could be merged.
var ErrNoSources = errors.New("no source workbook could be aggregated")

// Source is one entry of an aggregation request, in output order.
type Source struct {
	// Label identifies the source in logs and reports, usually its location.
	Label string
	Doc   *workbook.Document
	// Err is set when the source could not be fetched or decoded; the
	// entry is then skipped.
	Err error

	RenameHint     string
	DuplicateIndex int
	ProcessID      string
	ProcessNo      string
	FieldData      *fielddata.Payload
}

// Diagnostic codes
const (
	DiagColorMiss     = "color-miss"
	DiagNoFieldSheet  = "no-field-sheet"
	DiagNoFieldRecord = "no-field-record"
)

type SheetReport struct {
	Source            int    `json:"source"`
	Original          string `json:"original,omitempty"`
	Name              string `json:"name"`
	FieldSheet        bool   `json:"field_sheet"`
	Rows              int    `json:"rows,omitempty"` // field sheets only
	Cells             int    `json:"cells"`
	FormulasRewritten int    `json:"formulas_rewritten"`
}

type SkippedSource struct {
	Source int    `json:"source"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

type Diagnostic struct {
	Source  int    `json:"source"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report describes what an aggregation produced and what it degraded.
type Report struct {
	Sheets      []SheetReport   `json:"sheets"`
	Skipped     []SkippedSource `json:"skipped"`
	Diagnostics []Diagnostic    `json:"diagnostics"`
	// Styles is the number of distinct styles in the output.
	Styles int `json:"styles"`
}

// Merged returns how many sources contributed sheets.
func (r *Report) Merged() int {
	seen := make(map[int]bool)
	for _, s := range r.Sheets {
		seen[s.Source] = true
	}
	return len(seen)
}

type Option func(*Aggregator)

// WithFieldSheetMarker sets the substring that identifies field sheets.
func WithFieldSheetMarker(marker string) Option {
	return func(a *Aggregator) {
		if marker != "" {
			a.marker = marker
		}
	}
}

// WithNamingPolicy replaces DefaultNaming.
func WithNamingPolicy(p NamingPolicy) Option {
	return func(a *Aggregator) {
		if p != nil {
			a.naming = p
		}
	}
}

// Aggregator is stateless between runs and safe for concurrent use; each
// Aggregate call builds its own document and interner.
type Aggregator struct {
	marker string
	naming NamingPolicy
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{marker: DefaultFieldSheetMarker, naming: DefaultNaming{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Aggregate merges sources in order into a new document. Failed sources
// are skipped and reported; the call fails only when nothing was merged
// or ctx is cancelled.
func (a *Aggregator) Aggregate(ctx context.Context, sources []Source) (*workbook.Document, *Report, error) {
	log := zerolog.Ctx(ctx)
	out := workbook.New()
	in := NewInterner(out)
	names := newNameSet()
	rep := &Report{}

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		if src.Err != nil || src.Doc == nil {
			reason := "no document"
			if src.Err != nil {
				reason = src.Err.Error()
			}
			rep.Skipped = append(rep.Skipped, SkippedSource{Source: i, Label: src.Label, Reason: reason})
			log.Warn().Int("source", i).Str("label", src.Label).Str("reason", reason).Msg("skipping source workbook")
			continue
		}
		a.mergeSource(ctx, i, src, out, in, names, rep)
	}

	if len(rep.Sheets) == 0 {
		return nil, rep, fmt.Errorf("%w: %d of %d sources failed", ErrNoSources, len(rep.Skipped), len(sources))
	}
	rep.Styles = in.Len()
	log.Info().
		Int("sources", len(sources)).
		Int("skipped", len(rep.Skipped)).
		Int("sheets", len(rep.Sheets)).
		Int("styles", rep.Styles).
		Msg("aggregation finished")
	return out, rep, nil
}

// FieldSheet returns the first sheet of doc whose name contains the
// marker, ignoring case.
func (a *Aggregator) FieldSheet(doc *workbook.Document) *workbook.Sheet {
	marker := strings.ToLower(a.marker)
	for _, s := range doc.Sheets() {
		if strings.Contains(strings.ToLower(s.Name), marker) {
			return s
		}
	}
	return nil
}

type sheetPlan struct {
	src  *workbook.Sheet
	name string
}

func (a *Aggregator) mergeSource(ctx context.Context, idx int, src Source, out *workbook.Document, in *Interner, names nameSet, rep *Report) {
	log := zerolog.Ctx(ctx).With().Int("source", idx).Str("label", src.Label).Logger()
	diag := func(code, format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		rep.Diagnostics = append(rep.Diagnostics, Diagnostic{Source: idx, Code: code, Message: msg})
		log.Debug().Str("code", code).Msg(msg)
	}

	// The field sheet name is settled first: copied formulas point at it.
	fieldSheet := a.FieldSheet(src.Doc)
	fieldName := names.claim(a.naming.FieldSheetName(a.marker, src))
	renames := make(map[string]string)
	if fieldSheet != nil {
		renames[fieldSheet.Name] = fieldName
	} else {
		diag(DiagNoFieldSheet, "no sheet name contains %q", a.marker)
	}

	plans := make([]sheetPlan, 0, len(src.Doc.Sheets()))
	for _, s := range src.Doc.Sheets() {
		if s == fieldSheet {
			continue
		}
		name := names.claim(a.naming.SheetName(s.Name, src))
		renames[s.Name] = name
		plans = append(plans, sheetPlan{src: s, name: name})
	}

	scope := in.Scope(src.Doc)
	for _, p := range plans {
		dst, err := out.AddSheet(p.name)
		if err != nil {
			// claim guarantees a valid, unused name
			diag("add-sheet", "%v", err)
			continue
		}
		cells, rewritten := copySheet(p.src, dst, scope, renames)
		rep.Sheets = append(rep.Sheets, SheetReport{
			Source: idx, Original: p.src.Name, Name: p.name, Cells: cells, FormulasRewritten: rewritten,
		})
	}

	records := src.FieldData.Match(src.ProcessID, src.ProcessNo)
	if src.FieldData != nil && len(records) == 0 {
		diag(DiagNoFieldRecord, "no field record for process %q number %q", src.ProcessID, src.ProcessNo)
	}
	dst, err := out.AddSheet(fieldName)
	if err != nil {
		diag("add-sheet", "%v", err)
		return
	}
	rows, cells := writeFieldSheet(dst, records, in)
	fieldReport := SheetReport{Source: idx, Name: fieldName, FieldSheet: true, Rows: rows, Cells: cells}
	if fieldSheet != nil {
		fieldReport.Original = fieldSheet.Name
	}
	rep.Sheets = append(rep.Sheets, fieldReport)

	if n := scope.Misses(); n > 0 {
		diag(DiagColorMiss, "%d colors did not resolve and were left unset", n)
	}
}

// copySheet copies layout, cells and merged regions. Blank cells are kept
// only when their style is visible, since borders of empty cells belong
// to the grid.
func copySheet(src, dst *workbook.Sheet, scope *Scope, renames map[string]string) (cells, rewritten int) {
	dst.DefaultRowHeight = src.DefaultRowHeight
	for _, col := range src.Columns() {
		layout, _ := src.Column(col)
		dst.SetColumn(col, layout)
	}
	for _, row := range src.Rows() {
		drow := dst.EnsureRow(row.Index)
		drow.Height = row.Height
		drow.Hidden = row.Hidden
		for _, c := range row.Cells() {
			if c.Value.IsEmpty() && c.Style.IsDefault() {
				continue
			}
			v := c.Value
			if v.Cached != nil {
				cached := *v.Cached
				v.Cached = &cached
			}
			if v.Kind == workbook.KindFormula {
				if text, changed := Relocate(v.Formula, renames); changed {
					v.Formula = text
					rewritten++
				}
			}
			dst.SetCell(row.Index, c.Col, v, scope.Style(c.Style))
			cells++
		}
	}
	for _, m := range src.MergedRegions() {
		// regions were validated when the source was built
		_ = dst.AddMergedRegion(m)
	}
	return cells, rewritten
}
