// Package workbook is the in-memory spreadsheet model shared by the
// aggregator and the HTML renderer, together with the package codec that
// reads and writes .xlsx files.
package workbook

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"
)

// MaxSheetNameLength is the longest sheet name a spreadsheet package accepts.
const MaxSheetNameLength = 31

// DefaultRowHeight is the height in points used for rows without an
// explicit height.
const DefaultRowHeight = 15.0

// DefaultColumnWidth is the width in characters of columns without an
// explicit width.
const DefaultColumnWidth = 8.43

var (
	ErrDuplicateName     = errors.New("duplicate sheet name")
	ErrInvalidSheetName  = errors.New("invalid sheet name")
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrOverlappingRegion = errors.New("merged region overlaps an existing region")
	ErrInvalidRegion     = errors.New("invalid merged region")
	ErrNoSheets          = errors.New("document has no sheets")
)

// Document is an ordered set of sheets together with the styles and fonts
// their cells refer to. A Document is built for one request and is not safe
// for concurrent mutation.
type Document struct {
	sheets []*Sheet
	byName map[string]*Sheet

	Styles []*Style
	Fonts  []*Font
	// DefaultStyle is the style of cells that carry no explicit style.
	DefaultStyle *Style
	// Theme is nil when the package has no theme part.
	Theme *Theme
	// Palette replaces the legacy indexed palette when the package defines
	// its own indexedColors table.
	Palette []RGB
}

// New returns an empty document with a Calibri 11 default style. The
// default font has no color, so it renders in the viewer's text color.
func New() *Document {
	d := &Document{byName: make(map[string]*Sheet)}
	font := d.AddFont(Font{Name: "Calibri", Size: 11})
	d.DefaultStyle = d.AddStyle(&Style{Font: font})
	return d
}

// AddSheet appends a sheet. The name must be unique within the document;
// callers that merge documents resolve collisions beforehand.
func (d *Document) AddSheet(name string) (*Sheet, error) {
	if name == "" || utf8.RuneCountInString(name) > MaxSheetNameLength {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSheetName, name)
	}
	if _, ok := d.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	s := newSheet(name)
	d.sheets = append(d.sheets, s)
	d.byName[name] = s
	return s, nil
}

// Sheet looks up a sheet by its exact, case-sensitive name.
func (d *Document) Sheet(name string) (*Sheet, bool) {
	s, ok := d.byName[name]
	return s, ok
}

// Sheets returns the sheets in document order.
func (d *Document) Sheets() []*Sheet {
	return d.sheets
}

func (d *Document) SheetNames() []string {
	names := make([]string, len(d.sheets))
	for i, s := range d.sheets {
		names[i] = s.Name
	}
	return names
}

// HasSheet reports whether name is taken.
func (d *Document) HasSheet(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// GetCell returns the value at (row, col); absent cells are Empty.
func (d *Document) GetCell(sheet string, row, col int) (Value, error) {
	s, ok := d.byName[sheet]
	if !ok {
		return Empty, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	if c := s.Cell(row, col); c != nil {
		return c.Value, nil
	}
	return Empty, nil
}

// SetCell stores a value and style at (row, col). A nil style means the
// document default.
func (d *Document) SetCell(sheet string, row, col int, v Value, style *Style) error {
	s, ok := d.byName[sheet]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	if style == nil {
		style = d.DefaultStyle
	}
	s.SetCell(row, col, v, style)
	return nil
}

// AddStyle appends s to the style table and returns it.
func (d *Document) AddStyle(s *Style) *Style {
	d.Styles = append(d.Styles, s)
	return s
}

// AddFont appends a copy of f to the font table and returns it.
func (d *Document) AddFont(f Font) *Font {
	p := &f
	d.Fonts = append(d.Fonts, p)
	return p
}

// Cell is one populated coordinate of a sheet.
type Cell struct {
	Row, Col int
	Value    Value
	Style    *Style
}

// Row is a sparse set of cells with optional layout attributes.
type Row struct {
	Index int
	// Height in points; zero means the sheet default.
	Height float64
	Hidden bool
	cells  map[int]*Cell
}

// Cell returns the cell at col or nil.
func (r *Row) Cell(col int) *Cell {
	return r.cells[col]
}

// Cells returns the row's cells ordered by column.
func (r *Row) Cells() []*Cell {
	out := make([]*Cell, 0, len(r.cells))
	for _, c := range r.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Col < out[j].Col })
	return out
}

// Len returns the number of populated cells.
func (r *Row) Len() int { return len(r.cells) }

// LastCol returns the highest populated column, or -1 for an empty row.
func (r *Row) LastCol() int {
	last := -1
	for col := range r.cells {
		if col > last {
			last = col
		}
	}
	return last
}

// Column carries per-column layout.
type Column struct {
	// Width in characters; zero means the sheet default.
	Width  float64
	Hidden bool
}

// Sheet is a named grid of sparse rows plus its merged regions.
type Sheet struct {
	Name string
	// DefaultRowHeight in points applies to rows without a height.
	DefaultRowHeight float64

	rows    map[int]*Row
	columns map[int]Column
	merges  []MergedRegion
	// coverage maps every coordinate inside a merged region to the index
	// of that region in merges. Rebuilt lazily after AddMergedRegion.
	coverage map[[2]int]int
}

func newSheet(name string) *Sheet {
	return &Sheet{
		Name:             name,
		DefaultRowHeight: DefaultRowHeight,
		rows:             make(map[int]*Row),
		columns:          make(map[int]Column),
	}
}

// Row returns the row at index or nil when absent.
func (s *Sheet) Row(index int) *Row {
	return s.rows[index]
}

// EnsureRow returns the row at index, creating it when absent.
func (s *Sheet) EnsureRow(index int) *Row {
	r, ok := s.rows[index]
	if !ok {
		r = &Row{Index: index, cells: make(map[int]*Cell)}
		s.rows[index] = r
	}
	return r
}

// Rows returns the populated rows ordered by index.
func (s *Sheet) Rows() []*Row {
	out := make([]*Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Cell returns the cell at (row, col) or nil.
func (s *Sheet) Cell(row, col int) *Cell {
	if r := s.rows[row]; r != nil {
		return r.cells[col]
	}
	return nil
}

// Value returns the value at (row, col); absent cells are Empty.
func (s *Sheet) Value(row, col int) Value {
	if c := s.Cell(row, col); c != nil {
		return c.Value
	}
	return Empty
}

// SetCell stores v with style at (row, col), replacing any previous cell.
func (s *Sheet) SetCell(row, col int, v Value, style *Style) *Cell {
	r := s.EnsureRow(row)
	c := &Cell{Row: row, Col: col, Value: v, Style: style}
	r.cells[col] = c
	return c
}

// SetColumn records layout for a column.
func (s *Sheet) SetColumn(col int, c Column) {
	s.columns[col] = c
}

// Column returns the layout of col; ok is false when nothing was recorded.
func (s *Sheet) Column(col int) (Column, bool) {
	c, ok := s.columns[col]
	return c, ok
}

// Columns returns the indexes of columns with recorded layout, ascending.
func (s *Sheet) Columns() []int {
	out := make([]int, 0, len(s.columns))
	for col := range s.columns {
		out = append(out, col)
	}
	sort.Ints(out)
	return out
}

// LastRow returns the highest populated row index, or -1.
func (s *Sheet) LastRow() int {
	last := -1
	for idx := range s.rows {
		if idx > last {
			last = idx
		}
	}
	for _, m := range s.merges {
		if m.LastRow > last {
			last = m.LastRow
		}
	}
	return last
}

// MaxColumn returns one past the highest column index used by any row or
// merged region.
func (s *Sheet) MaxColumn() int {
	max := 0
	for _, r := range s.rows {
		if c := r.LastCol() + 1; c > max {
			max = c
		}
	}
	for _, m := range s.merges {
		if m.LastCol+1 > max {
			max = m.LastCol + 1
		}
	}
	return max
}
