package workbook

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// excelize border style ids
var borderStyleIDs = map[BorderKind]int{
	BorderThin:   1,
	BorderMedium: 2,
	BorderDashed: 3,
	BorderDotted: 4,
	BorderThick:  5,
	BorderDouble: 6,
}

// excelize pattern fill ids, in SpreadsheetML patternType order
var patternIDs = map[string]int{
	"solid":           1,
	"mediumGray":      2,
	"darkGray":        3,
	"lightGray":       4,
	"darkHorizontal":  5,
	"darkVertical":    6,
	"darkDown":        7,
	"darkUp":          8,
	"darkGrid":        9,
	"darkTrellis":     10,
	"lightHorizontal": 11,
	"lightVertical":   12,
	"lightDown":       13,
	"lightUp":         14,
	"lightGrid":       15,
	"lightTrellis":    16,
	"gray125":         17,
	"gray0625":        18,
}

// ColorFunc turns a model color into an excelize hex color; ok is false
// when the color should be left unset. Encode needs one because indexed
// and themed colors must be resolved against the owning document.
type ColorFunc func(Color, *Document) (hex string, ok bool)

// rgbOnly keeps explicit RGB colors and drops everything else.
func rgbOnly(c Color, _ *Document) (string, bool) {
	if c.Kind != ColorRGB {
		return "", false
	}
	return c.RGB.String(), true
}

// EncodeOption configures Encode.
type EncodeOption func(*encoder)

// WithColorFunc sets the color conversion used for fonts, fills and borders.
func WithColorFunc(fn ColorFunc) EncodeOption {
	return func(e *encoder) {
		if fn != nil {
			e.color = fn
		}
	}
}

type encoder struct {
	doc    *Document
	file   *excelize.File
	color  ColorFunc
	styles map[*Style]int
}

// Encode writes doc into a new excelize file. Every distinct *Style is
// registered once; cells that share a Style share the resulting style id.
// Sheets are written through the stream writer so formula cells keep a
// correctly typed cached result; the streamed package is then reopened so
// the returned file supports reads and calculation. The caller owns the
// returned file and must Close it.
func Encode(doc *Document, opts ...EncodeOption) (*excelize.File, error) {
	if len(doc.sheets) == 0 {
		return nil, ErrNoSheets
	}
	e := &encoder{doc: doc, file: excelize.NewFile(), color: rgbOnly, styles: make(map[*Style]int)}
	for _, o := range opts {
		o(e)
	}
	err := e.encode()
	if err != nil {
		e.file.Close()
		return nil, err
	}
	buf, err := e.file.WriteToBuffer()
	e.file.Close()
	if err != nil {
		return nil, fmt.Errorf("write package: %w", err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		return nil, fmt.Errorf("reopen package: %w", err)
	}
	for _, s := range doc.sheets {
		if err := encodeColumns(f, s); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %w", s.Name, err)
		}
	}
	return f, nil
}

// WriteTo encodes doc and writes the package bytes to w.
func (d *Document) WriteTo(w io.Writer, opts ...EncodeOption) (int64, error) {
	f, err := Encode(d, opts...)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return 0, fmt.Errorf("write package: %w", err)
	}
	return buf.WriteTo(w)
}

// Bytes encodes doc into package bytes.
func (d *Document) Bytes(opts ...EncodeOption) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *encoder) encode() error {
	const placeholder = "Sheet1"
	keepPlaceholder := false
	for i, s := range e.doc.sheets {
		if s.Name == placeholder {
			keepPlaceholder = true
		}
		idx, err := e.file.NewSheet(s.Name)
		if err != nil {
			return fmt.Errorf("create sheet %q: %w", s.Name, err)
		}
		if i == 0 {
			e.file.SetActiveSheet(idx)
		}
	}
	if !keepPlaceholder {
		e.file.DeleteSheet(placeholder)
	}
	for _, s := range e.doc.sheets {
		if err := e.encodeSheet(s); err != nil {
			return fmt.Errorf("sheet %q: %w", s.Name, err)
		}
	}
	return nil
}

func (e *encoder) encodeSheet(s *Sheet) error {
	sw, err := e.file.NewStreamWriter(s.Name)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}
	for _, row := range s.Rows() {
		if err := e.encodeRow(sw, row); err != nil {
			return fmt.Errorf("row %d: %w", row.Index+1, err)
		}
	}
	for _, m := range s.merges {
		from, err := excelize.CoordinatesToCellName(m.FirstCol+1, m.FirstRow+1)
		if err != nil {
			return err
		}
		to, err := excelize.CoordinatesToCellName(m.LastCol+1, m.LastRow+1)
		if err != nil {
			return err
		}
		if err := sw.MergeCell(from, to); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush stream: %w", err)
	}
	return nil
}

// encodeRow streams one row. Rows arrive in ascending order, which the
// stream writer requires.
func (e *encoder) encodeRow(sw *excelize.StreamWriter, row *Row) error {
	cells := row.Cells()
	first := 0
	if len(cells) > 0 {
		first = cells[0].Col
	}
	var values []interface{}
	if len(cells) > 0 {
		values = make([]interface{}, cells[len(cells)-1].Col-first+1)
	}
	for _, c := range cells {
		cell, err := e.streamCell(c)
		if err != nil {
			return err
		}
		values[c.Col-first] = cell
	}
	ref, err := excelize.CoordinatesToCellName(first+1, row.Index+1)
	if err != nil {
		return err
	}
	return sw.SetRow(ref, values, excelize.RowOpts{Height: row.Height, Hidden: row.Hidden})
}

func (e *encoder) streamCell(c *Cell) (excelize.Cell, error) {
	var out excelize.Cell
	switch v := c.Value; v.Kind {
	case KindFormula:
		out.Formula = v.Formula
		if v.Cached != nil {
			out.Value = scalar(*v.Cached)
		}
	default:
		out.Value = scalar(v)
	}
	if c.Style == nil || c.Style == e.doc.DefaultStyle {
		return out, nil
	}
	id, err := e.styleID(c.Style)
	if err != nil {
		return out, err
	}
	out.StyleID = id
	return out, nil
}

// scalar maps a non-formula value onto the Go type the stream writer
// types it by. Error codes are written as text; Decode recognizes them
// again on formula results.
func scalar(v Value) interface{} {
	switch v.Kind {
	case KindNumber:
		return v.Number
	case KindBoolean:
		return v.Bool
	case KindText, KindError:
		return v.Text
	}
	return nil
}

// encodeColumns writes widths in runs of equal layout so that a width
// declared over thousands of columns stays one call.
func encodeColumns(f *excelize.File, s *Sheet) error {
	cols := s.Columns()
	for i := 0; i < len(cols); {
		start := cols[i]
		layout := s.columns[start]
		j := i + 1
		for j < len(cols) && cols[j] == cols[j-1]+1 && s.columns[cols[j]] == layout {
			j++
		}
		end := cols[j-1]
		first, err := excelize.ColumnNumberToName(start + 1)
		if err != nil {
			return err
		}
		last, err := excelize.ColumnNumberToName(end + 1)
		if err != nil {
			return err
		}
		if layout.Width > 0 {
			if err := f.SetColWidth(s.Name, first, last, layout.Width); err != nil {
				return err
			}
		}
		if layout.Hidden {
			if err := f.SetColVisible(s.Name, first+":"+last, false); err != nil {
				return err
			}
		}
		i = j
	}
	return nil
}

func (e *encoder) styleID(s *Style) (int, error) {
	if id, ok := e.styles[s]; ok {
		return id, nil
	}
	id, err := e.file.NewStyle(e.excelizeStyle(s))
	if err != nil {
		return 0, fmt.Errorf("register style: %w", err)
	}
	e.styles[s] = id
	return id, nil
}

func (e *encoder) excelizeStyle(s *Style) *excelize.Style {
	out := &excelize.Style{}
	if ft := s.Font; ft != nil {
		font := &excelize.Font{
			Bold:   ft.Bold,
			Italic: ft.Italic,
			Strike: ft.Strike,
			Family: ft.Name,
			Size:   ft.Size,
		}
		if ft.Underline {
			font.Underline = "single"
		}
		if hex, ok := e.color(ft.Color, e.doc); ok {
			font.Color = hex
		}
		out.Font = font
	}
	if id, ok := patternIDs[s.Fill.Pattern]; ok {
		fill := excelize.Fill{Type: "pattern", Pattern: id}
		if hex, ok := e.color(s.Fill.Fg, e.doc); ok {
			fill.Color = []string{hex}
		}
		out.Fill = fill
	}
	sides := []struct {
		name string
		side BorderSide
	}{
		{"left", s.Border.Left},
		{"right", s.Border.Right},
		{"top", s.Border.Top},
		{"bottom", s.Border.Bottom},
	}
	for _, sd := range sides {
		id, ok := borderStyleIDs[sd.side.Kind]
		if !ok {
			continue
		}
		b := excelize.Border{Type: sd.name, Style: id}
		if hex, ok := e.color(sd.side.Color, e.doc); ok {
			b.Color = hex
		}
		out.Border = append(out.Border, b)
	}
	if a := s.Alignment; a != (Alignment{}) {
		out.Alignment = &excelize.Alignment{Horizontal: a.Horizontal, Vertical: a.Vertical, WrapText: a.Wrap}
	}
	if s.NumFmt != "" {
		if id, ok := BuiltInNumFmtID(s.NumFmt); ok {
			out.NumFmt = id
		} else {
			code := s.NumFmt
			out.CustomNumFmt = &code
		}
	}
	return out
}
