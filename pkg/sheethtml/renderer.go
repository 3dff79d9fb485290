// Package sheethtml renders one sheet of a workbook document as a
// self-contained HTML table with inline styles.
package sheethtml

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

const (
	// column width units are converted at 7px per character plus padding
	pxPerWidthUnit = 7
	widthPaddingPx = 5
	pxPerPoint     = 4.0 / 3.0
)

type Option func(*Renderer)

// WithTitle sets the document title; the sheet name is used otherwise.
func WithTitle(title string) Option {
	return func(r *Renderer) { r.title = title }
}

// WithoutGroupHeaders disables widening of lone first-column labels.
func WithoutGroupHeaders() Option {
	return func(r *Renderer) { r.groupHeaders = false }
}

// WithGridlines draws light cell borders beneath the sheet's own.
func WithGridlines(on bool) Option {
	return func(r *Renderer) { r.gridlines = on }
}

// Renderer is immutable after construction and safe for concurrent use.
type Renderer struct {
	title        string
	groupHeaders bool
	gridlines    bool
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{groupHeaders: true}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RenderString renders sheetName of doc into a string.
func (r *Renderer) RenderString(doc *workbook.Document, sheetName string) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, doc, sheetName); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render writes sheetName of doc to w as an HTML document.
func (r *Renderer) Render(w io.Writer, doc *workbook.Document, sheetName string) error {
	sheet, ok := doc.Sheet(sheetName)
	if !ok {
		return fmt.Errorf("%w: %q", workbook.ErrSheetNotFound, sheetName)
	}

	title := r.title
	if title == "" {
		title = sheet.Name
	}
	p := &page{doc: doc, sheet: sheet, r: r, maxCol: sheet.MaxColumn()}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(title))
	buf.WriteString("<style>\n")
	buf.WriteString("table.sheet{border-collapse:collapse;table-layout:fixed}\n")
	buf.WriteString("table.sheet td{padding:0 3px;overflow:hidden;font-family:Calibri,sans-serif;font-size:11pt}\n")
	if r.gridlines {
		buf.WriteString("table.sheet td{border:1px solid #d4d4d4}\n")
	}
	buf.WriteString("</style>\n</head>\n<body>\n")
	fmt.Fprintf(&buf, "<table class=\"sheet\" data-sheet=\"%s\">\n", html.EscapeString(sheet.Name))
	p.colgroup(&buf)
	buf.WriteString("<tbody>\n")
	for row := 0; row <= sheet.LastRow(); row++ {
		p.row(&buf, row)
	}
	buf.WriteString("</tbody>\n</table>\n</body>\n</html>\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// page holds the per-render state of one sheet.
type page struct {
	r      *Renderer
	doc    *workbook.Document
	sheet  *workbook.Sheet
	maxCol int
}

func (p *page) colgroup(buf *bytes.Buffer) {
	if p.maxCol == 0 {
		return
	}
	buf.WriteString("<colgroup>")
	for col := 0; col < p.maxCol; col++ {
		width := workbook.DefaultColumnWidth
		layout, ok := p.sheet.Column(col)
		if ok && layout.Width > 0 {
			width = layout.Width
		}
		fmt.Fprintf(buf, "<col style=\"width:%spx", formatPx(width*pxPerWidthUnit+widthPaddingPx))
		if ok && layout.Hidden {
			buf.WriteString(";display:none")
		}
		buf.WriteString("\">")
	}
	buf.WriteString("</colgroup>\n")
}

func (p *page) rowHeight(r *workbook.Row) float64 {
	if r != nil && r.Height > 0 {
		return r.Height
	}
	if p.sheet.DefaultRowHeight > 0 {
		return p.sheet.DefaultRowHeight
	}
	return workbook.DefaultRowHeight
}

func (p *page) row(buf *bytes.Buffer, index int) {
	r := p.sheet.Row(index)
	fmt.Fprintf(buf, "<tr data-row=\"%d\" style=\"height:%spx", index, formatPx(p.rowHeight(r)*pxPerPoint))
	if r != nil && r.Hidden {
		buf.WriteString(";display:none")
	}
	buf.WriteString("\">")

	for col := 0; col < p.maxCol; {
		if region, ok := p.sheet.MergedRegionContaining(index, col); ok {
			if region.IsAnchor(index, col) {
				p.td(buf, index, col, tdSpan{rows: region.RowSpan(), cols: region.ColSpan()})
			}
			col++
			continue
		}
		if col == 0 && p.r.groupHeaders {
			if k, ok := p.groupHeaderSpan(index); ok {
				p.td(buf, index, 0, tdSpan{cols: k, heuristic: true})
				col = k
				continue
			}
		}
		p.td(buf, index, col, tdSpan{})
		col++
	}
	buf.WriteString("</tr>\n")
}

// groupHeaderSpan detects a row whose only leading content is a label in
// the first column followed by blank cells. The label then spans up to the
// next populated column, or to the end of the table.
func (p *page) groupHeaderSpan(row int) (int, bool) {
	if p.empty(row, 0) {
		return 0, false
	}
	k := p.maxCol
	for col := 1; col < p.maxCol; col++ {
		if !p.empty(row, col) {
			k = col
			break
		}
		if _, merged := p.sheet.MergedRegionContaining(row, col); merged {
			return 0, false
		}
	}
	if k-1 < 1 {
		return 0, false
	}
	return k, true
}

func (p *page) empty(row, col int) bool {
	c := p.sheet.Cell(row, col)
	return c == nil || c.Value.IsEmpty()
}

type tdSpan struct {
	rows, cols int
	heuristic  bool
}

func (p *page) td(buf *bytes.Buffer, row, col int, span tdSpan) {
	fmt.Fprintf(buf, "<td data-row=\"%d\" data-col=\"%d\"", row, col)
	if span.rows > 1 {
		fmt.Fprintf(buf, " rowspan=\"%d\"", span.rows)
	}
	if span.cols > 1 {
		fmt.Fprintf(buf, " colspan=\"%d\"", span.cols)
	}
	if span.heuristic {
		buf.WriteString(" data-span=\"heuristic\"")
	}

	c := p.sheet.Cell(row, col)
	var css []string
	if c != nil {
		style := c.Style
		if style == nil {
			style = p.doc.DefaultStyle
		}
		var right *workbook.BorderSide
		if span.heuristic {
			// the outer right edge belongs to the last spanned cell
			side := workbook.BorderSide{}
			if last := p.sheet.Cell(row, col+span.cols-1); last != nil && last.Style != nil {
				side = last.Style.Border.Right
			}
			right = &side
		}
		css = cellCSS(p.doc, style, right)
	}
	if p.columnHidden(col) {
		css = append(css, "display:none")
	}
	if len(css) > 0 {
		// declarations are built from sanitized parts only
		fmt.Fprintf(buf, " style=\"%s\"", strings.Join(css, ";"))
	}
	buf.WriteString(">")
	if c != nil {
		buf.WriteString(cellText(c))
	}
	buf.WriteString("</td>")
}

func (p *page) columnHidden(col int) bool {
	layout, ok := p.sheet.Column(col)
	return ok && layout.Hidden
}

// formatPx prints a pixel length with at most two decimals.
func formatPx(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
