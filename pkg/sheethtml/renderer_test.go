package sheethtml

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

// tdAt returns the opening tag of the td at (row, col), or "" when the
// cell was not rendered.
func tdAt(page string, row, col int) string {
	re := regexp.MustCompile(fmt.Sprintf(`<td data-row="%d" data-col="%d"[^>]*>`, row, col))
	return re.FindString(page)
}

// tdContent returns the inner text of the td at (row, col).
func tdContent(page string, row, col int) string {
	re := regexp.MustCompile(fmt.Sprintf(`<td data-row="%d" data-col="%d"[^>]*>(.*?)</td>`, row, col))
	m := re.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	return m[1]
}

func newSheet(t *testing.T) (*workbook.Document, *workbook.Sheet) {
	t.Helper()
	doc := workbook.New()
	s, err := doc.AddSheet("Report")
	require.NoError(t, err)
	return doc, s
}

func TestRender_SheetNotFound(t *testing.T) {
	doc, _ := newSheet(t)
	_, err := NewRenderer().RenderString(doc, "Missing")
	assert.ErrorIs(t, err, workbook.ErrSheetNotFound)
}

func TestRender_Document(t *testing.T) {
	doc, s := newSheet(t)
	s.SetCell(0, 0, workbook.Text("a<b"), doc.DefaultStyle)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(WithTitle("Q3 & more")).Render(&buf, doc, "Report"))
	page := buf.String()

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, `<meta charset="utf-8">`)
	assert.Contains(t, page, "<title>Q3 &amp; more</title>")
	assert.Contains(t, page, "a&lt;b")
}

func TestRender_MergedRegion(t *testing.T) {
	doc, s := newSheet(t)
	s.SetCell(1, 1, workbook.Text("Merged"), doc.DefaultStyle)
	s.SetCell(3, 4, workbook.Text("tail"), doc.DefaultStyle)
	require.NoError(t, s.AddMergedRegion(workbook.MergedRegion{FirstRow: 1, LastRow: 2, FirstCol: 1, LastCol: 3}))

	page, err := NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)

	anchor := tdAt(page, 1, 1)
	require.NotEmpty(t, anchor)
	assert.Contains(t, anchor, `rowspan="2"`)
	assert.Contains(t, anchor, `colspan="3"`)
	assert.Equal(t, "Merged", tdContent(page, 1, 1))

	for _, rc := range [][2]int{{1, 2}, {1, 3}, {2, 1}, {2, 2}, {2, 3}} {
		assert.Empty(t, tdAt(page, rc[0], rc[1]), "covered cell %v rendered", rc)
	}
	assert.Equal(t, 1, strings.Count(page, `rowspan="2"`))
	// cells outside the region still render
	assert.NotEmpty(t, tdAt(page, 2, 0))
	assert.NotEmpty(t, tdAt(page, 2, 4))
}

func TestRender_GroupHeader(t *testing.T) {
	doc, s := newSheet(t)
	thin := workbook.BorderSide{Kind: workbook.BorderThin}
	boxed := doc.AddStyle(&workbook.Style{
		Font:   doc.DefaultStyle.Font,
		Border: workbook.Border{Left: thin, Right: thin, Top: thin, Bottom: thin},
	})
	s.SetCell(0, 0, workbook.Text("Header"), boxed)
	for col := 0; col < 6; col++ {
		s.SetCell(1, col, workbook.Number(float64(col)), doc.DefaultStyle)
	}

	page, err := NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)

	td := tdAt(page, 0, 0)
	assert.Contains(t, td, `colspan="6"`)
	assert.Contains(t, td, `data-span="heuristic"`)
	assert.Contains(t, td, "border-left:1px solid #000000")
	assert.NotContains(t, td, "border-right")
	assert.Equal(t, 1, strings.Count(page, `<td data-row="0"`))

	// a populated neighbour stops the span
	assert.NotContains(t, tdAt(page, 1, 0), "colspan")
}

func TestRender_GroupHeaderStopsAtNextValue(t *testing.T) {
	doc, s := newSheet(t)
	s.SetCell(0, 0, workbook.Text("Group"), doc.DefaultStyle)
	s.SetCell(0, 3, workbook.Text("x"), doc.DefaultStyle)

	page, err := NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)
	assert.Contains(t, tdAt(page, 0, 0), `colspan="3"`)
	assert.NotEmpty(t, tdAt(page, 0, 3))

	page, err = NewRenderer(WithoutGroupHeaders()).RenderString(doc, "Report")
	require.NoError(t, err)
	assert.NotContains(t, tdAt(page, 0, 0), "colspan")
	assert.NotEmpty(t, tdAt(page, 0, 1))
}

func TestRender_GroupHeaderBeforeMergedValue(t *testing.T) {
	doc, s := newSheet(t)
	s.SetCell(0, 0, workbook.Text("Header"), doc.DefaultStyle)
	s.SetCell(0, 3, workbook.Text("X"), doc.DefaultStyle)
	require.NoError(t, s.AddMergedRegion(workbook.MergedRegion{FirstRow: 0, LastRow: 0, FirstCol: 3, LastCol: 4}))

	page, err := NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)
	td := tdAt(page, 0, 0)
	assert.Contains(t, td, `colspan="3"`)
	assert.Contains(t, td, `data-span="heuristic"`)
	assert.Empty(t, tdAt(page, 0, 1))
	assert.Empty(t, tdAt(page, 0, 2))
	assert.Contains(t, tdAt(page, 0, 3), `colspan="2"`)
}

func TestRender_GroupHeaderBlockedByMergedGap(t *testing.T) {
	doc, s := newSheet(t)
	s.SetCell(0, 0, workbook.Text("Header"), doc.DefaultStyle)
	s.SetCell(0, 4, workbook.Text("X"), doc.DefaultStyle)
	require.NoError(t, s.AddMergedRegion(workbook.MergedRegion{FirstRow: 0, LastRow: 1, FirstCol: 2, LastCol: 2}))

	page, err := NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)
	assert.NotContains(t, tdAt(page, 0, 0), "colspan")
	assert.NotEmpty(t, tdAt(page, 0, 1))
}

func TestRender_GroupHeaderRightBorderFromLastCell(t *testing.T) {
	doc, s := newSheet(t)
	edge := doc.AddStyle(&workbook.Style{
		Font:   doc.DefaultStyle.Font,
		Border: workbook.Border{Right: workbook.BorderSide{Kind: workbook.BorderMedium, Color: workbook.RGBColor(0xFF, 0, 0)}},
	})
	s.SetCell(0, 0, workbook.Text("Group"), doc.DefaultStyle)
	s.SetCell(0, 2, workbook.Empty, edge)
	s.SetCell(1, 2, workbook.Text("x"), doc.DefaultStyle)

	page, err := NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)
	td := tdAt(page, 0, 0)
	assert.Contains(t, td, `colspan="3"`)
	assert.Contains(t, td, "border-right:2px solid #ff0000")
}

func TestRender_FormulaValues(t *testing.T) {
	doc, s := newSheet(t)
	cached := workbook.Number(42)
	failed := workbook.ErrorValue("#DIV/0!")
	s.SetCell(0, 0, workbook.Formula("SUM(B1:B2)", nil), doc.DefaultStyle)
	s.SetCell(0, 1, workbook.Formula("A1*2", &cached), doc.DefaultStyle)
	s.SetCell(0, 2, workbook.Formula("1/0", &failed), doc.DefaultStyle)
	s.SetCell(0, 3, workbook.ErrorValue("#N/A"), doc.DefaultStyle)

	page, err := NewRenderer(WithoutGroupHeaders()).RenderString(doc, "Report")
	require.NoError(t, err)

	assert.Equal(t, "", tdContent(page, 0, 0))
	assert.Equal(t, "42", tdContent(page, 0, 1))
	assert.Equal(t, "#ERROR", tdContent(page, 0, 2))
	assert.Equal(t, "#N/A", tdContent(page, 0, 3))
}

func TestRender_ValueFormatting(t *testing.T) {
	doc, s := newSheet(t)
	pct := doc.AddStyle(&workbook.Style{Font: doc.DefaultStyle.Font, NumFmt: "0.00%"})
	s.SetCell(0, 0, workbook.Number(3), doc.DefaultStyle)
	s.SetCell(0, 1, workbook.Number(2.5), doc.DefaultStyle)
	s.SetCell(0, 2, workbook.Number(0.07), pct)
	s.SetCell(0, 3, workbook.Bool(true), doc.DefaultStyle)
	s.SetCell(0, 4, workbook.Text("line1\nline2"), doc.DefaultStyle)

	page, err := NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)

	assert.Equal(t, "3", tdContent(page, 0, 0))
	assert.Equal(t, "2.5", tdContent(page, 0, 1))
	assert.Equal(t, "7%", tdContent(page, 0, 2))
	assert.Equal(t, "TRUE", tdContent(page, 0, 3))
	assert.Equal(t, "line1<br>line2", tdContent(page, 0, 4))
}

func TestRender_Fills(t *testing.T) {
	doc, s := newSheet(t)
	solid := func(c workbook.Color) *workbook.Style {
		return doc.AddStyle(&workbook.Style{Font: doc.DefaultStyle.Font, Fill: workbook.Fill{Pattern: workbook.PatternSolid, Fg: c}})
	}
	s.SetCell(0, 0, workbook.Text("yellow"), solid(workbook.RGBColor(0xFF, 0xFF, 0)))
	s.SetCell(0, 1, workbook.Text("white"), solid(workbook.RGBColor(0xFF, 0xFF, 0xFF)))
	s.SetCell(0, 2, workbook.Text("pattern"), doc.AddStyle(&workbook.Style{
		Font: doc.DefaultStyle.Font,
		Fill: workbook.Fill{Pattern: "gray125", Fg: workbook.RGBColor(0xFF, 0, 0)},
	}))
	s.SetCell(0, 3, workbook.Text("indexed"), solid(workbook.IndexedColor(10)))

	page, err := NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)

	assert.Contains(t, tdAt(page, 0, 0), "background-color:#ffff00")
	assert.NotContains(t, tdAt(page, 0, 1), "background-color")
	assert.NotContains(t, tdAt(page, 0, 2), "background-color")
	assert.Contains(t, tdAt(page, 0, 3), "background-color:#ff0000")
}

func TestRender_FontAndAlignment(t *testing.T) {
	doc, s := newSheet(t)
	font := doc.AddFont(workbook.Font{Name: "Arial", Size: 12, Bold: true, Italic: true, Underline: true, Strike: true,
		Color: workbook.RGBColor(0, 0, 0xFF)})
	st := doc.AddStyle(&workbook.Style{
		Font:      font,
		Alignment: workbook.Alignment{Horizontal: "center", Vertical: "top", Wrap: true},
	})
	s.SetCell(0, 0, workbook.Text("styled"), st)
	s.SetCell(0, 1, workbook.Text("plain"), doc.DefaultStyle)

	page, err := NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)

	td := tdAt(page, 0, 0)
	for _, decl := range []string{
		"font-family:'Arial'", "font-size:12pt", "font-weight:bold", "font-style:italic",
		"text-decoration:underline line-through", "color:#0000ff", "text-align:center",
		"vertical-align:top", "white-space:pre-wrap",
	} {
		assert.Contains(t, td, decl)
	}
	plain := tdAt(page, 0, 1)
	assert.Contains(t, plain, "vertical-align:middle")
	assert.Contains(t, plain, "white-space:nowrap")
	assert.NotContains(t, plain, "color:")
}

func TestRender_Borders(t *testing.T) {
	doc, s := newSheet(t)
	kinds := []workbook.BorderKind{
		workbook.BorderThin, workbook.BorderMedium, workbook.BorderThick,
		workbook.BorderDashed, workbook.BorderDotted, workbook.BorderDouble,
	}
	want := []string{"1px solid", "2px solid", "3px solid", "1px dashed", "1px dotted", "3px double"}
	for i, k := range kinds {
		st := doc.AddStyle(&workbook.Style{
			Font:   doc.DefaultStyle.Font,
			Border: workbook.Border{Top: workbook.BorderSide{Kind: k}},
		})
		s.SetCell(i, 0, workbook.Text("x"), st)
		s.SetCell(i, 1, workbook.Text("y"), doc.DefaultStyle)
	}

	page, err := NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)
	for i, w := range want {
		assert.Contains(t, tdAt(page, i, 0), "border-top:"+w+" #000000")
	}
}

func TestRender_LayoutAndHidden(t *testing.T) {
	doc, s := newSheet(t)
	s.SetColumn(0, workbook.Column{Width: 20})
	s.SetColumn(1, workbook.Column{Hidden: true})
	s.SetCell(0, 0, workbook.Text("a"), doc.DefaultStyle)
	s.SetCell(0, 1, workbook.Text("b"), doc.DefaultStyle)
	s.SetCell(2, 1, workbook.Text("c"), doc.DefaultStyle)
	s.EnsureRow(0).Height = 30
	s.EnsureRow(2).Hidden = true

	page, err := NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)

	assert.Contains(t, page, `<col style="width:145px">`)
	assert.Contains(t, page, `<col style="width:64.01px;display:none">`)
	assert.Contains(t, page, `<tr data-row="0" style="height:40px">`)
	assert.Contains(t, page, `<tr data-row="1" style="height:20px">`)
	assert.Contains(t, page, `<tr data-row="2" style="height:20px;display:none">`)
	assert.Contains(t, tdAt(page, 0, 1), "display:none")

	// the absent row still renders one blank cell per column
	assert.Equal(t, `<td data-row="1" data-col="0">`, tdAt(page, 1, 0))
	assert.NotEmpty(t, tdAt(page, 1, 1))
}

func TestRender_Gridlines(t *testing.T) {
	doc, s := newSheet(t)
	s.SetCell(0, 0, workbook.Text("a"), doc.DefaultStyle)

	page, err := NewRenderer(WithGridlines(true)).RenderString(doc, "Report")
	require.NoError(t, err)
	assert.Contains(t, page, "border:1px solid #d4d4d4")

	page, err = NewRenderer().RenderString(doc, "Report")
	require.NoError(t, err)
	assert.NotContains(t, page, "#d4d4d4")
}

func TestRender_DecodedWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Title"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 10))
	require.NoError(t, f.MergeCell("Sheet1", "B2", "C3"))
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"00FF00"}},
	})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "B2", "B2", style))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	doc, err := workbook.Decode(buf.Bytes())
	require.NoError(t, err)

	page, err := NewRenderer().RenderString(doc, "Sheet1")
	require.NoError(t, err)

	anchor := tdAt(page, 1, 1)
	assert.Contains(t, anchor, `rowspan="2"`)
	assert.Contains(t, anchor, `colspan="2"`)
	assert.Contains(t, anchor, "background-color:#00ff00")
	assert.Equal(t, "10", tdContent(page, 1, 1))
	assert.Contains(t, tdAt(page, 0, 0), `data-span="heuristic"`)
}
