package workbook

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidPackage reports bytes that are not a readable spreadsheet package.
var ErrInvalidPackage = errors.New("invalid spreadsheet package")

// maxPartSize bounds the decompressed size of a single package part.
const maxPartSize = 256 << 20

// maxColumns is the column limit of the package format.
const maxColumns = 16384

const (
	relTypeOfficeDocument = "/officeDocument"
	relTypeWorksheet      = "/worksheet"
	relTypeStyles         = "/styles"
	relTypeSharedStrings  = "/sharedStrings"
	relTypeTheme          = "/theme"
)

// Decode reads an OOXML spreadsheet package into a Document. Cell styles
// keep their package identity: cells sharing a cellXfs entry share one
// *Style, and Styles is indexed like cellXfs.
func Decode(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	d := &decoder{data: data, parts: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		d.parts[strings.TrimPrefix(f.Name, "/")] = f
	}
	return d.decode()
}

type decoder struct {
	data    []byte
	parts   map[string]*zip.File
	doc     *Document
	strings []string
	// shared collects shared-formula followers whose text must be
	// translated from their master cell.
	shared []sharedRef
}

type sharedRef struct {
	sheet *Sheet
	cell  *Cell
	ref   string
}

func (d *decoder) decode() (*Document, error) {
	wbPath := "xl/workbook.xml"
	var rootRels xlsxRelationships
	if ok, err := d.readXML("_rels/.rels", &rootRels); err != nil {
		return nil, err
	} else if ok {
		if rel := findRel(rootRels, relTypeOfficeDocument); rel != nil {
			wbPath = resolvePart("", rel.Target)
		}
	}

	var wb xlsxWorkbook
	if ok, err := d.readXML(wbPath, &wb); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPackage, wbPath)
	}

	var rels xlsxRelationships
	wbDir, wbFile := path.Split(wbPath)
	if _, err := d.readXML(path.Join(wbDir, "_rels", wbFile+".rels"), &rels); err != nil {
		return nil, err
	}
	relByID := make(map[string]xlsxRelationship, len(rels.Relationships))
	for _, r := range rels.Relationships {
		relByID[r.ID] = r
	}

	d.doc = &Document{byName: make(map[string]*Sheet)}
	if err := d.readTheme(wbDir, rels); err != nil {
		return nil, err
	}
	if err := d.readStyles(wbDir, rels); err != nil {
		return nil, err
	}
	if err := d.readSharedStrings(wbDir, rels); err != nil {
		return nil, err
	}

	for _, ref := range wb.Sheets {
		rel, ok := relByID[ref.RID]
		if !ok || !strings.HasSuffix(rel.Type, relTypeWorksheet) {
			// chartsheets and dialog sheets carry no cells
			continue
		}
		sheet, err := d.doc.AddSheet(ref.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
		}
		if err := d.readWorksheet(sheet, resolvePart(wbDir, rel.Target)); err != nil {
			return nil, err
		}
	}
	if len(d.doc.sheets) == 0 {
		return nil, fmt.Errorf("%w: no worksheets", ErrInvalidPackage)
	}
	d.expandSharedFormulas()
	return d.doc, nil
}

func (d *decoder) readXML(name string, v interface{}) (bool, error) {
	f, ok := d.parts[name]
	if !ok {
		return false, nil
	}
	rc, err := f.Open()
	if err != nil {
		return false, fmt.Errorf("%w: open %s: %v", ErrInvalidPackage, name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(io.LimitReader(rc, maxPartSize)).Decode(v); err != nil {
		return false, fmt.Errorf("%w: parse %s: %v", ErrInvalidPackage, name, err)
	}
	return true, nil
}

func findRel(rels xlsxRelationships, typeSuffix string) *xlsxRelationship {
	for i := range rels.Relationships {
		if strings.HasSuffix(rels.Relationships[i].Type, typeSuffix) {
			return &rels.Relationships[i]
		}
	}
	return nil
}

// resolvePart turns a relationship target into a package part name.
func resolvePart(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(base, target))
}

func (d *decoder) readTheme(base string, rels xlsxRelationships) error {
	rel := findRel(rels, relTypeTheme)
	if rel == nil {
		return nil
	}
	var th xlsxTheme
	ok, err := d.readXML(resolvePart(base, rel.Target), &th)
	if err != nil || !ok {
		return err
	}
	theme := &Theme{}
	for _, c := range th.ClrScheme.ordered() {
		rgb, _ := ParseRGB(c.hex())
		theme.Colors = append(theme.Colors, rgb)
	}
	d.doc.Theme = theme
	return nil
}

func (d *decoder) readSharedStrings(base string, rels xlsxRelationships) error {
	name := path.Join(base, "sharedStrings.xml")
	if rel := findRel(rels, relTypeSharedStrings); rel != nil {
		name = resolvePart(base, rel.Target)
	}
	var sst xlsxSST
	if _, err := d.readXML(name, &sst); err != nil {
		return err
	}
	d.strings = make([]string, len(sst.Items))
	for i := range sst.Items {
		d.strings[i] = sst.Items[i].String()
	}
	return nil
}

func (d *decoder) readStyles(base string, rels xlsxRelationships) error {
	name := path.Join(base, "styles.xml")
	if rel := findRel(rels, relTypeStyles); rel != nil {
		name = resolvePart(base, rel.Target)
	}
	var ss xlsxStyleSheet
	if _, err := d.readXML(name, &ss); err != nil {
		return err
	}
	doc := d.doc

	for _, c := range ss.IndexedColors {
		rgb, _ := ParseRGB(c.RGB)
		doc.Palette = append(doc.Palette, rgb)
	}

	for _, f := range ss.Fonts {
		font := Font{
			Name:      f.Name.str(),
			Bold:      f.B.on(),
			Italic:    f.I.on(),
			Strike:    f.Strike.on(),
			Underline: f.U != nil && f.U.str() != "none",
			Color:     decodeColor(f.Color),
		}
		if sz := f.Sz.str(); sz != "" {
			font.Size, _ = strconv.ParseFloat(sz, 64)
		}
		doc.AddFont(font)
	}
	if len(doc.Fonts) == 0 {
		doc.AddFont(Font{Name: "Calibri", Size: 11})
	}

	fills := make([]Fill, len(ss.Fills))
	for i, f := range ss.Fills {
		if p := f.PatternFill; p != nil {
			fills[i] = Fill{Pattern: p.PatternType, Fg: decodeColor(p.FgColor), Bg: decodeColor(p.BgColor)}
		}
	}
	borders := make([]Border, len(ss.Borders))
	for i, b := range ss.Borders {
		borders[i] = Border{
			Left:   decodeLine(b.Left),
			Right:  decodeLine(b.Right),
			Top:    decodeLine(b.Top),
			Bottom: decodeLine(b.Bottom),
		}
	}
	custom := make(map[int]string, len(ss.NumFmts))
	for _, nf := range ss.NumFmts {
		custom[nf.ID] = nf.Code
	}

	for _, xf := range ss.CellXfs {
		st := &Style{Font: doc.Fonts[0], NumFmt: numFmtCode(xf.NumFmtID, custom)}
		if xf.FontID >= 0 && xf.FontID < len(doc.Fonts) {
			st.Font = doc.Fonts[xf.FontID]
		}
		if xf.FillID >= 0 && xf.FillID < len(fills) {
			st.Fill = fills[xf.FillID]
		}
		if xf.BorderID >= 0 && xf.BorderID < len(borders) {
			st.Border = borders[xf.BorderID]
		}
		if a := xf.Alignment; a != nil {
			st.Alignment = Alignment{Horizontal: a.Horizontal, Vertical: a.Vertical, Wrap: xmlBool(a.WrapText)}
		}
		doc.AddStyle(st)
	}
	if len(doc.Styles) == 0 {
		doc.AddStyle(&Style{Font: doc.Fonts[0]})
	}
	doc.DefaultStyle = doc.Styles[0]
	return nil
}

func decodeColor(c *xlsxColor) Color {
	switch {
	case c == nil || xmlBool(c.Auto):
		return NoColor
	case c.RGB != "":
		if rgb, ok := ParseRGB(c.RGB); ok {
			return Color{Kind: ColorRGB, RGB: rgb}
		}
		return NoColor
	case c.Theme != nil:
		return ThemedColor(*c.Theme, c.Tint)
	case c.Indexed != nil:
		return IndexedColor(*c.Indexed)
	}
	return NoColor
}

func decodeLine(l *xlsxLine) BorderSide {
	if l == nil {
		return BorderSide{}
	}
	kind := ParseBorderKind(l.Style)
	if kind == BorderNone {
		return BorderSide{}
	}
	return BorderSide{Kind: kind, Color: decodeColor(l.Color)}
}

// ParseRGB parses "RRGGBB", "#RRGGBB" or ARGB "AARRGGBB"; the alpha
// channel is dropped.
func ParseRGB(s string) (RGB, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 8 {
		s = s[2:]
	}
	if len(s) != 6 {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

func (d *decoder) readWorksheet(sheet *Sheet, name string) error {
	var ws xlsxWorksheet
	if ok, err := d.readXML(name, &ws); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: missing %s", ErrInvalidPackage, name)
	}
	if ws.SheetFormatPr != nil && ws.SheetFormatPr.DefaultRowHeight > 0 {
		sheet.DefaultRowHeight = ws.SheetFormatPr.DefaultRowHeight
	}
	for _, col := range ws.Cols {
		hidden := xmlBool(col.Hidden)
		if col.Width <= 0 && !hidden {
			continue
		}
		for c := col.Min; c <= col.Max && c <= maxColumns; c++ {
			sheet.SetColumn(c-1, Column{Width: col.Width, Hidden: hidden})
		}
	}

	rowIdx := -1
	for _, xr := range ws.Rows {
		if xr.R > 0 {
			rowIdx = xr.R - 1
		} else {
			rowIdx++
		}
		row := sheet.EnsureRow(rowIdx)
		row.Height = xr.Ht
		row.Hidden = xmlBool(xr.Hidden)

		colIdx := -1
		for i := range xr.Cells {
			xc := &xr.Cells[i]
			if xc.R != "" {
				col, _, err := excelize.CellNameToCoordinates(xc.R)
				if err != nil {
					return fmt.Errorf("%w: %s: cell %q: %v", ErrInvalidPackage, sheet.Name, xc.R, err)
				}
				colIdx = col - 1
			} else {
				colIdx++
			}
			style := d.doc.DefaultStyle
			if xc.S > 0 && xc.S < len(d.doc.Styles) {
				style = d.doc.Styles[xc.S]
			}
			v, follower := d.cellValue(xc)
			if v.Kind == KindEmpty && style == d.doc.DefaultStyle {
				continue
			}
			cell := sheet.SetCell(rowIdx, colIdx, v, style)
			if follower {
				ref, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				d.shared = append(d.shared, sharedRef{sheet: sheet, cell: cell, ref: ref})
			}
		}
	}

	for _, mc := range ws.MergeCells {
		region, ok := parseRange(mc.Ref)
		if !ok || region.RowSpan()*region.ColSpan() == 1 {
			continue
		}
		// overlapping declarations are malformed; the first one wins
		_ = sheet.AddMergedRegion(region)
	}
	return nil
}

// cellValue converts a package cell. follower is true for shared-formula
// cells that carry no formula text of their own.
func (d *decoder) cellValue(xc *xlsxC) (v Value, follower bool) {
	var scalar Value
	switch xc.T {
	case "s":
		if xc.V != nil {
			if i, err := strconv.Atoi(*xc.V); err == nil && i >= 0 && i < len(d.strings) {
				scalar = Text(d.strings[i])
			}
		}
	case "inlineStr":
		scalar = Text(xc.IS.String())
	case "str", "d":
		if xc.V != nil {
			scalar = Text(*xc.V)
		}
	case "b":
		if xc.V != nil {
			scalar = Bool(xmlBool(*xc.V))
		}
	case "e":
		if xc.V != nil {
			scalar = ErrorValue(*xc.V)
		}
	default:
		if xc.V != nil && *xc.V != "" {
			if f, err := strconv.ParseFloat(*xc.V, 64); err == nil {
				scalar = Number(f)
			} else {
				scalar = Text(*xc.V)
			}
		}
	}
	if xc.F == nil {
		return scalar, false
	}
	var cached *Value
	if xc.V != nil || xc.IS != nil {
		c := scalar
		// streamed packages store error results as formula strings
		if xc.T == "str" && IsErrorCode(c.Text) {
			c = ErrorValue(c.Text)
		}
		cached = &c
	}
	text := strings.TrimSpace(xc.F.Content)
	if text == "" && xc.F.T == "shared" {
		return Formula("", cached), true
	}
	if text == "" {
		return scalar, false
	}
	return Formula(text, cached), false
}

// expandSharedFormulas asks excelize for the translated text of every
// shared-formula follower. Followers excelize cannot translate keep their
// cached result as a plain value.
func (d *decoder) expandSharedFormulas() {
	if len(d.shared) == 0 {
		return
	}
	f, err := excelize.OpenReader(bytes.NewReader(d.data))
	if err == nil {
		defer f.Close()
	}
	for _, s := range d.shared {
		var text string
		if err == nil {
			text, _ = f.GetCellFormula(s.sheet.Name, s.ref)
		}
		if text = strings.TrimPrefix(strings.TrimSpace(text), "="); text != "" {
			s.cell.Value.Formula = text
			continue
		}
		if s.cell.Value.Cached != nil {
			s.cell.Value = *s.cell.Value.Cached
		} else {
			s.cell.Value = Empty
		}
	}
}

// parseRange parses "A1:C3" into a zero-based region.
func parseRange(ref string) (MergedRegion, bool) {
	from, to, ok := strings.Cut(ref, ":")
	if !ok {
		to = from
	}
	c1, r1, err := excelize.CellNameToCoordinates(from)
	if err != nil {
		return MergedRegion{}, false
	}
	c2, r2, err := excelize.CellNameToCoordinates(to)
	if err != nil {
		return MergedRegion{}, false
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	return MergedRegion{FirstRow: r1 - 1, LastRow: r2 - 1, FirstCol: c1 - 1, LastCol: c2 - 1}, true
}
