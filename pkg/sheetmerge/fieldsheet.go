package sheetmerge

import (
	"github.com/locvowork/sheet_aggregator/pkg/fielddata"
	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

const (
	fieldNameWidth  = 28
	fieldValueWidth = 18
)

// headerStyle is bold white on black, the inverse of a regular cell.
func headerStyle(in *Interner) *workbook.Style {
	font := in.Font(workbook.Font{
		Name:  "Calibri",
		Size:  11,
		Bold:  true,
		Color: workbook.RGBColor(0xFF, 0xFF, 0xFF),
	})
	return in.Style(workbook.Style{
		Font: font,
		Fill: workbook.Fill{Pattern: workbook.PatternSolid, Fg: workbook.RGBColor(0, 0, 0)},
	})
}

func bodyStyle(in *Interner) *workbook.Style {
	font := in.Font(workbook.Font{Name: "Calibri", Size: 11})
	return in.Style(workbook.Style{Font: font})
}

// writeFieldSheet lays out matching records as a header row (process name,
// process number) followed by one name/value row per remaining attribute.
// It returns the number of rows and cells written.
func writeFieldSheet(sheet *workbook.Sheet, records []fielddata.Record, in *Interner) (rows, cells int) {
	sheet.SetColumn(0, workbook.Column{Width: fieldNameWidth})
	sheet.SetColumn(1, workbook.Column{Width: fieldValueWidth})
	if len(records) == 0 {
		return 0, 0
	}
	header := headerStyle(in)
	body := bodyStyle(in)

	for _, rec := range records {
		sheet.SetCell(rows, 0, workbook.Text(rec.ProcessName), header)
		sheet.SetCell(rows, 1, workbook.Text(rec.ProcessNo), header)
		rows++
		cells += 2
		for _, f := range rec.Fields {
			sheet.SetCell(rows, 0, workbook.Text(f.Name), body)
			cells++
			if v := f.CellValue(); !v.IsEmpty() {
				sheet.SetCell(rows, 1, v, body)
				cells++
			}
			rows++
		}
	}
	return rows, cells
}
