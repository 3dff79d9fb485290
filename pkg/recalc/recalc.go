// Package recalc refreshes the cached results of formula cells by
// evaluating them with the excelize calculation engine.
package recalc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

// Stats counts the formula cells visited by Document.
type Stats struct {
	Evaluated int `json:"evaluated"`
	Failed    int `json:"failed"`
}

// Document evaluates every formula in doc and stores the results as their
// cached values. A formula the engine cannot evaluate keeps its previous
// cache and is counted as failed.
func Document(ctx context.Context, doc *workbook.Document) (Stats, error) {
	f, err := workbook.Encode(doc)
	if err != nil {
		return Stats{}, fmt.Errorf("recalc: %w", err)
	}
	defer f.Close()

	log := zerolog.Ctx(ctx)
	var st Stats
	for _, sheet := range doc.Sheets() {
		for _, row := range sheet.Rows() {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			for _, c := range row.Cells() {
				if c.Value.Kind != workbook.KindFormula {
					continue
				}
				ref, err := excelize.CoordinatesToCellName(c.Col+1, c.Row+1)
				if err != nil {
					st.Failed++
					continue
				}
				raw, err := f.CalcCellValue(sheet.Name, ref, excelize.Options{RawCellValue: true})
				if err != nil {
					st.Failed++
					log.Debug().Err(err).Str("sheet", sheet.Name).Str("cell", ref).Msg("formula not evaluated")
					continue
				}
				v := Classify(raw)
				c.Value.Cached = &v
				st.Evaluated++
			}
		}
	}
	log.Debug().Int("evaluated", st.Evaluated).Int("failed", st.Failed).Msg("recalculated")
	return st, nil
}

// Classify turns an engine result string into a typed value.
func Classify(raw string) workbook.Value {
	switch {
	case raw == "":
		return workbook.Text("")
	case strings.EqualFold(raw, "TRUE"):
		return workbook.Bool(true)
	case strings.EqualFold(raw, "FALSE"):
		return workbook.Bool(false)
	case strings.HasPrefix(raw, "#"):
		return workbook.ErrorValue(raw)
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return workbook.Number(n)
	}
	return workbook.Text(raw)
}
