package sheethtml

import (
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

const errorText = "#ERROR"

// cellText returns the escaped display text of c.
func cellText(c *workbook.Cell) string {
	numFmt := ""
	if c.Style != nil {
		numFmt = c.Style.NumFmt
	}
	v := c.Value
	if v.Kind == workbook.KindFormula {
		if v.Cached == nil {
			return ""
		}
		if v.Cached.Kind == workbook.KindError {
			return errorText
		}
		v = *v.Cached
	}
	return displayValue(v, numFmt)
}

func displayValue(v workbook.Value, numFmt string) string {
	switch v.Kind {
	case workbook.KindText:
		return textHTML(v.Text)
	case workbook.KindNumber:
		if strings.Contains(numFmt, "%") {
			return formatNumber(roundTo(v.Number*100, 10)) + "%"
		}
		return formatNumber(v.Number)
	case workbook.KindBoolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case workbook.KindError:
		return html.EscapeString(v.Text)
	}
	return ""
}

func textHTML(s string) string {
	s = html.EscapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// formatNumber prints integral values without a decimal point and
// everything else in the shortest form that round-trips.
func formatNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return errorText
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	if a := math.Abs(n); a >= 1e21 || a < 1e-6 {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func roundTo(n float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(n*p) / p
}
