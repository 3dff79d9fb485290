package workbook

// builtInNumFmt lists the number formats every spreadsheet application
// knows by id without a numFmt declaration in the package.
var builtInNumFmt = map[int]string{
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "mm-dd-yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
	37: "#,##0 ;(#,##0)",
	38: "#,##0 ;[Red](#,##0)",
	39: "#,##0.00;(#,##0.00)",
	40: "#,##0.00;[Red](#,##0.00)",
	41: `_(* #,##0_);_(* \(#,##0\);_(* "-"_);_(@_)`,
	42: `_("$"* #,##0_);_("$"* \(#,##0\);_("$"* "-"_);_(@_)`,
	43: `_(* #,##0.00_);_(* \(#,##0.00\);_(* "-"??_);_(@_)`,
	44: `_("$"* #,##0.00_);_("$"* \(#,##0.00\);_("$"* "-"??_);_(@_)`,
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mmss.0",
	48: "##0.0E+0",
	49: "@",
}

var builtInNumFmtID = func() map[string]int {
	m := make(map[string]int, len(builtInNumFmt))
	for id, code := range builtInNumFmt {
		m[code] = id
	}
	return m
}()

// BuiltInNumFmtID returns the built-in id of a format code, if it has one.
func BuiltInNumFmtID(code string) (int, bool) {
	id, ok := builtInNumFmtID[code]
	return id, ok
}

func numFmtCode(id int, custom map[int]string) string {
	if code, ok := custom[id]; ok {
		if code == "General" {
			return ""
		}
		return code
	}
	return builtInNumFmt[id]
}
