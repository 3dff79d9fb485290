package workbook

// XML mappings for the package parts the decoder reads. Only the elements
// and attributes the model keeps are declared; encoding/xml skips the rest.
// Tags carry no namespace so that transitional and strict packages both
// decode.

type xlsxRelationships struct {
	Relationships []xlsxRelationship `xml:"Relationship"`
}

type xlsxRelationship struct {
	ID         string `xml:"Id,attr"`
	Target     string `xml:"Target,attr"`
	Type       string `xml:"Type,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type xlsxWorkbook struct {
	Sheets []xlsxSheetRef `xml:"sheets>sheet"`
}

type xlsxSheetRef struct {
	Name  string `xml:"name,attr"`
	RID   string `xml:"id,attr"`
	State string `xml:"state,attr"`
}

type xlsxSST struct {
	Items []xlsxSI `xml:"si"`
}

// xlsxSI is a shared or inline string: plain text or a list of rich runs.
type xlsxSI struct {
	T    *xlsxText `xml:"t"`
	Runs []xlsxRun `xml:"r"`
}

type xlsxRun struct {
	T *xlsxText `xml:"t"`
}

type xlsxText struct {
	Val string `xml:",chardata"`
}

func (si *xlsxSI) String() string {
	if si == nil {
		return ""
	}
	s := ""
	if si.T != nil {
		s = si.T.Val
	}
	for _, r := range si.Runs {
		if r.T != nil {
			s += r.T.Val
		}
	}
	return s
}

type xlsxStyleSheet struct {
	NumFmts       []xlsxNumFmt   `xml:"numFmts>numFmt"`
	Fonts         []xlsxFont     `xml:"fonts>font"`
	Fills         []xlsxFill     `xml:"fills>fill"`
	Borders       []xlsxBorder   `xml:"borders>border"`
	CellXfs       []xlsxXf       `xml:"cellXfs>xf"`
	IndexedColors []xlsxRGBColor `xml:"colors>indexedColors>rgbColor"`
}

type xlsxNumFmt struct {
	ID   int    `xml:"numFmtId,attr"`
	Code string `xml:"formatCode,attr"`
}

type xlsxRGBColor struct {
	RGB string `xml:"rgb,attr"`
}

// xlsxVal is a property element whose value lives in a val attribute, such
// as <sz val="11"/> or <b/>.
type xlsxVal struct {
	Val *string `xml:"val,attr"`
}

// on interprets a boolean property: present without val means true.
func (v *xlsxVal) on() bool {
	if v == nil {
		return false
	}
	if v.Val == nil {
		return true
	}
	return xmlBool(*v.Val)
}

func (v *xlsxVal) str() string {
	if v == nil || v.Val == nil {
		return ""
	}
	return *v.Val
}

type xlsxFont struct {
	B      *xlsxVal   `xml:"b"`
	I      *xlsxVal   `xml:"i"`
	Strike *xlsxVal   `xml:"strike"`
	U      *xlsxVal   `xml:"u"`
	Sz     *xlsxVal   `xml:"sz"`
	Color  *xlsxColor `xml:"color"`
	Name   *xlsxVal   `xml:"name"`
}

type xlsxColor struct {
	Auto    string  `xml:"auto,attr"`
	RGB     string  `xml:"rgb,attr"`
	Indexed *int    `xml:"indexed,attr"`
	Theme   *int    `xml:"theme,attr"`
	Tint    float64 `xml:"tint,attr"`
}

type xlsxFill struct {
	PatternFill *xlsxPatternFill `xml:"patternFill"`
}

type xlsxPatternFill struct {
	PatternType string     `xml:"patternType,attr"`
	FgColor     *xlsxColor `xml:"fgColor"`
	BgColor     *xlsxColor `xml:"bgColor"`
}

type xlsxBorder struct {
	Left   *xlsxLine `xml:"left"`
	Right  *xlsxLine `xml:"right"`
	Top    *xlsxLine `xml:"top"`
	Bottom *xlsxLine `xml:"bottom"`
}

type xlsxLine struct {
	Style string     `xml:"style,attr"`
	Color *xlsxColor `xml:"color"`
}

type xlsxXf struct {
	NumFmtID  int            `xml:"numFmtId,attr"`
	FontID    int            `xml:"fontId,attr"`
	FillID    int            `xml:"fillId,attr"`
	BorderID  int            `xml:"borderId,attr"`
	Alignment *xlsxAlignment `xml:"alignment"`
}

type xlsxAlignment struct {
	Horizontal string `xml:"horizontal,attr"`
	Vertical   string `xml:"vertical,attr"`
	WrapText   string `xml:"wrapText,attr"`
}

type xlsxTheme struct {
	ClrScheme xlsxClrScheme `xml:"themeElements>clrScheme"`
}

type xlsxClrScheme struct {
	Dk1      xlsxThemeColor `xml:"dk1"`
	Lt1      xlsxThemeColor `xml:"lt1"`
	Dk2      xlsxThemeColor `xml:"dk2"`
	Lt2      xlsxThemeColor `xml:"lt2"`
	Accent1  xlsxThemeColor `xml:"accent1"`
	Accent2  xlsxThemeColor `xml:"accent2"`
	Accent3  xlsxThemeColor `xml:"accent3"`
	Accent4  xlsxThemeColor `xml:"accent4"`
	Accent5  xlsxThemeColor `xml:"accent5"`
	Accent6  xlsxThemeColor `xml:"accent6"`
	Hlink    xlsxThemeColor `xml:"hlink"`
	FolHlink xlsxThemeColor `xml:"folHlink"`
}

type xlsxThemeColor struct {
	SrgbClr *struct {
		Val string `xml:"val,attr"`
	} `xml:"srgbClr"`
	SysClr *struct {
		Val     string `xml:"val,attr"`
		LastClr string `xml:"lastClr,attr"`
	} `xml:"sysClr"`
}

func (c xlsxThemeColor) hex() string {
	switch {
	case c.SrgbClr != nil:
		return c.SrgbClr.Val
	case c.SysClr != nil:
		return c.SysClr.LastClr
	}
	return ""
}

// ordered returns the scheme colors in theme-index order. Indexes 0..3
// address lt1, dk1, lt2, dk2 in that order, not the order the scheme
// declares them.
func (s xlsxClrScheme) ordered() []xlsxThemeColor {
	return []xlsxThemeColor{
		s.Lt1, s.Dk1, s.Lt2, s.Dk2,
		s.Accent1, s.Accent2, s.Accent3, s.Accent4, s.Accent5, s.Accent6,
		s.Hlink, s.FolHlink,
	}
}

type xlsxWorksheet struct {
	SheetFormatPr *xlsxSheetFormatPr `xml:"sheetFormatPr"`
	Cols          []xlsxCol          `xml:"cols>col"`
	Rows          []xlsxRow          `xml:"sheetData>row"`
	MergeCells    []xlsxMergeCell    `xml:"mergeCells>mergeCell"`
}

type xlsxSheetFormatPr struct {
	DefaultRowHeight float64 `xml:"defaultRowHeight,attr"`
}

type xlsxCol struct {
	Min    int     `xml:"min,attr"`
	Max    int     `xml:"max,attr"`
	Width  float64 `xml:"width,attr"`
	Hidden string  `xml:"hidden,attr"`
}

type xlsxRow struct {
	R      int     `xml:"r,attr"`
	Ht     float64 `xml:"ht,attr"`
	Hidden string  `xml:"hidden,attr"`
	Cells  []xlsxC `xml:"c"`
}

type xlsxC struct {
	R  string  `xml:"r,attr"`
	S  int     `xml:"s,attr"`
	T  string  `xml:"t,attr"`
	F  *xlsxF  `xml:"f"`
	V  *string `xml:"v"`
	IS *xlsxSI `xml:"is"`
}

type xlsxF struct {
	Content string `xml:",chardata"`
	T       string `xml:"t,attr"`
	Ref     string `xml:"ref,attr"`
	Si      string `xml:"si,attr"`
}

type xlsxMergeCell struct {
	Ref string `xml:"ref,attr"`
}

func xmlBool(s string) bool {
	return s == "1" || s == "true"
}
