package sheethtml

import (
	"strconv"
	"strings"

	"github.com/locvowork/sheet_aggregator/pkg/palette"
	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

var borderCSS = map[workbook.BorderKind]string{
	workbook.BorderThin:   "1px solid",
	workbook.BorderMedium: "2px solid",
	workbook.BorderThick:  "3px solid",
	workbook.BorderDashed: "1px dashed",
	workbook.BorderDotted: "1px dotted",
	workbook.BorderDouble: "3px double",
}

// cellCSS returns the inline declarations for style. right, when not nil,
// replaces the style's own right border.
func cellCSS(doc *workbook.Document, style *workbook.Style, right *workbook.BorderSide) []string {
	var css []string
	if f := style.Font; f != nil {
		css = append(css, fontCSS(doc, f)...)
	}

	if style.Fill.IsSolid() {
		if rgb, ok := palette.Resolve(style.Fill.Fg, doc); ok && !palette.IsWhite(rgb) {
			css = append(css, "background-color:"+palette.CSS(rgb))
		}
	}

	if align := textAlign(style.Alignment.Horizontal); align != "" {
		css = append(css, "text-align:"+align)
	}
	css = append(css, "vertical-align:"+verticalAlign(style.Alignment.Vertical))

	b := style.Border
	if right != nil {
		b.Right = *right
	}
	for _, side := range []struct {
		name string
		side workbook.BorderSide
	}{
		{"top", b.Top}, {"right", b.Right}, {"bottom", b.Bottom}, {"left", b.Left},
	} {
		if decl, ok := borderDecl(doc, side.side); ok {
			css = append(css, "border-"+side.name+":"+decl)
		}
	}

	if style.Alignment.Wrap {
		css = append(css, "white-space:pre-wrap")
	} else {
		css = append(css, "white-space:nowrap")
	}
	return css
}

func fontCSS(doc *workbook.Document, f *workbook.Font) []string {
	var css []string
	if name := cssFontName(f.Name); name != "" {
		css = append(css, "font-family:'"+name+"'")
	}
	if f.Size > 0 {
		css = append(css, "font-size:"+strconv.FormatFloat(f.Size, 'f', -1, 64)+"pt")
	}
	if f.Bold {
		css = append(css, "font-weight:bold")
	}
	if f.Italic {
		css = append(css, "font-style:italic")
	}
	var deco []string
	if f.Underline {
		deco = append(deco, "underline")
	}
	if f.Strike {
		deco = append(deco, "line-through")
	}
	if len(deco) > 0 {
		css = append(css, "text-decoration:"+strings.Join(deco, " "))
	}
	if rgb, ok := palette.Resolve(f.Color, doc); ok {
		css = append(css, "color:"+palette.CSS(rgb))
	}
	return css
}

// cssFontName drops characters that could escape the quoted CSS string
// or the surrounding attribute.
func cssFontName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\'', '"', '\\', '<', '>', '&', ';':
			return -1
		}
		return r
	}, strings.TrimSpace(name))
}

func textAlign(h string) string {
	switch h {
	case "left", "right", "justify":
		return h
	case "center", "centerContinuous", "distributed":
		return "center"
	}
	return ""
}

func verticalAlign(v string) string {
	switch v {
	case "top":
		return "top"
	case "bottom":
		return "bottom"
	}
	return "middle"
}

func borderDecl(doc *workbook.Document, side workbook.BorderSide) (string, bool) {
	line, ok := borderCSS[side.Kind]
	if !ok {
		return "", false
	}
	color := palette.ResolveOr(side.Color, doc, palette.Black)
	return line + " " + palette.CSS(color), true
}
