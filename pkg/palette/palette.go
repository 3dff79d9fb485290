// Package palette resolves indexed, themed and explicit colors of a
// workbook document into canonical RGB values.
package palette

import (
	"math"

	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

// legacy is the 64-entry indexed color table every spreadsheet package
// inherits unless it declares its own indexedColors.
var legacy = [64]workbook.RGB{
	{0x00, 0x00, 0x00}, {0xFF, 0xFF, 0xFF}, {0xFF, 0x00, 0x00}, {0x00, 0xFF, 0x00},
	{0x00, 0x00, 0xFF}, {0xFF, 0xFF, 0x00}, {0xFF, 0x00, 0xFF}, {0x00, 0xFF, 0xFF},
	{0x00, 0x00, 0x00}, {0xFF, 0xFF, 0xFF}, {0xFF, 0x00, 0x00}, {0x00, 0xFF, 0x00},
	{0x00, 0x00, 0xFF}, {0xFF, 0xFF, 0x00}, {0xFF, 0x00, 0xFF}, {0x00, 0xFF, 0xFF},
	{0x80, 0x00, 0x00}, {0x00, 0x80, 0x00}, {0x00, 0x00, 0x80}, {0x80, 0x80, 0x00},
	{0x80, 0x00, 0x80}, {0x00, 0x80, 0x80}, {0xC0, 0xC0, 0xC0}, {0x80, 0x80, 0x80},
	{0x99, 0x99, 0xFF}, {0x99, 0x33, 0x66}, {0xFF, 0xFF, 0xCC}, {0xCC, 0xFF, 0xFF},
	{0x66, 0x00, 0x66}, {0xFF, 0x80, 0x80}, {0x00, 0x66, 0xCC}, {0xCC, 0xCC, 0xFF},
	{0x00, 0x00, 0x80}, {0xFF, 0x00, 0xFF}, {0xFF, 0xFF, 0x00}, {0x00, 0xFF, 0xFF},
	{0x80, 0x00, 0x80}, {0x80, 0x00, 0x00}, {0x00, 0x80, 0x80}, {0x00, 0x00, 0xFF},
	{0x00, 0xCC, 0xFF}, {0xCC, 0xFF, 0xFF}, {0xCC, 0xFF, 0xCC}, {0xFF, 0xFF, 0x99},
	{0x99, 0xCC, 0xFF}, {0xFF, 0x99, 0xCC}, {0xCC, 0x99, 0xFF}, {0xFF, 0xCC, 0x99},
	{0x33, 0x66, 0xFF}, {0x33, 0xCC, 0xCC}, {0x99, 0xCC, 0x00}, {0xFF, 0xCC, 0x00},
	{0xFF, 0x99, 0x00}, {0xFF, 0x66, 0x00}, {0x66, 0x66, 0x99}, {0x96, 0x96, 0x96},
	{0x00, 0x33, 0x66}, {0x33, 0x99, 0x66}, {0x00, 0x33, 0x00}, {0x33, 0x33, 0x00},
	{0x99, 0x33, 0x00}, {0x99, 0x33, 0x66}, {0x33, 0x33, 0x99}, {0x33, 0x33, 0x33},
}

// Automatic is the indexed slot of the system foreground color.
const Automatic = 64

var (
	White = workbook.RGB{R: 0xFF, G: 0xFF, B: 0xFF}
	Black = workbook.RGB{}
)

// Resolve returns the RGB value of c in the context of doc. ok is false
// for the "no color" outcome: an unset or automatic color, an index outside
// the palette, or a theme slot the document does not define. Color is
// cosmetic, so resolution never fails harder than that.
//
// Index 64 is the system foreground ("automatic") and resolves to no color.
func Resolve(c workbook.Color, doc *workbook.Document) (workbook.RGB, bool) {
	switch c.Kind {
	case workbook.ColorRGB:
		return c.RGB, true
	case workbook.ColorIndexed:
		return indexed(c.Index, doc)
	case workbook.ColorThemed:
		return themed(c.Theme, c.Tint, doc)
	}
	return workbook.RGB{}, false
}

// ResolveOr resolves c, substituting fallback for no color.
func ResolveOr(c workbook.Color, doc *workbook.Document, fallback workbook.RGB) workbook.RGB {
	if rgb, ok := Resolve(c, doc); ok {
		return rgb
	}
	return fallback
}

// Canonical returns c as an explicit RGB color, or NoColor when it does
// not resolve.
func Canonical(c workbook.Color, doc *workbook.Document) workbook.Color {
	rgb, ok := Resolve(c, doc)
	if !ok {
		return workbook.NoColor
	}
	return workbook.Color{Kind: workbook.ColorRGB, RGB: rgb}
}

// ColorFunc adapts Resolve to workbook.WithColorFunc.
func ColorFunc(c workbook.Color, doc *workbook.Document) (string, bool) {
	rgb, ok := Resolve(c, doc)
	if !ok {
		return "", false
	}
	return Hex(rgb), true
}

func indexed(i int, doc *workbook.Document) (workbook.RGB, bool) {
	if doc != nil && len(doc.Palette) > 0 {
		if i >= 0 && i < len(doc.Palette) {
			return doc.Palette[i], true
		}
		return workbook.RGB{}, false
	}
	if i < 0 || i >= len(legacy) {
		return workbook.RGB{}, false
	}
	return legacy[i], true
}

func themed(id int, tint float64, doc *workbook.Document) (workbook.RGB, bool) {
	if doc == nil || doc.Theme == nil || len(doc.Theme.Colors) == 0 {
		return White, true
	}
	if id < 0 || id >= len(doc.Theme.Colors) {
		return workbook.RGB{}, false
	}
	return ApplyTint(doc.Theme.Colors[id], tint), true
}

// ApplyTint lightens base toward white for a positive tint and darkens it
// toward black for a negative one. tint is clamped to [-1, 1].
func ApplyTint(base workbook.RGB, tint float64) workbook.RGB {
	if tint == 0 || math.IsNaN(tint) {
		return base
	}
	tint = math.Max(-1, math.Min(1, tint))
	ch := func(c uint8) uint8 {
		v := float64(c)
		if tint > 0 {
			v += (255 - v) * tint
		} else {
			v *= 1 + tint
		}
		return uint8(math.Round(v))
	}
	return workbook.RGB{R: ch(base.R), G: ch(base.G), B: ch(base.B)}
}

// Hex formats rgb as "RRGGBB".
func Hex(rgb workbook.RGB) string {
	return rgb.String()
}

// CSS formats rgb as "#rrggbb".
func CSS(rgb workbook.RGB) string {
	const digits = "0123456789abcdef"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, c := range []uint8{rgb.R, rgb.G, rgb.B} {
		b[1+2*i] = digits[c>>4]
		b[2+2*i] = digits[c&0x0F]
	}
	return string(b)
}

// ParseHex accepts "RRGGBB", "#RRGGBB" and ARGB "AARRGGBB".
func ParseHex(s string) (workbook.RGB, bool) {
	return workbook.ParseRGB(s)
}

func IsWhite(rgb workbook.RGB) bool {
	return rgb == White
}
