package workbook

import "fmt"

// RGB is a canonical 24-bit color.
type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// ColorKind tags the variant held by a Color.
type ColorKind uint8

const (
	ColorNone ColorKind = iota
	ColorRGB
	ColorIndexed
	ColorThemed
)

// Color is the document-level color representation. Indexed and themed
// colors are resolved lazily against the owning document (see pkg/palette).
// Color is comparable and can be used inside map keys.
type Color struct {
	Kind  ColorKind
	RGB   RGB
	Index int
	Theme int
	Tint  float64
}

// NoColor is the zero Color.
var NoColor = Color{}

func RGBColor(r, g, b uint8) Color {
	return Color{Kind: ColorRGB, RGB: RGB{R: r, G: g, B: b}}
}

func IndexedColor(i int) Color {
	return Color{Kind: ColorIndexed, Index: i}
}

func ThemedColor(id int, tint float64) Color {
	return Color{Kind: ColorThemed, Theme: id, Tint: tint}
}

// IsSet reports whether the color carries any value.
func (c Color) IsSet() bool { return c.Kind != ColorNone }

// Font is compared by value; two fonts with equal fields are equivalent.
type Font struct {
	Name      string
	Size      float64
	Bold      bool
	Italic    bool
	Underline bool
	Strike    bool
	Color     Color
}

// Pattern names follow the SpreadsheetML patternType values.
const (
	PatternNone  = "none"
	PatternSolid = "solid"
)

type Fill struct {
	Pattern string
	Fg      Color
	Bg      Color
}

// IsSolid reports whether the fill paints its foreground color over the cell.
func (f Fill) IsSolid() bool { return f.Pattern == PatternSolid }

// BorderKind is the line style of one border side.
type BorderKind uint8

const (
	BorderNone BorderKind = iota
	BorderThin
	BorderMedium
	BorderThick
	BorderDashed
	BorderDotted
	BorderDouble
)

var borderKindNames = [...]string{"none", "thin", "medium", "thick", "dashed", "dotted", "double"}

func (k BorderKind) String() string {
	if int(k) < len(borderKindNames) {
		return borderKindNames[k]
	}
	return fmt.Sprintf("BorderKind(%d)", k)
}

// ParseBorderKind maps a SpreadsheetML border style onto the supported
// kinds. Decorative variants collapse onto the closest supported kind.
func ParseBorderKind(s string) BorderKind {
	switch s {
	case "thin":
		return BorderThin
	case "medium":
		return BorderMedium
	case "thick":
		return BorderThick
	case "dashed", "mediumDashed", "dashDot", "mediumDashDot", "dashDotDot", "mediumDashDotDot", "slantDashDot":
		return BorderDashed
	case "dotted", "hair":
		return BorderDotted
	case "double":
		return BorderDouble
	default:
		return BorderNone
	}
}

type BorderSide struct {
	Kind  BorderKind
	Color Color
}

type Border struct {
	Left, Right, Top, Bottom BorderSide
}

type Alignment struct {
	Horizontal string
	Vertical   string
	Wrap       bool
}

// Style is an immutable bundle of presentation attributes. Cells share
// Style pointers; a Style must not be modified once a cell refers to it.
type Style struct {
	Font      *Font
	Fill      Fill
	Border    Border
	Alignment Alignment
	// NumFmt is the number format code; empty means General.
	NumFmt string
}

// StyleKey is the content identity of a Style.
type StyleKey struct {
	Font      Font
	Fill      Fill
	Border    Border
	Alignment Alignment
	NumFmt    string
}

// Key returns the comparable content key of s.
func (s *Style) Key() StyleKey {
	k := StyleKey{Fill: s.Fill, Border: s.Border, Alignment: s.Alignment, NumFmt: s.NumFmt}
	if s.Font != nil {
		k.Font = *s.Font
	}
	return k
}

// Equivalent reports whether two styles compare equal field by field.
func (s *Style) Equivalent(o *Style) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Key() == o.Key()
}

// IsDefault reports whether s carries no visible formatting beyond the
// font, which every cell has.
func (s *Style) IsDefault() bool {
	if s == nil {
		return true
	}
	noFill := s.Fill.Pattern == "" || s.Fill.Pattern == PatternNone
	return noFill && s.Border == (Border{}) && s.Alignment == (Alignment{}) && s.NumFmt == ""
}

// Theme holds the base colors of a document theme in SpreadsheetML theme
// index order: lt1, dk1, lt2, dk2, accent1..accent6, hlink, folHlink.
type Theme struct {
	Colors []RGB
}
