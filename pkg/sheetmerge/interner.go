package sheetmerge

import (
	"github.com/locvowork/sheet_aggregator/pkg/palette"
	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

// Interner deduplicates styles and fonts in a target document by content.
// One Interner serves one aggregation run and is not safe for concurrent
// use.
type Interner struct {
	target *workbook.Document
	styles map[workbook.StyleKey]*workbook.Style
	fonts  map[workbook.Font]*workbook.Font
}

// NewInterner indexes the styles and fonts target already owns.
func NewInterner(target *workbook.Document) *Interner {
	in := &Interner{
		target: target,
		styles: make(map[workbook.StyleKey]*workbook.Style, len(target.Styles)),
		fonts:  make(map[workbook.Font]*workbook.Font, len(target.Fonts)),
	}
	for _, f := range target.Fonts {
		if _, ok := in.fonts[*f]; !ok {
			in.fonts[*f] = f
		}
	}
	for _, s := range target.Styles {
		if _, ok := in.styles[s.Key()]; !ok {
			in.styles[s.Key()] = s
		}
	}
	return in
}

// Font returns the target font equal to f, adding it when new.
func (in *Interner) Font(f workbook.Font) *workbook.Font {
	if got, ok := in.fonts[f]; ok {
		return got
	}
	got := in.target.AddFont(f)
	in.fonts[f] = got
	return got
}

// Style returns the target style equivalent to s, adding a copy when new.
// s.Font must already belong to the target.
func (in *Interner) Style(s workbook.Style) *workbook.Style {
	key := s.Key()
	if got, ok := in.styles[key]; ok {
		return got
	}
	st := s
	got := in.target.AddStyle(&st)
	in.styles[key] = got
	return got
}

// Len returns the number of distinct styles in the target.
func (in *Interner) Len() int { return len(in.styles) }

// Scope returns a cache for cells of src. Source styles are recognised by
// identity, which is only meaningful inside their own document.
func (in *Interner) Scope(src *workbook.Document) *Scope {
	return &Scope{
		in:     in,
		src:    src,
		styles: make(map[*workbook.Style]*workbook.Style),
		fonts:  make(map[*workbook.Font]*workbook.Font),
	}
}

// Scope maps the styles of one source document onto the target.
type Scope struct {
	in     *Interner
	src    *workbook.Document
	styles map[*workbook.Style]*workbook.Style
	fonts  map[*workbook.Font]*workbook.Font
	misses int
}

// Style returns the target style for a source style. Colors are resolved
// against the source document so that indexed and themed colors keep
// their appearance under the target's palette and theme.
func (sc *Scope) Style(src *workbook.Style) *workbook.Style {
	if src == nil {
		src = sc.src.DefaultStyle
	}
	if got, ok := sc.styles[src]; ok {
		return got
	}
	st := workbook.Style{
		Font: sc.Font(src.Font),
		Fill: workbook.Fill{
			Pattern: src.Fill.Pattern,
			Fg:      sc.color(src.Fill.Fg),
			Bg:      sc.color(src.Fill.Bg),
		},
		Border: workbook.Border{
			Left:   sc.side(src.Border.Left),
			Right:  sc.side(src.Border.Right),
			Top:    sc.side(src.Border.Top),
			Bottom: sc.side(src.Border.Bottom),
		},
		Alignment: src.Alignment,
		NumFmt:    src.NumFmt,
	}
	got := sc.in.Style(st)
	sc.styles[src] = got
	return got
}

// Font returns the target font for a source font.
func (sc *Scope) Font(src *workbook.Font) *workbook.Font {
	if src == nil {
		if sc.src.DefaultStyle != nil && sc.src.DefaultStyle.Font != nil {
			src = sc.src.DefaultStyle.Font
		} else {
			return sc.in.Font(workbook.Font{Name: "Calibri", Size: 11})
		}
	}
	if got, ok := sc.fonts[src]; ok {
		return got
	}
	f := *src
	f.Color = sc.color(src.Color)
	got := sc.in.Font(f)
	sc.fonts[src] = got
	return got
}

// Misses returns how many set colors failed to resolve in this scope.
func (sc *Scope) Misses() int { return sc.misses }

func (sc *Scope) color(c workbook.Color) workbook.Color {
	if !c.IsSet() || c.Kind == workbook.ColorIndexed && c.Index == palette.Automatic {
		return workbook.NoColor
	}
	out := palette.Canonical(c, sc.src)
	if !out.IsSet() {
		sc.misses++
	}
	return out
}

func (sc *Scope) side(s workbook.BorderSide) workbook.BorderSide {
	if s.Kind == workbook.BorderNone {
		return workbook.BorderSide{}
	}
	return workbook.BorderSide{Kind: s.Kind, Color: sc.color(s.Color)}
}
