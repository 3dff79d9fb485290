package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

func themedDoc() *workbook.Document {
	doc := workbook.New()
	doc.Theme = &workbook.Theme{Colors: []workbook.RGB{
		{0xFF, 0xFF, 0xFF}, // lt1
		{0x00, 0x00, 0x00}, // dk1
		{0xEE, 0xEC, 0xE1}, // lt2
		{0x1F, 0x49, 0x7D}, // dk2
		{0x4F, 0x81, 0xBD}, // accent1
	}}
	return doc
}

func TestResolve_RGB(t *testing.T) {
	rgb, ok := Resolve(workbook.RGBColor(1, 2, 3), nil)
	require.True(t, ok)
	assert.Equal(t, workbook.RGB{1, 2, 3}, rgb)
}

func TestResolve_Indexed(t *testing.T) {
	cases := map[int]workbook.RGB{
		8:  {0x00, 0x00, 0x00},
		9:  {0xFF, 0xFF, 0xFF},
		10: {0xFF, 0x00, 0x00},
		11: {0x00, 0xFF, 0x00},
		12: {0x00, 0x00, 0xFF},
		13: {0xFF, 0xFF, 0x00},
		22: {0xC0, 0xC0, 0xC0},
		63: {0x33, 0x33, 0x33},
	}
	for idx, want := range cases {
		got, ok := Resolve(workbook.IndexedColor(idx), nil)
		require.True(t, ok, idx)
		assert.Equal(t, want, got, idx)
	}
}

func TestResolve_IndexedAutomaticIsNoColor(t *testing.T) {
	assert.NotPanics(t, func() {
		_, ok := Resolve(workbook.IndexedColor(64), workbook.New())
		assert.False(t, ok)
	})
	_, ok := Resolve(workbook.IndexedColor(-1), nil)
	assert.False(t, ok)
	_, ok = Resolve(workbook.IndexedColor(200), nil)
	assert.False(t, ok)
}

func TestResolve_IndexedCustomPalette(t *testing.T) {
	doc := workbook.New()
	doc.Palette = []workbook.RGB{{1, 1, 1}, {2, 2, 2}}

	got, ok := Resolve(workbook.IndexedColor(1), doc)
	require.True(t, ok)
	assert.Equal(t, workbook.RGB{2, 2, 2}, got)

	_, ok = Resolve(workbook.IndexedColor(5), doc)
	assert.False(t, ok)
}

func TestResolve_Themed(t *testing.T) {
	doc := themedDoc()

	got, ok := Resolve(workbook.ThemedColor(4, 0), doc)
	require.True(t, ok)
	assert.Equal(t, workbook.RGB{0x4F, 0x81, 0xBD}, got)

	// 40% lighter: c + (255-c)*0.4
	got, ok = Resolve(workbook.ThemedColor(4, 0.4), doc)
	require.True(t, ok)
	assert.Equal(t, workbook.RGB{0x95, 0xB3, 0xD7}, got)

	// 25% darker white is BFBFBF
	got, ok = Resolve(workbook.ThemedColor(0, -0.25), doc)
	require.True(t, ok)
	assert.Equal(t, workbook.RGB{0xBF, 0xBF, 0xBF}, got)

	_, ok = Resolve(workbook.ThemedColor(11, 0), doc)
	assert.False(t, ok)
}

func TestResolve_ThemedWithoutThemeFallsBackToWhite(t *testing.T) {
	doc := workbook.New()
	got, ok := Resolve(workbook.ThemedColor(3, -0.5), doc)
	require.True(t, ok)
	assert.Equal(t, White, got)
}

func TestResolve_None(t *testing.T) {
	_, ok := Resolve(workbook.NoColor, themedDoc())
	assert.False(t, ok)
	assert.Equal(t, Black, ResolveOr(workbook.NoColor, nil, Black))
	assert.Equal(t, workbook.NoColor, Canonical(workbook.IndexedColor(64), nil))
	assert.Equal(t, workbook.RGBColor(0xFF, 0, 0), Canonical(workbook.IndexedColor(10), nil))
}

func TestApplyTint_Clamps(t *testing.T) {
	base := workbook.RGB{100, 100, 100}
	assert.Equal(t, White, ApplyTint(base, 5))
	assert.Equal(t, Black, ApplyTint(base, -5))
	assert.Equal(t, base, ApplyTint(base, 0))
}

func TestFormatting(t *testing.T) {
	rgb := workbook.RGB{0x1F, 0x49, 0x7D}
	assert.Equal(t, "1F497D", Hex(rgb))
	assert.Equal(t, "#1f497d", CSS(rgb))

	hex, ok := ColorFunc(workbook.IndexedColor(12), nil)
	require.True(t, ok)
	assert.Equal(t, "0000FF", hex)

	parsed, ok := ParseHex("FF1F497D")
	require.True(t, ok)
	assert.Equal(t, rgb, parsed)
	assert.True(t, IsWhite(White))
}
