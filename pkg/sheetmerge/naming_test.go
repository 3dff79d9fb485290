package sheetmerge

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func takenIn(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(s string) bool { return set[s] }
}

func TestUniqueName_Free(t *testing.T) {
	assert.Equal(t, "Summary", UniqueName("Summary", takenIn("Data")))
}

func TestUniqueName_Suffixes(t *testing.T) {
	assert.Equal(t, "A_1", UniqueName("A", takenIn("A")))
	assert.Equal(t, "A_2", UniqueName("A", takenIn("A", "A_1")))
	assert.Equal(t, "A_3", UniqueName("A", takenIn("A", "A_1", "A_2")))
}

func TestUniqueName_TruncatesToLimit(t *testing.T) {
	long := strings.Repeat("x", 40)
	assert.Equal(t, strings.Repeat("x", 31), UniqueName(long, takenIn()))

	taken := takenIn(strings.Repeat("x", 31))
	got := UniqueName(long, taken)
	assert.Equal(t, strings.Repeat("x", 29)+"_1", got)
	assert.Len(t, got, 31)

	// a two-digit suffix shortens the stem further
	existing := []string{strings.Repeat("x", 31)}
	for n := 1; n <= 9; n++ {
		existing = append(existing, strings.Repeat("x", 29)+"_"+string(rune('0'+n)))
	}
	got = UniqueName(long, takenIn(existing...))
	assert.Equal(t, strings.Repeat("x", 28)+"_10", got)
}

func TestUniqueName_Properties(t *testing.T) {
	bases := []string{"", "A", "Data", strings.Repeat("é", 35), strings.Repeat("Sheet", 7)}
	for _, base := range bases {
		existing := []string{base, base + "_1", truncateRunes(base, 31)}
		taken := takenIn(existing...)

		first := UniqueName(base, taken)
		second := UniqueName(base, taken)
		assert.Equal(t, first, second, "deterministic for %q", base)
		assert.LessOrEqual(t, utf8.RuneCountInString(first), 31)
		assert.False(t, taken(first), "%q is already taken", first)
		assert.NotEmpty(t, first)
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeName("a/b:c"))
	assert.Equal(t, "Quoted", SanitizeName("'Quoted'"))
	assert.Equal(t, "x_y_", SanitizeName(" x[y] "))
}

func TestDefaultNaming(t *testing.T) {
	var p DefaultNaming
	assert.Equal(t, "Proc1_DATAIN", p.FieldSheetName("DATAIN", Source{RenameHint: "Proc1"}))
	assert.Equal(t, "Proc1_Summary", p.SheetName("Summary", Source{RenameHint: "Proc1"}))
	assert.Equal(t, "Summary", p.SheetName("Summary", Source{}))
	assert.Equal(t, "P_Summary(2)", p.SheetName("Summary", Source{RenameHint: "P", DuplicateIndex: 2}))
}

func TestNameSet_CaseInsensitive(t *testing.T) {
	s := newNameSet("Data")
	assert.True(t, s.taken("DATA"))
	assert.Equal(t, "data_1", s.claim("data"))
	assert.True(t, s.taken("Data_1"))
}
