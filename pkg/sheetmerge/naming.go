package sheetmerge

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

const fallbackSheetName = "Sheet"

// UniqueName returns base, or base with the smallest "_n" suffix that is
// not taken. The result never exceeds 31 characters: base is truncated
// first, and again when a suffix would push it over the limit.
func UniqueName(base string, taken func(string) bool) string {
	if base == "" {
		base = fallbackSheetName
	}
	base = truncateRunes(base, workbook.MaxSheetNameLength)
	if !taken(base) {
		return base
	}
	for n := 1; ; n++ {
		suffix := "_" + strconv.Itoa(n)
		stem := truncateRunes(base, workbook.MaxSheetNameLength-len(suffix))
		if candidate := stem + suffix; !taken(candidate) {
			return candidate
		}
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

var invalidSheetChars = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// SanitizeName replaces characters a sheet name cannot hold and strips
// the apostrophes it cannot start or end with.
func SanitizeName(name string) string {
	name = invalidSheetChars.Replace(strings.TrimSpace(name))
	return strings.Trim(name, "'")
}

// NamingPolicy derives output sheet names for one source entry. Results
// pass through SanitizeName and UniqueName afterwards.
type NamingPolicy interface {
	SheetName(original string, src Source) string
	FieldSheetName(marker string, src Source) string
}

// DefaultNaming prefixes names with the rename hint ("Proc1_Summary") and
// tags repeated process entries with their duplicate index ("Proc1_Summary(2)").
type DefaultNaming struct{}

func (DefaultNaming) SheetName(original string, src Source) string {
	return qualify(src.RenameHint, original, src.DuplicateIndex)
}

func (DefaultNaming) FieldSheetName(marker string, src Source) string {
	return qualify(src.RenameHint, marker, src.DuplicateIndex)
}

func qualify(hint, name string, dup int) string {
	if hint != "" {
		name = hint + "_" + name
	}
	if dup > 0 {
		name += "(" + strconv.Itoa(dup) + ")"
	}
	return name
}

// nameSet tracks output sheet names case-insensitively, the way
// spreadsheet applications compare them.
type nameSet map[string]struct{}

func newNameSet(names ...string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s.add(n)
	}
	return s
}

func (s nameSet) add(name string) { s[strings.ToLower(name)] = struct{}{} }

func (s nameSet) taken(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

// claim resolves base to a free name and reserves it.
func (s nameSet) claim(base string) string {
	name := UniqueName(SanitizeName(base), s.taken)
	s.add(name)
	return name
}
