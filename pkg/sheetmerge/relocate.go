package sheetmerge

import (
	"regexp"
	"sort"
	"strings"

	"github.com/xuri/efp"
)

// Relocate rewrites the sheet qualifiers of formula according to renames
// (old name to new name). Sheet names compare case-insensitively, as they
// do in formulas. Text inside string literals is left alone unless the
// literal is the reference text handed straight to INDIRECT, where only
// its leading qualifier is rewritten. An unquoted qualifier only matches
// at the start of a reference, so a rename of "Old" leaves "XOld!A1" alone. A quoted qualifier stays quoted;
// an unquoted one is quoted only when the new name requires it.
//
// The second result reports whether the text changed.
func Relocate(formula string, renames map[string]string) (string, bool) {
	if formula == "" || len(renames) == 0 {
		return formula, false
	}
	prefix := ""
	body := formula
	if strings.HasPrefix(body, "=") {
		prefix, body = "=", body[1:]
	}
	hits := referencedRenames(body, renames)
	if len(hits) == 0 {
		return formula, false
	}
	out := rewriteQualifiers(body, hits)
	if out == body {
		return formula, false
	}
	return prefix + out, true
}

// referencedRenames tokenizes the formula and keeps the renames whose old
// name qualifies at least one range operand or INDIRECT text argument.
// Keys are lower-cased.
func referencedRenames(formula string, renames map[string]string) map[string]string {
	byLower := make(map[string]string, len(renames))
	for from, to := range renames {
		if from != to {
			byLower[strings.ToLower(from)] = to
		}
	}
	if len(byLower) == 0 {
		return nil
	}
	ps := efp.ExcelParser()
	hits := make(map[string]string)
	var prev efp.Token
	for _, tok := range ps.Parse(formula) {
		if tok.TType == efp.TokenTypeWhitespace {
			continue
		}
		before := prev
		prev = tok
		if tok.TType != efp.TokenTypeOperand {
			continue
		}
		if tok.TSubType != efp.TokenSubTypeRange && !(tok.TSubType == efp.TokenSubTypeText && isIndirectStart(before)) {
			continue
		}
		sheet, ok := sheetOf(tok.TValue)
		if !ok {
			continue
		}
		key := strings.ToLower(sheet)
		if to, ok := byLower[key]; ok {
			hits[key] = to
		}
	}
	return hits
}

// sheetOf extracts the sheet name from a qualified reference such as
// Data!A1 or 'Q3 Data'!A1:B2. Doubled quotes inside the name are
// unescaped.
func sheetOf(ref string) (string, bool) {
	if strings.HasPrefix(ref, "'") {
		name, n, ok := readQuoted(ref)
		if !ok || n >= len(ref) || ref[n] != '!' {
			return "", false
		}
		return name, true
	}
	name, _, ok := strings.Cut(ref, "!")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// readQuoted reads a single-quoted name at the start of s, undoubling
// embedded quotes. n is the byte length consumed including both quotes.
func readQuoted(s string) (name string, n int, ok bool) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return b.String(), i + 1, true
	}
	return "", 0, false
}

func rewriteQualifiers(formula string, hits map[string]string) string {
	// longest names first so "Data2" wins over "Data"
	olds := make([]string, 0, len(hits))
	for k := range hits {
		olds = append(olds, k)
	}
	sort.Slice(olds, func(i, j int) bool {
		if len(olds[i]) != len(olds[j]) {
			return len(olds[i]) > len(olds[j])
		}
		return olds[i] < olds[j]
	})

	var b strings.Builder
	b.Grow(len(formula) + 16)
	for i := 0; i < len(formula); {
		switch c := formula[i]; {
		case c == '"':
			end := stringLiteralEnd(formula, i)
			lit := formula[i:end]
			if indirectArg(formula[:i]) {
				lit = relocateLiteral(lit, olds, hits)
			}
			b.WriteString(lit)
			i = end
		case c == '\'':
			name, n, ok := readQuoted(formula[i:])
			if ok && i+n < len(formula) && formula[i+n] == '!' {
				if to, hit := hits[strings.ToLower(name)]; hit {
					b.WriteString(quoteName(to))
					b.WriteByte('!')
					i += n + 1
					continue
				}
			}
			if !ok {
				b.WriteString(formula[i:])
				return b.String()
			}
			b.WriteString(formula[i : i+n])
			i += n
		case atBoundary(formula, i):
			if old, to, ok := matchUnquoted(formula[i:], olds, hits); ok {
				b.WriteString(Qualifier(to))
				b.WriteByte('!')
				i += len(old) + 1
				continue
			}
			b.WriteByte(c)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// stringLiteralEnd returns the index just past the literal starting at
// formula[start], honouring doubled quotes.
func stringLiteralEnd(formula string, start int) int {
	for i := start + 1; i < len(formula); i++ {
		if formula[i] != '"' {
			continue
		}
		if i+1 < len(formula) && formula[i+1] == '"' {
			i++
			continue
		}
		return i + 1
	}
	return len(formula)
}

func isIndirectStart(tok efp.Token) bool {
	return tok.TType == efp.TokenTypeFunction && tok.TSubType == efp.TokenSubTypeStart &&
		strings.EqualFold(tok.TValue, "INDIRECT")
}

// indirectArg reports whether a literal following before is the first
// argument of INDIRECT.
func indirectArg(before string) bool {
	before = strings.TrimRight(before, " ")
	if !strings.HasSuffix(before, "(") {
		return false
	}
	before = before[:len(before)-1]
	const fn = "INDIRECT"
	if len(before) < len(fn) || !strings.EqualFold(before[len(before)-len(fn):], fn) {
		return false
	}
	return atBoundary(before, len(before)-len(fn))
}

// relocateLiteral rewrites the leading qualifier of a quoted reference
// text such as "'Data'!B2". Anything else comes back unchanged.
func relocateLiteral(lit string, olds []string, hits map[string]string) string {
	if len(lit) < 2 || lit[len(lit)-1] != '"' {
		return lit
	}
	text := strings.ReplaceAll(lit[1:len(lit)-1], `""`, `"`)
	if strings.HasPrefix(text, "'") {
		name, n, ok := readQuoted(text)
		if !ok || n >= len(text) || text[n] != '!' {
			return lit
		}
		to, hit := hits[strings.ToLower(name)]
		if !hit {
			return lit
		}
		text = quoteName(to) + text[n:]
	} else {
		old, to, ok := matchUnquoted(text, olds, hits)
		if !ok {
			return lit
		}
		text = Qualifier(to) + text[len(old):]
	}
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

func atBoundary(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isNameByte(s[i-1])
}

func isNameByte(c byte) bool {
	return c == '_' || c == '.' || c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= 0x80
}

func matchUnquoted(s string, olds []string, hits map[string]string) (string, string, bool) {
	for _, old := range olds {
		if len(s) <= len(old) || s[len(old)] != '!' {
			continue
		}
		if strings.EqualFold(s[:len(old)], old) {
			return old, hits[old], true
		}
	}
	return "", "", false
}

var (
	plainName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	cellLike  = regexp.MustCompile(`^(?i:[a-z]{1,3}[0-9]+|r[0-9]*c[0-9]*|r|c)$`)
)

// Qualifier returns the reference prefix for a sheet name without the
// trailing '!': the bare name when formulas accept it, otherwise the
// quoted form.
func Qualifier(name string) string {
	if plainName.MatchString(name) && !cellLike.MatchString(name) && !isBoolName(name) {
		return name
	}
	return quoteName(name)
}

func isBoolName(name string) bool {
	return strings.EqualFold(name, "TRUE") || strings.EqualFold(name, "FALSE")
}

func quoteName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
