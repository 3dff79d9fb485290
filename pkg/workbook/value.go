package workbook

import "strconv"

type ValueKind uint8

const (
	KindEmpty ValueKind = iota
	KindText
	KindNumber
	KindBoolean
	KindFormula
	// KindError holds an error code such as "#DIV/0!". It appears as the
	// cached result of a formula or as a plain error cell in a package.
	KindError
)

// Value is the content of a cell. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Value struct {
	Kind    ValueKind
	Text    string
	Number  float64
	Bool    bool
	Formula string
	// Cached is the last computed result of a formula; nil when the
	// producer never stored one.
	Cached *Value
}

var Empty = Value{}

func Text(s string) Value { return Value{Kind: KindText, Text: s} }

func Number(f float64) Value { return Value{Kind: KindNumber, Number: f} }

func Bool(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

func ErrorValue(code string) Value { return Value{Kind: KindError, Text: code} }

var errorCodes = map[string]bool{
	"#NULL!":        true,
	"#DIV/0!":       true,
	"#VALUE!":       true,
	"#REF!":         true,
	"#NAME?":        true,
	"#NUM!":         true,
	"#N/A":          true,
	"#GETTING_DATA": true,
}

// IsErrorCode reports whether s is one of the spreadsheet error literals.
func IsErrorCode(s string) bool { return errorCodes[s] }

// Formula builds a formula value. The text is stored without a leading '='.
func Formula(text string, cached *Value) Value {
	if len(text) > 0 && text[0] == '=' {
		text = text[1:]
	}
	return Value{Kind: KindFormula, Formula: text, Cached: cached}
}

// IsEmpty reports whether v carries nothing to display or compute.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindEmpty:
		return true
	case KindText:
		return v.Text == ""
	}
	return false
}

// String returns a plain textual form of v, used for diagnostics and
// lookups rather than presentation.
func (v Value) String() string {
	switch v.Kind {
	case KindText, KindError:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindBoolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindFormula:
		return "=" + v.Formula
	}
	return ""
}
