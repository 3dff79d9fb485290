// Package fielddata decodes the per-process field payload that feeds the
// synthetic field sheet of an aggregated workbook.
package fielddata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

var ErrInvalidPayload = errors.New("invalid field data payload")

// collection keys accepted for the record list of an object payload
var collectionKeys = []string{"processes", "records", "data"}

// Field is one attribute of a record, kept as raw JSON until it is placed
// in a cell.
type Field struct {
	Name  string
	Value json.RawMessage
}

// StringField builds a field holding a JSON string.
func StringField(name, value string) Field {
	raw, _ := json.Marshal(value)
	return Field{Name: name, Value: raw}
}

// NumberField builds a field holding a JSON number.
func NumberField(name string, value float64) Field {
	return Field{Name: name, Value: json.RawMessage(strconv.FormatFloat(value, 'f', -1, 64))}
}

// Record is one process entry. Fields holds every attribute other than the
// identifying ones, in payload order.
type Record struct {
	ProcessID   string
	ProcessNo   string
	ProcessName string
	Fields      []Field
}

// Payload is the decoded record collection.
type Payload struct {
	Records []Record
}

// Parse decodes either {"processes": [...]} or a bare array of records.
// Attribute order inside each record is preserved.
func Parse(data []byte) (*Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidPayload)
	}
	var items []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	case '{':
		var top map[string]json.RawMessage
		if err := json.Unmarshal(data, &top); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		raw, ok := lookupCollection(top)
		if !ok {
			return nil, fmt.Errorf("%w: no record collection", ErrInvalidPayload)
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: record collection: %v", ErrInvalidPayload, err)
		}
	default:
		return nil, fmt.Errorf("%w: expected object or array", ErrInvalidPayload)
	}

	p := &Payload{Records: make([]Record, 0, len(items))}
	for i, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidPayload, i, err)
		}
		p.Records = append(p.Records, rec)
	}
	return p, nil
}

func lookupCollection(top map[string]json.RawMessage) (json.RawMessage, bool) {
	for _, want := range collectionKeys {
		for k, v := range top {
			if strings.EqualFold(k, want) {
				return v, true
			}
		}
	}
	return nil, false
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return Record{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Record{}, errors.New("record is not an object")
	}
	var rec Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Record{}, err
		}
		key, _ := tok.(string)
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return Record{}, fmt.Errorf("attribute %q: %w", key, err)
		}
		switch normalizeKey(key) {
		case "processid":
			rec.ProcessID = scalarString(val)
		case "processno", "processnumber":
			rec.ProcessNo = scalarString(val)
		case "processname":
			rec.ProcessName = scalarString(val)
		default:
			rec.Fields = append(rec.Fields, Field{Name: key, Value: val})
		}
	}
	return rec, nil
}

func normalizeKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

// scalarString renders a JSON scalar as plain text: strings are unquoted,
// numbers and booleans keep their literal form, null is empty.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if raw[0] == '{' || raw[0] == '[' {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String()
		}
	}
	return string(raw)
}

// Match returns the records whose process identifier and number equal the
// given ones exactly.
func (p *Payload) Match(processID, processNo string) []Record {
	if p == nil {
		return nil
	}
	var out []Record
	for _, r := range p.Records {
		if r.ProcessID == processID && r.ProcessNo == processNo {
			out = append(out, r)
		}
	}
	return out
}

// CellValue converts the field value for a sheet cell: JSON numbers and
// numeric strings become numbers, null becomes empty and everything else
// is text.
func (f Field) CellValue() workbook.Value {
	raw := bytes.TrimSpace(f.Value)
	if len(raw) == 0 || string(raw) == "null" {
		return workbook.Empty
	}
	switch c := raw[0]; {
	case c == '-' || (c >= '0' && c <= '9'):
		if n, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return workbook.Number(n)
		}
	case c == '"':
		s := scalarString(raw)
		if n, ok := numericString(s); ok {
			return workbook.Number(n)
		}
		return workbook.Text(s)
	}
	return workbook.Text(scalarString(raw))
}

// numericString accepts plain decimal text. Zero-padded codes such as
// "007" stay text.
func numericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	digits := strings.TrimPrefix(s, "-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}
