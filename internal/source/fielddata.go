package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/locvowork/sheet_aggregator/internal/domain"
	"github.com/locvowork/sheet_aggregator/pkg/fielddata"
)

// DatastorePrefix selects Datastore as the field data source.
const DatastorePrefix = "datastore:"

// JSONFieldProvider loads a JSON field payload through a fetcher.
type JSONFieldProvider struct {
	Fetcher domain.Fetcher
}

func (p JSONFieldProvider) Load(ctx context.Context, ref string) (*fielddata.Payload, error) {
	data, err := p.Fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	return fielddata.Parse(data)
}

// ProcessFieldStore lists stored process fields, optionally restricted
// to some process ids.
type ProcessFieldStore interface {
	ProcessFields(ctx context.Context, processIDs []string) ([]domain.ProcessField, error)
}

// DatastoreFieldProvider assembles the payload from ProcessField
// entities. The ref is "datastore:" optionally followed by
// comma-separated process ids.
type DatastoreFieldProvider struct {
	Store ProcessFieldStore
}

func (p DatastoreFieldProvider) Load(ctx context.Context, ref string) (*fielddata.Payload, error) {
	var ids []string
	for _, id := range strings.Split(strings.TrimPrefix(ref, DatastorePrefix), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	fields, err := p.Store.ProcessFields(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load process fields: %w", err)
	}
	return AssemblePayload(fields), nil
}

// AssemblePayload groups fields into records by process id and number.
// Records keep the order of their first field; fields are ordered by
// Position.
func AssemblePayload(fields []domain.ProcessField) *fielddata.Payload {
	type key struct{ id, no string }
	type positioned struct {
		pos   int
		field fielddata.Field
	}
	index := make(map[key]int)
	var records []fielddata.Record
	var pending [][]positioned

	for _, f := range fields {
		k := key{f.ProcessID, f.ProcessNo}
		i, ok := index[k]
		if !ok {
			i = len(records)
			index[k] = i
			records = append(records, fielddata.Record{ProcessID: f.ProcessID, ProcessNo: f.ProcessNo})
			pending = append(pending, nil)
		}
		if records[i].ProcessName == "" {
			records[i].ProcessName = f.ProcessName
		}
		if f.Name == "" {
			continue
		}
		value := json.RawMessage(f.Value)
		if !json.Valid(value) {
			// plain text stored without JSON quoting
			value, _ = json.Marshal(f.Value)
		}
		pending[i] = append(pending[i], positioned{pos: f.Position, field: fielddata.Field{Name: f.Name, Value: value}})
	}

	for i, ps := range pending {
		sort.SliceStable(ps, func(a, b int) bool { return ps[a].pos < ps[b].pos })
		for _, p := range ps {
			records[i].Fields = append(records[i].Fields, p.field)
		}
	}
	return &fielddata.Payload{Records: records}
}
