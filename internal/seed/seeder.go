// Package seed loads field data payloads into Datastore.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/locvowork/sheet_aggregator/internal/domain"
	"github.com/locvowork/sheet_aggregator/internal/logger"
	"github.com/locvowork/sheet_aggregator/pkg/fielddata"
)

// FieldStore is the write side of the process field storage.
type FieldStore interface {
	BatchSaveProcessFields(ctx context.Context, fields []domain.ProcessField) error
	DeleteAll(ctx context.Context) (int, error)
}

type DataSeeder struct {
	store FieldStore
}

func NewDataSeeder(store FieldStore) *DataSeeder {
	return &DataSeeder{store: store}
}

// Flatten turns a payload into one entity per record attribute. Records
// without attributes still get an entity so their name is kept.
func Flatten(p *fielddata.Payload) []domain.ProcessField {
	var out []domain.ProcessField
	for _, rec := range p.Records {
		base := domain.ProcessField{ProcessID: rec.ProcessID, ProcessNo: rec.ProcessNo, ProcessName: rec.ProcessName}
		if len(rec.Fields) == 0 {
			out = append(out, base)
			continue
		}
		for i, f := range rec.Fields {
			pf := base
			pf.Name = f.Name
			pf.Value = string(f.Value)
			pf.Position = i
			out = append(out, pf)
		}
	}
	return out
}

// SeedPayload decodes data and stores its records.
func (ds *DataSeeder) SeedPayload(ctx context.Context, data []byte) (int, error) {
	start := time.Now()
	payload, err := fielddata.Parse(data)
	if err != nil {
		return 0, err
	}
	fields := Flatten(payload)
	if err := ds.store.BatchSaveProcessFields(ctx, fields); err != nil {
		return 0, fmt.Errorf("failed to insert process fields: %w", err)
	}
	logger.InfoLog(ctx, "seeded %d records as %d process fields in %v", len(payload.Records), len(fields), time.Since(start))
	return len(fields), nil
}

func (ds *DataSeeder) ClearData(ctx context.Context) (int, error) {
	n, err := ds.store.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete process fields: %w", err)
	}
	logger.InfoLog(ctx, "deleted %d process fields", n)
	return n, nil
}
