package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/datastore"

	"github.com/locvowork/sheet_aggregator/internal/domain"
)

// DatastoreClient wraps the cloud datastore client for ProcessField
// entities.
type DatastoreClient struct {
	client *datastore.Client
	kind   string
}

// NewDatastoreClient connects to projectID. kind names the entity kind
// holding process fields.
func NewDatastoreClient(ctx context.Context, projectID, kind string) (*DatastoreClient, error) {
	client, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}
	return WrapDatastoreClient(client, kind), nil
}

// WrapDatastoreClient wraps existing datastore client
func WrapDatastoreClient(client *datastore.Client, kind string) *DatastoreClient {
	if client == nil {
		return nil
	}
	if kind == "" {
		kind = "ProcessField"
	}
	return &DatastoreClient{client: client, kind: kind}
}

// fieldKey is stable per process and attribute, so re-seeding overwrites.
func (dc *DatastoreClient) fieldKey(f domain.ProcessField) *datastore.Key {
	return datastore.NameKey(dc.kind, fmt.Sprintf("%s-%s-%s", f.ProcessID, f.ProcessNo, f.Name), nil)
}

// maxBatch is the Datastore limit on entities per multi-put.
const maxBatch = 500

// BatchSaveProcessFields upserts fields in chunks.
func (dc *DatastoreClient) BatchSaveProcessFields(ctx context.Context, fields []domain.ProcessField) error {
	if dc == nil || dc.client == nil {
		return fmt.Errorf("datastore client is nil")
	}
	for start := 0; start < len(fields); start += maxBatch {
		end := start + maxBatch
		if end > len(fields) {
			end = len(fields)
		}
		chunk := fields[start:end]
		keys := make([]*datastore.Key, len(chunk))
		for i := range chunk {
			keys[i] = dc.fieldKey(chunk[i])
		}
		if _, err := dc.client.PutMulti(ctx, keys, chunk); err != nil {
			return fmt.Errorf("failed to save process fields: %w", err)
		}
	}
	return nil
}

// ProcessFields returns the stored fields of the given processes, or of
// all processes when ids is empty.
func (dc *DatastoreClient) ProcessFields(ctx context.Context, ids []string) ([]domain.ProcessField, error) {
	if dc == nil || dc.client == nil {
		return nil, fmt.Errorf("datastore client is nil")
	}
	if len(ids) == 0 {
		var result []domain.ProcessField
		q := datastore.NewQuery(dc.kind).Order("ProcessID").Order("ProcessNo").Order("Position")
		if _, err := dc.client.GetAll(ctx, q, &result); err != nil {
			return nil, err
		}
		return result, nil
	}

	var all []domain.ProcessField
	for _, id := range ids {
		var result []domain.ProcessField
		q := datastore.NewQuery(dc.kind).FilterField("ProcessID", "=", id)
		if _, err := dc.client.GetAll(ctx, q, &result); err != nil {
			return nil, err
		}
		all = append(all, result...)
	}
	return all, nil
}

// DeleteAll removes every entity of the kind.
func (dc *DatastoreClient) DeleteAll(ctx context.Context) (int, error) {
	if dc == nil || dc.client == nil {
		return 0, fmt.Errorf("datastore client is nil")
	}
	keys, err := dc.client.GetAll(ctx, datastore.NewQuery(dc.kind).KeysOnly(), nil)
	if err != nil {
		return 0, err
	}
	for start := 0; start < len(keys); start += maxBatch {
		end := start + maxBatch
		if end > len(keys) {
			end = len(keys)
		}
		if err := dc.client.DeleteMulti(ctx, keys[start:end]); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

// Close releases the underlying connection.
func (dc *DatastoreClient) Close() error {
	if dc == nil || dc.client == nil {
		return nil
	}
	return dc.client.Close()
}
