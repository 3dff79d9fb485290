package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/sheet_aggregator/internal/domain"
	"github.com/locvowork/sheet_aggregator/internal/source"
)

type memStore struct {
	saved []domain.ProcessField
}

func (m *memStore) BatchSaveProcessFields(_ context.Context, fields []domain.ProcessField) error {
	m.saved = append(m.saved, fields...)
	return nil
}

func (m *memStore) DeleteAll(context.Context) (int, error) {
	n := len(m.saved)
	m.saved = nil
	return n, nil
}

func (m *memStore) ProcessFields(context.Context, []string) ([]domain.ProcessField, error) {
	return m.saved, nil
}

func TestSeedPayload_RoundTripsThroughProvider(t *testing.T) {
	store := &memStore{}
	n, err := NewDataSeeder(store).SeedPayload(context.Background(), []byte(`{"processes":[
		{"processId":"P1","processNo":"1","processName":"Cut","Operator":"Kim","Length":12.5},
		{"processId":"P2","processNo":"3","processName":"Weld"}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	payload, err := source.DatastoreFieldProvider{Store: store}.Load(context.Background(), source.DatastorePrefix)
	require.NoError(t, err)
	require.Len(t, payload.Records, 2)
	assert.Equal(t, "Operator", payload.Records[0].Fields[0].Name)
	assert.Equal(t, "Length", payload.Records[0].Fields[1].Name)
	assert.Equal(t, "Weld", payload.Records[1].ProcessName)
	assert.Empty(t, payload.Records[1].Fields)

	cleared, err := NewDataSeeder(store).ClearData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, cleared)
}

func TestSeedPayload_Invalid(t *testing.T) {
	_, err := NewDataSeeder(&memStore{}).SeedPayload(context.Background(), []byte(`"nope"`))
	assert.Error(t, err)
}
