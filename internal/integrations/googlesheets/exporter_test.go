package googlesheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockValues struct {
	mock.Mock
}

func (m *MockValues) Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) (int64, error) {
	args := m.Called(spreadsheetID, writeRange, values)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockValues) Clear(ctx context.Context, spreadsheetID, clearRange string) error {
	args := m.Called(spreadsheetID, clearRange)
	return args.Error(0)
}

func TestWriteTablePrependsHeader(t *testing.T) {
	values := new(MockValues)
	values.On("Clear", "sheet-1", "Inventory!A1:J").Return(nil)
	values.On("Update", "sheet-1", "Inventory!A1:J", [][]interface{}{
		{"Barangay", "Vaccine"},
		{"San Isidro", "BCG"},
	}).Return(int64(4), nil)

	exporter := newExporter(values, "sheet-1", "Inventory!A1:J", zap.NewNop())
	exporter.now = func() time.Time { return time.Date(2025, 4, 7, 8, 0, 0, 0, time.UTC) }

	result, err := exporter.WriteTable(context.Background(), []interface{}{"Barangay", "Vaccine"}, [][]interface{}{{"San Isidro", "BCG"}})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, int64(4), result.UpdatedCells)
	assert.Equal(t, time.Date(2025, 4, 7, 8, 0, 0, 0, time.UTC), result.ExportedAt)
	values.AssertExpectations(t)
}

func TestWriteTableStopsWhenClearFails(t *testing.T) {
	values := new(MockValues)
	values.On("Clear", mock.Anything, mock.Anything).Return(errors.New("403 forbidden"))

	_, err := newExporter(values, "sheet-1", "A1:J", zap.NewNop()).WriteTable(context.Background(), nil, nil)

	assert.ErrorContains(t, err, "could not clear spreadsheet range")
	values.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}
