package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogDecodeData(t *testing.T) {
	entry := AuditLog{ID: 4, RawData: []byte(`{"status":"Completed","administered":8}`)}
	require.NoError(t, entry.DecodeData())
	assert.Equal(t, "Completed", entry.Data["status"])
	assert.Equal(t, float64(8), entry.Data["administered"])

	empty := AuditLog{ID: 5}
	require.NoError(t, empty.DecodeData())
	assert.Nil(t, empty.Data)

	broken := AuditLog{ID: 6, RawData: []byte(`{"status":`)}
	err := broken.DecodeData()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit log 6 has malformed data")
}
