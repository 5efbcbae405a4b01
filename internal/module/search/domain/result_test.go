package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_JSONFlattening(t *testing.T) {
	// 既知フィールドとExtraが1つのフラットなオブジェクトに畳み込まれる
	userID := int64(7)
	meta := Metadata{
		Table:      "schedule",
		RowID:      42,
		ChunkIndex: 1,
		ChunkCount: 2,
		UserID:     &userID,
		CreatedAt:  "2025-06-01T00:00:00Z",
		Text:       "회의 일정",
		Extra:      map[string]any{"priority": "high"},
	}

	data, err := json.Marshal(meta)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "schedule", payload["table"])
	assert.Equal(t, float64(42), payload["row_id"])
	assert.Equal(t, float64(2), payload["total_chunks"])
	assert.Equal(t, float64(7), payload["user_id"])
	assert.Equal(t, "high", payload["priority"]) // Extraは同じ階層に展開される

	var decoded Metadata
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, meta.Table, decoded.Table)
	assert.Equal(t, meta.RowID, decoded.RowID)
	require.NotNil(t, decoded.UserID)
	assert.Equal(t, int64(7), *decoded.UserID)
	assert.Equal(t, "high", decoded.Extra["priority"])
}

func TestMetadata_UnmarshalUnknownFieldsIntoExtra(t *testing.T) {
	// 想定外のフィールドはExtraに退避され、失われない
	data := []byte(`{"table":"habit","row_id":3,"text":"아침 운동","mood":"good","streak":12}`)

	var meta Metadata
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, "habit", meta.Table)
	assert.Equal(t, int64(3), meta.RowID)
	assert.Equal(t, "good", meta.Extra["mood"])
	assert.Equal(t, float64(12), meta.Extra["streak"])
	assert.Nil(t, meta.UserID) // user_idがなければnilのまま
}
