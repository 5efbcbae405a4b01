package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRow_Flatten(t *testing.T) {
	// カラム順を保ったまま "名前: 値 | ..." 形式に整形する
	row := Row{
		Table: "schedule",
		ID:    1,
		Fields: []Field{
			{Name: "id", Value: int64(1)},
			{Name: "title", Value: "팀 회의"},
			{Name: "location", Value: "회의실 A"},
		},
	}

	assert.Equal(t, "id: 1 | title: 팀 회의 | location: 회의실 A", row.Flatten())
}

func TestRow_Flatten_SkipsNilValues(t *testing.T) {
	row := Row{
		Fields: []Field{
			{Name: "id", Value: int64(2)},
			{Name: "memo", Value: nil},
			{Name: "title", Value: "저녁 약속"},
		},
	}

	assert.Equal(t, "id: 2 | title: 저녁 약속", row.Flatten())
}

func TestRow_Flatten_FormatsTime(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	row := Row{
		Fields: []Field{
			{Name: "created_at", Value: ts},
		},
	}

	assert.Equal(t, "created_at: 2025-03-01T09:30:00Z", row.Flatten())
}

func TestRow_Flatten_Empty(t *testing.T) {
	assert.Equal(t, "", Row{}.Flatten())
}
