package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	searchdomain "github.com/jinford/assist-rag/internal/module/search/domain"
)

func TestProcessor_Process_Redaction(t *testing.T) {
	p := NewProcessor()

	result := p.Process("비밀번호는 1234입니다.", nil)
	assert.True(t, result.Redacted)
	assert.NotContains(t, result.Content, "비밀번호")
	assert.Contains(t, result.Content, "***")
}

func TestProcessor_Process_NoRedactionNeeded(t *testing.T) {
	p := NewProcessor()

	result := p.Process("내일 회의가 있습니다.", nil)
	assert.False(t, result.Redacted)
	assert.Equal(t, "내일 회의가 있습니다.", result.Content)
}

func TestProcessor_Process_LengthCap(t *testing.T) {
	p := NewProcessor()

	long := strings.Repeat("가", 2000)
	result := p.Process(long, nil)
	assert.True(t, result.Truncated)
	assert.Equal(t, maxProcessedLength+3, utf8.RuneCountInString(result.Content)) // "..." 付き
	assert.True(t, strings.HasSuffix(result.Content, "..."))
}

func TestProcessor_Process_Sources(t *testing.T) {
	// 出典はスコア順の上位から重複排除して最大3件
	p := NewProcessor()

	context := []searchdomain.SearchResult{
		{Metadata: searchdomain.Metadata{Table: "schedule"}},
		{Metadata: searchdomain.Metadata{Table: "schedule"}},
		{Metadata: searchdomain.Metadata{Table: "habit"}},
		{Metadata: searchdomain.Metadata{Table: "diet"}},
		{Metadata: searchdomain.Metadata{Table: "transaction"}},
	}

	result := p.Process("답변입니다.", context)
	assert.Equal(t, []string{"schedule", "habit", "diet"}, result.Sources)
}

func TestProcessor_Process_EmptyContext(t *testing.T) {
	p := NewProcessor()

	result := p.Process("답변입니다.", nil)
	assert.Empty(t, result.Sources)
}
