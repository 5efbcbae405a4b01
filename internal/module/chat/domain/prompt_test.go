package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	searchdomain "github.com/jinford/assist-rag/internal/module/search/domain"
)

// fakeCounter は1文字=1トークンとして数える
type fakeCounter struct{}

func (fakeCounter) Count(text string) int { return len([]rune(text)) }

func contextResult(table, text string, score float64) searchdomain.SearchResult {
	return searchdomain.SearchResult{
		Score:        score,
		RankingScore: score,
		Metadata:     searchdomain.Metadata{Table: table, Text: text},
	}
}

func TestPromptBuilder_Build_WithoutHistory(t *testing.T) {
	// 履歴がなければ「이전 대화」節は含まれない
	builder := NewPromptBuilder(fakeCounter{})

	prompt := builder.Build("내일 일정 알려줘", nil, []searchdomain.SearchResult{
		contextResult("schedule", "팀 회의 10시", 0.9),
	})

	assert.NotContains(t, prompt, "[이전 대화]")
	assert.Contains(t, prompt, "[참고 정보]")
	assert.Contains(t, prompt, "[schedule] 팀 회의 10시")
	assert.Contains(t, prompt, "[질문]\n내일 일정 알려줘")
}

func TestPromptBuilder_Build_WithHistory(t *testing.T) {
	builder := NewPromptBuilder(fakeCounter{})

	history := []Turn{
		{Role: RoleUser, Content: "오늘 뭐하지"},
		{Role: RoleAssistant, Content: "오전에 회의가 있습니다"},
	}

	prompt := builder.Build("그 다음은?", history, nil)

	assert.Contains(t, prompt, "[이전 대화]")
	assert.Contains(t, prompt, "사용자: 오늘 뭐하지")
	assert.Contains(t, prompt, "비서: 오전에 회의가 있습니다")
}

func TestPromptBuilder_Build_HistoryWindow(t *testing.T) {
	// 履歴は直近3ターンのみ、古い順に並ぶ
	builder := NewPromptBuilder(fakeCounter{})

	history := []Turn{
		{Role: RoleUser, Content: "turn1"},
		{Role: RoleAssistant, Content: "turn2"},
		{Role: RoleUser, Content: "turn3"},
		{Role: RoleAssistant, Content: "turn4"},
		{Role: RoleUser, Content: "turn5"},
	}

	prompt := builder.Build("질문", history, nil)

	assert.NotContains(t, prompt, "turn1")
	assert.NotContains(t, prompt, "turn2")
	assert.Contains(t, prompt, "turn3")
	assert.Contains(t, prompt, "turn5")
	// 古い順
	assert.Less(t, strings.Index(prompt, "turn3"), strings.Index(prompt, "turn5"))
}

func TestPromptBuilder_Build_ContextSortedByScore(t *testing.T) {
	builder := NewPromptBuilder(fakeCounter{})

	prompt := builder.Build("질문", nil, []searchdomain.SearchResult{
		contextResult("diet", "샐러드", 0.3),
		contextResult("schedule", "회의", 0.9),
	})

	assert.Less(t, strings.Index(prompt, "[schedule]"), strings.Index(prompt, "[diet]"))
}

func TestPromptBuilder_Build_PrefersOriginalText(t *testing.T) {
	// 翻訳済みチャンクはユーザーの言語の原文を使う
	builder := NewPromptBuilder(fakeCounter{})

	result := searchdomain.SearchResult{
		Score: 0.9,
		Metadata: searchdomain.Metadata{
			Table:        "schedule",
			Text:         "team meeting at 10",
			OriginalText: "10시 팀 회의",
		},
	}

	prompt := builder.Build("질문", nil, []searchdomain.SearchResult{result})
	assert.Contains(t, prompt, "10시 팀 회의")
	assert.NotContains(t, prompt, "team meeting at 10")
}

func TestPromptBuilder_Build_TokenBudgetTruncatesContext(t *testing.T) {
	// 予算を超えた低スコアの項目は切り捨てられる
	builder := NewPromptBuilder(fakeCounter{})

	long := strings.Repeat("가", DefaultMaxPromptTokens)
	prompt := builder.Build("질문", nil, []searchdomain.SearchResult{
		contextResult("schedule", "회의 10시", 0.9),
		contextResult("diet", long, 0.5),
	})

	assert.Contains(t, prompt, "회의 10시")
	assert.NotContains(t, prompt, long)
}

func TestPromptBuilder_Build_EmptyContext(t *testing.T) {
	builder := NewPromptBuilder(fakeCounter{})

	prompt := builder.Build("질문", nil, nil)
	assert.Contains(t, prompt, "(참고할 정보가 없습니다)")
}
