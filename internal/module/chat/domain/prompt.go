package domain

import (
	"fmt"
	"sort"
	"strings"

	searchdomain "github.com/jinford/assist-rag/internal/module/search/domain"
)

// プロンプト構築の既定値
const (
	// maxHistoryTurns はプロンプトに含める直近の履歴ターン数
	maxHistoryTurns = 3

	// DefaultMaxPromptTokens はプロンプト全体のトークン予算
	DefaultMaxPromptTokens = 3000
)

// TokenCounter はテキストのトークン数を数える
type TokenCounter interface {
	Count(text string) int
}

// PromptBuilder は検索結果と会話履歴から生成プロンプトを組み立てます
type PromptBuilder struct {
	counter   TokenCounter
	maxTokens int
}

// PromptOption はPromptBuilderの設定オプション
type PromptOption func(*PromptBuilder)

// WithMaxTokens はプロンプト全体のトークン予算を上書きします
func WithMaxTokens(n int) PromptOption {
	return func(b *PromptBuilder) {
		if n > 0 {
			b.maxTokens = n
		}
	}
}

// NewPromptBuilder は新しいPromptBuilderを作成します
func NewPromptBuilder(counter TokenCounter, opts ...PromptOption) *PromptBuilder {
	b := &PromptBuilder{
		counter:   counter,
		maxTokens: DefaultMaxPromptTokens,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build はプロンプトを組み立てる
//
// 履歴があれば「이전 대화」節を含むテンプレート、なければ参考情報のみの
// テンプレートを使う。履歴は直近3ターンを古い順に並べる。参考情報は
// スコア降順に並べ、トークン予算を超えた分は切り捨てる
func (b *PromptBuilder) Build(query string, history []Turn, context []searchdomain.SearchResult) string {
	var sb strings.Builder

	sb.WriteString("당신은 사용자의 일정과 습관을 관리하는 개인 비서입니다.\n")
	sb.WriteString("아래 참고 정보를 바탕으로 질문에 답변해주세요.\n")
	sb.WriteString("정보에 없는 내용은 지어내지 말고 모른다고 답해주세요.\n\n")

	if len(history) > 0 {
		sb.WriteString("[이전 대화]\n")
		sb.WriteString(b.formatHistory(history))
		sb.WriteString("\n")
	}

	sb.WriteString("[참고 정보]\n")
	sb.WriteString(b.formatContext(context, sb.String()+query))
	sb.WriteString("\n[질문]\n")
	sb.WriteString(query)
	sb.WriteString("\n\n[답변]\n")

	return sb.String()
}

// formatHistory は直近maxHistoryTurnsターンを古い順に整形する
func (b *PromptBuilder) formatHistory(history []Turn) string {
	start := len(history) - maxHistoryTurns
	if start < 0 {
		start = 0
	}

	var sb strings.Builder
	for _, turn := range history[start:] {
		label := "사용자"
		if turn.Role == RoleAssistant {
			label = "비서"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", label, turn.Content))
	}
	return sb.String()
}

// formatContext は検索結果をスコア降順で「[テーブル名] 本文」形式に整形する
// トークン予算を超える項目以降は切り捨てる
func (b *PromptBuilder) formatContext(context []searchdomain.SearchResult, prefix string) string {
	if len(context) == 0 {
		return "(참고할 정보가 없습니다)\n"
	}

	sorted := make([]searchdomain.SearchResult, len(context))
	copy(sorted, context)
	sort.SliceStable(sorted, func(i, j int) bool {
		return contextScore(sorted[i]) > contextScore(sorted[j])
	})

	budget := b.maxTokens
	if b.counter != nil {
		budget -= b.counter.Count(prefix)
	}

	var sb strings.Builder
	used := 0
	for _, result := range sorted {
		line := fmt.Sprintf("[%s] %s\n", result.Metadata.Table, contextText(result))

		if b.counter != nil {
			tokens := b.counter.Count(line)
			if used+tokens > budget {
				break
			}
			used += tokens
		}

		sb.WriteString(line)
	}

	if sb.Len() == 0 {
		return "(참고할 정보가 없습니다)\n"
	}
	return sb.String()
}

// contextText は表示用テキストを返す。翻訳済みチャンクは原文を優先する
func contextText(r searchdomain.SearchResult) string {
	if r.Metadata.OriginalText != "" {
		return r.Metadata.OriginalText
	}
	return r.Metadata.Text
}

func contextScore(r searchdomain.SearchResult) float64 {
	if r.RankingScore != 0 {
		return r.RankingScore
	}
	return r.Score
}
