package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"

	searchdomain "github.com/jinford/assist-rag/internal/module/search/domain"
)

// IssueKind は応答検証で検出される問題の種別
type IssueKind string

const (
	IssueTooShort      IssueKind = "too_short"
	IssueTooLong       IssueKind = "too_long"
	IssueIncomplete    IssueKind = "incomplete"
	IssueHallucination IssueKind = "hallucination"
	IssueContradiction IssueKind = "contradiction"
)

// Issue は検出された問題1件
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

// Validation は応答検証の結果
// 問題があってもハードエラーにはならず、結果として呼び出し元へ返る
type Validation struct {
	IsValid bool    `json:"is_valid"`
	Issues  []Issue `json:"issues,omitempty"`
}

// 応答長の許容範囲（文字数）
const (
	minResponseLength = 10
	maxResponseLength = 2000
)

// numberPattern は4桁以上の数値トークン（ハルシネーション検査対象）
var numberPattern = regexp.MustCompile(`\d{4,}`)

// contradictionPatterns は同一応答内での矛盾を示す言い回し
var contradictionPatterns = []string{
	"하지만 동시에",
	"그러나 또한",
	"아니면서 맞",
}

// Validator はLLM応答の妥当性を検査します
type Validator struct{}

// NewValidator は新しいValidatorを作成します
func NewValidator() *Validator {
	return &Validator{}
}

// Validate は応答を検査して問題の一覧を返す
//
// ハルシネーション検査は応答中の4桁以上の数値が参照コンテキストの
// どこにも現れない場合に疑いありと判定する
func (v *Validator) Validate(response string, context []searchdomain.SearchResult) Validation {
	var issues []Issue

	trimmed := strings.TrimSpace(response)
	length := utf8.RuneCountInString(trimmed)

	if length < minResponseLength {
		issues = append(issues, Issue{
			Kind:    IssueTooShort,
			Message: "응답이 너무 짧습니다",
		})
	}
	if length > maxResponseLength {
		issues = append(issues, Issue{
			Kind:    IssueTooLong,
			Message: "응답이 너무 깁니다",
		})
	}
	if length > 0 && !endsWithTerminalPunctuation(trimmed) {
		issues = append(issues, Issue{
			Kind:    IssueIncomplete,
			Message: "응답이 완결되지 않았습니다",
		})
	}

	if kind, ok := v.checkHallucination(trimmed, context); ok {
		issues = append(issues, kind)
	}

	for _, pattern := range contradictionPatterns {
		if strings.Contains(trimmed, pattern) {
			issues = append(issues, Issue{
				Kind:    IssueContradiction,
				Message: "응답에 모순된 표현이 있습니다: " + pattern,
			})
			break
		}
	}

	return Validation{
		IsValid: len(issues) == 0,
		Issues:  issues,
	}
}

// ShouldRetry は再生成を試みるべきかを判定する
//
// too_short / incomplete だけの場合は再試行しない。それ以外の種別が
// 1つでも含まれていれば再試行の対象になる
func ShouldRetry(issues []Issue) bool {
	for _, issue := range issues {
		switch issue.Kind {
		case IssueTooShort, IssueIncomplete:
			continue
		default:
			return true
		}
	}
	return false
}

func (v *Validator) checkHallucination(response string, context []searchdomain.SearchResult) (Issue, bool) {
	numbers := numberPattern.FindAllString(response, -1)
	if len(numbers) == 0 {
		return Issue{}, false
	}

	var contextText strings.Builder
	for _, r := range context {
		contextText.WriteString(r.Metadata.Text)
		contextText.WriteString("\n")
		contextText.WriteString(r.Metadata.OriginalText)
		contextText.WriteString("\n")
	}
	combined := contextText.String()

	for _, num := range numbers {
		if !strings.Contains(combined, num) {
			return Issue{
				Kind:    IssueHallucination,
				Message: "참고 정보에 없는 숫자가 포함되어 있습니다: " + num,
			}, true
		}
	}

	return Issue{}, false
}

// endsWithTerminalPunctuation は文末が終止記号で終わっているかを返す
// 末尾が省略記号の場合は未完結とみなす
func endsWithTerminalPunctuation(s string) bool {
	if strings.HasSuffix(s, "...") || strings.HasSuffix(s, "…") {
		return false
	}

	last, _ := utf8.DecodeLastRuneInString(s)
	switch last {
	case '.', '!', '?':
		return true
	}
	return false
}
