package domain

import (
	"fmt"
	"strings"
	"time"
)

// Style は応答の整形スタイル
type Style string

const (
	StyleDefault  Style = "default"
	StyleSimple   Style = "simple"
	StyleDetailed Style = "detailed"
	StyleMarkdown Style = "markdown"
)

// ParseStyle は文字列をStyleに変換する。未知の値はdefault扱い
func ParseStyle(s string) Style {
	switch Style(s) {
	case StyleSimple, StyleDetailed, StyleMarkdown:
		return Style(s)
	default:
		return StyleDefault
	}
}

// FormatInput は整形に必要な情報
type FormatInput struct {
	Content        string
	Sources        []string
	Validation     Validation
	ProcessingTime time.Duration
}

// Formatter は応答をスタイルに応じた最終形へ整形します
type Formatter struct{}

// NewFormatter は新しいFormatterを作成します
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format は指定スタイルで応答を整形する
func (f *Formatter) Format(style Style, input FormatInput) string {
	switch style {
	case StyleSimple:
		return input.Content

	case StyleDetailed:
		var sb strings.Builder
		sb.WriteString(input.Content)
		if len(input.Sources) > 0 {
			sb.WriteString("\n\n출처: ")
			sb.WriteString(strings.Join(input.Sources, ", "))
		}
		sb.WriteString(fmt.Sprintf("\n처리 시간: %.2f초", input.ProcessingTime.Seconds()))
		if !input.Validation.IsValid {
			sb.WriteString(fmt.Sprintf("\n검증: 문제 %d건", len(input.Validation.Issues)))
		}
		return sb.String()

	case StyleMarkdown:
		var sb strings.Builder
		sb.WriteString("## 답변\n\n")
		sb.WriteString(input.Content)
		if len(input.Sources) > 0 {
			sb.WriteString("\n\n### 출처\n")
			for _, source := range input.Sources {
				sb.WriteString("- ")
				sb.WriteString(source)
				sb.WriteString("\n")
			}
		}
		return strings.TrimRight(sb.String(), "\n")

	default:
		if len(input.Sources) == 0 {
			return input.Content
		}
		return fmt.Sprintf("%s\n\n출처: %s", input.Content, strings.Join(input.Sources, ", "))
	}
}
