package domain

import (
	"strings"
	"unicode/utf8"

	searchdomain "github.com/jinford/assist-rag/internal/module/search/domain"
)

// redactionKeywords は応答に含めてはいけない機微情報のキーワード
var redactionKeywords = []string{
	"비밀번호",
	"주민등록번호",
	"계좌번호",
	"계좌정보",
	"카드번호",
	"공인인증서",
}

// redactionMask はキーワードの置換文字列
const redactionMask = "***"

// maxProcessedLength は後処理での応答文字数上限
const maxProcessedLength = 1500

// maxSources は出典注記の最大件数
const maxSources = 3

// ProcessedResponse は後処理済みの応答
type ProcessedResponse struct {
	Content   string
	Sources   []string // 重複排除済みの出典テーブル名（上位3件）
	Truncated bool
	Redacted  bool
}

// Processor はLLM応答の後処理（伏せ字・長さ制限・出典注記）を行います
type Processor struct{}

// NewProcessor は新しいProcessorを作成します
func NewProcessor() *Processor {
	return &Processor{}
}

// Process は応答に伏せ字処理と長さ制限を適用し、出典を抽出する
func (p *Processor) Process(response string, context []searchdomain.SearchResult) ProcessedResponse {
	processed := ProcessedResponse{Content: response}

	for _, keyword := range redactionKeywords {
		if strings.Contains(processed.Content, keyword) {
			processed.Content = strings.ReplaceAll(processed.Content, keyword, redactionMask)
			processed.Redacted = true
		}
	}

	if utf8.RuneCountInString(processed.Content) > maxProcessedLength {
		runes := []rune(processed.Content)
		processed.Content = string(runes[:maxProcessedLength]) + "..."
		processed.Truncated = true
	}

	processed.Sources = extractSources(context)

	return processed
}

// extractSources はスコア上位から重複排除した出典テーブル名を集める
func extractSources(context []searchdomain.SearchResult) []string {
	seen := make(map[string]struct{})
	var sources []string

	for _, r := range context {
		table := r.Metadata.Table
		if table == "" {
			continue
		}
		if _, ok := seen[table]; ok {
			continue
		}
		seen[table] = struct{}{}
		sources = append(sources, table)
		if len(sources) >= maxSources {
			break
		}
	}

	return sources
}
