package adapter

import (
	"fmt"

	"github.com/jinford/assist-rag/internal/module/llm/domain"
	"github.com/pkoukk/tiktoken-go"
)

// TiktokenCounter はtiktokenエンコーダによるトークンカウンタ
type TiktokenCounter struct {
	encoder *tiktoken.Tiktoken
}

// NewTiktokenCounter は新しいTiktokenCounterを作成します
// cl100k_baseエンコーダを使用（text-embedding-3-small / gpt-4o系と互換）
func NewTiktokenCounter() (*TiktokenCounter, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	return &TiktokenCounter{encoder: encoder}, nil
}

// Count はテキストのトークン数を返す
func (t *TiktokenCounter) Count(text string) int {
	return len(t.encoder.Encode(text, nil, nil))
}

var _ domain.TokenCounter = (*TiktokenCounter)(nil)
