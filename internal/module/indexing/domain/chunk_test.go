package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_ShortText(t *testing.T) {
	// サイズ以下のテキストは1チャンクのまま
	chunks := SplitText("짧은 텍스트", DefaultChunkSize, DefaultChunkOverlap)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].Count)
	assert.Equal(t, "짧은 텍스트", chunks[0].Text)
}

func TestSplitText_Empty(t *testing.T) {
	assert.Empty(t, SplitText("", DefaultChunkSize, DefaultChunkOverlap))
}

func TestSplitText_OverlapBetweenChunks(t *testing.T) {
	// 隣接チャンクはoverlap文字分重複する
	text := strings.Repeat("a", 80) + strings.Repeat("b", 80)
	chunks := SplitText(text, 100, 20)

	require.Len(t, chunks, 2)
	assert.Len(t, []rune(chunks[0].Text), 100)
	// 2つ目は位置80から始まる（100 - 20）
	assert.Equal(t, chunks[0].Text[80:], chunks[1].Text[:20])
	assert.Equal(t, 2, chunks[0].Count)
	assert.Equal(t, 1, chunks[1].Index)
}

func TestSplitText_MultibyteRunes(t *testing.T) {
	// 文字数はruneで数え、マルチバイト文字を分断しない
	text := strings.Repeat("가", 150)
	chunks := SplitText(text, 100, 0)

	require.Len(t, chunks, 2)
	assert.Equal(t, 100, len([]rune(chunks[0].Text)))
	assert.Equal(t, 50, len([]rune(chunks[1].Text)))
	for _, c := range chunks {
		assert.True(t, strings.HasPrefix(c.Text, "가"))
	}
}

func TestSplitText_InvalidConfigNormalized(t *testing.T) {
	// overlap >= size は size-1 に丸めて無限ループを避ける
	text := strings.Repeat("x", 30)
	chunks := SplitText(text, 10, 50)
	assert.NotEmpty(t, chunks)
	assert.Equal(t, chunks[0].Count, len(chunks))

	// size <= 0 はデフォルト値を使う
	chunks = SplitText("hello", 0, 0)
	require.Len(t, chunks, 1)
}

func TestSplitText_ExactBoundary(t *testing.T) {
	// サイズちょうどのテキストは1チャンクで終わる
	text := strings.Repeat("z", 100)
	chunks := SplitText(text, 100, 20)
	require.Len(t, chunks, 1)
}
