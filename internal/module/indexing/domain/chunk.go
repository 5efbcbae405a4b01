// Package domain はインデキシングモジュールのドメインモデルを提供します
package domain

// チャンク分割のデフォルト設定
// 埋め込みモデルの入力上限に対して余裕を持たせた文字数ベースの分割
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunk はレコードテキストの分割単位を表します
type Chunk struct {
	// Index はレコード内でのチャンク番号（0始まり）
	Index int

	// Count はレコード全体のチャンク数
	Count int

	// Text はチャンクの本文
	Text string
}

// SplitText はテキストを文字数ベースで重複付きに分割する
//
// マルチバイト文字を壊さないようruneで数える。sizeが0以下なら
// デフォルト値を使い、overlapがsize以上なら無限ループを避けるため
// size-1に丸める。空文字列は空スライスを返す
func SplitText(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return []Chunk{}
	}

	var texts []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		texts = append(texts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{
			Index: i,
			Count: len(texts),
			Text:  t,
		}
	}
	return chunks
}
