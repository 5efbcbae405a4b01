package domain

import "errors"

var (
	// ErrEmptyQuery は検索クエリが空の場合のエラー
	ErrEmptyQuery = errors.New("query is required")

	// ErrEmbeddingFailed はクエリEmbedding生成に失敗した場合のエラー
	ErrEmbeddingFailed = errors.New("failed to embed query")

	// ErrVectorSearchFailed はベクトル検索に失敗した場合のエラー
	ErrVectorSearchFailed = errors.New("vector search failed")
)
