package domain

import "context"

// UpsertResult はベクトル追加の結果
type UpsertResult struct {
	// Inserted は追加されたベクトル数
	Inserted int

	// IDs は採番されたベクトルポイントのID
	IDs []string
}

// VectorStore はベクトルインデックスの外部コラボレータを抽象化するインターフェース
// インデックス内部のデータ構造（HNSW等）はこの層からは関知しない
type VectorStore interface {
	// Upsert はベクトルとペイロードの組を追加する
	Upsert(ctx context.Context, vectors [][]float32, payloads []Metadata) (UpsertResult, error)

	// Search はクエリベクトルに類似するベクトルを類似度降順で返す
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)

	// DeleteByRecord は (table, rowID) に紐づく全ベクトルを削除する
	DeleteByRecord(ctx context.Context, table string, rowID int64) error

	// DeleteAll は全ベクトルを削除する
	DeleteAll(ctx context.Context) error

	// Count は保持しているベクトル数を返す
	Count(ctx context.Context) (int64, error)
}
