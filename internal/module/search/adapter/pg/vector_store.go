// Package pg はpgvectorを使ったベクトルインデックスの永続化アダプターです
package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/assist-rag/internal/module/search/domain"
)

// VectorStore はpgvectorテーブルをベクトルインデックスとして使う実装
type VectorStore struct {
	pool      *pgxpool.Pool
	dimension int
}

// NewVectorStore は新しいVectorStoreを作成します
func NewVectorStore(pool *pgxpool.Pool, dimension int) *VectorStore {
	return &VectorStore{
		pool:      pool,
		dimension: dimension,
	}
}

// EnsureSchema はvector拡張とベクトルテーブルを作成します
func (s *VectorStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rag_vectors (
			id UUID PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS rag_vectors_embedding_idx
			ON rag_vectors USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS rag_vectors_record_idx
			ON rag_vectors ((payload->>'table'), (payload->>'row_id'))`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure vector schema: %w", err)
		}
	}

	return nil
}

// Upsert はベクトルとペイロードの組を追加する
// domain.VectorStoreインターフェースを実装
func (s *VectorStore) Upsert(ctx context.Context, vectors [][]float32, payloads []domain.Metadata) (domain.UpsertResult, error) {
	if len(vectors) == 0 {
		return domain.UpsertResult{}, nil
	}
	if len(vectors) != len(payloads) {
		return domain.UpsertResult{}, fmt.Errorf("vectors and payloads length mismatch: %d != %d", len(vectors), len(payloads))
	}

	batch := &pgx.Batch{}
	ids := make([]string, 0, len(vectors))

	for i, vec := range vectors {
		id := uuid.New().String()
		ids = append(ids, id)

		payloadJSON, err := json.Marshal(payloads[i])
		if err != nil {
			return domain.UpsertResult{}, fmt.Errorf("failed to marshal payload: %w", err)
		}

		batch.Queue(
			`INSERT INTO rag_vectors (id, embedding, payload) VALUES ($1, $2, $3)`,
			id, pgvector.NewVector(vec), payloadJSON,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range vectors {
		if _, err := results.Exec(); err != nil {
			return domain.UpsertResult{}, fmt.Errorf("failed to insert vectors: %w", err)
		}
	}

	return domain.UpsertResult{Inserted: len(ids), IDs: ids}, nil
}

// Search はコサイン類似度の降順でtopK件を返す
// domain.VectorStoreインターフェースを実装
func (s *VectorStore) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, payload, 1 - (embedding <=> $1) AS score
		 FROM rag_vectors
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(vector), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var (
			id          uuid.UUID
			payloadJSON []byte
			score       float64
		)
		if err := rows.Scan(&id, &payloadJSON, &score); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}

		var meta domain.Metadata
		if err := json.Unmarshal(payloadJSON, &meta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		results = append(results, domain.SearchResult{
			ID:       id.String(),
			Score:    score,
			Metadata: meta,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search rows: %w", err)
	}

	return results, nil
}

// DeleteByRecord は (table, rowID) に紐づく全ベクトルを削除する
// domain.VectorStoreインターフェースを実装
func (s *VectorStore) DeleteByRecord(ctx context.Context, table string, rowID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM rag_vectors
		 WHERE payload->>'table' = $1 AND (payload->>'row_id')::bigint = $2`,
		table, rowID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete vectors for %s/%d: %w", table, rowID, err)
	}

	return nil
}

// DeleteAll は全ベクトルを削除する
// domain.VectorStoreインターフェースを実装
func (s *VectorStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE rag_vectors`); err != nil {
		return fmt.Errorf("failed to truncate vectors: %w", err)
	}

	return nil
}

// Count は保持しているベクトル数を返す
// domain.VectorStoreインターフェースを実装
func (s *VectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM rag_vectors`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}

	return count, nil
}

// インターフェース実装の確認
var _ domain.VectorStore = (*VectorStore)(nil)
