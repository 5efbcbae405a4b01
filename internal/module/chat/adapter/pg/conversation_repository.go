// Package pg は会話の永続化アダプターです
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/assist-rag/internal/module/chat/domain"
)

// ConversationRepository はchat / chat_historyテーブルへの書き込み実装
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository は新しいConversationRepositoryを作成します
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// EnsureSchema は会話テーブルを作成します
func (r *ConversationRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS chat (
			id BIGSERIAL PRIMARY KEY,
			chat_id TEXT NOT NULL UNIQUE,
			user_id BIGINT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS chat_history (
			id BIGSERIAL PRIMARY KEY,
			chat_id TEXT NOT NULL,
			session_key TEXT NOT NULL,
			message_type TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS chat_history_session_idx
			ON chat_history (session_key, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure conversation schema: %w", err)
		}
	}

	return nil
}

// SaveTurns はターン一式を1トランザクションで保存する
// domain.ConversationRepositoryインターフェースを実装
func (r *ConversationRepository) SaveTurns(ctx context.Context, turns []domain.PersistedTurn) ([]int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]int64, 0, len(turns))
	for _, turn := range turns {
		var id int64
		err := tx.QueryRow(ctx,
			`INSERT INTO chat_history (chat_id, session_key, message_type, content, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			turn.ChatID, turn.SessionKey, string(turn.MessageType), turn.Content, turn.CreatedAt,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert conversation turn: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit conversation turns: %w", err)
	}

	return ids, nil
}

// SaveSummary はセッション要約を保存する。同一chatIDは上書きされる
// domain.ConversationRepositoryインターフェースを実装
func (r *ConversationRepository) SaveSummary(ctx context.Context, chatID string, userID int64, summary string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO chat (chat_id, user_id, summary, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (chat_id)
		 DO UPDATE SET summary = EXCLUDED.summary, updated_at = now()
		 RETURNING id`,
		chatID, userID, summary,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save chat summary: %w", err)
	}

	return id, nil
}

// インターフェース実装の確認
var _ domain.ConversationRepository = (*ConversationRepository)(nil)
