package domain

import (
	"context"
	"time"
)

// PersistedTurn は永続化される会話ターン
// 永続層は書き込み専用で、メモリ上の履歴へ読み戻されることはない
type PersistedTurn struct {
	ChatID      string
	SessionKey  string
	MessageType Role
	Content     string
	CreatedAt   time.Time
}

// ConversationRepository は会話の永続化を行います
type ConversationRepository interface {
	// SaveTurns は1ターン分のユーザー発話と応答を1トランザクションで保存し、
	// 挿入されたIDを返す。失敗時は全体がロールバックされる
	SaveTurns(ctx context.Context, turns []PersistedTurn) ([]int64, error)

	// SaveSummary はセッション要約を保存して行IDを返す
	// 同一chatIDの要約は置き換えられる
	SaveSummary(ctx context.Context, chatID string, userID int64, summary string) (int64, error)
}
