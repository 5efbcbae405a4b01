package domain

import (
	"encoding/json"
	"fmt"
)

// Metadata はベクトルに紐づくペイロードを表します
// 既知のフィールドを型付きで持ち、想定外のフィールドはExtraに保持する
type Metadata struct {
	// Table はチャンクの由来テーブル名
	Table string

	// RowID は由来レコードのID
	RowID int64

	// ChunkIndex はレコード内でのチャンク番号（0始まり）
	ChunkIndex int

	// ChunkCount はレコード全体のチャンク数
	ChunkCount int

	// UserID はレコードが特定ユーザーに紐づく場合のユーザーID
	UserID *int64

	// CreatedAt は由来レコードの作成日時（ISO 8601文字列）
	CreatedAt string

	// Text はEmbedding対象となったチャンクテキスト
	// 翻訳が有効な場合は翻訳後のテキスト
	Text string

	// OriginalText は翻訳前の原文（翻訳が有効な場合のみ）
	OriginalText string

	// Extra は既知フィールド以外のペイロード
	Extra map[string]any
}

// ペイロードJSONの既知キー
const (
	metaKeyTable        = "table"
	metaKeyRowID        = "row_id"
	metaKeyChunkIndex   = "chunk_index"
	metaKeyChunkCount   = "total_chunks"
	metaKeyUserID       = "user_id"
	metaKeyCreatedAt    = "created_at"
	metaKeyText         = "text"
	metaKeyOriginalText = "original_text"
)

// MarshalJSON は既知フィールドとExtraをフラットな1つのJSONオブジェクトに畳み込む
func (m Metadata) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, len(m.Extra)+8)
	for k, v := range m.Extra {
		payload[k] = v
	}

	payload[metaKeyTable] = m.Table
	payload[metaKeyRowID] = m.RowID
	payload[metaKeyChunkIndex] = m.ChunkIndex
	payload[metaKeyChunkCount] = m.ChunkCount
	payload[metaKeyText] = m.Text

	if m.UserID != nil {
		payload[metaKeyUserID] = *m.UserID
	}
	if m.CreatedAt != "" {
		payload[metaKeyCreatedAt] = m.CreatedAt
	}
	if m.OriginalText != "" {
		payload[metaKeyOriginalText] = m.OriginalText
	}

	return json.Marshal(payload)
}

// UnmarshalJSON はフラットなJSONオブジェクトから既知フィールドを抽出し、
// 残りをExtraに退避する
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal metadata payload: %w", err)
	}

	*m = Metadata{}

	for k, v := range payload {
		switch k {
		case metaKeyTable:
			m.Table, _ = v.(string)
		case metaKeyRowID:
			m.RowID = toInt64(v)
		case metaKeyChunkIndex:
			m.ChunkIndex = int(toInt64(v))
		case metaKeyChunkCount:
			m.ChunkCount = int(toInt64(v))
		case metaKeyUserID:
			id := toInt64(v)
			m.UserID = &id
		case metaKeyCreatedAt:
			m.CreatedAt, _ = v.(string)
		case metaKeyText:
			m.Text, _ = v.(string)
		case metaKeyOriginalText:
			m.OriginalText, _ = v.(string)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = v
		}
	}

	return nil
}

// toInt64 はJSON数値(float64)または整数をint64に正規化する
func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}

// SearchResult はベクトル検索の1件の結果を表します
// Scoreはベクトルインデックスが設定したコサイン類似度で、以後上書きされない
// ランキングは派生フィールド（RankingScoreなど）の追加のみ行う
type SearchResult struct {
	// ID はベクトルポイントのID
	ID string

	// Score はベクトルインデックスが返したコサイン類似度 [-1, 1]
	Score float64

	// Metadata はペイロード
	Metadata Metadata

	// RankingScore は多要素フュージョン後の最終スコア（Rank適用後のみ有効）
	RankingScore float64

	// OriginalScore はフュージョン前の類似度スコアの控え
	OriginalScore float64

	// TableScore はテーブル優先度による部分スコア
	TableScore float64

	// SourceScore はユーザー紐づきによる部分スコア
	SourceScore float64

	// RecencyScore は最新性基準適用時の部分スコア
	RecencyScore float64

	// UserScore はユーザー関連性基準適用時の部分スコア
	UserScore float64
}
