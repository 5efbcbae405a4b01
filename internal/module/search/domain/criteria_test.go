package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyCriteria_SourcePriority(t *testing.T) {
	// 指定順の早いテーブルほど高いスコアが付き、上位に並ぶ
	results := []SearchResult{
		{ID: "chat", Score: 0.6, Metadata: Metadata{Table: "chat_history"}},
		{ID: "schedule", Score: 0.6, Metadata: Metadata{Table: "schedule"}},
		{ID: "other", Score: 0.6, Metadata: Metadata{Table: "transaction"}},
	}

	criteria := RankingCriteria{
		SourcePriority: &SourcePriorityCriterion{
			Weight:         0.5,
			OrderedSources: []string{"schedule", "chat_history"},
		},
	}

	sorted := ApplyCriteria(results, criteria, time.Now())
	assert.Equal(t, "schedule", sorted[0].ID)
	assert.Equal(t, "chat", sorted[1].ID)
	assert.Equal(t, "other", sorted[2].ID)

	// schedule: 位置0 → 1.0 - 0/2 = 1.0
	assert.Equal(t, 1.0, sorted[0].SourceScore)
	// chat_history: 位置1 → 1.0 - 1/2 = 0.5
	assert.Equal(t, 0.5, sorted[1].SourceScore)
	// 未指定テーブルは0.0
	assert.Equal(t, 0.0, sorted[2].SourceScore)
}

func TestApplyCriteria_Recency(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	results := []SearchResult{
		{ID: "old", Score: 0.8, Metadata: Metadata{
			Table:     "chat_history",
			CreatedAt: now.Add(-60 * 24 * time.Hour).Format(time.RFC3339),
		}},
		{ID: "fresh", Score: 0.7, Metadata: Metadata{
			Table:     "chat_history",
			CreatedAt: now.Add(-1 * time.Hour).Format(time.RFC3339),
		}},
	}

	criteria := RankingCriteria{
		Recency: &RecencyCriterion{Weight: 0.6},
	}

	sorted := ApplyCriteria(results, criteria, now)
	// 鮮度の重みが大きいので新しい方が上位
	assert.Equal(t, "fresh", sorted[0].ID)
	assert.Greater(t, sorted[0].RecencyScore, 0.9)
	// 30日を超えた結果の鮮度スコアは0
	assert.Equal(t, 0.0, sorted[1].RecencyScore)
}

func TestApplyCriteria_Recency_MissingDate(t *testing.T) {
	// 日時フィールドがない結果は鮮度スコア0として扱う
	results := []SearchResult{
		{ID: "nodate", Score: 0.9, Metadata: Metadata{Table: "user"}},
	}

	sorted := ApplyCriteria(results, RankingCriteria{
		Recency: &RecencyCriterion{Weight: 0.5},
	}, time.Now())

	assert.Equal(t, 0.0, sorted[0].RecencyScore)
	assert.InDelta(t, 0.45, sorted[0].RankingScore, 1e-9) // 0.9*0.5 + 0*0.5
}

func TestApplyCriteria_UserRelevance(t *testing.T) {
	me := int64(42)
	other := int64(99)

	results := []SearchResult{
		{ID: "other", Score: 0.6, Metadata: Metadata{Table: "schedule", UserID: &other}},
		{ID: "mine", Score: 0.6, Metadata: Metadata{Table: "schedule", UserID: &me}},
		{ID: "shared", Score: 0.6, Metadata: Metadata{Table: "schedule"}},
	}

	sorted := ApplyCriteria(results, RankingCriteria{
		UserRelevance: &UserRelevanceCriterion{Weight: 0.5, UserID: 42},
	}, time.Now())

	assert.Equal(t, "mine", sorted[0].ID)
	assert.Equal(t, 1.0, sorted[0].UserScore)
	assert.Equal(t, 0.2, sorted[1].UserScore)
	assert.Equal(t, 0.2, sorted[2].UserScore)
}

func TestApplyCriteria_ZeroCriteria(t *testing.T) {
	// 基準が1つも指定されなければ入力をそのまま返す
	results := []SearchResult{
		{ID: "a", Score: 0.1},
		{ID: "b", Score: 0.9},
	}

	sorted := ApplyCriteria(results, RankingCriteria{}, time.Now())
	assert.Equal(t, "a", sorted[0].ID)
	assert.Equal(t, "b", sorted[1].ID)
}

func TestApplyCriteria_ChainedCriteria(t *testing.T) {
	// 複数基準は順に適用され、後段は前段のRankingScoreを基準値として使う
	userID := int64(1)
	now := time.Now()

	results := []SearchResult{
		{ID: "a", Score: 0.5, Metadata: Metadata{
			Table:     "schedule",
			UserID:    &userID,
			CreatedAt: now.Add(-1 * time.Hour).Format(time.RFC3339),
		}},
	}

	sorted := ApplyCriteria(results, RankingCriteria{
		Recency:       &RecencyCriterion{Weight: 0.4},
		UserRelevance: &UserRelevanceCriterion{Weight: 0.4, UserID: 1},
	}, now)

	// 鮮度適用後: 0.5*0.6 + ~1.0*0.4 ≈ 0.7
	// ユーザー基準適用後: 0.7*0.6 + 1.0*0.4 ≈ 0.82
	assert.InDelta(t, 0.82, sorted[0].RankingScore, 0.01)
}
