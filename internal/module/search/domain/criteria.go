package domain

import (
	"strings"
	"time"
)

// RankingCriteria はリクエスト単位の並べ替え基準
// 永続化されることはなく、指定された基準のみが順に適用される
type RankingCriteria struct {
	Recency        *RecencyCriterion
	SourcePriority *SourcePriorityCriterion
	UserRelevance  *UserRelevanceCriterion
}

// IsZero はいずれの基準も指定されていないことを返す
func (c RankingCriteria) IsZero() bool {
	return c.Recency == nil && c.SourcePriority == nil && c.UserRelevance == nil
}

// RecencyCriterion は最新性による並べ替え基準
type RecencyCriterion struct {
	Weight    float64
	DateField string // メタデータ上の日時フィールド名（デフォルト: created_at）
}

// SourcePriorityCriterion は出所テーブルの優先順による並べ替え基準
type SourcePriorityCriterion struct {
	Weight         float64
	OrderedSources []string
}

// UserRelevanceCriterion はユーザー関連性による並べ替え基準
type UserRelevanceCriterion struct {
	Weight float64
	UserID int64
}

// recencyWindow は最新性スコアが1.0から0.0へ減衰する期間
const recencyWindow = 30 * 24 * time.Hour

// ApplyCriteria は指定された基準を順に適用して結果を並べ替える
// 各基準は既存のRankingScore（未設定ならScore）と基準スコアの加重平均で更新する
func ApplyCriteria(results []SearchResult, criteria RankingCriteria, now time.Time) []SearchResult {
	if len(results) == 0 || criteria.IsZero() {
		return results
	}

	sorted := make([]SearchResult, len(results))
	copy(sorted, results)

	if c := criteria.Recency; c != nil {
		applyRecency(sorted, c, now)
	}
	if c := criteria.SourcePriority; c != nil {
		applySourcePriority(sorted, c)
	}
	if c := criteria.UserRelevance; c != nil {
		applyUserRelevance(sorted, c)
	}

	return sorted
}

func applyRecency(results []SearchResult, c *RecencyCriterion, now time.Time) {
	for i := range results {
		recencyScore := 0.0
		if dateStr := dateFieldValue(results[i].Metadata, c.DateField); dateStr != "" {
			if parsed, err := time.Parse(time.RFC3339, dateStr); err == nil {
				age := now.Sub(parsed)
				switch {
				case age <= 0:
					recencyScore = 1.0
				case age <= recencyWindow:
					recencyScore = 1.0 - age.Seconds()/recencyWindow.Seconds()
				}
			}
		}

		base := effectiveScore(results[i])
		results[i].RecencyScore = recencyScore
		results[i].RankingScore = base*(1.0-c.Weight) + recencyScore*c.Weight
	}

	sortByRankingScore(results)
}

func applySourcePriority(results []SearchResult, c *SourcePriorityCriterion) {
	for i := range results {
		sourceScore := 0.0
		for pos, table := range c.OrderedSources {
			if strings.EqualFold(results[i].Metadata.Table, table) {
				sourceScore = 1.0 - float64(pos)/float64(len(c.OrderedSources))
				break
			}
		}

		base := effectiveScore(results[i])
		results[i].SourceScore = sourceScore
		results[i].RankingScore = base*(1.0-c.Weight) + sourceScore*c.Weight
	}

	sortByRankingScore(results)
}

func applyUserRelevance(results []SearchResult, c *UserRelevanceCriterion) {
	for i := range results {
		userScore := 0.2
		if results[i].Metadata.UserID != nil && *results[i].Metadata.UserID == c.UserID {
			userScore = 1.0
		}

		base := effectiveScore(results[i])
		results[i].UserScore = userScore
		results[i].RankingScore = base*(1.0-c.Weight) + userScore*c.Weight
	}

	sortByRankingScore(results)
}

// effectiveScore はRankingScoreが未設定の結果ではScoreを基準値として使う
func effectiveScore(r SearchResult) float64 {
	if r.RankingScore != 0 {
		return r.RankingScore
	}
	return r.Score
}

// dateFieldValue は基準指定の日時フィールドをメタデータから取り出す
func dateFieldValue(meta Metadata, field string) string {
	if field == "" || field == "created_at" {
		return meta.CreatedAt
	}
	if v, ok := meta.Extra[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
