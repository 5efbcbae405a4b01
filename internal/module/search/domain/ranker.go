package domain

import (
	"sort"
	"strings"
)

// フュージョンの重み。relevanceとmetadataの合計は意図的に1に正規化していない
// （metadata項は2つあり、最大で0.2の寄与になる）
const (
	DefaultRelevanceWeight = 0.7
	DefaultMetadataWeight  = 0.1

	// keywordBoostFactor はクエリキーワードに合致したテーブルへの倍率
	keywordBoostFactor = 1.2
)

// テーブル優先度スコア
// 個人に密着したデータ（予定・習慣・会話履歴）ほど関連性が高いとみなす
var (
	highPriorityTables   = []string{"schedule", "habit", "chat_history"}
	mediumPriorityTables = []string{"user", "transaction", "diet"}
)

// キーワードブースト対象のカテゴリ定義
// クエリ原文（メタデータではない）に対して照合する
var keywordBoosts = []struct {
	table    string
	keywords []string
}{
	{table: "schedule", keywords: []string{"일정", "스케줄", "schedule", "약속"}},
	{table: "habit", keywords: []string{"습관", "루틴", "habit", "매일"}},
}

// Ranker は検索結果の多要素リランキングを行います
type Ranker struct {
	relevanceWeight float64
	metadataWeight  float64
}

// NewRanker はデフォルトの重みでRankerを作成します
func NewRanker() *Ranker {
	return &Ranker{
		relevanceWeight: DefaultRelevanceWeight,
		metadataWeight:  DefaultMetadataWeight,
	}
}

// NewRankerWithWeights は重みを指定してRankerを作成します
func NewRankerWithWeights(relevanceWeight, metadataWeight float64) *Ranker {
	return &Ranker{
		relevanceWeight: relevanceWeight,
		metadataWeight:  metadataWeight,
	}
}

// Rank は各結果にフュージョンスコアを付与し、降順に並べ替えた結果を返す
// 同点は入力順を保持する（安定ソート）。空入力は空出力
func (r *Ranker) Rank(results []SearchResult) []SearchResult {
	if len(results) == 0 {
		return []SearchResult{}
	}

	ranked := make([]SearchResult, len(results))
	copy(ranked, results)

	for i := range ranked {
		tableScore := tableTypeScore(ranked[i].Metadata.Table)
		sourceScore := sourceScore(ranked[i].Metadata)

		ranked[i].TableScore = tableScore
		ranked[i].SourceScore = sourceScore
		ranked[i].OriginalScore = ranked[i].Score
		ranked[i].RankingScore = r.relevanceWeight*ranked[i].Score +
			r.metadataWeight*tableScore +
			r.metadataWeight*sourceScore
	}

	sortByRankingScore(ranked)
	return ranked
}

// Rerank は基本フュージョンに加えて、クエリ原文のキーワードに応じた
// テーブルブーストを適用する。複数カテゴリのキーワードが同時に合致した
// 場合は両方のブーストが適用される
func (r *Ranker) Rerank(results []SearchResult, query string) []SearchResult {
	ranked := r.Rank(results)
	if len(ranked) == 0 {
		return ranked
	}

	queryLower := strings.ToLower(query)

	for _, boost := range keywordBoosts {
		if !containsAnyKeyword(queryLower, boost.keywords) {
			continue
		}
		for i := range ranked {
			if strings.EqualFold(ranked[i].Metadata.Table, boost.table) {
				ranked[i].RankingScore *= keywordBoostFactor
			}
		}
	}

	sortByRankingScore(ranked)
	return ranked
}

// tableTypeScore はテーブル種別に応じた優先度スコアを返す
func tableTypeScore(table string) float64 {
	lower := strings.ToLower(table)

	for _, t := range highPriorityTables {
		if lower == t {
			return 1.0
		}
	}
	for _, t := range mediumPriorityTables {
		if lower == t {
			return 0.7
		}
	}
	return 0.5
}

// sourceScore はユーザー紐づきデータかどうかでスコアを返す
func sourceScore(meta Metadata) float64 {
	if meta.UserID != nil {
		return 0.8
	}
	return 0.5
}

func sortByRankingScore(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RankingScore > results[j].RankingScore
	})
}

func containsAnyKeyword(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
