// Package application は検索モジュールのユースケースを提供します
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/assist-rag/internal/module/search/adapter/cache"
	"github.com/jinford/assist-rag/internal/module/search/domain"
)

// DefaultTopK は返却件数のデフォルト値
const DefaultTopK = 5

// Embedder はクエリをベクトル化する
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Translator は埋め込み前のクエリ翻訳に使う（任意依存）
type Translator interface {
	Translate(ctx context.Context, text string, sourceLang string, targetLang string) (string, error)
}

// SearchRequest は検索リクエスト
type SearchRequest struct {
	Query       string
	TopK        int
	Threshold   *float64 // 指定時は共有閾値を上書きする
	Criteria    *domain.RankingCriteria
	BypassCache bool // trueの場合、キャッシュの照会も格納も行わない
}

// SearchResponse は検索結果と統計情報
type SearchResponse struct {
	Results         []domain.SearchResult
	TotalCandidates int     // 足切り前の候補数
	FilteredCount   int     // 足切り後の候補数
	Threshold       float64 // 適用された閾値
	Source          string  // "search" または "cache"
}

// SearchService は類似検索のオーケストレーションを行います
//
// 処理順序: キャッシュ照会 → 翻訳 → 埋め込み → 過剰取得 → 足切り →
// リランキング → キャッシュ格納 → 件数切り詰め
type SearchService struct {
	embedder    Embedder
	store       domain.VectorStore
	filter      *domain.ThresholdFilter
	ranker      *domain.Ranker
	cache       *cache.QueryCache
	translator  Translator // nilなら翻訳しない
	sourceLang  string
	targetLang  string
	defaultTopK int
	logger      *slog.Logger
}

// Option はSearchServiceの挙動を変更するオプション
type Option func(*SearchService)

// WithTranslator は埋め込み前のクエリ翻訳を有効にする
func WithTranslator(t Translator, source, target string) Option {
	return func(s *SearchService) {
		s.translator = t
		s.sourceLang = source
		s.targetLang = target
	}
}

// WithDefaultTopK はTopK未指定時の返却件数を上書きする
func WithDefaultTopK(n int) Option {
	return func(s *SearchService) {
		if n > 0 {
			s.defaultTopK = n
		}
	}
}

// NewSearchService は新しいSearchServiceを作成します
func NewSearchService(
	embedder Embedder,
	store domain.VectorStore,
	filter *domain.ThresholdFilter,
	ranker *domain.Ranker,
	queryCache *cache.QueryCache,
	logger *slog.Logger,
	opts ...Option,
) *SearchService {
	s := &SearchService{
		embedder:    embedder,
		store:       store,
		filter:      filter,
		ranker:      ranker,
		cache:       queryCache,
		defaultTopK: DefaultTopK,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search は類似検索を実行する
//
// キャッシュキーはクエリ文字列のみで、TopKは含まれない。キャッシュには
// 切り詰め前のランキング済み結果を保存するため、同一クエリであれば
// 異なるTopKでもヒットし、返却時に切り詰める
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if req.Query == "" {
		return SearchResponse{}, domain.ErrEmptyQuery
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}

	// 閾値上書きは共有フィルタへの書き込みであり、後続リクエストにも影響する
	if req.Threshold != nil {
		s.filter.SetThreshold(*req.Threshold)
	}

	if cached, ok := s.cacheGet(req); ok {
		s.logger.Debug("query cache hit", slog.String("query", req.Query), slog.Int("cached", len(cached)))
		results := s.applyCriteria(cached, req.Criteria)
		return SearchResponse{
			Results:         truncate(results, topK),
			TotalCandidates: len(cached),
			FilteredCount:   len(cached),
			Threshold:       s.filter.Threshold(),
			Source:          "cache",
		}, nil
	}

	// 埋め込みは翻訳後のテキストに対して行うが、キーワードブーストと
	// キャッシュキーには原文クエリを使う
	embedText := req.Query
	if s.translator != nil {
		translated, err := s.translator.Translate(ctx, req.Query, s.sourceLang, s.targetLang)
		if err != nil {
			s.logger.Warn("query translation failed, using original text", slog.Any("error", err))
		} else {
			embedText = translated
		}
	}

	vector, err := s.embedder.Embed(ctx, embedText)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
	}

	// 足切りで候補が減ることを見越してTopKの2倍を取得する
	candidates, err := s.store.Search(ctx, vector, topK*2)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("%w: %w", domain.ErrVectorSearchFailed, err)
	}

	filtered := s.filter.Filter(candidates)
	ranked := s.ranker.Rerank(filtered, req.Query)

	if !req.BypassCache {
		s.cache.Set(req.Query, ranked)
	}

	results := s.applyCriteria(ranked, req.Criteria)

	s.logger.Debug("search executed",
		slog.String("query", req.Query),
		slog.Int("candidates", len(candidates)),
		slog.Int("filtered", len(filtered)),
		slog.Float64("threshold", s.filter.Threshold()),
	)

	return SearchResponse{
		Results:         truncate(results, topK),
		TotalCandidates: len(candidates),
		FilteredCount:   len(filtered),
		Threshold:       s.filter.Threshold(),
		Source:          "search",
	}, nil
}

func (s *SearchService) cacheGet(req SearchRequest) ([]domain.SearchResult, bool) {
	if req.BypassCache {
		return nil, false
	}
	return s.cache.Get(req.Query)
}

// ClearCache はクエリキャッシュを全消去する
// インデックスの再構築後など、結果の鮮度が保証できない場合に呼ぶ
func (s *SearchService) ClearCache() {
	s.cache.Clear()
}

func (s *SearchService) applyCriteria(results []domain.SearchResult, criteria *domain.RankingCriteria) []domain.SearchResult {
	if criteria == nil {
		return results
	}
	return domain.ApplyCriteria(results, *criteria, time.Now())
}

func truncate(results []domain.SearchResult, topK int) []domain.SearchResult {
	if len(results) <= topK {
		return results
	}
	return results[:topK]
}
