// Package cache は検索結果のTTL付きメモ化を提供します
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/jinford/assist-rag/internal/module/search/domain"
)

// DefaultTTL はキャッシュエントリのデフォルト有効期間
const DefaultTTL = time.Hour

// QueryCache はクエリ文字列をキーとする検索結果のキャッシュ
//
// キーはクエリ原文のみから導出され、top_kやランキング基準は含まれない。
// 同一クエリに対して異なるtop_kで呼び出しても、TTL内は最初に保存された
// 結果集合が返る。呼び出し側はキャッシュ結果を候補集合の上限として扱うこと。
//
// 失効したエントリは次に同じキーでGetされるまで残留する（遅延削除のみで
// バックグラウンドの掃除は行わない。メモリと鮮度のトレードオフとして許容）
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	results   []domain.SearchResult
	expiresAt time.Time
}

// Option はQueryCache構築時のオプション
type Option func(*QueryCache)

// WithTTL はエントリの有効期間を設定する
func WithTTL(ttl time.Duration) Option {
	return func(c *QueryCache) {
		c.ttl = ttl
	}
}

// WithClock は現在時刻の取得関数を差し替える（テスト用）
func WithClock(now func() time.Time) Option {
	return func(c *QueryCache) {
		c.now = now
	}
}

// New は新しいQueryCacheを作成します
func New(opts ...Option) *QueryCache {
	c := &QueryCache{
		entries: make(map[string]cacheEntry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get はクエリに対するキャッシュ済み結果を返す
// エントリが存在しないか失効している場合は (nil, false) を返し、
// 失効エントリはこのタイミングで削除される
func (c *QueryCache) Get(query string) ([]domain.SearchResult, bool) {
	key := fingerprint(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	return entry.results, true
}

// Set はクエリに対する結果を保存する
func (c *QueryCache) Set(query string, results []domain.SearchResult) {
	key := fingerprint(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		results:   results,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Clear は全エントリを破棄する
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}

// Len は失効分を含む現在のエントリ数を返す
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// fingerprint はクエリ文字列（UTF-8バイト列そのまま）の決定的ハッシュを返す
func fingerprint(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}
