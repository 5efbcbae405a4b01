package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jinford/assist-rag/internal/module/translate/domain"
)

const (
	defaultEndpoint = "https://translate.googleapis.com/translate_a/single"
	defaultTimeout  = 10 * time.Second
)

// GoogleTranslator は非公式のGoogle翻訳エンドポイントを使うTranslator実装
type GoogleTranslator struct {
	httpClient *http.Client
	endpoint   string
}

// GoogleTranslatorOption はGoogleTranslator構築時のオプション
type GoogleTranslatorOption func(*GoogleTranslator)

// WithHTTPClient はHTTPクライアントを差し替える
func WithHTTPClient(client *http.Client) GoogleTranslatorOption {
	return func(t *GoogleTranslator) {
		t.httpClient = client
	}
}

// WithEndpoint は翻訳エンドポイントを差し替える（テスト用）
func WithEndpoint(endpoint string) GoogleTranslatorOption {
	return func(t *GoogleTranslator) {
		t.endpoint = endpoint
	}
}

// NewGoogleTranslator は新しいGoogleTranslatorを作成します
func NewGoogleTranslator(opts ...GoogleTranslatorOption) *GoogleTranslator {
	t := &GoogleTranslator{
		httpClient: &http.Client{Timeout: defaultTimeout},
		endpoint:   defaultEndpoint,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Translate はtextをsourceLangからtargetLangへ翻訳する
// domain.Translatorインターフェースを実装
func (t *GoogleTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("dt", "t")
	params.Set("sl", sourceLang)
	params.Set("tl", targetLang)
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build translation request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read translation response: %w", err)
	}

	return parseTranslation(body)
}

// parseTranslation はエンドポイントのネストした配列レスポンスから訳文を組み立てる
// レスポンス形式: [[["訳文","原文",...],["訳文2","原文2",...]],...]
func parseTranslation(body []byte) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("unexpected translation response: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty translation response")
	}

	var segments [][]any
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return "", fmt.Errorf("unexpected translation payload: %w", err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if translated, ok := seg[0].(string); ok {
			sb.WriteString(translated)
		}
	}

	return sb.String(), nil
}

// インターフェース実装の確認
var _ domain.Translator = (*GoogleTranslator)(nil)
