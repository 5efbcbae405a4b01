package domain

import "strings"

// GenerationParams はLLM応答生成のサンプリングパラメータ
type GenerationParams struct {
	// Temperature は生成の多様性を制御する (0.0-2.0)
	Temperature float64

	// MaxTokens は生成する最大トークン数
	MaxTokens int

	// TopP はnucleus samplingの確率質量
	TopP float64
}

// DefaultParams はデフォルトの生成パラメータを返す
func DefaultParams() GenerationParams {
	return GenerationParams{
		Temperature: 0.7,
		MaxTokens:   1024,
		TopP:        0.9,
	}
}

// Preset は用途別のパラメータプリセットを返す
// 未知のプリセット名の場合はデフォルト値を返す
func Preset(name string) GenerationParams {
	switch name {
	case "creative":
		return GenerationParams{
			Temperature: 0.9,
			MaxTokens:   1024,
			TopP:        0.95,
		}
	case "precise":
		return GenerationParams{
			Temperature: 0.2,
			MaxTokens:   1024,
			TopP:        0.85,
		}
	default: // "balanced"
		return DefaultParams()
	}
}

// クエリの性質に応じたtemperature調整に使うキーワード
var (
	creativeKeywords = []string{"아이디어", "창의적", "제안", "생각", "상상"}
	preciseKeywords  = []string{"정확한", "사실", "데이터", "분석", "요약"}
)

// AdaptiveParams はクエリ長・コンテキスト品質・キーワードに応じて
// 生成パラメータを調整する
func AdaptiveParams(query string, contextScores []float64) GenerationParams {
	params := DefaultParams()

	// クエリの複雑さによる調整: 長い質問ほど正確さ優先
	queryLength := len([]rune(query))
	switch {
	case queryLength > 100:
		params.Temperature = 0.3
	case queryLength < 20:
		params.Temperature = 0.8
	}

	// コンテキスト品質による調整: 関連度が高いほど決定論的に生成
	if len(contextScores) > 0 {
		var sum float64
		for _, s := range contextScores {
			sum += s
		}
		avg := sum / float64(len(contextScores))

		if avg > 0.8 {
			params.Temperature = max(0.2, params.Temperature-0.2)
		} else if avg < 0.4 {
			params.Temperature = min(0.9, params.Temperature+0.2)
		}
	}

	// キーワードによる調整はクエリ長・品質の調整より優先される
	if containsAny(query, creativeKeywords) {
		params.Temperature = 0.85
		params.TopP = 0.92
	} else if containsAny(query, preciseKeywords) {
		params.Temperature = 0.3
		params.TopP = 0.85
	}

	return params
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
