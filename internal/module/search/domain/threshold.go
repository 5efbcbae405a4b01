package domain

// DefaultThreshold はコサイン類似度のデフォルト足切り値
const DefaultThreshold = 0.1

// ThresholdFilter は類似度スコアの足切りフィルタ
//
// thresholdは全リクエストで共有される単一の値であり、リクエスト単位の
// 上書きは他の同時リクエストと競合する（既知の制限。リセットも行われない）
type ThresholdFilter struct {
	threshold float64
}

// NewThresholdFilter は新しいThresholdFilterを作成します
func NewThresholdFilter(threshold float64) *ThresholdFilter {
	return &ThresholdFilter{threshold: threshold}
}

// Threshold は現在の足切り値を返す
func (f *ThresholdFilter) Threshold() float64 {
	return f.threshold
}

// SetThreshold は足切り値を更新する
func (f *ThresholdFilter) SetThreshold(threshold float64) {
	f.threshold = threshold
}

// Filter は閾値以上のスコアを持つ結果のみを返す
// 入力順序は保持され、入力が空なら空を返す
func (f *ThresholdFilter) Filter(results []SearchResult) []SearchResult {
	filtered := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= f.threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
