package domain

import "context"

// Translator はテキスト翻訳の外部コラボレータを抽象化するインターフェース
type Translator interface {
	// Translate はtextをsourceLangからtargetLangへ翻訳する
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
