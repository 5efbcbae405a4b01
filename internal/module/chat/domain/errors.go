package domain

import "errors"

var (
	// ErrEmptyMessage は入力メッセージが空
	ErrEmptyMessage = errors.New("message is empty")

	// ErrGenerationFailed はLLMによる応答生成に失敗した
	// このエラーのみターン全体を中断させる
	ErrGenerationFailed = errors.New("response generation failed")
)
