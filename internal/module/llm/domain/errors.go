package domain

import "errors"

var (
	// ErrRateLimitExceeded はレート制限を超えた場合のエラー
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidRequest はリクエストが不正な場合のエラー
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmptyCompletion はLLMが空の応答を返した場合のエラー
	ErrEmptyCompletion = errors.New("empty completion")

	// ErrMaxRetriesExceeded は最大リトライ回数を超えた場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
