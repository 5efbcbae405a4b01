package adapter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jinford/assist-rag/internal/module/llm/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set")
)

// OpenAIClient はOpenAI APIを使用したLLMクライアント実装
type OpenAIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient はAPIキーとモデルを指定してOpenAIClientを作成する
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAIClient{
		client:  client,
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout はAPIコールのタイムアウトを設定する
func (c *OpenAIClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// GenerateCompletion はOpenAI APIを使用してテキストを生成する
// domain.Clientインターフェースを実装
func (c *OpenAIClient) GenerateCompletion(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	return c.generateWithRetry(ctx, model, req)
}

// generateWithRetry はレート制限エラー時にExponential Backoffでリトライする
func (c *OpenAIClient) generateWithRetry(ctx context.Context, model string, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return domain.CompletionResponse{}, ctx.Err()
			case <-time.After(backoffDuration):
				// バックオフ後、再試行
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(req.Prompt),
			},
			Temperature: openai.Float(req.Params.Temperature),
		}

		if req.Params.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(req.Params.MaxTokens))
		}
		if req.Params.TopP > 0 {
			params.TopP = openai.Float(req.Params.TopP)
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err

			if isRateLimitError(err) {
				continue
			}
			if isInvalidRequestError(err) {
				return domain.CompletionResponse{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
			}

			return domain.CompletionResponse{}, fmt.Errorf("OpenAI API call failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return domain.CompletionResponse{}, domain.ErrEmptyCompletion
		}

		return domain.CompletionResponse{
			Content:    completion.Choices[0].Message.Content,
			TokensUsed: int(completion.Usage.TotalTokens),
			Model:      string(completion.Model),
		}, nil
	}

	// リトライはレート制限エラーのみで発生するため、枯渇時はレート制限として分類する
	return domain.CompletionResponse{}, fmt.Errorf("%w: %w: %v", domain.ErrRateLimitExceeded, domain.ErrMaxRetriesExceeded, lastErr)
}

// isRateLimitError はエラーがレート制限エラーかどうかを判定する
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		// ステータスコード429はレート制限エラー
		return apiErr.StatusCode == 429
	}

	return false
}

// isInvalidRequestError はリトライしても回復しないリクエスト不正エラーかどうかを判定する
func isInvalidRequestError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 400 || apiErr.StatusCode == 404 || apiErr.StatusCode == 422
	}

	return false
}

// インターフェース実装の確認
var _ domain.Client = (*OpenAIClient)(nil)
