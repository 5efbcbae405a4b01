// Package application は会話モジュールのユースケースを提供します
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jinford/assist-rag/internal/module/chat/domain"
	llmdomain "github.com/jinford/assist-rag/internal/module/llm/domain"
	searchapp "github.com/jinford/assist-rag/internal/module/search/application"
)

// turnState はターン処理の状態遷移
// GENERATEDより後の失敗はターンを中断させない
type turnState string

const (
	stateReceived  turnState = "RECEIVED"
	stateRetrieved turnState = "RETRIEVED"
	stateGenerated turnState = "GENERATED"
	stateValidated turnState = "VALIDATED"
	stateRetried   turnState = "RETRIED"
	stateProcessed turnState = "PROCESSED"
	statePersisted turnState = "PERSISTED"
	stateIndexed   turnState = "INDEXED"
	stateReturned  turnState = "RETURNED"
)

// summaryTurnWindow はセッション要約に含める直近ターン数
const summaryTurnWindow = 6

// Retriever は会話コンテキストの検索を行う
type Retriever interface {
	Search(ctx context.Context, req searchapp.SearchRequest) (searchapp.SearchResponse, error)
}

// Generator はLLMによる応答生成を行う
type Generator interface {
	GenerateCompletion(ctx context.Context, req llmdomain.CompletionRequest) (llmdomain.CompletionResponse, error)
}

// Indexer はターンの自己インデックスを行う
type Indexer interface {
	IndexDocument(ctx context.Context, table string, rowID int64, text string, userID *int64, createdAt string) (int, error)
}

// ChatRequest は会話リクエスト
type ChatRequest struct {
	UserID  int64
	ChatID  string
	Message string
	Style   string
	TopK    int
}

// ChatResponse は会話応答
type ChatResponse struct {
	Answer         string            `json:"answer"`
	Sources        []string          `json:"sources,omitempty"`
	Validation     domain.Validation `json:"validation"`
	Retried        bool              `json:"retried"`
	Redacted       bool              `json:"redacted"`
	Truncated      bool              `json:"truncated"`
	RetrievalSrc   string            `json:"retrieval_source"`
	ProcessingTime float64           `json:"processing_time"`
	ChatID         string            `json:"chat_id"`
}

// ChatService は会話ターン全体のオーケストレーションを行います
//
// 1ターンの処理は「検索 → プロンプト構築 → 生成 → 検証（最大1回の
// 再生成）→ 後処理 → 履歴追記 → 永続化 → 自己インデックス → 整形」。
// 生成失敗のみが致命的で、永続化以降の失敗は記録して続行する
type ChatService struct {
	retriever Retriever
	generator Generator
	indexer   Indexer
	repo      domain.ConversationRepository
	sessions  *domain.SessionStore
	prompts   *domain.PromptBuilder
	validator *domain.Validator
	processor *domain.Processor
	formatter *domain.Formatter
	logger    *slog.Logger
}

// NewChatService は新しいChatServiceを作成します
func NewChatService(
	retriever Retriever,
	generator Generator,
	indexer Indexer,
	repo domain.ConversationRepository,
	sessions *domain.SessionStore,
	prompts *domain.PromptBuilder,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		retriever: retriever,
		generator: generator,
		indexer:   indexer,
		repo:      repo,
		sessions:  sessions,
		prompts:   prompts,
		validator: domain.NewValidator(),
		processor: domain.NewProcessor(),
		formatter: domain.NewFormatter(),
		logger:    logger,
	}
}

// ProcessMessage は会話の1ターンを処理する
//
// 同一セッションキーのターンはキー単位のロックで到着順に直列化される。
// コンテキストがキャンセルされた場合、永続化以降のステップは実行しない
func (s *ChatService) ProcessMessage(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return ChatResponse{}, domain.ErrEmptyMessage
	}

	key := domain.SessionKey(req.UserID, req.ChatID)
	release := s.sessions.Acquire(key)
	defer release()

	start := time.Now()
	s.transition(key, stateReceived)

	// 検索の失敗はこのターンの致命的エラー
	searchResp, err := s.retriever.Search(ctx, searchapp.SearchRequest{
		Query: req.Message,
		TopK:  req.TopK,
	})
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to retrieve context: %w", err)
	}
	s.transition(key, stateRetrieved)

	history := s.sessions.History(key)
	prompt := s.prompts.Build(req.Message, history, searchResp.Results)

	scores := make([]float64, len(searchResp.Results))
	for i, r := range searchResp.Results {
		scores[i] = r.Score
	}
	params := llmdomain.AdaptiveParams(req.Message, scores)

	completion, err := s.generator.GenerateCompletion(ctx, llmdomain.CompletionRequest{
		Prompt: prompt,
		Params: params,
	})
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	answer := completion.Content
	s.transition(key, stateGenerated)

	validation := s.validator.Validate(answer, searchResp.Results)
	s.transition(key, stateValidated)

	retried := false
	if !validation.IsValid && domain.ShouldRetry(validation.Issues) {
		answer, validation = s.retryGeneration(ctx, key, prompt, params, answer, validation, searchResp)
		retried = true
	}

	processed := s.processor.Process(answer, searchResp.Results)
	s.transition(key, stateProcessed)

	// キャンセル済みターンは履歴にも永続化層にも残さない
	if err := ctx.Err(); err != nil {
		return ChatResponse{}, err
	}

	now := time.Now()
	userTurn := domain.Turn{Role: domain.RoleUser, Content: req.Message, CreatedAt: now}
	assistantTurn := domain.Turn{Role: domain.RoleAssistant, Content: processed.Content, CreatedAt: now}
	s.sessions.Append(key, userTurn, assistantTurn)

	chatID := req.ChatID
	if chatID == "" {
		chatID = key
	}

	historyID := s.persistTurns(ctx, key, chatID, userTurn, assistantTurn)
	s.transition(key, statePersisted)

	s.selfIndex(ctx, req, key, chatID, processed.Content, historyID, now)
	s.transition(key, stateIndexed)

	elapsed := time.Since(start)
	formatted := s.formatter.Format(domain.ParseStyle(req.Style), domain.FormatInput{
		Content:        processed.Content,
		Sources:        processed.Sources,
		Validation:     validation,
		ProcessingTime: elapsed,
	})
	s.transition(key, stateReturned)

	return ChatResponse{
		Answer:         formatted,
		Sources:        processed.Sources,
		Validation:     validation,
		Retried:        retried,
		Redacted:       processed.Redacted,
		Truncated:      processed.Truncated,
		RetrievalSrc:   searchResp.Source,
		ProcessingTime: elapsed.Seconds(),
		ChatID:         chatID,
	}, nil
}

// retryGeneration は温度を下げて1回だけ再生成する
// 再生成結果は妥当であるか、問題数が厳密に減った場合のみ採用する
func (s *ChatService) retryGeneration(
	ctx context.Context,
	key string,
	prompt string,
	params llmdomain.GenerationParams,
	original string,
	originalValidation domain.Validation,
	searchResp searchapp.SearchResponse,
) (string, domain.Validation) {
	retryParams := params
	retryParams.Temperature = max(0.1, params.Temperature*0.5)

	s.transition(key, stateRetried)

	completion, err := s.generator.GenerateCompletion(ctx, llmdomain.CompletionRequest{
		Prompt: prompt,
		Params: retryParams,
	})
	if err != nil {
		s.logger.Warn("retry generation failed, keeping original response",
			slog.String("session_key", key), slog.Any("error", err))
		return original, originalValidation
	}

	retryValidation := s.validator.Validate(completion.Content, searchResp.Results)
	s.transition(key, stateValidated)

	if retryValidation.IsValid || len(retryValidation.Issues) < len(originalValidation.Issues) {
		return completion.Content, retryValidation
	}
	return original, originalValidation
}

// persistTurns はターンを永続化して応答側のIDを返す。失敗は致命的ではない
func (s *ChatService) persistTurns(ctx context.Context, key, chatID string, userTurn, assistantTurn domain.Turn) int64 {
	ids, err := s.repo.SaveTurns(ctx, []domain.PersistedTurn{
		{ChatID: chatID, SessionKey: key, MessageType: userTurn.Role, Content: userTurn.Content, CreatedAt: userTurn.CreatedAt},
		{ChatID: chatID, SessionKey: key, MessageType: assistantTurn.Role, Content: assistantTurn.Content, CreatedAt: assistantTurn.CreatedAt},
	})
	if err != nil {
		s.logger.Error("failed to persist conversation turns",
			slog.String("session_key", key), slog.Any("error", err))
		return 0
	}
	if len(ids) == 0 {
		return 0
	}
	return ids[len(ids)-1]
}

// selfIndex はQ&Aペアとセッション要約を検索インデックスへ書き戻す
// 以後のターンで自分の過去の応答が検索コンテキストとして使われる
func (s *ChatService) selfIndex(ctx context.Context, req ChatRequest, key, chatID, answer string, historyID int64, now time.Time) {
	rowID := historyID
	if rowID == 0 {
		// 永続化に失敗した場合も自己インデックスは試みる
		rowID = now.UnixNano()
	}

	qa := fmt.Sprintf("Q: %s\nA: %s", req.Message, answer)
	createdAt := now.Format(time.RFC3339)

	if _, err := s.indexer.IndexDocument(ctx, "chat_history", rowID, qa, &req.UserID, createdAt); err != nil {
		s.logger.Warn("failed to self-index turn",
			slog.String("session_key", key), slog.Any("error", err))
	}

	summary := s.buildSummary(key)
	if summary == "" {
		return
	}

	summaryID, err := s.repo.SaveSummary(ctx, chatID, req.UserID, summary)
	if err != nil {
		s.logger.Warn("failed to save session summary",
			slog.String("session_key", key), slog.Any("error", err))
		summaryID = now.UnixNano()
	}

	if _, err := s.indexer.IndexDocument(ctx, "chat", summaryID, summary, &req.UserID, createdAt); err != nil {
		s.logger.Warn("failed to index session summary",
			slog.String("session_key", key), slog.Any("error", err))
	}
}

// buildSummary は直近ターンからセッション要約テキストを作る
func (s *ChatService) buildSummary(key string) string {
	history := s.sessions.History(key)
	if len(history) == 0 {
		return ""
	}

	start := len(history) - summaryTurnWindow
	if start < 0 {
		start = 0
	}

	var sb strings.Builder
	for _, turn := range history[start:] {
		label := "사용자"
		if turn.Role == domain.RoleAssistant {
			label = "비서"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", label, turn.Content))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *ChatService) transition(key string, state turnState) {
	s.logger.Debug("turn state",
		slog.String("session_key", key),
		slog.String("state", string(state)))
}
