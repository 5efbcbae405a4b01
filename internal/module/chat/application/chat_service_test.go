package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/assist-rag/internal/module/chat/domain"
	llmdomain "github.com/jinford/assist-rag/internal/module/llm/domain"
	searchapp "github.com/jinford/assist-rag/internal/module/search/application"
	searchdomain "github.com/jinford/assist-rag/internal/module/search/domain"
)

type fakeRetriever struct {
	resp searchapp.SearchResponse
	err  error
}

func (f *fakeRetriever) Search(ctx context.Context, req searchapp.SearchRequest) (searchapp.SearchResponse, error) {
	return f.resp, f.err
}

// fakeGenerator は呼び出しごとに用意した応答を順に返す
type fakeGenerator struct {
	responses []string
	err       error
	params    []llmdomain.GenerationParams
	calls     int
}

func (f *fakeGenerator) GenerateCompletion(ctx context.Context, req llmdomain.CompletionRequest) (llmdomain.CompletionResponse, error) {
	if f.err != nil {
		return llmdomain.CompletionResponse{}, f.err
	}
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	f.params = append(f.params, req.Params)
	return llmdomain.CompletionResponse{Content: f.responses[idx]}, nil
}

type indexedDoc struct {
	table string
	rowID int64
	text  string
}

type fakeIndexer struct {
	docs []indexedDoc
	err  error
}

func (f *fakeIndexer) IndexDocument(ctx context.Context, table string, rowID int64, text string, userID *int64, createdAt string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.docs = append(f.docs, indexedDoc{table: table, rowID: rowID, text: text})
	return 1, nil
}

type fakeRepo struct {
	turns     []domain.PersistedTurn
	summaries map[string]string
	saveErr   error
	nextID    int64
}

func (f *fakeRepo) SaveTurns(ctx context.Context, turns []domain.PersistedTurn) ([]int64, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	ids := make([]int64, 0, len(turns))
	for _, turn := range turns {
		f.nextID++
		f.turns = append(f.turns, turn)
		ids = append(ids, f.nextID)
	}
	return ids, nil
}

func (f *fakeRepo) SaveSummary(ctx context.Context, chatID string, userID int64, summary string) (int64, error) {
	if f.summaries == nil {
		f.summaries = make(map[string]string)
	}
	f.summaries[chatID] = summary
	return 100, nil
}

type runeCounter struct{}

func (runeCounter) Count(text string) int { return len([]rune(text)) }

func validAnswer() string {
	return "내일 오전 10시에 팀 회의가 있습니다."
}

func contextWith(table, text string, score float64) searchapp.SearchResponse {
	return searchapp.SearchResponse{
		Results: []searchdomain.SearchResult{
			{Score: score, RankingScore: score, Metadata: searchdomain.Metadata{Table: table, Text: text}},
		},
		Source: "search",
	}
}

func newTestChatService(retriever Retriever, generator Generator, indexer Indexer, repo domain.ConversationRepository) *ChatService {
	return NewChatService(
		retriever,
		generator,
		indexer,
		repo,
		domain.NewSessionStore(),
		domain.NewPromptBuilder(runeCounter{}),
		slog.New(slog.DiscardHandler),
	)
}

func TestChatService_ProcessMessage(t *testing.T) {
	retriever := &fakeRetriever{resp: contextWith("schedule", "팀 회의 10시", 0.9)}
	generator := &fakeGenerator{responses: []string{validAnswer()}}
	indexer := &fakeIndexer{}
	repo := &fakeRepo{}

	svc := newTestChatService(retriever, generator, indexer, repo)

	resp, err := svc.ProcessMessage(context.Background(), ChatRequest{
		UserID: 1, ChatID: "c1", Message: "내일 일정 알려줘",
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Answer, validAnswer())
	assert.Equal(t, []string{"schedule"}, resp.Sources)
	assert.True(t, resp.Validation.IsValid)
	assert.False(t, resp.Retried)
	assert.Equal(t, "search", resp.RetrievalSrc)

	// ユーザーと応答の両ターンが永続化される
	require.Len(t, repo.turns, 2)
	assert.Equal(t, domain.RoleUser, repo.turns[0].MessageType)
	assert.Equal(t, domain.RoleAssistant, repo.turns[1].MessageType)
}

func TestChatService_ProcessMessage_EmptyMessage(t *testing.T) {
	svc := newTestChatService(&fakeRetriever{}, &fakeGenerator{}, &fakeIndexer{}, &fakeRepo{})

	_, err := svc.ProcessMessage(context.Background(), ChatRequest{UserID: 1, Message: "  "})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestChatService_ProcessMessage_RetrievalFailureIsFatal(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("vector index down")}
	svc := newTestChatService(retriever, &fakeGenerator{responses: []string{validAnswer()}}, &fakeIndexer{}, &fakeRepo{})

	_, err := svc.ProcessMessage(context.Background(), ChatRequest{UserID: 1, Message: "질문"})
	assert.Error(t, err)
}

func TestChatService_ProcessMessage_GenerationFailureIsFatal(t *testing.T) {
	retriever := &fakeRetriever{resp: contextWith("schedule", "회의", 0.9)}
	generator := &fakeGenerator{err: errors.New("model unavailable")}
	svc := newTestChatService(retriever, generator, &fakeIndexer{}, &fakeRepo{})

	_, err := svc.ProcessMessage(context.Background(), ChatRequest{UserID: 1, Message: "질문"})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

func TestChatService_ProcessMessage_NoRetryOnIncompleteOnly(t *testing.T) {
	// too_short / incomplete だけの検証失敗では再生成しない
	retriever := &fakeRetriever{resp: contextWith("schedule", "회의", 0.9)}
	generator := &fakeGenerator{responses: []string{"네", validAnswer()}}
	svc := newTestChatService(retriever, generator, &fakeIndexer{}, &fakeRepo{})

	resp, err := svc.ProcessMessage(context.Background(), ChatRequest{UserID: 1, Message: "질문"})
	require.NoError(t, err)

	assert.Equal(t, 1, generator.calls)
	assert.False(t, resp.Retried)
	assert.False(t, resp.Validation.IsValid)
	assert.Contains(t, resp.Answer, "네")
}

func TestChatService_ProcessMessage_RetryOnHallucination(t *testing.T) {
	// ハルシネーション検出時は温度を下げて1回だけ再生成する
	retriever := &fakeRetriever{resp: contextWith("transaction", "점심값 12000원", 0.9)}
	generator := &fakeGenerator{responses: []string{
		"점심값은 98000원이었습니다.", // コンテキストにない数値
		"점심값은 12000원이었습니다.",
	}}
	svc := newTestChatService(retriever, generator, &fakeIndexer{}, &fakeRepo{})

	resp, err := svc.ProcessMessage(context.Background(), ChatRequest{UserID: 1, Message: "점심값 얼마 썼지"})
	require.NoError(t, err)

	assert.Equal(t, 2, generator.calls)
	assert.True(t, resp.Retried)
	assert.True(t, resp.Validation.IsValid)
	assert.Contains(t, resp.Answer, "12000원")

	// 再生成の温度は初回より低い
	require.Len(t, generator.params, 2)
	assert.Less(t, generator.params[1].Temperature, generator.params[0].Temperature)
}

func TestChatService_ProcessMessage_RetryKeptOnlyIfImproved(t *testing.T) {
	// 再生成がさらに悪化した場合は元の応答を使う
	retriever := &fakeRetriever{resp: contextWith("transaction", "점심값 12000원", 0.9)}
	generator := &fakeGenerator{responses: []string{
		"점심값은 98000원이었습니다.",
		"점심값은 98000원. 하지만 동시에 77000원입니다.", // さらに問題が増える
	}}
	svc := newTestChatService(retriever, generator, &fakeIndexer{}, &fakeRepo{})

	resp, err := svc.ProcessMessage(context.Background(), ChatRequest{UserID: 1, Message: "점심값"})
	require.NoError(t, err)

	assert.True(t, resp.Retried)
	assert.False(t, resp.Validation.IsValid)
	assert.Contains(t, resp.Answer, "98000원이었습니다")
	assert.NotContains(t, resp.Answer, "77000")
}

func TestChatService_ProcessMessage_PersistenceFailureNonFatal(t *testing.T) {
	// 永続化の失敗は記録されるだけで、応答は返る
	retriever := &fakeRetriever{resp: contextWith("schedule", "회의", 0.9)}
	generator := &fakeGenerator{responses: []string{validAnswer()}}
	repo := &fakeRepo{saveErr: errors.New("db down")}
	indexer := &fakeIndexer{}

	svc := newTestChatService(retriever, generator, indexer, repo)

	resp, err := svc.ProcessMessage(context.Background(), ChatRequest{UserID: 1, ChatID: "c1", Message: "질문"})
	require.NoError(t, err)
	assert.Contains(t, resp.Answer, validAnswer())

	// 永続化に失敗しても自己インデックスは試みる
	assert.NotEmpty(t, indexer.docs)
}

func TestChatService_ProcessMessage_SelfIndexing(t *testing.T) {
	// Q&Aペアとセッション要約がそれぞれ検索インデックスへ書き戻される
	retriever := &fakeRetriever{resp: contextWith("schedule", "회의", 0.9)}
	generator := &fakeGenerator{responses: []string{validAnswer()}}
	indexer := &fakeIndexer{}
	repo := &fakeRepo{}

	svc := newTestChatService(retriever, generator, indexer, repo)

	_, err := svc.ProcessMessage(context.Background(), ChatRequest{UserID: 3, ChatID: "c1", Message: "내일 일정?"})
	require.NoError(t, err)

	require.Len(t, indexer.docs, 2)

	assert.Equal(t, "chat_history", indexer.docs[0].table)
	assert.Contains(t, indexer.docs[0].text, "Q: 내일 일정?")
	assert.Contains(t, indexer.docs[0].text, "A: "+validAnswer())
	// 永続化された応答ターンのIDを行IDとして使う
	assert.Equal(t, int64(2), indexer.docs[0].rowID)

	assert.Equal(t, "chat", indexer.docs[1].table)
	assert.Contains(t, indexer.docs[1].text, "사용자: 내일 일정?")
	assert.Equal(t, repo.summaries["c1"], indexer.docs[1].text)
}

func TestChatService_ProcessMessage_IndexFailureNonFatal(t *testing.T) {
	retriever := &fakeRetriever{resp: contextWith("schedule", "회의", 0.9)}
	generator := &fakeGenerator{responses: []string{validAnswer()}}
	indexer := &fakeIndexer{err: errors.New("index unavailable")}

	svc := newTestChatService(retriever, generator, indexer, &fakeRepo{})

	resp, err := svc.ProcessMessage(context.Background(), ChatRequest{UserID: 1, Message: "질문"})
	require.NoError(t, err)
	assert.Contains(t, resp.Answer, validAnswer())
}

func TestChatService_ProcessMessage_CancelledBeforePersistence(t *testing.T) {
	// キャンセル済みターンはセッション履歴にも永続化層にも残らない
	retriever := &fakeRetriever{resp: contextWith("schedule", "회의", 0.9)}
	repo := &fakeRepo{}
	indexer := &fakeIndexer{}
	sessions := domain.NewSessionStore()

	ctx, cancel := context.WithCancel(context.Background())
	generator := &cancellingGenerator{cancel: cancel}

	svc := NewChatService(
		retriever, generator, indexer, repo,
		sessions, domain.NewPromptBuilder(runeCounter{}),
		slog.New(slog.DiscardHandler),
	)

	_, err := svc.ProcessMessage(ctx, ChatRequest{UserID: 1, Message: "질문"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, repo.turns)
	assert.Empty(t, indexer.docs)
	assert.Zero(t, sessions.Len(domain.SessionKey(1, "")))
}

// cancellingGenerator は生成完了と同時にコンテキストをキャンセルする
type cancellingGenerator struct {
	cancel context.CancelFunc
}

func (g *cancellingGenerator) GenerateCompletion(ctx context.Context, req llmdomain.CompletionRequest) (llmdomain.CompletionResponse, error) {
	g.cancel()
	return llmdomain.CompletionResponse{Content: validAnswer()}, nil
}

func TestChatService_ProcessMessage_HistoryGrowsAcrossTurns(t *testing.T) {
	retriever := &fakeRetriever{resp: contextWith("schedule", "회의", 0.9)}
	generator := &fakeGenerator{responses: []string{validAnswer()}}
	sessions := domain.NewSessionStore()

	svc := NewChatService(
		retriever, generator, &fakeIndexer{}, &fakeRepo{},
		sessions, domain.NewPromptBuilder(runeCounter{}),
		slog.New(slog.DiscardHandler),
	)

	for i := 0; i < 3; i++ {
		_, err := svc.ProcessMessage(context.Background(), ChatRequest{
			UserID: 1, ChatID: "c1", Message: fmt.Sprintf("질문 %d입니다", i),
		})
		require.NoError(t, err)
	}

	// 履歴は刈り込まれず、ターンごとに2件ずつ増える
	assert.Equal(t, 6, sessions.Len(domain.SessionKey(1, "c1")))
}
