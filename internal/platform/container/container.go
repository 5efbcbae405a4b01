// Package container はアプリケーションの依存関係を組み立てます
package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	chatapp "github.com/jinford/assist-rag/internal/module/chat/application"
	chatdomain "github.com/jinford/assist-rag/internal/module/chat/domain"
	chatpg "github.com/jinford/assist-rag/internal/module/chat/adapter/pg"
	indexingapp "github.com/jinford/assist-rag/internal/module/indexing/application"
	indexingpg "github.com/jinford/assist-rag/internal/module/indexing/adapter/pg"
	llmadapter "github.com/jinford/assist-rag/internal/module/llm/adapter"
	searchapp "github.com/jinford/assist-rag/internal/module/search/application"
	searchcache "github.com/jinford/assist-rag/internal/module/search/adapter/cache"
	searchdomain "github.com/jinford/assist-rag/internal/module/search/domain"
	searchpg "github.com/jinford/assist-rag/internal/module/search/adapter/pg"
	translateadapter "github.com/jinford/assist-rag/internal/module/translate/adapter"
	"github.com/jinford/assist-rag/internal/platform/config"
	"github.com/jinford/assist-rag/internal/platform/database"
)

// systemTables は一括インデックスから除外するテーブル
// 会話テーブルは自己インデックス経由で登録されるため対象外にする
var systemTables = []string{"rag_vectors", "chat", "chat_history"}

// Container はアプリケーションのサービス一式を保持します
type Container struct {
	Config          *config.Config
	SearchService   *searchapp.SearchService
	IndexingService *indexingapp.IndexingService
	ChatService     *chatapp.ChatService

	vectorStore *searchpg.VectorStore
	chatRepo    *chatpg.ConversationRepository
	logger      *slog.Logger
	database    *database.Database
}

// New は設定から全サービスを組み立てます
// 依存はすべてここで明示的に注入され、遅延初期化は行わない
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	db, err := database.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	embedder, err := llmadapter.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimension)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	llmClient, err := llmadapter.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	tokenCounter, err := llmadapter.NewTiktokenCounter()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create token counter: %w", err)
	}

	vectorStore := searchpg.NewVectorStore(db.Pool(), cfg.OpenAI.EmbeddingDimension)
	filter := searchdomain.NewThresholdFilter(cfg.Search.Threshold)
	ranker := searchdomain.NewRanker()
	queryCache := searchcache.New(
		searchcache.WithTTL(time.Duration(cfg.Search.CacheTTLSecs) * time.Second),
	)

	searchOpts := []searchapp.Option{searchapp.WithDefaultTopK(cfg.Search.TopK)}
	var indexingOpts []indexingapp.Option
	if cfg.Translation.Enabled {
		translator := translateadapter.NewGoogleTranslator()
		searchOpts = append(searchOpts,
			searchapp.WithTranslator(translator, cfg.Translation.SourceLang, cfg.Translation.TargetLang))
		indexingOpts = append(indexingOpts,
			indexingapp.WithTranslator(translator, cfg.Translation.SourceLang, cfg.Translation.TargetLang))
	}

	searchService := searchapp.NewSearchService(
		embedder, vectorStore, filter, ranker, queryCache, logger, searchOpts...)

	rowSource := indexingpg.NewRowSource(db.Pool())
	indexingService := indexingapp.NewIndexingService(
		rowSource, embedder, vectorStore, logger, indexingOpts...)

	chatRepo := chatpg.NewConversationRepository(db.Pool())
	chatService := chatapp.NewChatService(
		searchService,
		llmClient,
		indexingService,
		chatRepo,
		chatdomain.NewSessionStore(),
		chatdomain.NewPromptBuilder(tokenCounter, chatdomain.WithMaxTokens(cfg.Chat.MaxPromptTokens)),
		logger,
	)

	return &Container{
		Config:          cfg,
		SearchService:   searchService,
		IndexingService: indexingService,
		ChatService:     chatService,
		vectorStore:     vectorStore,
		chatRepo:        chatRepo,
		logger:          logger,
		database:        db,
	}, nil
}

// EnsureSchema はベクトルテーブルと会話テーブルを作成します
func (c *Container) EnsureSchema(ctx context.Context) error {
	if err := c.vectorStore.EnsureSchema(ctx); err != nil {
		return err
	}
	return c.chatRepo.EnsureSchema(ctx)
}

// SystemTables は一括インデックスから除外するテーブル名を返す
func (c *Container) SystemTables() []string {
	return systemTables
}

// Close は保持しているリソースを解放します
func (c *Container) Close() {
	c.database.Close()
}
