// Package httpapi はHTTP/WebSocketの入口を提供します
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatapp "github.com/jinford/assist-rag/internal/module/chat/application"
	indexingapp "github.com/jinford/assist-rag/internal/module/indexing/application"
	searchapp "github.com/jinford/assist-rag/internal/module/search/application"
)

// ChatProcessor は会話ターンを処理する
type ChatProcessor interface {
	ProcessMessage(ctx context.Context, req chatapp.ChatRequest) (chatapp.ChatResponse, error)
}

// Searcher は類似検索を実行する
type Searcher interface {
	Search(ctx context.Context, req searchapp.SearchRequest) (searchapp.SearchResponse, error)
	ClearCache()
}

// Indexer はインデックス操作を実行する
type Indexer interface {
	IndexAll(ctx context.Context, exclude []string) (indexingapp.IndexReport, error)
	IndexTable(ctx context.Context, table string) (int, error)
	IndexRecord(ctx context.Context, table string, rowID int64) (int, error)
	DeleteRecord(ctx context.Context, table string, rowID int64) error
	Reset(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// Server はHTTP APIサーバー
type Server struct {
	chat         ChatProcessor
	searcher     Searcher
	indexer      Indexer
	systemTables []string
	hub          *Hub
	logger       *slog.Logger
	httpServer   *http.Server
}

// NewServer は新しいServerを作成します
func NewServer(
	addr string,
	chat ChatProcessor,
	searcher Searcher,
	indexer Indexer,
	systemTables []string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		chat:         chat,
		searcher:     searcher,
		indexer:      indexer,
		systemTables: systemTables,
		hub:          NewHub(logger),
		logger:       logger,
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/search", s.handleSearch)
	r.Post("/api/chat/send", s.handleChatSend)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/index", func(r chi.Router) {
		r.Post("/all", s.handleIndexAll)
		r.Post("/table/{table}", s.handleIndexTable)
		r.Post("/record/{table}/{id}", s.handleIndexRecord)
		r.Post("/delete/{table}/{id}", s.handleDeleteRecord)
	})

	r.Post("/reset-vectordb", s.handleReset)

	return r
}

// Start はサーバーを起動し、コンテキストのキャンセルで停止します
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server started", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.hub.CloseAll()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// logRequests は処理時間つきのアクセスログを出力する
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
