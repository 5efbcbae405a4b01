package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	chatapp "github.com/jinford/assist-rag/internal/module/chat/application"
	chatdomain "github.com/jinford/assist-rag/internal/module/chat/domain"
	searchapp "github.com/jinford/assist-rag/internal/module/search/application"
	searchdomain "github.com/jinford/assist-rag/internal/module/search/domain"
)

// chatSendRequest は POST /api/chat/send のリクエストボディ
type chatSendRequest struct {
	UserID  int64  `json:"user_id"`
	ChatID  string `json:"chat_id,omitempty"`
	Message string `json:"message"`
	Style   string `json:"style,omitempty"`
	TopK    int    `json:"top_k,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req chatSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.chat.ProcessMessage(r.Context(), chatapp.ChatRequest{
		UserID:  req.UserID,
		ChatID:  req.ChatID,
		Message: req.Message,
		Style:   req.Style,
		TopK:    req.TopK,
	})
	if err != nil {
		if errors.Is(err, chatdomain.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		s.logger.Error("failed to process chat message", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	// 同じchat_idを共有する全WebSocket接続へ配信する
	s.hub.BroadcastToChat(resp.ChatID, resp)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	req := searchapp.SearchRequest{Query: query}

	if v := r.URL.Query().Get("top_k"); v != "" {
		topK, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "top_k must be an integer")
			return
		}
		req.TopK = topK
	}

	if v := r.URL.Query().Get("threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		req.Threshold = &threshold
	}

	if v := r.URL.Query().Get("no_cache"); v != "" {
		noCache, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "no_cache must be a boolean")
			return
		}
		req.BypassCache = noCache
	}

	resp, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		if errors.Is(err, searchdomain.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}
		s.logger.Error("search failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, searchResponseBody(resp))
}

func (s *Server) handleIndexAll(w http.ResponseWriter, r *http.Request) {
	report, err := s.indexer.IndexAll(r.Context(), s.systemTables)
	if err != nil {
		s.logger.Error("bulk indexing failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "indexing failed")
		return
	}

	s.searcher.ClearCache()
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleIndexTable(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	chunks, err := s.indexer.IndexTable(r.Context(), table)
	if err != nil {
		s.logger.Error("table indexing failed",
			slog.String("table", table), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "indexing failed")
		return
	}

	s.searcher.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "chunks": chunks})
}

func (s *Server) handleIndexRecord(w http.ResponseWriter, r *http.Request) {
	table, rowID, ok := recordParams(w, r)
	if !ok {
		return
	}

	chunks, err := s.indexer.IndexRecord(r.Context(), table, rowID)
	if err != nil {
		s.logger.Error("record indexing failed",
			slog.String("table", table), slog.Int64("row_id", rowID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "indexing failed")
		return
	}

	s.searcher.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "row_id": rowID, "chunks": chunks})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	table, rowID, ok := recordParams(w, r)
	if !ok {
		return
	}

	if err := s.indexer.DeleteRecord(r.Context(), table, rowID); err != nil {
		s.logger.Error("record deletion failed",
			slog.String("table", table), slog.Int64("row_id", rowID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "deletion failed")
		return
	}

	s.searcher.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "row_id": rowID, "deleted": true})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.Reset(r.Context()); err != nil {
		s.logger.Error("vector index reset failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}

	s.searcher.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}

// recordParams はURLからテーブル名と行IDを取り出す
func recordParams(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	table := chi.URLParam(r, "table")
	rowID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return "", 0, false
	}
	return table, rowID, true
}

// searchResponseBody は検索結果をAPI形式へ変換する
func searchResponseBody(resp searchapp.SearchResponse) map[string]any {
	results := make([]map[string]any, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]any{
			"id":            r.ID,
			"score":         r.Score,
			"ranking_score": r.RankingScore,
			"table":         r.Metadata.Table,
			"row_id":        r.Metadata.RowID,
			"text":          r.Metadata.Text,
		})
	}

	return map[string]any{
		"results":          results,
		"total_candidates": resp.TotalCandidates,
		"filtered_count":   resp.FilteredCount,
		"threshold":        resp.Threshold,
		"source":           resp.Source,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
