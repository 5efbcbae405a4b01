package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	chatapp "github.com/jinford/assist-rag/internal/module/chat/application"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 同一オリジン制約はリバースプロキシ側で扱う前提
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient はWebSocketの1接続を表す
// 1ユーザーが複数デバイスから同時接続できる
type wsClient struct {
	conn   *websocket.Conn
	userID int64
	chatID string
	sendMu sync.Mutex
}

func (c *wsClient) send(v any) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub はWebSocket接続の集合を管理します
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	logger  *slog.Logger
}

// NewHub は新しいHubを作成します
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger,
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// BroadcastToChat は同じchatIDを共有する全接続へ応答を配信する
func (h *Hub) BroadcastToChat(chatID string, payload any) {
	if chatID == "" {
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0)
	for c := range h.clients {
		if c.chatID == chatID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(payload); err != nil {
			h.logger.Warn("failed to broadcast to websocket client",
				slog.Int64("user_id", c.userID), slog.Any("error", err))
		}
	}
}

// CloseAll は全接続を閉じる（サーバー停止時）
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		_ = c.conn.Close()
	}
	h.clients = make(map[*wsClient]struct{})
}

// wsInbound はWebSocket経由の会話メッセージ
type wsInbound struct {
	Message string `json:"message"`
	Style   string `json:"style,omitempty"`
	TopK    int    `json:"top_k,omitempty"`
}

// handleWebSocket は GET /ws?user_id=&chat_id= を処理する
// 受信メッセージごとに会話ターンを処理し、同じchat_idの全接続へ配信する
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id must be an integer")
		return
	}
	chatID := r.URL.Query().Get("chat_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &wsClient{conn: conn, userID: userID, chatID: chatID}
	s.hub.register(client)
	defer func() {
		s.hub.unregister(client)
		_ = conn.Close()
	}()

	s.logger.Info("websocket connected",
		slog.Int64("user_id", userID), slog.String("chat_id", chatID))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", slog.Any("error", err))
			}
			return
		}

		var inbound wsInbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			_ = client.send(errorResponse{Error: "invalid message format"})
			continue
		}

		resp, err := s.chat.ProcessMessage(r.Context(), chatapp.ChatRequest{
			UserID:  userID,
			ChatID:  chatID,
			Message: inbound.Message,
			Style:   inbound.Style,
			TopK:    inbound.TopK,
		})
		if err != nil {
			_ = client.send(errorResponse{Error: "failed to process message"})
			continue
		}

		if chatID != "" {
			s.hub.BroadcastToChat(chatID, resp)
		} else {
			_ = client.send(resp)
		}
	}
}
