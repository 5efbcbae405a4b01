// Package domain は会話モジュールのドメインモデルを提供します
package domain

import (
	"fmt"
	"sync"
	"time"
)

// Role は会話ターンの発話者
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn は会話の1ターンを表します
type Turn struct {
	Role      Role
	Content   string
	CreatedAt time.Time
}

// SessionKey は (userID, chatID) からセッションキーを導出する
// chatIDが空の場合はユーザー単位のセッションになる
func SessionKey(userID int64, chatID string) string {
	if chatID == "" {
		return fmt.Sprintf("user:%d", userID)
	}
	return fmt.Sprintf("user:%d:chat:%s", userID, chatID)
}

// SessionStore はプロセス内の会話履歴を保持します
//
// 履歴は追記のみで、プロセス生存中は破棄されない。プロンプト構築時の
// 直近Nターンの窓は読み出し側の責務。同一セッションのターンは
// 到着順に処理する必要があるため、キー単位の直列化ロックを提供する
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string][]Turn
	locks    map[string]*sync.Mutex
}

// NewSessionStore は新しいSessionStoreを作成します
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string][]Turn),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Acquire はセッションキー単位のロックを取得し、解放関数を返す
// 同一キーのターン処理を直列化するために、ターン処理の先頭で呼ぶ
func (s *SessionStore) Acquire(key string) (release func()) {
	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// History はセッションの全ターンのコピーを返す
func (s *SessionStore) History(key string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[key]
	copied := make([]Turn, len(turns))
	copy(copied, turns)
	return copied
}

// Append はセッションにターンを追記する
func (s *SessionStore) Append(key string, turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[key] = append(s.sessions[key], turns...)
}

// Len はセッションのターン数を返す
func (s *SessionStore) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions[key])
}
