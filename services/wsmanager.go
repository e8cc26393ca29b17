package services

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// wsConn - то, что менеджеру нужно от websocket.Conn
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// WSConnManager хранит websocket-соединения по пользователям.
// Запись идет под общей блокировкой: gorilla не допускает параллельных записей.
type WSConnManager struct {
	mu    sync.Mutex
	users map[int64][]wsConn
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		users: make(map[int64][]wsConn),
	}
}

func (m *WSConnManager) Add(userID int64, conn wsConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = append(m.users[userID], conn)
}

func (m *WSConnManager) Remove(userID int64, conn wsConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(userID, conn)
}

func (m *WSConnManager) removeLocked(userID int64, conn wsConn) {
	conns := m.users[userID]
	for i, c := range conns {
		if c == conn {
			m.users[userID] = append(conns[:i:i], conns[i+1:]...)
			break
		}
	}
	if len(m.users[userID]) == 0 {
		delete(m.users, userID)
	}
}

// Send пишет сообщение во все соединения пользователя. Соединения
// с ошибкой записи закрываются. Возвращает число успешных отправок.
func (m *WSConnManager) Send(userID int64, message []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	sent := 0
	for _, conn := range append([]wsConn(nil), m.users[userID]...) {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			_ = conn.Close()
			m.removeLocked(userID, conn)
			continue
		}
		sent++
	}
	return sent
}

func (m *WSConnManager) Count(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users[userID])
}
