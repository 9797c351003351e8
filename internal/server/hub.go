package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/gorilla/websocket"
)

const (
	clientQueueSize = 8
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 54 * time.Second
	maxReadSize     = 512
)

// wsClient は接続中の WebSocket クライアント1つ分です。
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{conn: conn, send: make(chan []byte, clientQueueSize)}
}

// enqueue は送信キューへ追加する。キューが満杯なら一番古いものを捨てるのだ。
// どのスナップショットも全体の状態なので、最新のものさえ届けば画面は正しくなります。
func (c *wsClient) enqueue(msg []byte) {
	for {
		select {
		case c.send <- msg:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

// writeLoop は送信キューの内容と定期的な ping を書き込みます。
func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("WebSocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop は切断の検知と pong の受信のためだけに読み込みを続けます。
func (c *wsClient) readLoop() {
	c.conn.SetReadLimit(maxReadSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Hub はストアのスナップショットを全ての WebSocket クライアントへ配信します。
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewHub は空の Hub を返します。
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// Publish は storyboard.Listener として登録され、スナップショットを1回だけ JSON 化して配ります。
func (h *Hub) Publish(s domain.Snapshot) {
	msg, err := json.Marshal(s)
	if err != nil {
		slog.Error("スナップショットのエンコードに失敗したのだ", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.enqueue(msg)
	}
}

// join は現在の状態を最初のメッセージとして積んでからクライアントを登録します。
// 同じロックの中で行うため、登録直後に古い状態が新しい状態を追い越すことはありません。
func (h *Hub) join(c *wsClient, current func() domain.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg, err := json.Marshal(current())
	if err != nil {
		return err
	}
	c.enqueue(msg)
	h.clients[c] = struct{}{}
	return nil
}

// leave はクライアントを外して送信キューを閉じます。何度呼んでも安全です。
func (h *Hub) leave(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Len は接続中のクライアント数を返します。
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
