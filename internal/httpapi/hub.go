package httpapi

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxSocketFrame = 1 << 20
	clientSendSize = 64
)

// Message WebSocket 出站帧统一外壳
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub WebSocket 连接中枢
// 所有连接变更和广播都经由单 goroutine 串行处理；
// 发送缓冲打满的慢客户端直接断开，避免拖垮广播
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	clients    map[*Client]bool
	logger     *zap.Logger
}

// NewHub 创建连接中枢
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run 中枢主循环（在独立 goroutine 中运行，直到 ctx 取消）
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("WebSocket client connected",
				zap.Int("client_count", len(h.clients)),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				client.closeSend()
				delete(h.clients, client)
				h.logger.Info("WebSocket client disconnected",
					zap.Int("client_count", len(h.clients)),
				)
			}

		case payload := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					client.closeSend()
					delete(h.clients, client)
					h.logger.Warn("Dropping slow WebSocket client")
				}
			}
		}
	}
}

// Broadcast 向全部客户端广播一条消息
func (h *Hub) Broadcast(msgType string, data any) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message",
			zap.String("type", msgType),
			zap.Error(err),
		)
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("Broadcast channel full, dropping message",
			zap.String("type", msgType),
		)
	}
}

// Client 单个 WebSocket 连接
// send 只由中枢 goroutine 关闭；readPump 可能并发调用 Send，
// 所以关闭状态必须在锁内判定，不能只靠 select
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// Send 向该客户端单发一条消息（请求/应答式交互用）
// 客户端已被中枢摘除后调用是空操作
func (c *Client) Send(msgType string, data any) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// closeSend 关闭发送缓冲（仅由中枢 goroutine 调用）
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump 把发送缓冲写到连接上，并周期性发 ping 维持读侧超时
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
