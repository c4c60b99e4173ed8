package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	readLimit  = 1 << 16
)

// ClientConn 一个 WebSocket 订阅者：发送队列 + 读写协程
type ClientConn struct {
	id      string
	ws      *websocket.Conn
	limiter *rate.Limiter
	log     *zap.SugaredLogger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClientConn 包装已完成握手的连接
func NewClientConn(ws *websocket.Conn, sendBuffer int, rl RateLimitConfig, log *zap.SugaredLogger) *ClientConn {
	return &ClientConn{
		id:      uuid.NewString(),
		ws:      ws,
		limiter: newLimiter(rl),
		log:     log,
		send:    make(chan []byte, sendBuffer),
	}
}

// newLimiter PerSecond <= 0 表示不限流，所有消息都会交给 SyncHub
func newLimiter(rl RateLimitConfig) *rate.Limiter {
	if rl.PerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rl.PerSecond), rl.Burst)
}

func (c *ClientConn) ID() string { return c.id }

// Open 发送队列是否仍可用
func (c *ClientConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Send 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Send(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性，丢弃本次发送（防止阻塞广播）
		return false
	}
}

// Close 关闭发送队列，写协程随后发送 close 帧并关闭底层连接。可重复调用
func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debugf("write to %s failed: %v", c.id, err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息交给 SyncHub；退出时取消订阅并关闭连接
func (c *ClientConn) readPump(hub *SyncHub) {
	defer func() {
		hub.Unsubscribe(c)
		c.Close()
		_ = c.ws.Close()
	}()
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				c.log.Infof("read from %s: %v", c.id, err)
			}
			return
		}
		if !c.limiter.Allow() {
			hub.Metrics().IncRateLimited()
			c.log.Warnf("rate limit exceeded for %s; discarding message", c.id)
			continue
		}
		hub.HandleMessage(c, payload)
	}
}

// WSHandler WebSocket 接入：握手后立即推送一次 updateGameState，随后双工收发
type WSHandler struct {
	hub      *SyncHub
	cfg      Config
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
}

// NewWSHandler 创建 WebSocket 处理器，来源校验由 policy 决定
func NewWSHandler(hub *SyncHub, cfg Config, policy *OriginPolicy, log *zap.SugaredLogger) *WSHandler {
	return &WSHandler{
		hub: hub,
		cfg: cfg,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.CheckWebSocketOrigin,
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("upgrade error from %s: %v", r.RemoteAddr, err)
		return
	}

	client := NewClientConn(ws, h.cfg.SendBuffer, h.cfg.RateLimit, h.log)
	go client.writePump()
	h.hub.Subscribe(client)
	go client.readPump(h.hub)
}
