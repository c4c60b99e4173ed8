package server

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Subscriber 一个可接收广播的双向连接。Send 必须非阻塞
type Subscriber interface {
	// ID 仅用于日志关联，与用户名无关
	ID() string
	// Open 连接是否仍可写
	Open() bool
	// Send 将消息入队；队列满或已关闭时返回 false
	Send(msg []byte) bool
}

// SyncHub 将入站变更应用到 World，并把最新快照广播给所有订阅者
type SyncHub struct {
	world   *World
	log     *zap.SugaredLogger
	metrics *SyncMetrics

	// mu 串行化“变更 → 广播”以及订阅表的增删，保证所有订阅者看到相同顺序
	mu          sync.Mutex
	subscribers map[Subscriber]struct{}
	closed      bool
}

// NewSyncHub 创建同步中心；metrics 可为 nil
func NewSyncHub(world *World, log *zap.SugaredLogger, metrics *SyncMetrics) *SyncHub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if metrics == nil {
		metrics = &SyncMetrics{}
	}
	return &SyncHub{
		world:       world,
		log:         log,
		metrics:     metrics,
		subscribers: make(map[Subscriber]struct{}),
	}
}

// World 返回同步中心持有的世界
func (h *SyncHub) World() *World { return h.world }

// Metrics 返回运行指标
func (h *SyncHub) Metrics() *SyncMetrics { return h.metrics }

// Subscribe 注册订阅者并立即单播一次当前快照。Hub 关闭后接入的订阅者会被直接关闭
func (h *SyncHub) Subscribe(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		h.log.Infof("hub closed, rejecting subscriber: id=%s", s.ID())
		closeSubscriber(s)
		return
	}
	h.subscribers[s] = struct{}{}
	h.log.Infof("subscriber connected: id=%s total=%d", s.ID(), len(h.subscribers))

	msg, err := EncodeStateUpdate(h.world.Snapshot())
	if err != nil {
		h.log.Errorf("encode snapshot for %s: %v", s.ID(), err)
		return
	}
	if !s.Send(msg) {
		h.metrics.AddDropped(1)
		h.log.Warnf("initial snapshot not delivered: id=%s", s.ID())
		return
	}
	h.metrics.AddDelivered(1)
}

// Unsubscribe 移除订阅者；不会删除任何玩家记录
func (h *SyncHub) Unsubscribe(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[s]; !ok {
		return
	}
	delete(h.subscribers, s)
	h.log.Infof("subscriber disconnected: id=%s total=%d", s.ID(), len(h.subscribers))
}

// SubscriberCount 当前订阅者数量
func (h *SyncHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// HandleNewPlayer 注册玩家；成功后广播给所有订阅者（包括发起方），失败只返回错误
func (h *SyncHub) HandleNewPlayer(origin Subscriber, req NewPlayerRequest) (PlayerSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, err := h.world.UpsertPlayer(req.Username, req.Position, req.Color)
	if err != nil {
		h.metrics.IncRejected()
		h.log.Infof("newPlayer rejected: origin=%s err=%v", originID(origin), err)
		return PlayerSnapshot{}, err
	}
	h.metrics.IncAccepted()
	h.log.Infof("player added: origin=%s username=%s position=%d color=%s", originID(origin), p.Username, p.Position, p.Color)
	h.broadcastLocked()
	return p, nil
}

// HandleMove 移动玩家；成功后广播，失败（未知玩家等）只返回错误
func (h *SyncHub) HandleMove(origin Subscriber, req MoveRequest) (PlayerSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, err := h.world.MovePlayer(req.Username, req.Position)
	if err != nil {
		h.metrics.IncRejected()
		h.log.Infof("move rejected: origin=%s err=%v", originID(origin), err)
		return PlayerSnapshot{}, err
	}
	h.metrics.IncAccepted()
	h.log.Debugf("player moved: origin=%s username=%s position=%d", originID(origin), p.Username, p.Position)
	h.broadcastLocked()
	return p, nil
}

// Apply 按消息种类分派到对应处理函数
func (h *SyncHub) Apply(origin Subscriber, msg Inbound) (PlayerSnapshot, error) {
	switch m := msg.(type) {
	case NewPlayerRequest:
		return h.HandleNewPlayer(origin, m)
	case MoveRequest:
		return h.HandleMove(origin, m)
	default:
		return PlayerSnapshot{}, fmt.Errorf("%w: %w %T", ErrMalformedMessage, ErrUnknownKind, msg)
	}
}

// HandleMessage 处理持久连接上的原始入站消息。
// 解析失败或未知种类只记录日志后丢弃，不向发送方回错误
func (h *SyncHub) HandleMessage(origin Subscriber, payload []byte) {
	h.metrics.IncReceived()
	msg, err := DecodeInbound(payload)
	if err != nil {
		if errors.Is(err, ErrMalformedMessage) {
			h.metrics.IncMalformed()
			h.log.Warnf("dropping message from %s: %v", originID(origin), err)
			return
		}
		h.metrics.IncRejected()
		h.log.Infof("message from %s rejected: %v", originID(origin), err)
		return
	}
	// 拒绝已在 HandleNewPlayer/HandleMove 中计数并记录日志
	_, _ = h.Apply(origin, msg)
}

// Broadcast 序列化当前快照并发送给每个仍打开的订阅者
func (h *SyncHub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked()
}

// broadcastLocked 调用方须持有 h.mu。对每个订阅者只尝试一次非阻塞发送
func (h *SyncHub) broadcastLocked() {
	msg, err := EncodeStateUpdate(h.world.Snapshot())
	if err != nil {
		h.log.Errorf("encode snapshot: %v", err)
		return
	}
	h.metrics.IncBroadcasts()

	var sent, dropped, skipped int
	for s := range h.subscribers {
		if !s.Open() {
			// 等待该连接自己的关闭通知来清理
			skipped++
			continue
		}
		if s.Send(msg) {
			sent++
		} else {
			dropped++
			h.log.Warnf("broadcast send dropped: id=%s", s.ID())
		}
	}
	h.metrics.AddDelivered(sent)
	h.metrics.AddDropped(dropped)
	h.metrics.AddSkipped(skipped)
	h.log.Debugf("broadcast: sent=%d dropped=%d skipped=%d", sent, dropped, skipped)
}

// Close 关闭所有仍注册的订阅者（进程退出时调用）
func (h *SyncHub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
		delete(h.subscribers, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		closeSubscriber(s)
	}
	h.log.Infof("hub closed: disconnected=%d", len(subs))
}

func closeSubscriber(s Subscriber) {
	if c, ok := s.(interface{ Close() }); ok {
		c.Close()
	}
}

func originID(s Subscriber) string {
	if s == nil {
		return "http"
	}
	return s.ID()
}
