package server

import (
	"sync/atomic"
)

// SyncMetrics 记录同步中心运行期的关键指标（用于监控与调试）
type SyncMetrics struct {
	MessagesReceived  int64 // 入站消息数（WS + HTTP）
	MutationsAccepted int64 // 成功应用到世界的变更数
	Rejected          int64 // 校验失败或未知玩家被拒绝的请求数
	Malformed         int64 // 无法解析或未知种类的消息数
	RateLimited       int64 // 因连接限流被丢弃的消息数
	Broadcasts        int64 // 广播次数
	SendsDelivered    int64 // 成功入队的发送数
	SendsDropped      int64 // 因发送队列满被丢弃的发送数
	SendsSkipped      int64 // 因连接已关闭被跳过的发送数
}

func (m *SyncMetrics) IncReceived()       { atomic.AddInt64(&m.MessagesReceived, 1) }
func (m *SyncMetrics) IncAccepted()       { atomic.AddInt64(&m.MutationsAccepted, 1) }
func (m *SyncMetrics) IncRejected()       { atomic.AddInt64(&m.Rejected, 1) }
func (m *SyncMetrics) IncMalformed()      { atomic.AddInt64(&m.Malformed, 1) }
func (m *SyncMetrics) IncRateLimited()    { atomic.AddInt64(&m.RateLimited, 1) }
func (m *SyncMetrics) IncBroadcasts()     { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *SyncMetrics) AddDelivered(n int) { atomic.AddInt64(&m.SendsDelivered, int64(n)) }
func (m *SyncMetrics) AddDropped(n int)   { atomic.AddInt64(&m.SendsDropped, int64(n)) }
func (m *SyncMetrics) AddSkipped(n int)   { atomic.AddInt64(&m.SendsSkipped, int64(n)) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *SyncMetrics) Snapshot() map[string]any {
	return map[string]any{
		"messages_received":  atomic.LoadInt64(&m.MessagesReceived),
		"mutations_accepted": atomic.LoadInt64(&m.MutationsAccepted),
		"rejected":           atomic.LoadInt64(&m.Rejected),
		"malformed":          atomic.LoadInt64(&m.Malformed),
		"rate_limited":       atomic.LoadInt64(&m.RateLimited),
		"broadcasts":         atomic.LoadInt64(&m.Broadcasts),
		"sends_delivered":    atomic.LoadInt64(&m.SendsDelivered),
		"sends_dropped":      atomic.LoadInt64(&m.SendsDropped),
		"sends_skipped":      atomic.LoadInt64(&m.SendsSkipped),
	}
}
