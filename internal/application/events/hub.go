// Package events 提供向渲染层推送的变更与进度事件
package events

import (
	"sync"
	"time"
)

// Type 事件类型
type Type string

const (
	TypeStateChanged  Type = "state_changed"
	TypeBatchStarted  Type = "batch_started"
	TypeUnitCompleted Type = "unit_completed"
	TypeUnitFailed    Type = "unit_failed"
	TypeBatchFinished Type = "batch_finished"
)

const (
	defaultReplaySize = 1000
	defaultBufSize    = 64
)

// Event 推送事件；Seq 在进程内单调递增
type Event struct {
	Seq         uint64    `json:"seq"`
	TS          time.Time `json:"ts"`
	Type        Type      `json:"type"`
	ProjectPath string    `json:"projectPath,omitempty"`
	BatchID     string    `json:"batchId,omitempty"`
	Data        any       `json:"data,omitempty"`
}

// HubConfig 事件中心配置
type HubConfig struct {
	ReplaySize        int
	SubscriberBufSize int
}

// Hub 事件中心：有界回放缓冲 + 非阻塞扇出（慢订阅者会丢事件，可通过 since 重放补齐）
type Hub struct {
	mu      sync.Mutex
	nextSeq uint64
	events  []Event
	subs    map[chan Event]struct{}

	replaySize int
	bufSize    int
}

// NewHub 创建事件中心
func NewHub(cfg HubConfig) *Hub {
	replay := cfg.ReplaySize
	if replay <= 0 {
		replay = defaultReplaySize
	}
	buf := cfg.SubscriberBufSize
	if buf <= 0 {
		buf = defaultBufSize
	}
	return &Hub{
		subs:       make(map[chan Event]struct{}),
		replaySize: replay,
		bufSize:    buf,
	}
}

// Publish 发布事件并返回带序号的副本
func (h *Hub) Publish(ev Event) Event {
	h.mu.Lock()
	h.nextSeq++
	ev.Seq = h.nextSeq
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	h.events = append(h.events, ev)
	if len(h.events) > h.replaySize {
		h.events = h.events[len(h.events)-h.replaySize:]
	}
	// 在锁内发送，避免与 unsubscribe 的 close 竞争
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
	return ev
}

// ReplayAndSubscribe 返回 seq 大于 since 的缓存事件并订阅后续事件。
// truncated 表示缓冲已丢弃了部分请求的事件。
func (h *Hub) ReplayAndSubscribe(since uint64) (replay []Event, ch <-chan Event, unsubscribe func(), truncated bool) {
	sub := make(chan Event, h.bufSize)

	h.mu.Lock()
	if len(h.events) > 0 && h.events[0].Seq > since+1 && since > 0 {
		truncated = true
	}
	for _, ev := range h.events {
		if ev.Seq > since {
			replay = append(replay, ev)
		}
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return replay, sub, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			close(sub)
			h.mu.Unlock()
		})
	}, truncated
}

// LastSeq 返回最近一次发布的序号
func (h *Hub) LastSeq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nextSeq
}

// SubscriberCount 返回当前订阅者数量
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
