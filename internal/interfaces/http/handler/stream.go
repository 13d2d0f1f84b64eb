package handler

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"screenplay-wizard/internal/application/events"
	"screenplay-wizard/internal/interfaces/http/dto"
)

const defaultHeartbeat = 15 * time.Second

// StreamHandler 事件流处理器（SSE）
type StreamHandler struct {
	hub       *events.Hub
	heartbeat time.Duration
}

// NewStreamHandler 创建事件流处理器；heartbeat <= 0 时使用默认心跳间隔
func NewStreamHandler(hub *events.Hub, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &StreamHandler{hub: hub, heartbeat: heartbeat}
}

// Events 推送变更与进度事件；since 之后的缓存事件先重放
// @Summary 订阅事件流
// @Tags Events
// @Produce text/event-stream
// @Param since query int false "重放起点序号"
// @Success 200 "SSE stream"
// @Router /v1/events [get]
func (h *StreamHandler) Events(c *gin.Context) {
	since, err := dto.BindSince(c)
	if err != nil {
		respondError(c, "invalid since", err)
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	replay, ch, unsubscribe, truncated := h.hub.ReplayAndSubscribe(since)
	defer unsubscribe()

	if truncated {
		c.SSEvent("replay_truncated", gin.H{"since": since, "note": "some events are no longer buffered"})
	}
	for _, ev := range replay {
		writeEvent(c, ev)
	}
	// 没有可重放事件时先写一个注释，让客户端尽早收到响应头
	_, _ = io.WriteString(c.Writer, ": ok\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			writeEvent(c, ev)
			return true

		case <-ticker.C:
			_, err := fmt.Fprintf(w, ": ping %d\n\n", h.hub.LastSeq())
			return err == nil

		case <-c.Request.Context().Done():
			// 客户端断开
			return false
		}
	})
}

// writeEvent 写出带 id 的 SSE 事件，断线重连时浏览器会回传 Last-Event-ID
func writeEvent(c *gin.Context, ev events.Event) {
	c.Render(-1, sse.Event{
		Id:    strconv.FormatUint(ev.Seq, 10),
		Event: string(ev.Type),
		Data:  ev,
	})
}
