package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"screenplay-wizard/internal/application/events"
	"screenplay-wizard/internal/interfaces/http/dto"
	"screenplay-wizard/pkg/logger"
)

const (
	wsWriteWait = 10 * time.Second
	// 客户端需在两次心跳内回 pong
	wsPongFactor = 2
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage WebSocket 推送帧
type wsMessage struct {
	Type  string        `json:"type"`
	Event *events.Event `json:"event,omitempty"`
	Since uint64        `json:"since,omitempty"`
}

// EventsWS 以 WebSocket 推送与 SSE 相同的事件；客户端发送的消息被忽略
// @Summary 订阅事件流（WebSocket）
// @Tags Events
// @Param since query int false "重放起点序号"
// @Success 101 "Switching Protocols"
// @Router /v1/events/ws [get]
func (h *StreamHandler) EventsWS(c *gin.Context) {
	since, err := dto.BindSince(c)
	if err != nil {
		respondError(c, "invalid since", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写出错误响应
		logger.Warn(c.Request.Context(), "websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	replay, ch, unsubscribe, truncated := h.hub.ReplayAndSubscribe(since)
	defer unsubscribe()

	pongWait := h.heartbeat * wsPongFactor
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// 读协程只负责处理控制帧并感知断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg wsMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(msg) == nil
	}

	if truncated && !write(wsMessage{Type: "replay_truncated", Since: since}) {
		return
	}
	for i := range replay {
		if !write(wsMessage{Type: string(replay[i].Type), Event: &replay[i]}) {
			return
		}
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(wsWriteWait))
				return
			}
			if !write(wsMessage{Type: string(ev.Type), Event: &ev}) {
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}

		case <-closed:
			return

		case <-c.Request.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(wsWriteWait))
			return
		}
	}
}
