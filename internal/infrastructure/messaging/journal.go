package messaging

import (
	"context"
	"strconv"

	"screenplay-wizard/internal/application/events"
	"screenplay-wizard/pkg/logger"
)

// Publisher 流写入端口
type Publisher interface {
	Publish(ctx context.Context, stream Stream, msg *Message) (string, error)
}

// Journal 订阅事件中心，把 batch_finished 事件写入流
type Journal struct {
	hub       *events.Hub
	publisher Publisher
	stream    Stream
}

// NewJournal 创建批次日志；stream 为空时使用 StreamBatchJournal
func NewJournal(hub *events.Hub, publisher Publisher, stream Stream) *Journal {
	if stream == "" {
		stream = StreamBatchJournal
	}
	return &Journal{hub: hub, publisher: publisher, stream: stream}
}

// Run 持续转发直到 ctx 取消；只转发启动之后结束的批次
func (j *Journal) Run(ctx context.Context) {
	_, ch, unsubscribe, _ := j.hub.ReplayAndSubscribe(j.hub.LastSeq())
	defer unsubscribe()

	logger.Info(ctx, "batch journal started", "stream", string(j.stream))
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Type != events.TypeBatchFinished {
				continue
			}
			j.forward(ctx, ev)
		}
	}
}

func (j *Journal) forward(ctx context.Context, ev events.Event) {
	msg, err := NewMessage(ev.BatchID, string(ev.Type), ev.ProjectPath, ev.Data)
	if err != nil {
		logger.Error(ctx, "failed to encode batch journal entry", err, "batch_id", ev.BatchID)
		return
	}
	msg.CreatedAt = ev.TS
	msg.SetMetadata("seq", strconv.FormatUint(ev.Seq, 10))

	if _, err := j.publisher.Publish(ctx, j.stream, msg); err != nil {
		// 日志流不是数据源，写入失败只记录
		logger.Warn(ctx, "failed to publish batch journal entry",
			"batch_id", ev.BatchID,
			"error", err.Error(),
		)
	}
}
