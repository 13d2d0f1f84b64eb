package wizard

import (
	"context"
	"sync"
	"time"

	"screenplay-wizard/pkg/logger"
	"screenplay-wizard/pkg/metrics"
)

const autosaveTimeout = 30 * time.Second

// autosaver 防抖保存：连续修改只在静默 delay 之后保存一次
type autosaver struct {
	delay time.Duration
	save  func(ctx context.Context) error

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	lastErr string
	// saving 串行化保存，避免旧快照覆盖新快照
	saving sync.Mutex
}

func newAutosaver(delay time.Duration, save func(ctx context.Context) error) *autosaver {
	return &autosaver{delay: delay, save: save}
}

// Schedule 标记有未保存修改并重置计时器
func (a *autosaver) Schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = true
	if a.timer != nil {
		a.timer.Stop()
	}
	if a.delay <= 0 {
		a.timer = time.AfterFunc(0, a.fire)
		return
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *autosaver) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()
	if err := a.Flush(ctx); err != nil {
		logger.Error(ctx, "autosave failed", err)
	}
}

// Flush 立即保存未保存的修改
func (a *autosaver) Flush(ctx context.Context) error {
	a.saving.Lock()
	defer a.saving.Unlock()

	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	pending := a.pending
	a.pending = false
	a.mu.Unlock()

	if !pending {
		return nil
	}
	err := a.save(ctx)

	a.mu.Lock()
	if err != nil {
		// 保存失败保留 pending，下一次修改或 Flush 会重试
		a.pending = true
		a.lastErr = err.Error()
	} else {
		a.lastErr = ""
	}
	a.mu.Unlock()

	if err != nil {
		metrics.AutosaveTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.AutosaveTotal.WithLabelValues("ok").Inc()
	return nil
}

// Cancel 丢弃未保存的修改（项目被整体替换时）
func (a *autosaver) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = false
	a.lastErr = ""
}

// Status 返回是否有未保存修改及最近一次保存错误
func (a *autosaver) Status() (pending bool, lastErr string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending, a.lastErr
}
