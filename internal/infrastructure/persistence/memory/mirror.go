// Package memory 提供进程内的项目状态镜像（无 Redis 时使用）
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/domain/repository"
	apperrors "screenplay-wizard/pkg/errors"
	"screenplay-wizard/pkg/metrics"
)

type snapshot struct {
	raw       []byte
	expiresAt time.Time
}

// Mirror 进程内镜像，按用户保存 JSON 快照
type Mirror struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]snapshot
	now   func() time.Time
}

var _ repository.Mirror = (*Mirror)(nil)

// NewMirror 创建内存镜像，ttl <= 0 表示永不过期
func NewMirror(ttl time.Duration) *Mirror {
	return &Mirror{
		ttl:   ttl,
		items: make(map[string]snapshot),
		now:   time.Now,
	}
}

// Get 读取镜像
func (m *Mirror) Get(_ context.Context, username string) (*entity.ProjectState, error) {
	m.mu.Lock()
	item, ok := m.items[username]
	if ok && !item.expiresAt.IsZero() && m.now().After(item.expiresAt) {
		delete(m.items, username)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}

	var state entity.ProjectState
	if err := json.Unmarshal(item.raw, &state); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeMirrorError, "failed to decode mirror snapshot")
	}
	state.Normalize()
	return &state, nil
}

// Put 写入镜像
func (m *Mirror) Put(_ context.Context, username string, state *entity.ProjectState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		metrics.MirrorWriteTotal.WithLabelValues("memory", "error").Inc()
		return apperrors.Wrap(err, apperrors.CodeMirrorError, "failed to encode mirror snapshot")
	}
	item := snapshot{raw: raw}
	if m.ttl > 0 {
		item.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.items[username] = item
	m.mu.Unlock()
	metrics.MirrorWriteTotal.WithLabelValues("memory", "ok").Inc()
	return nil
}

// Clear 删除镜像
func (m *Mirror) Clear(_ context.Context, username string) error {
	m.mu.Lock()
	delete(m.items, username)
	m.mu.Unlock()
	return nil
}
