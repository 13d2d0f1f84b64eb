package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"screenplay-wizard/internal/config"
	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/domain/repository"
	apperrors "screenplay-wizard/pkg/errors"
	"screenplay-wizard/pkg/metrics"
)

const defaultKeyPrefix = "screenplay_wizard:mirror"

// Mirror 以 JSON 快照形式把 ProjectState 镜像到 Redis
type Mirror struct {
	client *Client
	prefix string
	ttl    time.Duration
}

var _ repository.Mirror = (*Mirror)(nil)

// NewMirror 创建 Redis 镜像
func NewMirror(client *Client, cfg *config.MirrorConfig) *Mirror {
	prefix := strings.TrimSuffix(cfg.KeyPrefix, ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Mirror{client: client, prefix: prefix, ttl: cfg.TTL}
}

// Key 返回用户镜像键 {prefix}:{username}
func (m *Mirror) Key(username string) string {
	return m.prefix + ":" + username
}

// Get 读取镜像；键不存在或快照损坏时返回 (nil, nil)
func (m *Mirror) Get(ctx context.Context, username string) (*entity.ProjectState, error) {
	raw, err := m.client.get(ctx, m.Key(username))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeMirrorError, "failed to read mirror")
	}
	var state entity.ProjectState
	if err := json.Unmarshal(raw, &state); err != nil {
		// 损坏的快照不影响启动，按无镜像处理
		return nil, nil
	}
	state.Normalize()
	return &state, nil
}

// Put 覆盖写入镜像
func (m *Mirror) Put(ctx context.Context, username string, state *entity.ProjectState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		metrics.MirrorWriteTotal.WithLabelValues("redis", "error").Inc()
		return apperrors.Wrap(err, apperrors.CodeMirrorError, "failed to encode mirror snapshot")
	}
	if err := m.client.set(ctx, m.Key(username), raw, m.ttl); err != nil {
		metrics.MirrorWriteTotal.WithLabelValues("redis", "error").Inc()
		return apperrors.Wrap(err, apperrors.CodeMirrorError, "failed to write mirror")
	}
	metrics.MirrorWriteTotal.WithLabelValues("redis", "ok").Inc()
	return nil
}

// Clear 删除镜像
func (m *Mirror) Clear(ctx context.Context, username string) error {
	if err := m.client.del(ctx, m.Key(username)); err != nil {
		return apperrors.Wrap(err, apperrors.CodeMirrorError, "failed to clear mirror")
	}
	return nil
}
