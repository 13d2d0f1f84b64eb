package repository

import (
	"context"

	"screenplay-wizard/internal/domain/entity"
)

// Mirror 项目状态的临时镜像，仅用于异常重启后恢复界面，不是数据源
type Mirror interface {
	// Get 读取镜像，没有镜像时返回 (nil, nil)
	Get(ctx context.Context, username string) (*entity.ProjectState, error)

	// Put 覆盖写入镜像
	Put(ctx context.Context, username string, state *entity.ProjectState) error

	// Clear 清除镜像
	Clear(ctx context.Context, username string) error
}
