// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"screenplay-wizard/internal/domain/entity"
)

// ProjectStore 项目持久化接口（数据源之源）
type ProjectStore interface {
	// Load 加载项目，不存在时返回 ErrProjectNotFound
	Load(ctx context.Context, username, projectPath string) (*entity.ProjectState, error)

	// Save 保存整个项目（按 projectPath upsert）
	Save(ctx context.Context, username string, state *entity.ProjectState) error

	// List 列出用户的项目
	List(ctx context.Context, username string) ([]entity.ProjectSummary, error)

	// Delete 删除项目
	Delete(ctx context.Context, username, projectPath string) error

	// Duplicate 复制项目并返回新 projectPath
	Duplicate(ctx context.Context, username, sourcePath, newTitle string) (string, error)

	ContentEditor
}

// ContentEditor 单元级内容编辑接口（edit-content）
type ContentEditor interface {
	// EditAct 保存幕名称与描述
	EditAct(ctx context.Context, username, projectPath, actKey string, act entity.Act) error

	// EditPlotPoint 保存单个剧情点文本
	EditPlotPoint(ctx context.Context, username, projectPath, actKey string, index int, content string) error

	// EditScene 保存单个场景
	EditScene(ctx context.Context, username, projectPath, actKey string, index int, scene entity.Scene) error

	// EditDialogue 保存单个场景对白
	EditDialogue(ctx context.Context, username, projectPath, sceneID, content string) error
}
