package wizard

import (
	"context"
	"strings"

	"screenplay-wizard/internal/domain/entity"
	apperrors "screenplay-wizard/pkg/errors"
	"screenplay-wizard/pkg/logger"
)

// pushEdit 把单元级修改写入存储；失败只记录日志，防抖保存会带上完整状态重试
func (c *Coordinator) pushEdit(ctx context.Context, what string, fn func(ctx context.Context, projectPath string) error) {
	path := c.projectPath()
	if path == "" {
		return
	}
	if err := fn(ctx, path); err != nil {
		logger.Warn(ctx, "failed to push edit, relying on autosave",
			"target", what,
			"project_path", path,
			"error", err.Error(),
		)
	}
}

// EditAct 修改幕名称与描述
func (c *Coordinator) EditAct(ctx context.Context, actKey string, act entity.Act) error {
	if err := c.requireProject(); err != nil {
		return err
	}
	if strings.TrimSpace(act.Name) == "" {
		return apperrors.ErrInvalidParam.WithDetail("act name is required")
	}
	if err := c.tree.SetAct(actKey, act.Name, act.Description); err != nil {
		return err
	}
	c.pushEdit(ctx, "act", func(ctx context.Context, path string) error {
		return c.deps.Store.EditAct(ctx, c.cfg.Username, path, actKey, act)
	})
	c.changed(ctx, "act_edited")
	return nil
}

// EditPlotPoint 修改单个剧情点文本
func (c *Coordinator) EditPlotPoint(ctx context.Context, actKey string, index int, content string) error {
	if err := c.requireProject(); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return apperrors.ErrInvalidParam.WithDetail("plot point content is required")
	}
	if err := c.tree.EditPlotPoint(actKey, index, content); err != nil {
		return err
	}
	c.pushEdit(ctx, "plot_point", func(ctx context.Context, path string) error {
		return c.deps.Store.EditPlotPoint(ctx, c.cfg.Username, path, actKey, index, content)
	})
	c.changed(ctx, "plot_point_edited")
	return nil
}

// EditScene 修改单个场景
func (c *Coordinator) EditScene(ctx context.Context, actKey string, index int, scene entity.Scene) error {
	if err := c.requireProject(); err != nil {
		return err
	}
	if strings.TrimSpace(scene.Title) == "" {
		return apperrors.ErrInvalidParam.WithDetail("scene title is required")
	}
	// 写入后的场景可能沿用了原归属，推送树中的最终值
	stored, err := c.tree.EditScene(actKey, index, scene)
	if err != nil {
		return err
	}
	c.pushEdit(ctx, "scene", func(ctx context.Context, path string) error {
		return c.deps.Store.EditScene(ctx, c.cfg.Username, path, actKey, index, stored)
	})
	c.changed(ctx, "scene_edited")
	return nil
}

// EditDialogue 修改场景对白
func (c *Coordinator) EditDialogue(ctx context.Context, sceneID, content string) error {
	if err := c.requireProject(); err != nil {
		return err
	}
	actKey, index, ok := entity.ParseSceneID(sceneID)
	if !ok {
		return apperrors.ErrInvalidParam.WithDetail("malformed scene id: " + sceneID)
	}
	var exists bool
	c.tree.Read(func(state *entity.ProjectState) {
		exists = state.HasAct(actKey) && index < len(state.Scenes[actKey])
	})
	if !exists {
		return apperrors.ErrSceneNotFound.WithDetail(sceneID)
	}
	if err := c.tree.SetDialogue(sceneID, content); err != nil {
		return err
	}
	c.pushEdit(ctx, "dialogue", func(ctx context.Context, path string) error {
		return c.deps.Store.EditDialogue(ctx, c.cfg.Username, path, sceneID, content)
	})
	c.changed(ctx, "dialogue_edited")
	return nil
}

// SetCreativeDirection 设置创作方向，空文本表示清除
func (c *Coordinator) SetCreativeDirection(ctx context.Context, level entity.DirectionLevel, key, text string) error {
	if err := c.requireProject(); err != nil {
		return err
	}
	if key == "" {
		return apperrors.ErrInvalidParam.WithDetail("creative direction key is required")
	}
	if err := c.tree.SetCreativeDirection(level, key, strings.TrimSpace(text)); err != nil {
		return err
	}
	c.changed(ctx, "creative_direction_changed")
	return nil
}
