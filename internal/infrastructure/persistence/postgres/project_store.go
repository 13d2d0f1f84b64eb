package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"screenplay-wizard/internal/application/storytree"
	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/domain/repository"
	apperrors "screenplay-wizard/pkg/errors"
)

const uniqueViolation = "23505"

// ProjectStore 基于 wizard_projects 表的项目存储
type ProjectStore struct {
	client *Client
	tx     *TxManager
}

var _ repository.ProjectStore = (*ProjectStore)(nil)

// NewProjectStore 创建项目存储
func NewProjectStore(client *Client) *ProjectStore {
	return &ProjectStore{client: client, tx: NewTxManager(client)}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func storageError(err error, op string) error {
	return apperrors.Wrap(err, apperrors.CodeStorageError, "failed to "+op)
}

// Load 加载项目
func (s *ProjectStore) Load(ctx context.Context, username, projectPath string) (*entity.ProjectState, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectStore.Load")
	defer span.End()

	state, err := s.load(ctx, username, projectPath, false)
	if err != nil && !apperrors.HasCode(err, apperrors.CodeProjectNotFound) {
		span.RecordError(err)
	}
	return state, err
}

func (s *ProjectStore) load(ctx context.Context, username, projectPath string, forUpdate bool) (*entity.ProjectState, error) {
	q := getQuerier(ctx, s.client.db)

	query := `SELECT state FROM wizard_projects WHERE username = $1 AND project_path = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var raw []byte
	if err := q.QueryRowContext(ctx, query, username, projectPath).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrProjectNotFound.WithDetail(projectPath)
		}
		return nil, storageError(err, "load project")
	}

	var state entity.ProjectState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, storageError(err, "decode project")
	}
	state.ProjectPath = projectPath
	state.Normalize()
	return &state, nil
}

// Save 按 (username, project_path) upsert
func (s *ProjectStore) Save(ctx context.Context, username string, state *entity.ProjectState) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectStore.Save")
	defer span.End()

	if state == nil || state.ProjectPath == "" {
		return apperrors.ErrInvalidParam.WithDetail("projectPath is required")
	}
	if err := s.save(ctx, username, state); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *ProjectStore) save(ctx context.Context, username string, state *entity.ProjectState) error {
	q := getQuerier(ctx, s.client.db)

	raw, err := json.Marshal(state)
	if err != nil {
		return storageError(err, "encode project")
	}

	query := `
		INSERT INTO wizard_projects (username, project_path, title, current_step, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (username, project_path) DO UPDATE
		SET title = EXCLUDED.title, current_step = EXCLUDED.current_step, state = EXCLUDED.state, updated_at = NOW()
	`
	if _, err := q.ExecContext(ctx, query, username, state.ProjectPath, state.Title(), string(state.CurrentStep), raw); err != nil {
		return storageError(err, "save project")
	}
	return nil
}

// List 按更新时间倒序列出项目
func (s *ProjectStore) List(ctx context.Context, username string) ([]entity.ProjectSummary, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectStore.List")
	defer span.End()

	q := getQuerier(ctx, s.client.db)

	query := `
		SELECT project_path, title, current_step, updated_at
		FROM wizard_projects
		WHERE username = $1
		ORDER BY updated_at DESC
	`
	rows, err := q.QueryContext(ctx, query, username)
	if err != nil {
		span.RecordError(err)
		return nil, storageError(err, "list projects")
	}
	defer rows.Close()

	var list []entity.ProjectSummary
	for rows.Next() {
		var item entity.ProjectSummary
		var step string
		if err := rows.Scan(&item.ProjectPath, &item.Title, &step, &item.UpdatedAt); err != nil {
			span.RecordError(err)
			return nil, storageError(err, "scan project")
		}
		item.CurrentStep = entity.WizardStep(step)
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "list projects")
	}
	return list, nil
}

// Delete 删除项目
func (s *ProjectStore) Delete(ctx context.Context, username, projectPath string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectStore.Delete")
	defer span.End()

	q := getQuerier(ctx, s.client.db)

	res, err := q.ExecContext(ctx, `DELETE FROM wizard_projects WHERE username = $1 AND project_path = $2`, username, projectPath)
	if err != nil {
		span.RecordError(err)
		return storageError(err, "delete project")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.ErrProjectNotFound.WithDetail(projectPath)
	}
	return nil
}

// Duplicate 复制项目；目标 projectPath 已存在时返回冲突错误
func (s *ProjectStore) Duplicate(ctx context.Context, username, sourcePath, newTitle string) (string, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectStore.Duplicate")
	defer span.End()

	state, err := s.load(ctx, username, sourcePath, false)
	if err != nil {
		return "", err
	}

	if newTitle == "" {
		newTitle = state.Title() + " (copy)"
	}
	newPath := entity.NewProjectPath(newTitle)
	state.ProjectPath = newPath
	state.StoryInput.Title = newTitle

	raw, err := json.Marshal(state)
	if err != nil {
		return "", storageError(err, "encode project")
	}

	q := getQuerier(ctx, s.client.db)
	query := `
		INSERT INTO wizard_projects (username, project_path, title, current_step, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	if _, err := q.ExecContext(ctx, query, username, newPath, state.Title(), string(state.CurrentStep), raw); err != nil {
		if isUniqueViolation(err) {
			return "", apperrors.ErrConflict.WithDetail(fmt.Sprintf("project %q already exists", newPath))
		}
		span.RecordError(err)
		return "", storageError(err, "duplicate project")
	}
	return newPath, nil
}

// edit 在事务内加锁读取项目、应用修改并写回
func (s *ProjectStore) edit(ctx context.Context, name, username, projectPath string, fn func(tree *storytree.Tree) error) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectStore."+name)
	defer span.End()

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		state, err := s.load(ctx, username, projectPath, true)
		if err != nil {
			return err
		}
		tree := storytree.New(state)
		if err := fn(tree); err != nil {
			return err
		}
		return s.save(ctx, username, tree.Snapshot())
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// EditAct 保存幕
func (s *ProjectStore) EditAct(ctx context.Context, username, projectPath, actKey string, act entity.Act) error {
	return s.edit(ctx, "EditAct", username, projectPath, func(tree *storytree.Tree) error {
		return tree.SetAct(actKey, act.Name, act.Description)
	})
}

// EditPlotPoint 保存剧情点
func (s *ProjectStore) EditPlotPoint(ctx context.Context, username, projectPath, actKey string, index int, content string) error {
	return s.edit(ctx, "EditPlotPoint", username, projectPath, func(tree *storytree.Tree) error {
		return tree.EditPlotPoint(actKey, index, content)
	})
}

// EditScene 保存场景
func (s *ProjectStore) EditScene(ctx context.Context, username, projectPath, actKey string, index int, scene entity.Scene) error {
	return s.edit(ctx, "EditScene", username, projectPath, func(tree *storytree.Tree) error {
		_, err := tree.EditScene(actKey, index, scene)
		return err
	})
}

// EditDialogue 保存对白
func (s *ProjectStore) EditDialogue(ctx context.Context, username, projectPath, sceneID, content string) error {
	return s.edit(ctx, "EditDialogue", username, projectPath, func(tree *storytree.Tree) error {
		return tree.SetDialogue(sceneID, content)
	})
}
