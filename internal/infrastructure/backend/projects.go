package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/singleflight"

	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/domain/repository"
	apperrors "screenplay-wizard/pkg/errors"
)

// ProjectClient 持久化 API 实现
type ProjectClient struct {
	client *Client
	// loads 合并同一项目的并发加载（恢复与手动加载可能同时发生）
	loads singleflight.Group
}

// NewProjectClient 创建持久化 API 客户端
func NewProjectClient(client *Client) *ProjectClient {
	return &ProjectClient{client: client}
}

var _ repository.ProjectStore = (*ProjectClient)(nil)

type saveProjectRequest struct {
	Username     string               `json:"username"`
	ProjectState *entity.ProjectState `json:"projectState"`
}

type listProjectsResponse struct {
	Projects []entity.ProjectSummary `json:"projects"`
}

type duplicateProjectRequest struct {
	Username   string `json:"username"`
	SourcePath string `json:"sourcePath"`
	NewTitle   string `json:"newTitle"`
}

type duplicateProjectResponse struct {
	ProjectPath string `json:"projectPath"`
}

type editActRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type editContentRequest struct {
	Content string `json:"content"`
}

type editSceneRequest struct {
	Scene entity.Scene `json:"scene"`
}

func userQuery(username string) url.Values {
	return url.Values{"username": []string{username}}
}

// Load 加载项目；并发的相同请求只发送一次
func (p *ProjectClient) Load(ctx context.Context, username, projectPath string) (*entity.ProjectState, error) {
	if projectPath == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("projectPath is required")
	}
	v, err, _ := p.loads.Do(username+"\x00"+projectPath, func() (any, error) {
		var state entity.ProjectState
		err := p.client.do(ctx, request{
			method:   http.MethodGet,
			endpoint: "load-project",
			path:     "/api/load-project" + segment(projectPath),
			query:    userQuery(username),
			out:      &state,
			failCode: apperrors.CodeStorageError,
			notFound: apperrors.ErrProjectNotFound,
		})
		if err != nil {
			return nil, err
		}
		if state.ProjectPath == "" {
			state.ProjectPath = projectPath
		}
		state.Normalize()
		return &state, nil
	})
	if err != nil {
		return nil, err
	}
	// 共享结果必须复制，调用方会各自修改
	return v.(*entity.ProjectState).Clone(), nil
}

// Save 保存项目
func (p *ProjectClient) Save(ctx context.Context, username string, state *entity.ProjectState) error {
	if state == nil || state.ProjectPath == "" {
		return apperrors.ErrInvalidParam.WithDetail("projectPath is required")
	}
	return p.client.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "save-project",
		path:     "/api/save-project",
		body:     saveProjectRequest{Username: username, ProjectState: state},
		failCode: apperrors.CodeStorageError,
	})
}

// List 列出项目
func (p *ProjectClient) List(ctx context.Context, username string) ([]entity.ProjectSummary, error) {
	var resp listProjectsResponse
	err := p.client.do(ctx, request{
		method:   http.MethodGet,
		endpoint: "list-projects",
		path:     "/api/list-projects",
		query:    userQuery(username),
		out:      &resp,
		failCode: apperrors.CodeStorageError,
	})
	if err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

// Delete 删除项目
func (p *ProjectClient) Delete(ctx context.Context, username, projectPath string) error {
	return p.client.do(ctx, request{
		method:   http.MethodDelete,
		endpoint: "delete-project",
		path:     "/api/project" + segment(projectPath),
		query:    userQuery(username),
		failCode: apperrors.CodeStorageError,
		notFound: apperrors.ErrProjectNotFound,
	})
}

// Duplicate 复制项目
func (p *ProjectClient) Duplicate(ctx context.Context, username, sourcePath, newTitle string) (string, error) {
	var resp duplicateProjectResponse
	err := p.client.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "duplicate-project",
		path:     "/api/duplicate-project",
		body:     duplicateProjectRequest{Username: username, SourcePath: sourcePath, NewTitle: newTitle},
		out:      &resp,
		failCode: apperrors.CodeStorageError,
		notFound: apperrors.ErrProjectNotFound,
	})
	if err != nil {
		return "", err
	}
	return resp.ProjectPath, nil
}

func (p *ProjectClient) edit(ctx context.Context, endpoint, path, username string, body any) error {
	return p.client.do(ctx, request{
		method:   http.MethodPut,
		endpoint: endpoint,
		path:     "/api/edit-content/" + path,
		query:    userQuery(username),
		body:     body,
		failCode: apperrors.CodeStorageError,
		notFound: apperrors.ErrProjectNotFound,
	})
}

// EditAct 保存幕
func (p *ProjectClient) EditAct(ctx context.Context, username, projectPath, actKey string, act entity.Act) error {
	return p.edit(ctx, "edit-act", "acts"+segment(projectPath)+segment(actKey), username,
		editActRequest{Name: act.Name, Description: act.Description})
}

// EditPlotPoint 保存剧情点
func (p *ProjectClient) EditPlotPoint(ctx context.Context, username, projectPath, actKey string, index int, content string) error {
	return p.edit(ctx, "edit-plot-point", "plot-points"+segment(projectPath)+segment(actKey)+segment(strconv.Itoa(index)), username,
		editContentRequest{Content: content})
}

// EditScene 保存场景
func (p *ProjectClient) EditScene(ctx context.Context, username, projectPath, actKey string, index int, scene entity.Scene) error {
	return p.edit(ctx, "edit-scene", "scenes"+segment(projectPath)+segment(actKey)+segment(strconv.Itoa(index)), username,
		editSceneRequest{Scene: scene})
}

// EditDialogue 保存对白
func (p *ProjectClient) EditDialogue(ctx context.Context, username, projectPath, sceneID, content string) error {
	return p.edit(ctx, "edit-dialogue", "dialogue"+segment(projectPath)+segment(sceneID), username,
		editContentRequest{Content: content})
}
