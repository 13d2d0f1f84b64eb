package backend

import (
	"context"
	"net/http"

	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/domain/service"
	apperrors "screenplay-wizard/pkg/errors"
)

// GenerationClient 生成 API 实现
type GenerationClient struct {
	client *Client
}

// NewGenerationClient 创建生成 API 客户端
func NewGenerationClient(client *Client) *GenerationClient {
	return &GenerationClient{client: client}
}

var _ service.GenerationService = (*GenerationClient)(nil)

type plotPointsResponse struct {
	PlotPoints []string `json:"plotPoints"`
}

type scenesResponse struct {
	Scenes []entity.Scene `json:"scenes"`
}

type actScenesResponse struct {
	PlotPointScenes []service.PlotPointScenes `json:"plotPointScenes"`
}

type dialogueResponse struct {
	Dialogue string `json:"dialogue"`
}

func (g *GenerationClient) generate(ctx context.Context, endpoint string, body, out any) error {
	return g.client.do(ctx, request{
		method:   http.MethodPost,
		endpoint: endpoint,
		path:     "/api/" + endpoint,
		body:     body,
		out:      out,
		failCode: apperrors.CodeGenerationFailed,
	})
}

// GenerateStructure 生成整体幕结构
func (g *GenerationClient) GenerateStructure(ctx context.Context, req service.StructureRequest) (*service.StructureResult, error) {
	var resp service.StructureResult
	if err := g.generate(ctx, "generate-structure", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Acts) == 0 {
		return nil, apperrors.New(apperrors.CodeGenerationFailed, "structure response contained no acts")
	}
	return &resp, nil
}

// GeneratePlotPoints 生成一幕的剧情点
func (g *GenerationClient) GeneratePlotPoints(ctx context.Context, req service.PlotPointsRequest) ([]string, error) {
	var resp plotPointsResponse
	if err := g.generate(ctx, "generate-plot-points-for-act", req, &resp); err != nil {
		return nil, err
	}
	return resp.PlotPoints, nil
}

// GenerateScenesForPlotPoint 为单个剧情点生成场景
func (g *GenerationClient) GenerateScenesForPlotPoint(ctx context.Context, req service.ScenesForPlotPointRequest) ([]entity.Scene, error) {
	var resp scenesResponse
	if err := g.generate(ctx, "generate-scenes-for-plot-point", req, &resp); err != nil {
		return nil, err
	}
	return resp.Scenes, nil
}

// GenerateScenesForAct 为整幕所有剧情点生成场景
func (g *GenerationClient) GenerateScenesForAct(ctx context.Context, req service.ScenesForActRequest) ([]service.PlotPointScenes, error) {
	var resp actScenesResponse
	if err := g.generate(ctx, "generate-all-scenes-for-act", req, &resp); err != nil {
		return nil, err
	}
	return resp.PlotPointScenes, nil
}

// GenerateDialogue 生成场景对白
func (g *GenerationClient) GenerateDialogue(ctx context.Context, req service.DialogueRequest) (string, error) {
	var resp dialogueResponse
	if err := g.generate(ctx, "generate-dialogue", req, &resp); err != nil {
		return "", err
	}
	return resp.Dialogue, nil
}
