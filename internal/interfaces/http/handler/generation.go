package handler

import (
	"github.com/gin-gonic/gin"

	"screenplay-wizard/internal/application/batch"
	"screenplay-wizard/internal/application/wizard"
	"screenplay-wizard/internal/interfaces/http/dto"
)

// GenerationHandler 生成与批次控制处理器；生成接口立即返回 202，进度通过事件流推送
type GenerationHandler struct {
	wizard *wizard.Coordinator
}

// NewGenerationHandler 创建生成处理器
func NewGenerationHandler(w *wizard.Coordinator) *GenerationHandler {
	return &GenerationHandler{wizard: w}
}

func accepted(c *gin.Context, h *batch.Handle, err error) {
	if err != nil {
		respondError(c, "failed to start generation", err)
		return
	}
	dto.Accepted(c, dto.ToBatchAccepted(h))
}

// GenerateStructure 生成整体结构
// @Router /v1/generate/structure [post]
func (h *GenerationHandler) GenerateStructure(c *gin.Context) {
	var req dto.GenerateStructureRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	handle, err := h.wizard.GenerateStructure(c.Request.Context(), req.CreativeDirection)
	accepted(c, handle, err)
}

// GenerateAllPlotPoints 为所有幕生成剧情点
// @Router /v1/generate/plot-points [post]
func (h *GenerationHandler) GenerateAllPlotPoints(c *gin.Context) {
	handle, err := h.wizard.GenerateAllPlotPoints(c.Request.Context())
	accepted(c, handle, err)
}

// GeneratePlotPointsForAct 为单幕生成剧情点
// @Router /v1/generate/acts/{act}/plot-points [post]
func (h *GenerationHandler) GeneratePlotPointsForAct(c *gin.Context) {
	handle, err := h.wizard.GeneratePlotPointsForAct(c.Request.Context(), dto.BindActKey(c))
	accepted(c, handle, err)
}

// GenerateAllScenes 为所有幕生成场景
// @Router /v1/generate/scenes [post]
func (h *GenerationHandler) GenerateAllScenes(c *gin.Context) {
	handle, err := h.wizard.GenerateAllScenes(c.Request.Context())
	accepted(c, handle, err)
}

// GenerateScenesForAct 为单幕生成场景
// @Router /v1/generate/acts/{act}/scenes [post]
func (h *GenerationHandler) GenerateScenesForAct(c *gin.Context) {
	handle, err := h.wizard.GenerateScenesForAct(c.Request.Context(), dto.BindActKey(c))
	accepted(c, handle, err)
}

// GenerateScenesForPlotPoint 为单个剧情点生成场景
// @Router /v1/generate/acts/{act}/plot-points/{index}/scenes [post]
func (h *GenerationHandler) GenerateScenesForPlotPoint(c *gin.Context) {
	index, err := dto.BindIndex(c, "index")
	if err != nil {
		respondError(c, "invalid plot point index", err)
		return
	}
	handle, err := h.wizard.GenerateScenesForPlotPoint(c.Request.Context(), dto.BindActKey(c), index)
	accepted(c, handle, err)
}

// GenerateAllDialogue 为所有场景生成对白
// @Router /v1/generate/dialogue [post]
func (h *GenerationHandler) GenerateAllDialogue(c *gin.Context) {
	handle, err := h.wizard.GenerateAllDialogue(c.Request.Context())
	accepted(c, handle, err)
}

// GenerateDialogueForPlotPoint 为剧情点下所有场景生成对白
// @Router /v1/generate/acts/{act}/plot-points/{index}/dialogue [post]
func (h *GenerationHandler) GenerateDialogueForPlotPoint(c *gin.Context) {
	index, err := dto.BindIndex(c, "index")
	if err != nil {
		respondError(c, "invalid plot point index", err)
		return
	}
	handle, err := h.wizard.GenerateDialogueForPlotPoint(c.Request.Context(), dto.BindActKey(c), index)
	accepted(c, handle, err)
}

// GenerateDialogueForScene 为单个场景生成对白
// @Router /v1/generate/scenes/{sceneId}/dialogue [post]
func (h *GenerationHandler) GenerateDialogueForScene(c *gin.Context) {
	handle, err := h.wizard.GenerateDialogueForScene(c.Request.Context(), c.Param("sceneId"))
	accepted(c, handle, err)
}

// GetBatches 返回当前与最近的批次
// @Router /v1/batches [get]
func (h *GenerationHandler) GetBatches(c *gin.Context) {
	dto.Success(c, dto.BatchesResponse{
		Current: h.wizard.CurrentBatch(),
		Last:    h.wizard.LastBatch(),
	})
}

// CancelCurrent 取消运行中的批次
// @Router /v1/batches/current [delete]
func (h *GenerationHandler) CancelCurrent(c *gin.Context) {
	dto.Success(c, dto.CancelResponse{Cancelled: h.wizard.CancelBatch(c.Request.Context())})
}
