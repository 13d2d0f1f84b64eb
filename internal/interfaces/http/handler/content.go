package handler

import (
	"github.com/gin-gonic/gin"

	"screenplay-wizard/internal/application/wizard"
	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/interfaces/http/dto"
)

// ContentHandler 单元级内容编辑处理器
type ContentHandler struct {
	wizard *wizard.Coordinator
}

// NewContentHandler 创建内容编辑处理器
func NewContentHandler(w *wizard.Coordinator) *ContentHandler {
	return &ContentHandler{wizard: w}
}

// EditAct 修改幕
// @Router /v1/project/acts/{act} [put]
func (h *ContentHandler) EditAct(c *gin.Context) {
	var req dto.EditActRequest
	if !bindJSON(c, &req) {
		return
	}
	act := entity.Act{Name: req.Name, Description: req.Description}
	if err := h.wizard.EditAct(c.Request.Context(), dto.BindActKey(c), act); err != nil {
		respondError(c, "failed to edit act", err)
		return
	}
	dto.NoContent(c)
}

// EditPlotPoint 修改剧情点
// @Router /v1/project/acts/{act}/plot-points/{index} [put]
func (h *ContentHandler) EditPlotPoint(c *gin.Context) {
	index, err := dto.BindIndex(c, "index")
	if err != nil {
		respondError(c, "invalid plot point index", err)
		return
	}
	var req dto.ContentRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.wizard.EditPlotPoint(c.Request.Context(), dto.BindActKey(c), index, req.Content); err != nil {
		respondError(c, "failed to edit plot point", err)
		return
	}
	dto.NoContent(c)
}

// EditScene 修改场景
// @Router /v1/project/acts/{act}/scenes/{index} [put]
func (h *ContentHandler) EditScene(c *gin.Context) {
	index, err := dto.BindIndex(c, "index")
	if err != nil {
		respondError(c, "invalid scene index", err)
		return
	}
	var req dto.EditSceneRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.wizard.EditScene(c.Request.Context(), dto.BindActKey(c), index, req.ToScene()); err != nil {
		respondError(c, "failed to edit scene", err)
		return
	}
	dto.NoContent(c)
}

// EditDialogue 修改场景对白
// @Router /v1/project/dialogue/{sceneId} [put]
func (h *ContentHandler) EditDialogue(c *gin.Context) {
	var req dto.ContentRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.wizard.EditDialogue(c.Request.Context(), c.Param("sceneId"), req.Content); err != nil {
		respondError(c, "failed to edit dialogue", err)
		return
	}
	dto.NoContent(c)
}

// SetCreativeDirection 设置创作方向
// @Router /v1/project/directions [put]
func (h *ContentHandler) SetCreativeDirection(c *gin.Context) {
	var req dto.CreativeDirectionRequest
	if !bindJSON(c, &req) {
		return
	}
	level := entity.DirectionLevel(req.Level)
	if err := h.wizard.SetCreativeDirection(c.Request.Context(), level, req.Key, req.Text); err != nil {
		respondError(c, "failed to set creative direction", err)
		return
	}
	dto.NoContent(c)
}
