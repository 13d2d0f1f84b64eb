package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"screenplay-wizard/internal/interfaces/http/dto"
	apperrors "screenplay-wizard/pkg/errors"
	"screenplay-wizard/pkg/logger"
)

// respondError 返回错误响应；服务端错误额外记录日志
func respondError(c *gin.Context, msg string, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), msg, err)
	}
	dto.AppError(c, err)
}

// bindJSON 绑定请求体，失败时写入 400
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
