package handler

import (
	"byokchat/internal/core"
	"byokchat/internal/pkg/response"
	"byokchat/internal/telemetry"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	trace *telemetry.Trace
}

func NewCatalogHandler(trace *telemetry.Trace) *CatalogHandler {
	return &CatalogHandler{trace: trace}
}

// Models 模型目錄
// @Summary 取得完整模型目錄與各 provider 預設模型
// @Tags Catalog
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/models [get]
func (h *CatalogHandler) Models(c *gin.Context) {
	_, _, end := h.trace.WithSpan(c)
	defer end(nil)

	response.Success(c, gin.H{
		"models":   core.ChatModelOptions,
		"defaults": core.DefaultModels,
	})
}
