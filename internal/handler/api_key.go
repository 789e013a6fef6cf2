package handler

import (
	"byokchat/internal/dto"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/pkg/response"
	"byokchat/internal/service"
	"byokchat/internal/telemetry"
	"byokchat/utils/validate"

	"byokchat/internal/middleware"

	"github.com/gin-gonic/gin"
)

type APIKeyHandler struct {
	trace         *telemetry.Trace
	apiKeyService *service.APIKeyService
}

func NewAPIKeyHandler(
	trace *telemetry.Trace,
	apiKeyService *service.APIKeyService,
) *APIKeyHandler {
	return &APIKeyHandler{trace: trace, apiKeyService: apiKeyService}
}

// Settings 設定頁資料
// @Summary 取得已存 API Key 的遮蔽狀態與模型目錄
// @Tags APIKey
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIKeySettingsResponseDto
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/keys [get]
func (h *APIKeyHandler) Settings(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.AbortWithError(c, cErr.Unauthenticated("missing principal"))
		return
	}

	settings, err := h.apiKeyService.Settings(ctx, principal)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, settings)
}

// Save 儲存 API Key
// @Summary 新增或覆寫某 provider 的 API Key
// @Tags APIKey
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.SaveAPIKeyDto true "Provider 與 secret"
// @Success 200 {object} dto.APIKeyResponseDto
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/keys [put]
func (h *APIKeyHandler) Save(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.AbortWithError(c, cErr.Unauthenticated("missing principal"))
		return
	}

	var req dto.SaveAPIKeyDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	saved, err := h.apiKeyService.Save(ctx, principal, &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, saved)
}

// Remove 刪除 API Key
// @Summary 刪除某 provider 的 API Key
// @Tags APIKey
// @Security BearerAuth
// @Produce json
// @Param provider path string true "Provider 名稱 (openai/google/anthropic)"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/keys/{provider} [delete]
func (h *APIKeyHandler) Remove(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.AbortWithError(c, cErr.Unauthenticated("missing principal"))
		return
	}

	provider, parseError := validate.ParseProviderParam(c, "provider")
	if parseError != nil {
		end(parseError)
		response.AbortWithError(c, parseError)
		return
	}

	if err := h.apiKeyService.Remove(ctx, principal, provider); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, gin.H{"provider": string(provider)})
}
