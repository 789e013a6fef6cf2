package handler

import (
	"byokchat/internal/core"
	"byokchat/internal/dto"
	"byokchat/internal/middleware"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/pkg/response"
	"byokchat/internal/service"
	"byokchat/internal/telemetry"
	"byokchat/utils/validate"

	"github.com/gin-gonic/gin"
)

type ThreadHandler struct {
	trace         *telemetry.Trace
	threadService *service.ThreadService
}

func NewThreadHandler(
	trace *telemetry.Trace,
	threadService *service.ThreadService,
) *ThreadHandler {
	return &ThreadHandler{trace: trace, threadService: threadService}
}

// Create 建立對話串
// @Summary 建立新對話串；modelId 留空用 provider 預設模型
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.CreateThreadDto true "Provider 與模型"
// @Success 201 {object} dto.ThreadResponseDto
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/chats [post]
func (h *ThreadHandler) Create(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.AbortWithError(c, cErr.Unauthenticated("missing principal"))
		return
	}

	var req dto.CreateThreadDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	created, err := h.threadService.Create(ctx, principal, &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Create(c, created)
}

// List 我的對話串
// @Summary 分頁列出自己的對話串，新的在前
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Param page query int false "頁碼（1-based）"
// @Param size query int false "每頁筆數（上限 100）"
// @Success 200 {object} dto.ThreadListResponseDto
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/chats [get]
func (h *ThreadHandler) List(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.AbortWithError(c, cErr.Unauthenticated("missing principal"))
		return
	}

	page, pageError := validate.GetInt64Query(c, "page", 1)
	if pageError != nil {
		response.AbortWithError(c, cErr.BadRequestParams("page must be an integer"))
		return
	}
	size, sizeError := validate.GetInt64Query(c, "size", 20)
	if sizeError != nil {
		response.AbortWithError(c, cErr.BadRequestParams("size must be an integer"))
		return
	}

	list, err := h.threadService.List(ctx, principal, core.ListOptions{Page: page, Size: size})
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, list)
}

// Get 單一對話串
// @Summary 取得單一對話串
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Param chatID path string true "Chat ID"
// @Success 200 {object} dto.ThreadResponseDto
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chats/{chatID} [get]
func (h *ThreadHandler) Get(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.AbortWithError(c, cErr.Unauthenticated("missing principal"))
		return
	}

	chatID, cause, respErr := validate.ParseObjectID(c, "chatID")
	if cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	thread, err := h.threadService.Get(ctx, principal, chatID)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, thread)
}

// UpdateTitle 改標題
// @Summary 更新對話串標題
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param chatID path string true "Chat ID"
// @Param body body dto.UpdateThreadTitleDto true "新標題"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chats/{chatID}/title [patch]
func (h *ThreadHandler) UpdateTitle(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.AbortWithError(c, cErr.Unauthenticated("missing principal"))
		return
	}

	chatID, cause, respErr := validate.ParseObjectID(c, "chatID")
	if cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	var req dto.UpdateThreadTitleDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	if err := h.threadService.UpdateTitle(ctx, principal, chatID, req.Title); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, gin.H{"id": chatID.Hex()})
}

// UpdateModel 換模型
// @Summary 切換對話串使用的 provider 與模型
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param chatID path string true "Chat ID"
// @Param body body dto.UpdateThreadModelDto true "新的 provider 與 modelId"
// @Success 200 {object} dto.ThreadResponseDto
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chats/{chatID}/model [patch]
func (h *ThreadHandler) UpdateModel(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.AbortWithError(c, cErr.Unauthenticated("missing principal"))
		return
	}

	chatID, cause, respErr := validate.ParseObjectID(c, "chatID")
	if cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	var req dto.UpdateThreadModelDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	updated, err := h.threadService.ChangeModel(ctx, principal, chatID, &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, updated)
}

// Remove 刪除對話串
// @Summary 刪除對話串
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Param chatID path string true "Chat ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chats/{chatID} [delete]
func (h *ThreadHandler) Remove(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.AbortWithError(c, cErr.Unauthenticated("missing principal"))
		return
	}

	chatID, cause, respErr := validate.ParseObjectID(c, "chatID")
	if cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	if err := h.threadService.Remove(ctx, principal, chatID); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, gin.H{"id": chatID.Hex()})
}
