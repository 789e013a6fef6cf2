package handler

import (
	"byokchat/internal/dto"
	"byokchat/internal/middleware"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/pkg/response"
	"byokchat/internal/service"
	"byokchat/internal/telemetry"
	"byokchat/utils/validate"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	trace          *telemetry.Trace
	messageService *service.MessageService
}

func NewMessageHandler(
	trace *telemetry.Trace,
	messageService *service.MessageService,
) *MessageHandler {
	return &MessageHandler{trace: trace, messageService: messageService}
}

// Send 送出訊息
// @Summary 送出一則訊息並排程生成
// @Tags Message
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param chatID path string true "Chat ID"
// @Param body body dto.SendMessageDto true "訊息內容"
// @Success 201 {object} dto.SendMessageResponseDto
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /api/chats/{chatID}/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
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

	var req dto.SendMessageDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	sent, err := h.messageService.Send(ctx, principal, chatID, &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Create(c, sent)
}

// Sync 增量同步
// @Summary 取 afterSeq 之後的訊息與串流中的 delta
// @Tags Message
// @Security BearerAuth
// @Produce json
// @Param chatID path string true "Chat ID"
// @Param afterSeq query int false "已收到的最後一個訊息序號（預設 -1 全取）"
// @Param streamCursor query int false "串流片段游標（預設 -1 全取）"
// @Success 200 {object} dto.SyncResponseDto
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chats/{chatID}/messages [get]
func (h *MessageHandler) Sync(c *gin.Context) {
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

	afterSeq, seqError := validate.GetInt64Query(c, "afterSeq", -1)
	if seqError != nil {
		response.AbortWithError(c, cErr.BadRequestParams("afterSeq must be an integer"))
		return
	}
	streamCursor, cursorError := validate.GetInt64Query(c, "streamCursor", -1)
	if cursorError != nil {
		response.AbortWithError(c, cErr.BadRequestParams("streamCursor must be an integer"))
		return
	}

	sync, err := h.messageService.Sync(ctx, principal, chatID, afterSeq, streamCursor)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, sync)
}
