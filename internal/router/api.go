package router

import (
	"byokchat/internal/handler"
	"byokchat/internal/middleware"

	"github.com/gin-gonic/gin"
)

// APIRouter /api 底下的所有路由。模型目錄是公開的，其餘都要 session token。
type APIRouter struct {
	auth           *middleware.Auth
	catalogHandler *handler.CatalogHandler
	apiKeyHandler  *handler.APIKeyHandler
	threadHandler  *handler.ThreadHandler
	messageHandler *handler.MessageHandler
}

func NewAPIRouter(
	auth *middleware.Auth,
	catalogHandler *handler.CatalogHandler,
	apiKeyHandler *handler.APIKeyHandler,
	threadHandler *handler.ThreadHandler,
	messageHandler *handler.MessageHandler,
) *APIRouter {
	return &APIRouter{
		auth:           auth,
		catalogHandler: catalogHandler,
		apiKeyHandler:  apiKeyHandler,
		threadHandler:  threadHandler,
		messageHandler: messageHandler,
	}
}

func (ar *APIRouter) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/models", ar.catalogHandler.Models)

		keys := api.Group("/keys", ar.auth.Handler())
		{
			keys.GET("", ar.apiKeyHandler.Settings)
			keys.PUT("", ar.apiKeyHandler.Save)
			keys.DELETE("/:provider", ar.apiKeyHandler.Remove)
		}

		chats := api.Group("/chats", ar.auth.Handler())
		{
			chats.POST("", ar.threadHandler.Create)
			chats.GET("", ar.threadHandler.List)
			chats.GET("/:chatID", ar.threadHandler.Get)
			chats.DELETE("/:chatID", ar.threadHandler.Remove)
			chats.PATCH("/:chatID/title", ar.threadHandler.UpdateTitle)
			chats.PATCH("/:chatID/model", ar.threadHandler.UpdateModel)

			chats.POST("/:chatID/messages", ar.messageHandler.Send)
			chats.GET("/:chatID/messages", ar.messageHandler.Sync)
		}
	}
}
