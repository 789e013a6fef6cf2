package repository

import (
	"github.com/google/wire"
	"go.mongodb.org/mongo-driver/bson"
)

// 統一管理所有 MongoDB repository
type MongoDBRepository struct {
	apiKeyRepo     *APIKeyRepository
	chatThreadRepo *ChatThreadRepository
	agentRepo      *AgentRepository
}

// 建立 MongoDB repository 物件
func NewMongoDBRepository(
	apiKeyRepo *APIKeyRepository,
	chatThreadRepo *ChatThreadRepository,
	agentRepo *AgentRepository,
) *MongoDBRepository {
	return &MongoDBRepository{
		apiKeyRepo:     apiKeyRepo,
		chatThreadRepo: chatThreadRepo,
		agentRepo:      agentRepo,
	}
}

// Wire 依賴提供
var ProviderSet = wire.NewSet(
	NewAPIKeyRepository,
	NewChatThreadRepository,
	NewAgentRepository,
	NewMongoDBRepository)

func withUpdatedAt(update bson.M) bson.M {
	// 確保 $currentDate 存在
	currentDate, ok := update["$currentDate"].(bson.M)
	if !ok || currentDate == nil {
		currentDate = bson.M{}
	}
	currentDate["updatedAt"] = true
	update["$currentDate"] = currentDate
	return update
}
