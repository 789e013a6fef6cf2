package model

import (
	"byokchat/internal/core"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatThread 一個使用者的對話串，綁定一組 provider/model。
// 訊息本體由 agent collaborator 持有，這裡只保存外部 thread handle。
// 不變量：ModelID 必須屬於 core.SupportedModels(Provider)，由 service 層在每個寫入邊界查驗。
type ChatThread struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	UserID    string             `json:"userID" bson:"userID"`
	ThreadID  string             `json:"threadID" bson:"threadID"` // agent collaborator 的 thread handle
	Provider  core.ProviderName  `json:"provider" bson:"provider"`
	ModelID   string             `json:"modelID" bson:"modelID"`
	Title     string             `json:"title,omitempty" bson:"title,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}
