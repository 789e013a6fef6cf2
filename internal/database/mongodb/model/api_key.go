package model

import (
	"byokchat/internal/core"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// APIKey 使用者自帶的 provider API Key。
// (userID, provider) 唯一：同一使用者同一 provider 至多一筆，save 一律 upsert。
type APIKey struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	UserID    string             `json:"userID" bson:"userID"` // identity provider 的使用者 ID
	Provider  core.ProviderName  `json:"provider" bson:"provider"`
	Secret    string             `json:"-" bson:"secret"` // 原始 key，任何回應都只能出遮蔽版
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}
