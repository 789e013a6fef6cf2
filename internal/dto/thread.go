package dto

import (
	"byokchat/internal/core"
	"time"
)

// 建立新對話；modelId 留空則用該 provider 的預設模型
type CreateThreadDto struct {
	Provider core.ProviderName `json:"provider" binding:"required"`
	ModelID  string            `json:"modelId" binding:"omitempty"`
	Title    string            `json:"title" binding:"omitempty,max=200"`
}

type UpdateThreadTitleDto struct {
	Title string `json:"title" binding:"required,max=200"`
}

// 換模型；provider 與 modelId 一起換，不允許只換一半
type UpdateThreadModelDto struct {
	Provider core.ProviderName `json:"provider" binding:"required"`
	ModelID  string            `json:"modelId" binding:"required"`
}

type ThreadResponseDto struct {
	ID        string            `json:"id"`
	Provider  core.ProviderName `json:"provider"`
	ModelID   string            `json:"modelId"`
	Title     string            `json:"title,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type ThreadListResponseDto struct {
	Threads []ThreadResponseDto `json:"threads"`
	Total   int64               `json:"total"`
	Page    int64               `json:"page"`
	Size    int64               `json:"size"`
}
