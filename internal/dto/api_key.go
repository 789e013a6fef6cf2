package dto

import (
	"byokchat/internal/core"
	"byokchat/internal/pkg/request"
	"time"
)

// 儲存（新增或覆寫）某 provider 的 API Key
type SaveAPIKeyDto struct {
	Provider core.ProviderName `json:"provider" binding:"required"` // openai, google, anthropic
	Secret   string            `json:"secret" binding:"required"`   // 原文只進不出
}

// GetMessages 自訂驗證訊息；secret 的錯誤訊息絕不回顯輸入值
func (dto *SaveAPIKeyDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"Provider.required": "provider is required",
		"Secret.required":   "secret is required",
	}
}

// 單一 provider 的 Key 狀態；Secret 絕不回傳，只給遮蔽版。
// Models 是這把 key 解鎖的模型清單（該 provider 的目錄）。
type APIKeyResponseDto struct {
	Provider  core.ProviderName `json:"provider"`
	MaskedKey string            `json:"maskedKey"`
	Models    []string          `json:"models"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// 設定頁一次要的全部資料：已存 Key 的遮蔽狀態 + 完整模型目錄
type APIKeySettingsResponseDto struct {
	Keys   []APIKeyResponseDto `json:"keys"`
	Models []core.ModelOption  `json:"models"`
}
