package dto

import (
	"time"

	"byokchat/internal/pkg/request"
)

// 送出一則訊息並觸發生成
type SendMessageDto struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (dto *SendMessageDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"Prompt.required": "prompt is required",
	}
}

type SendMessageResponseDto struct {
	UserMessageID      string `json:"userMessageId"`
	AssistantMessageID string `json:"assistantMessageId"`
}

type MessageResponseDto struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type StreamDeltaResponseDto struct {
	MessageID string `json:"messageId"`
	Index     int64  `json:"index"`
	Content   string `json:"content"`
}

// 增量同步回應：新訊息 + 串流中訊息的新片段
type SyncResponseDto struct {
	Messages     []MessageResponseDto     `json:"messages"`
	StreamDeltas []StreamDeltaResponseDto `json:"streamDeltas"`
}
