package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// agent collaborator 自有的資料模型。orchestration 層不直接碰這些集合，
// 一律透過 internal/agent 套件操作。

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type MessageStatus string

const (
	// StatusComplete 訊息內容已定稿
	StatusComplete MessageStatus = "complete"
	// StatusStreaming assistant 訊息已建檔但內容仍在寫入 delta
	StatusStreaming MessageStatus = "streaming"
	// StatusError 生成失敗，ErrorDesc 說明原因
	StatusError MessageStatus = "error"
)

// AgentThread 外部 thread handle 的實體；NextSeq 配發該 thread 內訊息的全序
type AgentThread struct {
	ID        primitive.ObjectID `bson:"_id"`
	ThreadID  string             `bson:"threadID"` // 對外 handle
	UserID    string             `bson:"userID"`
	NextSeq   int64              `bson:"nextSeq"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// AgentMessage thread 內的一則訊息；(ThreadID, Seq) 唯一且遞增
type AgentMessage struct {
	ID        primitive.ObjectID `bson:"_id"`
	MessageID string             `bson:"messageID"` // 對外不透明的訊息識別
	ThreadID  string             `bson:"threadID"`
	Seq       int64              `bson:"seq"`
	Role      MessageRole        `bson:"role"`
	Content   string             `bson:"content"`
	Status    MessageStatus      `bson:"status"`
	ErrorDesc string             `bson:"errorDesc,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// AgentStreamDelta 生成中的增量片段；訊息定稿後由 janitor 清除
type AgentStreamDelta struct {
	ID        primitive.ObjectID `bson:"_id"`
	ThreadID  string             `bson:"threadID"`
	MessageID string             `bson:"messageID"`
	Index     int64              `bson:"index"` // 同一 message 內由 0 遞增
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
}
