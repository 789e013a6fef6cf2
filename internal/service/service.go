package service

import (
	"context"
	"time"

	"byokchat/internal/agent"
	"byokchat/internal/core"
	"byokchat/internal/database/mongodb/model"
	mongoDb "byokchat/internal/database/mongodb/repository"
	redisDb "byokchat/internal/database/redis/repository"
	"byokchat/internal/service/llm"

	"github.com/google/wire"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// service 層面向介面，測試可用記憶體版替身；正式環境由 wire 綁定具體 repository。

type APIKeyStore interface {
	Upsert(ctx context.Context, userID string, provider core.ProviderName, secret string) (string, error)
	GetByUserProvider(ctx context.Context, userID string, provider core.ProviderName) (*model.APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]*model.APIKey, error)
	Delete(ctx context.Context, userID string, provider core.ProviderName) error
}

type ThreadStore interface {
	Create(ctx context.Context, thread *model.ChatThread) (*model.ChatThread, error)
	GetForUser(ctx context.Context, chatID primitive.ObjectID, userID string) (*model.ChatThread, error)
	GetByID(ctx context.Context, chatID primitive.ObjectID) (*model.ChatThread, error)
	ListByUser(ctx context.Context, userID string, opts core.ListOptions) ([]*model.ChatThread, int64, error)
	UpdateTitle(ctx context.Context, chatID primitive.ObjectID, userID string, title string) error
	UpdateModel(ctx context.Context, chatID primitive.ObjectID, userID string, provider core.ProviderName, modelID string) error
	Delete(ctx context.Context, chatID primitive.ObjectID, userID string) error
}

type GenerationQueue interface {
	Enqueue(ctx context.Context, task redisDb.GenerationTask) error
	Dequeue(ctx context.Context, blockTimeout time.Duration) (*redisDb.GenerationTask, error)
	Depth(ctx context.Context) (int64, error)
}

type GenerationGuard interface {
	Acquire(ctx context.Context, chatID string, timeToLive time.Duration) (acquired bool, err error)
	Release(ctx context.Context, chatID string) error
	IsHeld(ctx context.Context, chatID string) (bool, error)
}

// Conversation agent collaborator 的操作面
type Conversation interface {
	CreateThread(ctx context.Context, userID string) (threadID string, err error)
	SubmitMessage(ctx context.Context, threadID string, prompt string) (userMessageID string, assistantMessageID string, err error)
	Generate(ctx context.Context, threadID string, assistantMessageID string, stream agent.StreamFunc) error
	MarkErrored(ctx context.Context, assistantMessageID string, errorDesc string) error
	Sync(ctx context.Context, threadID string, afterSeq int64, streamAfterIndex int64) (*agent.SyncResult, error)
}

// ModelResolver 把 (provider, model, key) 解析成串流客戶端
type ModelResolver interface {
	Resolve(provider core.ProviderName, modelID string, secret string) (llm.Client, error)
}

var ProviderSet = wire.NewSet(
	NewAPIKeyService,
	NewThreadService,
	NewMessageService,
	NewGenerationService,
	NewHealthService,
	llm.ProviderSet,
	wire.Bind(new(APIKeyStore), new(*mongoDb.APIKeyRepository)),
	wire.Bind(new(ThreadStore), new(*mongoDb.ChatThreadRepository)),
	wire.Bind(new(GenerationQueue), new(*redisDb.GenerationQueueRepository)),
	wire.Bind(new(GenerationGuard), new(*redisDb.GenerationGuardRepository)),
	wire.Bind(new(Conversation), new(*agent.Agent)),
	wire.Bind(new(ModelResolver), new(*llm.Resolver)),
)
