package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"byokchat/internal/core"
	client "byokchat/internal/database/client"
	"byokchat/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

// GenerationTask 排入佇列的一筆生成工作
type GenerationTask struct {
	ChatID     string    `json:"chatID"`
	MessageID  string    `json:"messageID"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// GenerationQueueRepository 以 Redis list 當生成工作佇列。
// LPUSH 入列、BRPOP 出列，FIFO；worker 數量由設定決定。
type GenerationQueueRepository struct {
	trace  *telemetry.Trace
	client *redis.Client
}

func NewGenerationQueueRepository(trace *telemetry.Trace, client *client.RedisClient) *GenerationQueueRepository {
	return &GenerationQueueRepository{trace: trace, client: client.Client()}
}

// Enqueue 排入一筆生成工作
func (repository *GenerationQueueRepository) Enqueue(
	contextValue context.Context,
	task GenerationTask,
) (returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	repository.trace.ApplyTraceAttributes(span, core.TraceQueueMeta{
		Op:        "enqueue",
		ChatID:    task.ChatID,
		MessageID: task.MessageID,
	})

	payload, marshalError := json.Marshal(task)
	if marshalError != nil {
		returnedError = marshalError
		return returnedError
	}

	returnedError = repository.client.LPush(contextValue, repository.queueKey(), payload).Err()
	return returnedError
}

// Dequeue 阻塞式取出下一筆工作。逾時沒有工作回 (nil, nil)。
func (repository *GenerationQueueRepository) Dequeue(
	contextValue context.Context,
	blockTimeout time.Duration,
) (_ *GenerationTask, returnedError error) {
	values, popError := repository.client.BRPop(contextValue, blockTimeout, repository.queueKey()).Result()
	if popError == redis.Nil {
		return nil, nil
	}
	if popError != nil {
		return nil, popError
	}
	// BRPop 回傳 [key, value]
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length: %d", len(values))
	}

	var task GenerationTask
	if unmarshalError := json.Unmarshal([]byte(values[1]), &task); unmarshalError != nil {
		return nil, unmarshalError
	}
	return &task, nil
}

// Depth 目前佇列長度（給 metrics 用）
func (repository *GenerationQueueRepository) Depth(contextValue context.Context) (int64, error) {
	return repository.client.LLen(contextValue, repository.queueKey()).Result()
}

func (repository *GenerationQueueRepository) queueKey() string {
	return fmt.Sprintf("%s:%s", core.RedisKeyServerName, core.RedisKeyGenerationQueue)
}
