package repository

import (
	"context"
	"fmt"
	"time"

	"byokchat/internal/core"
	client "byokchat/internal/database/client"
	"byokchat/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

// GenerationGuardRepository 以 SETNX 實作「同一個 chat 同時只有一個生成」的守門。
// TTL 是保險：worker 異常死亡時鎖自動釋放，chat 不會永久卡死。
type GenerationGuardRepository struct {
	trace  *telemetry.Trace
	client *redis.Client
}

func NewGenerationGuardRepository(trace *telemetry.Trace, client *client.RedisClient) *GenerationGuardRepository {
	return &GenerationGuardRepository{trace: trace, client: client.Client()}
}

// Acquire 嘗試取鎖。acquired=false 代表該 chat 已有生成在途。
func (repository *GenerationGuardRepository) Acquire(
	contextValue context.Context,
	chatIdentifier string,
	timeToLive time.Duration,
) (acquired bool, returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	traceMetadata := core.TraceGuardMeta{ChatID: chatIdentifier, Op: "acquire"}

	acquired, returnedError = repository.client.SetNX(
		contextValue,
		repository.lockKey(chatIdentifier),
		time.Now().UTC().Unix(),
		timeToLive,
	).Result()
	if returnedError != nil {
		return false, returnedError
	}

	traceMetadata.Held = acquired
	repository.trace.ApplyTraceAttributes(span, traceMetadata)
	return acquired, nil
}

// Release 釋放鎖；鎖不存在也視為成功
func (repository *GenerationGuardRepository) Release(
	contextValue context.Context,
	chatIdentifier string,
) (returnedError error) {
	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	repository.trace.ApplyTraceAttributes(span, core.TraceGuardMeta{ChatID: chatIdentifier, Op: "release"})

	returnedError = repository.client.Del(contextValue, repository.lockKey(chatIdentifier)).Err()
	return returnedError
}

// IsHeld 查詢該 chat 是否有生成在途
func (repository *GenerationGuardRepository) IsHeld(
	contextValue context.Context,
	chatIdentifier string,
) (held bool, returnedError error) {
	count, existsError := repository.client.Exists(contextValue, repository.lockKey(chatIdentifier)).Result()
	if existsError != nil {
		return false, existsError
	}
	return count > 0, nil
}

func (repository *GenerationGuardRepository) lockKey(chatIdentifier string) string {
	return fmt.Sprintf("%s:%s:%s", core.RedisKeyServerName, core.RedisKeyGenerationLock, chatIdentifier)
}
