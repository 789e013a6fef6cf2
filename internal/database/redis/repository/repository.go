package repository

import (
	"github.com/google/wire"
)

// 統一管理所有 Redis repository
type RedisRepository struct {
	generationQueueRepo *GenerationQueueRepository
	generationGuardRepo *GenerationGuardRepository
}

// 建立 Redis repository 物件
func NewRedisRepository(
	generationQueueRepo *GenerationQueueRepository,
	generationGuardRepo *GenerationGuardRepository,
) *RedisRepository {
	return &RedisRepository{
		generationQueueRepo: generationQueueRepo,
		generationGuardRepo: generationGuardRepo,
	}
}

// Wire 依賴提供
var ProviderSet = wire.NewSet(
	NewGenerationQueueRepository,
	NewGenerationGuardRepository,
	NewRedisRepository)
