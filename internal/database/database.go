package database

import (
	client "byokchat/internal/database/client"
	fluentdRepo "byokchat/internal/database/fluentd/repository"
	mongoRepo "byokchat/internal/database/mongodb/repository"
	redisRepo "byokchat/internal/database/redis/repository"

	"github.com/google/wire"
)

// ProviderSet 定義所有 DB Client 的依賴
var ProviderSet = wire.NewSet(
	client.NewMongoClient,
	client.NewRedisClient,
	client.NewFluentdClient,
	mongoRepo.ProviderSet,
	redisRepo.ProviderSet,
	fluentdRepo.ProviderSet,
)
