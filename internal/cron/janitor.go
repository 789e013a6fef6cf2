package cron

import (
	"context"
	"time"

	mongoDb "byokchat/internal/database/mongodb/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	janitorBatchSize = 200
	janitorTimeout   = 2 * time.Minute
)

// JanitorJob 背景清理：
// 1) chat 刪除後遺留的 agent thread（訊息與 delta 一併回收）
// 2) 已定稿訊息沒清乾淨的 stream delta
type JanitorJob struct {
	logger     *zap.Logger
	threadRepo *mongoDb.ChatThreadRepository
	agentRepo  *mongoDb.AgentRepository
}

func NewJanitorJob(
	logger *zap.Logger,
	threadRepo *mongoDb.ChatThreadRepository,
	agentRepo *mongoDb.AgentRepository,
) *JanitorJob {
	return &JanitorJob{
		logger:     logger,
		threadRepo: threadRepo,
		agentRepo:  agentRepo,
	}
}

func (j *JanitorJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), janitorTimeout)
	defer cancel()

	orphans := j.purgeOrphanThreads(ctx)
	deltas := j.purgeFinishedDeltas(ctx)

	if orphans > 0 || deltas > 0 {
		j.logger.Info("janitor finished",
			zap.Int("orphanThreads", orphans),
			zap.Int("staleDeltaMessages", deltas))
	}
}

// purgeOrphanThreads 掃所有 agent thread，handle 沒被任何 chat 持有的整串回收
func (j *JanitorJob) purgeOrphanThreads(ctx context.Context) int {
	purged := 0
	cursor := primitive.NilObjectID
	for {
		threadIDs, lastID, listError := j.agentRepo.ListThreadIDs(ctx, cursor, janitorBatchSize)
		if listError != nil {
			j.logger.Error("janitor failed to list agent threads", zap.Error(listError))
			return purged
		}
		if len(threadIDs) == 0 {
			return purged
		}
		cursor = lastID

		for _, threadID := range threadIDs {
			held, existsError := j.threadRepo.ExistsByThreadID(ctx, threadID)
			if existsError != nil {
				j.logger.Error("janitor failed to check thread ownership",
					zap.String("threadID", threadID), zap.Error(existsError))
				continue
			}
			if held {
				continue
			}
			if purgeError := j.agentRepo.DeleteThreadData(ctx, threadID); purgeError != nil {
				j.logger.Error("janitor failed to purge orphan thread",
					zap.String("threadID", threadID), zap.Error(purgeError))
				continue
			}
			purged++
		}
	}
}

// purgeFinishedDeltas 回收已定稿（complete / error）訊息殘留的 delta
func (j *JanitorJob) purgeFinishedDeltas(ctx context.Context) int {
	messageIDs, listError := j.agentRepo.ListFinalizedMessageIDsWithDeltas(ctx, janitorBatchSize)
	if listError != nil {
		j.logger.Error("janitor failed to list stale deltas", zap.Error(listError))
		return 0
	}

	cleaned := 0
	for _, messageID := range messageIDs {
		if _, deleteError := j.agentRepo.DeleteDeltasForMessage(ctx, messageID); deleteError != nil {
			j.logger.Error("janitor failed to delete stale deltas",
				zap.String("messageID", messageID), zap.Error(deleteError))
			continue
		}
		cleaned++
	}
	return cleaned
}
