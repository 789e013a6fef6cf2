package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"byokchat/config"
	"byokchat/internal/agent"
	"byokchat/internal/core"
	fluentdModel "byokchat/internal/database/fluentd/model"
	fluentdDb "byokchat/internal/database/fluentd/repository"
	redisDb "byokchat/internal/database/redis/repository"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/service/llm"
	"byokchat/internal/telemetry"
	"byokchat/utils/secret"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const dequeueBlockTimeout = 5 * time.Second

// GenerationService 生成工作的 worker。
// 從佇列撈工作 → 找 chat → 取 key → 解析模型 → 串流生成。
// 缺 key、模型不合法這類使用者層級的失敗會化成 errored assistant 訊息，
// worker 本身不會因此停擺。
type GenerationService struct {
	trace        *telemetry.Trace
	metric       *telemetry.Metric
	threadRepo   ThreadStore
	apiKeySvc    *APIKeyService
	conversation Conversation
	resolver     ModelResolver
	queue        GenerationQueue
	guard        GenerationGuard
	logRepo      *fluentdDb.LogRepository
	config       *config.Configuration
	logger       *zap.Logger
}

func NewGenerationService(
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	threadRepo ThreadStore,
	apiKeySvc *APIKeyService,
	conversation Conversation,
	resolver ModelResolver,
	queue GenerationQueue,
	guard GenerationGuard,
	logRepo *fluentdDb.LogRepository,
	config *config.Configuration,
	logger *zap.Logger,
) *GenerationService {
	return &GenerationService{
		trace:        trace,
		metric:       metric,
		threadRepo:   threadRepo,
		apiKeySvc:    apiKeySvc,
		conversation: conversation,
		resolver:     resolver,
		queue:        queue,
		guard:        guard,
		logRepo:      logRepo,
		config:       config,
		logger:       logger,
	}
}

// Run 啟動 worker pool，阻塞到 ctx 取消為止
func (s *GenerationService) Run(ctx context.Context) {
	workers := s.config.Generation.Workers
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerIndex int) {
			defer wg.Done()
			s.runWorker(ctx, workerIndex)
		}(i)
	}
	wg.Wait()
}

func (s *GenerationService) runWorker(ctx context.Context, workerIndex int) {
	logger := s.logger.With(zap.Int("worker", workerIndex))
	logger.Info("generation worker started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("generation worker stopped")
			return
		default:
		}

		task, dequeueError := s.queue.Dequeue(ctx, dequeueBlockTimeout)
		if dequeueError != nil {
			if errors.Is(dequeueError, context.Canceled) {
				continue
			}
			logger.Error("failed to dequeue generation task", zap.Error(dequeueError))
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}

		s.Process(ctx, task)
	}
}

// Process 處理單一工作。不管成功失敗，結束時一定放掉該 chat 的守門鎖。
func (s *GenerationService) Process(ctx context.Context, task *redisDb.GenerationTask) {
	startedAt := time.Now()
	ctx, span, end := s.trace.WithSpan(ctx, string(core.SpanGenerationWorker))

	var processError error
	defer func() {
		end(processError)
		if releaseError := s.guard.Release(context.WithoutCancel(ctx), task.ChatID); releaseError != nil {
			s.logger.Error("failed to release generation lock",
				zap.String("chatID", task.ChatID), zap.Error(releaseError))
		}
	}()

	traceMeta := core.TraceGenerationMeta{ChatID: task.ChatID, MessageID: task.MessageID}
	s.trace.ApplyTraceAttributes(span, traceMeta)

	chatID, hexError := primitive.ObjectIDFromHex(task.ChatID)
	if hexError != nil {
		s.logger.Error("malformed chat id in generation task", zap.String("chatID", task.ChatID))
		processError = hexError
		return
	}

	thread, getError := s.threadRepo.GetByID(ctx, chatID)
	if getError == mongo.ErrNoDocuments {
		// chat 已被刪掉：佔位訊息標 error 即可
		_ = s.conversation.MarkErrored(ctx, task.MessageID, "chat was deleted before generation started")
		return
	}
	if getError != nil {
		s.logger.Error("failed to load chat for generation",
			zap.String("chatID", task.ChatID), zap.Error(getError))
		processError = getError
		return
	}

	traceMeta.ThreadID = thread.ThreadID
	traceMeta.Provider = string(thread.Provider)
	traceMeta.Model = thread.ModelID
	s.trace.ApplyTraceAttributes(span, traceMeta)

	auditLog := fluentdModel.GenerationLog{
		ChatID:    task.ChatID,
		ThreadID:  thread.ThreadID,
		MessageID: task.MessageID,
		UserID:    thread.UserID,
		Provider:  string(thread.Provider),
		Model:     thread.ModelID,
	}

	secretValue, resolveSecretError := s.apiKeySvc.ResolveSecret(ctx, thread.UserID, thread.Provider)
	if resolveSecretError != nil {
		s.failGeneration(ctx, task.MessageID, thread.Provider, "not_configured", resolveSecretError, &auditLog, startedAt)
		return
	}
	auditLog.KeyFingerprint = secret.Fingerprint(secretValue, s.config.App.SecretKey)

	client, resolveError := s.resolver.Resolve(thread.Provider, thread.ModelID, secretValue)
	if resolveError != nil {
		reason := "unsupported_model"
		var coded *cErr.Error
		if errors.As(resolveError, &coded) && coded.ErrorCode() == cErr.UNKNOWN_PROVIDER {
			reason = "unknown_provider"
			// provider 枚舉之外的值是程式錯誤，讓它大聲一點
			s.logger.Error("unknown provider reached generation",
				zap.String("provider", string(thread.Provider)), zap.String("chatID", task.ChatID))
		}
		s.failGeneration(ctx, task.MessageID, thread.Provider, reason, resolveError, &auditLog, startedAt)
		return
	}

	requestTimeout := time.Duration(s.config.Generation.RequestTimeoutSeconds) * time.Second
	generateCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var deltaCount int64
	stream := func(streamCtx context.Context, history []agent.Turn, onDelta func(string) error) (string, error) {
		messages := make([]llm.Message, 0, len(history))
		for _, turn := range history {
			messages = append(messages, llm.Message{Role: string(turn.Role), Content: turn.Content})
		}
		result, streamError := client.StreamText(streamCtx, &llm.StreamRequest{
			Model:    thread.ModelID,
			Messages: messages,
		}, func(delta string) error {
			deltaCount++
			return onDelta(delta)
		})
		if streamError != nil {
			return "", streamError
		}
		return result.Text, nil
	}

	if generateError := s.conversation.Generate(generateCtx, thread.ThreadID, task.MessageID, stream); generateError != nil {
		processError = generateError
		auditLog.DeltaCount = deltaCount
		// Generate 多半已把佔位訊息標成 error，這裡再補一次是冪等的，
		// 確保任何失敗路徑都不會把訊息留在 streaming
		s.failGeneration(ctx, task.MessageID, thread.Provider, "stream_failed", generateError, &auditLog, startedAt)
		return
	}

	duration := time.Since(startedAt)
	auditLog.Status = "complete"
	auditLog.DurationMS = duration.Milliseconds()
	auditLog.DeltaCount = deltaCount
	s.shipAuditLog(ctx, &auditLog)

	if s.metric.GenerationTotal != nil {
		s.metric.GenerationTotal.WithLabelValues(string(thread.Provider), "complete").Inc()
	}
	if s.metric.GenerationDuration != nil {
		s.metric.GenerationDuration.WithLabelValues(string(thread.Provider)).Observe(duration.Seconds())
	}

	traceMeta.Status = "complete"
	s.trace.ApplyTraceAttributes(span, traceMeta)
}

// failGeneration 統一的失敗收尾：佔位訊息標 error（冪等，不覆寫已定稿或已標錯的訊息）、
// 審計與指標照記。
func (s *GenerationService) failGeneration(
	ctx context.Context,
	messageID string,
	provider core.ProviderName,
	reason string,
	cause error,
	auditLog *fluentdModel.GenerationLog,
	startedAt time.Time,
) {
	if messageID != "" {
		errorDesc := cause.Error()
		var coded *cErr.Error
		if errors.As(cause, &coded) {
			errorDesc = coded.ErrorDesc()
		}
		if markError := s.conversation.MarkErrored(ctx, messageID, errorDesc); markError != nil {
			s.logger.Error("failed to mark assistant message errored",
				zap.String("messageID", messageID), zap.Error(markError))
		}
	}

	s.logger.Warn("generation failed",
		zap.String("chatID", auditLog.ChatID),
		zap.String("provider", string(provider)),
		zap.String("reason", reason),
		zap.Error(cause))

	auditLog.Status = "error"
	auditLog.Error = cause.Error()
	auditLog.DurationMS = time.Since(startedAt).Milliseconds()
	s.shipAuditLog(ctx, auditLog)

	if s.metric.GenerationTotal != nil {
		s.metric.GenerationTotal.WithLabelValues(string(provider), "error").Inc()
	}
	if s.metric.GenerationFailTotal != nil {
		s.metric.GenerationFailTotal.WithLabelValues(string(provider), reason).Inc()
	}
}

func (s *GenerationService) shipAuditLog(ctx context.Context, auditLog *fluentdModel.GenerationLog) {
	if s.logRepo == nil {
		return
	}
	if logError := s.logRepo.LogGeneration(ctx, *auditLog); logError != nil {
		s.logger.Warn("failed to ship generation audit log", zap.Error(logError))
	}
}
