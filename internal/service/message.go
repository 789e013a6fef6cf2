package service

import (
	"context"
	"strings"
	"time"

	"byokchat/config"
	"byokchat/internal/core"
	"byokchat/internal/database/mongodb/model"
	redisDb "byokchat/internal/database/redis/repository"
	"byokchat/internal/dto"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/telemetry"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MessageService 訊息送出與增量同步。
// 送出即入列，生成由 worker 非同步執行；同一個 chat 一次只允許一個生成在途。
type MessageService struct {
	trace        *telemetry.Trace
	threadRepo   ThreadStore
	conversation Conversation
	queue        GenerationQueue
	guard        GenerationGuard
	config       *config.Configuration
	logger       *zap.Logger
}

func NewMessageService(
	trace *telemetry.Trace,
	threadRepo ThreadStore,
	conversation Conversation,
	queue GenerationQueue,
	guard GenerationGuard,
	config *config.Configuration,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		trace:        trace,
		threadRepo:   threadRepo,
		conversation: conversation,
		queue:        queue,
		guard:        guard,
		config:       config,
		logger:       logger,
	}
}

// Send 送出一則訊息並排程生成。
// 順序：擁有權 → 守門鎖 → user 訊息 + assistant 佔位落地 → 入列。
// 鎖拿不到回 GenerationInFlight，呼叫端稍後重試。
func (s *MessageService) Send(
	ctx context.Context,
	principal core.Principal,
	chatID primitive.ObjectID,
	payload *dto.SendMessageDto,
) (_ *dto.SendMessageResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	prompt := strings.TrimSpace(payload.Prompt)
	if prompt == "" {
		returnedError = cErr.BadRequestBody("prompt must not be empty")
		return nil, returnedError
	}

	thread, getError := s.threadRepo.GetForUser(ctx, chatID, principal.UserID)
	if getError == mongo.ErrNoDocuments {
		returnedError = cErr.NotFound("chat not found")
		return nil, returnedError
	}
	if getError != nil {
		returnedError = cErr.DatabaseError("mongodb get chat failed")
		return nil, returnedError
	}

	lockTTL := time.Duration(s.config.Generation.LockTTLSeconds) * time.Second
	acquired, acquireError := s.guard.Acquire(ctx, chatID.Hex(), lockTTL)
	if acquireError != nil {
		returnedError = cErr.DatabaseError("redis acquire generation lock failed")
		return nil, returnedError
	}
	if !acquired {
		returnedError = cErr.GenerationInFlight("a generation is already running for this chat")
		return nil, returnedError
	}

	userMessageID, assistantMessageID, submitError := s.conversation.SubmitMessage(ctx, thread.ThreadID, prompt)
	if submitError != nil {
		// 訊息沒落地就放鎖，chat 不會卡死
		if releaseError := s.guard.Release(ctx, chatID.Hex()); releaseError != nil {
			s.logger.Error("failed to release generation lock after submit failure",
				zap.String("chatID", chatID.Hex()), zap.Error(releaseError))
		}
		returnedError = cErr.DatabaseError("submit message failed")
		return nil, returnedError
	}

	if enqueueError := s.queue.Enqueue(ctx, redisDb.GenerationTask{
		ChatID:     chatID.Hex(),
		MessageID:  assistantMessageID,
		EnqueuedAt: time.Now().UTC(),
	}); enqueueError != nil {
		// 入列失敗：佔位訊息標 error、放鎖，對呼叫端回報失敗
		if markError := s.conversation.MarkErrored(ctx, assistantMessageID, "failed to schedule generation"); markError != nil {
			s.logger.Error("failed to mark assistant message errored",
				zap.String("messageID", assistantMessageID), zap.Error(markError))
		}
		if releaseError := s.guard.Release(ctx, chatID.Hex()); releaseError != nil {
			s.logger.Error("failed to release generation lock after enqueue failure",
				zap.String("chatID", chatID.Hex()), zap.Error(releaseError))
		}
		returnedError = cErr.DatabaseError("redis enqueue generation failed")
		return nil, returnedError
	}

	return &dto.SendMessageResponseDto{
		UserMessageID:      userMessageID,
		AssistantMessageID: assistantMessageID,
	}, nil
}

// Sync 增量同步：afterSeq 之後的訊息 + 串流中訊息 streamCursor 之後的片段。
// assistant 佔位訊息永遠先於它的任何 delta 出現。
func (s *MessageService) Sync(
	ctx context.Context,
	principal core.Principal,
	chatID primitive.ObjectID,
	afterSeq int64,
	streamCursor int64,
) (_ *dto.SyncResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	thread, getError := s.threadRepo.GetForUser(ctx, chatID, principal.UserID)
	if getError == mongo.ErrNoDocuments {
		returnedError = cErr.NotFound("chat not found")
		return nil, returnedError
	}
	if getError != nil {
		returnedError = cErr.DatabaseError("mongodb get chat failed")
		return nil, returnedError
	}

	result, syncError := s.conversation.Sync(ctx, thread.ThreadID, afterSeq, streamCursor)
	if syncError != nil {
		returnedError = cErr.DatabaseError("sync messages failed")
		return nil, returnedError
	}

	response := &dto.SyncResponseDto{
		Messages:     make([]dto.MessageResponseDto, 0, len(result.Messages)),
		StreamDeltas: make([]dto.StreamDeltaResponseDto, 0, len(result.StreamDeltas)),
	}
	for _, message := range result.Messages {
		response.Messages = append(response.Messages, messageToResponseDto(message))
	}
	for _, delta := range result.StreamDeltas {
		response.StreamDeltas = append(response.StreamDeltas, dto.StreamDeltaResponseDto{
			MessageID: delta.MessageID,
			Index:     delta.Index,
			Content:   delta.Content,
		})
	}
	return response, nil
}

func messageToResponseDto(message *model.AgentMessage) dto.MessageResponseDto {
	return dto.MessageResponseDto{
		ID:        message.MessageID,
		Seq:       message.Seq,
		Role:      string(message.Role),
		Content:   message.Content,
		Status:    string(message.Status),
		Error:     message.ErrorDesc,
		CreatedAt: message.CreatedAt,
	}
}
