package service

import (
	"context"

	"byokchat/internal/core"
	"byokchat/internal/database/mongodb/model"
	"byokchat/internal/dto"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/telemetry"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ThreadService 對話串的生命週期。
// 擁有權檢查全部收在 repository 的 filter：查無與非本人一律回 NotFound，
// 不洩漏「存在但不是你的」這個資訊。
type ThreadService struct {
	trace        *telemetry.Trace
	threadRepo   ThreadStore
	conversation Conversation
	logger       *zap.Logger
}

func NewThreadService(
	trace *telemetry.Trace,
	threadRepo ThreadStore,
	conversation Conversation,
	logger *zap.Logger,
) *ThreadService {
	return &ThreadService{
		trace:        trace,
		threadRepo:   threadRepo,
		conversation: conversation,
		logger:       logger,
	}
}

// Create 建立對話串。modelId 留空以 provider 預設模型補上；
// 任何寫入前都過一次目錄查驗，不合法的組合不會留下任何資料。
func (s *ThreadService) Create(
	ctx context.Context,
	principal core.Principal,
	payload *dto.CreateThreadDto,
) (_ *dto.ThreadResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if !core.IsValidProvider(payload.Provider) {
		returnedError = cErr.BadRequestBody("unknown provider: " + string(payload.Provider))
		return nil, returnedError
	}

	modelID := payload.ModelID
	if modelID == "" {
		modelID = core.DefaultModel(payload.Provider)
	}
	if !core.IsSupportedModel(payload.Provider, modelID) {
		returnedError = cErr.UnsupportedModel(string(payload.Provider), modelID, core.SupportedModels(payload.Provider))
		return nil, returnedError
	}

	threadID, createThreadError := s.conversation.CreateThread(ctx, principal.UserID)
	if createThreadError != nil {
		returnedError = cErr.DatabaseError("create agent thread failed")
		return nil, returnedError
	}

	created, createError := s.threadRepo.Create(ctx, &model.ChatThread{
		UserID:   principal.UserID,
		ThreadID: threadID,
		Provider: payload.Provider,
		ModelID:  modelID,
		Title:    payload.Title,
	})
	if createError != nil {
		returnedError = cErr.DatabaseError("mongodb create chat failed")
		return nil, returnedError
	}
	return threadToResponseDto(created), nil
}

// Get 取回單一對話串
func (s *ThreadService) Get(
	ctx context.Context,
	principal core.Principal,
	chatID primitive.ObjectID,
) (_ *dto.ThreadResponseDto, returnedError error) {
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
	return threadToResponseDto(thread), nil
}

// List 我的對話串，新的在前
func (s *ThreadService) List(
	ctx context.Context,
	principal core.Principal,
	opts core.ListOptions,
) (_ *dto.ThreadListResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	opts = opts.Normalize()
	threads, total, listError := s.threadRepo.ListByUser(ctx, principal.UserID, opts)
	if listError != nil {
		returnedError = cErr.DatabaseError("mongodb list chats failed")
		return nil, returnedError
	}

	response := &dto.ThreadListResponseDto{
		Threads: make([]dto.ThreadResponseDto, 0, len(threads)),
		Total:   total,
		Page:    opts.Page,
		Size:    opts.Size,
	}
	for _, thread := range threads {
		response.Threads = append(response.Threads, *threadToResponseDto(thread))
	}
	return response, nil
}

// UpdateTitle 改標題
func (s *ThreadService) UpdateTitle(
	ctx context.Context,
	principal core.Principal,
	chatID primitive.ObjectID,
	title string,
) (returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	updateError := s.threadRepo.UpdateTitle(ctx, chatID, principal.UserID, title)
	if updateError == mongo.ErrNoDocuments {
		returnedError = cErr.NotFound("chat not found")
		return returnedError
	}
	if updateError != nil {
		returnedError = cErr.DatabaseError("mongodb update chat title failed")
		return returnedError
	}
	return nil
}

// ChangeModel 換模型：provider 與 modelId 一次寫入，不會出現只換一半的中間態。
// 與現值相同的組合直接回成功且不落任何寫入。
func (s *ThreadService) ChangeModel(
	ctx context.Context,
	principal core.Principal,
	chatID primitive.ObjectID,
	payload *dto.UpdateThreadModelDto,
) (_ *dto.ThreadResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if !core.IsValidProvider(payload.Provider) {
		returnedError = cErr.BadRequestBody("unknown provider: " + string(payload.Provider))
		return nil, returnedError
	}
	if !core.IsSupportedModel(payload.Provider, payload.ModelID) {
		returnedError = cErr.UnsupportedModel(string(payload.Provider), payload.ModelID, core.SupportedModels(payload.Provider))
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

	// 同組合視為 no-op，不碰資料庫
	if thread.Provider == payload.Provider && thread.ModelID == payload.ModelID {
		return threadToResponseDto(thread), nil
	}

	updateError := s.threadRepo.UpdateModel(ctx, chatID, principal.UserID, payload.Provider, payload.ModelID)
	if updateError == mongo.ErrNoDocuments {
		returnedError = cErr.NotFound("chat not found")
		return nil, returnedError
	}
	if updateError != nil {
		returnedError = cErr.DatabaseError("mongodb update chat model failed")
		return nil, returnedError
	}

	thread.Provider = payload.Provider
	thread.ModelID = payload.ModelID
	return threadToResponseDto(thread), nil
}

// Remove 刪除對話串；agent 端資料由 janitor 非同步回收
func (s *ThreadService) Remove(
	ctx context.Context,
	principal core.Principal,
	chatID primitive.ObjectID,
) (returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	deleteError := s.threadRepo.Delete(ctx, chatID, principal.UserID)
	if deleteError == mongo.ErrNoDocuments {
		returnedError = cErr.NotFound("chat not found")
		return returnedError
	}
	if deleteError != nil {
		returnedError = cErr.DatabaseError("mongodb delete chat failed")
		return returnedError
	}
	return nil
}

func threadToResponseDto(thread *model.ChatThread) *dto.ThreadResponseDto {
	return &dto.ThreadResponseDto{
		ID:        thread.ID.Hex(),
		Provider:  thread.Provider,
		ModelID:   thread.ModelID,
		Title:     thread.Title,
		CreatedAt: thread.CreatedAt,
		UpdatedAt: thread.UpdatedAt,
	}
}
