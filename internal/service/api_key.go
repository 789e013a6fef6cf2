package service

import (
	"context"

	"byokchat/internal/core"
	"byokchat/internal/database/mongodb/model"
	"byokchat/internal/dto"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/telemetry"
	"byokchat/utils/secret"

	"go.uber.org/zap"
)

// APIKeyService 管理每位使用者各 provider 的 API Key。
// Secret 原文只進不出：儲存後對外一律只給遮蔽字串。
type APIKeyService struct {
	trace      *telemetry.Trace
	apiKeyRepo APIKeyStore
	logger     *zap.Logger
}

func NewAPIKeyService(
	trace *telemetry.Trace,
	apiKeyRepo APIKeyStore,
	logger *zap.Logger,
) *APIKeyService {
	return &APIKeyService{
		trace:      trace,
		apiKeyRepo: apiKeyRepo,
		logger:     logger,
	}
}

// Save 新增或覆寫 (user, provider) 的 key；同組合重複儲存只會留下一筆。
// 回傳遮蔽後的狀態。
func (s *APIKeyService) Save(
	ctx context.Context,
	principal core.Principal,
	payload *dto.SaveAPIKeyDto,
) (_ *dto.APIKeyResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if !core.IsValidProvider(payload.Provider) {
		returnedError = cErr.BadRequestBody("unknown provider: " + string(payload.Provider))
		return nil, returnedError
	}
	if payload.Secret == "" {
		returnedError = cErr.BadRequestBody("secret must not be empty")
		return nil, returnedError
	}

	if _, upsertError := s.apiKeyRepo.Upsert(ctx, principal.UserID, payload.Provider, payload.Secret); upsertError != nil {
		s.logger.Error("failed to upsert api key",
			zap.String("provider", string(payload.Provider)), zap.Error(upsertError))
		returnedError = cErr.DatabaseError("mongodb upsert api key failed")
		return nil, returnedError
	}

	stored, getError := s.apiKeyRepo.GetByUserProvider(ctx, principal.UserID, payload.Provider)
	if getError != nil {
		returnedError = cErr.DatabaseError("mongodb get api key failed")
		return nil, returnedError
	}
	if stored == nil {
		returnedError = cErr.InternalServer("api key missing after upsert")
		return nil, returnedError
	}
	return apiKeyToResponseDto(stored), nil
}

// Settings 設定頁資料：所有已存 key 的遮蔽狀態 + 完整模型目錄
func (s *APIKeyService) Settings(
	ctx context.Context,
	principal core.Principal,
) (_ *dto.APIKeySettingsResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	keys, listError := s.apiKeyRepo.ListByUser(ctx, principal.UserID)
	if listError != nil {
		returnedError = cErr.DatabaseError("mongodb list api keys failed")
		return nil, returnedError
	}

	response := &dto.APIKeySettingsResponseDto{
		Keys:   make([]dto.APIKeyResponseDto, 0, len(keys)),
		Models: core.ChatModelOptions,
	}
	for _, key := range keys {
		response.Keys = append(response.Keys, *apiKeyToResponseDto(key))
	}
	return response, nil
}

// Remove 刪除 (user, provider) 的 key；不存在也回成功
func (s *APIKeyService) Remove(
	ctx context.Context,
	principal core.Principal,
	provider core.ProviderName,
) (returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if deleteError := s.apiKeyRepo.Delete(ctx, principal.UserID, provider); deleteError != nil {
		returnedError = cErr.DatabaseError("mongodb delete api key failed")
		return returnedError
	}
	return nil
}

// ResolveSecret 取回原文 secret 給生成流程用；未設定回 NotConfigured。
// 錯誤訊息只點名 provider，永遠不夾帶 secret 任何片段。
func (s *APIKeyService) ResolveSecret(
	ctx context.Context,
	userID string,
	provider core.ProviderName,
) (_ string, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	key, getError := s.apiKeyRepo.GetByUserProvider(ctx, userID, provider)
	if getError != nil {
		returnedError = cErr.DatabaseError("mongodb get api key failed")
		return "", returnedError
	}
	if key == nil {
		returnedError = cErr.NotConfigured(string(provider))
		return "", returnedError
	}
	return key.Secret, nil
}

func apiKeyToResponseDto(key *model.APIKey) *dto.APIKeyResponseDto {
	return &dto.APIKeyResponseDto{
		Provider:  key.Provider,
		MaskedKey: secret.Mask(key.Secret),
		Models:    core.SupportedModels(key.Provider),
		CreatedAt: key.CreatedAt,
		UpdatedAt: key.UpdatedAt,
	}
}
