package service

import (
	"context"
	"strings"
	"testing"

	"byokchat/internal/core"
	"byokchat/internal/dto"
	cErr "byokchat/internal/pkg/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPIKeyService(store *fakeAPIKeyStore) *APIKeyService {
	return NewAPIKeyService(newTestTrace(), store, testLogger)
}

func TestAPIKeySave_ReturnsMaskedKeyOnly(t *testing.T) {
	svc := newTestAPIKeyService(newFakeAPIKeyStore())
	principal := core.Principal{UserID: "user-1"}

	saved, err := svc.Save(context.Background(), principal, &dto.SaveAPIKeyDto{
		Provider: core.ProviderOpenAI,
		Secret:   "sk-proj-abcdef123456",
	})

	require.NoError(t, err)
	assert.Equal(t, core.ProviderOpenAI, saved.Provider)
	assert.Equal(t, core.SupportedModels(core.ProviderOpenAI), saved.Models)
	assert.NotContains(t, saved.MaskedKey, "abcdef")
	assert.True(t, strings.HasPrefix(saved.MaskedKey, "sk-p"))
	assert.True(t, strings.HasSuffix(saved.MaskedKey, "3456"))
}

func TestAPIKeySave_UpsertKeepsSingleRecord(t *testing.T) {
	store := newFakeAPIKeyStore()
	svc := newTestAPIKeyService(store)
	principal := core.Principal{UserID: "user-1"}

	_, err := svc.Save(context.Background(), principal, &dto.SaveAPIKeyDto{
		Provider: core.ProviderAnthropic, Secret: "sk-ant-first-key-000",
	})
	require.NoError(t, err)
	_, err = svc.Save(context.Background(), principal, &dto.SaveAPIKeyDto{
		Provider: core.ProviderAnthropic, Secret: "sk-ant-second-key-111",
	})
	require.NoError(t, err)

	keys, listErr := store.ListByUser(context.Background(), "user-1")
	require.NoError(t, listErr)
	require.Len(t, keys, 1, "same (user, provider) must stay a single record")
	assert.Equal(t, "sk-ant-second-key-111", keys[0].Secret, "newest secret wins")
}

func TestAPIKeySave_RejectsUnknownProviderAndEmptySecret(t *testing.T) {
	svc := newTestAPIKeyService(newFakeAPIKeyStore())
	principal := core.Principal{UserID: "user-1"}

	_, err := svc.Save(context.Background(), principal, &dto.SaveAPIKeyDto{
		Provider: core.ProviderName("azure"), Secret: "whatever",
	})
	require.Error(t, err)
	assert.Equal(t, cErr.BAD_REQUEST_BODY, cErr.From(err).ErrorCode())

	_, err = svc.Save(context.Background(), principal, &dto.SaveAPIKeyDto{
		Provider: core.ProviderOpenAI, Secret: "",
	})
	require.Error(t, err)
}

func TestAPIKeySettings_ListsKeysAndFullCatalog(t *testing.T) {
	store := newFakeAPIKeyStore()
	svc := newTestAPIKeyService(store)
	principal := core.Principal{UserID: "user-1"}

	_, err := svc.Save(context.Background(), principal, &dto.SaveAPIKeyDto{
		Provider: core.ProviderOpenAI, Secret: "sk-openai-key-12345",
	})
	require.NoError(t, err)
	// 其他使用者的 key 不得出現
	_, err = svc.Save(context.Background(), core.Principal{UserID: "user-2"}, &dto.SaveAPIKeyDto{
		Provider: core.ProviderGoogle, Secret: "AIza-other-user-key",
	})
	require.NoError(t, err)

	settings, err := svc.Settings(context.Background(), principal)

	require.NoError(t, err)
	require.Len(t, settings.Keys, 1)
	assert.Equal(t, core.ProviderOpenAI, settings.Keys[0].Provider)
	assert.Equal(t, core.SupportedModels(core.ProviderOpenAI), settings.Keys[0].Models,
		"each key carries its provider's model list")
	assert.Equal(t, core.ChatModelOptions, settings.Models, "settings always carries the full catalog")
	for _, key := range settings.Keys {
		assert.NotContains(t, key.MaskedKey, "openai-key")
	}
}

func TestAPIKeyRemove_IsIdempotent(t *testing.T) {
	store := newFakeAPIKeyStore()
	svc := newTestAPIKeyService(store)
	principal := core.Principal{UserID: "user-1"}

	_, err := svc.Save(context.Background(), principal, &dto.SaveAPIKeyDto{
		Provider: core.ProviderGoogle, Secret: "AIza-test-key-00000",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), principal, core.ProviderGoogle))
	// 再刪一次也不報錯
	require.NoError(t, svc.Remove(context.Background(), principal, core.ProviderGoogle))

	settings, err := svc.Settings(context.Background(), principal)
	require.NoError(t, err)
	assert.Empty(t, settings.Keys)
}

func TestResolveSecret_NotConfiguredNamesProviderOnly(t *testing.T) {
	svc := newTestAPIKeyService(newFakeAPIKeyStore())

	_, err := svc.ResolveSecret(context.Background(), "user-1", core.ProviderAnthropic)

	require.Error(t, err)
	appErr := cErr.From(err)
	assert.Equal(t, cErr.NOT_CONFIGURED, appErr.ErrorCode())
	assert.Contains(t, appErr.ErrorDesc(), "anthropic")
}

func TestResolveSecret_ReturnsRawSecret(t *testing.T) {
	store := newFakeAPIKeyStore()
	svc := newTestAPIKeyService(store)
	principal := core.Principal{UserID: "user-1"}

	_, err := svc.Save(context.Background(), principal, &dto.SaveAPIKeyDto{
		Provider: core.ProviderOpenAI, Secret: "sk-raw-secret-value",
	})
	require.NoError(t, err)

	resolved, err := svc.ResolveSecret(context.Background(), "user-1", core.ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-raw-secret-value", resolved)
}
