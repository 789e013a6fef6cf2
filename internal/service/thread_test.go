package service

import (
	"context"
	"testing"

	"byokchat/internal/core"
	"byokchat/internal/dto"
	cErr "byokchat/internal/pkg/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestThreadService(store *fakeThreadStore, conversation *fakeConversation) *ThreadService {
	return NewThreadService(newTestTrace(), store, conversation, testLogger)
}

func TestThreadCreate_DefaultsModelFromProvider(t *testing.T) {
	store := newFakeThreadStore()
	svc := newTestThreadService(store, newFakeConversation())
	principal := core.Principal{UserID: "user-1"}

	created, err := svc.Create(context.Background(), principal, &dto.CreateThreadDto{
		Provider: core.ProviderGoogle,
	})

	require.NoError(t, err)
	assert.Equal(t, core.ProviderGoogle, created.Provider)
	assert.Equal(t, core.DefaultModel(core.ProviderGoogle), created.ModelID)
	assert.NotEmpty(t, created.ID)
}

func TestThreadCreate_ExplicitModelKept(t *testing.T) {
	svc := newTestThreadService(newFakeThreadStore(), newFakeConversation())
	principal := core.Principal{UserID: "user-1"}

	created, err := svc.Create(context.Background(), principal, &dto.CreateThreadDto{
		Provider: core.ProviderAnthropic,
		ModelID:  "claude-haiku-4-5",
	})

	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5", created.ModelID)
}

func TestThreadCreate_InvalidComboLeavesNoData(t *testing.T) {
	store := newFakeThreadStore()
	svc := newTestThreadService(store, newFakeConversation())
	principal := core.Principal{UserID: "user-1"}

	_, err := svc.Create(context.Background(), principal, &dto.CreateThreadDto{
		Provider: core.ProviderOpenAI,
		ModelID:  "claude-opus-4-6", // 別家的模型
	})

	require.Error(t, err)
	assert.Equal(t, cErr.UNSUPPORTED_MODEL, cErr.From(err).ErrorCode())
	assert.Empty(t, store.threads, "rejected create must not persist anything")
}

func TestThreadGet_OwnershipConflatedToNotFound(t *testing.T) {
	store := newFakeThreadStore()
	svc := newTestThreadService(store, newFakeConversation())
	owner := core.Principal{UserID: "owner"}

	created, err := svc.Create(context.Background(), owner, &dto.CreateThreadDto{Provider: core.ProviderOpenAI})
	require.NoError(t, err)
	chatID, _ := primitive.ObjectIDFromHex(created.ID)

	// 不存在的 chat 與別人的 chat 回同一種錯
	_, missErr := svc.Get(context.Background(), owner, primitive.NewObjectID())
	_, otherErr := svc.Get(context.Background(), core.Principal{UserID: "intruder"}, chatID)

	require.Error(t, missErr)
	require.Error(t, otherErr)
	assert.Equal(t, cErr.From(missErr).ErrorCode(), cErr.From(otherErr).ErrorCode())
	assert.Equal(t, cErr.From(missErr).ErrorDesc(), cErr.From(otherErr).ErrorDesc())
}

func TestThreadList_PaginatesOwnThreadsOnly(t *testing.T) {
	store := newFakeThreadStore()
	svc := newTestThreadService(store, newFakeConversation())
	mine := core.Principal{UserID: "user-1"}
	other := core.Principal{UserID: "user-2"}

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), mine, &dto.CreateThreadDto{Provider: core.ProviderOpenAI})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), other, &dto.CreateThreadDto{Provider: core.ProviderOpenAI})
	require.NoError(t, err)

	listed, err := svc.List(context.Background(), mine, core.ListOptions{Page: 1, Size: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(3), listed.Total)
	assert.Len(t, listed.Threads, 2)
	assert.Equal(t, int64(1), listed.Page)
	assert.Equal(t, int64(2), listed.Size)
}

func TestChangeModel_SamePairIsZeroWriteNoop(t *testing.T) {
	store := newFakeThreadStore()
	svc := newTestThreadService(store, newFakeConversation())
	principal := core.Principal{UserID: "user-1"}

	created, err := svc.Create(context.Background(), principal, &dto.CreateThreadDto{Provider: core.ProviderOpenAI})
	require.NoError(t, err)
	chatID, _ := primitive.ObjectIDFromHex(created.ID)

	result, err := svc.ChangeModel(context.Background(), principal, chatID, &dto.UpdateThreadModelDto{
		Provider: created.Provider,
		ModelID:  created.ModelID,
	})

	require.NoError(t, err)
	assert.Equal(t, created.ModelID, result.ModelID)
	assert.Zero(t, store.updateModelCalls, "identical selection must not write")
}

func TestChangeModel_SwitchesProviderAndModelTogether(t *testing.T) {
	store := newFakeThreadStore()
	svc := newTestThreadService(store, newFakeConversation())
	principal := core.Principal{UserID: "user-1"}

	created, err := svc.Create(context.Background(), principal, &dto.CreateThreadDto{Provider: core.ProviderOpenAI})
	require.NoError(t, err)
	chatID, _ := primitive.ObjectIDFromHex(created.ID)

	result, err := svc.ChangeModel(context.Background(), principal, chatID, &dto.UpdateThreadModelDto{
		Provider: core.ProviderAnthropic,
		ModelID:  "claude-sonnet-4-6",
	})

	require.NoError(t, err)
	assert.Equal(t, core.ProviderAnthropic, result.Provider)
	assert.Equal(t, "claude-sonnet-4-6", result.ModelID)
	assert.Equal(t, 1, store.updateModelCalls)

	stored, err := svc.Get(context.Background(), principal, chatID)
	require.NoError(t, err)
	assert.Equal(t, core.ProviderAnthropic, stored.Provider)
	assert.Equal(t, "claude-sonnet-4-6", stored.ModelID)
}

func TestChangeModel_RejectsCatalogViolations(t *testing.T) {
	store := newFakeThreadStore()
	svc := newTestThreadService(store, newFakeConversation())
	principal := core.Principal{UserID: "user-1"}

	created, err := svc.Create(context.Background(), principal, &dto.CreateThreadDto{Provider: core.ProviderOpenAI})
	require.NoError(t, err)
	chatID, _ := primitive.ObjectIDFromHex(created.ID)

	_, err = svc.ChangeModel(context.Background(), principal, chatID, &dto.UpdateThreadModelDto{
		Provider: core.ProviderGoogle,
		ModelID:  "gpt-5-nano", // provider 換了但模型沒跟上
	})

	require.Error(t, err)
	assert.Equal(t, cErr.UNSUPPORTED_MODEL, cErr.From(err).ErrorCode())

	stored, getErr := svc.Get(context.Background(), principal, chatID)
	require.NoError(t, getErr)
	assert.Equal(t, core.ProviderOpenAI, stored.Provider, "rejected change leaves selection untouched")
}

func TestThreadRemove_ThenGetIsNotFound(t *testing.T) {
	store := newFakeThreadStore()
	svc := newTestThreadService(store, newFakeConversation())
	principal := core.Principal{UserID: "user-1"}

	created, err := svc.Create(context.Background(), principal, &dto.CreateThreadDto{Provider: core.ProviderOpenAI})
	require.NoError(t, err)
	chatID, _ := primitive.ObjectIDFromHex(created.ID)

	require.NoError(t, svc.Remove(context.Background(), principal, chatID))

	_, getErr := svc.Get(context.Background(), principal, chatID)
	require.Error(t, getErr)
	assert.Equal(t, cErr.NOT_FOUND, cErr.From(getErr).ErrorCode())
}

func TestThreadUpdateTitle(t *testing.T) {
	store := newFakeThreadStore()
	svc := newTestThreadService(store, newFakeConversation())
	principal := core.Principal{UserID: "user-1"}

	created, err := svc.Create(context.Background(), principal, &dto.CreateThreadDto{Provider: core.ProviderOpenAI})
	require.NoError(t, err)
	chatID, _ := primitive.ObjectIDFromHex(created.ID)

	require.NoError(t, svc.UpdateTitle(context.Background(), principal, chatID, "rust questions"))

	stored, getErr := svc.Get(context.Background(), principal, chatID)
	require.NoError(t, getErr)
	assert.Equal(t, "rust questions", stored.Title)
}
