package service

import (
	"context"
	"errors"
	"testing"

	"byokchat/internal/core"
	"byokchat/internal/database/mongodb/model"
	"byokchat/internal/dto"
	cErr "byokchat/internal/pkg/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type messageTestEnv struct {
	threadSvc    *ThreadService
	messageSvc   *MessageService
	store        *fakeThreadStore
	conversation *fakeConversation
	queue        *fakeQueue
	guard        *fakeGuard
	principal    core.Principal
	chatID       primitive.ObjectID
}

func newMessageTestEnv(t *testing.T) *messageTestEnv {
	t.Helper()
	env := &messageTestEnv{
		store:        newFakeThreadStore(),
		conversation: newFakeConversation(),
		queue:        &fakeQueue{},
		guard:        newFakeGuard(),
		principal:    core.Principal{UserID: "user-1"},
	}
	trace := newTestTrace()
	env.threadSvc = NewThreadService(trace, env.store, env.conversation, testLogger)
	env.messageSvc = NewMessageService(trace, env.store, env.conversation, env.queue, env.guard, newTestConfig(), testLogger)

	created, err := env.threadSvc.Create(context.Background(), env.principal, &dto.CreateThreadDto{
		Provider: core.ProviderOpenAI,
	})
	require.NoError(t, err)
	env.chatID, _ = primitive.ObjectIDFromHex(created.ID)
	return env
}

func TestSend_PersistsPairAndEnqueues(t *testing.T) {
	env := newMessageTestEnv(t)

	sent, err := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{
		Prompt: "  hello there  ",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, sent.UserMessageID)
	assert.NotEmpty(t, sent.AssistantMessageID)
	assert.NotEqual(t, sent.UserMessageID, sent.AssistantMessageID)

	depth, _ := env.queue.Depth(context.Background())
	assert.Equal(t, int64(1), depth)
	assert.Equal(t, sent.AssistantMessageID, env.queue.tasks[0].MessageID)

	held, _ := env.guard.IsHeld(context.Background(), env.chatID.Hex())
	assert.True(t, held, "guard stays held until the worker finishes")
}

func TestSend_EmptyPromptRejectedBeforeAnySideEffect(t *testing.T) {
	env := newMessageTestEnv(t)

	_, err := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{
		Prompt: "   \n ",
	})

	require.Error(t, err)
	assert.Equal(t, cErr.BAD_REQUEST_BODY, cErr.From(err).ErrorCode())
	held, _ := env.guard.IsHeld(context.Background(), env.chatID.Hex())
	assert.False(t, held)
	depth, _ := env.queue.Depth(context.Background())
	assert.Zero(t, depth)
}

func TestSend_SecondSendWhileInFlightIs429(t *testing.T) {
	env := newMessageTestEnv(t)

	_, err := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{Prompt: "first"})
	require.NoError(t, err)

	_, err = env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{Prompt: "second"})

	require.Error(t, err)
	appErr := cErr.From(err)
	assert.Equal(t, cErr.GENERATION_IN_FLIGHT, appErr.ErrorCode())
	assert.Equal(t, 429, appErr.HttpCode())

	depth, _ := env.queue.Depth(context.Background())
	assert.Equal(t, int64(1), depth, "blocked send must not enqueue")
}

func TestSend_SubmitFailureReleasesGuard(t *testing.T) {
	env := newMessageTestEnv(t)
	env.conversation.submitErr = errors.New("mongo down")

	_, err := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{Prompt: "hello"})

	require.Error(t, err)
	held, _ := env.guard.IsHeld(context.Background(), env.chatID.Hex())
	assert.False(t, held, "failed submit must not leave the chat locked")
}

func TestSend_EnqueueFailureMarksPlaceholderAndReleases(t *testing.T) {
	env := newMessageTestEnv(t)
	env.queue.enqueueErr = errors.New("redis down")

	_, err := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{Prompt: "hello"})

	require.Error(t, err)
	held, _ := env.guard.IsHeld(context.Background(), env.chatID.Hex())
	assert.False(t, held)

	sync, syncErr := env.messageSvc.Sync(context.Background(), env.principal, env.chatID, -1, -1)
	require.NoError(t, syncErr)
	require.Len(t, sync.Messages, 2)
	assistant := sync.Messages[1]
	assert.Equal(t, string(model.RoleAssistant), assistant.Role)
	assert.Equal(t, string(model.StatusError), assistant.Status)
	assert.NotEmpty(t, assistant.Error)
}

func TestSend_OtherUsersChatIsNotFound(t *testing.T) {
	env := newMessageTestEnv(t)

	_, err := env.messageSvc.Send(context.Background(), core.Principal{UserID: "intruder"}, env.chatID, &dto.SendMessageDto{
		Prompt: "hello",
	})

	require.Error(t, err)
	assert.Equal(t, cErr.NOT_FOUND, cErr.From(err).ErrorCode())
}

func TestSync_PlaceholderPrecedesDeltas(t *testing.T) {
	env := newMessageTestEnv(t)

	sent, err := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{Prompt: "hi"})
	require.NoError(t, err)

	// 送出後立刻同步：佔位訊息已可見，尚無任何 delta
	sync, syncErr := env.messageSvc.Sync(context.Background(), env.principal, env.chatID, -1, -1)
	require.NoError(t, syncErr)
	require.Len(t, sync.Messages, 2)

	user, assistant := sync.Messages[0], sync.Messages[1]
	assert.Equal(t, string(model.RoleUser), user.Role)
	assert.Equal(t, "hi", user.Content)
	assert.Equal(t, string(model.StatusComplete), user.Status)

	assert.Equal(t, sent.AssistantMessageID, assistant.ID)
	assert.Equal(t, string(model.RoleAssistant), assistant.Role)
	assert.Equal(t, string(model.StatusStreaming), assistant.Status)
	assert.Empty(t, assistant.Content)
	assert.Greater(t, assistant.Seq, user.Seq, "sequence preserves send order")

	assert.Empty(t, sync.StreamDeltas)
}

func TestSync_IncrementalCursorSkipsSeen(t *testing.T) {
	env := newMessageTestEnv(t)

	_, err := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{Prompt: "hi"})
	require.NoError(t, err)

	first, syncErr := env.messageSvc.Sync(context.Background(), env.principal, env.chatID, -1, -1)
	require.NoError(t, syncErr)
	require.Len(t, first.Messages, 2)
	lastSeq := first.Messages[len(first.Messages)-1].Seq

	second, syncErr := env.messageSvc.Sync(context.Background(), env.principal, env.chatID, lastSeq, -1)
	require.NoError(t, syncErr)
	assert.Empty(t, second.Messages, "everything before the cursor is already seen")
}
