package service

import (
	"context"
	"errors"
	"testing"

	"byokchat/internal/core"
	"byokchat/internal/database/mongodb/model"
	"byokchat/internal/dto"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/service/llm"
	"byokchat/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generationTestEnv struct {
	*messageTestEnv
	apiKeySvc     *APIKeyService
	resolver      *fakeResolver
	generationSvc *GenerationService
}

func newGenerationTestEnv(t *testing.T) *generationTestEnv {
	t.Helper()
	base := newMessageTestEnv(t)
	env := &generationTestEnv{
		messageTestEnv: base,
		resolver:       &fakeResolver{chunks: []string{"Hello", ", ", "world"}},
	}
	trace := newTestTrace()
	env.apiKeySvc = NewAPIKeyService(trace, newFakeAPIKeyStore(), testLogger)
	env.generationSvc = NewGenerationService(
		trace, telemetry.NewMetric(nil),
		base.store, env.apiKeySvc, base.conversation, env.resolver,
		base.queue, base.guard, nil, newTestConfig(), testLogger,
	)
	return env
}

func (env *generationTestEnv) saveKey(t *testing.T, provider core.ProviderName) {
	t.Helper()
	_, err := env.apiKeySvc.Save(context.Background(), env.principal, &dto.SaveAPIKeyDto{
		Provider: provider,
		Secret:   "sk-test-key-1234567",
	})
	require.NoError(t, err)
}

// 送一則訊息並把佇列裡的那筆工作跑完
func (env *generationTestEnv) sendAndProcess(t *testing.T, prompt string) string {
	t.Helper()
	sent, err := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{Prompt: prompt})
	require.NoError(t, err)

	task, dequeueErr := env.queue.Dequeue(context.Background(), 0)
	require.NoError(t, dequeueErr)
	require.NotNil(t, task)
	env.generationSvc.Process(context.Background(), task)
	return sent.AssistantMessageID
}

func TestProcess_CompletesAssistantMessage(t *testing.T) {
	env := newGenerationTestEnv(t)
	env.saveKey(t, core.ProviderOpenAI)

	assistantID := env.sendAndProcess(t, "say hello")

	sync, err := env.messageSvc.Sync(context.Background(), env.principal, env.chatID, -1, -1)
	require.NoError(t, err)
	require.Len(t, sync.Messages, 2)

	assistant := sync.Messages[1]
	assert.Equal(t, assistantID, assistant.ID)
	assert.Equal(t, string(model.StatusComplete), assistant.Status)
	assert.Equal(t, "Hello, world", assistant.Content)
	assert.Empty(t, sync.StreamDeltas, "deltas are purged once the message is final")

	held, _ := env.guard.IsHeld(context.Background(), env.chatID.Hex())
	assert.False(t, held, "guard is released after processing")
}

func TestProcess_GuardReleasedAllowsNextSend(t *testing.T) {
	env := newGenerationTestEnv(t)
	env.saveKey(t, core.ProviderOpenAI)

	env.sendAndProcess(t, "first")

	_, err := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{Prompt: "second"})
	require.NoError(t, err, "chat accepts new sends once the previous generation is done")
}

func TestProcess_MissingKeyErrorsPlaceholderWithoutSecret(t *testing.T) {
	env := newGenerationTestEnv(t)
	// 不存 key

	env.sendAndProcess(t, "hello")

	sync, err := env.messageSvc.Sync(context.Background(), env.principal, env.chatID, -1, -1)
	require.NoError(t, err)
	assistant := sync.Messages[1]
	assert.Equal(t, string(model.StatusError), assistant.Status)
	assert.Contains(t, assistant.Error, "openai", "error names the provider")
	assert.Contains(t, assistant.Error, "API key")

	held, _ := env.guard.IsHeld(context.Background(), env.chatID.Hex())
	assert.False(t, held)
}

func TestProcess_StreamFailureErrorsPlaceholder(t *testing.T) {
	env := newGenerationTestEnv(t)
	env.saveKey(t, core.ProviderOpenAI)
	// resolver 回的 client 串流會失敗
	env.generationSvc.resolver = &failingResolver{streamErr: errors.New("upstream 500")}

	sent, err := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{Prompt: "hello"})
	require.NoError(t, err)

	task, dequeueErr := env.queue.Dequeue(context.Background(), 0)
	require.NoError(t, dequeueErr)
	env.generationSvc.Process(context.Background(), task)

	sync, syncErr := env.messageSvc.Sync(context.Background(), env.principal, env.chatID, -1, -1)
	require.NoError(t, syncErr)
	assistant := sync.Messages[1]
	assert.Equal(t, sent.AssistantMessageID, assistant.ID)
	assert.Equal(t, string(model.StatusError), assistant.Status)

	held, _ := env.guard.IsHeld(context.Background(), env.chatID.Hex())
	assert.False(t, held)
}

func TestProcess_GenerateFailureNeverLeavesPlaceholderStreaming(t *testing.T) {
	env := newGenerationTestEnv(t)
	env.saveKey(t, core.ProviderOpenAI)
	// 定稿寫入失敗：Generate 回錯但沒能自己標錯佔位訊息
	env.conversation.generateErr = errors.New("finalize write failed")

	assistantID := env.sendAndProcess(t, "hello")

	sync, err := env.messageSvc.Sync(context.Background(), env.principal, env.chatID, -1, -1)
	require.NoError(t, err)
	assistant := sync.Messages[1]
	assert.Equal(t, assistantID, assistant.ID)
	assert.Equal(t, string(model.StatusError), assistant.Status, "placeholder must not be left streaming")
	assert.Contains(t, assistant.Error, "finalize write failed")

	held, _ := env.guard.IsHeld(context.Background(), env.chatID.Hex())
	assert.False(t, held)

	// 佔位訊息有了結局，下一次 send 不會撞出第二則串流中訊息
	env.conversation.generateErr = nil
	_, sendErr := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{Prompt: "again"})
	require.NoError(t, sendErr)

	streaming := 0
	for _, message := range env.conversation.messages[env.queueThreadID()] {
		if message.Status == model.StatusStreaming {
			streaming++
		}
	}
	assert.Equal(t, 1, streaming, "at most one streaming message per chat")
}

func TestProcess_UnsupportedModelErrorsPlaceholder(t *testing.T) {
	env := newGenerationTestEnv(t)
	env.saveKey(t, core.ProviderOpenAI)
	env.generationSvc.resolver = &failingResolver{
		resolveErr: cErr.UnsupportedModel("openai", "gpt-5-nano", core.SupportedModels(core.ProviderOpenAI)),
	}

	env.sendAndProcess(t, "hello")

	sync, err := env.messageSvc.Sync(context.Background(), env.principal, env.chatID, -1, -1)
	require.NoError(t, err)
	assistant := sync.Messages[1]
	assert.Equal(t, string(model.StatusError), assistant.Status)
	assert.Contains(t, assistant.Error, "unsupported model")
}

func TestProcess_DeletedChatMarksPlaceholderErrored(t *testing.T) {
	env := newGenerationTestEnv(t)
	env.saveKey(t, core.ProviderOpenAI)

	sent, err := env.messageSvc.Send(context.Background(), env.principal, env.chatID, &dto.SendMessageDto{Prompt: "hello"})
	require.NoError(t, err)

	// worker 撈到工作前 chat 被刪掉
	require.NoError(t, env.threadSvc.Remove(context.Background(), env.principal, env.chatID))

	task, dequeueErr := env.queue.Dequeue(context.Background(), 0)
	require.NoError(t, dequeueErr)
	env.generationSvc.Process(context.Background(), task)

	result, convErr := env.conversation.Sync(context.Background(), env.queueThreadID(), -1, -1)
	require.NoError(t, convErr)
	var assistantStatus model.MessageStatus
	for _, message := range result.Messages {
		if message.MessageID == sent.AssistantMessageID {
			assistantStatus = message.Status
		}
	}
	assert.Equal(t, model.StatusError, assistantStatus)

	held, _ := env.guard.IsHeld(context.Background(), env.chatID.Hex())
	assert.False(t, held)
}

// queueThreadID fake conversation 只有一個 thread
func (env *generationTestEnv) queueThreadID() string {
	for threadID := range env.conversation.messages {
		return threadID
	}
	return ""
}

// failingResolver 可注入 Resolve 階段或串流階段的失敗
type failingResolver struct {
	resolveErr error
	streamErr  error
}

func (f *failingResolver) Resolve(_ core.ProviderName, _ string, _ string) (llm.Client, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &fakeLLMClient{err: f.streamErr}, nil
}
