package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"byokchat/config"
	"byokchat/internal/agent"
	"byokchat/internal/core"
	"byokchat/internal/database/mongodb/model"
	redisDb "byokchat/internal/database/redis/repository"
	"byokchat/internal/service/llm"
	"byokchat/internal/telemetry"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// 記憶體替身：行為對齊 Mongo / Redis repository 的合約，
// 特別是 GetForUser 的「不存在與非本人一律 ErrNoDocuments」。

func newTestTrace() *telemetry.Trace {
	trace, _ := telemetry.NewTrace(nil)
	return trace
}

func newTestConfig() *config.Configuration {
	conf := &config.Configuration{}
	conf.App.SecretKey = "test-secret"
	conf.Generation.Workers = 1
	conf.Generation.LockTTLSeconds = 120
	conf.Generation.RequestTimeoutSeconds = 30
	return conf
}

type fakeAPIKeyStore struct {
	mu   sync.Mutex
	keys map[string]*model.APIKey // userID + "/" + provider
}

func newFakeAPIKeyStore() *fakeAPIKeyStore {
	return &fakeAPIKeyStore{keys: map[string]*model.APIKey{}}
}

func apiKeyKey(userID string, provider core.ProviderName) string {
	return userID + "/" + string(provider)
}

func (f *fakeAPIKeyStore) Upsert(_ context.Context, userID string, provider core.ProviderName, secretValue string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.keys[apiKeyKey(userID, provider)]
	if ok {
		existing.Secret = secretValue
		existing.UpdatedAt = time.Now()
		return existing.ID.Hex(), nil
	}
	key := &model.APIKey{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Provider:  provider,
		Secret:    secretValue,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.keys[apiKeyKey(userID, provider)] = key
	return key.ID.Hex(), nil
}

func (f *fakeAPIKeyStore) GetByUserProvider(_ context.Context, userID string, provider core.ProviderName) (*model.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[apiKeyKey(userID, provider)], nil
}

func (f *fakeAPIKeyStore) ListByUser(_ context.Context, userID string) ([]*model.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.APIKey
	for _, key := range f.keys {
		if key.UserID == userID {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (f *fakeAPIKeyStore) Delete(_ context.Context, userID string, provider core.ProviderName) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, apiKeyKey(userID, provider))
	return nil
}

type fakeThreadStore struct {
	mu      sync.Mutex
	threads map[primitive.ObjectID]*model.ChatThread

	updateModelCalls int
}

func newFakeThreadStore() *fakeThreadStore {
	return &fakeThreadStore{threads: map[primitive.ObjectID]*model.ChatThread{}}
}

func (f *fakeThreadStore) Create(_ context.Context, thread *model.ChatThread) (*model.ChatThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *thread
	stored.ID = primitive.NewObjectID()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.threads[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeThreadStore) GetForUser(_ context.Context, chatID primitive.ObjectID, userID string) (*model.ChatThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	thread, ok := f.threads[chatID]
	if !ok || thread.UserID != userID {
		return nil, mongo.ErrNoDocuments
	}
	copied := *thread
	return &copied, nil
}

func (f *fakeThreadStore) GetByID(_ context.Context, chatID primitive.ObjectID) (*model.ChatThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	thread, ok := f.threads[chatID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *thread
	return &copied, nil
}

func (f *fakeThreadStore) ListByUser(_ context.Context, userID string, opts core.ListOptions) ([]*model.ChatThread, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var owned []*model.ChatThread
	for _, thread := range f.threads {
		if thread.UserID == userID {
			copied := *thread
			owned = append(owned, &copied)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	total := int64(len(owned))
	opts = opts.Normalize()
	start := (opts.Page - 1) * opts.Size
	if start >= total {
		return nil, total, nil
	}
	end := start + opts.Size
	if end > total {
		end = total
	}
	return owned[start:end], total, nil
}

func (f *fakeThreadStore) UpdateTitle(_ context.Context, chatID primitive.ObjectID, userID string, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	thread, ok := f.threads[chatID]
	if !ok || thread.UserID != userID {
		return mongo.ErrNoDocuments
	}
	thread.Title = title
	thread.UpdatedAt = time.Now()
	return nil
}

func (f *fakeThreadStore) UpdateModel(_ context.Context, chatID primitive.ObjectID, userID string, provider core.ProviderName, modelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateModelCalls++
	thread, ok := f.threads[chatID]
	if !ok || thread.UserID != userID {
		return mongo.ErrNoDocuments
	}
	thread.Provider = provider
	thread.ModelID = modelID
	thread.UpdatedAt = time.Now()
	return nil
}

func (f *fakeThreadStore) Delete(_ context.Context, chatID primitive.ObjectID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	thread, ok := f.threads[chatID]
	if !ok || thread.UserID != userID {
		return mongo.ErrNoDocuments
	}
	delete(f.threads, chatID)
	return nil
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []redisDb.GenerationTask

	enqueueErr error
}

func (f *fakeQueue) Enqueue(_ context.Context, task redisDb.GenerationTask) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeQueue) Dequeue(_ context.Context, _ time.Duration) (*redisDb.GenerationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tasks) == 0 {
		return nil, nil
	}
	task := f.tasks[0]
	f.tasks = f.tasks[1:]
	return &task, nil
}

func (f *fakeQueue) Depth(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.tasks)), nil
}

type fakeGuard struct {
	mu    sync.Mutex
	locks map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{locks: map[string]bool{}}
}

func (f *fakeGuard) Acquire(_ context.Context, chatID string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[chatID] {
		return false, nil
	}
	f.locks[chatID] = true
	return true, nil
}

func (f *fakeGuard) Release(_ context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, chatID)
	return nil
}

func (f *fakeGuard) IsHeld(_ context.Context, chatID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locks[chatID], nil
}

// fakeConversation 記憶體版 agent collaborator，
// 維持「佔位訊息先於任何 delta」與 seq 全序兩條合約。
type fakeConversation struct {
	mu       sync.Mutex
	nextSeq  map[string]int64
	messages map[string][]*model.AgentMessage // threadID -> messages
	deltas   map[string][]*model.AgentStreamDelta
	byID     map[string]*model.AgentMessage

	submitErr error
	// 模擬定稿寫入失敗：Generate 回錯且佔位訊息停在 streaming
	generateErr error
}

func newFakeConversation() *fakeConversation {
	return &fakeConversation{
		nextSeq:  map[string]int64{},
		messages: map[string][]*model.AgentMessage{},
		deltas:   map[string][]*model.AgentStreamDelta{},
		byID:     map[string]*model.AgentMessage{},
	}
}

func (f *fakeConversation) CreateThread(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	threadID := fmt.Sprintf("thread-%d", len(f.nextSeq)+1)
	f.nextSeq[threadID] = 0
	return threadID, nil
}

func (f *fakeConversation) SubmitMessage(_ context.Context, threadID string, prompt string) (string, string, error) {
	if f.submitErr != nil {
		return "", "", f.submitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	user := f.appendMessageLocked(threadID, model.RoleUser, prompt, model.StatusComplete)
	assistant := f.appendMessageLocked(threadID, model.RoleAssistant, "", model.StatusStreaming)
	return user.MessageID, assistant.MessageID, nil
}

func (f *fakeConversation) appendMessageLocked(threadID string, role model.MessageRole, content string, status model.MessageStatus) *model.AgentMessage {
	seq := f.nextSeq[threadID]
	f.nextSeq[threadID] = seq + 1
	message := &model.AgentMessage{
		ID:        primitive.NewObjectID(),
		MessageID: fmt.Sprintf("%s-msg-%d", threadID, seq),
		ThreadID:  threadID,
		Seq:       seq,
		Role:      role,
		Content:   content,
		Status:    status,
		CreatedAt: time.Now(),
	}
	f.messages[threadID] = append(f.messages[threadID], message)
	f.byID[message.MessageID] = message
	return message
}

func (f *fakeConversation) Generate(ctx context.Context, threadID string, assistantMessageID string, stream agent.StreamFunc) error {
	if f.generateErr != nil {
		return f.generateErr
	}
	f.mu.Lock()
	var history []agent.Turn
	for _, message := range f.messages[threadID] {
		if message.Status == model.StatusComplete {
			history = append(history, agent.Turn{Role: message.Role, Content: message.Content})
		}
	}
	f.mu.Unlock()

	var index int64
	finalText, streamError := stream(ctx, history, func(content string) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deltas[assistantMessageID] = append(f.deltas[assistantMessageID], &model.AgentStreamDelta{
			ThreadID:  threadID,
			MessageID: assistantMessageID,
			Index:     index,
			Content:   content,
		})
		index++
		return nil
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	message := f.byID[assistantMessageID]
	if streamError != nil {
		message.Status = model.StatusError
		message.ErrorDesc = streamError.Error()
		delete(f.deltas, assistantMessageID)
		return streamError
	}
	message.Content = finalText
	message.Status = model.StatusComplete
	delete(f.deltas, assistantMessageID)
	return nil
}

func (f *fakeConversation) MarkErrored(_ context.Context, assistantMessageID string, errorDesc string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	message, ok := f.byID[assistantMessageID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	// 對齊 repository 合約：只有串流中的訊息可標錯，重複呼叫冪等
	if message.Status != model.StatusStreaming {
		return nil
	}
	message.Status = model.StatusError
	message.ErrorDesc = errorDesc
	return nil
}

func (f *fakeConversation) Sync(_ context.Context, threadID string, afterSeq int64, streamAfterIndex int64) (*agent.SyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := &agent.SyncResult{}
	for _, message := range f.messages[threadID] {
		if message.Seq > afterSeq {
			copied := *message
			result.Messages = append(result.Messages, &copied)
		}
		if message.Status == model.StatusStreaming {
			for _, delta := range f.deltas[message.MessageID] {
				if delta.Index > streamAfterIndex {
					copied := *delta
					result.StreamDeltas = append(result.StreamDeltas, &copied)
				}
			}
		}
	}
	return result, nil
}

// fakeResolver 固定回放一段文字，或直接回錯
type fakeResolver struct {
	chunks []string
	err    error
}

func (f *fakeResolver) Resolve(_ core.ProviderName, _ string, _ string) (llm.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fakeLLMClient{chunks: f.chunks}, nil
}

type fakeLLMClient struct {
	chunks []string
	err    error
}

func (f *fakeLLMClient) StreamText(_ context.Context, _ *llm.StreamRequest, onDelta func(string) error) (*llm.StreamResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	var full string
	for _, chunk := range f.chunks {
		if err := onDelta(chunk); err != nil {
			return nil, err
		}
		full += chunk
	}
	return &llm.StreamResult{Text: full}, nil
}

var testLogger = zap.NewNop()
