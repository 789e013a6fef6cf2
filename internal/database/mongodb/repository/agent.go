package repository

import (
	"context"
	"time"

	"byokchat/internal/core"
	client "byokchat/internal/database/client"
	"byokchat/internal/database/mongodb/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AgentRepository 包辦 agent collaborator 的三個集合（threads / messages / stream deltas）。
// 只供 internal/agent 套件使用。
type AgentRepository struct {
	threads  *mongo.Collection
	messages *mongo.Collection
	deltas   *mongo.Collection
}

func NewAgentRepository(mongoClient *client.MongoClient) *AgentRepository {
	database := mongoClient.Client().Database(string(core.MongoDBByokChat))
	repository := &AgentRepository{
		threads:  database.Collection(string(core.MongoCollectionAgentThreads)),
		messages: database.Collection(string(core.MongoCollectionAgentMessages)),
		deltas:   database.Collection(string(core.MongoCollectionAgentStreamDeltas)),
	}
	_ = repository.ensureIndexes(context.Background())
	return repository
}

func (repository *AgentRepository) ensureIndexes(contextValue context.Context) error {
	threadModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "threadID", Value: 1}},
			Options: options.Index().SetName("uniq_threadID").SetUnique(true),
		},
	}
	messageModels := []mongo.IndexModel{
		{
			// (threadID, seq) 唯一且是 sync 的讀取路徑
			Keys: bson.D{
				{Key: "threadID", Value: 1},
				{Key: "seq", Value: 1},
			},
			Options: options.Index().SetName("uniq_threadID_seq").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "messageID", Value: 1}},
			Options: options.Index().SetName("uniq_messageID").SetUnique(true),
		},
	}
	deltaModels := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "messageID", Value: 1},
				{Key: "index", Value: 1},
			},
			Options: options.Index().SetName("uniq_messageID_index").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "threadID", Value: 1}},
			Options: options.Index().SetName("idx_threadID"),
		},
	}

	_, _ = repository.threads.Indexes().CreateMany(contextValue, threadModels)
	_, _ = repository.messages.Indexes().CreateMany(contextValue, messageModels)
	_, _ = repository.deltas.Indexes().CreateMany(contextValue, deltaModels)
	return nil
}

// CreateThread 建立一個新 thread，NextSeq 從 0 起算
func (repository *AgentRepository) CreateThread(
	contextValue context.Context,
	threadID string,
	userID string,
) (returnedError error) {
	nowUTC := time.Now().UTC()
	_, returnedError = repository.threads.InsertOne(contextValue, &model.AgentThread{
		ID:        primitive.NewObjectID(),
		ThreadID:  threadID,
		UserID:    userID,
		NextSeq:   0,
		CreatedAt: nowUTC,
		UpdatedAt: nowUTC,
	})
	return returnedError
}

// NextSeq 原子配發下一個序號。同 thread 併發呼叫各拿到不同序號。
func (repository *AgentRepository) NextSeq(
	contextValue context.Context,
	threadID string,
) (_ int64, returnedError error) {
	filter := bson.M{"threadID": threadID}
	update := withUpdatedAt(bson.M{
		"$inc": bson.M{"nextSeq": int64(1)},
	})

	var thread model.AgentThread
	// ReturnDocument Before：回傳遞增前的值，即本次配發到的序號
	findError := repository.threads.FindOneAndUpdate(
		contextValue,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&thread)
	if findError != nil {
		return 0, findError
	}
	return thread.NextSeq, nil
}

// InsertMessage 寫入一則訊息。assistant 訊息以 status=streaming 先建檔，
// 任何 delta 都必須晚於這筆建檔，sync 才不會看到沒有母訊息的 delta。
func (repository *AgentRepository) InsertMessage(
	contextValue context.Context,
	message *model.AgentMessage,
) (returnedError error) {
	nowUTC := time.Now().UTC()
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	message.CreatedAt = nowUTC
	message.UpdatedAt = nowUTC
	_, returnedError = repository.messages.InsertOne(contextValue, message)
	return returnedError
}

// FinalizeMessage 定稿訊息內容並標記 complete
func (repository *AgentRepository) FinalizeMessage(
	contextValue context.Context,
	messageID string,
	content string,
) (returnedError error) {
	update := bson.M{
		"$set": bson.M{
			"content": content,
			"status":  model.StatusComplete,
		},
	}
	result, updateError := repository.messages.UpdateOne(contextValue, bson.M{"messageID": messageID}, withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkMessageError 生成失敗時保留已產出的部分內容並記錄原因。
// 只針對仍在串流中的訊息生效：已定稿或已標錯的訊息不覆寫，重複呼叫是冪等的。
func (repository *AgentRepository) MarkMessageError(
	contextValue context.Context,
	messageID string,
	partialContent string,
	errorDesc string,
) (returnedError error) {
	filter := bson.M{
		"messageID": messageID,
		"status":    model.StatusStreaming,
	}
	update := bson.M{
		"$set": bson.M{
			"content":   partialContent,
			"status":    model.StatusError,
			"errorDesc": errorDesc,
		},
	}
	_, returnedError = repository.messages.UpdateOne(contextValue, filter, withUpdatedAt(update))
	return returnedError
}

// AppendDelta 追加一個串流片段，index 由呼叫端在單一 writer 內遞增
func (repository *AgentRepository) AppendDelta(
	contextValue context.Context,
	delta *model.AgentStreamDelta,
) (returnedError error) {
	if delta.ID.IsZero() {
		delta.ID = primitive.NewObjectID()
	}
	delta.CreatedAt = time.Now().UTC()
	_, returnedError = repository.deltas.InsertOne(contextValue, delta)
	return returnedError
}

// ListMessagesAfter 取出 seq 大於 afterSeq 的訊息，seq 升冪
func (repository *AgentRepository) ListMessagesAfter(
	contextValue context.Context,
	threadID string,
	afterSeq int64,
) (_ []*model.AgentMessage, returnedError error) {
	filter := bson.M{
		"threadID": threadID,
		"seq":      bson.M{"$gt": afterSeq},
	}
	cursor, findError := repository.messages.Find(
		contextValue,
		filter,
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var messages []*model.AgentMessage
	if decodeError := cursor.All(contextValue, &messages); decodeError != nil {
		return nil, decodeError
	}
	return messages, nil
}

// ListDeltasAfter 取出某訊息 index 大於 afterIndex 的片段，index 升冪
func (repository *AgentRepository) ListDeltasAfter(
	contextValue context.Context,
	messageID string,
	afterIndex int64,
) (_ []*model.AgentStreamDelta, returnedError error) {
	filter := bson.M{
		"messageID": messageID,
		"index":     bson.M{"$gt": afterIndex},
	}
	cursor, findError := repository.deltas.Find(
		contextValue,
		filter,
		options.Find().SetSort(bson.D{{Key: "index", Value: 1}}),
	)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var deltas []*model.AgentStreamDelta
	if decodeError := cursor.All(contextValue, &deltas); decodeError != nil {
		return nil, decodeError
	}
	return deltas, nil
}

// ListStreamingMessages 回傳 thread 內仍在串流中的訊息（sync 會連同其 delta 一起回）
func (repository *AgentRepository) ListStreamingMessages(
	contextValue context.Context,
	threadID string,
) (_ []*model.AgentMessage, returnedError error) {
	filter := bson.M{
		"threadID": threadID,
		"status":   model.StatusStreaming,
	}
	cursor, findError := repository.messages.Find(
		contextValue,
		filter,
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var messages []*model.AgentMessage
	if decodeError := cursor.All(contextValue, &messages); decodeError != nil {
		return nil, decodeError
	}
	return messages, nil
}

// DeleteDeltasForMessage 訊息定稿後回收其 delta
func (repository *AgentRepository) DeleteDeltasForMessage(
	contextValue context.Context,
	messageID string,
) (deletedCount int64, returnedError error) {
	result, deleteError := repository.deltas.DeleteMany(contextValue, bson.M{"messageID": messageID})
	if deleteError != nil {
		return 0, deleteError
	}
	return result.DeletedCount, nil
}

// ListThreadIDs janitor 掃描用：分批列出所有 thread handle
func (repository *AgentRepository) ListThreadIDs(
	contextValue context.Context,
	afterObjectID primitive.ObjectID,
	limit int64,
) (threadIDs []string, lastObjectID primitive.ObjectID, returnedError error) {
	filter := bson.M{}
	if !afterObjectID.IsZero() {
		filter["_id"] = bson.M{"$gt": afterObjectID}
	}
	cursor, findError := repository.threads.Find(
		contextValue,
		filter,
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(limit),
	)
	if findError != nil {
		return nil, primitive.NilObjectID, findError
	}
	defer cursor.Close(contextValue)

	var threads []*model.AgentThread
	if decodeError := cursor.All(contextValue, &threads); decodeError != nil {
		return nil, primitive.NilObjectID, decodeError
	}
	lastObjectID = afterObjectID
	for _, thread := range threads {
		threadIDs = append(threadIDs, thread.ThreadID)
		lastObjectID = thread.ID
	}
	return threadIDs, lastObjectID, nil
}

// ListFinalizedMessageIDsWithDeltas janitor 用：找出已定稿但 delta 尚未回收的訊息
func (repository *AgentRepository) ListFinalizedMessageIDsWithDeltas(
	contextValue context.Context,
	limit int64,
) (messageIDs []string, returnedError error) {
	// 先取 distinct messageID，再反查訊息狀態
	rawIdentifiers, distinctError := repository.deltas.Distinct(contextValue, "messageID", bson.M{})
	if distinctError != nil {
		return nil, distinctError
	}

	for _, rawIdentifier := range rawIdentifiers {
		messageID, ok := rawIdentifier.(string)
		if !ok {
			continue
		}
		var message model.AgentMessage
		findError := repository.messages.FindOne(contextValue, bson.M{"messageID": messageID}).Decode(&message)
		if findError == mongo.ErrNoDocuments {
			// 母訊息已不存在，delta 一樣該回收
			messageIDs = append(messageIDs, messageID)
			continue
		}
		if findError != nil {
			return nil, findError
		}
		if message.Status != model.StatusStreaming {
			messageIDs = append(messageIDs, messageID)
		}
		if limit > 0 && int64(len(messageIDs)) >= limit {
			break
		}
	}
	return messageIDs, nil
}

// DeleteThreadData janitor 用：整串回收 thread、訊息與 delta
func (repository *AgentRepository) DeleteThreadData(
	contextValue context.Context,
	threadID string,
) (returnedError error) {
	if _, deleteError := repository.deltas.DeleteMany(contextValue, bson.M{"threadID": threadID}); deleteError != nil {
		return deleteError
	}
	if _, deleteError := repository.messages.DeleteMany(contextValue, bson.M{"threadID": threadID}); deleteError != nil {
		return deleteError
	}
	_, returnedError = repository.threads.DeleteMany(contextValue, bson.M{"threadID": threadID})
	return returnedError
}
