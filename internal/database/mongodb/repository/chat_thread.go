package repository

import (
	"context"
	"fmt"
	"time"

	"byokchat/internal/core"
	client "byokchat/internal/database/client"
	"byokchat/internal/database/mongodb/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ChatThreadRepository struct {
	collection *mongo.Collection
}

func NewChatThreadRepository(mongoClient *client.MongoClient) *ChatThreadRepository {
	repository := &ChatThreadRepository{
		collection: mongoClient.Client().Database(string(core.MongoDBByokChat)).Collection(string(core.MongoCollectionChats)),
	}
	_ = repository.ensureIndexes(context.Background())
	return repository
}

// 建索引：
// 1) userID + createdAt desc 支援「我的對話、新的在前」分頁
// 2) threadID 支援 janitor 反查 handle 是否仍有 chat 持有
func (repository *ChatThreadRepository) ensureIndexes(contextValue context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userID", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_userID_createdAt_desc"),
		},
		{
			Keys:    bson.D{{Key: "threadID", Value: 1}},
			Options: options.Index().SetName("idx_threadID"),
		},
	}

	_, _ = repository.collection.Indexes().CreateMany(contextValue, models)
	return nil
}

// Create 新增一個對話串
func (repository *ChatThreadRepository) Create(contextValue context.Context, thread *model.ChatThread) (_ *model.ChatThread, returnedError error) {
	nowUTC := time.Now().UTC()
	if thread.ID.IsZero() {
		thread.ID = primitive.NewObjectID()
	}
	thread.CreatedAt = nowUTC
	thread.UpdatedAt = nowUTC

	insertResult, insertError := repository.collection.InsertOne(contextValue, thread)
	if insertError != nil {
		return nil, insertError
	}
	objectID, ok := insertResult.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected InsertedID type: %T", insertResult.InsertedID)
	}
	thread.ID = objectID
	return thread, nil
}

// GetForUser 取回對話串，但僅限持有者。
// 不存在與非本人持有同樣回 mongo.ErrNoDocuments —— 擁有權檢查就發生在 filter 本身。
func (repository *ChatThreadRepository) GetForUser(
	contextValue context.Context,
	chatIdentifier primitive.ObjectID,
	userID string,
) (_ *model.ChatThread, returnedError error) {
	filter := bson.M{
		"_id":    chatIdentifier,
		"userID": userID,
	}
	var thread model.ChatThread
	if findError := repository.collection.FindOne(contextValue, filter).Decode(&thread); findError != nil {
		return nil, findError
	}
	return &thread, nil
}

// GetByID 系統內部查詢（generation worker 用），不做擁有權檢查
func (repository *ChatThreadRepository) GetByID(
	contextValue context.Context,
	chatIdentifier primitive.ObjectID,
) (_ *model.ChatThread, returnedError error) {
	var thread model.ChatThread
	if findError := repository.collection.FindOne(contextValue, bson.M{"_id": chatIdentifier}).Decode(&thread); findError != nil {
		return nil, findError
	}
	return &thread, nil
}

// ListByUser 依建立時間新到舊分頁
func (repository *ChatThreadRepository) ListByUser(
	contextValue context.Context,
	userID string,
	listOptions core.ListOptions,
) (_ []*model.ChatThread, totalCount int64, returnedError error) {
	listOptions = listOptions.Normalize()
	filter := bson.M{"userID": userID}

	totalCount, countError := repository.collection.CountDocuments(contextValue, filter)
	if countError != nil {
		return nil, 0, countError
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((listOptions.Page - 1) * listOptions.Size).
		SetLimit(listOptions.Size)

	cursor, findError := repository.collection.Find(contextValue, filter, findOptions)
	if findError != nil {
		return nil, 0, findError
	}
	defer cursor.Close(contextValue)

	var threads []*model.ChatThread
	if decodeError := cursor.All(contextValue, &threads); decodeError != nil {
		return nil, 0, decodeError
	}
	return threads, totalCount, nil
}

// UpdateTitle 更新標題；filter 同時鎖定持有者，未命中回 mongo.ErrNoDocuments
func (repository *ChatThreadRepository) UpdateTitle(
	contextValue context.Context,
	chatIdentifier primitive.ObjectID,
	userID string,
	title string,
) (returnedError error) {
	filter := bson.M{
		"_id":    chatIdentifier,
		"userID": userID,
	}
	update := bson.M{
		"$set": bson.M{"title": title},
	}

	result, updateError := repository.collection.UpdateOne(contextValue, filter, withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdateModel 單次 UpdateOne 同時改寫 provider 與 modelID（兩者要嘛都提交要嘛都不提交）
func (repository *ChatThreadRepository) UpdateModel(
	contextValue context.Context,
	chatIdentifier primitive.ObjectID,
	userID string,
	providerName core.ProviderName,
	modelID string,
) (returnedError error) {
	filter := bson.M{
		"_id":    chatIdentifier,
		"userID": userID,
	}
	update := bson.M{
		"$set": bson.M{
			"provider": providerName,
			"modelID":  modelID,
		},
	}

	result, updateError := repository.collection.UpdateOne(contextValue, filter, withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete 硬刪除；訊息本體在 agent collaborator，由 janitor 非同步回收
func (repository *ChatThreadRepository) Delete(
	contextValue context.Context,
	chatIdentifier primitive.ObjectID,
	userID string,
) (returnedError error) {
	filter := bson.M{
		"_id":    chatIdentifier,
		"userID": userID,
	}
	result, deleteError := repository.collection.DeleteOne(contextValue, filter)
	if deleteError != nil {
		return deleteError
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ExistsByThreadID janitor 反查：此 agent thread handle 是否仍被任何 chat 持有
func (repository *ChatThreadRepository) ExistsByThreadID(
	contextValue context.Context,
	threadID string,
) (_ bool, returnedError error) {
	count, countError := repository.collection.CountDocuments(
		contextValue,
		bson.M{"threadID": threadID},
		options.Count().SetLimit(1),
	)
	if countError != nil {
		return false, countError
	}
	return count > 0, nil
}
