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

type APIKeyRepository struct {
	collection *mongo.Collection
}

func NewAPIKeyRepository(mongoClient *client.MongoClient) *APIKeyRepository {
	repository := &APIKeyRepository{
		collection: mongoClient.Client().Database(string(core.MongoDBByokChat)).Collection(string(core.MongoCollectionAPIKeys)),
	}
	_ = repository.ensureIndexes(context.Background())
	return repository
}

// 建索引：
// 1) userID+provider 唯一（每人每 provider 至多一把 key，upsert 的前提）
// 2) userID 加速 list
func (repository *APIKeyRepository) ensureIndexes(contextValue context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userID", Value: 1},
				{Key: "provider", Value: 1},
			},
			Options: options.Index().SetName("uniq_userID_provider").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userID", Value: 1}},
			Options: options.Index().SetName("idx_userID"),
		},
	}

	// 索引已存在時不視為致命
	_, _ = repository.collection.Indexes().CreateMany(contextValue, models)
	return nil
}

// Upsert 儲存（覆寫）一把 key；回傳該筆的 ObjectID
func (repository *APIKeyRepository) Upsert(
	contextValue context.Context,
	userID string,
	providerName core.ProviderName,
	secretValue string,
) (_ string, returnedError error) {
	nowUTC := time.Now().UTC()
	filter := bson.M{
		"userID":   userID,
		"provider": providerName,
	}
	update := bson.M{
		"$set": bson.M{
			"secret": secretValue,
		},
		// userID/provider 由 filter 的等值條件帶入新文件，這裡只補 createdAt
		"$setOnInsert": bson.M{
			"createdAt": nowUTC,
		},
	}
	opts := options.Update().SetUpsert(true)

	result, updateError := repository.collection.UpdateOne(contextValue, filter, withUpdatedAt(update), opts)
	if updateError != nil {
		return "", updateError
	}

	if result.UpsertedID != nil {
		objectID, ok := result.UpsertedID.(primitive.ObjectID)
		if !ok {
			return "", fmt.Errorf("unexpected UpsertedID type: %T", result.UpsertedID)
		}
		return objectID.Hex(), nil
	}

	// 覆寫既有紀錄：撈回 _id
	existing, getError := repository.GetByUserProvider(contextValue, userID, providerName)
	if getError != nil {
		return "", getError
	}
	if existing == nil {
		return "", mongo.ErrNoDocuments
	}
	return existing.ID.Hex(), nil
}

// GetByUserProvider 取回指定 (userID, provider) 的 key；不存在回 nil, nil
func (repository *APIKeyRepository) GetByUserProvider(
	contextValue context.Context,
	userID string,
	providerName core.ProviderName,
) (_ *model.APIKey, returnedError error) {
	filter := bson.M{
		"userID":   userID,
		"provider": providerName,
	}
	var apiKey model.APIKey
	findError := repository.collection.FindOne(contextValue, filter).Decode(&apiKey)
	if findError == mongo.ErrNoDocuments {
		return nil, nil
	}
	if findError != nil {
		return nil, findError
	}
	return &apiKey, nil
}

// ListByUser 取回一位使用者的所有 key（provider 排序，list 輸出穩定）
func (repository *APIKeyRepository) ListByUser(
	contextValue context.Context,
	userID string,
) (_ []*model.APIKey, returnedError error) {
	filter := bson.M{"userID": userID}
	opts := options.Find().SetSort(bson.D{{Key: "provider", Value: 1}})

	cursor, findError := repository.collection.Find(contextValue, filter, opts)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var apiKeys []*model.APIKey
	if decodeError := cursor.All(contextValue, &apiKeys); decodeError != nil {
		return nil, decodeError
	}
	return apiKeys, nil
}

// Delete 刪除指定 (userID, provider) 的 key；不存在時為 no-op
func (repository *APIKeyRepository) Delete(
	contextValue context.Context,
	userID string,
	providerName core.ProviderName,
) (returnedError error) {
	filter := bson.M{
		"userID":   userID,
		"provider": providerName,
	}
	_, deleteError := repository.collection.DeleteOne(contextValue, filter)
	return deleteError
}
