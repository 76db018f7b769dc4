// This file contains the MongoStore implementation, which is responsible for interacting with the MongoDB users collection.
// Every method maps onto exactly one collection call; validation and response shaping live in the UserManager.

package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aptlist/users/internal/log"
)

type MongoStore struct {
	collection *mongo.Collection
	logger     *log.Logger
}

// NewMongoStore creates a new instance of MongoStore on the given collection.
func NewMongoStore(collection *mongo.Collection, logger *log.Logger) *MongoStore {
	return &MongoStore{
		collection: collection,
		logger:     logger,
	}
}

// EnsureIndexes creates the lookup indexes used by Find. Usernames are indexed but not unique.
func (ms *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := ms.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (ms *MongoStore) Insert(ctx context.Context, user *User) error {
	if _, err := ms.collection.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	ms.logger.Debugf("Inserted user %s", user.ID.Hex())
	return nil
}

func (ms *MongoStore) Find(ctx context.Context, filter Filter) ([]User, error) {
	cursor, err := ms.collection.Find(ctx, filterDocument(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}

	users := []User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (ms *MongoStore) Count(ctx context.Context, filter Filter) (int64, error) {
	count, err := ms.collection.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (ms *MongoStore) Update(ctx context.Context, id primitive.ObjectID, fields Fields, updatedAt time.Time) (*User, error) {
	set := fieldsDocument(fields)
	set["updated_at"] = updatedAt

	var user User
	err := ms.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %w", ErrUserNotFound, err)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

func (ms *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	result, err := ms.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}
	return result.DeletedCount, nil
}

func (ms *MongoStore) DeleteAll(ctx context.Context) error {
	result, err := ms.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to delete users: %w", err)
	}
	ms.logger.Infof("Deleted %d users", result.DeletedCount)
	return nil
}

func filterDocument(filter Filter) bson.M {
	doc := bson.M{}
	if filter.ID != nil {
		doc["_id"] = *filter.ID
	}
	if filter.Username != nil {
		doc["username"] = *filter.Username
	}
	if filter.Email != nil {
		doc["email"] = *filter.Email
	}
	return doc
}

func fieldsDocument(fields Fields) bson.M {
	doc := bson.M{}
	if fields.Username != nil {
		doc["username"] = *fields.Username
	}
	if fields.Email != nil {
		doc["email"] = *fields.Email
	}
	if fields.Password != nil {
		doc["password"] = *fields.Password
	}
	return doc
}
