package user

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CollectionName is the MongoDB collection users are stored in.
const CollectionName = "users"

// Store is the collection-level persistence used by UserManager. Each method is a single
// call against the backing collection.
type Store interface {
	// Insert stores a new user. The user's ID must already be set.
	Insert(ctx context.Context, user *User) error
	// Find returns every user matching filter, never nil.
	Find(ctx context.Context, filter Filter) ([]User, error)
	// Count returns the number of users matching filter.
	Count(ctx context.Context, filter Filter) (int64, error)
	// Update sets fields and updatedAt on the user with the given ID and returns the updated user.
	// Returns ErrUserNotFound if no user has that ID.
	Update(ctx context.Context, id primitive.ObjectID, fields Fields, updatedAt time.Time) (*User, error)
	// Delete removes the user with the given ID and returns how many documents were deleted.
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	// DeleteAll empties the collection.
	DeleteAll(ctx context.Context) error
}
