package user

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps users in a map. It is used by tests and the CLI's --memory mode.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[primitive.ObjectID]User)}
}

func (s *MemoryStore) Insert(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) Find(_ context.Context, filter Filter) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := []User{}
	for _, u := range s.users {
		if matches(filter, u) {
			users = append(users, u)
		}
	}
	// ObjectIDs start with their creation time, so this is insertion order.
	sort.Slice(users, func(i, j int) bool { return users[i].ID.Hex() < users[j].ID.Hex() })
	return users, nil
}

func (s *MemoryStore) Count(ctx context.Context, filter Filter) (int64, error) {
	users, err := s.Find(ctx, filter)
	return int64(len(users)), err
}

func (s *MemoryStore) Update(_ context.Context, id primitive.ObjectID, fields Fields, updatedAt time.Time) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if fields.Username != nil {
		u.Username = *fields.Username
	}
	if fields.Email != nil {
		u.Email = *fields.Email
	}
	if fields.Password != nil {
		u.Password = *fields.Password
	}
	u.UpdatedAt = updatedAt
	s.users[id] = u
	return &u, nil
}

func (s *MemoryStore) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return 0, nil
	}
	delete(s.users, id)
	return 1, nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[primitive.ObjectID]User)
	return nil
}

func matches(filter Filter, u User) bool {
	if filter.ID != nil && *filter.ID != u.ID {
		return false
	}
	if filter.Username != nil && *filter.Username != u.Username {
		return false
	}
	if filter.Email != nil && *filter.Email != u.Email {
		return false
	}
	return true
}
