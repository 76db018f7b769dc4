package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aptlist/users/internal/log"
	"github.com/aptlist/users/internal/models/user"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) recorded() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func ptr(s string) *string { return &s }

func newTestService(t *testing.T, events EventPublisher) *UserService {
	t.Helper()
	logger := log.Wrap(zaptest.NewLogger(t))
	um := user.NewUserManager(user.NewMemoryStore(), user.NewPBKDF2Hasher("test-pepper", 1000), logger)
	return NewUserService(um, events, logger)
}

func testRegistration(username string) user.Registration {
	return user.Registration{
		Username:  ptr(username),
		Email:     ptr(username + "@example.com"),
		Password:  ptr("unhashedpassword"),
		CPassword: ptr("unhashedpassword"),
	}
}

func wait(t *testing.T, task *Task) Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := task.Wait(ctx)
	require.NoError(t, err)
	return resp
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("callback receives the user", func(t *testing.T) {
		events := &recordingPublisher{}
		s := newTestService(t, events)

		var got Response
		resp := wait(t, s.Register(ctx, testRegistration("bob"), func(r Response) { got = r }))

		require.True(t, resp.OK())
		require.NotNil(t, resp.Data)
		require.Len(t, resp.Data.Users, 1)
		assert.Equal(t, "bob", resp.Data.Users[0].Username)
		assert.Equal(t, resp, got)

		hashed, err := s.HashPW("unhashedpassword")
		require.NoError(t, err)
		assert.Equal(t, hashed, resp.Data.Users[0].Password)

		recorded := events.recorded()
		require.Len(t, recorded, 1)
		assert.Equal(t, EventUserRegistered, recorded[0].Type)
		assert.Equal(t, resp.Data.Users[0].ID.Hex(), recorded[0].UserID)
	})

	t.Run("validation error", func(t *testing.T) {
		events := &recordingPublisher{}
		s := newTestService(t, events)
		reg := testRegistration("bob")
		reg.Email = nil

		resp := wait(t, s.Register(ctx, reg, nil))
		require.Error(t, resp.Error)
		assert.Equal(t, "Bad request: email field is missing", resp.Error.Error())
		assert.Equal(t, "ValidationError", resp.ErrorName())
		assert.Nil(t, resp.Data)
		assert.Empty(t, events.recorded())
	})

	t.Run("no callback does not panic", func(t *testing.T) {
		s := newTestService(t, nil)

		assert.NotPanics(t, func() {
			s.Register(ctx, testRegistration("bob"), nil)
		})
		s.Wait()

		resp := wait(t, s.Find(ctx, user.Criteria{}, nil))
		assert.Len(t, resp.Data.Users, 1)
	})

	t.Run("publish failure does not fail the operation", func(t *testing.T) {
		s := newTestService(t, &recordingPublisher{err: errors.New("broker down")})

		resp := wait(t, s.Register(ctx, testRegistration("bob"), nil))
		assert.True(t, resp.OK())
	})
}

func TestUserService_Find(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)
	wait(t, s.Register(ctx, testRegistration("bob"), nil))
	wait(t, s.Register(ctx, testRegistration("james"), nil))

	resp := wait(t, s.Find(ctx, user.Criteria{}, nil))
	require.True(t, resp.OK())
	assert.Len(t, resp.Data.Users, 2)

	resp = wait(t, s.Find(ctx, user.Criteria{Username: ptr("james")}, nil))
	require.Len(t, resp.Data.Users, 1)
	assert.Equal(t, "james", resp.Data.Users[0].Username)

	resp = wait(t, s.Find(ctx, user.Criteria{Username: ptr("nobody")}, nil))
	require.True(t, resp.OK())
	assert.NotNil(t, resp.Data.Users)
	assert.Empty(t, resp.Data.Users)

	resp = wait(t, s.Find(ctx, user.Criteria{ID: "1234"}, nil))
	assert.Equal(t, "CastError", resp.ErrorName())

	assert.NotPanics(t, func() { s.Find(ctx, user.Criteria{}, nil) })
	s.Wait()
}

func TestUserService_UpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	events := &recordingPublisher{}
	s := newTestService(t, events)
	john := wait(t, s.Register(ctx, testRegistration("john"), nil)).Data.Users[0]

	t.Run("update errors", func(t *testing.T) {
		resp := wait(t, s.Update(ctx, user.Changes{}, nil))
		assert.Equal(t, "Invalid format - userID is invalid", resp.Error.Error())

		resp = wait(t, s.Update(ctx, user.Changes{ID: "1234"}, nil))
		assert.Equal(t, "CastError", resp.ErrorName())

		resp = wait(t, s.Update(ctx, user.Changes{ID: "52d47b2c41534264425c6e16"}, nil))
		assert.Equal(t, "The user id return an invalid number of users(0)", resp.Error.Error())
	})

	t.Run("update", func(t *testing.T) {
		resp := wait(t, s.Update(ctx, user.Changes{ID: john.ID.Hex(), Username: ptr("updatedname")}, nil))
		require.True(t, resp.OK())
		require.Len(t, resp.Data.Users, 1)
		assert.Equal(t, "updatedname", resp.Data.Users[0].Username)

		found := wait(t, s.Find(ctx, user.Criteria{ID: john.ID.Hex()}, nil))
		require.Len(t, found.Data.Users, 1)
		assert.Equal(t, "updatedname", found.Data.Users[0].Username)
	})

	t.Run("remove errors", func(t *testing.T) {
		resp := wait(t, s.Remove(ctx, user.Ref{}, nil))
		assert.Equal(t, "Invalid format - userID is invalid", resp.Error.Error())

		resp = wait(t, s.Remove(ctx, user.Ref{ID: "1234"}, nil))
		assert.Equal(t, "CastError", resp.ErrorName())

		resp = wait(t, s.Remove(ctx, user.Ref{ID: "52d47b2c41534264425c6e16"}, nil))
		assert.Equal(t, "The user id return an invalid number of users(0)", resp.Error.Error())
	})

	t.Run("remove", func(t *testing.T) {
		resp := wait(t, s.Remove(ctx, john, nil))
		assert.True(t, resp.OK())
		assert.Nil(t, resp.Data)

		found := wait(t, s.Find(ctx, user.Criteria{}, nil))
		assert.Empty(t, found.Data.Users)
	})

	types := []EventType{}
	for _, e := range events.recorded() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{EventUserRegistered, EventUserUpdated, EventUserRemoved}, types)
}

func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)
	wait(t, s.Register(ctx, testRegistration("bob"), nil))

	u, err := s.Authenticate(ctx, "bob", "unhashedpassword")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)

	_, err = s.Authenticate(ctx, "bob", "nope")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestTask_WaitHonoursContext(t *testing.T) {
	task := newTask()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	task.complete(Response{}, nil)
	select {
	case <-task.Done():
	default:
		t.Fatal("task not done after complete")
	}
	assert.True(t, task.Response().OK())
}
