package services

import (
	"context"
	"sync"

	"github.com/aptlist/users/internal/log"
	"github.com/aptlist/users/internal/models/user"
)

// EventPublisher delivers user lifecycle events. AMQPService is the production implementation.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// UserService runs user operations asynchronously and shapes their results into Responses.
// Every operation returns a Task immediately; the optional Callback is invoked with the same Response.
type UserService struct {
	userManager *user.UserManager
	events      EventPublisher
	logger      *log.Logger
	wg          sync.WaitGroup
}

// NewUserService creates a UserService. events may be nil, in which case no events are published.
func NewUserService(userManager *user.UserManager, events EventPublisher, logger *log.Logger) *UserService {
	return &UserService{
		userManager: userManager,
		events:      events,
		logger:      logger,
	}
}

// Register registers a new user. On success the Response carries exactly one user.
func (s *UserService) Register(ctx context.Context, reg user.Registration, cb Callback) *Task {
	return s.run(ctx, cb, func(ctx context.Context) Response {
		u, err := s.userManager.Register(ctx, reg)
		if err != nil {
			return Response{Error: err}
		}
		s.publish(ctx, newEvent(EventUserRegistered, u.UserID(), u.Username, u.Email))
		return usersResponse(*u)
	})
}

// Find returns every user matching criteria.
func (s *UserService) Find(ctx context.Context, criteria user.Criteria, cb Callback) *Task {
	return s.run(ctx, cb, func(ctx context.Context) Response {
		users, err := s.userManager.Find(ctx, criteria)
		if err != nil {
			return Response{Error: err}
		}
		return usersResponse(users...)
	})
}

// Update applies changes and returns the updated user.
func (s *UserService) Update(ctx context.Context, changes user.Changes, cb Callback) *Task {
	return s.run(ctx, cb, func(ctx context.Context) Response {
		u, err := s.userManager.Update(ctx, changes)
		if err != nil {
			return Response{Error: err}
		}
		s.publish(ctx, newEvent(EventUserUpdated, u.UserID(), u.Username, u.Email))
		return usersResponse(*u)
	})
}

// Remove deletes the identified user. The Response carries no data.
func (s *UserService) Remove(ctx context.Context, target user.Identifiable, cb Callback) *Task {
	return s.run(ctx, cb, func(ctx context.Context) Response {
		if err := s.userManager.Remove(ctx, target); err != nil {
			return Response{Error: err}
		}
		s.publish(ctx, newEvent(EventUserRemoved, target.UserID(), "", ""))
		return Response{}
	})
}

// Authenticate checks a username and password and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	return s.userManager.Authenticate(ctx, username, password)
}

// HashPW hashes plaintext the same way Register does.
func (s *UserService) HashPW(plaintext string) (string, error) {
	return s.userManager.HashPW(plaintext)
}

// Wait blocks until every operation started so far has finished.
func (s *UserService) Wait() {
	s.wg.Wait()
}

func (s *UserService) run(ctx context.Context, cb Callback, op func(context.Context) Response) *Task {
	task := newTask()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		task.complete(op(ctx), cb)
	}()
	return task
}

// publish delivers event if a publisher is configured. Failures are logged and never fail the operation.
func (s *UserService) publish(ctx context.Context, event Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Errorf("Failed to publish %s for user %s: %v", event.Type, event.UserID, err)
		return
	}
	s.logger.Debugf("Published %s for user %s", event.Type, event.UserID)
}
