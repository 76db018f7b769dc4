// This file contains the UserManager implementation, which validates user input and runs it against a Store.
// Every operation performs at most one store call. Validation failures never reach the store, so a rejected
// registration or update leaves the collection untouched.
//
// Interaction with existing users is by ID. IDs arrive as hex strings and are parsed here, which is where the
// missing / malformed / not found distinction is made.

package user

import (
	"context"
	"errors"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aptlist/users/internal/log"
)

type UserManager struct {
	store  Store
	hasher Hasher
	logger *log.Logger
	now    func() time.Time
}

// NewUserManager creates a new instance of UserManager.
func NewUserManager(store Store, hasher Hasher, logger *log.Logger) *UserManager {
	return &UserManager{
		store:  store,
		hasher: hasher,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// HashPW hashes plaintext with the configured Hasher. For a deterministic hasher the result equals
// the password stored by Register for the same plaintext.
func (um *UserManager) HashPW(plaintext string) (string, error) {
	return um.hasher.Hash(plaintext)
}

// Register validates reg, hashes its password and inserts a new user.
// Returns the stored user, or an *Error of KindValidation or KindStore.
func (um *UserManager) Register(ctx context.Context, reg Registration) (*User, error) {
	if err := reg.validate(); err != nil {
		um.logger.Infof("Registration rejected: %s", err.Message)
		return nil, err
	}

	hashed, err := um.hasher.Hash(*reg.Password)
	if err != nil {
		return nil, hashError(err)
	}

	now := um.now()
	user := &User{
		ID:        primitive.NewObjectID(),
		Username:  *reg.Username,
		Email:     *reg.Email,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := um.store.Insert(ctx, user); err != nil {
		um.logger.Errorf("Failed to register user %s: %v", user.Username, err)
		return nil, storeError(err)
	}

	um.logger.Infof("Registered user %s (%s)", user.Username, user.ID.Hex())
	return user, nil
}

// Find returns every user matching criteria. The zero Criteria returns all users.
// A password criterion is plaintext and is checked against each candidate's stored hash.
func (um *UserManager) Find(ctx context.Context, criteria Criteria) ([]User, error) {
	filter, err := criteria.filter()
	if err != nil {
		return nil, err
	}

	users, err := um.store.Find(ctx, filter)
	if err != nil {
		um.logger.Errorf("Failed to find users: %v", err)
		return nil, storeError(err)
	}

	if criteria.Password != nil {
		users = um.withPassword(users, *criteria.Password)
	}
	return users, nil
}

// Count returns the number of users matching criteria.
func (um *UserManager) Count(ctx context.Context, criteria Criteria) (int64, error) {
	if criteria.Password != nil {
		users, err := um.Find(ctx, criteria)
		if err != nil {
			return 0, err
		}
		return int64(len(users)), nil
	}

	filter, err := criteria.filter()
	if err != nil {
		return 0, err
	}
	count, err := um.store.Count(ctx, filter)
	if err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

// Update applies every provided field of changes to the user changes.ID names and returns the updated user.
// A new password is stored hashed; CPassword, when given, must match it.
func (um *UserManager) Update(ctx context.Context, changes Changes) (*User, error) {
	id, err := parseID(changes.ID)
	if err != nil {
		return nil, err
	}

	fields, err := um.fields(changes)
	if err != nil {
		return nil, err
	}

	user, err := um.store.Update(ctx, id, fields, um.now())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			um.logger.Infof("Update of unknown user %s", id.Hex())
			return nil, notFoundError(0, err)
		}
		um.logger.Errorf("Failed to update user %s: %v", id.Hex(), err)
		return nil, storeError(err)
	}

	um.logger.Infof("Updated user %s", id.Hex())
	return user, nil
}

// Remove deletes the user target identifies. target may be a Ref or any user-shaped value.
func (um *UserManager) Remove(ctx context.Context, target Identifiable) error {
	if isNil(target) {
		return missingIDError()
	}
	id, err := parseID(target.UserID())
	if err != nil {
		return err
	}

	deleted, err := um.store.Delete(ctx, id)
	if err != nil {
		um.logger.Errorf("Failed to remove user %s: %v", id.Hex(), err)
		return storeError(err)
	}
	if deleted != 1 {
		um.logger.Infof("Remove of user %s matched %d users", id.Hex(), deleted)
		return notFoundError(deleted, nil)
	}

	um.logger.Infof("Removed user %s", id.Hex())
	return nil
}

// Authenticate returns the user with the given username and password.
// Returns ErrInvalidCredentials if no such user exists.
func (um *UserManager) Authenticate(ctx context.Context, username, password string) (*User, error) {
	users, err := um.store.Find(ctx, Filter{Username: &username})
	if err != nil {
		return nil, storeError(err)
	}
	for _, u := range users {
		if um.hasher.Verify(u.Password, password) {
			return &u, nil
		}
	}
	return nil, ErrInvalidCredentials
}

// Clear removes every user.
func (um *UserManager) Clear(ctx context.Context) error {
	if err := um.store.DeleteAll(ctx); err != nil {
		return storeError(err)
	}
	return nil
}

func (um *UserManager) withPassword(users []User, plaintext string) []User {
	matched := []User{}
	for _, u := range users {
		if um.hasher.Verify(u.Password, plaintext) {
			matched = append(matched, u)
		}
	}
	return matched
}

func (um *UserManager) fields(changes Changes) (Fields, error) {
	fields := Fields{Username: changes.Username, Email: changes.Email}
	for _, f := range []struct {
		name  string
		value *string
	}{{"username", changes.Username}, {"email", changes.Email}} {
		if f.value != nil && *f.value == "" {
			return Fields{}, validationError(msgFieldBlank, f.name)
		}
	}

	if changes.Password != nil {
		if err := checkNewPassword(*changes.Password, changes.CPassword); err != nil {
			return Fields{}, err
		}
		hashed, err := um.hasher.Hash(*changes.Password)
		if err != nil {
			return Fields{}, hashError(err)
		}
		fields.Password = &hashed
	}
	return fields, nil
}

func (r Registration) validate() *Error {
	required := []struct {
		name  string
		value *string
	}{
		{"username", r.Username},
		{"email", r.Email},
		{"password", r.Password},
	}
	for _, f := range required {
		if f.value == nil {
			return validationError(msgFieldMissing, f.name)
		}
	}
	return confirmPassword(*r.Password, r.CPassword)
}

func confirmPassword(password string, confirmation *string) *Error {
	if confirmation == nil {
		return validationError(msgConfirmPassword)
	}
	if password == "" && *confirmation == "" {
		return validationError(msgBlankPassword)
	}
	if password != *confirmation {
		return validationError(msgPasswordMismatch)
	}
	return nil
}

// checkNewPassword validates a password change. The confirmation is optional on update
// but must match when given.
func checkNewPassword(password string, confirmation *string) *Error {
	if confirmation != nil {
		return confirmPassword(password, confirmation)
	}
	if password == "" {
		return validationError(msgBlankPassword)
	}
	return nil
}

func (c Criteria) filter() (Filter, error) {
	filter := Filter{Username: c.Username, Email: c.Email}
	if c.ID != "" {
		id, err := primitive.ObjectIDFromHex(c.ID)
		if err != nil {
			return Filter{}, castError(c.ID, err)
		}
		filter.ID = &id
	}
	return filter, nil
}

// isNil reports whether target is nil or a nil pointer, whose UserID would dereference nil.
func isNil(target Identifiable) bool {
	if target == nil {
		return true
	}
	v := reflect.ValueOf(target)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func parseID(raw string) (primitive.ObjectID, error) {
	if raw == "" {
		return primitive.NilObjectID, missingIDError()
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, castError(raw, err)
	}
	return id, nil
}
