package user

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned by a Store when no document matched the given ID.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned by Authenticate when the username or password is wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

const (
	msgFieldMissing     = "Bad request: %s field is missing"
	msgFieldBlank       = "Bad request: %s field cannot be blank"
	msgConfirmPassword  = "Password must be confirmed"
	msgBlankPassword    = "Password cannot be blank"
	msgPasswordMismatch = "Passwords do not match"
	msgPasswordTooLong  = "Bad request: password is too long"
	msgHashFailed       = "Failed to hash password"
	msgInvalidID        = "Invalid format - userID is invalid"
	msgUserCount        = "The user id return an invalid number of users(%d)"
	msgCastObjectID     = "Cast to ObjectId failed for value %q at path \"_id\""
)

// Kind classifies an Error.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindMissingID
	KindMalformedID
	KindNotFound
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindMissingID:
		return "missing_id"
	case KindMalformedID:
		return "malformed_id"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "store"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every UserManager operation. Message is the text shown to callers.
type Error struct {
	Kind    Kind
	Message string
	// Value is the identifier that failed to parse, for KindMalformedID.
	Value string
	Err   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Name is the error class name reported in response envelopes. Malformed IDs report "CastError".
func (e *Error) Name() string {
	switch e.Kind {
	case KindMalformedID:
		return "CastError"
	case KindNotFound:
		return "NotFoundError"
	case KindStore:
		return "StoreError"
	default:
		return "ValidationError"
	}
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var uerr *Error
	if errors.As(err, &uerr) {
		return uerr.Kind
	}
	return 0
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func missingIDError() *Error {
	return &Error{Kind: KindMissingID, Message: msgInvalidID}
}

func castError(value string, err error) *Error {
	return &Error{Kind: KindMalformedID, Message: fmt.Sprintf(msgCastObjectID, value), Value: value, Err: err}
}

func notFoundError(count int64, err error) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(msgUserCount, count), Err: err}
}

// hashError reports a Hasher failure. An oversized password is the caller's fault, anything else is not.
func hashError(err error) *Error {
	if errors.Is(err, ErrPasswordTooLong) {
		return &Error{Kind: KindValidation, Message: msgPasswordTooLong, Err: err}
	}
	return &Error{Kind: KindStore, Message: msgHashFailed, Err: err}
}

func storeError(err error) *Error {
	return &Error{Kind: KindStore, Message: err.Error(), Err: err}
}
