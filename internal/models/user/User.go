package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered account. Password is always the output of the configured Hasher.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username  string             `bson:"username" json:"username"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"password"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// UserID returns the hex form of the user's ID, or "" for a user that was never stored.
func (u User) UserID() string {
	if u.ID.IsZero() {
		return ""
	}
	return u.ID.Hex()
}

// Criteria matches the stored record by ID, username and email.
// The password hash is left out since Find compares passwords against plaintext.
func (u User) Criteria() Criteria {
	username, email := u.Username, u.Email
	return Criteria{ID: u.UserID(), Username: &username, Email: &email}
}

// Identifiable is anything a user ID can be derived from: a Ref, a User or a Changes value.
type Identifiable interface {
	UserID() string
}

// Ref identifies a user by ID alone.
type Ref struct {
	ID string `json:"_id"`
}

func (r Ref) UserID() string { return r.ID }

// Registration is the input of UserManager.Register. A nil field is absent; a pointer
// to "" is present but empty. CPassword is only used for confirmation and never stored.
type Registration struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	CPassword *string `json:"cpassword"`
}

// Criteria returns the schema fields of the registration as find criteria, dropping CPassword.
func (r Registration) Criteria() Criteria {
	return Criteria{Username: r.Username, Email: r.Email, Password: r.Password}
}

// Criteria is an exact-match filter over the user schema. Nil fields and an empty ID
// are unconstrained, so the zero Criteria matches every user. Password is plaintext.
type Criteria struct {
	ID       string  `json:"_id"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Changes is the input of UserManager.Update. ID selects the user; every non-nil field is applied.
// A new Password must be confirmed with CPassword, the same way as at registration.
type Changes struct {
	ID        string  `json:"_id"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	CPassword *string `json:"cpassword"`
}

func (c Changes) UserID() string { return c.ID }

// Fields holds the stored, mutable fields of a user. Nil fields are left alone.
type Fields struct {
	Username *string
	Email    *string
	Password *string
}

// Filter is the store-level form of Criteria: a parsed ID plus exact field values.
// Password filtering is done by the UserManager, as hashes may be salted.
type Filter struct {
	ID       *primitive.ObjectID
	Username *string
	Email    *string
}
