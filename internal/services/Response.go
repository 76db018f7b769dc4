package services

import (
	"encoding/json"
	"errors"

	"github.com/aptlist/users/internal/models/user"
)

// Response is the envelope every user operation completes with.
// Error is nil on success; Data is nil for operations that return no users.
type Response struct {
	Error error
	Data  *Data
}

// Data carries the users an operation returned.
type Data struct {
	Users []user.User `json:"users"`
}

// CastErrorBody is the JSON form of a malformed-identifier error.
type CastErrorBody struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Value   string `json:"value"`
	Path    string `json:"path"`
}

func usersResponse(users ...user.User) Response {
	if users == nil {
		users = []user.User{}
	}
	return Response{Data: &Data{Users: users}}
}

// OK reports whether the operation succeeded.
func (r Response) OK() bool {
	return r.Error == nil
}

// ErrorName returns the error class name ("CastError", "ValidationError", ...), or "" on success.
func (r Response) ErrorName() string {
	if r.Error == nil {
		return ""
	}
	var uerr *user.Error
	if errors.As(r.Error, &uerr) {
		return uerr.Name()
	}
	return "Error"
}

// MarshalJSON renders Error as its message, except for cast errors which render as an object carrying the name.
func (r Response) MarshalJSON() ([]byte, error) {
	out := struct {
		Error any   `json:"error,omitempty"`
		Data  *Data `json:"data,omitempty"`
	}{Data: r.Data}

	if r.Error != nil {
		var uerr *user.Error
		if errors.As(r.Error, &uerr) && uerr.Kind == user.KindMalformedID {
			out.Error = CastErrorBody{
				Name:    uerr.Name(),
				Message: uerr.Message,
				Kind:    "ObjectId",
				Value:   uerr.Value,
				Path:    "_id",
			}
		} else {
			out.Error = r.Error.Error()
		}
	}
	return json.Marshal(out)
}
