// This file contains the expected structure of incoming requests to the API. These structs are used to
// validate incoming requests, provide a consistent interface for handling requests, and to pass data to the
// appropriate handlers.
//
// User fields are pointers so that an absent field can be told apart from an empty one; the user models
// report "field is missing" only for absent fields.

package common

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	CPassword *string `json:"cpassword"`
}

type UpdateUserRequest struct {
	ID        string  `params:"id" validate:"required"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	CPassword *string `json:"cpassword"`
}

type RemoveUserRequest struct {
	ID string `params:"id" validate:"required"`
}
