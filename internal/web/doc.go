// Package web exposes the user operations over HTTP with fiber.
//
// Registration, lookup and login are public. Updating or removing a user requires a Bearer token issued by
// /login. Every user route answers with the services.Response envelope; its status is derived from the kind
// of error the operation failed with.
package web
