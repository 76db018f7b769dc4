// Package common holds the request types shared by the HTTP layer.
package common
