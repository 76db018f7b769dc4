// This file contains the actual validator implementation for incoming http requests.
//
// Field names in validation errors are the json names of the request fields.

package web

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate *validator.Validate

// Initialize the custom validator
func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "params", "query"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
}

// ValidateRequest validates a request using a Fiber context and a request struct.
// It parses the request differently based on HTTP method.
func ValidateRequest(c *fiber.Ctx, req interface{}) error {
	switch c.Method() {
	case fiber.MethodGet, fiber.MethodDelete:
		// No body, only query and path parameters
		if err := c.QueryParser(req); err != nil {
			return err
		}
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
		if len(c.Body()) > 0 {
			if err := c.BodyParser(req); err != nil {
				return err
			}
		}
		if err := c.QueryParser(req); err != nil {
			return err
		}
	default:
		// Unsupported HTTP method
	}

	if err := c.ParamsParser(req); err != nil {
		return err
	}

	return validate.Struct(req)
}

// optionalQuery returns the query parameter key, or nil if the request does not carry it.
func optionalQuery(c *fiber.Ctx, key string) *string {
	if !c.Context().QueryArgs().Has(key) {
		return nil
	}
	value := c.Query(key)
	return &value
}
