// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// This package is used in the service layer and in handlers that parse query
// strings. It ensures that business logic only operates on semantically valid
// data, and that invalid input never reaches storage.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/todos/internal/platform/apperr"
)

var (
	// uuidRegex matches a canonical RFC 9562 UUID (versions 1-8, variant 10xx),
	// plus the nil and max UUIDs.
	uuidRegex = regexp.MustCompile(`^(?:[0-9a-f]{8}-[0-9a-f]{4}-[1-8][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}|00000000-0000-0000-0000-000000000000|ffffffff-ffff-ffff-ffff-ffffffffffff)$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
//
// # Messages
//
// Rules that take a trailing message use it instead of the default text,
// so domain packages can keep their own wording.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string, message ...string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, pick(message, "This field is required"))
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int, message ...string) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, pick(message, fmt.Sprintf("Maximum %d characters", max)))
	}
	return v
}

// MinLen fails if the Unicode character count is below min.
func (v *Validator) MinLen(field, value string, min int, message ...string) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.add(field, pick(message, fmt.Sprintf("Minimum %d characters", min)))
	}
	return v
}

// Min fails if value is lower than min.
func (v *Validator) Min(field string, value, min int, message ...string) *Validator {
	if value < min {
		v.add(field, pick(message, fmt.Sprintf("Must be at least %d", min)))
	}
	return v
}

// Email fails if the value is not a bare RFC 5322 address (no display name).
func (v *Validator) Email(field, value string, message ...string) *Validator {
	if address, err := mail.ParseAddress(value); err != nil || address.Address != value {
		v.add(field, pick(message, "Must be a valid email address"))
	}
	return v
}

// UUID fails if the value is not a valid UUID string (case-insensitive).
func (v *Validator) UUID(field, value string, message ...string) *Validator {
	if !IsUUID(value) {
		v.add(field, pick(message, "Must be a valid UUID"))
	}
	return v
}

// OneOf fails if the value is not in the allowed set of strings.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.add(field, fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
//
// The top-level message is the first failure, so single-field errors read
// naturally in clients that only show `error`.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	if len(v.errs) == 1 {
		return apperr.ValidationError(v.errs[0].Message, v.errs...)
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}

// IsUUID reports whether value is a canonical UUID string.
func IsUUID(value string) bool {
	return uuidRegex.MatchString(strings.ToLower(value))
}

// FieldErr is a shortcut to create a single-field validation error.
func FieldErr(field, message string) *apperr.AppError {
	return apperr.ValidationError(message, apperr.FieldError{
		Field:   field,
		Message: message,
	})
}

func pick(override []string, fallback string) string {
	if len(override) > 0 && override[0] != "" {
		return override[0]
	}
	return fallback
}
