// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/taibuivan/todos/internal/platform/apperr"
)

// validation is shared by the handler and the tools. A Validate caches struct
// metadata and is safe for concurrent use.
var validation = newValidator()

func newValidator() *validator.Validate {
	instance := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so field errors match the request body.
	instance.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	instance.RegisterStructValidation(partRules, Part{})
	return instance
}

// partRules enforces the fields each part type depends on.
func partRules(level validator.StructLevel) {
	part := level.Current().Interface().(Part)

	switch part.Type {
	case PartToolCall:
		if part.ToolName == "" {
			level.ReportError(part.ToolName, "toolName", "ToolName", "required", "")
		}
		fallthrough
	case PartToolResult:
		if part.ToolCallID == "" {
			level.ReportError(part.ToolCallID, "toolCallId", "ToolCallID", "required", "")
		}
	}
}

// check validates value and converts failures into a VALIDATION_ERROR.
func check(value any) error {
	err := validation.Struct(value)
	if err == nil {
		return nil
	}

	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return apperr.Internal(err)
	}

	details := make([]apperr.FieldError, 0, len(failures))
	for _, failure := range failures {
		details = append(details, apperr.FieldError{
			Field:   fieldPath(failure.Namespace()),
			Message: describe(failure),
		})
	}

	if len(details) == 1 {
		return apperr.ValidationError(details[0].Field+": "+details[0].Message, details...)
	}
	return apperr.ValidationError("Validation failed", details...)
}

// fieldPath drops the root struct name: "Request.messages[0].role" → "messages[0].role".
func fieldPath(namespace string) string {
	if _, rest, found := strings.Cut(namespace, "."); found {
		return rest
	}
	return namespace
}

func describe(failure validator.FieldError) string {
	switch failure.Tag() {
	case "required":
		return "This field is required"
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(failure.Param(), " ", ", ")
	case "min":
		return fmt.Sprintf("Must be at least %s", failure.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s", failure.Param())
	default:
		return fmt.Sprintf("Failed the %q rule", failure.Tag())
	}
}
