// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/todos/internal/platform/apperr"
)

/*
TestConstructors_StatusAndCode verifies each failure kind maps to its HTTP status.
*/
func TestConstructors_StatusAndCode(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name   string
		err    *apperr.AppError
		status int
		code   string
	}{
		{"validation", apperr.ValidationError("bad"), http.StatusBadRequest, apperr.CodeValidation},
		{"unauthorized", apperr.Unauthorized("Unauthorized"), http.StatusUnauthorized, apperr.CodeUnauthorized},
		{"not_found", apperr.NotFound("Todo"), http.StatusNotFound, apperr.CodeNotFound},
		{"conflict", apperr.Conflict("dup"), http.StatusConflict, apperr.CodeConflict},
		{"client_closed", apperr.ClientClosed(cause), apperr.StatusClientClosedRequest, apperr.CodeClientClosed},
		{"internal", apperr.Internal(cause), http.StatusInternalServerError, apperr.CodeInternal},
		{"upstream", apperr.Upstream("provider failed", cause), http.StatusInternalServerError, apperr.CodeUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

/*
TestNotFoundf formats the message verbatim.
*/
func TestNotFoundf(t *testing.T) {
	err := apperr.NotFoundf("todo with id %q not found!", "abc")
	assert.Equal(t, `todo with id "abc" not found!`, err.Error())
}

/*
TestAs_TraversesWrappedChain verifies errors.As semantics through fmt wrapping.
*/
func TestAs_TraversesWrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", apperr.NotFound("Todo"))

	ae := apperr.As(wrapped)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeNotFound, ae.Code)
	assert.True(t, apperr.IsAppError(wrapped))
	assert.True(t, apperr.HasCode(wrapped, apperr.CodeNotFound))
	assert.False(t, apperr.HasCode(errors.New("plain"), apperr.CodeNotFound))
	assert.Nil(t, apperr.As(errors.New("plain")))
}

/*
TestInternal_KeepsCause ensures the cause is reachable but not in the message.
*/
func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperr.Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "connection refused")
}
