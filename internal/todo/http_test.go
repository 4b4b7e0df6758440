// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/todos/internal/platform/respond"
	"github.com/taibuivan/todos/internal/todo"
	"github.com/taibuivan/todos/pkg/uuid"
)

func serve(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	handler.ServeHTTP(recorder, request)
	return recorder
}

/*
TestHandler_Lifecycle drives create, list, update and delete over HTTP.
*/
func TestHandler_Lifecycle(t *testing.T) {
	service, _, _ := newService(t)
	router := todo.NewHandler(service).Routes()

	created := serve(router, http.MethodPost, "/", `{"title":"Buy milk"}`)
	require.Equal(t, http.StatusCreated, created.Code)

	var envelope struct {
		Data todo.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &envelope))
	assert.Equal(t, "Created todo with title: Buy milk", envelope.Data.Message)
	id := envelope.Data.Todo.ID

	serve(router, http.MethodPost, "/", `{"title":"Call mom"}`)

	listed := serve(router, http.MethodGet, "/?query=milk", "")
	require.Equal(t, http.StatusOK, listed.Code)
	var page struct {
		Data []todo.Todo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Buy milk", page.Data[0].Title)

	counted := serve(router, http.MethodGet, "/count", "")
	assert.JSONEq(t, `{"data":{"count":2}}`, counted.Body.String())

	updated := serve(router, http.MethodPatch, "/"+id, `{"isCompleted":true}`)
	require.Equal(t, http.StatusOK, updated.Code)
	assert.Contains(t, updated.Body.String(), `"isCompleted":true`)

	deleted := serve(router, http.MethodDelete, "/"+id, "")
	require.Equal(t, http.StatusOK, deleted.Code)
	assert.Contains(t, deleted.Body.String(), "Deleted todo with id: "+id)

	fetched := serve(router, http.MethodGet, "/"+id, "")
	assert.Equal(t, http.StatusNotFound, fetched.Code)
}

/*
TestHandler_Errors maps failures to status codes and error envelopes.
*/
func TestHandler_Errors(t *testing.T) {
	service, _, _ := newService(t)
	router := todo.NewHandler(service).Routes()

	tests := []struct {
		name    string
		method  string
		target  string
		body    string
		status  int
		message string
	}{
		{"non_numeric_page", http.MethodGet, "/?page=two", "", http.StatusBadRequest, "page must be a positive integer"},
		{"page_zero", http.MethodGet, "/?page=0", "", http.StatusBadRequest, "page must be a positive integer"},
		{"short_title", http.MethodPost, "/", `{"title":"abc"}`, http.StatusBadRequest, "post title must be at least 5 characters"},
		{"bad_json", http.MethodPost, "/", `{"title":`, http.StatusBadRequest, "Invalid JSON payload"},
		{"bad_id", http.MethodGet, "/nope", "", http.StatusBadRequest, "Invalid UUID format for todo ID"},
		{"unknown_id", http.MethodDelete, "/" + uuid.New(), "", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serve(router, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, recorder.Code)

			var body respond.ErrorEnvelope
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Error)
			} else {
				assert.Contains(t, body.Error, "not found!")
			}
		})
	}
}
