// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/todos/internal/platform/apperr"
	"github.com/taibuivan/todos/internal/platform/ctxutil"
	"github.com/taibuivan/todos/internal/platform/middleware"
	"github.com/taibuivan/todos/internal/platform/sec"
)

type resolverFunc func(ctx context.Context, header http.Header) (*sec.Identity, error)

func (fn resolverFunc) ResolveSession(ctx context.Context, header http.Header) (*sec.Identity, error) {
	return fn(ctx, header)
}

func staticResolver(identity *sec.Identity, err error) middleware.SessionResolver {
	return resolverFunc(func(context.Context, http.Header) (*sec.Identity, error) {
		return identity, err
	})
}

// echoIdentity answers 200 with the caller's email, or "anonymous".
var echoIdentity = http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
	if identity := ctxutil.GetIdentity(request.Context()); identity != nil {
		_, _ = writer.Write([]byte(identity.Email))
		return
	}
	_, _ = writer.Write([]byte("anonymous"))
})

/*
TestAuthenticate covers every way a request ends up anonymous or authenticated.
*/
func TestAuthenticate(t *testing.T) {
	valid := &sec.Identity{UserID: "u1", Email: "ada@example.com", ExpiresAt: time.Now().Add(time.Hour)}
	expired := &sec.Identity{UserID: "u1", Email: "ada@example.com", ExpiresAt: time.Now().Add(-time.Hour)}

	tests := []struct {
		name     string
		resolver middleware.SessionResolver
		want     string
	}{
		{"valid_session", staticResolver(valid, nil), "ada@example.com"},
		{"no_session", staticResolver(nil, apperr.Unauthorized("Unauthorized")), "anonymous"},
		{"expired_session", staticResolver(expired, nil), "anonymous"},
		{"provider_failure", staticResolver(nil, errors.New("database is down")), "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, "/api/todos", nil)

			middleware.Authenticate(tt.resolver)(echoIdentity).ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, tt.want, recorder.Body.String())
		})
	}
}

/*
TestRequireSession checks both deny policies and the authenticated pass-through.
*/
func TestRequireSession(t *testing.T) {
	valid := &sec.Identity{UserID: "u1", Email: "ada@example.com", ExpiresAt: time.Now().Add(time.Hour)}

	t.Run("api_unauthorized", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/api/todos", nil)

		middleware.RequireSession(middleware.DenyUnauthorized)(echoIdentity).ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"error":"Unauthorized"`)
	})

	t.Run("page_redirect", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/?status=pending", nil)

		middleware.RequireSession(middleware.RedirectToLogin("/login"))(echoIdentity).ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusSeeOther, recorder.Code)
		assert.Equal(t, "/login?redirect=%2F%3Fstatus%3Dpending", recorder.Header().Get("Location"))
	})

	t.Run("authenticated", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/api/todos", nil)

		chain := middleware.Authenticate(staticResolver(valid, nil))(
			middleware.RequireSession(middleware.DenyUnauthorized)(echoIdentity),
		)
		chain.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "ada@example.com", recorder.Body.String())
	})
}

/*
TestRequestID keeps a client-supplied ID and generates one otherwise.
*/
func TestRequestID(t *testing.T) {
	handler := middleware.RequestID()(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(ctxutil.GetRequestID(request.Context())))
	}))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "abc-123")
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, "abc-123", recorder.Body.String())

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, recorder.Body.String())
	assert.Equal(t, recorder.Body.String(), recorder.Header().Get("X-Request-ID"))
}

/*
TestRateLimit rejects requests beyond the burst with 429.
*/
func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler := middleware.RateLimit(ctx, 1, 2)(echoIdentity)

	codes := make([]int, 0, 3)
	for range 3 {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.RemoteAddr = "203.0.113.7:5000"
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

/*
TestPanicRecovery turns a panic into a 500 envelope.
*/
func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), apperr.CodeInternal)
}

type corsConfig struct {
	development bool
	origins     []string
}

func (cfg corsConfig) IsDevelopment() bool      { return cfg.development }
func (cfg corsConfig) AllowedOrigins() []string { return cfg.origins }

/*
TestCORS allows configured origins only, except in development.
*/
func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		cfg     corsConfig
		origin  string
		allowed bool
	}{
		{"listed_origin", corsConfig{origins: []string{"https://todos.example.com"}}, "https://todos.example.com", true},
		{"foreign_origin", corsConfig{origins: []string{"https://todos.example.com"}}, "https://evil.example.net", false},
		{"development", corsConfig{development: true}, "http://localhost:3000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
			request.Header.Set("Origin", tt.origin)

			middleware.CORS(tt.cfg)(echoIdentity).ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusNoContent, recorder.Code)
			if tt.allowed {
				assert.Equal(t, tt.origin, recorder.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}
