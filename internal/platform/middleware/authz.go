// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/taibuivan/todos/internal/platform/apperr"
	"github.com/taibuivan/todos/internal/platform/ctxutil"
	"github.com/taibuivan/todos/internal/platform/respond"
	"github.com/taibuivan/todos/internal/platform/sec"
)

// SessionResolver looks up the caller's session from the request headers.
//
// It returns an Unauthorized [apperr.AppError] when no valid session exists.
// Any other error is a provider failure.
type SessionResolver interface {
	ResolveSession(ctx context.Context, header http.Header) (*sec.Identity, error)
}

// Authenticate resolves the session and attaches the identity to the context.
//
// # Flow
//  1. Ask the [SessionResolver] for the caller's identity.
//  2. No session, an expired session or a provider failure leave the request
//     anonymous. Provider failures are logged.
//  3. Otherwise inject the [*sec.Identity] for downstream use.
//
// It never rejects a request; that is the job of [RequireSession].
func Authenticate(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity, err := resolver.ResolveSession(request.Context(), request.Header)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if err != nil {
				if !apperr.HasCode(err, apperr.CodeUnauthorized) {
					ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "session_resolve_failed",
						slog.Any("error", err),
					)
				}
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Expiry Check ───────────────────────────────────────────────
			if identity == nil || identity.Expired(time.Now()) {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithIdentity(request.Context(), identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// DenyPolicy writes the response for a request that has no session.
type DenyPolicy func(writer http.ResponseWriter, request *http.Request)

// DenyUnauthorized answers 401 with an error envelope. Use it for API routes.
func DenyUnauthorized(writer http.ResponseWriter, request *http.Request) {
	respond.Error(writer, request, apperr.Unauthorized("Unauthorized"))
}

// RedirectToLogin sends page requests to loginPath, keeping the original
// location in the redirect query parameter.
func RedirectToLogin(loginPath string) DenyPolicy {
	return func(writer http.ResponseWriter, request *http.Request) {
		target := loginPath + "?redirect=" + url.QueryEscape(request.URL.RequestURI())
		http.Redirect(writer, request, target, http.StatusSeeOther)
	}
}

// RequireSession blocks anonymous requests with the route's deny policy.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It checks
// authentication only; there are no roles.
func RequireSession(deny DenyPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if ctxutil.GetIdentity(request.Context()) == nil {
				deny(writer, request)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}
