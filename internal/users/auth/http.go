// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/todos/internal/platform/apperr"
	"github.com/taibuivan/todos/internal/platform/constants"
	"github.com/taibuivan/todos/internal/platform/ctxutil"
	"github.com/taibuivan/todos/internal/platform/middleware"
	requestutil "github.com/taibuivan/todos/internal/platform/request"
	"github.com/taibuivan/todos/internal/platform/respond"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
type Handler struct {
	authService   *Service
	baseURL       string
	secureCookies bool
}

// NewHandler constructs a new [Handler].
//
// secureCookies sets the Secure attribute, which browsers require outside localhost.
func NewHandler(service *Service, baseURL string, secureCookies bool) *Handler {
	return &Handler{authService: service, baseURL: strings.TrimRight(baseURL, "/"), secureCookies: secureCookies}
}

// Routes returns a [chi.Router] mounted at /api/auth.
//
// # Endpoints
//   - POST   /magic-link        : Emails a sign-in link.
//   - GET    /magic-link/verify : Consumes the link, sets the session cookie, redirects.
//   - GET    /magic-link/data   : Last requested email and name, for resending.
//   - DELETE /magic-link/data   : Forgets them.
//   - GET    /session           : Current user and session, or nulls.
//   - POST   /sign-out          : Deletes the session and clears the cookie.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/magic-link", handler.requestMagicLink)
	router.Get("/magic-link/verify", handler.verifyMagicLink)
	router.Get("/magic-link/data", handler.getPendingLogin)
	router.Delete("/magic-link/data", handler.deletePendingLogin)
	router.Get("/session", handler.session)
	router.Post("/sign-out", handler.signOut)

	return router
}

/*
RequestMagicLink starts a passwordless sign-in.

POST /api/auth/magic-link

Request:
  - Body: MagicLinkInput (Email, Name)

Response:
  - 200: {success: true}
  - 400: Invalid email or name too short
  - 503: Email delivery failed
*/
func (handler *Handler) requestMagicLink(writer http.ResponseWriter, request *http.Request) {
	var input MagicLinkInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Kept before sending so the error page can offer a resend either way.
	if raw, err := json.Marshal(input); err == nil {
		http.SetCookie(writer, handler.cookie(constants.PendingLoginCookieName,
			base64.RawURLEncoding.EncodeToString(raw), PendingLoginTTL))
	}

	if err := handler.authService.RequestMagicLink(request.Context(), input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]bool{FieldSuccess: true})
}

/*
VerifyMagicLink completes a passwordless sign-in.

GET /api/auth/magic-link/verify?token=

Response:
  - 303: To the todo list (or onboarding for new users) with the session cookie set
  - 303: To the error page with ?error=INVALID_TOKEN or SERVER_ERROR
*/
func (handler *Handler) verifyMagicLink(writer http.ResponseWriter, request *http.Request) {
	signIn, err := handler.authService.VerifyMagicLink(request.Context(), request.URL.Query().Get(FieldToken), ClientInfo{
		IPAddress: middleware.RealIP(request),
		UserAgent: request.UserAgent(),
	})
	if err != nil {
		code := ErrorCodeServer
		if apperr.HasCode(err, apperr.CodeUnauthorized) {
			code = ErrorCodeInvalidToken
		} else {
			ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "magic_link_verify_failed", slog.Any("error", err))
		}
		http.Redirect(writer, request, handler.baseURL+ErrorCallbackPath+"?"+url.Values{"error": {code}}.Encode(), http.StatusSeeOther)
		return
	}

	http.SetCookie(writer, handler.cookie(constants.SessionCookieName, signIn.Token, SessionTTL))
	http.SetCookie(writer, handler.cookie(constants.PendingLoginCookieName, "", -1))

	target := CallbackPath
	if signIn.IsNewUser {
		target = NewUserCallbackPath
	}
	http.Redirect(writer, request, handler.baseURL+target, http.StatusSeeOther)
}

// getPendingLogin returns the email and name of the last link request, or null.
func (handler *Handler) getPendingLogin(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.PendingLoginCookieName)
	if err != nil {
		respond.OK(writer, nil)
		return
	}

	var input MagicLinkInput
	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil || json.Unmarshal(raw, &input) != nil {
		respond.OK(writer, nil)
		return
	}

	respond.OK(writer, input)
}

func (handler *Handler) deletePendingLogin(writer http.ResponseWriter, _ *http.Request) {
	http.SetCookie(writer, handler.cookie(constants.PendingLoginCookieName, "", -1))
	respond.Status(writer, http.StatusNoContent)
}

/*
Session returns the caller's user and session.

GET /api/auth/session

Response:
  - 200: {user, session}, both null when signed out
*/
func (handler *Handler) session(writer http.ResponseWriter, request *http.Request) {
	identity := requestutil.Identity(request)
	if identity == nil {
		respond.OK(writer, map[string]any{FieldUser: nil, FieldSession: nil})
		return
	}

	respond.OK(writer, map[string]any{
		FieldUser: identity,
		FieldSession: map[string]any{
			"id":        identity.SessionID,
			"expiresAt": identity.ExpiresAt,
		},
	})
}

/*
SignOut terminates the current session.

POST /api/auth/sign-out

Response:
  - 200: {success: true}, also when there was no session
*/
func (handler *Handler) signOut(writer http.ResponseWriter, request *http.Request) {
	if err := handler.authService.SignOut(request.Context(), SessionToken(request.Header)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.SetCookie(writer, handler.cookie(constants.SessionCookieName, "", -1))
	respond.OK(writer, map[string]bool{FieldSuccess: true})
}

// cookie builds an HTTP-only, site-wide cookie. A negative lifetime deletes it.
func (handler *Handler) cookie(name, value string, lifetime time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if lifetime < 0 {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(lifetime / time.Second)
	}
	return cookie
}
