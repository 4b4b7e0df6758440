// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taibuivan/todos/internal/platform/apperr"
	"github.com/taibuivan/todos/internal/platform/constants"
	"github.com/taibuivan/todos/internal/platform/dberr"
	"github.com/taibuivan/todos/internal/platform/sec"
	"github.com/taibuivan/todos/internal/platform/validate"
	"github.com/taibuivan/todos/pkg/uuid"
)

// # Contracts & Types

// TokenProvider signs and verifies magic-link tokens.
type TokenProvider interface {
	IssueMagicLink(tokenID, email, name string, timeToLive time.Duration) (string, error)
	VerifyMagicLink(token string) (*sec.MagicLinkClaims, error)
}

// MagicLinkInput is the payload of [Service.RequestMagicLink].
type MagicLinkInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ClientInfo describes the device a session is created for.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// SignIn is the result of a verified magic link.
type SignIn struct {
	// Token is the raw session token. Only its hash is stored.
	Token     string
	Session   *Session
	User      *User
	IsNewUser bool
}

// Service implements passwordless authentication use cases.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	ledger            MagicLinkLedger
	tokenProvider     TokenProvider
	mailer            Mailer
	baseURL           string
	logger            *slog.Logger
	now               func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
//
// baseURL is the public origin used to build sign-in links.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	ledger MagicLinkLedger,
	tokenProv TokenProvider,
	mailer Mailer,
	baseURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		ledger:            ledger,
		tokenProvider:     tokenProv,
		mailer:            mailer,
		baseURL:           strings.TrimRight(baseURL, "/"),
		logger:            logger,
		now:               time.Now,
	}
}

// # Magic Link Flow

/*
RequestMagicLink validates the credentials and emails a single-use sign-in link.

Description: The link carries the email and name in a signed token, so no
pending-login row is stored. Delivery failures are reported with a
client-safe message.

Parameters:
  - context: context.Context
  - input: MagicLinkInput

Returns:
  - error: ValidationError or ServiceUnavailable
*/
func (service *Service) RequestMagicLink(context context.Context, input MagicLinkInput) error {
	email := strings.TrimSpace(input.Email)
	name := strings.TrimSpace(input.Name)

	validator := &validate.Validator{}
	validator.
		Email(FieldEmail, email, msgInvalidEmail).
		MinLen(FieldName, name, NameMinLength, msgNameTooShort).
		MaxLen(FieldName, name, NameMaxLength)
	if err := validator.Err(); err != nil {
		return err
	}

	token, err := service.tokenProvider.IssueMagicLink(uuid.New(), email, name, MagicLinkTTL)
	if err != nil {
		return apperr.Internal(err)
	}

	link := service.baseURL + "/api/auth/magic-link/verify?" + url.Values{FieldToken: {token}}.Encode()
	if err := service.mailer.SendMagicLink(context, email, link); err != nil {
		service.logger.Error("magic_link_delivery_failed", slog.String("email", email), slog.Any("error", err))
		return apperr.ServiceUnavailable(msgMagicLinkFailed)
	}

	return nil
}

/*
VerifyMagicLink consumes a magic link and opens a session.

Description: The token must carry a valid signature, must not be expired and
must not have been used before. First-time users get an account and a
welcome email.

Parameters:
  - context: context.Context
  - token: string
  - client: ClientInfo

Returns:
  - *SignIn: The new session and its raw token
  - error: Unauthorized for bad links, storage failures otherwise
*/
func (service *Service) VerifyMagicLink(context context.Context, token string, client ClientInfo) (*SignIn, error) {
	claims, err := service.tokenProvider.VerifyMagicLink(token)
	if err != nil {
		return nil, apperr.Unauthorized(msgInvalidMagicLink)
	}

	currentTime := service.now().UTC()

	// ── 1. Single Use ─────────────────────────────────────────────────────
	remaining := claims.ExpiresAt.Sub(currentTime)
	fresh, err := service.ledger.Consume(context, claims.ID, remaining)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !fresh {
		return nil, apperr.Unauthorized(msgMagicLinkConsumed)
	}

	// ── 2. Account ────────────────────────────────────────────────────────
	user, created, err := service.userRepository.UpsertVerified(context, &User{
		ID:        uuid.New(),
		Name:      claims.Name,
		Email:     claims.Email,
		CreatedAt: currentTime,
		UpdatedAt: currentTime,
	})
	if err != nil {
		return nil, err
	}

	// ── 3. Session ────────────────────────────────────────────────────────
	rawToken, err := sec.GenerateSecureToken(SessionTokenLength)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(rawToken),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		ExpiresAt: currentTime.Add(SessionTTL),
		CreatedAt: currentTime,
	}
	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, err
	}

	if created {
		if err := service.mailer.SendWelcome(context, user.Email, user.Name); err != nil {
			service.logger.Warn("welcome_email_failed", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}

	service.logger.Info("user_signed_in",
		slog.String("user_id", user.ID),
		slog.Bool("new_user", created),
	)

	return &SignIn{Token: rawToken, Session: session, User: user, IsNewUser: created}, nil
}

// # Session Resolution

/*
ResolveSession maps the request headers to the caller's identity.

Description: The token comes from the session cookie or, failing that, from
an "Authorization: Bearer" header. A missing, unknown or expired session is
an Unauthorized error. Any other error is a provider failure.
*/
func (service *Service) ResolveSession(context context.Context, header http.Header) (*sec.Identity, error) {
	token := SessionToken(header)
	if token == "" {
		return nil, apperr.Unauthorized("Unauthorized")
	}

	session, user, err := service.sessionRepository.FindByTokenHash(context, sec.HashToken(token))
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Unauthorized")
		}
		return nil, err
	}

	identity := &sec.Identity{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
	}
	if identity.Expired(service.now()) {
		return nil, apperr.Unauthorized("Unauthorized")
	}

	return identity, nil
}

// SignOut deletes the session behind token. Unknown tokens are ignored.
func (service *Service) SignOut(context context.Context, token string) error {
	if token == "" {
		return nil
	}
	return service.sessionRepository.DeleteByTokenHash(context, sec.HashToken(token))
}

// # Maintenance

// SweepExpiredSessions deletes sessions that are past their expiry.
func (service *Service) SweepExpiredSessions(context context.Context) (int64, error) {
	removed, err := service.sessionRepository.DeleteExpired(context, service.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		service.logger.Info("expired_sessions_swept", slog.Int64("count", removed))
	}
	return removed, nil
}

// StartSessionSweeper runs [Service.SweepExpiredSessions] every interval
// until context is cancelled.
func (service *Service) StartSessionSweeper(context context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := service.SweepExpiredSessions(context); err != nil && !errors.Is(err, context.Err()) {
					service.logger.Error("session_sweep_failed", slog.Any("error", err))
				}
			case <-context.Done():
				return
			}
		}
	}()
}

// SessionToken extracts the raw session token from the cookie or the
// Authorization header.
func SessionToken(header http.Header) string {
	request := http.Request{Header: header}
	if cookie, err := request.Cookie(constants.SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	scheme, token, found := strings.Cut(header.Get(constants.HeaderAuthorization), " ")
	if found && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
