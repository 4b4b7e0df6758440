// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// MagicLinkTTL is how long an emailed sign-in link stays valid.
	MagicLinkTTL = 30 * time.Minute

	// SessionTTL is the lifetime of a session created from a magic link.
	SessionTTL = 7 * 24 * time.Hour

	// SessionTokenLength is the byte length of the random session token.
	SessionTokenLength = 32

	// NameMinLength is the minimum display name length, in characters.
	NameMinLength = 3

	// NameMaxLength caps the display name length, in characters.
	NameMaxLength = 100

	// SessionSweepInterval is how often expired sessions are purged.
	SessionSweepInterval = time.Hour

	// PendingLoginTTL is how long the last requested email and name are kept
	// in a cookie so the error page can offer to resend the link.
	PendingLoginTTL = 15 * time.Minute
)

// # Redirect Targets

const (
	// CallbackPath is where returning users land after signing in.
	CallbackPath = "/todos"

	// NewUserCallbackPath is where first-time users land after signing in.
	NewUserCallbackPath = "/onboarding"

	// ErrorCallbackPath receives failed verifications with an error query parameter.
	ErrorCallbackPath = "/error"
)

// # Messages

const (
	msgInvalidEmail      = "Invalid email address"
	msgNameTooShort      = "username must be at least 3 characters"
	msgMagicLinkFailed   = "Failed to send magic link email. Please try again later."
	msgInvalidMagicLink  = "Magic link is invalid or has expired"
	msgMagicLinkConsumed = "Magic link has already been used"
)

// Error codes appended to [ErrorCallbackPath].
const (
	ErrorCodeInvalidToken = "INVALID_TOKEN"
	ErrorCodeServer       = "SERVER_ERROR"
)
