// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		UpsertVerified creates the account on first sign-in, or marks the
		existing one (matched case-insensitively by email) as verified.

		Parameters:
		  - context: context.Context
		  - user: *User (ID, Name, Email and timestamps for the insert case)

		Returns:
		  - *User: The stored account
		  - bool: True when the account was created by this call
		  - error: Persistence failures
	*/
	UpsertVerified(context context.Context, user *User) (*User, bool, error)
}

// # Session Data Access

// SessionRepository defines the data access contract for sign-in sessions.
type SessionRepository interface {

	/*
		Create persists a new session.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByTokenHash returns the session and its user.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: The session (possibly expired)
		  - *User: Its owner
		  - error: NotFound or retrieval failures
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, *User, error)

	/*
		DeleteByTokenHash removes a session. Missing sessions are not an error.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteByTokenHash(context context.Context, tokenHash string) error

	/*
		DeleteExpired removes every session that expired before cutoff.

		Parameters:
		  - context: context.Context
		  - cutoff: time.Time

		Returns:
		  - int64: Number of removed sessions
		  - error: Persistence failures
	*/
	DeleteExpired(context context.Context, cutoff time.Time) (int64, error)
}

// # Magic Link Ledger

// MagicLinkLedger remembers which magic links were already used.
type MagicLinkLedger interface {

	/*
		Consume marks the link as used.

		Parameters:
		  - context: context.Context
		  - tokenID: string (the link's jti)
		  - ttl: time.Duration (how long to remember it; the link's remaining life)

		Returns:
		  - bool: False when the link had already been consumed
		  - error: Connectivity errors
	*/
	Consume(context context.Context, tokenID string, ttl time.Duration) (bool, error)
}
