// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements passwordless sign-in and the sessions behind the
request gate.

It issues single-use magic links, turns a verified link into a session cookie
and resolves that cookie back into a [sec.Identity] on every request.

# Architecture

  - Service: Orchestrates magic links, sessions and sign-out.
  - Repository: Postgres for users and sessions, Redis for spent link IDs.
  - Mailer: Delivers the sign-in link.
*/
package auth

import "time"

// # Domain Entities

// User is a person who signed in at least once.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Session binds a hashed bearer token to a user until ExpiresAt.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TokenHash string    `json:"-"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// # Field Identifiers

const (
	FieldEmail   = "email"
	FieldName    = "name"
	FieldToken   = "token"
	FieldUser    = "user"
	FieldSession = "session"
	FieldSuccess = "success"
)
