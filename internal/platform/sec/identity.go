// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "time"

// Identity is the authenticated caller attached to a request by the Auth Gate.
//
// It is a read-only view of the session owner. Handlers never mutate it and
// the session it came from is owned by the users/auth package.
type Identity struct {
	UserID    string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	SessionID string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the backing session is no longer valid at now.
func (identity *Identity) Expired(now time.Time) bool {
	return !now.Before(identity.ExpiresAt)
}
