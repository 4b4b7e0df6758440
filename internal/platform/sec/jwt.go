// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, token signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer.
package sec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptySecret is returned when a [TokenService] is built without a key.
var ErrEmptySecret = errors.New("sec: signing secret must not be empty")

// MagicLinkClaims is the payload of a sign-in link.
//
// The token carries the email and display name so verification needs no
// pending-login table. Its ID (jti) is used to enforce single use.
type MagicLinkClaims struct {
	jwt.RegisteredClaims

	Email string `json:"eml"`
	Name  string `json:"nam"`
}

// TokenService signs and verifies magic-link tokens with HS256.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}

	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// IssueMagicLink creates a signed token for the given email that expires after timeToLive.
func (service *TokenService) IssueMagicLink(tokenID, email, name string, timeToLive time.Duration) (string, error) {
	currentTime := service.now()
	claims := MagicLinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   email,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Email: email,
		Name:  name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyMagicLink checks the signature, issuer and expiry of a magic-link token.
func (service *TokenService) VerifyMagicLink(tokenString string) (*MagicLinkClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &MagicLinkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	},
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*MagicLinkClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
