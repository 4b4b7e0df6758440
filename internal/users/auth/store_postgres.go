// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/todos/internal/platform/database/schema"
	"github.com/taibuivan/todos/internal/platform/dberr"
)

var (
	account = schema.UserAccount
	session = schema.UserSession
)

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
UpsertVerified inserts the account or flags the existing one as verified.

Description: Relies on the unique index over LOWER(email). The existing name
is kept on conflict. xmax is zero only for freshly inserted rows, which tells
the caller whether this was a sign-up.
*/
func (repository *PostgresUserRepository) UpsertVerified(context context.Context, user *User) (*User, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s)
		VALUES ($1, $2, $3, TRUE, $4, $5)
		ON CONFLICT ((LOWER(%[3]s))) DO UPDATE
		SET %[4]s = TRUE, %[5]s = EXCLUDED.%[5]s
		RETURNING %[2]s, (xmax = 0) AS inserted`,
		account.Table, strings.Join(account.Columns(), ", "),
		account.Email, account.EmailVerified, account.UpdatedAt,
	)

	stored := &User{}
	var inserted bool
	err := repository.pool.QueryRow(context, query,
		user.ID, user.Name, user.Email, user.CreatedAt, user.UpdatedAt,
	).Scan(
		&stored.ID, &stored.Name, &stored.Email, &stored.EmailVerified,
		&stored.CreatedAt, &stored.UpdatedAt, &inserted,
	)
	if err != nil {
		return nil, false, dberr.Wrap(err, "upsert_user")
	}

	return stored, inserted, nil
}

// # Session Repository

// PostgresSessionRepository implements [SessionRepository] using pgx.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of the SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

func (repository *PostgresSessionRepository) Create(context context.Context, item *Session) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.Table, strings.Join(session.Columns(), ", "))

	_, err := repository.pool.Exec(context, query,
		item.ID, item.UserID, item.TokenHash, item.IPAddress, item.UserAgent, item.ExpiresAt, item.CreatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "create_session")
	}
	return nil
}

func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, *User, error) {
	query := fmt.Sprintf(`
		SELECT s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s,
		       a.%s, a.%s, a.%s, a.%s, a.%s, a.%s
		FROM %s s
		JOIN %s a ON s.%s = a.%s
		WHERE s.%s = $1`,
		session.ID, session.UserID, session.TokenHash, session.IPAddress, session.UserAgent, session.ExpiresAt, session.CreatedAt,
		account.ID, account.Name, account.Email, account.EmailVerified, account.CreatedAt, account.UpdatedAt,
		session.Table, account.Table, session.UserID, account.ID,
		session.TokenHash,
	)

	item := &Session{}
	user := &User{}
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&item.ID, &item.UserID, &item.TokenHash, &item.IPAddress, &item.UserAgent, &item.ExpiresAt, &item.CreatedAt,
		&user.ID, &user.Name, &user.Email, &user.EmailVerified, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, nil, dberr.Wrap(err, "find_session")
	}

	return item, user, nil
}

func (repository *PostgresSessionRepository) DeleteByTokenHash(context context.Context, tokenHash string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, session.Table, session.TokenHash)

	if _, err := repository.pool.Exec(context, query, tokenHash); err != nil {
		return dberr.Wrap(err, "delete_session")
	}
	return nil
}

func (repository *PostgresSessionRepository) DeleteExpired(context context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`, session.Table, session.ExpiresAt)

	tag, err := repository.pool.Exec(context, query, cutoff)
	if err != nil {
		return 0, dberr.Wrap(err, "delete_expired_sessions")
	}
	return tag.RowsAffected(), nil
}
