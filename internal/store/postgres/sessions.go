package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"secdir/internal/logger"
	"secdir/internal/session"
)

// CreateSession stores a new session token with its absolute expiry.
func (s *Store) CreateSession(ctx context.Context, token string, userID int, expiresAt time.Time) error {
	q, err := s.query("CREATE_SESSION")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	if _, err := s.pool.Exec(ctx, q, token, userID, expiresAt); err != nil {
		logger.Errorf(ctx, "create session failed: %v", err)
		return err
	}
	return nil
}

// SessionByToken resolves a token to a session; the query itself filters out
// expired rows.
func (s *Store) SessionByToken(ctx context.Context, token string) (session.Session, bool, error) {
	q, err := s.query("GET_SESSION")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return session.Session{}, false, err
	}

	var sess session.Session
	err = s.pool.QueryRow(ctx, q, token).Scan(
		&sess.Token, &sess.UserID, &sess.Username, &sess.IsAdmin, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.Session{}, false, nil
	}
	if err != nil {
		logger.Errorf(ctx, "session lookup failed: %v", err)
		return session.Session{}, false, err
	}
	return sess, true, nil
}

// DeleteSession removes a session row; deleting an unknown token succeeds.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	q, err := s.query("DELETE_SESSION")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	if _, err := s.pool.Exec(ctx, q, token); err != nil {
		logger.Errorf(ctx, "delete session failed: %v", err)
		return err
	}
	return nil
}

// DeleteSessionsForUser removes every session belonging to a user.
func (s *Store) DeleteSessionsForUser(ctx context.Context, userID int) error {
	q, err := s.query("DELETE_USER_SESSIONS")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	if _, err := s.pool.Exec(ctx, q, userID); err != nil {
		logger.Errorf(ctx, "delete user sessions failed: %v", err)
		return err
	}
	return nil
}
