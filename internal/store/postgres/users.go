package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"secdir/internal/logger"
)

// User is an account row. Password is the stored plaintext credential; the
// column keeps its historical password_hash name.
type User struct {
	ID       int
	Username string
	Password string
	IsAdmin  bool
}

// UserByUsername looks an account up by exact username.
func (s *Store) UserByUsername(ctx context.Context, username string) (User, bool, error) {
	q, err := s.query("GET_USER")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return User{}, false, err
	}

	var u User
	err = s.pool.QueryRow(ctx, q, username).Scan(&u.ID, &u.Username, &u.Password, &u.IsAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		logger.Errorf(ctx, "user lookup failed: %v", err)
		return User{}, false, err
	}
	return u, true, nil
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, username, password string, isAdmin bool) error {
	q, err := s.query("CREATE_USER")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	if _, err := s.pool.Exec(ctx, q, username, password, isAdmin); err != nil {
		logger.Errorf(ctx, "create user failed: %v", err)
		return err
	}
	return nil
}
