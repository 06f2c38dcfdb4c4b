// Package postgres is the relational backend for users, sessions, vendors,
// ratings and the catalog tables. Every statement is resolved by name from
// the query template registry; a missing template is reported, never replaced
// with substitute SQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"secdir/internal/queries"
)

type Store struct {
	pool    *pgxpool.Pool
	queries queries.Registry
}

// New creates the store, bootstrapping the schema and seed data.
func New(ctx context.Context, pool *pgxpool.Pool, reg queries.Registry) (*Store, error) {
	s := &Store{pool: pool, queries: reg}
	if err := s.bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("postgres: bootstrap: %w", err)
	}
	return s, nil
}

// query resolves a template by name.
func (s *Store) query(name string) (string, error) {
	return s.queries.Get(name)
}
