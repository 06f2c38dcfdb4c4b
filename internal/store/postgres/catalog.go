package postgres

import (
	"context"

	"secdir/internal/logger"
)

// CatalogEntry is an id/name pair from one of the lookup tables.
type CatalogEntry struct {
	ID   int
	Name string
}

// Countries lists the country lookup table ordered by name.
func (s *Store) Countries(ctx context.Context) ([]CatalogEntry, error) {
	return s.catalog(ctx, "GET_ALL_COUNTRIES")
}

// Products lists the product categories ordered by name.
func (s *Store) Products(ctx context.Context) ([]CatalogEntry, error) {
	return s.catalog(ctx, "GET_ALL_PRODUCTS")
}

// Services lists the service categories ordered by name.
func (s *Store) Services(ctx context.Context) ([]CatalogEntry, error) {
	return s.catalog(ctx, "GET_ALL_SERVICES")
}

func (s *Store) catalog(ctx context.Context, queryName string) ([]CatalogEntry, error) {
	q, err := s.query(queryName)
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return nil, err
	}

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		logger.Errorf(ctx, "catalog listing failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var entries []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
