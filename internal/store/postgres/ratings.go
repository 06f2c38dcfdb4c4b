package postgres

import (
	"context"
	"time"

	"secdir/internal/logger"
)

// Rating is one user's review of a vendor, joined with the reviewer's name.
type Rating struct {
	ID        int
	VendorID  int
	UserID    int
	Rating    int
	Comment   string
	CreatedAt time.Time
	Username  string
}

// UpsertRating records a rating, replacing the user's previous rating of the
// same vendor if one exists.
func (s *Store) UpsertRating(ctx context.Context, vendorID, userID, rating int, comment string) error {
	q, err := s.query("UPSERT_RATING")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	if _, err := s.pool.Exec(ctx, q, vendorID, userID, rating, comment); err != nil {
		logger.Errorf(ctx, "upsert rating failed: %v", err)
		return err
	}
	return nil
}

// RatingsByVendor lists a vendor's ratings, newest first.
func (s *Store) RatingsByVendor(ctx context.Context, vendorID int) ([]Rating, error) {
	q, err := s.query("GET_RATINGS_BY_VENDOR")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return nil, err
	}

	rows, err := s.pool.Query(ctx, q, vendorID)
	if err != nil {
		logger.Errorf(ctx, "rating listing failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var ratings []Rating
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.ID, &r.VendorID, &r.UserID, &r.Rating, &r.Comment,
			&r.CreatedAt, &r.Username); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}
