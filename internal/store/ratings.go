package store

import (
	"context"
	"database/sql"
	"time"

	"storefront/internal/models"
)

// UpsertRating creates or fully replaces the rating record keyed by
// (user, song). An unset comment on resubmission clears any prior comment.
// Returns true when an existing record was replaced.
func (s *Store) UpsertRating(ctx context.Context, userID, songID int64, rating int, comment sql.NullString, submittedAt time.Time) (bool, error) {
	var replaced bool
	err := s.db.GetContext(ctx, &replaced,
		`INSERT INTO ratings (user_id, song_id, rating, comment, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, song_id) DO UPDATE
		 SET rating = EXCLUDED.rating,
		     comment = EXCLUDED.comment,
		     submitted_at = EXCLUDED.submitted_at
		 RETURNING (xmax <> 0)`,
		userID, songID, rating, comment, submittedAt)
	return replaced, err
}

// GetRating retrieves one user's rating for a song
func (s *Store) GetRating(ctx context.Context, userID, songID int64) (*models.Rating, error) {
	var r models.Rating
	err := s.db.GetContext(ctx, &r,
		"SELECT * FROM ratings WHERE user_id = $1 AND song_id = $2",
		userID, songID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRatingAggregate computes the mean and count over all rating records
// for a song. No records reports average 0.
func (s *Store) GetRatingAggregate(ctx context.Context, songID int64) (*models.RatingAggregate, error) {
	var agg models.RatingAggregate
	err := s.db.GetContext(ctx, &agg,
		`SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count
		 FROM ratings WHERE song_id = $1`,
		songID)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}
