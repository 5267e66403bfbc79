package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// RatingStore holds one upsertable record per (user, song).
type RatingStore interface {
	UpsertRating(ctx context.Context, userID, songID int64, rating int, comment sql.NullString, submittedAt time.Time) (replaced bool, err error)
	GetRatingAggregate(ctx context.Context, songID int64) (*models.RatingAggregate, error)
}

// AggregateCache caches computed aggregates. Misses are never an error.
type AggregateCache interface {
	GetAggregate(ctx context.Context, songID int64) ([]byte, bool, error)
	SetAggregate(ctx context.Context, songID int64, data []byte, ttl time.Duration) error
	InvalidateAggregate(ctx context.Context, songID int64) error
}

// RatingEventPublisher publishes accepted submissions, best effort.
type RatingEventPublisher interface {
	PublishRatingSubmitted(ctx context.Context, event *models.RatingSubmittedEvent) error
}

// RatingService owns the rating records and the derived aggregate.
type RatingService struct {
	store     RatingStore
	cache     AggregateCache
	publisher RatingEventPublisher
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewRatingService creates a new rating service. cache and publisher may
// be nil.
func NewRatingService(store RatingStore, cache AggregateCache, publisher RatingEventPublisher, cacheTTL time.Duration) *RatingService {
	return &RatingService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		cacheTTL:  cacheTTL,
		logger:    util.GetLogger(),
	}
}

// Submit validates and upserts one user's rating for a song. The upsert is
// a full replace: a nil comment clears any prior comment. The cached
// aggregate for the song is invalidated before returning.
func (s *RatingService) Submit(ctx context.Context, userID, songID int64, rating int, comment *string) (replaced bool, err error) {
	ctx, span := util.StartSpan(ctx, "RatingService.Submit")
	defer span.End()

	if rating < MinRating || rating > MaxRating {
		return false, ErrInvalidRating
	}

	nullComment := sql.NullString{}
	if comment != nil {
		nullComment = sql.NullString{String: *comment, Valid: true}
	}

	replaced, err = s.store.UpsertRating(ctx, userID, songID, rating, nullComment, time.Now())
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateAggregate(ctx, songID); err != nil {
			// The TTL bounds how long the stale aggregate can be served.
			s.logger.Error("Failed to invalidate aggregate cache",
				zap.Int64("song_id", songID),
				zap.Error(err))
		}
	}

	util.RatingsSubmittedTotal.Inc()
	s.publishSubmitted(ctx, userID, songID, rating, replaced)

	return replaced, nil
}

// Aggregate computes the mean and count over all rating records for a
// song, serving from the cache when possible. No records reports
// {Average: 0, Count: 0}. The value is full precision; rounding is a
// display concern.
func (s *RatingService) Aggregate(ctx context.Context, songID int64) (*models.RatingAggregate, error) {
	ctx, span := util.StartSpan(ctx, "RatingService.Aggregate")
	defer span.End()

	if s.cache != nil {
		data, found, err := s.cache.GetAggregate(ctx, songID)
		if err != nil {
			s.logger.Warn("Aggregate cache read failed",
				zap.Int64("song_id", songID),
				zap.Error(err))
		} else if found {
			var agg models.RatingAggregate
			if err := json.Unmarshal(data, &agg); err == nil {
				util.AggregateCacheHits.Inc()
				return &agg, nil
			}
		}
		util.AggregateCacheMisses.Inc()
	}

	agg, err := s.store.GetRatingAggregate(ctx, songID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(agg); err == nil {
			if err := s.cache.SetAggregate(ctx, songID, data, s.cacheTTL); err != nil {
				s.logger.Warn("Aggregate cache write failed",
					zap.Int64("song_id", songID),
					zap.Error(err))
			}
		}
	}

	return agg, nil
}

func (s *RatingService) publishSubmitted(ctx context.Context, userID, songID int64, rating int, replaced bool) {
	if s.publisher == nil {
		return
	}

	event := &models.RatingSubmittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRatingSubmitted,
			Timestamp: time.Now(),
		},
		UserID:   userID,
		SongID:   songID,
		Rating:   rating,
		Replaced: replaced,
	}

	if err := s.publisher.PublishRatingSubmitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish RatingSubmitted event", zap.Error(err))
	}
}
