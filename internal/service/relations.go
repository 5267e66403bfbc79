package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Toggle outcomes
const (
	ToggleAdded   = "ADDED"
	ToggleRemoved = "REMOVED"
)

// MembershipStore holds the (user, item, kind) triples. Add and Remove are
// each atomic per key.
type MembershipStore interface {
	AddMembership(ctx context.Context, userID, itemID int64, kind models.RelationKind) (added bool, err error)
	RemoveMembership(ctx context.Context, userID, itemID int64, kind models.RelationKind) (removed bool, err error)
	ListMemberships(ctx context.Context, userID int64, kind models.RelationKind) ([]int64, error)
}

// RelationEventPublisher publishes settled toggles, best effort.
type RelationEventPublisher interface {
	PublishRelationToggled(ctx context.Context, event *models.RelationToggledEvent) error
}

// RelationService is one generic toggle engine for every membership kind:
// likes, wishlist entries, show reservations. Kinds are data, not code paths.
type RelationService struct {
	store     MembershipStore
	publisher RelationEventPublisher
	logger    *zap.Logger
}

// NewRelationService creates a new relation service. publisher may be nil.
func NewRelationService(store MembershipStore, publisher RelationEventPublisher) *RelationService {
	return &RelationService{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Toggle flips membership of the (user, item, kind) triple. It is realized
// as at most two atomic store calls: insert-if-absent, and on AlreadyPresent
// a delete-if-present. There is no read-then-branch-then-write at this
// layer, so racing toggles on one key settle into whichever state the
// store's per-key serialization produces.
func (s *RelationService) Toggle(ctx context.Context, userID, itemID int64, kind models.RelationKind) (string, error) {
	ctx, span := util.StartSpan(ctx, "RelationService.Toggle")
	defer span.End()

	if !kind.Valid() {
		return "", ErrInvalidRelationKind
	}

	added, err := s.store.AddMembership(ctx, userID, itemID, kind)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	outcome := ToggleAdded
	if !added {
		// A racing toggle may have removed the row first; either way it
		// is absent after this call.
		if _, err := s.store.RemoveMembership(ctx, userID, itemID, kind); err != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		outcome = ToggleRemoved
	}

	util.RelationTogglesTotal.WithLabelValues(string(kind), outcome).Inc()
	s.publishToggled(ctx, userID, itemID, kind, outcome == ToggleAdded)

	return outcome, nil
}

// List retrieves the item ids a user holds for one relation kind. Order is
// not significant.
func (s *RelationService) List(ctx context.Context, userID int64, kind models.RelationKind) ([]int64, error) {
	if !kind.Valid() {
		return nil, ErrInvalidRelationKind
	}

	items, err := s.store.ListMemberships(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return items, nil
}

func (s *RelationService) publishToggled(ctx context.Context, userID, itemID int64, kind models.RelationKind, present bool) {
	if s.publisher == nil {
		return
	}

	event := &models.RelationToggledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRelationToggled,
			Timestamp: time.Now(),
		},
		UserID:  userID,
		ItemID:  itemID,
		Kind:    kind,
		Present: present,
	}

	if err := s.publisher.PublishRelationToggled(ctx, event); err != nil {
		s.logger.Error("Failed to publish RelationToggled event", zap.Error(err))
	}
}
