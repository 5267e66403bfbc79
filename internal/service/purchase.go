package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Purchase statuses
const (
	PurchaseStatusSuccess      = "SUCCESS"
	PurchaseStatusInsufficient = "INSUFFICIENT_INVENTORY"
)

// QuantityBounds is the inclusive per-kind quantity range for one purchase.
type QuantityBounds struct {
	Min int
	Max int
}

// PurchaseClaims marks (user, item) pairs for single-purchase mode.
type PurchaseClaims interface {
	ClaimPurchase(ctx context.Context, userID, itemID int64) (bool, error)
	ReleaseClaim(ctx context.Context, userID, itemID int64) error
}

// HistoryReader reads purchase history recorded by the event worker.
type HistoryReader interface {
	GetPurchasesByUserID(ctx context.Context, userID int64) ([]models.Purchase, error)
	HasPurchased(ctx context.Context, userID, itemID int64) (bool, error)
}

// PurchaseEventPublisher publishes completed purchases for downstream
// consumers. Publishing is best effort and never fails a purchase.
type PurchaseEventPublisher interface {
	PublishPurchaseCompleted(ctx context.Context, event *models.PurchaseCompletedEvent) error
}

// PurchaseResult classifies one purchase attempt. Remaining carries the
// new count on success and the unchanged available count on refusal.
type PurchaseResult struct {
	Status    string `json:"status"`
	Remaining int    `json:"remaining"`
}

// PurchaseService validates purchase requests and delegates the single
// inventory mutation to the pool. It performs no compensation and no
// internal retries; a failed reservation has nothing to undo.
type PurchaseService struct {
	pool      *InventoryPool
	claims    PurchaseClaims
	history   HistoryReader
	publisher PurchaseEventPublisher
	bounds    map[models.ItemKind]QuantityBounds
	logger    *zap.Logger
}

// NewPurchaseService creates a new purchase service. claims may be nil,
// which disables single-purchase enforcement.
func NewPurchaseService(
	pool *InventoryPool,
	claims PurchaseClaims,
	history HistoryReader,
	publisher PurchaseEventPublisher,
	maxSeats, maxUnits int,
) *PurchaseService {
	return &PurchaseService{
		pool:      pool,
		claims:    claims,
		history:   history,
		publisher: publisher,
		bounds: map[models.ItemKind]QuantityBounds{
			models.ItemKindEventSeats: {Min: 1, Max: maxSeats},
			models.ItemKindMerchUnits: {Min: 1, Max: maxUnits},
		},
		logger: util.GetLogger(),
	}
}

// Purchase validates the request and attempts the reservation. Exactly one
// inventory mutation happens on success, none on any failure.
func (s *PurchaseService) Purchase(ctx context.Context, userID int64, kind models.ItemKind, itemID int64, quantity int) (*PurchaseResult, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Purchase")
	defer span.End()

	bounds, ok := s.bounds[kind]
	if !ok || quantity < bounds.Min || quantity > bounds.Max {
		util.ReservationsFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, ErrInvalidQuantity
	}

	claimed := false
	if s.claims != nil {
		ok, err := s.claims.ClaimPurchase(ctx, userID, itemID)
		if err != nil {
			s.logger.Warn("purchase claim check failed, proceeding without it",
				zap.Int64("user_id", userID),
				zap.Int64("item_id", itemID),
				zap.Error(err))
		} else if !ok {
			util.ReservationsFailedTotal.WithLabelValues("already_purchased").Inc()
			return nil, ErrAlreadyPurchased
		} else {
			claimed = true
		}
	}

	start := time.Now()
	result, err := s.pool.Reserve(ctx, itemID, quantity)
	util.ReserveLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		s.releaseClaim(ctx, claimed, userID, itemID)
		util.ReservationsFailedTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if !result.Applied {
		s.releaseClaim(ctx, claimed, userID, itemID)
		util.ReservationsFailedTotal.WithLabelValues("insufficient_inventory").Inc()
		return &PurchaseResult{
			Status:    PurchaseStatusInsufficient,
			Remaining: result.Remaining,
		}, nil
	}

	util.ReservationsTotal.WithLabelValues(string(kind)).Inc()
	s.logger.Info("Reservation applied",
		zap.Int64("user_id", userID),
		zap.Int64("item_id", itemID),
		zap.String("kind", string(kind)),
		zap.Int("quantity", quantity),
		zap.Int("remaining", result.Remaining))

	s.publishCompleted(ctx, userID, kind, itemID, quantity, result.Remaining)

	return &PurchaseResult{
		Status:    PurchaseStatusSuccess,
		Remaining: result.Remaining,
	}, nil
}

func (s *PurchaseService) releaseClaim(ctx context.Context, claimed bool, userID, itemID int64) {
	if !claimed {
		return
	}
	if err := s.claims.ReleaseClaim(ctx, userID, itemID); err != nil {
		s.logger.Error("Failed to release purchase claim",
			zap.Int64("user_id", userID),
			zap.Int64("item_id", itemID),
			zap.Error(err))
	}
}

func (s *PurchaseService) publishCompleted(ctx context.Context, userID int64, kind models.ItemKind, itemID int64, quantity, remaining int) {
	if s.publisher == nil {
		return
	}

	event := &models.PurchaseCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePurchaseCompleted,
			Timestamp: time.Now(),
		},
		UserID:    userID,
		ItemID:    itemID,
		Kind:      kind,
		Quantity:  quantity,
		Remaining: remaining,
	}

	if err := s.publisher.PublishPurchaseCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish PurchaseCompleted event", zap.Error(err))
	}
}

// GetAvailable reports the available count for an item
func (s *PurchaseService) GetAvailable(ctx context.Context, itemID int64) (int, error) {
	return s.pool.GetAvailable(ctx, itemID)
}

// GetPurchases retrieves a user's recorded purchase history
func (s *PurchaseService) GetPurchases(ctx context.Context, userID int64) ([]models.Purchase, error) {
	return s.history.GetPurchasesByUserID(ctx, userID)
}

// HasPurchased reports whether a user has a recorded purchase of an item.
// History is recorded asynchronously from events, so a just-completed
// purchase may not be visible yet.
func (s *PurchaseService) HasPurchased(ctx context.Context, userID, itemID int64) (bool, error) {
	return s.history.HasPurchased(ctx, userID, itemID)
}
