package worker

import (
	"context"
	"fmt"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// HistoryStore captures the persistence needs of the history worker.
type HistoryStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	RecordPurchase(ctx context.Context, p *models.Purchase) error
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// HistoryWorker consumes PurchaseCompleted events and records purchase
// history rows. Replayed events are no-ops: the event id is checked
// against the processed-events table and the purchase row itself carries
// a unique constraint on it.
type HistoryWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        HistoryStore
	logger       *zap.Logger
}

// NewHistoryWorker creates a new history worker
func NewHistoryWorker(consumer *broker.Consumer, store HistoryStore) *HistoryWorker {
	w := &HistoryWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPurchaseCompleted(w.handlePurchaseCompleted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *HistoryWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting history worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *HistoryWorker) Stop() error {
	w.logger.Info("Stopping history worker")
	return w.consumer.Close()
}

func (w *HistoryWorker) handlePurchaseCompleted(ctx context.Context, event *models.PurchaseCompletedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check processed event: %w", err)
	}
	if processed {
		w.logger.Debug("Skipping already processed event",
			zap.String("event_id", event.EventID))
		return nil
	}

	purchase := &models.Purchase{
		UserID:   event.UserID,
		ItemID:   event.ItemID,
		Kind:     event.Kind,
		Quantity: event.Quantity,
		EventID:  event.EventID,
	}

	if err := w.store.RecordPurchase(ctx, purchase); err != nil {
		return fmt.Errorf("failed to record purchase: %w", err)
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	util.PurchasesRecordedTotal.Inc()
	w.logger.Info("Purchase recorded",
		zap.Int64("user_id", event.UserID),
		zap.Int64("item_id", event.ItemID),
		zap.Int("quantity", event.Quantity))

	return nil
}
