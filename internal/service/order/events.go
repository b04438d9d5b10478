package order

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/domain"
	"github.com/Additional-Code/tableside/internal/messaging"
)

// EventHeader carries the lifecycle event name on bus messages.
const EventHeader = "event"

// LifecycleEvent is the durable record of a committed order change, keyed by
// order id on the bus.
type LifecycleEvent struct {
	Type           string        `json:"type"`
	OrderID        string        `json:"orderId"`
	OrderNumber    int64         `json:"orderNumber"`
	RestaurantID   string        `json:"restaurantId"`
	CustomerID     string        `json:"customerId"`
	Status         domain.Status `json:"status"`
	PreviousStatus domain.Status `json:"previousStatus,omitempty"`
	ActorID        string        `json:"actorId"`
	Note           *string       `json:"note,omitempty"`
	Total          string        `json:"total"`
	OccurredAt     time.Time     `json:"occurredAt"`
}

func newEvent(kind string, o *domain.Order, previous domain.Status, actorID string, note *string, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		Type:           kind,
		OrderID:        o.ID,
		OrderNumber:    o.Number,
		RestaurantID:   o.RestaurantID,
		CustomerID:     o.CustomerID,
		Status:         o.Status,
		PreviousStatus: previous,
		ActorID:        actorID,
		Note:           note,
		Total:          o.Pricing.Total.StringFixed(2),
		OccurredAt:     at,
	}
}

// publish writes the event to the bus. The order is already committed, so
// failures are only logged.
func (s *Service) publish(ctx context.Context, event LifecycleEvent) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal lifecycle event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	msg := messaging.Message{
		Key:     []byte(event.OrderID),
		Value:   payload,
		Headers: map[string]string{EventHeader: event.Type},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("publish lifecycle event",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}
