package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/messaging"
	ordersvc "github.com/Additional-Code/tableside/internal/service/order"
	"github.com/Additional-Code/tableside/internal/worker"
	"github.com/Additional-Code/tableside/pkg/errorbank"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/tableside/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			func(svc *ordersvc.Service, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
				return NewLifecycleHandler(svc, logger, cfg)
			},
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// Refresher reloads an order into the read cache.
type Refresher interface {
	Refresh(ctx context.Context, orderID string) error
}

// NewLifecycleHandler consumes order lifecycle events. Each event refreshes
// the cached order so API replicas that did not handle the write serve the
// committed state.
func NewLifecycleHandler(svc Refresher, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.lifecycle", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.String("messaging.event", msg.Headers[ordersvc.EventHeader]),
		))
		defer span.End()

		var event ordersvc.LifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil || event.OrderID == "" {
			if err == nil {
				err = errorbank.Validation("lifecycle event without order id")
			}
			logger.Error("skipping undecodable lifecycle event", zap.Int64("offset", msg.Offset), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return nil
		}
		span.SetAttributes(attribute.String("order.id", event.OrderID))

		if err := svc.Refresh(ctx, event.OrderID); err != nil {
			if errorbank.IsKind(err, errorbank.KindNotFound) {
				logger.Warn("lifecycle event for unknown order", zap.String("order_id", event.OrderID))
				return nil
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "refresh failed")
			return err
		}

		logger.Info("order lifecycle event processed",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Int64("number", event.OrderNumber),
			zap.String("status", string(event.Status)),
		)
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
