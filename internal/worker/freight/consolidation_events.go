package freight

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/freightdesk/freightdesk/internal/config"
	"github.com/freightdesk/freightdesk/internal/messaging"
	freightsvc "github.com/freightdesk/freightdesk/internal/service/freight"
	"github.com/freightdesk/freightdesk/internal/worker"
)

var workerTracer = otel.Tracer("github.com/freightdesk/freightdesk/worker/freight")

// Module registers freight-related worker handlers.
var Module = fx.Module("worker_freight",
	fx.Provide(
		fx.Annotate(
			NewConsolidationEventsHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewConsolidationEventsHandler sets up a worker handler that writes an audit
// log line for every consolidation and reversal event on the bus.
func NewConsolidationEventsHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.freight.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var envelope freightsvc.EventEnvelope
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			logger.Error("failed to decode freight event envelope", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		switch envelope.Type {
		case freightsvc.EventOrderConsolidated:
			var event freightsvc.OrderConsolidatedEvent
			if err := json.Unmarshal(envelope.Payload, &event); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "decode error")
				return err
			}
			logger.Info("order consolidated event processed",
				zap.Int64("main_order_id", event.MainOrderID),
				zap.Int("merged_count", event.MergedCount),
				zap.String("total_price", event.TotalPrice.StringFixed(2)),
			)
		case freightsvc.EventConsolidationReversed:
			var event freightsvc.ConsolidationReversedEvent
			if err := json.Unmarshal(envelope.Payload, &event); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "decode error")
				return err
			}
			logger.Info("consolidation reversed event processed",
				zap.Int64("collapsed_order_id", event.CollapsedOrderID),
				zap.String("collapsed_number", event.CollapsedNumber),
				zap.Int("restored_count", event.RestoredCount),
				zap.String("reversed_by", event.ReversedBy),
			)
		default:
			logger.Warn("unknown freight event type", zap.String("type", envelope.Type))
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
