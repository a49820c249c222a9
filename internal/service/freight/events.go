package freight

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/freightdesk/freightdesk/internal/entity"
)

// Event type discriminators carried in the envelope.
const (
	EventOrderConsolidated     = "order.consolidated"
	EventConsolidationReversed = "consolidation.reversed"
)

// EventEnvelope wraps every message published to the freight events topic.
type EventEnvelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// OrderConsolidatedEvent is emitted after a consolidation commits.
type OrderConsolidatedEvent struct {
	MainOrderID int64           `json:"main_order_id"`
	OrderIDs    []int64         `json:"order_ids"`
	MergedCount int             `json:"merged_count"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// ConsolidationReversedEvent is emitted after a reversal commits.
type ConsolidationReversedEvent struct {
	CollapsedOrderID int64    `json:"collapsed_order_id"`
	CollapsedNumber  string   `json:"collapsed_number"`
	RestoredCount    int      `json:"restored_count"`
	MainNumber       string   `json:"main_number"`
	MemberNumbers    []string `json:"member_numbers"`
	ReversedBy       string   `json:"reversed_by"`
}

func (s *Service) publishConsolidated(ctx context.Context, result *ConsolidateResult, totalPrice decimal.Decimal) {
	if result == nil {
		return
	}
	s.publishEvent(ctx, EventOrderConsolidated, fmt.Sprintf("freight-order-%d", result.MainOrderID), OrderConsolidatedEvent{
		MainOrderID: result.MainOrderID,
		OrderIDs:    result.OrderIDs,
		MergedCount: result.MergedCount,
		TotalPrice:  totalPrice.Round(2),
	})
}

func (s *Service) publishReversed(ctx context.Context, collapsed *entity.FreightOrder, result *ReverseResult, actor Actor, reversedAt time.Time) {
	if result == nil {
		return
	}
	s.publishEvent(ctx, EventConsolidationReversed, fmt.Sprintf("freight-order-%d", collapsed.ID), ConsolidationReversedEvent{
		CollapsedOrderID: collapsed.ID,
		CollapsedNumber:  collapsed.Number,
		RestoredCount:    result.RestoredCount,
		MainNumber:       result.Numbers.Main,
		MemberNumbers:    result.Numbers.Members,
		ReversedBy:       actor.Name,
	})
}

// publishEvent delivers best effort: a broker failure is logged and never
// fails the committed operation.
func (s *Service) publishEvent(ctx context.Context, eventType, key string, payload any) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal event payload", zap.String("type", eventType), zap.Error(err))
		}
		return
	}
	envelope, err := json.Marshal(EventEnvelope{
		Type:       eventType,
		OccurredAt: s.now().UTC(),
		Payload:    body,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal event envelope", zap.String("type", eventType), zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(key), envelope); err != nil {
		if s.logger != nil {
			s.logger.Error("publish freight event", zap.String("type", eventType), zap.Error(err))
		}
	}
}
