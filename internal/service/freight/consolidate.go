package freight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/freightdesk/freightdesk/internal/entity"
	repo "github.com/freightdesk/freightdesk/internal/repository/freight"
	"github.com/freightdesk/freightdesk/pkg/errorbank"
)

// ConsolidateInput carries a dispatch response to apply across one or many
// freight orders. The first id in OrderIDs becomes the group's main order.
type ConsolidateInput struct {
	OrderIDs         []int64
	DriverName       string
	DriverPhone      string
	VehicleID        string
	TotalPrice       decimal.Decimal
	PriceBreakdown   map[int64]decimal.Decimal
	TransportDate    time.Time
	VehicleType      string
	TransportType    string
	RouteSequence    []entity.Stop
	Notes            string
	CargoDescription string
	TotalWeight      *decimal.Decimal
	TotalDistance    *decimal.Decimal
	GoodsPrice       *decimal.Decimal
}

// ConsolidateResult reports the affected orders and the designated main.
type ConsolidateResult struct {
	MainOrderID int64
	MergedCount int
	OrderIDs    []int64
}

func (in ConsolidateInput) validate() error {
	var missing []string
	if len(in.OrderIDs) == 0 {
		missing = append(missing, "order_ids")
	}
	if in.DriverName == "" {
		missing = append(missing, "driver_name")
	}
	if in.DriverPhone == "" {
		missing = append(missing, "driver_phone")
	}
	if !in.TotalPrice.IsPositive() {
		missing = append(missing, "total_price")
	}
	if in.TransportDate.IsZero() {
		missing = append(missing, "transport_date")
	}
	if in.VehicleType == "" {
		missing = append(missing, "vehicle_type")
	}
	if in.TransportType == "" {
		missing = append(missing, "transport_type")
	}
	if len(missing) > 0 {
		return errorbank.BadRequest("missing required dispatch fields", errorbank.WithDetail("fields", missing))
	}

	seen := make(map[int64]struct{}, len(in.OrderIDs))
	for _, id := range in.OrderIDs {
		if _, dup := seen[id]; dup {
			return errorbank.BadRequest("duplicate order ids in request", errorbank.WithDetail("id", id))
		}
		seen[id] = struct{}{}
	}

	if len(in.PriceBreakdown) > 0 {
		var uncovered []int64
		for _, id := range in.OrderIDs {
			if _, ok := in.PriceBreakdown[id]; !ok {
				uncovered = append(uncovered, id)
			}
		}
		if len(uncovered) > 0 {
			return errorbank.BadRequest("price breakdown does not cover every order", errorbank.WithDetail("ids", uncovered))
		}
	}

	return nil
}

// allocations computes the per-order price split, rounded to 2 decimal
// places. With no breakdown the total is split evenly; the sum may then
// drift from the total by at most 0.01 per order.
func (in ConsolidateInput) allocations() map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal, len(in.OrderIDs))
	if len(in.PriceBreakdown) > 0 {
		for _, id := range in.OrderIDs {
			out[id] = in.PriceBreakdown[id].Round(2)
		}
		return out
	}
	share := in.TotalPrice.DivRound(decimal.NewFromInt(int64(len(in.OrderIDs))), 2)
	for _, id := range in.OrderIDs {
		out[id] = share
	}
	return out
}

// Consolidate applies one dispatch response across the requested orders
// inside a single transaction: every row moves to Responded together or the
// call changes nothing. With more than one order the first id becomes the
// group main carrying the full dispatch record, group total and breakdown;
// the remaining rows get their allocated price, the shared classification
// and a note pointing back at the main order's number.
func (s *Service) Consolidate(ctx context.Context, in ConsolidateInput) (*ConsolidateResult, error) {
	ctx, span := serviceTracer.Start(ctx, "FreightService.Consolidate", trace.WithAttributes(
		attribute.Int("order.count", len(in.OrderIDs)),
	))
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}
	allocations := in.allocations()

	var result *ConsolidateResult
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx *repo.Repository) error {
		orders, err := tx.ListByIDs(ctx, in.OrderIDs)
		if err != nil {
			return err
		}
		byID, err := checkConsolidatable(in.OrderIDs, orders)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		main := byID[in.OrderIDs[0]]
		total := in.TotalPrice.Round(2)

		if len(in.OrderIDs) == 1 {
			main.DispatchResponse = s.dispatchFor(in, allocations[main.ID], nil, nil)
			main.Status = entity.StatusResponded
			main.RespondedAt = &now
			if err := tx.Update(ctx, main); err != nil {
				return err
			}
		} else {
			main.DispatchResponse = s.dispatchFor(in, allocations[main.ID], &total, allocations)
			main.Status = entity.StatusResponded
			main.RespondedAt = &now
			main.ConsolidationMeta = entity.MainOf(in.OrderIDs)
			if err := tx.Update(ctx, main); err != nil {
				return err
			}

			for _, id := range in.OrderIDs[1:] {
				member := byID[id]
				member.DispatchResponse = &entity.DispatchResponse{
					AllocatedPrice: allocations[id],
					VehicleType:    in.VehicleType,
					TransportType:  in.TransportType,
					TransportDate:  in.TransportDate,
					Notes:          fmt.Sprintf("Consolidated under order %s", main.Number),
				}
				member.Status = entity.StatusResponded
				member.RespondedAt = &now
				member.ConsolidationMeta = entity.MemberOf(main.ID)
				if err := tx.Update(ctx, member); err != nil {
					return err
				}
			}
		}

		result = &ConsolidateResult{
			MainOrderID: main.ID,
			MergedCount: len(in.OrderIDs),
			OrderIDs:    in.OrderIDs,
		}
		return nil
	})
	if err != nil {
		var appErr *errorbank.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		return nil, errorbank.Internal("consolidation transaction failed", errorbank.WithCause(err))
	}

	s.dropFromCache(ctx, in.OrderIDs...)
	s.publishConsolidated(ctx, result, in.TotalPrice)

	if s.logger != nil {
		s.logger.Info("orders consolidated",
			zap.Int64("main_order_id", result.MainOrderID),
			zap.Int("merged_count", result.MergedCount),
		)
	}
	return result, nil
}

// dispatchFor assembles the full dispatch record written to a single order
// or a group main.
func (s *Service) dispatchFor(in ConsolidateInput, allocated decimal.Decimal, groupTotal *decimal.Decimal, breakdown map[int64]decimal.Decimal) *entity.DispatchResponse {
	return &entity.DispatchResponse{
		DriverName:       in.DriverName,
		DriverPhone:      in.DriverPhone,
		VehicleID:        in.VehicleID,
		AllocatedPrice:   allocated,
		TotalGroupPrice:  groupTotal,
		PriceBreakdown:   breakdown,
		GoodsPrice:       in.GoodsPrice,
		CargoWeight:      in.TotalWeight,
		CargoDescription: in.CargoDescription,
		VehicleType:      in.VehicleType,
		TransportType:    in.TransportType,
		TransportDate:    in.TransportDate,
		TotalDistance:    in.TotalDistance,
		RouteSequence:    in.RouteSequence,
		Notes:            in.Notes,
	}
}

// checkConsolidatable verifies every requested id resolved to a row in New
// status that is not a collapsed stand-in. The returned error names every
// offending id so the caller can fix the whole request at once.
func checkConsolidatable(ids []int64, orders []*entity.FreightOrder) (map[int64]*entity.FreightOrder, error) {
	byID := make(map[int64]*entity.FreightOrder, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}

	var missing []int64
	statuses := make(map[int64]string)
	var collapsed []int64
	for _, id := range ids {
		o, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if o.IsCollapsed() {
			collapsed = append(collapsed, id)
			continue
		}
		if o.Status != entity.StatusNew {
			statuses[id] = string(o.Status)
		}
	}

	if len(missing) > 0 {
		return nil, errorbank.NotFound("orders not found", errorbank.WithDetail("ids", missing))
	}
	if len(collapsed) > 0 {
		return nil, errorbank.Conflict("collapsed orders cannot be consolidated", errorbank.WithDetail("ids", collapsed))
	}
	if len(statuses) > 0 {
		return nil, errorbank.Conflict("orders are not awaiting a dispatch response", errorbank.WithDetail("statuses", statuses))
	}
	return byID, nil
}
