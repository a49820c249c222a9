package freight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/freightdesk/freightdesk/internal/entity"
	repo "github.com/freightdesk/freightdesk/internal/repository/freight"
	"github.com/freightdesk/freightdesk/pkg/errorbank"
)

// mergedNoteMarker is the suffix appended to a collapsed row's notes when the
// group was merged; reversal strips it before restoring the main order.
const mergedNoteMarker = "(merged"

// RestoredNumbers partitions the freshly issued order numbers of a reversal.
type RestoredNumbers struct {
	Main    string
	Members []string
}

// ReverseResult reports a completed reversal.
type ReverseResult struct {
	RestoredCount int
	Numbers       RestoredNumbers
}

// Reverse expands one collapsed order back into independent orders. It
// reserves len(snapshots)+1 fresh numbers for the collapsed row's period,
// then, inside a single transaction, inserts the restored main (from the
// collapsed row's own fields), inserts one row per snapshot and deletes the
// collapsed row. Every restored row starts in New with no consolidation tag
// and a provenance note naming the actor and the reversal time.
func (s *Service) Reverse(ctx context.Context, collapsedID int64, actor Actor) (*ReverseResult, error) {
	ctx, span := serviceTracer.Start(ctx, "FreightService.Reverse", trace.WithAttributes(
		attribute.Int64("order.id", collapsedID),
	))
	defer span.End()

	if !actor.Admin {
		return nil, errorbank.Forbidden("administrator privilege required to reverse a consolidation")
	}

	collapsed, err := s.repo.GetByID(ctx, collapsedID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("collapsed order not found", errorbank.WithDetail("id", collapsedID))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load collapsed order", errorbank.WithCause(err))
	}
	if !collapsed.IsCollapsed() {
		return nil, errorbank.BadRequest("order is not a collapsed consolidation", errorbank.WithDetail("id", collapsedID))
	}
	snapshots := collapsed.ConsolidationMeta.Snapshots
	if len(snapshots) == 0 {
		return nil, errorbank.BadRequest("collapsed order has no snapshots to restore", errorbank.WithDetail("id", collapsedID))
	}

	period := periodOfOrder(collapsed)
	numbers, err := s.sequencer.Reserve(ctx, len(snapshots)+1, period)
	if err != nil {
		return nil, err
	}

	reversedAt := s.now().UTC()
	provenance := fmt.Sprintf("Consolidation reversed by %s at %s", actor.Name, reversedAt.Format("2006-01-02 15:04:05"))

	var result *ReverseResult
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx *repo.Repository) error {
		// Re-read inside the transaction so a concurrent reversal of the
		// same row fails here instead of restoring the group twice.
		row, err := tx.GetByID(ctx, collapsedID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errorbank.NotFound("collapsed order no longer exists", errorbank.WithDetail("id", collapsedID))
			}
			return err
		}
		if !row.IsCollapsed() {
			return errorbank.Conflict("order is no longer a collapsed consolidation", errorbank.WithDetail("id", collapsedID))
		}

		main := restoredMain(row, numbers[0], provenance)
		main.CreatedAt = reversedAt
		if err := tx.Insert(ctx, main); err != nil {
			return err
		}

		memberNote := fmt.Sprintf("Restored from consolidated order %s; %s", row.Number, provenance)
		members := make([]string, 0, len(snapshots))
		for i, snapshot := range snapshots {
			restored := snapshot.Restore()
			restored.Number = numbers[i+1]
			restored.CreatedAt = reversedAt
			restored.Notes = appendNote(restored.Notes, memberNote)
			if err := tx.Insert(ctx, restored); err != nil {
				return err
			}
			members = append(members, restored.Number)
		}

		if err := tx.Delete(ctx, row.ID); err != nil {
			return err
		}

		result = &ReverseResult{
			RestoredCount: len(snapshots) + 1,
			Numbers:       RestoredNumbers{Main: numbers[0], Members: members},
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
		return nil, errorbank.Internal("reversal transaction failed", errorbank.WithCause(err))
	}

	s.dropFromCache(ctx, collapsedID)
	s.publishReversed(ctx, collapsed, result, actor, reversedAt)

	if s.logger != nil {
		s.logger.Info("consolidation reversed",
			zap.Int64("collapsed_order_id", collapsedID),
			zap.String("collapsed_number", collapsed.Number),
			zap.Int("restored_count", result.RestoredCount),
			zap.String("actor", actor.Name),
		)
	}
	return result, nil
}

// periodOfOrder derives the issuing period from the row's own number token,
// falling back to its creation timestamp for malformed tokens.
func periodOfOrder(o *entity.FreightOrder) entity.Period {
	if _, p, ok := entity.ParseOrderNumber(o.Number); ok {
		return p
	}
	return entity.PeriodOf(o.CreatedAt)
}

// restoredMain rebuilds an independent order from the collapsed row's own
// business fields under a freshly issued number.
func restoredMain(row *entity.FreightOrder, number, provenance string) *entity.FreightOrder {
	return &entity.FreightOrder{
		Number:             number,
		Status:             entity.StatusNew,
		ClientName:         row.ClientName,
		Origin:             row.Origin,
		OriginAddress:      row.OriginAddress,
		DestinationAddress: row.DestinationAddress,
		LoadingContact:     row.LoadingContact,
		UnloadingContact:   row.UnloadingContact,
		DeliveryDate:       row.DeliveryDate,
		Documents:          row.Documents,
		DistanceKM:         row.DistanceKM,
		Cargo:              row.Cargo,
		MPK:                row.MPK,
		Notes:              appendNote(stripMergedNote(row.Notes), provenance),
		CreatedBy:          row.CreatedBy,
		CreatedByContact:   row.CreatedByContact,
		ResponsibleName:    row.ResponsibleName,
		ResponsibleContact: row.ResponsibleContact,
	}
}

// stripMergedNote removes the stale merged suffix left over from the collapse.
func stripMergedNote(notes string) string {
	if i := strings.Index(notes, mergedNoteMarker); i >= 0 {
		return strings.TrimSpace(notes[:i])
	}
	return notes
}

func appendNote(notes, addition string) string {
	if notes == "" {
		return addition
	}
	return notes + "\n" + addition
}
