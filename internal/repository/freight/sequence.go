package freight

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/freightdesk/freightdesk/internal/entity"
)

// MaxAssignedSeq scans the numbers already assigned within a period and
// returns the highest parsed prefix, or 0 when the period has none. Tokens
// that do not match the NNNN/M/YYYY pattern are skipped.
func (r *Repository) MaxAssignedSeq(ctx context.Context, period entity.Period) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "FreightRepository.MaxAssignedSeq", trace.WithAttributes(attribute.String("period", period.String())))
	defer span.End()

	var numbers []string
	err := r.read().NewSelect().
		Model((*entity.FreightOrder)(nil)).
		Column("number").
		Where("number LIKE ?", "%/"+period.String()).
		Scan(ctx, &numbers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return 0, err
	}

	var max int64
	for _, number := range numbers {
		seq, p, ok := entity.ParseOrderNumber(number)
		if !ok || p != period {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

// NextSequenceRange atomically advances the per-period counter by count and
// returns the new last value; the reserved range is (last-count, last]. The
// counter row is created on first use seeded with seed+count, so a period's
// numbering continues from whatever the legacy scan observed.
func (r *Repository) NextSequenceRange(ctx context.Context, period entity.Period, count int, seed int64) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "FreightRepository.NextSequenceRange", trace.WithAttributes(
		attribute.String("period", period.String()),
		attribute.Int("count", count),
	))
	defer span.End()

	seq := &entity.OrderSequence{
		Month:     int(period.Month),
		Year:      period.Year,
		LastValue: seed + int64(count),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := r.write().NewInsert().
		Model(seq).
		On("CONFLICT (month, year) DO UPDATE").
		Set("last_value = order_sequence.last_value + ?", int64(count)).
		Set("updated_at = EXCLUDED.updated_at").
		Returning("last_value").
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return 0, err
	}
	return seq.LastValue, nil
}
