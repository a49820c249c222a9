package sequence

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/freightdesk/freightdesk/internal/entity"
	repo "github.com/freightdesk/freightdesk/internal/repository/freight"
	"github.com/freightdesk/freightdesk/pkg/errorbank"
)

var sequencerTracer = otel.Tracer("github.com/freightdesk/freightdesk/service/sequence")

// Sequencer issues fresh, strictly increasing order numbers within a
// (month, year) period. Issuance goes through an atomic per-period counter
// row so two concurrent reservations can never mint overlapping tokens; the
// counter is seeded from the numbers already present in the period.
type Sequencer struct {
	repo   *repo.Repository
	logger *zap.Logger
	now    func() time.Time
}

// Params defines dependencies for constructing Sequencer.
type Params struct {
	fx.In

	Repository *repo.Repository
	Logger     *zap.Logger
}

// NewSequencer wires a new Sequencer instance.
func NewSequencer(p Params) *Sequencer {
	return &Sequencer{
		repo:   p.Repository,
		logger: p.Logger,
		now:    time.Now,
	}
}

// Reserve returns count freshly minted order numbers for the period, ordered
// and pairwise distinct. When the counter cannot be read or advanced the
// sequencer degrades to a timestamp-derived base: tokens stay unique but are
// no longer contiguous with the period's sequence, which is surfaced as a
// warning rather than an error.
func (s *Sequencer) Reserve(ctx context.Context, count int, period entity.Period) ([]string, error) {
	if count <= 0 {
		return nil, errorbank.BadRequest("reservation count must be positive")
	}
	if period.IsZero() {
		period = entity.PeriodOf(s.now().UTC())
	}

	ctx, span := sequencerTracer.Start(ctx, "Sequencer.Reserve", trace.WithAttributes(
		attribute.Int("count", count),
		attribute.String("period", period.String()),
	))
	defer span.End()

	seed, err := s.repo.MaxAssignedSeq(ctx, period)
	if err != nil {
		s.logger.Warn("order number scan failed; falling back to timestamp base",
			zap.String("period", period.String()), zap.Error(err))
		span.SetAttributes(attribute.Bool("fallback", true))
		return s.fallbackTokens(count, period), nil
	}

	last, err := s.repo.NextSequenceRange(ctx, period, count, seed)
	if err != nil {
		s.logger.Warn("sequence counter unavailable; falling back to timestamp base",
			zap.String("period", period.String()), zap.Error(err))
		span.SetAttributes(attribute.Bool("fallback", true))
		return s.fallbackTokens(count, period), nil
	}

	tokens := make([]string, 0, count)
	for seq := last - int64(count) + 1; seq <= last; seq++ {
		tokens = append(tokens, entity.FormatOrderNumber(seq, period))
	}
	return tokens, nil
}

// fallbackTokens derives a base from the clock. Uniqueness within the period
// is preserved in practice; strict sequentiality is not.
func (s *Sequencer) fallbackTokens(count int, period entity.Period) []string {
	base := s.now().UnixMilli() % 100_000_000
	tokens := make([]string, 0, count)
	for i := 0; i < count; i++ {
		tokens = append(tokens, entity.FormatOrderNumber(base+int64(i), period))
	}
	return tokens
}
