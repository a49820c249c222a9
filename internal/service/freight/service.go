package freight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/freightdesk/freightdesk/internal/cache"
	"github.com/freightdesk/freightdesk/internal/config"
	"github.com/freightdesk/freightdesk/internal/entity"
	"github.com/freightdesk/freightdesk/internal/messaging"
	repo "github.com/freightdesk/freightdesk/internal/repository/freight"
	"github.com/freightdesk/freightdesk/internal/service/sequence"
	"github.com/freightdesk/freightdesk/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/freightdesk/freightdesk/service/freight")

// Actor identifies the person invoking an administrative operation.
type Actor struct {
	Name  string
	Email string
	Admin bool
}

// Service encapsulates the freight order business logic: the cached read
// path plus the consolidation and reversal engines.
type Service struct {
	repo      *repo.Repository
	sequencer *sequence.Sequencer
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
	now       func() time.Time
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Sequencer  *sequence.Sequencer
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		sequencer: p.Sequencer,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		now: time.Now,
	}
}

// Get retrieves a freight order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.FreightOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "FreightService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("freight orders cache read failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("freight order not found", errorbank.WithDetail("id", id))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load freight order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		if s.logger != nil {
			s.logger.Warn("freight orders cache write failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	return order, nil
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("freight-orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.FreightOrder, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.FreightOrder
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.FreightOrder) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL)
}

// dropFromCache evicts stale entries after a mutation. Best effort only.
func (s *Service) dropFromCache(ctx context.Context, ids ...int64) {
	if s.cache == nil {
		return
	}
	for _, id := range ids {
		if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil && s.logger != nil {
			s.logger.Warn("freight orders cache evict failed", zap.Int64("id", id), zap.Error(err))
		}
	}
}
