package freight

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/freightdesk/freightdesk/internal/database"
	"github.com/freightdesk/freightdesk/internal/entity"
)

var repoTracer = otel.Tracer("github.com/freightdesk/freightdesk/repository/freight")

// ErrNotFound is returned when a freight order is missing.
var ErrNotFound = errors.New("freight order not found")

// Repository encapsulates read/write access for freight orders and the
// order-number sequence counters. Inside RunInTx all methods run against
// the transaction handle, so a multi-row mutation is all-or-nothing.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
	tx     bun.IDB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// RunInTx executes fn against a transaction-scoped repository. Any error from
// fn rolls the whole transaction back; nil commits it.
func (r *Repository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *Repository) error) error {
	ctx, span := repoTracer.Start(ctx, "FreightRepository.RunInTx")
	defer span.End()

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Repository{writer: r.writer, reader: r.reader, tx: tx})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
	}
	return err
}

func (r *Repository) write() bun.IDB {
	if r.tx != nil {
		return r.tx
	}
	return r.writer
}

func (r *Repository) read() bun.IDB {
	if r.tx != nil {
		return r.tx
	}
	return r.reader
}

// Insert persists a new freight order.
func (r *Repository) Insert(ctx context.Context, order *entity.FreightOrder) error {
	if order == nil {
		return errors.New("nil freight order")
	}
	ctx, span := repoTracer.Start(ctx, "FreightRepository.Insert", trace.WithAttributes(attribute.String("order.number", order.Number)))
	defer span.End()

	_, err := r.write().NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// Update persists the mutable fields of an existing order by primary key.
func (r *Repository) Update(ctx context.Context, order *entity.FreightOrder) error {
	if order == nil {
		return errors.New("nil freight order")
	}
	ctx, span := repoTracer.Start(ctx, "FreightRepository.Update", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	order.UpdatedAt = time.Now().UTC()
	res, err := r.write().NewUpdate().Model(order).WherePK().Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}

// Delete removes an order row and reports whether it existed.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "FreightRepository.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := r.write().NewDelete().Model((*entity.FreightOrder)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}

// GetByID fetches an order by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.FreightOrder, error) {
	ctx, span := repoTracer.Start(ctx, "FreightRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.FreightOrder)
	err := r.read().NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// GetByNumber fetches an order by its human-readable number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*entity.FreightOrder, error) {
	ctx, span := repoTracer.Start(ctx, "FreightRepository.GetByNumber", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	order := new(entity.FreightOrder)
	err := r.read().NewSelect().Model(order).Where("number = ?", number).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// ListByIDs loads every order matching ids. The result may be shorter than
// ids when some rows do not exist; callers decide how to treat the gap.
func (r *Repository) ListByIDs(ctx context.Context, ids []int64) ([]*entity.FreightOrder, error) {
	ctx, span := repoTracer.Start(ctx, "FreightRepository.ListByIDs", trace.WithAttributes(attribute.Int("order.count", len(ids))))
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	var orders []*entity.FreightOrder
	err := r.read().NewSelect().Model(&orders).Where("id IN (?)", bun.In(ids)).Order("id ASC").Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}
