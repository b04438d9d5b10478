package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Additional-Code/tableside/internal/database"
	"github.com/Additional-Code/tableside/internal/domain"
	"github.com/Additional-Code/tableside/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/tableside/repository/order")

// Module provides the order repository to Fx.
var Module = fx.Provide(NewRepository)

// Tx is the transactional handle passed to WithTransaction callbacks. Every
// write made through it is rolled back when the callback returns an error.
type Tx interface {
	NextOrderNumber(ctx context.Context) (int64, error)
	Insert(ctx context.Context, order *domain.Order) error
	Save(ctx context.Context, order *domain.Order, expected domain.Status) error
	AppendHistory(ctx context.Context, change domain.StatusChange) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Order, error)
}

// ListFilter narrows order listings. Empty fields are ignored.
type ListFilter struct {
	CustomerID   string
	RestaurantID string
	Status       domain.Status
	Limit        int
	Offset       int
}

// Repository encapsulates read/write access for orders and their history.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// WithTransaction runs fn inside a read-committed transaction on the writer.
func (r *Repository) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.WithTransaction")
	defer span.End()

	name := r.writer.Dialect().Name()

	var opts *sql.TxOptions
	if name != dialect.SQLite {
		opts = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}

	err := r.writer.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &txStore{db: tx, lockRows: name != dialect.SQLite})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction rolled back")
	}
	return err
}

// GetByID fetches an order with its line items using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := findOrder(ctx, r.reader, id, false)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "select failed")
		}
		return nil, err
	}

	items, err := r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// ListItems returns the line items of an order in insertion order.
func (r *Repository) ListItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	var rows []entity.OrderItem
	err := r.reader.NewSelect().Model(&rows).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return itemsToDomain(rows), nil
}

// ListHistory returns the status trail of an order, oldest first.
func (r *Repository) ListHistory(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListHistory", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	var rows []entity.OrderStatusHistory
	err := r.reader.NewSelect().Model(&rows).
		Where("order_id = ?", orderID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, fmt.Errorf("list order history: %w", err)
	}

	changes := make([]domain.StatusChange, 0, len(rows))
	for _, row := range rows {
		changes = append(changes, historyToDomain(row))
	}
	return changes, nil
}

// List returns a page of orders, newest first, and the total match count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]domain.Order, int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List", trace.WithAttributes(
		attribute.String("order.restaurant_id", f.RestaurantID),
		attribute.String("order.customer_id", f.CustomerID),
	))
	defer span.End()

	var rows []entity.Order
	q := r.reader.NewSelect().Model(&rows)
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.RestaurantID != "" {
		q = q.Where("restaurant_id = ?", f.RestaurantID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	total, err := q.Order("order_number DESC").ScanAndCount(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, *toDomain(&rows[i]))
	}
	return orders, total, nil
}

// txStore implements Tx on top of a bun transaction.
type txStore struct {
	db       bun.IDB
	lockRows bool
}

func (t *txStore) NextOrderNumber(ctx context.Context) (int64, error) {
	// An explicit column keeps the insert valid on SQLite, which rejects an
	// empty column list.
	seq := &entity.OrderNumber{IssuedAt: time.Now().UTC()}
	if _, err := t.db.NewInsert().Model(seq).Exec(ctx); err != nil {
		return 0, fmt.Errorf("issue order number: %w", err)
	}
	if seq.ID <= 0 {
		return 0, errors.New("issue order number: store returned no id")
	}
	return seq.ID, nil
}

func (t *txStore) Insert(ctx context.Context, order *domain.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Insert", trace.WithAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int64("order.number", order.Number),
	))
	defer span.End()

	if _, err := t.db.NewInsert().Model(toEntity(order)).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %d", ErrDuplicateNumber, order.Number)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	if len(order.Items) == 0 {
		return nil
	}
	rows := itemsToEntity(order.ID, order.Items)
	if _, err := t.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert items failed")
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

func (t *txStore) Save(ctx context.Context, order *domain.Order, expected domain.Status) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Save", trace.WithAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.status", string(order.Status)),
	))
	defer span.End()

	res, err := t.db.NewUpdate().Model(toEntity(order)).
		Column("status", "updated_at", "completed_at", "cancelled_at").
		Where("id = ?", order.ID).
		Where("status = ?", string(expected)).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "stale status")
		return ErrStaleStatus
	}
	return nil
}

func (t *txStore) AppendHistory(ctx context.Context, change domain.StatusChange) error {
	if _, err := t.db.NewInsert().Model(historyToEntity(change)).Exec(ctx); err != nil {
		return fmt.Errorf("append order history: %w", err)
	}
	return nil
}

func (t *txStore) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return findOrder(ctx, t.db, id, false)
}

// FindByIDForUpdate locks the row until the transaction ends. SQLite has no
// row locks; there the compare-and-set in Save is the only guard.
func (t *txStore) FindByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return findOrder(ctx, t.db, id, t.lockRows)
}

func findOrder(ctx context.Context, db bun.IDB, id string, forUpdate bool) (*domain.Order, error) {
	row := new(entity.Order)
	q := db.NewSelect().Model(row).Where("id = ?", id)
	if forUpdate {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	return toDomain(row), nil
}
