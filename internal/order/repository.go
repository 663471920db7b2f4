package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/royalartisanat/shop-api/internal/catalog"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderIDTaken means another order claimed the allocated identifier
	// between allocation and insert. The caller retries with a fresh one.
	ErrOrderIDTaken = errors.New("order id already taken")
)

type Repository interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
	// CreateOrder persists the order, its items and the stock decrement for
	// each item as one atomic transaction. On any failure nothing is
	// committed.
	CreateOrder(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, status Status, limit int) ([]Order, error)
	// UpdateStatus moves the order from one status to another as a single
	// compare-and-set. ErrInvalidStatusTransition is returned when the stored
	// status no longer matches from, so two concurrent updates cannot both
	// win from the same observed state.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	// Delete removes the order and its items and restores the reserved stock
	// in the same transaction. ErrOrderFulfilled is returned for delivered
	// orders; the status is checked under a row lock inside the transaction.
	Delete(ctx context.Context, id string) error
}

type postgresRepository struct {
	db     *pgxpool.Pool
	ledger catalog.Ledger
}

func NewRepository(db *pgxpool.Pool, ledger catalog.Ledger) Repository {
	return &postgresRepository{db: db, ledger: ledger}
}

func (r *postgresRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check order id %s: %w", id, err)
	}
	return exists, nil
}

func (r *postgresRepository) CreateOrder(ctx context.Context, o *Order) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	queryOrder := `
		INSERT INTO orders (id, user_id, status, payment_status, payment_method, total_amount, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.Exec(ctx, queryOrder,
		o.ID,
		o.UserID,
		string(o.Status),
		string(o.PaymentStatus),
		o.PaymentMethod,
		o.TotalAmount,
		o.ShippingAddress,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrOrderIDTaken
		}
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i := range o.OrderItems {
		item := &o.OrderItems[i]

		itemID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order item id: %w", genErr)
		}
		item.ID = itemID
		item.OrderID = o.ID
		item.CreatedAt = now

		if _, err = tx.Exec(ctx, queryItem,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.Price,
			item.CreatedAt,
		); err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}

		// Authoritative stock check. The whole transaction aborts when any
		// item cannot be covered, so no partially created order survives.
		if err = r.ledger.Decrement(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*Order, error) {
	queryOrder := `
		SELECT id, user_id, status, payment_status, payment_method, total_amount, shipping_address, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o Order
	err := r.db.QueryRow(ctx, queryOrder, id).Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentMethod,
		&o.TotalAmount,
		&o.ShippingAddress,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	items, err := r.itemsForOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	o.OrderItems = items

	return &o, nil
}

func (r *postgresRepository) itemsForOrder(ctx context.Context, orderID string) ([]OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order %s: %w", orderID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order %s: %w", orderID, err)
	}

	return items, nil
}

func (r *postgresRepository) List(ctx context.Context, status Status, limit int) ([]Order, error) {
	query := `
		SELECT id, user_id, status, payment_status, payment_method, total_amount, shipping_address, created_at, updated_at
		FROM orders
	`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	ordersMap := make(map[string]*Order)
	var orderIDs []string

	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.PaymentStatus,
			&o.PaymentMethod,
			&o.TotalAmount,
			&o.ShippingAddress,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		o.OrderItems = make([]OrderItem, 0)
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, price, created_at
		FROM order_items
		WHERE order_id = ANY($1)
	`
	itemRows, err := r.db.Query(ctx, itemsQuery, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		if o, ok := ordersMap[item.OrderID]; ok {
			o.OrderItems = append(o.OrderItems, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}
	return result, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	ct, err := r.db.Exec(ctx, query, string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		log.Error().Err(err).Str("order_id", id).Stringer("new_status", to).Msg("repository: failed to update order status")
		return fmt.Errorf("repository: failed to update order status %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("repository: failed to check order %s: %w", id, err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		// The order exists but its status moved since the caller read it, so
		// the transition it validated no longer applies.
		return ErrInvalidStatusTransition
	}

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the row and re-check the status inside the transaction. A guard
	// outside it would race with a concurrent transition to DELIVERED and
	// restock goods that already shipped.
	var status Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("repository: failed to lock order %s for delete: %w", id, err)
	}
	if status == StatusDelivered {
		return ErrOrderFulfilled
	}

	rows, err := tx.Query(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to query items for order %s: %w", id, err)
	}

	type restock struct {
		productID uuid.UUID
		qty       int
	}
	var restocks []restock
	for rows.Next() {
		var rs restock
		if err := rows.Scan(&rs.productID, &rs.qty); err != nil {
			rows.Close()
			return fmt.Errorf("repository: failed to scan item for order %s: %w", id, err)
		}
		restocks = append(restocks, rs)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: error iterating items for order %s: %w", id, err)
	}

	// Restore the exact quantities the order reserved at placement time, then
	// drop the rows. Stock restored without the order deleted, or the
	// reverse, would be a correctness bug, hence one transaction for both.
	for _, rs := range restocks {
		if err = r.ledger.Increment(ctx, tx, rs.productID, rs.qty); err != nil {
			return err
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("repository: failed to delete items for order %s: %w", id, err)
	}

	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete order %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		// Already gone; the rollback discards any restock above, so a second
		// delete can never double-restore stock.
		return ErrOrderNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit transaction: %w", err)
	}

	log.Info().Str("order_id", id).Int("items_restocked", len(restocks)).Msg("repository: order deleted, stock restored")
	return nil
}
