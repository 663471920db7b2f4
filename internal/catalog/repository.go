package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOutOfStock      = errors.New("insufficient stock")
)

type Repository interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
}

// Ledger is the only sanctioned mutation path for a product's stock counter.
// Both operations run inside the caller's transaction so the stock change
// commits or aborts together with the order rows that caused it.
type Ledger interface {
	// Decrement reduces stock by qty. Returns ErrOutOfStock when the product
	// holds fewer than qty units, ErrProductNotFound when it does not exist.
	Decrement(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) error
	// Increment restores qty units of stock.
	Increment(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `
		SELECT id, name, price, stock, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.Stock,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}

	return &p, nil
}

type postgresLedger struct{}

func NewLedger() Ledger {
	return &postgresLedger{}
}

// The decrement is a single conditional update evaluated by the database, so
// two concurrent purchasers of the last unit can never both succeed. A
// read-then-write sequence here would reintroduce the lost-update race.
func (l *postgresLedger) Decrement(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) error {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
	`

	ct, err := tx.Exec(ctx, query, productID, qty)
	if err != nil {
		return fmt.Errorf("ledger: failed to decrement stock for product %s: %w", productID, err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
			return fmt.Errorf("ledger: failed to check product %s: %w", productID, err)
		}
		if !exists {
			return ErrProductNotFound
		}
		log.Warn().Stringer("product_id", productID).Int("quantity", qty).Msg("ledger: decrement rejected, insufficient stock")
		return ErrOutOfStock
	}

	return nil
}

func (l *postgresLedger) Increment(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) error {
	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1
	`

	ct, err := tx.Exec(ctx, query, productID, qty)
	if err != nil {
		return fmt.Errorf("ledger: failed to increment stock for product %s: %w", productID, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}
