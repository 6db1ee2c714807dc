package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/listellodavide/onion-factory/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetOrCreateByUser(ctx context.Context, userID int64) (*domain.Cart, error) {
	const insertQ = `
INSERT INTO cart (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
`
	if _, err := r.pool.Exec(ctx, insertQ, userID); err != nil {
		return nil, err
	}

	const selectQ = `
SELECT id, user_id, created_at, updated_at
FROM cart
WHERE user_id = $1
`
	var c domain.Cart
	err := r.pool.QueryRow(ctx, selectQ, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepo) ListItems(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	const q = `
SELECT id, cart_id, product_id, quantity, price, created_at, updated_at
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *postgresRepo) FindItem(ctx context.Context, cartID, productID int64) (*domain.CartItem, error) {
	const q = `
SELECT id, cart_id, product_id, quantity, price, created_at, updated_at
FROM cart_items
WHERE cart_id = $1 AND product_id = $2
`
	var it domain.CartItem
	err := r.pool.QueryRow(ctx, q, cartID, productID).
		Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (r *postgresRepo) InsertItem(ctx context.Context, item domain.CartItem) error {
	const q = `
INSERT INTO cart_items (cart_id, product_id, quantity, price)
VALUES ($1, $2, $3, $4)
`
	_, err := r.pool.Exec(ctx, q, item.CartID, item.ProductID, item.Quantity, item.Price)
	if err != nil {
		return err
	}
	return r.touch(ctx, item.CartID)
}

func (r *postgresRepo) UpdateItem(ctx context.Context, itemID int64, quantity int, price decimal.Decimal) error {
	const q = `
UPDATE cart_items
SET quantity = $2,
    price = $3,
    updated_at = now()
WHERE id = $1
RETURNING cart_id
`
	var cartID int64
	if err := r.pool.QueryRow(ctx, q, itemID, quantity, price).Scan(&cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return r.touch(ctx, cartID)
}

// DeleteItem removes the matching line if present. A missing line is not an
// error.
func (r *postgresRepo) DeleteItem(ctx context.Context, cartID, productID int64) error {
	const q = `
DELETE FROM cart_items
WHERE cart_id = $1 AND product_id = $2
`
	cmd, err := r.pool.Exec(ctx, q, cartID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return nil
	}
	return r.touch(ctx, cartID)
}

func (r *postgresRepo) DeleteItems(ctx context.Context, cartID int64) error {
	const q = `DELETE FROM cart_items WHERE cart_id = $1`
	if _, err := r.pool.Exec(ctx, q, cartID); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *postgresRepo) touch(ctx context.Context, cartID int64) error {
	const q = `UPDATE cart SET updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, cartID)
	return err
}
