package order

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/listellodavide/onion-factory/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	const q = `
INSERT INTO orders (user_id, total_amount, status)
VALUES ($1, $2, $3)
RETURNING id, order_date
`
	res := o
	err := r.pool.QueryRow(ctx, q, o.UserID, o.TotalAmount, o.Status).Scan(&res.ID, &res.OrderDate)
	if err != nil {
		r.logger.Printf("order repo: create user_id=%d error=%v", o.UserID, err)
		return nil, err
	}
	r.logger.Printf("order repo: created id=%d user_id=%d total=%s", res.ID, res.UserID, res.TotalAmount.String())
	return &res, nil
}

func (r *postgresRepo) InsertItem(ctx context.Context, item domain.OrderItem) (*domain.OrderItem, error) {
	const q = `
INSERT INTO order_details (order_id, product_id, quantity, price)
VALUES ($1, $2, $3, $4)
RETURNING id
`
	res := item
	err := r.pool.QueryRow(ctx, q, item.OrderID, item.ProductID, item.Quantity, item.Price).Scan(&res.ID)
	if err != nil {
		r.logger.Printf("order repo: insert item order_id=%d product_id=%d error=%v", item.OrderID, item.ProductID, err)
		return nil, err
	}
	return &res, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	const q = `
SELECT id, user_id, total_amount, order_date, status
FROM orders
WHERE id = $1
`
	var o domain.Order
	err := r.pool.QueryRow(ctx, q, id).Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.OrderDate, &o.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get id=%d error=%v", id, err)
		return nil, err
	}
	return &o, nil
}

func (r *postgresRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	const q = `
SELECT id, user_id, total_amount, order_date, status
FROM orders
ORDER BY order_date DESC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	const q = `
SELECT id, user_id, total_amount, order_date, status
FROM orders
WHERE user_id = $1
ORDER BY order_date DESC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *postgresRepo) ListItemsWithProducts(ctx context.Context, orderID int64) ([]ItemWithProduct, error) {
	const q = `
SELECT d.id, d.order_id, d.product_id, d.quantity, d.price, COALESCE(p.name, '')
FROM order_details d
LEFT JOIN products p ON p.id = d.product_id
WHERE d.order_id = $1
ORDER BY d.id ASC
`
	rows, err := r.pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ItemWithProduct
	for rows.Next() {
		var it ItemWithProduct
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.ProductName); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *postgresRepo) Update(ctx context.Context, o domain.Order) (*domain.Order, error) {
	const q = `
UPDATE orders
SET user_id = $2,
    total_amount = $3,
    status = $4
WHERE id = $1
RETURNING id, user_id, total_amount, order_date, status
`
	var res domain.Order
	err := r.pool.QueryRow(ctx, q, o.ID, o.UserID, o.TotalAmount, o.Status).
		Scan(&res.ID, &res.UserID, &res.TotalAmount, &res.OrderDate, &res.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: update id=%d error=%v", o.ID, err)
		return nil, err
	}
	r.logger.Printf("order repo: updated id=%d status=%s", res.ID, res.Status)
	return &res, nil
}

func scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	var result []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.OrderDate, &o.Status); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
