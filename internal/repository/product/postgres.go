package product

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const productColumns = `id, sku, slug, name, COALESCE(description, ''), COALESCE(image_url, ''), price, quantity, created_at`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1
`
	return r.getOne(ctx, q, id)
}

func (r *postgresRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE sku = $1
`
	return r.getOne(ctx, q, sku)
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE slug = $1
`
	return r.getOne(ctx, q, slug)
}

func (r *postgresRepo) SearchByName(ctx context.Context, pattern string) ([]domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE name ILIKE '%' || $1 || '%'
ORDER BY name ASC
`
	rows, err := r.pool.Query(ctx, q, pattern)
	if err != nil {
		r.logger.Printf("product repo: search pattern=%q error=%v", pattern, err)
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (sku, slug, name, description, image_url, price, quantity)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
RETURNING id, created_at
`
	res := p
	err := r.pool.QueryRow(ctx, q, p.SKU, p.Slug, p.Name, p.Description, p.ImageURL, p.Price, p.Quantity).
		Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Printf("product repo: create sku=%s slug=%s conflict", p.SKU, p.Slug)
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("product repo: create sku=%s error=%v", p.SKU, err)
		return nil, err
	}
	r.logger.Printf("product repo: created id=%d sku=%s slug=%s", res.ID, res.SKU, res.Slug)
	return &res, nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
UPDATE products
SET sku = $2,
    slug = $3,
    name = $4,
    description = NULLIF($5, ''),
    image_url = NULLIF($6, ''),
    price = $7,
    quantity = $8
WHERE id = $1
RETURNING ` + productColumns + `
`
	return r.getOne(ctx, q, p.ID, p.SKU, p.Slug, p.Name, p.Description, p.ImageURL, p.Price, p.Quantity)
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM products WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		r.logger.Printf("product repo: delete id=%d error=%v", id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) getOne(ctx context.Context, q string, args ...interface{}) (*domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, args...).
		Scan(&p.ID, &p.SKU, &p.Slug, &p.Name, &p.Description, &p.ImageURL, &p.Price, &p.Quantity, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: query error=%v", err)
		return nil, err
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	var result []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Slug, &p.Name, &p.Description, &p.ImageURL, &p.Price, &p.Quantity, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
