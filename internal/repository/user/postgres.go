package user

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

const userColumns = `id, username, email, password, COALESCE(picture_url, ''), created_at`

func (r *postgresRepo) List(ctx context.Context) ([]domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("user repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`
	return r.getOne(ctx, q, id)
}

func (r *postgresRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE username = $1
`
	return r.getOne(ctx, q, username)
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE lower(email) = lower($1)
`
	return r.getOne(ctx, q, email)
}

func (r *postgresRepo) SearchByUsername(ctx context.Context, pattern string) ([]domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE username ILIKE '%' || $1 || '%'
ORDER BY username ASC
`
	rows, err := r.pool.Query(ctx, q, pattern)
	if err != nil {
		r.logger.Printf("user repo: search pattern=%q error=%v", pattern, err)
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (username, email, password, picture_url)
VALUES ($1, $2, $3, NULLIF($4, ''))
RETURNING id, created_at
`
	res := u
	err := r.pool.QueryRow(ctx, q, u.Username, u.Email, u.Password, u.PictureURL).
		Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Printf("user repo: create username=%s conflict", u.Username)
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("user repo: create username=%s error=%v", u.Username, err)
		return nil, err
	}
	r.logger.Printf("user repo: created id=%d username=%s", res.ID, res.Username)
	return &res, nil
}

func (r *postgresRepo) Update(ctx context.Context, u domain.User) (*domain.User, error) {
	const q = `
UPDATE users
SET username = $2,
    email = $3,
    password = $4,
    picture_url = NULLIF($5, '')
WHERE id = $1
RETURNING ` + userColumns + `
`
	return r.getOne(ctx, q, u.ID, u.Username, u.Email, u.Password, u.PictureURL)
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM users WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		r.logger.Printf("user repo: delete id=%d error=%v", id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) getOne(ctx context.Context, q string, args ...interface{}) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, q, args...).
		Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.PictureURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("user repo: query error=%v", err)
		return nil, err
	}
	return &u, nil
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var result []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.PictureURL, &u.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
