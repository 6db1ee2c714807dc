package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type productSeed struct {
	SKU         string
	Slug        string
	Name        string
	Description string
	ImageURL    string
	Price       string
	Quantity    int
}

type userSeed struct {
	Username string
	Email    string
	Password string
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := []productSeed{
		{
			SKU:         "SKU-DEMO-TSHIRT",
			Slug:        "demo-t-shirt",
			Name:        "Demo T-Shirt",
			Description: "Soft cotton tee for demo purposes",
			ImageURL:    "https://example.com/images/demo-t-shirt.png",
			Price:       "19.99",
			Quantity:    100,
		},
		{
			SKU:         "SKU-DEMO-MUG",
			Slug:        "demo-mug",
			Name:        "Demo Mug",
			Description: "Ceramic mug with demo logo",
			ImageURL:    "https://example.com/images/demo-mug.png",
			Price:       "12.99",
			Quantity:    50,
		},
		{
			SKU:         "SKU-DEMO-STICKERS",
			Slug:        "demo-sticker-pack",
			Name:        "Demo Sticker Pack",
			Description: "Assorted vinyl stickers",
			ImageURL:    "https://example.com/images/demo-stickers.png",
			Price:       "4.50",
			Quantity:    500,
		},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	users := []userSeed{
		{Username: "demo", Email: "demo@example.com", Password: "demo-password"},
	}
	for _, u := range users {
		if err := upsertUser(ctx, pool, u); err != nil {
			return fmt.Errorf("upsert user %s: %w", u.Username, err)
		}
	}

	return nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	const q = `
INSERT INTO products (sku, slug, name, description, image_url, price, quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (sku) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    image_url = EXCLUDED.image_url,
    price = EXCLUDED.price,
    quantity = EXCLUDED.quantity
`
	_, err := pool.Exec(ctx, q, p.SKU, p.Slug, p.Name, p.Description, p.ImageURL, p.Price, p.Quantity)
	return err
}

func upsertUser(ctx context.Context, pool *pgxpool.Pool, u userSeed) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO users (username, email, password)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO NOTHING
`
	_, err = pool.Exec(ctx, q, u.Username, u.Email, string(hash))
	return err
}
