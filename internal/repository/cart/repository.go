package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/listellodavide/onion-factory/internal/domain"
)

type Repository interface {
	// GetOrCreateByUser returns the user's cart, inserting an empty one on
	// first access. The insert is ON CONFLICT DO NOTHING against the
	// cart(user_id) unique constraint, so concurrent first accesses converge
	// on a single row.
	GetOrCreateByUser(ctx context.Context, userID int64) (*domain.Cart, error)
	ListItems(ctx context.Context, cartID int64) ([]domain.CartItem, error)
	FindItem(ctx context.Context, cartID, productID int64) (*domain.CartItem, error)
	InsertItem(ctx context.Context, item domain.CartItem) error
	UpdateItem(ctx context.Context, itemID int64, quantity int, price decimal.Decimal) error
	DeleteItem(ctx context.Context, cartID, productID int64) error
	DeleteItems(ctx context.Context, cartID int64) error
}
