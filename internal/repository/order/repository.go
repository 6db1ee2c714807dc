package order

import (
	"context"

	"github.com/listellodavide/onion-factory/internal/domain"
)

// ItemWithProduct pairs an order item with the referenced product's current
// display name, used when building gateway checkout line items.
type ItemWithProduct struct {
	domain.OrderItem
	ProductName string `json:"productName"`
}

type Repository interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	InsertItem(ctx context.Context, item domain.OrderItem) (*domain.OrderItem, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	ListItemsWithProducts(ctx context.Context, orderID int64) ([]ItemWithProduct, error)
	Update(ctx context.Context, o domain.Order) (*domain.Order, error)
}
