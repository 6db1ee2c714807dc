package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/listellodavide/onion-factory/internal/domain"
	ordersvc "github.com/listellodavide/onion-factory/internal/service/order"
)

// ErrEmptyCart is returned when an empty cart is checked out.
var ErrEmptyCart = errors.New("cart is empty")

type Service struct {
	repo        cartRepo
	productRepo productRepo
	orders      orderCreator
}

type cartRepo interface {
	GetOrCreateByUser(ctx context.Context, userID int64) (*domain.Cart, error)
	ListItems(ctx context.Context, cartID int64) ([]domain.CartItem, error)
	FindItem(ctx context.Context, cartID, productID int64) (*domain.CartItem, error)
	InsertItem(ctx context.Context, item domain.CartItem) error
	UpdateItem(ctx context.Context, itemID int64, quantity int, price decimal.Decimal) error
	DeleteItem(ctx context.Context, cartID, productID int64) error
	DeleteItems(ctx context.Context, cartID int64) error
}

type productRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

type orderCreator interface {
	CreateForUser(ctx context.Context, userID int64, items []ordersvc.ItemInput) (*domain.Order, error)
}

func New(repo cartRepo, productRepo productRepo, orders orderCreator) *Service {
	return &Service{repo: repo, productRepo: productRepo, orders: orders}
}

// AddItemInput mirrors the add-item request body. Price is optional; when nil
// the current catalog price is captured.
type AddItemInput struct {
	ProductID int64            `json:"productId"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

// View is the read-side cart projection. TotalPrice is recomputed from the
// line items on every read, never cached.
type View struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId"`
	Items      []ItemView      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type ItemView struct {
	ID         int64           `json:"id"`
	ProductID  int64           `json:"productId"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func (s *Service) GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	return s.repo.GetOrCreateByUser(ctx, userID)
}

func (s *Service) GetCartWithItems(ctx context.Context, userID int64) (*View, error) {
	cart, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, cart)
}

// AddItemToCart captures the product price (or the supplied override) on the
// line. Adding a product already in the cart sums the quantities on the one
// existing line instead of inserting a second one.
func (s *Service) AddItemToCart(ctx context.Context, userID int64, in AddItemInput) (*View, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	cart, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	price := product.Price
	if in.Price != nil {
		price = *in.Price
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, in.ProductID)
	switch {
	case err == nil:
		if err := s.repo.UpdateItem(ctx, existing.ID, existing.Quantity+in.Quantity, price); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrNotFound):
		if err := s.repo.InsertItem(ctx, domain.CartItem{
			CartID:    cart.ID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Price:     price,
		}); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return s.project(ctx, cart)
}

// RemoveItemFromCart deletes the matching line; removing a product that is not
// in the cart is a no-op.
func (s *Service) RemoveItemFromCart(ctx context.Context, userID, productID int64) (*View, error) {
	cart, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, cart.ID, productID); err != nil {
		return nil, err
	}
	return s.project(ctx, cart)
}

func (s *Service) EmptyCart(ctx context.Context, userID int64) (*View, error) {
	cart, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItems(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.project(ctx, cart)
}

// Checkout converts the cart into an order. Only (productId, quantity) pairs
// are handed to the order workflow; order prices are re-derived from the
// catalog there, not taken from the cart snapshot. Order creation and
// cart-emptying are two separate steps: a crash in between leaves the created
// order and a non-empty cart.
func (s *Service) Checkout(ctx context.Context, userID int64) (*domain.Order, error) {
	cart, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	orderItems := make([]ordersvc.ItemInput, 0, len(items))
	for _, it := range items {
		orderItems = append(orderItems, ordersvc.ItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	created, err := s.orders.CreateForUser(ctx, userID, orderItems)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteItems(ctx, cart.ID); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) project(ctx context.Context, cart *domain.Cart) (*View, error) {
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	views := make([]ItemView, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		lineTotal := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		views = append(views, ItemView{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			Price:      it.Price,
			TotalPrice: lineTotal,
		})
		total = total.Add(lineTotal)
	}

	return &View{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      views,
		TotalPrice: total,
		CreatedAt:  cart.CreatedAt,
		UpdatedAt:  cart.UpdatedAt,
	}, nil
}
