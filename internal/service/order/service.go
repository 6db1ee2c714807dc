package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/listellodavide/onion-factory/internal/domain"
	"github.com/listellodavide/onion-factory/internal/events"
	orderrepo "github.com/listellodavide/onion-factory/internal/repository/order"
)

type Service struct {
	repo        orderRepo
	productRepo productRepo
	userRepo    userRepo
	publisher   events.Publisher
	logger      *log.Logger
}

type orderRepo interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	InsertItem(ctx context.Context, item domain.OrderItem) (*domain.OrderItem, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	ListItemsWithProducts(ctx context.Context, orderID int64) ([]orderrepo.ItemWithProduct, error)
	Update(ctx context.Context, o domain.Order) (*domain.Order, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

type userRepo interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

func New(repo orderrepo.Repository, productRepo productRepo, userRepo userRepo, publisher events.Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if publisher == nil {
		publisher = events.Noop()
	}
	return &Service{repo: repo, productRepo: productRepo, userRepo: userRepo, publisher: publisher, logger: logger}
}

// ItemInput is one requested order line: the price is never supplied by the
// caller, it is read from the catalog at creation time.
type ItemInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CreateInput mirrors the order-creation request body. Username is optional;
// when empty the order is anonymous (user id 0).
type CreateInput struct {
	Username string      `json:"username"`
	Items    []ItemInput `json:"items"`
}

// UpdateInput carries the mutable order fields. Omitted fields keep their
// stored values.
type UpdateInput struct {
	UserID      *int64           `json:"userId"`
	TotalAmount *decimal.Decimal `json:"totalAmount"`
	Status      *string          `json:"status"`
}

// Create validates every requested product up front, resolves the optional
// username, and only then writes the order followed by its items. The writes
// are separate statements: a failure after the order insert leaves a partial
// order behind (documented limitation, reconciled externally).
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", domain.ErrInvalidInput)
	}

	userID := domain.AnonymousUserID
	if username := strings.TrimSpace(in.Username); username != "" {
		u, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		userID = u.ID
	}

	return s.create(ctx, userID, in.Items)
}

// CreateForUser is the cart-checkout entry point: the owner is already known
// by id, no username resolution happens.
func (s *Service) CreateForUser(ctx context.Context, userID int64, items []ItemInput) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", domain.ErrInvalidInput)
	}
	return s.create(ctx, userID, items)
}

func (s *Service) create(ctx context.Context, userID int64, items []ItemInput) (*domain.Order, error) {
	type line struct {
		product  *domain.Product
		quantity int
	}

	// All products are looked up before anything is written; one missing
	// product fails the whole operation.
	lines := make([]line, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
		}
		p, err := s.productRepo.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line{product: p, quantity: it.Quantity})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	created, err := s.repo.Create(ctx, domain.Order{
		UserID:      userID,
		TotalAmount: total,
		Status:      domain.OrderStatusPending,
	})
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		if _, err := s.repo.InsertItem(ctx, domain.OrderItem{
			OrderID:   created.ID,
			ProductID: l.product.ID,
			Quantity:  l.quantity,
			Price:     l.product.Price,
		}); err != nil {
			return nil, err
		}
	}

	if err := s.publisher.Publish(ctx, events.OrderCreated, created); err != nil {
		s.logger.Printf("order service: publish created id=%d error=%v", created.ID, err)
	}
	return created, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListItemsWithProducts(ctx context.Context, orderID int64) ([]orderrepo.ItemWithProduct, error) {
	return s.repo.ListItemsWithProducts(ctx, orderID)
}

// Update overwrites the supplied mutable fields. A missing order yields
// (nil, nil), not an error, matching the silent-empty update contract.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*domain.Order, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	updated := *existing
	if in.UserID != nil {
		updated.UserID = *in.UserID
	}
	if in.TotalAmount != nil {
		updated.TotalAmount = *in.TotalAmount
	}
	if in.Status != nil {
		updated.Status = *in.Status
	}

	res, err := s.repo.Update(ctx, updated)
	if err != nil {
		return nil, err
	}
	if existing.Status != domain.OrderStatusPaid && res.Status == domain.OrderStatusPaid {
		if err := s.publisher.Publish(ctx, events.OrderPaid, res); err != nil {
			s.logger.Printf("order service: publish paid id=%d error=%v", res.ID, err)
		}
	}
	return res, nil
}

// MarkPaid transitions an order to PAID. Marking an already-paid order is a
// safe no-op, which is what makes at-least-once webhook delivery tolerable.
func (s *Service) MarkPaid(ctx context.Context, id int64) (*domain.Order, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == domain.OrderStatusPaid {
		return existing, nil
	}
	updated := *existing
	updated.Status = domain.OrderStatusPaid
	res, err := s.repo.Update(ctx, updated)
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, events.OrderPaid, res); err != nil {
		s.logger.Printf("order service: publish paid id=%d error=%v", res.ID, err)
	}
	return res, nil
}
