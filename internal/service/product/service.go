package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/listellodavide/onion-factory/internal/domain"
	productrepo "github.com/listellodavide/onion-factory/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries the fields accepted when creating or updating a product.
// The slug is never supplied by callers; it is derived from the name.
type CreateInput struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) SearchByName(ctx context.Context, pattern string) ([]domain.Product, error) {
	return s.repo.SearchByName(ctx, pattern)
}

// Create rejects duplicate SKUs before insert and assigns a unique slug by
// probing name, name-1, name-2, ... until a free one is found. The probe is a
// sequential check; the unique index on products.slug is the backstop for
// concurrent creations with identical names.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Product, error) {
	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		return nil, fmt.Errorf("%w: sku required", domain.ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", domain.ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}

	if _, err := s.repo.GetBySKU(ctx, sku); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	slug, err := s.assignSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, domain.Product{
		SKU:         sku,
		Slug:        slug,
		Name:        name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		Quantity:    in.Quantity,
	})
}

// Update overwrites mutable fields while preserving identity, slug, and the
// original creation timestamp.
func (s *Service) Update(ctx context.Context, id int64, in CreateInput) (*domain.Product, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *existing
	updated.SKU = strings.TrimSpace(in.SKU)
	updated.Name = strings.TrimSpace(in.Name)
	updated.Description = in.Description
	updated.ImageURL = in.ImageURL
	updated.Price = in.Price
	updated.Quantity = in.Quantity
	return s.repo.Update(ctx, updated)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) assignSlug(ctx context.Context, name string) (string, error) {
	base := slugify(name)
	if base == "" {
		base = "product"
	}

	candidate := base
	for i := 1; ; i++ {
		_, err := s.repo.GetBySlug(ctx, candidate)
		if errors.Is(err, domain.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
