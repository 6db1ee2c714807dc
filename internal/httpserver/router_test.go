package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/listellodavide/onion-factory/internal/auth"
	"github.com/listellodavide/onion-factory/internal/domain"
	"github.com/listellodavide/onion-factory/internal/gateway/stripe"
	orderrepo "github.com/listellodavide/onion-factory/internal/repository/order"
	cartsvc "github.com/listellodavide/onion-factory/internal/service/cart"
	ordersvc "github.com/listellodavide/onion-factory/internal/service/order"
	paymentsvc "github.com/listellodavide/onion-factory/internal/service/payment"
	productsvc "github.com/listellodavide/onion-factory/internal/service/product"
	usersvc "github.com/listellodavide/onion-factory/internal/service/user"
)

type stubProductRepo struct {
	bySKU  map[string]*domain.Product
	bySlug map[string]*domain.Product
	byID   map[int64]*domain.Product
	nextID int64
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{
		bySKU:  map[string]*domain.Product{},
		bySlug: map[string]*domain.Product{},
		byID:   map[int64]*domain.Product{},
	}
}

func (s *stubProductRepo) List(_ context.Context) ([]domain.Product, error) { return nil, nil }

func (s *stubProductRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubProductRepo) GetBySKU(_ context.Context, sku string) (*domain.Product, error) {
	if p, ok := s.bySKU[sku]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubProductRepo) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	if p, ok := s.bySlug[slug]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubProductRepo) SearchByName(_ context.Context, _ string) ([]domain.Product, error) {
	return nil, nil
}

func (s *stubProductRepo) Create(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.nextID++
	p.ID = s.nextID
	s.bySKU[p.SKU] = &p
	s.bySlug[p.Slug] = &p
	s.byID[p.ID] = &p
	return &p, nil
}

func (s *stubProductRepo) Update(_ context.Context, p domain.Product) (*domain.Product, error) {
	return &p, nil
}

func (s *stubProductRepo) Delete(_ context.Context, _ int64) error { return nil }

type stubCartRepo struct {
	items []domain.CartItem
}

func (s *stubCartRepo) GetOrCreateByUser(_ context.Context, userID int64) (*domain.Cart, error) {
	return &domain.Cart{ID: 1, UserID: userID}, nil
}

func (s *stubCartRepo) ListItems(_ context.Context, _ int64) ([]domain.CartItem, error) {
	return s.items, nil
}

func (s *stubCartRepo) FindItem(_ context.Context, _, productID int64) (*domain.CartItem, error) {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return &s.items[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubCartRepo) InsertItem(_ context.Context, item domain.CartItem) error {
	s.items = append(s.items, item)
	return nil
}

func (s *stubCartRepo) UpdateItem(_ context.Context, _ int64, _ int, _ decimal.Decimal) error {
	return nil
}

func (s *stubCartRepo) DeleteItem(_ context.Context, _, _ int64) error { return nil }

func (s *stubCartRepo) DeleteItems(_ context.Context, _ int64) error {
	s.items = nil
	return nil
}

type stubOrderRepo struct {
	orders map[int64]*domain.Order
	items  map[int64][]orderrepo.ItemWithProduct
	nextID int64
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: map[int64]*domain.Order{}, items: map[int64][]orderrepo.ItemWithProduct{}}
}

func (s *stubOrderRepo) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	s.nextID++
	o.ID = s.nextID
	s.orders[o.ID] = &o
	return &o, nil
}

func (s *stubOrderRepo) InsertItem(_ context.Context, item domain.OrderItem) (*domain.OrderItem, error) {
	return &item, nil
}

func (s *stubOrderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	if o, ok := s.orders[id]; ok {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubOrderRepo) ListAll(_ context.Context) ([]domain.Order, error) { return nil, nil }

func (s *stubOrderRepo) ListByUser(_ context.Context, _ int64) ([]domain.Order, error) {
	return nil, nil
}

func (s *stubOrderRepo) ListItemsWithProducts(_ context.Context, orderID int64) ([]orderrepo.ItemWithProduct, error) {
	return s.items[orderID], nil
}

func (s *stubOrderRepo) Update(_ context.Context, o domain.Order) (*domain.Order, error) {
	if _, ok := s.orders[o.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	s.orders[o.ID] = &o
	return &o, nil
}

type stubUserRepo struct{}

func (stubUserRepo) List(_ context.Context) ([]domain.User, error) { return nil, nil }
func (stubUserRepo) GetByID(_ context.Context, _ int64) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (stubUserRepo) GetByUsername(_ context.Context, _ string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (stubUserRepo) GetByEmail(_ context.Context, _ string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (stubUserRepo) SearchByUsername(_ context.Context, _ string) ([]domain.User, error) {
	return nil, nil
}
func (stubUserRepo) Create(_ context.Context, u domain.User) (*domain.User, error) {
	u.ID = 1
	return &u, nil
}
func (stubUserRepo) Update(_ context.Context, u domain.User) (*domain.User, error) { return &u, nil }
func (stubUserRepo) Delete(_ context.Context, _ int64) error                       { return nil }

type stubGateway struct {
	intent     *stripe.PaymentIntent
	gotSession stripe.CreateSessionParams
}

func (g *stubGateway) CreatePaymentIntent(_ context.Context, _ stripe.CreateIntentParams) (*stripe.PaymentIntent, error) {
	return g.intent, nil
}

func (g *stubGateway) GetPaymentIntent(_ context.Context, _ string) (*stripe.PaymentIntent, error) {
	return g.intent, nil
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, p stripe.CreateSessionParams) (*stripe.CheckoutSession, error) {
	g.gotSession = p
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil
}

type testEnv struct {
	router   *gin.Engine
	products *stubProductRepo
	orders   *stubOrderRepo
	gateway  *stubGateway
	sessions *auth.Sessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	productRepo := newStubProductRepo()
	orderRepo := newStubOrderRepo()
	cartRepo := &stubCartRepo{}

	orderService := ordersvc.New(orderRepo, productRepo, stubUserRepo{}, nil, logger)
	gateway := &stubGateway{}
	paymentService := paymentsvc.New(gateway, orderService, "https://shop.example/ok", "https://shop.example/no", logger)
	sessions := auth.NewSessions("test-secret", time.Hour)

	router, err := buildRouter(logger, nil, Deps{
		Users:    usersvc.New(stubUserRepo{}),
		Products: productsvc.New(productRepo),
		Carts:    cartsvc.New(cartRepo, productRepo, orderService),
		Orders:   orderService,
		Payments: paymentService,
		Sessions: sessions,
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return &testEnv{router: router, products: productRepo, orders: orderRepo, gateway: gateway, sessions: sessions}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestProductNotFoundMapsTo404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/products/99", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}
}

func TestProductCreateAndDuplicate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/products", `{"sku":"S1","name":"Blue Shirt","price":"10.00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}
	var created domain.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.Slug != "blue-shirt" {
		t.Fatalf("unexpected slug %q", created.Slug)
	}

	rec = env.do(http.MethodPost, "/products", `{"sku":"S1","name":"Other","price":"5.00"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate sku, got %d: %s", rec.Code, rec.Body)
	}
}

func TestProductCreateInvalidBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/products", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestCartAddItemValidation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/users/42/cart/items", `{"productId":5,"quantity":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}
}

func TestCartCheckoutEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/users/42/cart/checkout", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}
}

func TestOrderUpdateMissingIsSilent200(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPut, "/orders/999", `{"status":"PAID"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "{}" {
		t.Fatalf("expected empty object body, got %s", body)
	}
}

func TestPaymentWebhookAlways200(t *testing.T) {
	env := newTestEnv(t)
	env.orders.orders[9] = &domain.Order{ID: 9, Status: domain.OrderStatusPending}

	rec := env.do(http.MethodPost, "/api/payments/webhook",
		`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"orderId":"9"}}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Fatalf("expected received=true, got %s", rec.Body)
	}
	if env.orders.orders[9].Status != domain.OrderStatusPaid {
		t.Fatalf("order not marked paid")
	}

	rec = env.do(http.MethodPost, "/api/payments/webhook",
		`{"id":"evt_2","type":"invoice.created","data":{"object":{}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"received":false`) {
		t.Fatalf("expected received=false, got %s", rec.Body)
	}
}

func TestPaymentCheckoutRedirectURLs(t *testing.T) {
	env := newTestEnv(t)
	env.orders.orders[9] = &domain.Order{ID: 9, Status: domain.OrderStatusPending, TotalAmount: decimal.RequireFromString("5.00")}
	env.orders.items[9] = []orderrepo.ItemWithProduct{
		{OrderItem: domain.OrderItem{ProductID: 5, Quantity: 1, Price: decimal.RequireFromString("5.00")}, ProductName: "Mug"},
	}

	rec := env.do(http.MethodPost, "/api/payments/create-checkout",
		`{"orderId":9,"successUrl":"https://caller.example/done","cancelUrl":"https://caller.example/back"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}
	if env.gateway.gotSession.SuccessURL != "https://caller.example/done" {
		t.Fatalf("unexpected success url %q", env.gateway.gotSession.SuccessURL)
	}
	if env.gateway.gotSession.CancelURL != "https://caller.example/back" {
		t.Fatalf("unexpected cancel url %q", env.gateway.gotSession.CancelURL)
	}

	// Absent URLs fall back to the configured defaults.
	rec = env.do(http.MethodPost, "/api/payments/create-checkout", `{"orderId":9}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}
	if env.gateway.gotSession.SuccessURL != "https://shop.example/ok" {
		t.Fatalf("unexpected success url %q", env.gateway.gotSession.SuccessURL)
	}
}

func TestUsersMeRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/users/me", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/me/provider", nil)
	token, err := env.sessions.Mint(&domain.User{ID: 1, Username: "alice", Email: "a@b.c"}, "google")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	recorded := httptest.NewRecorder()
	env.router.ServeHTTP(recorded, req)
	if recorded.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", recorded.Code, recorded.Body)
	}
	if !strings.Contains(recorded.Body.String(), `"provider":"google"`) {
		t.Fatalf("unexpected body %s", recorded.Body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}
