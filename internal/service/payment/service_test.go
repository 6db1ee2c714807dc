package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/listellodavide/onion-factory/internal/domain"
	"github.com/listellodavide/onion-factory/internal/gateway/stripe"
	orderrepo "github.com/listellodavide/onion-factory/internal/repository/order"
)

type stubGateway struct {
	intent        *stripe.PaymentIntent
	intentErr     error
	session       *stripe.CheckoutSession
	sessionErr    error
	gotIntent     stripe.CreateIntentParams
	gotSession    stripe.CreateSessionParams
	createIntents int
}

func (g *stubGateway) CreatePaymentIntent(_ context.Context, p stripe.CreateIntentParams) (*stripe.PaymentIntent, error) {
	g.createIntents++
	g.gotIntent = p
	return g.intent, g.intentErr
}

func (g *stubGateway) GetPaymentIntent(_ context.Context, _ string) (*stripe.PaymentIntent, error) {
	return g.intent, g.intentErr
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, p stripe.CreateSessionParams) (*stripe.CheckoutSession, error) {
	g.gotSession = p
	return g.session, g.sessionErr
}

type stubOrders struct {
	order     *domain.Order
	items     []orderrepo.ItemWithProduct
	paid      []int64
	getErr    error
	markErr   error
	paidOrder *domain.Order
}

func (s *stubOrders) GetByID(_ context.Context, _ int64) (*domain.Order, error) {
	return s.order, s.getErr
}

func (s *stubOrders) ListItemsWithProducts(_ context.Context, _ int64) ([]orderrepo.ItemWithProduct, error) {
	return s.items, nil
}

func (s *stubOrders) MarkPaid(_ context.Context, id int64) (*domain.Order, error) {
	if s.markErr != nil {
		return nil, s.markErr
	}
	s.paid = append(s.paid, id)
	if s.paidOrder != nil {
		return s.paidOrder, nil
	}
	return &domain.Order{ID: id, Status: domain.OrderStatusPaid}, nil
}

func price(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func TestCreateIntentConvertsToCents(t *testing.T) {
	gw := &stubGateway{intent: &stripe.PaymentIntent{ID: "pi_1", ClientSecret: "cs", Amount: 2350, Currency: "usd", Status: "requires_payment_method"}}
	orders := &stubOrders{order: &domain.Order{ID: 9, TotalAmount: price("23.509")}}
	svc := New(gw, orders, "", "", nil)

	got, err := svc.CreateIntent(context.Background(), 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Sub-cent precision is truncated, not rounded.
	if gw.gotIntent.AmountCents != 2350 {
		t.Fatalf("unexpected amount %d", gw.gotIntent.AmountCents)
	}
	if gw.gotIntent.Currency != "usd" {
		t.Fatalf("unexpected currency %q", gw.gotIntent.Currency)
	}
	if gw.gotIntent.Metadata["orderId"] != "9" {
		t.Fatalf("unexpected metadata %v", gw.gotIntent.Metadata)
	}
	if gw.gotIntent.IdempotencyKey == "" {
		t.Fatalf("idempotency key must be set")
	}
	if got.ClientSecret != "cs" {
		t.Fatalf("unexpected intent %+v", got)
	}
}

func TestCreateIntentUnknownOrder(t *testing.T) {
	svc := New(&stubGateway{}, &stubOrders{getErr: domain.ErrNotFound}, "", "", nil)
	_, err := svc.CreateIntent(context.Background(), 9)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConfirmRequiresSucceededStatus(t *testing.T) {
	gw := &stubGateway{intent: &stripe.PaymentIntent{ID: "pi_1", Status: "processing", Metadata: map[string]string{"orderId": "9"}}}
	orders := &stubOrders{}
	svc := New(gw, orders, "", "", nil)

	_, err := svc.Confirm(context.Background(), "pi_1")
	if !errors.Is(err, ErrPaymentNotSucceeded) {
		t.Fatalf("expected ErrPaymentNotSucceeded, got %v", err)
	}
	if len(orders.paid) != 0 {
		t.Fatalf("order must not be marked paid")
	}
}

func TestConfirmMarksOrderPaid(t *testing.T) {
	gw := &stubGateway{intent: &stripe.PaymentIntent{ID: "pi_1", Status: "succeeded", Metadata: map[string]string{"orderId": "9"}}}
	orders := &stubOrders{}
	svc := New(gw, orders, "", "", nil)

	got, err := svc.Confirm(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.OrderStatusPaid {
		t.Fatalf("unexpected status %s", got.Status)
	}
	if len(orders.paid) != 1 || orders.paid[0] != 9 {
		t.Fatalf("unexpected paid orders %v", orders.paid)
	}
}

func TestConfirmMissingOrderRef(t *testing.T) {
	gw := &stubGateway{intent: &stripe.PaymentIntent{ID: "pi_1", Status: "succeeded"}}
	svc := New(gw, &stubOrders{}, "", "", nil)
	_, err := svc.Confirm(context.Background(), "pi_1")
	if !errors.Is(err, ErrOrderRefMissing) {
		t.Fatalf("expected ErrOrderRefMissing, got %v", err)
	}
}

func TestCheckoutSessionUsesCapturedPrices(t *testing.T) {
	gw := &stubGateway{session: &stripe.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}}
	orders := &stubOrders{
		order: &domain.Order{ID: 9, TotalAmount: price("23.50")},
		items: []orderrepo.ItemWithProduct{
			{OrderItem: domain.OrderItem{ProductID: 5, Quantity: 2, Price: price("10.00")}, ProductName: "Shirt"},
			{OrderItem: domain.OrderItem{ProductID: 6, Quantity: 1, Price: price("3.50")}},
		},
	}
	svc := New(gw, orders, "https://shop.example/ok", "https://shop.example/no", nil)

	got, err := svc.CreateCheckoutSession(context.Background(), 9, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.URL != "https://pay.example/cs_1" {
		t.Fatalf("unexpected session %+v", got)
	}
	if len(gw.gotSession.LineItems) != 2 {
		t.Fatalf("unexpected line items %v", gw.gotSession.LineItems)
	}
	first := gw.gotSession.LineItems[0]
	if first.Name != "Shirt" || first.UnitAmountCents != 1000 || first.Currency != "eur" || first.Quantity != 2 {
		t.Fatalf("unexpected line item %+v", first)
	}
	// Items without a product name still get a label.
	if gw.gotSession.LineItems[1].Name == "" {
		t.Fatalf("fallback name missing")
	}
	if gw.gotSession.Metadata["orderId"] != "9" {
		t.Fatalf("unexpected metadata %v", gw.gotSession.Metadata)
	}
	if gw.gotSession.SuccessURL != "https://shop.example/ok" || gw.gotSession.CancelURL != "https://shop.example/no" {
		t.Fatalf("expected configured redirect URLs, got %+v", gw.gotSession)
	}
}

func TestCheckoutSessionCallerRedirectURLs(t *testing.T) {
	gw := &stubGateway{session: &stripe.CheckoutSession{ID: "cs_1"}}
	orders := &stubOrders{
		order: &domain.Order{ID: 9, TotalAmount: price("5.00")},
		items: []orderrepo.ItemWithProduct{
			{OrderItem: domain.OrderItem{ProductID: 5, Quantity: 1, Price: price("5.00")}, ProductName: "Mug"},
		},
	}
	svc := New(gw, orders, "https://shop.example/ok", "https://shop.example/no", nil)

	_, err := svc.CreateCheckoutSession(context.Background(), 9, "https://caller.example/done", "https://caller.example/back")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.gotSession.SuccessURL != "https://caller.example/done" {
		t.Fatalf("unexpected success url %q", gw.gotSession.SuccessURL)
	}
	if gw.gotSession.CancelURL != "https://caller.example/back" {
		t.Fatalf("unexpected cancel url %q", gw.gotSession.CancelURL)
	}
}

func TestCheckoutSessionEmptyOrder(t *testing.T) {
	orders := &stubOrders{order: &domain.Order{ID: 9}}
	svc := New(&stubGateway{}, orders, "", "", nil)
	_, err := svc.CreateCheckoutSession(context.Background(), 9, "", "")
	if !errors.Is(err, ErrNoItemsForOrder) {
		t.Fatalf("expected ErrNoItemsForOrder, got %v", err)
	}
}

func TestWebhookPaymentIntentSucceeded(t *testing.T) {
	orders := &stubOrders{}
	svc := New(&stubGateway{}, orders, "", "", nil)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"orderId":"9"}}}}`)
	handled, err := svc.HandleWebhookEvent(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatalf("event should be handled")
	}
	if len(orders.paid) != 1 || orders.paid[0] != 9 {
		t.Fatalf("unexpected paid orders %v", orders.paid)
	}
}

func TestWebhookCheckoutSessionCompleted(t *testing.T) {
	orders := &stubOrders{}
	svc := New(&stubGateway{}, orders, "", "", nil)

	payload := []byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{"orderId":"12"}}}}`)
	handled, err := svc.HandleWebhookEvent(context.Background(), payload)
	if err != nil || !handled {
		t.Fatalf("expected handled event, got handled=%v err=%v", handled, err)
	}
	if len(orders.paid) != 1 || orders.paid[0] != 12 {
		t.Fatalf("unexpected paid orders %v", orders.paid)
	}
}

func TestWebhookDoubleDeliveryStaysHandled(t *testing.T) {
	orders := &stubOrders{}
	svc := New(&stubGateway{}, orders, "", "", nil)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"orderId":"9"}}}}`)
	for i := 0; i < 2; i++ {
		handled, err := svc.HandleWebhookEvent(context.Background(), payload)
		if err != nil || !handled {
			t.Fatalf("delivery %d: handled=%v err=%v", i, handled, err)
		}
	}
	// MarkPaid itself is idempotent; the handler just calls it again.
	if len(orders.paid) != 2 {
		t.Fatalf("unexpected calls %v", orders.paid)
	}
}

func TestWebhookUnknownEventIgnored(t *testing.T) {
	orders := &stubOrders{}
	svc := New(&stubGateway{}, orders, "", "", nil)

	payload := []byte(`{"id":"evt_3","type":"invoice.created","data":{"object":{}}}`)
	handled, err := svc.HandleWebhookEvent(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handled {
		t.Fatalf("unknown event must not be handled")
	}
	if len(orders.paid) != 0 {
		t.Fatalf("no order should change")
	}
}

func TestWebhookMissingOrderRefIgnored(t *testing.T) {
	orders := &stubOrders{}
	svc := New(&stubGateway{}, orders, "", "", nil)

	payload := []byte(`{"id":"evt_4","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	handled, err := svc.HandleWebhookEvent(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handled {
		t.Fatalf("event without order reference must not be handled")
	}
}

func TestWebhookMalformedPayload(t *testing.T) {
	svc := New(&stubGateway{}, &stubOrders{}, "", "", nil)
	handled, err := svc.HandleWebhookEvent(context.Background(), []byte("{not json"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if handled {
		t.Fatalf("malformed payload must not be handled")
	}
}
