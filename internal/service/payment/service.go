// Package payment reconciles orders with the Stripe gateway: it creates
// payment intents and checkout sessions for existing orders and flips the
// order to PAID once the gateway reports a successful charge.
package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/listellodavide/onion-factory/internal/domain"
	"github.com/listellodavide/onion-factory/internal/gateway/stripe"
	orderrepo "github.com/listellodavide/onion-factory/internal/repository/order"
)

var (
	// ErrPaymentNotSucceeded is returned by Confirm when the gateway reports
	// any intent status other than "succeeded".
	ErrPaymentNotSucceeded = errors.New("payment: intent not succeeded")

	// ErrOrderRefMissing is returned when a gateway object carries no order
	// reference in its metadata.
	ErrOrderRefMissing = errors.New("payment: order reference missing from metadata")

	// ErrNoItemsForOrder is returned when a checkout session is requested
	// for an order without line items.
	ErrNoItemsForOrder = errors.New("payment: order has no items")
)

// metadataOrderKey is the metadata field carrying the local order id on
// intents and sessions.
const metadataOrderKey = "orderId"

const (
	intentCurrency  = "usd"
	sessionCurrency = "eur"
)

type gateway interface {
	CreatePaymentIntent(ctx context.Context, p stripe.CreateIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CreateCheckoutSession(ctx context.Context, p stripe.CreateSessionParams) (*stripe.CheckoutSession, error)
}

type orders interface {
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListItemsWithProducts(ctx context.Context, orderID int64) ([]orderrepo.ItemWithProduct, error)
	MarkPaid(ctx context.Context, id int64) (*domain.Order, error)
}

type Service struct {
	gateway    gateway
	orders     orders
	successURL string
	cancelURL  string
	logger     *log.Logger
}

func New(gw gateway, orders orders, successURL, cancelURL string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{gateway: gw, orders: orders, successURL: successURL, cancelURL: cancelURL, logger: logger}
}

// Intent is what handlers return to the frontend after creating an intent.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// Session is what handlers return after creating a checkout session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateIntent creates a payment intent for the order's total amount. The
// amount is converted to integer cents, truncating sub-cent precision.
func (s *Service) CreateIntent(ctx context.Context, orderID int64) (*Intent, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, stripe.CreateIntentParams{
		AmountCents:    toCents(order.TotalAmount),
		Currency:       intentCurrency,
		Description:    fmt.Sprintf("Order #%d", order.ID),
		Metadata:       map[string]string{metadataOrderKey: strconv.FormatInt(order.ID, 10)},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}
	return &Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
		Status:       intent.Status,
	}, nil
}

// Confirm re-fetches the intent from the gateway and, if it succeeded, marks
// the referenced order as paid. The client's word is never trusted directly.
func (s *Service) Confirm(ctx context.Context, intentID string) (*domain.Order, error) {
	intent, err := s.gateway.GetPaymentIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != "succeeded" {
		return nil, ErrPaymentNotSucceeded
	}
	orderID, err := orderRef(intent.Metadata)
	if err != nil {
		return nil, err
	}
	return s.orders.MarkPaid(ctx, orderID)
}

// CreateCheckoutSession builds a hosted checkout page from the order's
// captured line item prices. Empty redirect URLs fall back to the
// configured defaults.
func (s *Service) CreateCheckoutSession(ctx context.Context, orderID int64, successURL, cancelURL string) (*Session, error) {
	if successURL == "" {
		successURL = s.successURL
	}
	if cancelURL == "" {
		cancelURL = s.cancelURL
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.orders.ListItemsWithProducts(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoItemsForOrder
	}

	lineItems := make([]stripe.SessionLineItem, 0, len(items))
	for _, it := range items {
		name := it.ProductName
		if name == "" {
			name = fmt.Sprintf("Product #%d", it.ProductID)
		}
		lineItems = append(lineItems, stripe.SessionLineItem{
			Name:            name,
			UnitAmountCents: toCents(it.Price),
			Currency:        sessionCurrency,
			Quantity:        it.Quantity,
		})
	}

	ref := strconv.FormatInt(order.ID, 10)
	session, err := s.gateway.CreateCheckoutSession(ctx, stripe.CreateSessionParams{
		SuccessURL:   successURL,
		CancelURL:    cancelURL,
		Metadata:     map[string]string{metadataOrderKey: ref},
		LineItems:    lineItems,
		IntentTagKey: metadataOrderKey,
		IntentTagVal: ref,
	})
	if err != nil {
		return nil, err
	}
	return &Session{ID: session.ID, URL: session.URL}, nil
}

// HandleWebhookEvent reacts to gateway notifications. It returns true when
// the event was recognized and reconciled; unknown event types and events
// without an order reference report false without an error so the webhook
// endpoint can acknowledge them. Marking an already paid order is a no-op.
func (s *Service) HandleWebhookEvent(ctx context.Context, payload []byte) (bool, error) {
	event, err := stripe.ParseEvent(payload)
	if err != nil {
		return false, err
	}

	var meta map[string]string
	switch event.Type {
	case stripe.EventCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := event.Object(&session); err != nil {
			return false, err
		}
		meta = session.Metadata
	case stripe.EventPaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := event.Object(&intent); err != nil {
			return false, err
		}
		meta = intent.Metadata
	default:
		s.logger.Printf("payment: ignoring webhook event type=%s", event.Type)
		return false, nil
	}

	orderID, err := orderRef(meta)
	if err != nil {
		s.logger.Printf("payment: webhook event type=%s has no order reference", event.Type)
		return false, nil
	}
	if _, err := s.orders.MarkPaid(ctx, orderID); err != nil {
		return false, err
	}
	s.logger.Printf("payment: order id=%d reconciled from event type=%s", orderID, event.Type)
	return true, nil
}

func orderRef(meta map[string]string) (int64, error) {
	raw, ok := meta[metadataOrderKey]
	if !ok || raw == "" {
		return 0, ErrOrderRefMissing
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrOrderRefMissing
	}
	return id, nil
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
