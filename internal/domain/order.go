package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. PENDING is the initial status; the payment flow moves an
// order to PAID. FAILED and CANCELLED are reserved for gateway failure and
// manual cancellation.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusFailed    = "FAILED"
	OrderStatusCancelled = "CANCELLED"
)

// AnonymousUserID is the sentinel owner for orders created without a username.
const AnonymousUserID int64 = 0

type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	OrderDate   time.Time       `json:"orderDate"`
	Status      string          `json:"status"`
}

// OrderItem is stored in the order_details table and carries the product
// price captured at order-creation time.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"orderId"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
