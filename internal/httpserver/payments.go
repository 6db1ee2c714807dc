package httpserver

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentsvc "github.com/listellodavide/onion-factory/internal/service/payment"
)

type paymentHandlers struct {
	payments *paymentsvc.Service
}

type orderRefRequest struct {
	OrderID int64 `json:"orderId" binding:"required"`
}

func (h *paymentHandlers) createIntent(c *gin.Context) {
	var req orderRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId required"})
		return
	}
	intent, err := h.payments.CreateIntent(c.Request.Context(), req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (h *paymentHandlers) confirm(c *gin.Context) {
	var req struct {
		PaymentIntentID string `json:"paymentIntentId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentIntentId required"})
		return
	}
	order, err := h.payments.Confirm(c.Request.Context(), req.PaymentIntentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *paymentHandlers) createCheckout(c *gin.Context) {
	var req struct {
		OrderID    int64  `json:"orderId" binding:"required"`
		SuccessURL string `json:"successUrl"`
		CancelURL  string `json:"cancelUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId required"})
		return
	}
	session, err := h.payments.CreateCheckoutSession(c.Request.Context(), req.OrderID, req.SuccessURL, req.CancelURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// webhook always acknowledges with 200 so the gateway does not retry
// endlessly; the body reports whether the event was applied.
func (h *paymentHandlers) webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"received": false})
		return
	}
	handled, err := h.payments.HandleWebhookEvent(c.Request.Context(), payload)
	if err != nil || !handled {
		c.JSON(http.StatusOK, gin.H{"received": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
