package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/listellodavide/onion-factory/internal/gateway/sumup"
)

// sumupHandlers proxy the SumUp checkout API for the frontend widget.
// Upstream error statuses are passed through untouched.
type sumupHandlers struct {
	client *sumup.Client
	logger *log.Logger
}

func (h *sumupHandlers) respondUpstreamError(c *gin.Context, err error) {
	var apiErr *sumup.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Message})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway error"})
}

func (h *sumupHandlers) createCheckout(c *gin.Context) {
	var req sumup.CreateCheckoutParams
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	checkout, err := h.client.CreateCheckout(c.Request.Context(), req)
	if err != nil {
		h.respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

func (h *sumupHandlers) getCheckout(c *gin.Context) {
	checkout, err := h.client.GetCheckout(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

func (h *sumupHandlers) processCheckout(c *gin.Context) {
	var details map[string]interface{}
	if err := c.ShouldBindJSON(&details); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	checkout, err := h.client.ProcessCheckout(c.Request.Context(), c.Param("id"), details)
	if err != nil {
		h.respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

func (h *sumupHandlers) deactivateCheckout(c *gin.Context) {
	checkout, err := h.client.DeactivateCheckout(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

func (h *sumupHandlers) paymentMethods(c *gin.Context) {
	methods, err := h.client.PaymentMethods(c.Request.Context(), c.Query("amount"), c.Query("currency"))
	if err != nil {
		h.respondUpstreamError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", methods)
}

// webhook only records SumUp notifications. Order reconciliation for SumUp
// payments happens through the checkout status polled by the frontend.
func (h *sumupHandlers) webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"received": false})
		return
	}

	var event struct {
		EventType  string `json:"event_type"`
		CheckoutID string `json:"id"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Printf("sumup: webhook with malformed payload=%s", payload)
		c.JSON(http.StatusOK, gin.H{"received": false})
		return
	}

	switch event.EventType {
	case "CHECKOUT_COMPLETED":
		h.logger.Printf("sumup: checkout completed id=%s", event.CheckoutID)
	case "CHECKOUT_FAILED":
		h.logger.Printf("sumup: checkout failed id=%s status=%s", event.CheckoutID, event.Status)
	case "CHECKOUT_EXPIRED":
		h.logger.Printf("sumup: checkout expired id=%s", event.CheckoutID)
	default:
		h.logger.Printf("sumup: webhook event type=%s ignored", event.EventType)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
