package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/listellodavide/onion-factory/internal/ai"
	"github.com/listellodavide/onion-factory/internal/auth"
	"github.com/listellodavide/onion-factory/internal/domain"
	"github.com/listellodavide/onion-factory/internal/gateway/stripe"
	"github.com/listellodavide/onion-factory/internal/gateway/sumup"
	cartsvc "github.com/listellodavide/onion-factory/internal/service/cart"
	paymentsvc "github.com/listellodavide/onion-factory/internal/service/payment"
)

// respondError translates service and gateway errors into HTTP statuses.
// Unrecognized errors become an opaque 500 so internals do not leak.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, cartsvc.ErrEmptyCart),
		errors.Is(err, paymentsvc.ErrNoItemsForOrder),
		errors.Is(err, paymentsvc.ErrOrderRefMissing),
		errors.Is(err, auth.ErrUnknownProvider):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, paymentsvc.ErrPaymentNotSucceeded):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, ai.ErrBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	default:
		var stripeErr *stripe.APIError
		var sumupErr *sumup.APIError
		if errors.As(err, &stripeErr) || errors.As(err, &sumupErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway error"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

const sessionClaimsKey = "sessionClaims"

// requireSession verifies the bearer token and stashes the claims on the
// request context.
func requireSession(sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		claims, err := sessions.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(sessionClaimsKey, claims)
		c.Next()
	}
}

func sessionClaims(c *gin.Context) (*auth.SessionClaims, bool) {
	v, ok := c.Get(sessionClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.SessionClaims)
	return claims, ok
}
