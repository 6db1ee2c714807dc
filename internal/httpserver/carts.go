package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cartsvc "github.com/listellodavide/onion-factory/internal/service/cart"
)

type cartHandlers struct {
	carts *cartsvc.Service
}

func (h *cartHandlers) get(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.carts.GetCartWithItems(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *cartHandlers) addItem(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in cartsvc.AddItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	view, err := h.carts.AddItemToCart(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *cartHandlers) removeItem(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	view, err := h.carts.RemoveItemFromCart(c.Request.Context(), userID, productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *cartHandlers) empty(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.carts.EmptyCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *cartHandlers) checkout(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.carts.Checkout(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}
