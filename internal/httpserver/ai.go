package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/listellodavide/onion-factory/internal/ai"
)

type aiHandlers struct {
	client *ai.Client
}

func (h *aiHandlers) chat(c *gin.Context) {
	var req struct {
		Messages []ai.Message `json:"messages" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages required"})
		return
	}
	reply, err := h.client.Chat(c.Request.Context(), req.Messages)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
