package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lesson-shop/internal/storage"
	"lesson-shop/internal/utils"
)

type HealthHandler struct {
	store   storage.Store
	timeout time.Duration
}

func NewHealthHandler(store storage.Store) *HealthHandler {
	return &HealthHandler{store: store, timeout: 2 * time.Second}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.store.HealthCheck(ctx); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, utils.ErrorResponse("Service unavailable", "store unreachable"))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("healthy", gin.H{
		"service":   "lesson-shop",
		"store":     "up",
		"timestamp": time.Now().UTC(),
	}))
}
