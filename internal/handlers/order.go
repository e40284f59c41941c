package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lesson-shop/internal/models"
	"lesson-shop/internal/services"
	"lesson-shop/internal/utils"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// PlaceOrder handles {orderDetails, cartItems}; name and phone are required.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	h.placeOrder(c, true)
}

// PlaceLegacyOrder handles a bare {cartItems} body.
func (h *OrderHandler) PlaceLegacyOrder(c *gin.Context) {
	h.placeOrder(c, false)
}

func (h *OrderHandler) placeOrder(c *gin.Context, requireDetails bool) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), &req, services.OrderOptions{
		RequireDetails: requireDetails,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	var dup *services.DuplicateSubmissionError
	if errors.As(err, &dup) && dup.OrderID != "" {
		body := utils.ErrorResponse("Duplicate order submission", err.Error())
		body["orderId"] = dup.OrderID
		c.JSON(http.StatusConflict, body)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.OrderResponse{
		Message: "Order placed successfully",
		OrderID: order.ID,
	})
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
