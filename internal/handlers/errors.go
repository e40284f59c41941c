package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lesson-shop/internal/services"
	"lesson-shop/internal/utils"
)

const internalErrorMessage = "Internal server error"

// statusFor maps a service error to its HTTP status and public message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, "Validation failed"
	case errors.Is(err, services.ErrEmptyCart):
		return http.StatusBadRequest, "Cart is empty"
	case errors.Is(err, services.ErrInvalidLessonID):
		return http.StatusBadRequest, "Invalid lesson id"
	case errors.Is(err, services.ErrInvalidOrderID):
		return http.StatusBadRequest, "Invalid order id"
	case errors.Is(err, services.ErrInsufficientSpaces):
		return http.StatusBadRequest, "Not enough spaces available"
	case errors.Is(err, services.ErrLessonNotFound):
		return http.StatusNotFound, "Lesson not found"
	case errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, services.ErrDuplicateSubmission):
		return http.StatusConflict, "Duplicate order submission"
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

// respondError writes the error body. Server-side detail goes to the request
// log only.
func respondError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, utils.ErrorResponse(message, ""))
		return
	}
	c.JSON(status, utils.ErrorResponse(message, err.Error()))
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
}
