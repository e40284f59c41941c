package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusPending OrderStatus = "Pending"
)

type OrderDetails struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type LineItem struct {
	LessonID string `json:"lessonId"`
	Subject  string `json:"subject,omitempty"`
	Quantity int    `json:"quantity"`
}

type Order struct {
	ID        string       `json:"id"`
	Details   OrderDetails `json:"orderDetails"`
	Items     []LineItem   `json:"cartItems"`
	OrderDate time.Time    `json:"orderDate"`
	Status    OrderStatus  `json:"status"`
}

type CartItem struct {
	LessonID string `json:"lessonId"`
	Quantity int    `json:"quantity"`
}

// OrderRequest is the body of both order endpoints. The legacy endpoint
// leaves OrderDetails empty.
type OrderRequest struct {
	OrderDetails *OrderDetails `json:"orderDetails"`
	CartItems    []CartItem    `json:"cartItems"`
}

type OrderResponse struct {
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"orderId"`
	Order     *Order    `json:"order"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidateItems checks every cart line; emptiness is reported by the caller.
func (r *OrderRequest) ValidateItems() error {
	for i, item := range r.CartItems {
		if strings.TrimSpace(item.LessonID) == "" {
			return fmt.Errorf("cart item %d: lessonId is required", i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("cart item %d: quantity must be at least 1", i)
		}
	}
	return nil
}

func (r *OrderRequest) ValidateDetails() error {
	if r.OrderDetails == nil {
		return errors.New("orderDetails is required")
	}
	if strings.TrimSpace(r.OrderDetails.Name) == "" {
		return errors.New("orderDetails.name is required")
	}
	if strings.TrimSpace(r.OrderDetails.Phone) == "" {
		return errors.New("orderDetails.phone is required")
	}
	return nil
}

// MergedItems sums quantities of repeated lessons, keeping first-seen order.
// Lines must already have passed ValidateItems.
func (r *OrderRequest) MergedItems() ([]LineItem, error) {
	index := make(map[string]int, len(r.CartItems))
	items := make([]LineItem, 0, len(r.CartItems))
	for _, c := range r.CartItems {
		id := strings.TrimSpace(c.LessonID)
		if i, ok := index[id]; ok {
			if c.Quantity > math.MaxInt-items[i].Quantity {
				return nil, fmt.Errorf("total quantity for lesson %s is too large", id)
			}
			items[i].Quantity += c.Quantity
			continue
		}
		index[id] = len(items)
		items = append(items, LineItem{LessonID: id, Quantity: c.Quantity})
	}
	return items, nil
}
