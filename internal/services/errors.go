package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidLessonID     = errors.New("invalid lesson id")
	ErrLessonNotFound      = errors.New("lesson not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientSpaces  = errors.New("insufficient spaces")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidOrderID      = errors.New("invalid order id")
	ErrDuplicateSubmission = errors.New("duplicate order submission")
)

// DuplicateSubmissionError reports a reused idempotency key. OrderID is set
// once the first submission has committed.
type DuplicateSubmissionError struct {
	Key     string
	OrderID string
}

func (e *DuplicateSubmissionError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("%s: idempotency key %s is in use", ErrDuplicateSubmission, e.Key)
	}
	return fmt.Sprintf("%s: idempotency key %s already placed order %s", ErrDuplicateSubmission, e.Key, e.OrderID)
}

func (e *DuplicateSubmissionError) Unwrap() error { return ErrDuplicateSubmission }
