package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lesson-shop/internal/models"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidID          = errors.New("invalid identifier")
	ErrInsufficientSpaces = errors.New("insufficient spaces")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
)

// Store is the document store holding the lessons and orders collections.
// ReserveSpaces must be a single conditional write: it decrements spaces only
// if the current value is at least quantity. Both ReserveSpaces and
// ReleaseSpaces reject a quantity below 1 with ErrInvalidQuantity.
type Store interface {
	ListLessons(ctx context.Context) ([]*models.Lesson, error)
	SearchLessons(ctx context.Context, prefix string) ([]*models.Lesson, error)
	GetLesson(ctx context.Context, id string) (*models.Lesson, error)
	SaveLesson(ctx context.Context, lesson *models.Lesson) error
	UpdateLesson(ctx context.Context, id string, update models.LessonUpdate) error
	DeleteLesson(ctx context.Context, id string) error

	ReserveSpaces(ctx context.Context, lessonID string, quantity int) error
	ReleaseSpaces(ctx context.Context, lessonID string, quantity int) error

	SaveOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)

	HealthCheck(ctx context.Context) error
	Close() error
}

// NewID returns a fresh identifier in the external 24-hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id can be parsed into the store key type.
func ValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}
