package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"

	"lesson-shop/internal/logger"
	"lesson-shop/internal/metrics"
	"lesson-shop/internal/models"
)

// MockStore implements the storage.Store interface for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListLessons(ctx context.Context) ([]*models.Lesson, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lesson), args.Error(1)
}

func (m *MockStore) SearchLessons(ctx context.Context, prefix string) ([]*models.Lesson, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lesson), args.Error(1)
}

func (m *MockStore) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lesson), args.Error(1)
}

func (m *MockStore) SaveLesson(ctx context.Context, lesson *models.Lesson) error {
	args := m.Called(ctx, lesson)
	return args.Error(0)
}

func (m *MockStore) UpdateLesson(ctx context.Context, id string, update models.LessonUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockStore) DeleteLesson(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) ReserveSpaces(ctx context.Context, lessonID string, quantity int) error {
	args := m.Called(ctx, lessonID, quantity)
	return args.Error(0)
}

func (m *MockStore) ReleaseSpaces(ctx context.Context, lessonID string, quantity int) error {
	args := m.Called(ctx, lessonID, quantity)
	return args.Error(0)
}

func (m *MockStore) SaveOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockStore) ListOrders(ctx context.Context) ([]*models.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderEvent(event *models.OrderEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

// memoryLock is an OrderLock backed by a map of key to token or order id.
type memoryLock struct {
	mu     sync.Mutex
	keys   map[string]string
	issued int
}

func newMemoryLock() *memoryLock {
	return &memoryLock{keys: make(map[string]string)}
}

func (l *memoryLock) Acquire(ctx context.Context, key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.keys[key]; taken {
		return "", false, nil
	}
	l.issued++
	token := fmt.Sprintf("pending:%d", l.issued)
	l.keys[key] = token
	return token, true, nil
}

func (l *memoryLock) Complete(ctx context.Context, key, token, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.keys[key] != token {
		return errors.New("lock lost")
	}
	l.keys[key] = orderID
	return nil
}

func (l *memoryLock) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.keys[key] == token {
		delete(l.keys, key)
	}
	return nil
}

func (l *memoryLock) OrderFor(ctx context.Context, key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v := l.keys[key]; !strings.HasPrefix(v, "pending:") {
		return v, nil
	}
	return "", nil
}

func testLogger() *logger.Logger {
	return logger.New(&bytes.Buffer{}, logger.LevelDebug)
}

func testMetrics() *metrics.OrderMetrics {
	return metrics.NewOrderMetrics(prometheus.NewRegistry())
}
