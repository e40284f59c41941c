package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"lesson-shop/internal/models"
)

// InMemoryStore keeps lessons and orders in maps guarded by one RWMutex.
// Records are copied on the way in and out so callers never share state.
type InMemoryStore struct {
	lessons map[string]*models.Lesson
	orders  map[string]*models.Order
	mutex   sync.RWMutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		lessons: make(map[string]*models.Lesson),
		orders:  make(map[string]*models.Order),
	}
}

func (s *InMemoryStore) ListLessons(ctx context.Context) ([]*models.Lesson, error) {
	return s.filterLessons(func(*models.Lesson) bool { return true }), nil
}

func (s *InMemoryStore) SearchLessons(ctx context.Context, prefix string) ([]*models.Lesson, error) {
	prefix = strings.ToLower(prefix)
	return s.filterLessons(func(l *models.Lesson) bool {
		return strings.HasPrefix(strings.ToLower(l.Subject), prefix)
	}), nil
}

func (s *InMemoryStore) filterLessons(keep func(*models.Lesson) bool) []*models.Lesson {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	lessons := make([]*models.Lesson, 0, len(s.lessons))
	for _, l := range s.lessons {
		if keep(l) {
			c := *l
			lessons = append(lessons, &c)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].ID < lessons[j].ID })
	return lessons
}

func (s *InMemoryStore) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	l, exists := s.lessons[id]
	if !exists {
		return nil, ErrNotFound
	}
	c := *l
	return &c, nil
}

func (s *InMemoryStore) SaveLesson(ctx context.Context, lesson *models.Lesson) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	lesson.ID = NewID()
	c := *lesson
	s.lessons[c.ID] = &c
	return nil
}

func (s *InMemoryStore) UpdateLesson(ctx context.Context, id string, update models.LessonUpdate) error {
	if !ValidID(id) {
		return ErrInvalidID
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	l, exists := s.lessons[id]
	if !exists {
		return ErrNotFound
	}
	update.Apply(l)
	return nil
}

func (s *InMemoryStore) DeleteLesson(ctx context.Context, id string) error {
	if !ValidID(id) {
		return ErrInvalidID
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.lessons[id]; !exists {
		return ErrNotFound
	}
	delete(s.lessons, id)
	return nil
}

func (s *InMemoryStore) ReserveSpaces(ctx context.Context, lessonID string, quantity int) error {
	if !ValidID(lessonID) {
		return ErrInvalidID
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	l, exists := s.lessons[lessonID]
	if !exists {
		return ErrNotFound
	}
	if l.Spaces < quantity {
		return ErrInsufficientSpaces
	}
	l.Spaces -= quantity
	l.AvailableInventory = l.Spaces
	return nil
}

func (s *InMemoryStore) ReleaseSpaces(ctx context.Context, lessonID string, quantity int) error {
	if !ValidID(lessonID) {
		return ErrInvalidID
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	l, exists := s.lessons[lessonID]
	if !exists {
		return ErrNotFound
	}
	l.Spaces += quantity
	l.AvailableInventory = l.Spaces
	return nil
}

func (s *InMemoryStore) SaveOrder(ctx context.Context, order *models.Order) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order.ID = NewID()
	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (s *InMemoryStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	o, exists := s.orders[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copyOrder(o), nil
}

func (s *InMemoryStore) ListOrders(ctx context.Context) ([]*models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	orders := make([]*models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, copyOrder(o))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (s *InMemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.LineItem(nil), o.Items...)
	return &c
}
