package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesson-shop/internal/models"
)

func seedLesson(t *testing.T, s Store, subject string, spaces int) *models.Lesson {
	t.Helper()
	l := &models.Lesson{Subject: subject, Location: "London", Price: 50, Spaces: spaces, Image: "x.png", AvailableInventory: spaces}
	require.NoError(t, s.SaveLesson(context.Background(), l))
	require.True(t, ValidID(l.ID))
	return l
}

func TestInMemoryStoreLessonCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	l := seedLesson(t, s, "Maths", 5)

	got, err := s.GetLesson(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maths", got.Subject)

	got.Subject = "mutated"
	again, _ := s.GetLesson(ctx, l.ID)
	assert.Equal(t, "Maths", again.Subject)

	subject, spaces := "Further Maths", 9
	require.NoError(t, s.UpdateLesson(ctx, l.ID, models.LessonUpdate{Subject: &subject, Spaces: &spaces}))
	got, _ = s.GetLesson(ctx, l.ID)
	assert.Equal(t, "Further Maths", got.Subject)
	assert.Equal(t, 9, got.Spaces)
	assert.Equal(t, 9, got.AvailableInventory)
	assert.Equal(t, "London", got.Location)

	require.NoError(t, s.DeleteLesson(ctx, l.ID))
	_, err = s.GetLesson(ctx, l.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteLesson(ctx, l.ID), ErrNotFound)
}

func TestInMemoryStoreInvalidIDs(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	_, err := s.GetLesson(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.ErrorIs(t, s.DeleteLesson(ctx, "123"), ErrInvalidID)
	assert.ErrorIs(t, s.ReserveSpaces(ctx, "zz", 1), ErrInvalidID)
	_, err = s.GetOrder(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = s.GetLesson(ctx, NewID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreSearchIsCaseInsensitivePrefix(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	seedLesson(t, s, "Maths", 5)
	seedLesson(t, s, "Math Lab", 5)
	seedLesson(t, s, "Science", 5)
	seedLesson(t, s, "Applied maths", 5)

	found, err := s.SearchLessons(ctx, "math")
	require.NoError(t, err)
	subjects := []string{}
	for _, l := range found {
		subjects = append(subjects, l.Subject)
	}
	assert.ElementsMatch(t, []string{"Maths", "Math Lab"}, subjects)

	all, err := s.SearchLessons(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := s.SearchLessons(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryStoreListIsEmptySliceNotNil(t *testing.T) {
	lessons, err := NewInMemoryStore().ListLessons(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, lessons)
	assert.Empty(t, lessons)
}

func TestInMemoryStoreReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	l := seedLesson(t, s, "Art", 3)

	require.NoError(t, s.ReserveSpaces(ctx, l.ID, 2))
	assert.ErrorIs(t, s.ReserveSpaces(ctx, l.ID, 2), ErrInsufficientSpaces)

	got, _ := s.GetLesson(ctx, l.ID)
	assert.Equal(t, 1, got.Spaces)
	assert.Equal(t, 1, got.AvailableInventory)

	require.NoError(t, s.ReleaseSpaces(ctx, l.ID, 2))
	got, _ = s.GetLesson(ctx, l.ID)
	assert.Equal(t, 3, got.Spaces)
	assert.Equal(t, 3, got.AvailableInventory)

	assert.ErrorIs(t, s.ReserveSpaces(ctx, NewID(), 1), ErrNotFound)
}

func TestReserveAndReleaseRejectNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemoryStore()
	l := seedLesson(t, mem, "Art", 3)

	stores := map[string]Store{
		"memory": mem,
		"mongo":  &MongoStore{},
		"mysql":  &MySQLStore{},
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			for _, q := range []int{0, -1, -2} {
				assert.ErrorIs(t, s.ReserveSpaces(ctx, l.ID, q), ErrInvalidQuantity)
				assert.ErrorIs(t, s.ReleaseSpaces(ctx, l.ID, q), ErrInvalidQuantity)
			}
		})
	}

	got, err := mem.GetLesson(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Spaces)
	assert.Equal(t, 3, got.AvailableInventory)
}

func TestInMemoryStoreConcurrentReservationsNeverOversell(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	l := seedLesson(t, s, "Chess", 10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.ReserveSpaces(ctx, l.ID, 1)
			if err == nil {
				mu.Lock()
				reserved++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientSpaces) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.GetLesson(ctx, l.ID)
	assert.Equal(t, 10, reserved)
	assert.Equal(t, 0, got.Spaces)
}

func TestInMemoryStoreOrders(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	order := &models.Order{
		Details:   models.OrderDetails{Name: "Ada", Phone: "0123"},
		Items:     []models.LineItem{{LessonID: NewID(), Subject: "Maths", Quantity: 2}},
		OrderDate: time.Now().UTC(),
		Status:    models.StatusPending,
	}
	require.NoError(t, s.SaveOrder(ctx, order))
	require.True(t, ValidID(order.ID))

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Items, got.Items)
	assert.Equal(t, models.StatusPending, got.Status)

	got.Items[0].Quantity = 99
	again, _ := s.GetOrder(ctx, order.ID)
	assert.Equal(t, 2, again.Items[0].Quantity)

	orders, err := s.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = s.GetOrder(ctx, NewID())
	assert.ErrorIs(t, err, ErrNotFound)
}
