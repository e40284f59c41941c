package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"lesson-shop/internal/kafka"
	"lesson-shop/internal/logger"
	"lesson-shop/internal/metrics"
	"lesson-shop/internal/models"
	"lesson-shop/internal/storage"
)

type EventPublisher interface {
	PublishOrderEvent(event *models.OrderEvent) error
}

// OrderLock claims an idempotency key for the duration of one submission.
// Complete and Release only act while the key still holds token.
type OrderLock interface {
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	Complete(ctx context.Context, key, token, orderID string) error
	Release(ctx context.Context, key, token string) error
	OrderFor(ctx context.Context, key string) (string, error)
}

type OrderOptions struct {
	// RequireDetails demands orderDetails.name and orderDetails.phone.
	RequireDetails bool
	// IdempotencyKey is ignored when no lock is configured.
	IdempotencyKey string
}

type OrderService struct {
	store             storage.Store
	publisher         EventPublisher
	lock              OrderLock
	metrics           *metrics.OrderMetrics
	retry             RetryConfig
	lookupConcurrency int
	log               *logger.Logger
	now               func() time.Time
}

// NewOrderService wires the order workflow. lock may be nil.
func NewOrderService(store storage.Store, publisher EventPublisher, lock OrderLock, m *metrics.OrderMetrics,
	retry RetryConfig, lookupConcurrency int, log *logger.Logger) *OrderService {
	if lookupConcurrency < 1 {
		lookupConcurrency = 1
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &OrderService{
		store:             store,
		publisher:         publisher,
		lock:              lock,
		metrics:           m,
		retry:             retry,
		lookupConcurrency: lookupConcurrency,
		log:               log,
		now:               time.Now,
	}
}

// PlaceOrder validates the cart, reserves spaces for every line item with a
// conditional decrement and persists the order. Any failure after the first
// reservation releases what was reserved before returning.
func (s *OrderService) PlaceOrder(ctx context.Context, req *models.OrderRequest, opts OrderOptions) (order *models.Order, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveDuration(time.Since(start))
		if err != nil {
			s.metrics.RecordRejected(rejectReason(err))
		}
	}()

	items, err := s.validate(req, opts.RequireDetails)
	if err != nil {
		return nil, err
	}

	if key := strings.TrimSpace(opts.IdempotencyKey); key != "" && s.lock != nil {
		token, acquired, lockErr := s.lock.Acquire(ctx, key)
		if lockErr != nil {
			s.log.Error("ORDER", fmt.Sprintf("Failed to acquire lock for key %s: %v", key, lockErr))
			return nil, fmt.Errorf("failed to acquire order lock: %w", lockErr)
		}
		if !acquired {
			return nil, s.duplicate(ctx, key)
		}
		defer s.settleLock(ctx, key, token, &order, &err)
	}

	lessons, err := s.loadLessons(ctx, items)
	if err != nil {
		return nil, err
	}

	for i := range items {
		lesson := lessons[i]
		items[i].Subject = lesson.Subject
		if items[i].Quantity > lesson.Spaces {
			s.log.LogInventory("REJECT", lesson.ID, fmt.Sprintf("Requested %d, only %d left", items[i].Quantity, lesson.Spaces))
			return nil, fmt.Errorf("%w: only %d spaces left for %s", ErrInsufficientSpaces, lesson.Spaces, lesson.Subject)
		}
	}

	reserved := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		if err := s.store.ReserveSpaces(ctx, item.LessonID, item.Quantity); err != nil {
			if relErr := s.releaseAll(ctx, reserved); relErr != nil {
				return nil, relErr
			}
			return nil, reserveError(item, err)
		}
		reserved = append(reserved, item)
		s.log.LogInventory("RESERVE", item.LessonID, fmt.Sprintf("Reserved %d spaces", item.Quantity))
	}

	order = &models.Order{
		Details:   details(req),
		Items:     items,
		OrderDate: s.now().UTC(),
		Status:    models.StatusPending,
	}
	if err := s.store.SaveOrder(ctx, order); err != nil {
		s.log.Error("ORDER", fmt.Sprintf("Failed to save order: %v", err))
		if relErr := s.releaseAll(ctx, reserved); relErr != nil {
			return nil, relErr
		}
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	s.metrics.RecordPlaced(total)
	s.log.LogOrder("PLACED", order.ID, fmt.Sprintf("%d line items, %d spaces", len(items), total))

	s.publishOrderEvent(kafka.EventOrderPlaced, order)
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	switch {
	case err == nil:
		return order, nil
	case errors.Is(err, storage.ErrInvalidID):
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrderID, id)
	case errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	default:
		s.log.Error("ORDER", fmt.Sprintf("Failed to get order %s: %v", id, err))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
}

func (s *OrderService) ListOrders(ctx context.Context) ([]*models.Order, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		s.log.Error("ORDER", fmt.Sprintf("Failed to list orders: %v", err))
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) validate(req *models.OrderRequest, requireDetails bool) ([]models.LineItem, error) {
	if req == nil || len(req.CartItems) == 0 {
		return nil, ErrEmptyCart
	}
	if err := req.ValidateItems(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if requireDetails {
		if err := req.ValidateDetails(); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
	}

	items, err := req.MergedItems()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	for _, item := range items {
		if !storage.ValidID(item.LessonID) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidLessonID, item.LessonID)
		}
	}
	return items, nil
}

// loadLessons reads every referenced lesson concurrently and waits for all of
// them. The result is index-aligned with items.
func (s *OrderService) loadLessons(ctx context.Context, items []models.LineItem) ([]*models.Lesson, error) {
	lessons := make([]*models.Lesson, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.lookupConcurrency)
	for i, item := range items {
		g.Go(func() error {
			lesson, err := s.store.GetLesson(gctx, item.LessonID)
			switch {
			case err == nil:
				lessons[i] = lesson
				return nil
			case errors.Is(err, storage.ErrNotFound):
				return fmt.Errorf("%w: %s", ErrLessonNotFound, item.LessonID)
			case errors.Is(err, storage.ErrInvalidID):
				return fmt.Errorf("%w: %s", ErrInvalidLessonID, item.LessonID)
			default:
				s.log.Error("ORDER", fmt.Sprintf("Failed to load lesson %s: %v", item.LessonID, err))
				return fmt.Errorf("failed to load lesson %s: %w", item.LessonID, err)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lessons, nil
}

// releaseAll gives back every reservation in items. It runs on a context that
// outlives request cancellation.
func (s *OrderService) releaseAll(ctx context.Context, items []models.LineItem) error {
	ctx = context.WithoutCancel(ctx)

	var failed []string
	for _, item := range items {
		err := retry(ctx, s.retry, func(attempt int) error {
			err := s.store.ReleaseSpaces(ctx, item.LessonID, item.Quantity)
			if err != nil && attempt < s.retry.MaxAttempts {
				s.log.Warn("INVENTORY", fmt.Sprintf("Release of %d spaces for lesson %s failed (attempt %d): %v",
					item.Quantity, item.LessonID, attempt, err))
			}
			return err
		})
		s.metrics.RecordCompensation(err == nil)
		if err != nil {
			s.log.Error("INVENTORY", fmt.Sprintf("Inventory inconsistent: could not release %d spaces for lesson %s after %d attempts: %v",
				item.Quantity, item.LessonID, s.retry.MaxAttempts, err))
			failed = append(failed, item.LessonID)
			continue
		}
		s.log.LogInventory("RELEASE", item.LessonID, fmt.Sprintf("Released %d spaces", item.Quantity))
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to release reservations for lessons %s", strings.Join(failed, ", "))
	}
	return nil
}

// duplicate builds the rejection for a key that is already taken, naming the
// committed order when there is one.
func (s *OrderService) duplicate(ctx context.Context, key string) error {
	orderID, err := s.lock.OrderFor(ctx, key)
	if err != nil {
		s.log.Warn("ORDER", fmt.Sprintf("Failed to look up order for key %s: %v", key, err))
	}
	s.log.LogSecurity("DUPLICATE_ORDER", fmt.Sprintf("Idempotency key %s already used (order %q)", key, orderID))
	return &DuplicateSubmissionError{Key: key, OrderID: orderID}
}

func (s *OrderService) settleLock(ctx context.Context, key, token string, order **models.Order, err *error) {
	ctx = context.WithoutCancel(ctx)
	if *err != nil {
		if relErr := s.lock.Release(ctx, key, token); relErr != nil {
			s.log.Warn("ORDER", fmt.Sprintf("Failed to release lock for key %s: %v", key, relErr))
		}
		return
	}
	if cErr := s.lock.Complete(ctx, key, token, (*order).ID); cErr != nil {
		s.log.Warn("ORDER", fmt.Sprintf("Failed to record order %s for key %s: %v", (*order).ID, key, cErr))
	}
}

// publishOrderEvent never fails the order; the record is already committed.
func (s *OrderService) publishOrderEvent(eventType string, order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderEvent{
		Type:      eventType,
		OrderID:   order.ID,
		Order:     order,
		Timestamp: s.now().UTC(),
	}
	if err := s.publisher.PublishOrderEvent(event); err != nil {
		s.log.Warn("ORDER", fmt.Sprintf("Failed to publish %s event for order %s: %v", eventType, order.ID, err))
	}
}

func reserveError(item models.LineItem, err error) error {
	switch {
	case errors.Is(err, storage.ErrInsufficientSpaces):
		return fmt.Errorf("%w: not enough spaces left for %s", ErrInsufficientSpaces, item.Subject)
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrLessonNotFound, item.LessonID)
	case errors.Is(err, storage.ErrInvalidQuantity):
		return fmt.Errorf("%w: %s for %s", ErrInvalidInput, err, item.LessonID)
	default:
		return fmt.Errorf("failed to reserve spaces for lesson %s: %w", item.LessonID, err)
	}
}

func details(req *models.OrderRequest) models.OrderDetails {
	if req.OrderDetails == nil {
		return models.OrderDetails{}
	}
	return models.OrderDetails{
		Name:  strings.TrimSpace(req.OrderDetails.Name),
		Phone: strings.TrimSpace(req.OrderDetails.Phone),
		Email: strings.TrimSpace(req.OrderDetails.Email),
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidLessonID):
		return metrics.ReasonInvalid
	case errors.Is(err, ErrLessonNotFound):
		return metrics.ReasonNotFound
	case errors.Is(err, ErrInsufficientSpaces):
		return metrics.ReasonInsufficient
	case errors.Is(err, ErrDuplicateSubmission):
		return metrics.ReasonDuplicate
	default:
		return metrics.ReasonError
	}
}
