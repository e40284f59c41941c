package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lesson-shop/internal/logger"
	"lesson-shop/internal/models"
	"lesson-shop/internal/storage"
)

// LessonService is the catalog: read and write access to lessons.
type LessonService struct {
	store storage.Store
	log   *logger.Logger
}

func NewLessonService(store storage.Store, log *logger.Logger) *LessonService {
	return &LessonService{store: store, log: log}
}

func (s *LessonService) ListLessons(ctx context.Context) ([]*models.Lesson, error) {
	lessons, err := s.store.ListLessons(ctx)
	if err != nil {
		s.log.Error("LESSON", fmt.Sprintf("Failed to list lessons: %v", err))
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return lessons, nil
}

// SearchLessons matches subjects that start with term, ignoring case.
func (s *LessonService) SearchLessons(ctx context.Context, term string) ([]*models.Lesson, error) {
	lessons, err := s.store.SearchLessons(ctx, strings.TrimSpace(term))
	if err != nil {
		s.log.Error("LESSON", fmt.Sprintf("Failed to search lessons for %q: %v", term, err))
		return nil, fmt.Errorf("failed to search lessons: %w", err)
	}
	return lessons, nil
}

func (s *LessonService) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.store.GetLesson(ctx, id)
	if err != nil {
		return nil, s.lessonError("get", id, err)
	}
	return lesson, nil
}

func (s *LessonService) CreateLesson(ctx context.Context, req *models.LessonRequest) (*models.Lesson, error) {
	if err := req.ValidateCreate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	lesson := req.ToLesson()
	if err := s.store.SaveLesson(ctx, lesson); err != nil {
		s.log.Error("LESSON", fmt.Sprintf("Failed to save lesson %q: %v", lesson.Subject, err))
		return nil, fmt.Errorf("failed to save lesson: %w", err)
	}

	s.log.LogInventory("CREATE", lesson.ID, fmt.Sprintf("Lesson %q created with %d spaces", lesson.Subject, lesson.Spaces))
	return lesson, nil
}

func (s *LessonService) UpdateLesson(ctx context.Context, id string, req *models.LessonRequest) error {
	if !storage.ValidID(id) {
		return fmt.Errorf("%w: %s", ErrInvalidLessonID, id)
	}
	if err := req.ValidateUpdate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	if err := s.store.UpdateLesson(ctx, id, req.ToUpdate()); err != nil {
		return s.lessonError("update", id, err)
	}

	s.log.LogInventory("UPDATE", id, fmt.Sprintf("Lesson updated, spaces now %d", *req.Spaces))
	return nil
}

func (s *LessonService) DeleteLesson(ctx context.Context, id string) error {
	if err := s.store.DeleteLesson(ctx, id); err != nil {
		return s.lessonError("delete", id, err)
	}

	s.log.LogInventory("DELETE", id, "Lesson deleted")
	return nil
}

func (s *LessonService) lessonError(op, id string, err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidID):
		return fmt.Errorf("%w: %s", ErrInvalidLessonID, id)
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrLessonNotFound, id)
	default:
		s.log.Error("LESSON", fmt.Sprintf("Failed to %s lesson %s: %v", op, id, err))
		return fmt.Errorf("failed to %s lesson: %w", op, err)
	}
}
