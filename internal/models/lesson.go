package models

import (
	"errors"
	"strings"
)

// Lesson is a purchasable session with a finite number of spaces. Spaces is
// the authoritative stock counter; AvailableInventory mirrors it.
type Lesson struct {
	ID                 string  `json:"id"`
	Subject            string  `json:"subject"`
	Location           string  `json:"location"`
	Price              float64 `json:"price"`
	Spaces             int     `json:"spaces"`
	Image              string  `json:"image"`
	AvailableInventory int     `json:"availableInventory"`
}

// LessonRequest is the body of create and update calls. Pointer fields
// distinguish an absent value from a legitimate zero.
type LessonRequest struct {
	Subject            *string  `json:"subject"`
	Location           *string  `json:"location"`
	Price              *float64 `json:"price"`
	Spaces             *int     `json:"spaces"`
	Image              *string  `json:"image"`
	AvailableInventory *int     `json:"availableInventory"`
}

// LessonUpdate carries the fields to overwrite; nil fields are left untouched.
type LessonUpdate struct {
	Subject  *string
	Location *string
	Price    *float64
	Spaces   *int
	Image    *string
}

type LessonCreatedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ValidateCreate requires every descriptive field to be present.
func (r *LessonRequest) ValidateCreate() error {
	var missing []string
	if r.Subject == nil || strings.TrimSpace(*r.Subject) == "" {
		missing = append(missing, "subject")
	}
	if r.Location == nil || strings.TrimSpace(*r.Location) == "" {
		missing = append(missing, "location")
	}
	if r.Price == nil {
		missing = append(missing, "price")
	}
	if r.Spaces == nil {
		missing = append(missing, "spaces")
	}
	if r.Image == nil || strings.TrimSpace(*r.Image) == "" {
		missing = append(missing, "image")
	}
	if len(missing) > 0 {
		return errors.New("missing required fields: " + strings.Join(missing, ", "))
	}
	return r.validateValues()
}

// ValidateUpdate requires subject and spaces; other fields are optional.
func (r *LessonRequest) ValidateUpdate() error {
	if r.Subject == nil || strings.TrimSpace(*r.Subject) == "" {
		return errors.New("subject is required")
	}
	if r.Spaces == nil {
		return errors.New("spaces is required")
	}
	if r.Location != nil && strings.TrimSpace(*r.Location) == "" {
		return errors.New("location cannot be empty")
	}
	if r.Image != nil && strings.TrimSpace(*r.Image) == "" {
		return errors.New("image cannot be empty")
	}
	return r.validateValues()
}

func (r *LessonRequest) validateValues() error {
	if r.Price != nil && *r.Price < 0 {
		return errors.New("price cannot be negative")
	}
	if r.Spaces != nil && *r.Spaces < 0 {
		return errors.New("spaces cannot be negative")
	}
	if r.AvailableInventory != nil && *r.AvailableInventory < 0 {
		return errors.New("availableInventory cannot be negative")
	}
	return nil
}

// ToLesson builds a new lesson from a validated create request.
func (r *LessonRequest) ToLesson() *Lesson {
	return &Lesson{
		Subject:            strings.TrimSpace(*r.Subject),
		Location:           strings.TrimSpace(*r.Location),
		Price:              *r.Price,
		Spaces:             *r.Spaces,
		Image:              strings.TrimSpace(*r.Image),
		AvailableInventory: *r.Spaces,
	}
}

// ToUpdate converts a validated update request into a field set.
func (r *LessonRequest) ToUpdate() LessonUpdate {
	u := LessonUpdate{
		Price:  r.Price,
		Spaces: r.Spaces,
	}
	if r.Subject != nil {
		s := strings.TrimSpace(*r.Subject)
		u.Subject = &s
	}
	if r.Location != nil {
		s := strings.TrimSpace(*r.Location)
		u.Location = &s
	}
	if r.Image != nil {
		s := strings.TrimSpace(*r.Image)
		u.Image = &s
	}
	return u
}

// Apply overwrites the lesson fields present in u.
func (u LessonUpdate) Apply(l *Lesson) {
	if u.Subject != nil {
		l.Subject = *u.Subject
	}
	if u.Location != nil {
		l.Location = *u.Location
	}
	if u.Price != nil {
		l.Price = *u.Price
	}
	if u.Spaces != nil {
		l.Spaces = *u.Spaces
		l.AvailableInventory = *u.Spaces
	}
	if u.Image != nil {
		l.Image = *u.Image
	}
}
