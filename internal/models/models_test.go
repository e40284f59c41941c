package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func fullRequest() *LessonRequest {
	return &LessonRequest{
		Subject:  strPtr("Maths"),
		Location: strPtr("London"),
		Price:    floatPtr(100),
		Spaces:   intPtr(5),
		Image:    strPtr("maths.png"),
	}
}

func TestValidateCreateAcceptsZeroPriceAndSpaces(t *testing.T) {
	req := fullRequest()
	req.Price = floatPtr(0)
	req.Spaces = intPtr(0)

	require.NoError(t, req.ValidateCreate())

	lesson := req.ToLesson()
	assert.Equal(t, 0.0, lesson.Price)
	assert.Equal(t, 0, lesson.Spaces)
	assert.Equal(t, 0, lesson.AvailableInventory)
}

func TestValidateCreateReportsMissingFields(t *testing.T) {
	req := &LessonRequest{Subject: strPtr("  "), Price: floatPtr(10)}

	err := req.ValidateCreate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")
	assert.Contains(t, err.Error(), "location")
	assert.Contains(t, err.Error(), "spaces")
	assert.Contains(t, err.Error(), "image")
	assert.NotContains(t, err.Error(), "price")
}

func TestValidateCreateRejectsNegativeValues(t *testing.T) {
	req := fullRequest()
	req.Spaces = intPtr(-1)
	assert.Error(t, req.ValidateCreate())

	req = fullRequest()
	req.Price = floatPtr(-0.5)
	assert.Error(t, req.ValidateCreate())
}

func TestToLessonMirrorsSpacesIntoAvailableInventory(t *testing.T) {
	req := fullRequest()
	req.AvailableInventory = intPtr(42)

	lesson := req.ToLesson()

	assert.Equal(t, 5, lesson.AvailableInventory)
}

func TestValidateUpdate(t *testing.T) {
	assert.NoError(t, (&LessonRequest{Subject: strPtr("Art"), Spaces: intPtr(0)}).ValidateUpdate())
	assert.Error(t, (&LessonRequest{Spaces: intPtr(3)}).ValidateUpdate())
	assert.Error(t, (&LessonRequest{Subject: strPtr("Art")}).ValidateUpdate())
	assert.Error(t, (&LessonRequest{Subject: strPtr("Art"), Spaces: intPtr(3), Location: strPtr("")}).ValidateUpdate())
}

func TestLessonUpdateApply(t *testing.T) {
	lesson := &Lesson{ID: "x", Subject: "Art", Location: "Paris", Price: 10, Spaces: 2, Image: "a.png", AvailableInventory: 2}
	req := &LessonRequest{Subject: strPtr(" Art II "), Spaces: intPtr(7)}

	req.ToUpdate().Apply(lesson)

	assert.Equal(t, "Art II", lesson.Subject)
	assert.Equal(t, "Paris", lesson.Location)
	assert.Equal(t, 10.0, lesson.Price)
	assert.Equal(t, 7, lesson.Spaces)
	assert.Equal(t, 7, lesson.AvailableInventory)
}

func TestOrderRequestValidation(t *testing.T) {
	req := &OrderRequest{CartItems: []CartItem{{LessonID: "a", Quantity: 1}, {LessonID: "", Quantity: 1}}}
	assert.Error(t, req.ValidateItems())

	req = &OrderRequest{CartItems: []CartItem{{LessonID: "a", Quantity: 0}}}
	assert.Error(t, req.ValidateItems())

	req = &OrderRequest{CartItems: []CartItem{{LessonID: "a", Quantity: 2}}}
	assert.NoError(t, req.ValidateItems())
	assert.Error(t, req.ValidateDetails())

	req.OrderDetails = &OrderDetails{Name: "Ada", Phone: ""}
	assert.Error(t, req.ValidateDetails())

	req.OrderDetails.Phone = "0123"
	assert.NoError(t, req.ValidateDetails())
}

func TestMergedItemsSumsDuplicates(t *testing.T) {
	req := &OrderRequest{CartItems: []CartItem{
		{LessonID: "b", Quantity: 1},
		{LessonID: "a", Quantity: 2},
		{LessonID: " b ", Quantity: 3},
	}}

	items, err := req.MergedItems()

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, LineItem{LessonID: "b", Quantity: 4}, items[0])
	assert.Equal(t, LineItem{LessonID: "a", Quantity: 2}, items[1])
}

func TestMergedItemsRejectsOverflow(t *testing.T) {
	req := &OrderRequest{CartItems: []CartItem{
		{LessonID: "a", Quantity: math.MaxInt},
		{LessonID: "a", Quantity: math.MaxInt},
	}}
	require.NoError(t, req.ValidateItems())

	_, err := req.MergedItems()
	assert.Error(t, err)

	req.CartItems[1].Quantity = 1
	_, err = req.MergedItems()
	assert.Error(t, err)
}
