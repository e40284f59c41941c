package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lesson-shop/internal/models"
	"lesson-shop/internal/services"
	"lesson-shop/internal/utils"
)

type LessonHandler struct {
	lessonService *services.LessonService
}

func NewLessonHandler(lessonService *services.LessonService) *LessonHandler {
	return &LessonHandler{
		lessonService: lessonService,
	}
}

func (h *LessonHandler) ListLessons(c *gin.Context) {
	lessons, err := h.lessonService.ListLessons(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lessons)
}

func (h *LessonHandler) SearchLessons(c *gin.Context) {
	lessons, err := h.lessonService.SearchLessons(c.Request.Context(), c.Query("search_term"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lessons)
}

func (h *LessonHandler) GetLesson(c *gin.Context) {
	lesson, err := h.lessonService.GetLesson(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lesson)
}

func (h *LessonHandler) CreateLesson(c *gin.Context) {
	var req models.LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	lesson, err := h.lessonService.CreateLesson(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.LessonCreatedResponse{
		Message: "Lesson created successfully",
		ID:      lesson.ID,
	})
}

func (h *LessonHandler) UpdateLesson(c *gin.Context) {
	var req models.LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.lessonService.UpdateLesson(c.Request.Context(), c.Param("id"), &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Lesson updated successfully", nil))
}

func (h *LessonHandler) DeleteLesson(c *gin.Context) {
	if err := h.lessonService.DeleteLesson(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Lesson deleted successfully", nil))
}
