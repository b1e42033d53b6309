package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/services"
)

type GenerationHandler struct {
	coursegen services.CourseGenerationService
	status    services.StatusService
	log       *logger.Logger
}

func NewGenerationHandler(coursegen services.CourseGenerationService, status services.StatusService, baseLog *logger.Logger) *GenerationHandler {
	return &GenerationHandler{
		coursegen: coursegen,
		status:    status,
		log:       baseLog.With("handler", "GenerationHandler"),
	}
}

func requestUserID(c *gin.Context) string {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		userID = strings.TrimSpace(c.PostForm("user_id"))
	}
	if userID == "" {
		userID = DefaultUserID
	}
	return userID
}

// POST /generate-content
func (h *GenerationHandler) Generate(c *gin.Context) {
	userID := requestUserID(c)
	run, err := h.coursegen.Enqueue(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotReady):
			RespondError(c, http.StatusBadRequest, "not_ready", err)
		case errors.Is(err, services.ErrRunInProgress):
			RespondError(c, http.StatusConflict, "run_in_progress", err)
		default:
			RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{
		"message": "generation started",
		"run_id":  run.ID.String(),
		"status":  run.Status,
	})
}

// GET /status
func (h *GenerationHandler) Status(c *gin.Context) {
	r, err := h.status.Readiness(c.Request.Context(), requestUserID(c))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "status_failed", err)
		return
	}
	RespondOK(c, r)
}

// GET /generation/status
func (h *GenerationHandler) GenerationStatus(c *gin.Context) {
	st, err := h.status.GenerationStatus(c.Request.Context(), requestUserID(c))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "status_failed", err)
		return
	}
	RespondOK(c, st)
}
