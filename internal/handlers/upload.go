package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"instructorcopilot/internal/artifacts"
	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/pipeline"
	"instructorcopilot/internal/services"
)

// DefaultUserID keys the config when the client does not send one. The
// upload API is single-tenant by default.
const DefaultUserID = "default"

const maxCurriculumBytes = 32 << 20 // 32 MiB

type UploadHandler struct {
	configs services.ConfigService
	store   *artifacts.Store
	log     *logger.Logger
}

func NewUploadHandler(configs services.ConfigService, store *artifacts.Store, baseLog *logger.Logger) *UploadHandler {
	return &UploadHandler{
		configs: configs,
		store:   store,
		log:     baseLog.With("handler", "UploadHandler"),
	}
}

// POST /upload-curriculum
// Multipart: "file" (PDF) plus the config form fields. Rejects non-PDF
// uploads and invalid config with 400; storage failures are 500.
func (h *UploadHandler) UploadCurriculum(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("curriculum PDF is required"))
		return
	}
	if !strings.EqualFold(strings.TrimSpace(fileHeaderExt(fileHeader.Filename)), ".pdf") {
		RespondError(c, http.StatusBadRequest, "invalid_file", fmt.Errorf("only PDF files are accepted"))
		return
	}
	if fileHeader.Size > maxCurriculumBytes {
		RespondError(c, http.StatusBadRequest, "file_too_large", fmt.Errorf("curriculum exceeds %d bytes", maxCurriculumBytes))
		return
	}

	userID := strings.TrimSpace(c.PostForm("user_id"))
	if userID == "" {
		userID = DefaultUserID
	}
	cfg, err := h.configs.ValidateAndSave(c.Request.Context(), services.ConfigInput{
		UserID:          userID,
		UserName:        c.PostForm("user_name"),
		CourseTopic:     c.PostForm("course_topic"),
		DifficultyLevel: c.PostForm("difficulty_level"),
		Duration:        c.PostForm("duration"),
		TeachingStyle:   c.PostForm("teaching_style"),
	})
	if err != nil {
		var cfgErr *pipeline.ConfigError
		if errors.As(err, &cfgErr) {
			RespondError(c, http.StatusBadRequest, "invalid_config", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "config_save_failed", err)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "file_read_failed", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "file_read_failed", err)
		return
	}
	path, err := h.store.SaveCurriculum(data)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "file_save_failed", err)
		return
	}
	if err := h.configs.SetCurriculumPath(c.Request.Context(), userID, path); err != nil {
		h.log.Warn("Failed to record curriculum path", "error", err)
	}

	h.log.Info("Curriculum uploaded", "user_id", userID, "bytes", len(data))
	RespondOK(c, gin.H{
		"message": "curriculum uploaded",
		"config":  cfg,
	})
}

func fileHeaderExt(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}
