package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"instructorcopilot/internal/artifacts"
	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/render"
)

const previewLimitBytes = 20000

type FilesHandler struct {
	store *artifacts.Store
	log   *logger.Logger
}

func NewFilesHandler(store *artifacts.Store, baseLog *logger.Logger) *FilesHandler {
	return &FilesHandler{store: store, log: baseLog.With("handler", "FilesHandler")}
}

// GET /generated-files
func (h *FilesHandler) ListAll(c *gin.Context) {
	all, err := h.store.ListAll()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	total := 0
	for _, files := range all {
		total += len(files)
	}
	RespondOK(c, gin.H{
		"files": all,
		"total": total,
	})
}

// GET /files/:category
func (h *FilesHandler) ListCategory(c *gin.Context) {
	category := c.Param("category")
	if !render.ValidCategory(category) {
		RespondError(c, http.StatusBadRequest, "unknown_category", fmt.Errorf("unknown category %q", category))
		return
	}
	files, err := h.store.List(category)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"category": category,
		"files":    files,
		"total":    len(files),
	})
}

// GET /download/:category/:filename
func (h *FilesHandler) Download(c *gin.Context) {
	category := c.Param("category")
	filename := c.Param("filename")
	path, err := h.store.Resolve(category, filename)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("file %q not found", filename))
		return
	}
	c.FileAttachment(path, filename)
}

// GET /courses
func (h *FilesHandler) Courses(c *gin.Context) {
	courses, err := h.store.Courses()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"courses": courses,
		"total":   len(courses),
	})
}

// GET /courses/:slug
func (h *FilesHandler) Course(c *gin.Context) {
	slug := c.Param("slug")
	course, err := h.store.Course(slug)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	if course == nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("no course matches %q", slug))
		return
	}
	RespondOK(c, course)
}

// GET /course-material/preview
// Concatenated course-material text, capped so the response stays small.
func (h *FilesHandler) Preview(c *gin.Context) {
	files, err := h.store.List(render.CategoryCourseMaterial)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	dir, err := h.store.CategoryDir(render.CategoryCourseMaterial)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	var sb strings.Builder
	for _, f := range files {
		raw, err := os.ReadFile(filepath.Join(dir, f.Name))
		if err != nil {
			continue
		}
		sb.Write(raw)
		sb.WriteString("\n\n")
		if sb.Len() >= previewLimitBytes {
			break
		}
	}
	preview := sb.String()
	truncated := len(preview) > previewLimitBytes
	if truncated {
		preview = preview[:previewLimitBytes]
	}
	RespondOK(c, gin.H{
		"preview":   preview,
		"files":     len(files),
		"truncated": truncated,
	})
}
