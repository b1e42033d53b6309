package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"instructorcopilot/internal/artifacts"
	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/pipeline"
	"instructorcopilot/internal/render"
	"instructorcopilot/internal/services"
	"instructorcopilot/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeConfigService struct {
	saved *types.CourseConfig
}

func (f *fakeConfigService) ValidateAndSave(ctx context.Context, in services.ConfigInput) (*types.CourseConfig, error) {
	if in.CourseTopic == "" {
		return nil, &pipeline.ConfigError{Field: "course_topic", Reason: "required"}
	}
	switch in.DifficultyLevel {
	case "Foundational", "Intermediate", "Advanced":
	default:
		return nil, &pipeline.ConfigError{Field: "difficulty_level", Reason: "unknown"}
	}
	f.saved = &types.CourseConfig{UserID: in.UserID, CourseTopic: in.CourseTopic}
	return f.saved, nil
}

func (f *fakeConfigService) Get(ctx context.Context, userID string) (*types.CourseConfig, error) {
	return f.saved, nil
}

func (f *fakeConfigService) SetCurriculumPath(ctx context.Context, userID, path string) error {
	if f.saved != nil {
		f.saved.CurriculumPath = path
	}
	return nil
}

func newTestStore(t *testing.T) *artifacts.Store {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ARTIFACTS_DIR", filepath.Join(dir, "generated"))
	t.Setenv("UPLOADS_DIR", filepath.Join(dir, "uploads"))
	store, err := artifacts.NewStore(logger.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func multipartBody(t *testing.T, filename string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write([]byte("%PDF-1.4 test"))
	}
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	_ = w.Close()
	return &buf, w.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"user_name":        "Jordan",
		"course_topic":     "Databases",
		"difficulty_level": "Intermediate",
		"duration":         "8 weeks",
	}
}

func uploadRouter(t *testing.T) (*gin.Engine, *artifacts.Store) {
	store := newTestStore(t)
	h := NewUploadHandler(&fakeConfigService{}, store, logger.NewNop())
	r := gin.New()
	r.POST("/upload-curriculum", h.UploadCurriculum)
	return r, store
}

func TestUploadCurriculumOK(t *testing.T) {
	r, store := uploadRouter(t)
	body, contentType := multipartBody(t, "syllabus.pdf", validFields())
	req := httptest.NewRequest(http.MethodPost, "/upload-curriculum", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !store.HasCurriculum() {
		t.Fatalf("curriculum not saved")
	}
}

func TestUploadCurriculumRejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		fields   map[string]string
	}{
		{"missing file", "", validFields()},
		{"non-pdf", "notes.txt", validFields()},
		{"bad difficulty", "syllabus.pdf", map[string]string{
			"user_name": "J", "course_topic": "X", "difficulty_level": "Expert",
		}},
		{"missing topic", "syllabus.pdf", map[string]string{
			"user_name": "J", "difficulty_level": "Advanced",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, store := uploadRouter(t)
			body, contentType := multipartBody(t, tc.filename, tc.fields)
			req := httptest.NewRequest(http.MethodPost, "/upload-curriculum", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", w.Code, w.Body.String())
			}
			if store.HasCurriculum() {
				t.Fatalf("rejected upload must not persist the file")
			}
		})
	}
}

func filesRouter(t *testing.T) (*gin.Engine, *artifacts.Store) {
	store := newTestStore(t)
	h := NewFilesHandler(store, logger.NewNop())
	r := gin.New()
	r.GET("/files/:category", h.ListCategory)
	r.GET("/download/:category/:filename", h.Download)
	r.GET("/courses", h.Courses)
	r.GET("/courses/:slug", h.Course)
	return r, store
}

func TestListCategoryUnknown(t *testing.T) {
	r, _ := filesRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/notes", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDownloadTraversalRejected(t *testing.T) {
	r, _ := filesRouter(t)
	for _, path := range []string{
		"/download/quizzes/..%5Csecret.txt",
		"/download/quizzes/has..dots.txt",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("GET %s status = %d, want 400", path, w.Code)
		}
	}
}

func TestDownloadMissingAndPresent(t *testing.T) {
	r, store := filesRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download/quizzes/none.txt", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing file status = %d, want 404", w.Code)
	}

	dir, err := store.CategoryDir(render.CategoryQuizzes)
	if err != nil {
		t.Fatalf("CategoryDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "quiz.txt"), []byte("q1"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download/quizzes/quiz.txt", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("present file status = %d, want 200", w.Code)
	}
	if w.Body.String() != "q1" {
		t.Fatalf("body = %q", w.Body.String())
	}
}

type fakeCourseGen struct {
	err error
	run *types.GenerationRun
}

func (f *fakeCourseGen) Enqueue(ctx context.Context, userID string) (*types.GenerationRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.run, nil
}

func (f *fakeCourseGen) StartWorker(ctx context.Context) {}

type fakeStatus struct{}

func (f *fakeStatus) GenerationStatus(ctx context.Context, userID string) (*services.GenerationStatus, error) {
	return &services.GenerationStatus{}, nil
}

func (f *fakeStatus) Readiness(ctx context.Context, userID string) (*services.Readiness, error) {
	return &services.Readiness{}, nil
}

func TestGenerateErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not ready", services.ErrNotReady, http.StatusBadRequest},
		{"run in progress", services.ErrRunInProgress, http.StatusConflict},
		{"other", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewGenerationHandler(&fakeCourseGen{err: tc.err}, &fakeStatus{}, logger.NewNop())
			r := gin.New()
			r.POST("/generate-content", h.Generate)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate-content", nil))
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestGenerateOK(t *testing.T) {
	run := &types.GenerationRun{Status: types.RunStatusQueued}
	h := NewGenerationHandler(&fakeCourseGen{run: run}, &fakeStatus{}, logger.NewNop())
	r := gin.New()
	r.POST("/generate-content", h.Generate)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate-content", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestCourseNotFound(t *testing.T) {
	r, _ := filesRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses/no-such-course", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
