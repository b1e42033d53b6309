package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/render"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ARTIFACTS_DIR", filepath.Join(dir, "generated"))
	t.Setenv("UPLOADS_DIR", filepath.Join(dir, "uploads"))
	store, err := NewStore(logger.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Intro to Databases", "intro-to-databases"},
		{"machine_learning_basics", "machine-learning-basics"},
		{"  Spaced   Out  ", "spaced-out"},
		{"", "course"},
		{"Week/1:Test", "week-1-test"},
	}
	for _, tc := range tests {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	bad := []string{
		"../secret.txt",
		"..\\secret.txt",
		"a/b.txt",
		`a\b.txt`,
		"..",
		"",
		"foo..bar",
	}
	for _, name := range bad {
		if _, err := store.Resolve(render.CategoryQuizzes, name); err == nil {
			t.Fatalf("Resolve accepted %q", name)
		}
	}
	if _, err := store.Resolve(render.CategoryQuizzes, "quiz_01.txt"); err != nil {
		t.Fatalf("Resolve rejected a plain filename: %v", err)
	}
}

func TestResolveRejectsUnknownCategory(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Resolve("notes", "a.txt"); err == nil {
		t.Fatalf("unknown category accepted")
	}
}

func TestListAndCourses(t *testing.T) {
	store := newTestStore(t)

	dir, err := store.CategoryDir(render.CategoryCourseMaterial)
	if err != nil {
		t.Fatalf("CategoryDir: %v", err)
	}
	for _, name := range []string{
		"intro-to-sql_Week_01_Course_Content.md",
		"intro-to-sql_Week_02_Course_Content.md",
		"other-course_Week_01_Course_Content.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	files, err := store.List(render.CategoryCourseMaterial)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}

	courses, err := store.Courses()
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("got %d courses, want 2: %+v", len(courses), courses)
	}

	got, err := store.Course("intro-to-sql")
	if err != nil {
		t.Fatalf("Course: %v", err)
	}
	if got == nil || got.Total != 2 {
		t.Fatalf("Course(intro-to-sql) = %+v", got)
	}

	missing, err := store.Course("nope")
	if err != nil {
		t.Fatalf("Course: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown slug, got %+v", missing)
	}
}

func TestCurriculumRoundTrip(t *testing.T) {
	store := newTestStore(t)
	if store.HasCurriculum() {
		t.Fatalf("fresh store should have no curriculum")
	}
	if _, err := store.SaveCurriculum([]byte("%PDF-1.4 fake")); err != nil {
		t.Fatalf("SaveCurriculum: %v", err)
	}
	if !store.HasCurriculum() {
		t.Fatalf("curriculum should exist after save")
	}
	raw, err := store.ReadCurriculum()
	if err != nil || string(raw) != "%PDF-1.4 fake" {
		t.Fatalf("ReadCurriculum = %q, %v", raw, err)
	}
}
