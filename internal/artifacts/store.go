// Package artifacts manages the on-disk output tree: one directory per
// output category plus the uploads area for the curriculum document. All
// filename handling is traversal-safe; nothing outside the configured roots
// is ever read or written.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/render"
	"instructorcopilot/internal/utils"
)

const curriculumFilename = "curriculum.pdf"

type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

type Store struct {
	root       string
	uploadsDir string
	log        *logger.Logger
}

func NewStore(baseLog *logger.Logger) (*Store, error) {
	log := baseLog.With("service", "ArtifactStore")
	root := utils.GetEnv("ARTIFACTS_DIR", "generated", log)
	uploads := utils.GetEnv("UPLOADS_DIR", "uploads", log)
	for _, dir := range []string{root, uploads} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{root: root, uploadsDir: uploads, log: log}, nil
}

// CategoryDir returns the directory for a category, creating it on demand.
// Unknown categories are rejected so request data never names a path.
func (s *Store) CategoryDir(category string) (string, error) {
	if !render.ValidCategory(category) {
		return "", fmt.Errorf("unknown category %q", category)
	}
	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Store) List(category string) ([]FileInfo, error) {
	dir, err := s.CategoryDir(category)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ListAll returns every category's files keyed by category.
func (s *Store) ListAll() (map[string][]FileInfo, error) {
	out := map[string][]FileInfo{}
	for _, cat := range []string{
		render.CategoryCourseMaterial, render.CategoryQuizzes,
		render.CategoryPPTs, render.CategoryFlashcards,
	} {
		files, err := s.List(cat)
		if err != nil {
			return nil, err
		}
		out[cat] = files
	}
	return out, nil
}

// Resolve maps a category/filename pair to an absolute path for download.
// Filenames carrying separators or parent references are rejected before any
// filesystem access.
func (s *Store) Resolve(category, filename string) (string, error) {
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	dir, err := s.CategoryDir(category)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if absPath != absDir && !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return absPath, nil
}

func validateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("empty filename")
	}
	if strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("invalid filename %q", filename)
	}
	if filename == "." || filename == ".." || strings.Contains(filename, "..") {
		return fmt.Errorf("invalid filename %q", filename)
	}
	return nil
}

// SaveCurriculum replaces any previously uploaded curriculum document.
func (s *Store) SaveCurriculum(data []byte) (string, error) {
	path := filepath.Join(s.uploadsDir, curriculumFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save curriculum: %w", err)
	}
	return path, nil
}

func (s *Store) CurriculumPath() string {
	return filepath.Join(s.uploadsDir, curriculumFilename)
}

func (s *Store) HasCurriculum() bool {
	info, err := os.Stat(s.CurriculumPath())
	return err == nil && !info.IsDir() && info.Size() > 0
}

func (s *Store) ReadCurriculum() ([]byte, error) {
	return os.ReadFile(s.CurriculumPath())
}

// Slugify derives the stable course identity from a title: lowercase,
// underscores treated as spaces, words joined by hyphens.
func Slugify(title string) string {
	title = strings.ToLower(render.SanitizeFilename(title))
	title = strings.ReplaceAll(title, "_", " ")
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return "course"
	}
	return strings.Join(fields, "-")
}

// CourseGroup is one logical course as seen on disk: every artifact whose
// filename starts with the course slug, grouped by category.
type CourseGroup struct {
	Slug  string                `json:"slug"`
	Files map[string][]FileInfo `json:"files"`
	Total int                   `json:"total"`
}

// Courses groups all generated files by their slug prefix. Files that match
// no known slug are grouped under the longest leading token run before the
// first recognized suffix.
func (s *Store) Courses() ([]CourseGroup, error) {
	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	groups := map[string]*CourseGroup{}
	for cat, files := range all {
		for _, f := range files {
			slug := slugFromFilename(f.Name)
			g, ok := groups[slug]
			if !ok {
				g = &CourseGroup{Slug: slug, Files: map[string][]FileInfo{}}
				groups[slug] = g
			}
			g.Files[cat] = append(g.Files[cat], f)
			g.Total++
		}
	}
	out := make([]CourseGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// Course returns the group for one slug, or nil when no files match.
func (s *Store) Course(slug string) (*CourseGroup, error) {
	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	g := &CourseGroup{Slug: slug, Files: map[string][]FileInfo{}}
	for cat, files := range all {
		for _, f := range files {
			if strings.HasPrefix(f.Name, slug) {
				g.Files[cat] = append(g.Files[cat], f)
				g.Total++
			}
		}
	}
	if g.Total == 0 {
		return nil, nil
	}
	return g, nil
}

// Renderer filenames are "<slug>_<Suffix>..."; the slug never contains an
// underscore, so everything before the first underscore is the slug.
func slugFromFilename(name string) string {
	if idx := strings.Index(name, "_"); idx > 0 {
		return name[:idx]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
