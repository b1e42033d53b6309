// Package render turns a finalized course document into downloadable
// artifacts. Each renderer owns one output category and reports per-artifact
// success, so one broken week never blocks the rest.
package render

import (
	"context"
	"regexp"
	"strings"

	"instructorcopilot/internal/segment"
)

// Output categories. These double as directory names under the artifact
// root and as the public API's category path segment.
const (
	CategoryCourseMaterial = "course-material"
	CategoryQuizzes        = "quizzes"
	CategoryPPTs           = "ppts"
	CategoryFlashcards     = "flashcards"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryCourseMaterial, CategoryQuizzes, CategoryPPTs, CategoryFlashcards:
		return true
	}
	return false
}

// Document is the immutable input to every renderer: the structured course
// text after segmentation. Renderers only read it.
type Document struct {
	CourseTitle   string
	CourseSlug    string
	Overview      string
	WeeklySummary []string
	Weeks         []segment.WeekBlock
	Difficulty    string
}

// Artifact describes one produced (or failed) output file.
type Artifact struct {
	Category string `json:"category"`
	Filename string `json:"filename"`
	Week     int    `json:"week,omitempty"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

type Renderer interface {
	Category() string
	// Render writes this category's files into dir and returns one Artifact
	// per attempted output. A non-nil error means the whole category failed
	// before any per-item work could happen.
	Render(ctx context.Context, doc Document, dir string) ([]Artifact, error)
}

var reUnsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeFilename replaces filesystem-hostile characters and squeezes
// whitespace to underscores.
func SanitizeFilename(name string) string {
	name = reUnsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Join(strings.Fields(name), "_")
	name = strings.Trim(name, "._ ")
	if name == "" {
		return "untitled"
	}
	return name
}
