package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"instructorcopilot/internal/logger"
)

// CourseMaterialRenderer writes one markdown document per week, with the
// body normalized line by line: separator rows dropped, heading depth capped
// and code fences preserved verbatim.
type CourseMaterialRenderer struct {
	log *logger.Logger
}

func NewCourseMaterialRenderer(baseLog *logger.Logger) *CourseMaterialRenderer {
	return &CourseMaterialRenderer{log: baseLog.With("renderer", CategoryCourseMaterial)}
}

func (r *CourseMaterialRenderer) Category() string { return CategoryCourseMaterial }

func (r *CourseMaterialRenderer) Render(ctx context.Context, doc Document, dir string) ([]Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", CategoryCourseMaterial, err)
	}
	var artifacts []Artifact
	for _, week := range doc.Weeks {
		if ctx.Err() != nil {
			return artifacts, ctx.Err()
		}
		filename := fmt.Sprintf("%s_Week_%02d_Course_Content.md", doc.CourseSlug, week.Number)
		art := Artifact{Category: CategoryCourseMaterial, Filename: filename, Week: week.Number}

		var sb strings.Builder
		fmt.Fprintf(&sb, "# Week %d: %s\n\n", week.Number, week.Title)
		sb.WriteString(normalizeBody(week.RawBody))
		sb.WriteString("\n")

		if err := os.WriteFile(filepath.Join(dir, filename), []byte(sb.String()), 0o644); err != nil {
			art.Error = err.Error()
			r.log.Error("Failed to write week document", "week", week.Number, "error", err)
		} else {
			art.OK = true
		}
		artifacts = append(artifacts, art)
	}
	return artifacts, nil
}

// normalizeBody cleans model output into stable markdown. Inside code fences
// lines pass through untouched.
func normalizeBody(body string) string {
	var out []string
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			out = append(out, trimmed)
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		// Pure separator rows add nothing to the document.
		if trimmed != "" && strings.Trim(trimmed, "-=_*") == "" && len(trimmed) >= 3 {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			// Cap heading depth so week bodies never outrank the week title.
			hashes := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			if hashes < 2 {
				hashes = 2
			}
			if hashes > 6 {
				hashes = 6
			}
			text := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			out = append(out, strings.Repeat("#", hashes)+" "+text)
			continue
		}
		if strings.HasPrefix(trimmed, "* ") {
			out = append(out, "- "+strings.TrimPrefix(trimmed, "* "))
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
