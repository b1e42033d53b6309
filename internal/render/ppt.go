package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"instructorcopilot/internal/logger"
)

// Slide outlines stay readable when bullets are capped per slide.
const maxBulletsPerSlide = 8

// PPTRenderer writes one slide-outline document per week: a title slide
// followed by content slides of at most maxBulletsPerSlide bullets each.
type PPTRenderer struct {
	log *logger.Logger
}

func NewPPTRenderer(baseLog *logger.Logger) *PPTRenderer {
	return &PPTRenderer{log: baseLog.With("renderer", CategoryPPTs)}
}

func (r *PPTRenderer) Category() string { return CategoryPPTs }

func (r *PPTRenderer) Render(ctx context.Context, doc Document, dir string) ([]Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", CategoryPPTs, err)
	}
	var artifacts []Artifact
	for _, week := range doc.Weeks {
		if ctx.Err() != nil {
			return artifacts, ctx.Err()
		}
		filename := fmt.Sprintf("%s_Week_%02d_Slides.txt", doc.CourseSlug, week.Number)
		art := Artifact{Category: CategoryPPTs, Filename: filename, Week: week.Number}

		outline := buildOutline(doc.CourseTitle, week.Number, week.Title, week.RawBody)
		if err := os.WriteFile(filepath.Join(dir, filename), []byte(outline), 0o644); err != nil {
			art.Error = err.Error()
			r.log.Error("Failed to write slide outline", "week", week.Number, "error", err)
		} else {
			art.OK = true
		}
		artifacts = append(artifacts, art)
	}
	return artifacts, nil
}

func buildOutline(courseTitle string, weekNum int, weekTitle, body string) string {
	bullets := extractBullets(body)

	var sb strings.Builder
	sb.WriteString("SLIDE 1 (title)\n")
	fmt.Fprintf(&sb, "  %s\n", courseTitle)
	fmt.Fprintf(&sb, "  Week %d: %s\n\n", weekNum, weekTitle)

	slide := 2
	for start := 0; start < len(bullets); start += maxBulletsPerSlide {
		end := start + maxBulletsPerSlide
		if end > len(bullets) {
			end = len(bullets)
		}
		fmt.Fprintf(&sb, "SLIDE %d\n", slide)
		for _, b := range bullets[start:end] {
			fmt.Fprintf(&sb, "  - %s\n", b)
		}
		sb.WriteString("\n")
		slide++
	}
	if slide == 2 {
		sb.WriteString("SLIDE 2\n  - See course material for this week.\n")
	}
	return sb.String()
}

// extractBullets distills a week body into slide bullets: headings become
// bullets, existing list items pass through, and plain paragraph lines are
// trimmed into one-liners.
func extractBullets(body string) []string {
	var bullets []string
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence || trimmed == "" {
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "#"):
			bullets = append(bullets, strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			bullets = append(bullets, strings.TrimSpace(trimmed[2:]))
		default:
			if len(trimmed) > 120 {
				trimmed = trimmed[:117] + "..."
			}
			bullets = append(bullets, trimmed)
		}
	}
	return bullets
}
