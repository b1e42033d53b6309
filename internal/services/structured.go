package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"instructorcopilot/internal/clients/gemini"
	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/prompt"
	"instructorcopilot/internal/segment"
)

// StructuredBuilder produces the consolidated course document every renderer
// consumes: a title, a course overview, a weekly summary and one section per
// week. When the model is unavailable or returns something unusable it falls
// back to a deterministic skeleton built from the raw corpus, so downstream
// segmentation always has at least one valid week.
type StructuredBuilder interface {
	// Build consolidates the corpus for the given topic; weeks is the
	// configured week count the document should cover.
	Build(ctx context.Context, corpus, topic string, weeks int) string
}

type structuredBuilder struct {
	client gemini.Client
	log    *logger.Logger
}

func NewStructuredBuilder(client gemini.Client, baseLog *logger.Logger) StructuredBuilder {
	return &structuredBuilder{client: client, log: baseLog.With("service", "StructuredBuilder")}
}

var (
	reOverviewHeader = regexp.MustCompile(`(?im)^##[ \t]*Course Overview\b`)
	reSummaryHeader  = regexp.MustCompile(`(?im)^##[ \t]*Weekly Summary\b`)
	reWeekHeader     = regexp.MustCompile(`(?im)^#[ \t]*Week[ \t]+\d+\b`)
)

func (b *structuredBuilder) Build(ctx context.Context, corpus, topic string, weeks int) string {
	if b.client != nil {
		res, err := b.client.Generate(ctx, gemini.GenerateRequest{
			System:   prompt.Structure(weeks),
			Contents: []string{corpus},
		})
		if err == nil && conformsToContract(res.Text) {
			return res.Text
		}
		if err != nil {
			b.log.Warn("Structure call failed, using fallback skeleton", "error", err)
		} else {
			b.log.Warn("Structure output missing required headers, using fallback skeleton")
		}
	}
	return FallbackSkeleton(corpus, topic)
}

// conformsToContract checks the three load-bearing headers. Validation is
// deliberately loose beyond that; rendering tolerates extra prose.
func conformsToContract(text string) bool {
	return reOverviewHeader.MatchString(text) &&
		reSummaryHeader.MatchString(text) &&
		reWeekHeader.MatchString(text)
}

// FallbackSkeleton assembles the contract shape directly from the raw corpus.
// Deterministic: no model involvement.
func FallbackSkeleton(corpus, topic string) string {
	title := ExtractCourseTitle(corpus, topic)
	res := segment.Split(corpus)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	sb.WriteString("## Course Overview\n")
	fmt.Fprintf(&sb, "This course covers %s across %d week(s).\n\n", title, len(res.Weeks))
	sb.WriteString("## Weekly Summary\n")
	for _, w := range res.Weeks {
		fmt.Fprintf(&sb, "- Week %d: %s\n", w.Number, w.Title)
	}
	sb.WriteString("\n")
	for _, w := range res.Weeks {
		fmt.Fprintf(&sb, "# Week %d: %s\n", w.Number, w.Title)
		body := w.RawBody
		if strings.TrimSpace(body) == "" {
			body = "Content for this week is not available yet."
		}
		sb.WriteString(body)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String()) + "\n"
}

// ParseStructuredDoc reads the contract sections back out of a structured
// document: the title heading, the overview paragraphs and the weekly
// summary bullets. Week sections are left to the segmentation engine.
func ParseStructuredDoc(text string) (title, overview string, bullets []string) {
	lines := strings.Split(text, "\n")
	section := ""
	var overviewLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case reOverviewHeader.MatchString(trimmed):
			section = "overview"
			continue
		case reSummaryHeader.MatchString(trimmed):
			section = "summary"
			continue
		case reWeekHeader.MatchString(trimmed):
			section = "weeks"
			continue
		case title == "" && strings.HasPrefix(trimmed, "# "):
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			continue
		}
		switch section {
		case "overview":
			overviewLines = append(overviewLines, line)
		case "summary":
			if strings.HasPrefix(trimmed, "- ") {
				bullets = append(bullets, strings.TrimSpace(trimmed[2:]))
			}
		}
	}
	return title, strings.TrimSpace(strings.Join(overviewLines, "\n")), bullets
}

var (
	reCourseNameLine = regexp.MustCompile(`(?im)^#[ \t]*Course Name:[ \t]*(.+)$`)
	reFirstHeading   = regexp.MustCompile(`(?m)^#[ \t]+([^\n#][^\n]*)$`)
	reBoldCourseName = regexp.MustCompile(`(?i)\*\*Course Name\*\*[:\- \t]*([^\n*]+)`)
)

// ExtractCourseTitle pulls the course title out of generated content, trying
// the explicit "# Course Name:" line first, then the first top-level heading,
// then a bold "Course Name" label. fallback is used when nothing matches.
func ExtractCourseTitle(corpus, fallback string) string {
	if m := reCourseNameLine.FindStringSubmatch(corpus); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := reFirstHeading.FindStringSubmatch(corpus); m != nil {
		t := strings.TrimSpace(m[1])
		// Skip week headings; they name a week, not the course.
		if !strings.HasPrefix(strings.ToLower(t), "week ") {
			return t
		}
	}
	if m := reBoldCourseName.FindStringSubmatch(corpus); m != nil {
		return strings.TrimSpace(m[1])
	}
	if strings.TrimSpace(fallback) != "" {
		return strings.TrimSpace(fallback)
	}
	return "Generated Course"
}
