package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"instructorcopilot/internal/clients/gemini"
	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/prompt"
)

// QuizzesRenderer asks the model for themed quiz papers and writes each as a
// text file. With no client, or when the model output has no recognizable
// papers, it falls back to deterministic review sheets built from the week
// titles.
type QuizzesRenderer struct {
	client gemini.Client
	log    *logger.Logger
}

func NewQuizzesRenderer(client gemini.Client, baseLog *logger.Logger) *QuizzesRenderer {
	return &QuizzesRenderer{client: client, log: baseLog.With("renderer", CategoryQuizzes)}
}

func (r *QuizzesRenderer) Category() string { return CategoryQuizzes }

var reQuizPaper = regexp.MustCompile(`(?im)^===[ \t]*QUIZ[ \t]+(\d+)[ \t]*:[ \t]*([^\n=]*?)[ \t]*===[ \t]*$`)

func (r *QuizzesRenderer) Render(ctx context.Context, doc Document, dir string) ([]Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", CategoryQuizzes, err)
	}

	papers := r.generatePapers(ctx, doc)
	var artifacts []Artifact
	for _, p := range papers {
		filename := fmt.Sprintf("%s_Quiz_%02d.txt", doc.CourseSlug, p.number)
		art := Artifact{Category: CategoryQuizzes, Filename: filename}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%s\nQuiz %d: %s\n\n", doc.CourseTitle, p.number, p.theme)
		sb.WriteString(strings.TrimSpace(p.body))
		sb.WriteString("\n")

		if err := os.WriteFile(filepath.Join(dir, filename), []byte(sb.String()), 0o644); err != nil {
			art.Error = err.Error()
			r.log.Error("Failed to write quiz paper", "quiz", p.number, "error", err)
		} else {
			art.OK = true
		}
		artifacts = append(artifacts, art)
	}
	return artifacts, nil
}

type quizPaper struct {
	number int
	theme  string
	body   string
}

func (r *QuizzesRenderer) generatePapers(ctx context.Context, doc Document) []quizPaper {
	if r.client != nil {
		titles := make([]string, 0, len(doc.Weeks))
		for _, w := range doc.Weeks {
			titles = append(titles, w.Title)
		}
		res, err := r.client.Generate(ctx, gemini.GenerateRequest{
			System:   prompt.Quizzes(doc.CourseTitle, titles),
			Contents: []string{weekDigest(doc)},
		})
		if err == nil {
			if papers := parseQuizPapers(res.Text); len(papers) > 0 {
				return papers
			}
			r.log.Warn("Quiz output had no recognizable papers, using fallback")
		} else {
			r.log.Warn("Quiz generation failed, using fallback", "error", err)
		}
	}
	return fallbackPapers(doc)
}

// parseQuizPapers splits the model output on "=== QUIZ k: theme ===" banner
// lines.
func parseQuizPapers(text string) []quizPaper {
	matches := reQuizPaper.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	var papers []quizPaper
	for i, m := range matches {
		num, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || num <= 0 {
			continue
		}
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		papers = append(papers, quizPaper{
			number: num,
			theme:  strings.TrimSpace(text[m[4]:m[5]]),
			body:   strings.TrimSpace(text[m[1]:end]),
		})
	}
	return papers
}

// fallbackPapers builds three review sheets spanning the course weeks.
func fallbackPapers(doc Document) []quizPaper {
	weeks := doc.Weeks
	if len(weeks) == 0 {
		return nil
	}
	spans := splitSpans(len(weeks), 3)
	var papers []quizPaper
	for i, span := range spans {
		var sb strings.Builder
		q := 1
		for _, w := range weeks[span[0]:span[1]] {
			fmt.Fprintf(&sb, "%d. Summarize the key ideas of Week %d (%s).\n", q, w.Number, w.Title)
			q++
			fmt.Fprintf(&sb, "%d. Give one concrete example of a concept from Week %d.\n", q, w.Number)
			q++
		}
		papers = append(papers, quizPaper{
			number: i + 1,
			theme:  fmt.Sprintf("Review of weeks %d-%d", weeks[span[0]].Number, weeks[span[1]-1].Number),
			body:   sb.String(),
		})
	}
	return papers
}

// splitSpans divides n items into at most k contiguous non-empty spans.
func splitSpans(n, k int) [][2]int {
	if k > n {
		k = n
	}
	var spans [][2]int
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		spans = append(spans, [2]int{start, start + size})
		start += size
	}
	return spans
}

func weekDigest(doc Document) string {
	var sb strings.Builder
	for _, w := range doc.Weeks {
		fmt.Fprintf(&sb, "# Week %d: %s\n%s\n\n", w.Number, w.Title, truncateText(w.RawBody, 4000))
	}
	return sb.String()
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n[truncated]"
}
