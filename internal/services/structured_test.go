package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"instructorcopilot/internal/clients/gemini"
	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/segment"
)

type scriptedClient struct {
	text    string
	err     error
	lastReq gemini.GenerateRequest
}

func (c *scriptedClient) Generate(ctx context.Context, req gemini.GenerateRequest) (gemini.TextResult, error) {
	c.lastReq = req
	if c.err != nil {
		return gemini.TextResult{}, c.err
	}
	return gemini.TextResult{Text: c.text}, nil
}

const conformingDoc = `# Intro to Go

## Course Overview
A practical introduction.

## Weekly Summary
- Week 1: Syntax
- Week 2: Concurrency

# Week 1: Syntax
Variables and types.

# Week 2: Concurrency
Goroutines and channels.
`

func TestBuildReturnsConformingModelOutput(t *testing.T) {
	b := NewStructuredBuilder(&scriptedClient{text: conformingDoc}, logger.NewNop())
	got := b.Build(context.Background(), "raw corpus", "Go", 2)
	if got != conformingDoc {
		t.Fatalf("conforming output should pass through unchanged")
	}
}

func TestBuildFallsBackOnError(t *testing.T) {
	b := NewStructuredBuilder(&scriptedClient{err: fmt.Errorf("boom")}, logger.NewNop())
	got := b.Build(context.Background(), "# Week 1: Only\nsome body", "Go Basics", 1)
	if !strings.Contains(got, "## Course Overview") || !strings.Contains(got, "## Weekly Summary") {
		t.Fatalf("fallback missing contract headers:\n%s", got)
	}
	res := segment.Split(got)
	if len(res.Weeks) < 1 {
		t.Fatalf("fallback must yield at least one segmentable week")
	}
}

func TestBuildFallsBackOnNonConformingOutput(t *testing.T) {
	b := NewStructuredBuilder(&scriptedClient{text: "sorry, here is an essay instead"}, logger.NewNop())
	got := b.Build(context.Background(), "unstructured notes about biology", "Biology", 8)
	if !strings.Contains(got, "## Course Overview") {
		t.Fatalf("fallback not applied:\n%s", got)
	}
	res := segment.Split(got)
	if len(res.Weeks) != 1 || res.Weeks[0].Number != 1 {
		t.Fatalf("unstructured corpus should fall back to a single week: %+v", res.Weeks)
	}
}

func TestBuildPromptStatesWeekCount(t *testing.T) {
	client := &scriptedClient{text: conformingDoc}
	b := NewStructuredBuilder(client, logger.NewNop())
	b.Build(context.Background(), "raw corpus", "Go", 6)
	if !strings.Contains(client.lastReq.System, "6 weeks") {
		t.Fatalf("structure prompt missing the configured week count:\n%s", client.lastReq.System)
	}
}

func TestBuildWithNilClientUsesFallback(t *testing.T) {
	b := NewStructuredBuilder(nil, logger.NewNop())
	got := b.Build(context.Background(), "", "Empty Course", 8)
	if !strings.Contains(got, "Empty Course") {
		t.Fatalf("fallback should carry the topic as title:\n%s", got)
	}
}

func TestParseStructuredDoc(t *testing.T) {
	title, overview, bullets := ParseStructuredDoc(conformingDoc)
	if title != "Intro to Go" {
		t.Fatalf("title = %q", title)
	}
	if !strings.Contains(overview, "practical introduction") {
		t.Fatalf("overview = %q", overview)
	}
	if len(bullets) != 2 || bullets[0] != "Week 1: Syntax" {
		t.Fatalf("bullets = %v", bullets)
	}
}

func TestExtractCourseTitle(t *testing.T) {
	tests := []struct {
		name, corpus, fallback, want string
	}{
		{"course name line", "# Course Name: Applied Statistics\nmore", "x", "Applied Statistics"},
		{"first heading", "# Linear Algebra\ncontent", "x", "Linear Algebra"},
		{"skips week heading", "# Week 1: Intro\ncontent", "Calculus", "Calculus"},
		{"bold label", "text **Course Name**: Chemistry 101\n", "x", "Chemistry 101"},
		{"fallback", "no headings here", "History", "History"},
		{"empty everything", "", "", "Generated Course"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractCourseTitle(tc.corpus, tc.fallback); got != tc.want {
				t.Fatalf("ExtractCourseTitle = %q, want %q", got, tc.want)
			}
		})
	}
}
