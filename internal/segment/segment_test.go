package segment

import (
	"strings"
	"testing"
)

func TestSplitPrimaryMarkers(t *testing.T) {
	corpus := `intro text

# Week 1: Getting Started
Learning goals for week one.
=== WEEK 1 COMPLETED ===

# Week 2: Going Deeper
Week two body here.
=== WEEK 2 COMPLETED ===
`
	res := Split(corpus)
	if res.Fallback {
		t.Fatalf("expected structured split, got fallback")
	}
	if res.Strategy != StrategyPrimary {
		t.Fatalf("strategy = %q, want %q", res.Strategy, StrategyPrimary)
	}
	if len(res.Weeks) != 2 {
		t.Fatalf("got %d weeks, want 2", len(res.Weeks))
	}
	if res.Weeks[0].Number != 1 || res.Weeks[1].Number != 2 {
		t.Fatalf("week numbers = %d,%d", res.Weeks[0].Number, res.Weeks[1].Number)
	}
	if res.Weeks[0].Title != "Getting Started" {
		t.Fatalf("title = %q", res.Weeks[0].Title)
	}
	if !strings.Contains(res.Weeks[0].RawBody, "Learning goals") {
		t.Fatalf("week 1 body missing content: %q", res.Weeks[0].RawBody)
	}
	for _, w := range res.Weeks {
		if strings.Contains(w.RawBody, "COMPLETED") {
			t.Fatalf("week %d body still contains completion marker: %q", w.Number, w.RawBody)
		}
	}
}

func TestSplitVariantMarkers(t *testing.T) {
	tests := []struct {
		name   string
		corpus string
		wantN  []int
	}{
		{
			name: "banner markers",
			corpus: `=== WEEK 1 ===
alpha
=== WEEK 1 COMPLETED ===
=== WEEK 2 ===
beta
=== WEEK 2 COMPLETED ===`,
			wantN: []int{1, 2},
		},
		{
			name: "colon headings",
			corpus: `Week 1: Basics
alpha body
Week 2: Advanced
beta body`,
			wantN: []int{1, 2},
		},
		{
			name: "h2 headings",
			corpus: `## Week 1
alpha
## Week 2
beta`,
			wantN: []int{1, 2},
		},
		{
			name: "completion markers only",
			corpus: `alpha content
=== WEEK 1 COMPLETED ===
beta content
=== WEEK 2 COMPLETED ===`,
			wantN: []int{1, 2},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Split(tc.corpus)
			if res.Fallback {
				t.Fatalf("unexpected fallback")
			}
			if len(res.Weeks) != len(tc.wantN) {
				t.Fatalf("got %d weeks, want %d", len(res.Weeks), len(tc.wantN))
			}
			for i, n := range tc.wantN {
				if res.Weeks[i].Number != n {
					t.Fatalf("week[%d].Number = %d, want %d", i, res.Weeks[i].Number, n)
				}
			}
		})
	}
}

func TestSplitMentionHeuristic(t *testing.T) {
	corpus := `This course spans several weeks. In week 1 we cover basics and build up.
Later, week 2 moves into applied work with projects.`
	res := Split(corpus)
	if res.Strategy != StrategyHeuristic {
		t.Fatalf("strategy = %q, want %q", res.Strategy, StrategyHeuristic)
	}
	if len(res.Weeks) != 2 {
		t.Fatalf("got %d weeks, want 2", len(res.Weeks))
	}
}

func TestSplitWholeDocumentFallback(t *testing.T) {
	corpus := "Just a plain essay about learning with no weekly structure at all."
	res := Split(corpus)
	if !res.Fallback {
		t.Fatalf("expected fallback")
	}
	if len(res.Weeks) != 1 || res.Weeks[0].Number != 1 {
		t.Fatalf("fallback should yield exactly week 1, got %+v", res.Weeks)
	}
	if res.Weeks[0].RawBody != corpus {
		t.Fatalf("fallback body should be the whole corpus")
	}
}

func TestSplitNeverEmpty(t *testing.T) {
	for _, corpus := range []string{"", "   ", "\n\n"} {
		res := Split(corpus)
		if len(res.Weeks) == 0 {
			t.Fatalf("Split(%q) returned no weeks", corpus)
		}
	}
}

func TestSplitDeduplicateKeepsLongest(t *testing.T) {
	corpus := `# Week 1: Short
tiny
=== WEEK 1 COMPLETED ===
# Week 1: Long
a much longer body for the same week that should win the merge
=== WEEK 1 COMPLETED ===
# Week 2: Other
other body
=== WEEK 2 COMPLETED ===`
	res := Split(corpus)
	if len(res.Weeks) != 2 {
		t.Fatalf("got %d weeks, want 2", len(res.Weeks))
	}
	if !strings.Contains(res.Weeks[0].RawBody, "longer body") {
		t.Fatalf("dedupe kept the wrong block: %q", res.Weeks[0].RawBody)
	}
}

func TestSplitOrdersAscending(t *testing.T) {
	corpus := `# Week 3: Late
c
=== WEEK 3 COMPLETED ===
# Week 1: Early
a
=== WEEK 1 COMPLETED ===
# Week 2: Middle
b
=== WEEK 2 COMPLETED ===`
	res := Split(corpus)
	for i := 1; i < len(res.Weeks); i++ {
		if res.Weeks[i].Number <= res.Weeks[i-1].Number {
			t.Fatalf("weeks not strictly ascending: %+v", res.Weeks)
		}
	}
}

func TestSplitRejectsNonPositiveWeeks(t *testing.T) {
	corpus := `# Week 0: Nothing
zero body
=== WEEK 0 COMPLETED ===
# Week 1: Real
real body
=== WEEK 1 COMPLETED ===`
	res := Split(corpus)
	for _, w := range res.Weeks {
		if w.Number <= 0 {
			t.Fatalf("non-positive week survived: %d", w.Number)
		}
	}
	if len(res.Weeks) != 1 || res.Weeks[0].Number != 1 {
		t.Fatalf("expected only week 1, got %+v", res.Weeks)
	}
}

func TestSplitOnlyNonPositiveWeeksKeepsCorpus(t *testing.T) {
	corpus := `# Week 0: Orientation
all the actual content lives here
=== WEEK 0 COMPLETED ===`
	res := Split(corpus)
	if res.Strategy != StrategyWholeDocument || !res.Fallback {
		t.Fatalf("expected whole-document fallback, got %+v", res)
	}
	if len(res.Weeks) != 1 || res.Weeks[0].Number != 1 {
		t.Fatalf("fallback should yield exactly week 1, got %+v", res.Weeks)
	}
	if !strings.Contains(res.Weeks[0].RawBody, "all the actual content lives here") {
		t.Fatalf("fallback lost the corpus: %q", res.Weeks[0].RawBody)
	}
}

func TestSplitLoneMentionYieldsThatWeek(t *testing.T) {
	corpus := "These notes only discuss week 3 material, nothing else is structured."
	res := Split(corpus)
	if res.Strategy != StrategyHeuristic {
		t.Fatalf("strategy = %q, want %q", res.Strategy, StrategyHeuristic)
	}
	if len(res.Weeks) != 1 || res.Weeks[0].Number != 3 {
		t.Fatalf("lone mention should anchor week 3, got %+v", res.Weeks)
	}
	if !strings.Contains(res.Weeks[0].RawBody, "week 3 material") {
		t.Fatalf("block body missing the anchored content: %q", res.Weeks[0].RawBody)
	}
}

func TestSplitIdempotent(t *testing.T) {
	corpus := `# Week 1: A
alpha
=== WEEK 1 COMPLETED ===
# Week 2: B
beta
=== WEEK 2 COMPLETED ===`
	first := Split(corpus)
	second := Split(corpus)
	if len(first.Weeks) != len(second.Weeks) {
		t.Fatalf("non-deterministic week count")
	}
	for i := range first.Weeks {
		if first.Weeks[i] != second.Weeks[i] {
			t.Fatalf("week %d differs between runs", i)
		}
	}
}

func TestSplitStripsControlMarkers(t *testing.T) {
	corpus := `# Week 1: A
=== PROCESSING WEEK 1 ===
body text
<<HALT_FOR_SECONDS:10>>
=== WEEK 1 COMPLETED ===`
	res := Split(corpus)
	body := res.Weeks[0].RawBody
	for _, marker := range []string{"PROCESSING", "HALT_FOR_SECONDS", "COMPLETED"} {
		if strings.Contains(body, marker) {
			t.Fatalf("body still contains %s: %q", marker, body)
		}
	}
	if !strings.Contains(body, "body text") {
		t.Fatalf("body lost real content: %q", body)
	}
}

func TestSplitCaseInsensitiveMarkers(t *testing.T) {
	corpus := `# week 1: lower
alpha
=== week 1 completed ===`
	res := Split(corpus)
	if res.Fallback {
		t.Fatalf("lowercase markers should still match")
	}
	if res.Weeks[0].Number != 1 {
		t.Fatalf("number = %d", res.Weeks[0].Number)
	}
}
