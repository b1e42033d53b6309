package prompt

import (
	"strings"
	"testing"
)

// The loop prompt and the segmentation cascade share the marker shapes; the
// prompt must keep emitting them verbatim.
func TestDeepContentLoopCarriesMarkers(t *testing.T) {
	p := DeepContentLoop(8)
	for _, want := range []string{
		WeekProcessingMarker,
		WeekHeadingMarker,
		WeekCompletedMarker,
		LoopDoneSentinel,
		"8 weeks in total",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("loop prompt missing %q", want)
		}
	}
}

func TestPlannerIncludesConfig(t *testing.T) {
	p := Planner("Jordan", "Linear Algebra", "Advanced", "10 weeks", "Project-Based / Hands-On")
	for _, want := range []string{"Jordan", "Linear Algebra", "Advanced", "10 weeks", "Project-Based / Hands-On", "# Course Name:"} {
		if !strings.Contains(p, want) {
			t.Errorf("planner prompt missing %q", want)
		}
	}
}

func TestQuizzesListsWeeks(t *testing.T) {
	p := Quizzes("Linear Algebra", []string{"Vectors", "Matrices"})
	if !strings.Contains(p, "Week 1: Vectors") || !strings.Contains(p, "Week 2: Matrices") {
		t.Fatalf("quiz prompt missing week list:\n%s", p)
	}
	if !strings.Contains(p, "=== QUIZ [K]:") {
		t.Fatalf("quiz prompt missing paper banner format")
	}
}
