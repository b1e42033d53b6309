// Package prompt holds the model instructions for each pipeline stage.
// Prompts are configuration data: the pipeline reads them, nothing else
// depends on their wording.
package prompt

import (
	"fmt"
	"strings"
)

// Sentinel the weekly content loop emits when every week has been produced.
const LoopDoneSentinel = "DONE and DUSTED"

// Markers the weekly content loop is instructed to wrap each week in. The
// segmentation cascade keys off the same shapes.
const (
	WeekProcessingMarker = "=== PROCESSING WEEK [N] ==="
	WeekHeadingMarker    = "# Week [N]: [Title]"
	WeekCompletedMarker  = "=== WEEK [N] COMPLETED ==="
)

// Planner produces the course plan from the curriculum document and the
// user's configuration.
func Planner(userName, topic, difficulty, duration, style string) string {
	var b strings.Builder
	b.WriteString("You are an expert instructional designer building a complete course plan.\n\n")
	fmt.Fprintf(&b, "Learner: %s\nCourse topic: %s\nDifficulty: %s\nDuration: %s\nTeaching style: %s\n\n", userName, topic, difficulty, duration, style)
	b.WriteString(`Interpret difficulty as follows:
- Foundational: assume no prior knowledge, define every term, favor analogies.
- Intermediate: assume working familiarity, focus on connections and practice.
- Advanced: assume fluency, focus on edge cases, tradeoffs and current research.

Interpret teaching style as follows:
- Exploratory & Guided: pose questions first, guide discovery, then consolidate.
- Project-Based / Hands-On: anchor every week to a concrete build or exercise.
- Conceptual & Conversational: explain through narrative and dialogue.
- Clear & Structured: precise definitions, numbered steps, explicit summaries.

Read the attached curriculum document and produce:
1. A course title on the first line as "# Course Name: <title>".
2. A week-by-week plan covering the full duration, one section per week,
   each listing topics, learning objectives and suggested activities.
Ground factual claims in current sources where the search tool is available.`)
	return b.String()
}

// CourseContent expands the plan into full teaching material.
func CourseContent() string {
	return `You are an expert course author. Using the course plan provided,
write the full course content: for each planned week, produce complete
teaching material with explanations, examples and exercises, honoring the
configured difficulty and teaching style. Keep the week structure of the plan.`
}

// DeepContentLoop is the instruction for one iteration of the weekly
// deep-content loop. The model sees the accumulated output so far and must
// produce exactly the next unwritten week, wrapped in the control markers.
func DeepContentLoop(totalWeeks int) string {
	var b strings.Builder
	b.WriteString("You are writing an in-depth course one week at a time.\n\n")
	b.WriteString("You are given the session state and the event log, including everything already written. Find the highest week already completed and write ONLY the next week.\n\n")
	b.WriteString("Production rules, follow them exactly:\n")
	fmt.Fprintf(&b, "1. Begin with the line: %s\n", WeekProcessingMarker)
	fmt.Fprintf(&b, "2. Then the heading: %s\n", WeekHeadingMarker)
	b.WriteString("3. Then the full week content: detailed lessons, worked examples, practice problems with solutions, and a summary.\n")
	fmt.Fprintf(&b, "4. End with the line: %s\n", WeekCompletedMarker)
	fmt.Fprintf(&b, "5. Replace [N] with the week number. The course has %d weeks in total.\n", totalWeeks)
	fmt.Fprintf(&b, "6. If every week through week %d is already completed, output exactly: %s\n", totalWeeks, LoopDoneSentinel)
	return b.String()
}

// Structure asks for the final consolidated document. The three headers and
// the week heading shape are load-bearing: segmentation and rendering depend
// on them.
func Structure(totalWeeks int) string {
	return fmt.Sprintf("The course has %d weeks. ", totalWeeks) +
		`Consolidate the course material you are given into one structured
document with EXACTLY this layout:

<course title as a single # heading>

## Course Overview
<two or three paragraphs introducing the course>

## Weekly Summary
- Week 1: <one line>
- Week 2: <one line>
(one bullet per week, ascending)

# Week 1: <title>
<full content for week 1>

# Week 2: <title>
<full content for week 2>

(one week section per course week, ascending, nothing after the last week
section)`
}

// Quizzes produces themed question papers for the course.
func Quizzes(courseTitle string, weekTitles []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create 3 quiz papers for the course %q.\n", courseTitle)
	b.WriteString("The course weeks are:\n")
	for i, t := range weekTitles {
		fmt.Fprintf(&b, "- Week %d: %s\n", i+1, t)
	}
	b.WriteString(`
Each paper covers a contiguous span of weeks and has a short theme line.
Each paper contains 10 to 15 one-mark short-answer questions.
Format each paper as:

=== QUIZ [K]: [theme] ===
1. <question>
2. <question>
...

Nothing outside the three papers.`)
	return b.String()
}

// Flashcards asks for card data as a JSON array. The renderer parses this
// shape directly.
func Flashcards(courseTitle, difficulty string, weekCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create flashcards for the course %q at %s difficulty.\n", courseTitle, difficulty)
	fmt.Fprintf(&b, "Cover all %d weeks. Produce 15 to 20 cards.\n\n", weekCount)
	b.WriteString(`Respond with ONLY a JSON array, no prose and no code fences:
[
  {"front": "<term or question>", "back": "<concise answer>", "week": "Week 1", "topic": "<topic>"}
]`)
	return b.String()
}
