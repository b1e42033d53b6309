// Package segment splits a generated course corpus into per-week blocks.
// The corpus arrives as free text from the model, so splitting is a cascade
// of strategies from strict markers down to a whole-corpus fallback. The
// cascade is deterministic: same corpus in, same blocks out.
package segment

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// WeekBlock is one week's slice of the corpus. Start/End are byte offsets
// into the original corpus, before marker stripping.
type WeekBlock struct {
	Number  int
	Title   string
	RawBody string
	Start   int
	End     int
}

// Result carries the blocks plus how they were obtained. Fallback is set
// when no week structure was found and the whole corpus became Week 1;
// callers treat that as a warning, never an error.
type Result struct {
	Weeks    []WeekBlock
	Strategy string
	Fallback bool
}

const (
	StrategyPrimary       = "primary-markers"
	StrategyVariant       = "variant-markers"
	StrategyHeuristic     = "week-mentions"
	StrategyWholeDocument = "whole-document"
)

var (
	// Start-of-week markers, in cascade priority order.
	rePrimaryHeading = regexp.MustCompile(`(?im)^#[ \t]*Week[ \t]+(\d+)[^\n]*`)
	reVariantBanner  = regexp.MustCompile(`(?im)^===[ \t]*WEEK[ \t]+(\d+)[ \t]*===[^\n]*`)
	reVariantColon   = regexp.MustCompile(`(?im)^Week[ \t]+(\d+):[^\n]*`)
	reVariantH2      = regexp.MustCompile(`(?im)^##[ \t]*Week[ \t]+(\d+)[^\n]*`)
	reVariantH3      = regexp.MustCompile(`(?im)^###[ \t]*Week[ \t]+(\d+)[^\n]*`)

	// Completion and processing markers emitted by the content loop.
	reCompleted  = regexp.MustCompile(`(?i)===[ \t]*WEEK[ \t]+(\d+)[ \t]*COMPLETED[ \t]*===`)
	reProcessing = regexp.MustCompile(`(?i)===[ \t]*PROCESSING[ \t]+WEEK[ \t]+(\d+)[ \t]*===`)
	reHalt       = regexp.MustCompile(`<<HALT_FOR_SECONDS:\d+>>`)

	// Loose "Week N" mention, for the marker-absent heuristic.
	reMention = regexp.MustCompile(`(?i)\bWeek[ \t]+(\d+)\b`)
)

// Split runs the strategy cascade and post-processing. The result always
// has at least one block.
func Split(corpus string) Result {
	if weeks := splitByStartRe(corpus, rePrimaryHeading); len(weeks) > 0 {
		return finish(corpus, weeks, StrategyPrimary)
	}
	for _, re := range []*regexp.Regexp{reVariantBanner, reVariantColon, reVariantH2, reVariantH3} {
		if weeks := splitByStartRe(corpus, re); len(weeks) > 0 {
			return finish(corpus, weeks, StrategyVariant)
		}
	}
	if weeks := splitBackwards(corpus); len(weeks) > 0 {
		return finish(corpus, weeks, StrategyVariant)
	}
	if weeks := splitByMentions(corpus); len(weeks) > 0 {
		return finish(corpus, weeks, StrategyHeuristic)
	}
	return wholeDocument(corpus)
}

// wholeDocument is the terminal fallback: the entire corpus becomes a single
// synthetic Week 1.
func wholeDocument(corpus string) Result {
	whole := WeekBlock{
		Number:  1,
		Title:   "Week 1",
		RawBody: strings.TrimSpace(stripMarkers(corpus)),
		Start:   0,
		End:     len(corpus),
	}
	return Result{Weeks: []WeekBlock{whole}, Strategy: StrategyWholeDocument, Fallback: true}
}

// splitByStartRe pairs each start marker with its own numbered completion
// marker. Go's regexp has no backreferences, so the pairing is done by
// scanning: for each start match with number N, the body runs to the first
// "=== WEEK N COMPLETED ===" after it, or to the next start marker, or EOF.
func splitByStartRe(corpus string, startRe *regexp.Regexp) []WeekBlock {
	matches := startRe.FindAllStringSubmatchIndex(corpus, -1)
	if len(matches) == 0 {
		return nil
	}
	var weeks []WeekBlock
	for i, m := range matches {
		headStart, headEnd := m[0], m[1]
		num, err := strconv.Atoi(corpus[m[2]:m[3]])
		if err != nil {
			continue
		}
		bodyEnd := len(corpus)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		blockEnd := bodyEnd
		if cm := findCompletion(corpus[headEnd:bodyEnd], num); cm >= 0 {
			blockEnd = headEnd + cm
		}
		weeks = append(weeks, WeekBlock{
			Number:  num,
			Title:   titleFromHeading(corpus[headStart:headEnd], num),
			RawBody: corpus[headEnd:blockEnd],
			Start:   headStart,
			End:     bodyEnd,
		})
	}
	return weeks
}

// findCompletion returns the offset of "=== WEEK num COMPLETED ===" within s,
// or -1.
func findCompletion(s string, num int) int {
	for _, m := range reCompleted.FindAllStringSubmatchIndex(s, -1) {
		n, err := strconv.Atoi(s[m[2]:m[3]])
		if err == nil && n == num {
			return m[0]
		}
	}
	return -1
}

// splitBackwards segments by completion markers alone: everything since the
// previous completion marker belongs to the week the marker names. Useful
// when the loop emitted terminators but no headings.
func splitBackwards(corpus string) []WeekBlock {
	matches := reCompleted.FindAllStringSubmatchIndex(corpus, -1)
	if len(matches) == 0 {
		return nil
	}
	var weeks []WeekBlock
	prevEnd := 0
	for _, m := range matches {
		num, err := strconv.Atoi(corpus[m[2]:m[3]])
		if err != nil {
			continue
		}
		weeks = append(weeks, WeekBlock{
			Number:  num,
			Title:   "Week " + strconv.Itoa(num),
			RawBody: corpus[prevEnd:m[0]],
			Start:   prevEnd,
			End:     m[1],
		})
		prevEnd = m[1]
	}
	return weeks
}

// splitByMentions is the marker-absent heuristic: take the first mention of
// each distinct week number and slice the corpus between consecutive first
// mentions in document order.
func splitByMentions(corpus string) []WeekBlock {
	firstMention := map[int]int{}
	for _, m := range reMention.FindAllStringSubmatchIndex(corpus, -1) {
		num, err := strconv.Atoi(corpus[m[2]:m[3]])
		if err != nil {
			continue
		}
		if _, seen := firstMention[num]; !seen {
			firstMention[num] = m[0]
		}
	}
	for _, m := range reCompleted.FindAllStringSubmatchIndex(corpus, -1) {
		num, err := strconv.Atoi(corpus[m[2]:m[3]])
		if err != nil {
			continue
		}
		if _, seen := firstMention[num]; !seen {
			firstMention[num] = m[0]
		}
	}
	if len(firstMention) == 0 {
		return nil
	}

	type anchor struct {
		num int
		pos int
	}
	anchors := make([]anchor, 0, len(firstMention))
	for num, pos := range firstMention {
		anchors = append(anchors, anchor{num: num, pos: pos})
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].pos < anchors[j].pos })

	var weeks []WeekBlock
	for i, a := range anchors {
		end := len(corpus)
		if i+1 < len(anchors) {
			end = anchors[i+1].pos
		}
		weeks = append(weeks, WeekBlock{
			Number:  a.num,
			Title:   "Week " + strconv.Itoa(a.num),
			RawBody: corpus[a.pos:end],
			Start:   a.pos,
			End:     end,
		})
	}
	return weeks
}

// finish applies the shared post-processing: strip marker lines, trim, drop
// garbage numbers, sort ascending, de-duplicate keeping the longest body.
// When post-processing rejects every block the original corpus falls back to
// a single synthetic week rather than being discarded.
func finish(corpus string, weeks []WeekBlock, strategy string) Result {
	cleaned := make([]WeekBlock, 0, len(weeks))
	for _, w := range weeks {
		if w.Number <= 0 {
			continue
		}
		w.RawBody = strings.TrimSpace(stripMarkers(w.RawBody))
		if w.Title == "" {
			w.Title = "Week " + strconv.Itoa(w.Number)
		}
		cleaned = append(cleaned, w)
	}
	if len(cleaned) == 0 {
		return wholeDocument(corpus)
	}

	sort.SliceStable(cleaned, func(i, j int) bool { return cleaned[i].Number < cleaned[j].Number })

	deduped := make([]WeekBlock, 0, len(cleaned))
	for _, w := range cleaned {
		if n := len(deduped); n > 0 && deduped[n-1].Number == w.Number {
			if len(w.RawBody) > len(deduped[n-1].RawBody) {
				deduped[n-1] = w
			}
			continue
		}
		deduped = append(deduped, w)
	}
	return Result{Weeks: deduped, Strategy: strategy, Fallback: false}
}

// stripMarkers removes the loop's control markers so they never leak into
// rendered documents.
func stripMarkers(body string) string {
	body = reCompleted.ReplaceAllString(body, "")
	body = reProcessing.ReplaceAllString(body, "")
	body = reHalt.ReplaceAllString(body, "")
	return body
}

func titleFromHeading(heading string, num int) string {
	// "# Week 3: Sorting Algorithms" -> "Sorting Algorithms"
	if idx := strings.Index(heading, ":"); idx >= 0 {
		if t := strings.TrimSpace(heading[idx+1:]); t != "" {
			return t
		}
	}
	t := strings.TrimSpace(strings.TrimLeft(heading, "#= \t"))
	t = strings.TrimRight(t, "= \t")
	if t != "" {
		return t
	}
	return "Week " + strconv.Itoa(num)
}
