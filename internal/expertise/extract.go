package expertise

import (
	"regexp"
	"strings"
)

// learningMarkers are the explicit headings an agent uses to report what it
// learned. Checked in order; each match contributes one capped section.
var learningMarkers = []string{
	"## Learnings", "## What I Learned", "## Insights",
	"### Patterns", "### Observations", "### Notes",
	"## Key Insight", "### Key Insight", "## Recommendation",
	"## Anti-Patterns", "### Anti-Patterns", "## Best Practices",
	"## Option", "## Summary", "### Summary",
}

// cuePatterns infer insights from prose when no explicit heading exists.
// Capture group 1 is the insight text up to end of line.
var cuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:discovered|found|noticed|identified)[:\s]+(.+)`),
	regexp.MustCompile(`(?i)(?:pattern|approach|technique)[:\s]+(.+)`),
	regexp.MustCompile(`(?i)(?:important|notable|key)[:\s]+(.+)`),
	regexp.MustCompile(`(?i)(?:recommend|suggestion|should)[:\s]+(.+)`),
	regexp.MustCompile(`(?i)(?:anti-pattern|issue|problem)[:\s]+(.+)`),
	regexp.MustCompile(`(?i)(?:best practice|optimization)[:\s]+(.+)`),
}

// Extraction policy constants. These caps define the exact mining behavior;
// tune them only deliberately.
const (
	sectionCap   = 500
	fallbackCap  = 400
	perPatternCap = 3
	totalCap     = 10
)

// ExtractLearnings mines learning-worthy content from agent output. It
// prefers explicit heading sections, then prose cue patterns, then falls
// back to the first substantial paragraph of long output. An empty return
// means nothing worth learning; callers skip Update in that case.
func ExtractLearnings(output string) string {
	var learnings []string

	for _, marker := range learningMarkers {
		idx := strings.Index(output, marker)
		if idx < 0 {
			continue
		}
		section := output[idx:]
		if end := strings.Index(section[len(marker):], "\n## "); end >= 0 {
			section = section[:len(marker)+end]
		}
		learnings = append(learnings, truncate(strings.TrimSpace(section), sectionCap))
	}

	if len(learnings) == 0 && output != "" {
		for _, pattern := range cuePatterns {
			for _, m := range pattern.FindAllStringSubmatch(output, perPatternCap) {
				learnings = append(learnings, strings.TrimSpace(m[1]))
			}
		}
	}

	if len(learnings) == 0 && len(output) > 200 {
		paragraphs := strings.Split(output, "\n\n")
		if len(paragraphs) > 3 {
			paragraphs = paragraphs[:3]
		}
		for _, para := range paragraphs {
			if len(para) > 100 && !strings.HasPrefix(para, "#") {
				learnings = append(learnings, truncate(para, fallbackCap))
				break
			}
		}
	}

	if len(learnings) > totalCap {
		learnings = learnings[:totalCap]
	}
	return strings.Join(learnings, "\n")
}
