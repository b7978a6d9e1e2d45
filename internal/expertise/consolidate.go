package expertise

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"overseer/internal/logging"
)

// ConsolidationStats reports what a consolidation pass did.
type ConsolidationStats struct {
	SessionsAnalyzed int      `json:"sessions_analyzed"`
	PatternsPromoted int      `json:"patterns_promoted"`
	SectionsUpdated  []string `json:"sections_updated,omitempty"`
	Message          string   `json:"message,omitempty"`
}

// promotionGroup maps a keyword family to the permanent section its
// recurring observations are promoted into. Order is fixed so consolidation
// is deterministic.
type promotionGroup struct {
	section  string
	keywords []string
}

var promotionGroups = []promotionGroup{
	{"## Patterns Learned", []string{"pattern", "approach", "technique", "method"}},
	{"## Common Pitfalls", []string{"pitfall", "mistake", "error", "avoid", "don't", "anti-pattern"}},
	{"## Effective Approaches", []string{"effective", "works well", "recommended", "best practice"}},
	{"## Code Templates", []string{"template", "example", "snippet", "boilerplate"}},
}

// Consolidation policy constants.
const (
	minSessionsToConsolidate = 3
	keywordThreshold         = 3
	minSentenceLen           = 30
	promotionCap             = 5
	promotedSentenceCap      = 200
)

var sentenceSplitRe = regexp.MustCompile(`[.!?]`)

// Consolidate promotes recurring session-level observations into the
// permanent sections of a mode's expertise file. It is additive: the session
// log it mined stays untouched so later passes can re-examine it.
func (s *Store) Consolidate(mode string) (ConsolidationStats, error) {
	stats := ConsolidationStats{}

	unlock, err := s.lock(mode)
	if err != nil {
		return stats, fmt.Errorf("failed to lock expertise for %s: %w", mode, err)
	}
	defer unlock()

	path := s.Path(mode)
	data, err := os.ReadFile(path)
	if err != nil {
		return stats, fmt.Errorf("expertise file not found for %s: %w", mode, err)
	}
	content := string(data)

	header, sessions, found := splitInsights(content)
	if !found {
		stats.Message = "no sessions to consolidate"
		return stats, nil
	}

	stats.SessionsAnalyzed = len(sessions)
	if len(sessions) < minSessionsToConsolidate {
		stats.Message = fmt.Sprintf("need %d+ sessions for consolidation", minSessionsToConsolidate)
		return stats, nil
	}

	allContent := strings.ToLower(strings.Join(sessions, " "))

	type promotion struct {
		section string
		insight string
	}
	var promoted []promotion

	for _, group := range promotionGroups {
		occurrences := 0
		for _, kw := range group.keywords {
			occurrences += strings.Count(allContent, kw)
		}
		if occurrences < keywordThreshold {
			continue
		}

		for _, session := range sessions {
			lowerSession := strings.ToLower(session)
			for _, kw := range group.keywords {
				if !strings.Contains(lowerSession, kw) {
					continue
				}
				for _, sent := range sentenceSplitRe.Split(session, -1) {
					trimmed := strings.TrimSpace(sent)
					if len(trimmed) > minSentenceLen && strings.Contains(strings.ToLower(trimmed), kw) {
						promoted = append(promoted, promotion{group.section, truncate(trimmed, promotedSentenceCap)})
						break
					}
				}
			}
		}
	}

	if len(promoted) == 0 {
		stats.Message = "no recurring observations to promote"
		return stats, nil
	}
	if len(promoted) > promotionCap {
		promoted = promoted[:promotionCap]
	}

	lines := strings.Split(header, "\n")
	touched := map[string]bool{}
	for _, p := range promoted {
		for i, line := range lines {
			if strings.TrimSpace(line) != p.section {
				continue
			}
			bullet := "- " + p.insight
			if i+1 < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i+1]), "<!--") {
				lines[i+1] = bullet
			} else {
				lines = append(lines[:i+1], append([]string{bullet}, lines[i+1:]...)...)
			}
			if !touched[p.section] {
				touched[p.section] = true
				stats.SectionsUpdated = append(stats.SectionsUpdated, p.section)
			}
			stats.PatternsPromoted++
			break
		}
	}

	// Reattach the untouched session log verbatim.
	tail := content[strings.Index(content, sessionMarker):]
	updated := strings.Join(lines, "\n") + tail

	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		return stats, fmt.Errorf("failed to write consolidated expertise for %s: %w", mode, err)
	}

	logging.Expertise("Consolidated expertise for mode %s: %d promoted across %d sections",
		mode, stats.PatternsPromoted, len(stats.SectionsUpdated))
	return stats, nil
}
