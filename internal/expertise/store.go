// Package expertise implements the Act-Learn-Reuse knowledge base: one
// markdown file per expert mode, holding human-curated permanent sections
// plus a bounded log of recent session insights. The Reuse phase loads a
// conditioning block from the file; the Learn phase appends to it after a
// successful run; consolidation periodically promotes recurring insights
// into the permanent sections.
package expertise

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"overseer/internal/logging"
)

const (
	// sessionMarker separates permanent sections from the session log.
	sessionMarker = "## Session Insights"

	// insightCap bounds the session-insight log; oldest entries are
	// evicted first.
	insightCap = 5

	// minLearnings guards Update against noise.
	minLearnings = 50

	// minMeaningful guards Load against injecting a near-empty template.
	minMeaningful = 100

	timestampLayout = "2006-01-02 15:04 UTC"
)

var sessionCountRe = regexp.MustCompile(`\d+`)

// Store is a per-mode durable knowledge base rooted at a directory.
// Update and Consolidate take a per-mode file lock so independent processes
// cannot interleave writes; Load is lock-free and at worst observes the
// previous version.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) an expertise directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create expertise directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the expertise file path for a mode.
func (s *Store) Path(mode string) string {
	return filepath.Join(s.dir, mode+".md")
}

// Load returns the accumulated expertise for a mode as a conditioning block,
// or empty if no record exists or the stored content is still essentially
// the empty template. Section boundaries are preserved; sections holding
// only placeholder comments are dropped.
func (s *Store) Load(mode string) string {
	data, err := os.ReadFile(s.Path(mode))
	if err != nil {
		return ""
	}

	var sections []string
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" && !placeholderOnly(current) {
			sections = append(sections, text)
		}
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "## ") && len(current) > 0 {
			flush()
			current = []string{line}
		} else {
			current = append(current, line)
		}
	}
	flush()

	joined := strings.Join(sections, "\n\n")
	if len(joined) <= minMeaningful {
		return ""
	}

	logging.ExpertiseDebug("Loaded expertise for mode %s: %d bytes, %d sections", mode, len(joined), len(sections))
	return "## Accumulated Expertise\n" + joined
}

// placeholderOnly reports whether every non-blank line in the section is a
// heading or an HTML comment marker.
func placeholderOnly(lines []string) bool {
	content := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "## ") {
			continue
		}
		if strings.HasPrefix(trimmed, "<!--") {
			continue
		}
		content++
	}
	return content == 0
}

// Update appends a session insight for a mode. It is a no-op unless the run
// succeeded and the learnings carry enough substance; the insight log is
// capped FIFO at insightCap entries. The record (and its template) is
// created lazily on the first successful learning event.
func (s *Store) Update(mode, learnings, sourceTask string, succeeded bool) error {
	if !succeeded || len(learnings) < minLearnings {
		return nil
	}

	unlock, err := s.lock(mode)
	if err != nil {
		return fmt.Errorf("failed to lock expertise for %s: %w", mode, err)
	}
	defer unlock()

	path := s.Path(mode)
	current := ""
	if data, err := os.ReadFile(path); err == nil {
		current = string(data)
	} else {
		current = newTemplate(mode)
	}

	timestamp := time.Now().UTC().Format(timestampLayout)
	entry := fmt.Sprintf("### Session: %s\n**Task:** %s...\n\n%s\n", timestamp, truncate(sourceTask, 100), learnings)

	header, entries, found := splitInsights(current)
	if !found {
		header = strings.TrimRight(current, "\n") + "\n\n"
		entries = nil
	}

	entries = append(entries, entry)
	if len(entries) > insightCap {
		entries = entries[len(entries)-insightCap:]
	}

	updated := header + sessionMarker + "\n" + strings.Join(entries, "\n")
	updated = bumpMetadata(updated, timestamp)

	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		return fmt.Errorf("failed to write expertise for %s: %w", mode, err)
	}

	logging.Expertise("Updated expertise for mode %s: %d insights on record", mode, len(entries))
	return nil
}

// splitInsights divides an expertise file into the permanent header and the
// individual session entries. Each returned entry retains its
// "### Session:" heading.
func splitInsights(content string) (header string, entries []string, found bool) {
	idx := strings.Index(content, sessionMarker)
	if idx < 0 {
		return content, nil, false
	}

	header = content[:idx]
	tail := content[idx+len(sessionMarker):]

	for _, chunk := range strings.Split(tail, "### Session:") {
		trimmed := strings.TrimSpace(chunk)
		if trimmed == "" || strings.HasPrefix(trimmed, "<!--") {
			continue
		}
		entries = append(entries, "### Session:"+strings.TrimRight(chunk, "\n")+"\n")
	}
	return header, entries, true
}

// bumpMetadata refreshes the last-updated line and increments the session
// counter. Missing metadata lines are left alone; the template always
// carries them.
func bumpMetadata(content, timestamp string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "*Last updated:"):
			lines[i] = fmt.Sprintf("*Last updated: %s*", timestamp)
		case strings.HasPrefix(line, "*Total sessions:"):
			count := 0
			if m := sessionCountRe.FindString(line); m != "" {
				count, _ = strconv.Atoi(m)
			}
			lines[i] = fmt.Sprintf("*Total sessions: %d*", count+1)
		}
	}
	return strings.Join(lines, "\n")
}

// newTemplate seeds a fresh expertise file with the permanent sections that
// consolidation promotes into.
func newTemplate(mode string) string {
	return fmt.Sprintf(`# Expertise: %s

*Last updated: never*
*Total sessions: 0*

## Patterns Learned
<!-- Recurring patterns promoted from session insights -->

## Common Pitfalls
<!-- Mistakes to avoid, promoted from session insights -->

## Effective Approaches
<!-- Approaches that worked well, promoted from session insights -->

## Code Templates
<!-- Reusable snippets promoted from session insights -->

`, mode)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// lock acquires the per-mode advisory file lock. Stale locks older than 30
// seconds are taken over, so a crashed writer cannot wedge the mode forever.
func (s *Store) lock(mode string) (func(), error) {
	lockPath := s.Path(mode) + ".lock"
	deadline := time.Now().Add(2 * time.Second)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > 30*time.Second {
			os.Remove(lockPath)
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock held too long: %s", lockPath)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
