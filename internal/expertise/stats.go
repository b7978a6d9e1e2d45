package expertise

import (
	"os"
	"strings"

	"overseer/internal/prompt"
)

// ModeStats summarizes one mode's accumulated expertise.
type ModeStats struct {
	Sessions int    `json:"sessions"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
}

// Stats reports per-mode expertise statistics for every known mode,
// including modes with no record yet.
func (s *Store) Stats() map[string]ModeStats {
	stats := make(map[string]ModeStats, len(prompt.Modes()))

	for _, mode := range prompt.Modes() {
		path := s.Path(string(mode))
		entry := ModeStats{Path: path}

		if data, err := os.ReadFile(path); err == nil {
			entry.Size = int64(len(data))
			entry.Sessions = strings.Count(string(data), "### Session:")
		}
		stats[string(mode)] = entry
	}
	return stats
}
