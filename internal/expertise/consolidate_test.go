package expertise

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidateMissingMode(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Consolidate("developer")
	assert.Error(t, err)
}

func TestConsolidateNoSessions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path("developer"), []byte(newTemplate("developer")), 0644))

	stats, err := s.Consolidate("developer")
	require.NoError(t, err)
	assert.Equal(t, "no sessions to consolidate", stats.Message)
	assert.Zero(t, stats.PatternsPromoted)
}

func TestConsolidateInsufficientSessions(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < minSessionsToConsolidate-1; i++ {
		require.NoError(t, s.Update("developer",
			"- A useful pattern emerged around dependency injection in the handler layer here.",
			"task", true))
	}

	stats, err := s.Consolidate("developer")
	require.NoError(t, err)
	assert.Equal(t, minSessionsToConsolidate-1, stats.SessionsAnalyzed)
	assert.Contains(t, stats.Message, "need 3+ sessions")
	assert.Zero(t, stats.PatternsPromoted)
}

func TestConsolidatePromotesRecurringPatterns(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < minSessionsToConsolidate; i++ {
		require.NoError(t, s.Update("developer",
			"The same pattern appeared again: always validate config before opening the database pool.",
			"task", true))
	}

	stats, err := s.Consolidate("developer")
	require.NoError(t, err)

	assert.Equal(t, minSessionsToConsolidate, stats.SessionsAnalyzed)
	assert.Greater(t, stats.PatternsPromoted, 0)
	assert.Contains(t, stats.SectionsUpdated, "## Patterns Learned")

	data, err := os.ReadFile(s.Path("developer"))
	require.NoError(t, err)
	content := string(data)

	// The promoted bullet lands in the permanent section, above the log.
	headerEnd := strings.Index(content, sessionMarker)
	require.Greater(t, headerEnd, 0)
	assert.Contains(t, content[:headerEnd], "- The same pattern appeared again")

	// The mined session log is untouched.
	assert.Equal(t, minSessionsToConsolidate, strings.Count(content, "### Session:"))
}

func TestConsolidateNothingToPromote(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < minSessionsToConsolidate; i++ {
		require.NoError(t, s.Update("developer",
			"- Completed the task without anything noteworthy beyond routine refactoring work.",
			"task", true))
	}

	stats, err := s.Consolidate("developer")
	require.NoError(t, err)
	assert.Zero(t, stats.PatternsPromoted)
	assert.Equal(t, "no recurring observations to promote", stats.Message)
}

func TestConsolidateCapsPromotions(t *testing.T) {
	s := newTestStore(t)
	learnings := "One pattern here is caching aggressively for hot paths in the request cycle. " +
		"Another approach worth keeping is batching writes to cut down on fsync calls. " +
		"A third technique involves precomputing indexes during the idle window."
	for i := 0; i < insightCap; i++ {
		require.NoError(t, s.Update("developer", learnings, "task", true))
	}

	stats, err := s.Consolidate("developer")
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.PatternsPromoted, promotionCap)
}

func TestConsolidateIsIdempotentOnLog(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < minSessionsToConsolidate; i++ {
		require.NoError(t, s.Update("developer",
			"A recurring mistake to avoid: forgetting to close the response body in the retry loop.",
			"task", true))
	}

	_, err := s.Consolidate("developer")
	require.NoError(t, err)

	before, err := os.ReadFile(s.Path("developer"))
	require.NoError(t, err)

	// A second pass re-mines the same log without corrupting the file.
	_, err = s.Consolidate("developer")
	require.NoError(t, err)

	after, err := os.ReadFile(s.Path("developer"))
	require.NoError(t, err)
	assert.Equal(t,
		strings.Count(string(before), "### Session:"),
		strings.Count(string(after), "### Session:"))
}
