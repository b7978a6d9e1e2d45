package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"overseer/internal/types"
)

func TestGetSpecialistCachesAgents(t *testing.T) {
	eng := &scriptedEngine{}
	m := NewSubAgentManager(eng, testConfig(t))

	first, err := m.GetSpecialist("security")
	require.NoError(t, err)
	second, err := m.GetSpecialist("security")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, eng.createdAgents())
}

func TestGetSpecialistModeMapping(t *testing.T) {
	eng := &scriptedEngine{}
	m := NewSubAgentManager(eng, testConfig(t))

	_, err := m.GetSpecialist("security")
	require.NoError(t, err)
	require.Len(t, eng.specs, 1)
	assert.Contains(t, eng.specs[0].SystemPrompt, "security engineer")

	// Unknown specialties fall back to the developer toolset.
	_, err = m.GetSpecialist("astrology")
	require.NoError(t, err)
	require.Len(t, eng.specs, 2)
	assert.Contains(t, eng.specs[1].Tools, types.ToolTaskTracker)
}

func TestDelegateCollectsOutput(t *testing.T) {
	eng := &scriptedEngine{script: []types.Event{
		types.AssistantMessage{Role: "assistant", Parts: []string{"No vulnerabilities found."}},
	}}
	m := NewSubAgentManager(eng, testConfig(t))

	res := m.Delegate(context.Background(), "security", "scan it", t.TempDir(), time.Second)
	assert.True(t, res.Success)
	assert.Equal(t, "security", res.Specialty)
	assert.Equal(t, "No vulnerabilities found.", res.Output)
	assert.Empty(t, res.Error)
}

func TestDelegateTimeoutDoesNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	eng := &scriptedEngine{runDelay: 5 * time.Second}
	m := NewSubAgentManager(eng, testConfig(t))

	start := time.Now()
	res := m.Delegate(context.Background(), "testing", "slow scan", t.TempDir(), 100*time.Millisecond)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "sub-agent timed out after 100ms")
	assert.Less(t, time.Since(start), 2*time.Second)

	// Give the scripted conversation a moment to observe cancellation so
	// goleak sees a clean shutdown.
	time.Sleep(50 * time.Millisecond)
}

func TestDelegateFailureDoesNotPropagate(t *testing.T) {
	eng := &scriptedEngine{createErr: context.DeadlineExceeded}
	m := NewSubAgentManager(eng, testConfig(t))

	res := m.Delegate(context.Background(), "docs", "write docs", t.TempDir(), time.Second)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestDelegateAllPreservesOrder(t *testing.T) {
	eng := &scriptedEngine{script: []types.Event{
		types.AssistantMessage{Role: "assistant", Parts: []string{"ok"}},
	}}
	m := NewSubAgentManager(eng, testConfig(t))

	reqs := []DelegationRequest{
		{Specialty: "security", Task: "scan", Workspace: t.TempDir(), Timeout: time.Second},
		{Specialty: "testing", Task: "test", Workspace: t.TempDir(), Timeout: time.Second},
		{Specialty: "docs", Task: "document", Workspace: t.TempDir(), Timeout: time.Second},
	}
	results := m.DelegateAll(context.Background(), reqs)

	require.Len(t, results, 3)
	assert.Equal(t, "security", results[0].Specialty)
	assert.Equal(t, "testing", results[1].Specialty)
	assert.Equal(t, "docs", results[2].Specialty)
	for _, res := range results {
		assert.True(t, res.Success)
	}
}

func TestTakeResultsDrains(t *testing.T) {
	eng := &scriptedEngine{script: []types.Event{
		types.AssistantMessage{Role: "assistant", Parts: []string{"ok"}},
	}}
	m := NewSubAgentManager(eng, testConfig(t))

	m.Delegate(context.Background(), "security", "scan", t.TempDir(), time.Second)
	m.Delegate(context.Background(), "testing", "test", t.TempDir(), time.Second)

	assert.Len(t, m.TakeResults(), 2)
	assert.Empty(t, m.TakeResults())
}
