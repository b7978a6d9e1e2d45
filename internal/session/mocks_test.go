package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"overseer/internal/config"
	"overseer/internal/types"
)

// scriptedEngine is a deterministic engine stand-in. Every conversation
// replays the configured event script, after an optional delay, then
// returns runErr.
type scriptedEngine struct {
	mu        sync.Mutex
	script    []types.Event
	runErr    error
	runDelay  time.Duration
	createErr error

	created  int
	specs    []types.AgentSpec
	received []string
}

func (e *scriptedEngine) CreateAgent(spec types.AgentSpec) (types.Agent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.createErr != nil {
		return nil, e.createErr
	}
	e.created++
	e.specs = append(e.specs, spec)
	return &scriptedAgent{engine: e}, nil
}

func (e *scriptedEngine) createdAgents() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.created
}

func (e *scriptedEngine) lastMessage() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.received) == 0 {
		return ""
	}
	return e.received[len(e.received)-1]
}

type scriptedAgent struct {
	engine *scriptedEngine
}

func (a *scriptedAgent) StartConversation(workspace string, events chan<- types.Event) (types.Conversation, error) {
	return &scriptedConversation{engine: a.engine, events: events}, nil
}

type scriptedConversation struct {
	engine *scriptedEngine
	events chan<- types.Event
}

func (c *scriptedConversation) SendMessage(text string) error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	c.engine.received = append(c.engine.received, text)
	return nil
}

func (c *scriptedConversation) Run(ctx context.Context) error {
	defer close(c.events)

	c.engine.mu.Lock()
	script := c.engine.script
	delay := c.engine.runDelay
	runErr := c.engine.runErr
	c.engine.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for _, ev := range script {
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return runErr
}

// testConfig returns a config whose backends resolve against a key this
// test process controls.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("OVERSEER_TEST_KEY", "test-key")

	return config.Config{
		ExpertiseDir:    t.TempDir(),
		SessionDB:       ":memory:",
		DefaultTimeout:  5 * time.Second,
		DelegateTimeout: 2 * time.Second,
		Primary: config.BackendPreset{
			Name:      "test",
			Model:     "test-model",
			APIKeyEnv: "OVERSEER_TEST_KEY",
		},
	}
}
