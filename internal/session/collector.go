package session

import (
	"sort"
	"strings"
	"sync"

	"overseer/internal/logging"
	"overseer/internal/safety"
	"overseer/internal/types"
)

// collector accumulates engine events on the drain goroutine. The mutex
// makes snapshots safe after a timeout abandons the drain mid-stream.
type collector struct {
	mu       sync.Mutex
	security bool
	parts    []string
	tools    map[string]struct{}
	blocked  []types.BlockedAction
}

func newCollector(security bool) *collector {
	return &collector{
		security: security,
		tools:    make(map[string]struct{}),
	}
}

func (c *collector) handle(ev types.Event) {
	switch e := ev.(type) {
	case types.ActionProposed:
		c.handleAction(e)
	case types.AssistantMessage:
		c.handleMessage(e)
	}
}

func (c *collector) handleAction(a types.ActionProposed) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.security {
		if v := safety.Validate(a.Kind, a.Content); !v.Safe {
			c.blocked = append(c.blocked, types.BlockedAction{
				Action: string(a.Kind),
				Reason: v.Reason,
			})
			logging.Safety("Blocked %s: %s", a.Kind, v.Reason)
			return
		}
	}

	c.tools[string(a.Kind)] = struct{}{}
	if msg := strings.TrimSpace(a.Message); msg != "" {
		c.parts = append(c.parts, msg)
	}
}

func (c *collector) handleMessage(m types.AssistantMessage) {
	if m.Role != "" && m.Role != "assistant" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, part := range m.Parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			c.parts = append(c.parts, trimmed)
		}
	}
}

// snapshot copies the accumulated state. Tools are sorted so results are
// deterministic regardless of event interleaving.
func (c *collector) snapshot() (parts []string, tools []string, blocked []types.BlockedAction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parts = append([]string(nil), c.parts...)
	blocked = append([]types.BlockedAction(nil), c.blocked...)

	tools = make([]string, 0, len(c.tools))
	for t := range c.tools {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	return parts, tools, blocked
}
