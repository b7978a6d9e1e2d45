// Package engine adapts Google's genai SDK to the agent-execution contract
// the orchestrator runs against. One GenAIEngine serves any number of
// agents; each conversation is a single non-streaming generation whose
// response parts are replayed as events.
package engine

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"overseer/internal/logging"
	"overseer/internal/types"
)

// GenAIEngine creates agents backed by the Gemini API.
type GenAIEngine struct{}

func NewGenAIEngine() *GenAIEngine {
	return &GenAIEngine{}
}

// CreateAgent validates the spec and returns an agent handle. The genai
// client is created per conversation because client construction needs a
// context.
func (e *GenAIEngine) CreateAgent(spec types.AgentSpec) (types.Agent, error) {
	if spec.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", types.ErrConfiguration)
	}
	if spec.Model == "" {
		return nil, fmt.Errorf("%w: model is required", types.ErrConfiguration)
	}
	return &genaiAgent{spec: spec}, nil
}

type genaiAgent struct {
	spec types.AgentSpec
}

func (a *genaiAgent) StartConversation(workspace string, events chan<- types.Event) (types.Conversation, error) {
	if events == nil {
		return nil, fmt.Errorf("event channel is required")
	}
	return &genaiConversation{
		spec:      a.spec,
		workspace: workspace,
		events:    events,
	}, nil
}

type genaiConversation struct {
	mu        sync.Mutex
	spec      types.AgentSpec
	workspace string
	events    chan<- types.Event
	messages  []string
	ran       bool
}

// SendMessage queues task text for the next Run.
func (c *genaiConversation) SendMessage(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ran {
		return fmt.Errorf("conversation already ran")
	}
	c.messages = append(c.messages, text)
	return nil
}

// Run performs one generation and replays the response as events. The event
// channel is closed before Run returns, whatever the outcome.
func (c *genaiConversation) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return fmt.Errorf("conversation already ran")
	}
	c.ran = true
	messages := c.messages
	c.mu.Unlock()

	defer close(c.events)

	if len(messages) == 0 {
		return fmt.Errorf("no message queued")
	}

	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  c.spec.APIKey,
	}
	if c.spec.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.spec.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}

	genCfg := &genai.GenerateContentConfig{}
	if c.spec.SystemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(c.spec.SystemPrompt, genai.RoleUser)
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		contents = append(contents, genai.NewContentFromText(msg, genai.RoleUser))
	}

	timer := logging.StartTimer(logging.CategoryAPI, "generate_content")
	resp, err := client.Models.GenerateContent(ctx, c.spec.Model, contents, genCfg)
	timer.Stop()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("generation failed: %w", err)
	}

	c.emit(ctx, resp)
	return ctx.Err()
}

// emit translates response parts into events, stopping early if the context
// is cancelled while the channel is full.
func (c *genaiConversation) emit(ctx context.Context, resp *genai.GenerateContentResponse) {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			var ev types.Event
			switch {
			case part.ExecutableCode != nil:
				ev = types.ActionProposed{
					Kind:    types.ActionCommand,
					Content: part.ExecutableCode.Code,
					Message: part.ExecutableCode.Code,
				}
			case part.Text != "":
				ev = types.AssistantMessage{
					Role:  "assistant",
					Parts: []string{part.Text},
				}
			default:
				continue
			}

			select {
			case c.events <- ev:
			case <-ctx.Done():
				logging.APIDebug("Dropping remaining events: %v", ctx.Err())
				return
			}
		}
	}
}
