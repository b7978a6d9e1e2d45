// Package types defines the shared contracts between the orchestrator core
// and its collaborators. The agent-execution engine, its tools, and the LLM
// backends live behind these interfaces; the core never reaches past them.
package types

import (
	"context"
	"errors"
	"time"
)

// ToolID identifies a tool made available to an agent. Tool implementations
// are owned by the engine; the core only names them.
type ToolID string

const (
	ToolTerminal    ToolID = "terminal"
	ToolFileEditor  ToolID = "file_editor"
	ToolTaskTracker ToolID = "task_tracker"
	ToolWeb         ToolID = "web"
)

// ActionKind classifies a side-effecting operation the engine is about to
// perform. Engines may emit kinds beyond this list; the validator treats
// unknown kinds like any other.
type ActionKind string

const (
	ActionCommand   ActionKind = "command_execution"
	ActionFileWrite ActionKind = "file_write"
	ActionFileRead  ActionKind = "file_read"
	ActionWebFetch  ActionKind = "web_fetch"
)

// Event is an item emitted by the engine during a conversation run.
// Exactly two kinds exist: ActionProposed and AssistantMessage.
type Event interface {
	isEvent()
}

// ActionProposed announces a side-effecting operation before the engine
// performs it. Content carries the literal payload (command line, file
// contents); Message is the engine's human-readable description.
type ActionProposed struct {
	Kind    ActionKind
	Content string
	Message string
}

func (ActionProposed) isEvent() {}

// AssistantMessage carries text fragments produced by the model.
type AssistantMessage struct {
	Role  string
	Parts []string
}

func (AssistantMessage) isEvent() {}

// AgentSpec describes the agent the engine should construct: which backend to
// talk to, which tools to expose, and the system prompt that sets its role.
type AgentSpec struct {
	Model        string
	APIKey       string
	BaseURL      string
	Tools        []ToolID
	SystemPrompt string
}

// Engine is the external agent-execution engine. It owns tool execution, LLM
// invocation, and retry behavior inside Run.
type Engine interface {
	CreateAgent(spec AgentSpec) (Agent, error)
}

// Agent is a configured agent handle. One agent can start many conversations.
type Agent interface {
	// StartConversation binds the agent to a workspace and an event channel.
	// The conversation takes ownership of the channel and closes it when Run
	// returns.
	StartConversation(workspace string, events chan<- Event) (Conversation, error)
}

// Conversation is a single engine run. SendMessage queues the task text;
// Run blocks until the engine finishes, the context is cancelled, or the
// engine fails.
type Conversation interface {
	SendMessage(text string) error
	Run(ctx context.Context) error
}

// BlockedAction records a validator rejection during a run.
type BlockedAction struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// DelegationResult is the outcome of one delegated sub-task.
type DelegationResult struct {
	Specialty string `json:"specialty"`
	Success   bool   `json:"success"`
	Output    string `json:"output"`
	Error     string `json:"error,omitempty"`
}

// RunResult is the single record a run produces. It is always well-formed:
// Success and Error are populated consistently even on timeout or engine
// failure, and Output is never empty on a successful run.
type RunResult struct {
	Success           bool               `json:"success"`
	Output            string             `json:"output"`
	Error             string             `json:"error,omitempty"`
	Workspace         string             `json:"workspace"`
	Mode              string             `json:"mode"`
	ToolsUsed         []string           `json:"tools_used"`
	SessionID         string             `json:"session_id,omitempty"`
	ResumedFrom       string             `json:"resumed_from,omitempty"`
	DelegatedTasks    []DelegationResult `json:"delegated_tasks,omitempty"`
	ExpertiseApplied  bool               `json:"expertise_applied"`
	LearningsCaptured bool               `json:"learnings_captured"`
	BlockedActions    []BlockedAction    `json:"blocked_actions,omitempty"`
	Duration          time.Duration      `json:"duration_ns"`
}

// ErrConfiguration marks fatal setup problems (missing credential, unknown
// backend preset). It is the only error class that aborts a run instead of
// degrading into the result record.
var ErrConfiguration = errors.New("configuration error")
