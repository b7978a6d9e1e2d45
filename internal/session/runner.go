// Package session implements the Act-Learn-Reuse execution loop for
// overseer. A Runner wraps one external engine invocation with expertise
// reuse, action safety gating, session persistence, and learning capture;
// the SubAgentManager in this package handles delegation to specialist
// configurations.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"overseer/internal/config"
	"overseer/internal/expertise"
	"overseer/internal/logging"
	"overseer/internal/prompt"
	"overseer/internal/store"
	"overseer/internal/types"
)

// eventBuffer bounds the engine-to-orchestrator event channel. Emission
// order is preserved; the engine blocks only if the drain loop falls this
// far behind.
const eventBuffer = 256

// outputSentinel is the output value for a successful run that captured no
// messages, so success never pairs with empty output.
const outputSentinel = "Task completed"

// RunRequest describes one task execution. Zero values mean: current
// directory, developer mode, configured default timeout, security and
// learning both enabled.
type RunRequest struct {
	Task      string
	Workspace string
	Mode      prompt.Mode
	Timeout   time.Duration

	// Persist enables session persistence; SessionID overrides the
	// fingerprint-derived ID when resuming explicitly.
	Persist   bool
	SessionID string

	// Delegate makes the sub-agent manager available to the task.
	// Delegation is never triggered automatically.
	Delegate bool

	// Opt-outs. The zero value keeps the protective defaults on.
	DisableSecurity bool
	DisableLearning bool
}

// Runner orchestrates task executions against an external engine.
type Runner struct {
	engine    types.Engine
	expertise *expertise.Store
	sessions  *store.SessionStore
	cfg       config.Config
	delegator *SubAgentManager
}

// NewRunner builds a Runner. The session store may be nil when persistence
// is never requested.
func NewRunner(engine types.Engine, exp *expertise.Store, sessions *store.SessionStore, cfg config.Config) *Runner {
	return &Runner{
		engine:    engine,
		expertise: exp,
		sessions:  sessions,
		cfg:       cfg,
	}
}

// Delegator returns the sub-agent manager, creating it on first use.
// Delegations performed through it are reported in the next Run result.
func (r *Runner) Delegator() *SubAgentManager {
	if r.delegator == nil {
		r.delegator = NewSubAgentManager(r.engine, r.cfg)
	}
	return r.delegator
}

// Run executes a task through the Act-Learn-Reuse lifecycle and returns the
// structured result. The error return is non-nil only for configuration
// problems; engine timeouts and failures degrade into the result record.
func (r *Runner) Run(ctx context.Context, req RunRequest) (types.RunResult, error) {
	start := time.Now()

	workspace := req.Workspace
	if workspace == "" {
		if wd, err := os.Getwd(); err == nil {
			workspace = wd
		}
	}
	mode := req.Mode
	if mode == "" {
		mode = prompt.ModeDeveloper
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}

	result := types.RunResult{
		Workspace: workspace,
		Mode:      string(mode),
		ToolsUsed: []string{},
	}

	// Short correlation ID tying this run's log lines together across
	// categories. Distinct from the session fingerprint, which is stable
	// across retries of the same task.
	runID := uuid.NewString()[:8]

	learning := !req.DisableLearning
	logging.Run("[%s] Starting run: mode=%s workspace=%s timeout=%s learning=%v security=%v",
		runID, mode, workspace, timeout, learning, !req.DisableSecurity)

	// Reuse phase: condition the task on accumulated expertise.
	expertiseBlock := ""
	if learning {
		expertiseBlock = r.expertise.Load(string(mode))
		if expertiseBlock != "" {
			result.ExpertiseApplied = true
			logging.RunDebug("Applying %d bytes of accumulated expertise", len(expertiseBlock))
		}
	}

	// Resumption detection: informational only, never short-circuits.
	if req.Persist {
		id := req.SessionID
		if id == "" {
			id = store.Fingerprint(req.Task, workspace)
		}
		result.SessionID = id

		if r.sessions != nil {
			if prior, ok, err := r.sessions.Load(id); err != nil {
				logging.Get(logging.CategorySession).Warn("Failed to check prior session %s: %v", id, err)
			} else if ok {
				result.ResumedFrom = prior.Timestamp.UTC().Format(time.RFC3339)
				logging.Session("Resuming session %s (prior attempt at %s)", id, result.ResumedFrom)
			}
		}
	}

	// Backend resolution failures are fatal configuration errors.
	spec, err := r.cfg.Primary.Resolve()
	if err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result, err
	}
	spec.SystemPrompt = prompt.ExpertPrompt(mode)
	spec.Tools = prompt.ToolsFor(mode)

	if req.Delegate {
		r.Delegator()
	}

	// Act phase.
	r.execute(ctx, spec, workspace, buildTaskText(req.Task, mode, expertiseBlock, learning), timeout, !req.DisableSecurity, &result)

	// Session persistence happens after execution regardless of success.
	if req.Persist && r.sessions != nil && result.SessionID != "" {
		rec := store.SessionRecord{
			ID:        result.SessionID,
			Task:      req.Task,
			Mode:      string(mode),
			Workspace: workspace,
			Timestamp: time.Now().UTC(),
			Success:   result.Success,
			Output:    result.Output,
			ToolsUsed: result.ToolsUsed,
		}
		if err := r.sessions.Save(rec); err != nil {
			// Storage failures never flip a run's outcome.
			logging.Get(logging.CategorySession).Warn("Failed to persist session %s: %v", rec.ID, err)
		}
	}

	// Learn phase: only on success with learning enabled.
	if learning && result.Success {
		if learnings := expertise.ExtractLearnings(result.Output); learnings != "" {
			if err := r.expertise.Update(string(mode), learnings, req.Task, true); err != nil {
				logging.Get(logging.CategoryExpertise).Warn("Failed to update expertise for %s: %v", mode, err)
			} else {
				result.LearningsCaptured = true
			}
		}
	}

	if r.delegator != nil {
		result.DelegatedTasks = r.delegator.TakeResults()
	}

	result.Duration = time.Since(start)
	logging.Run("[%s] Run finished: success=%v output=%d bytes blocked=%d tools=%d in %s",
		runID, result.Success, len(result.Output), len(result.BlockedActions), len(result.ToolsUsed), result.Duration)
	return result, nil
}

// execute drives the engine conversation under a wall-clock timeout and
// fills the execution-phase fields of the result.
func (r *Runner) execute(ctx context.Context, spec types.AgentSpec, workspace, taskText string, timeout time.Duration, security bool, result *types.RunResult) {
	agent, err := r.engine.CreateAgent(spec)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create agent: %v", err)
		result.Output = outputSentinel
		return
	}

	events := make(chan types.Event, eventBuffer)
	conv, err := agent.StartConversation(workspace, events)
	if err != nil {
		result.Error = fmt.Sprintf("failed to start conversation: %v", err)
		result.Output = outputSentinel
		return
	}

	if err := conv.SendMessage(taskText); err != nil {
		result.Error = fmt.Sprintf("failed to send task: %v", err)
		result.Output = outputSentinel
		return
	}

	col := newCollector(security)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The drain goroutine is the only consumer of the event channel; the
	// conversation closes the channel when Run returns.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range events {
			col.handle(ev)
		}
	}()

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- conv.Run(runCtx)
	}()

	select {
	case err := <-engineDone:
		switch {
		case err == nil:
			result.Success = true
			<-drained
		case errors.Is(err, context.DeadlineExceeded):
			result.Error = fmt.Sprintf("agent timed out after %s", timeout)
		default:
			result.Error = err.Error()
		}
	case <-runCtx.Done():
		// Cancellation is cooperative: stop waiting for the worker, keep
		// whatever output was accumulated so far.
		result.Error = fmt.Sprintf("agent timed out after %s", timeout)
	}

	parts, tools, blocked := col.snapshot()
	if len(parts) > 0 {
		result.Output = strings.Join(parts, "\n")
	} else {
		result.Output = outputSentinel
	}
	result.ToolsUsed = tools
	result.BlockedActions = blocked
}

// buildTaskText assembles the enriched task: mode marker, original task,
// expertise block, and the self-reflection prompt when learning is on.
func buildTaskText(task string, mode prompt.Mode, expertiseBlock string, learning bool) string {
	var b strings.Builder

	if mode != prompt.ModeDeveloper {
		fmt.Fprintf(&b, "[MODE: %s]\n\n", strings.ToUpper(string(mode)))
	}
	b.WriteString(task)

	if expertiseBlock != "" {
		b.WriteString("\n\n")
		b.WriteString(expertiseBlock)
	}

	if learning {
		if reflect := prompt.SelfImprovePrompt(mode); reflect != "" {
			b.WriteString("\n\n---\n")
			b.WriteString(reflect)
		}
	}

	return b.String()
}
