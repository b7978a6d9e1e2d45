package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"overseer/internal/config"
	"overseer/internal/logging"
	"overseer/internal/prompt"
	"overseer/internal/types"
)

// specialistModes maps a delegation specialty to the mode whose expert
// prompt and tool set the specialist agent runs with. Unknown specialties
// fall back to developer.
var specialistModes = map[string]prompt.Mode{
	"security":    prompt.ModeVulnerabilityScan,
	"testing":     prompt.ModeTestGeneration,
	"docs":        prompt.ModeDocumentation,
	"performance": prompt.ModeOptimize,
}

// DelegationRequest is one unit of work for DelegateAll.
type DelegationRequest struct {
	Specialty string
	Task      string
	Workspace string
	Timeout   time.Duration
}

// SubAgentManager creates specialist agents on demand, caches them per
// specialty, and records every delegation outcome for the parent run's
// result. All methods are safe for concurrent use.
type SubAgentManager struct {
	mu          sync.Mutex
	engine      types.Engine
	cfg         config.Config
	specialists map[string]types.Agent
	results     []types.DelegationResult
}

func NewSubAgentManager(engine types.Engine, cfg config.Config) *SubAgentManager {
	return &SubAgentManager{
		engine:      engine,
		cfg:         cfg,
		specialists: make(map[string]types.Agent),
	}
}

// GetSpecialist returns the cached agent for a specialty, creating it on
// first use. Specialists run on the alternate backend when one resolves,
// keeping the primary free for the parent task.
func (m *SubAgentManager) GetSpecialist(specialty string) (types.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if agent, ok := m.specialists[specialty]; ok {
		return agent, nil
	}

	mode, ok := specialistModes[specialty]
	if !ok {
		mode = prompt.ModeDeveloper
	}

	spec, err := m.cfg.ResolveAlternate()
	if err != nil {
		return nil, err
	}
	spec.SystemPrompt = prompt.ExpertPrompt(mode)
	spec.Tools = prompt.ToolsFor(mode)

	agent, err := m.engine.CreateAgent(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s specialist: %w", specialty, err)
	}

	m.specialists[specialty] = agent
	logging.Delegation("Created %s specialist (mode=%s, model=%s)", specialty, mode, spec.Model)
	return agent, nil
}

// Delegate runs one task on the given specialty's agent under its own
// timeout. Failures and timeouts are captured in the returned result, never
// propagated; the parent run proceeds regardless.
func (m *SubAgentManager) Delegate(ctx context.Context, specialty, task, workspace string, timeout time.Duration) types.DelegationResult {
	if timeout <= 0 {
		timeout = m.cfg.DelegateTimeout
	}
	res := types.DelegationResult{Specialty: specialty}
	defer m.record(&res)

	agent, err := m.GetSpecialist(specialty)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	events := make(chan types.Event, eventBuffer)
	conv, err := agent.StartConversation(workspace, events)
	if err != nil {
		res.Error = fmt.Sprintf("failed to start %s conversation: %v", specialty, err)
		return res
	}
	if err := conv.SendMessage(task); err != nil {
		res.Error = fmt.Sprintf("failed to send task to %s specialist: %v", specialty, err)
		return res
	}

	col := newCollector(true)

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range events {
			col.handle(ev)
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- conv.Run(dctx)
	}()

	select {
	case err := <-done:
		if err == nil {
			res.Success = true
			<-drained
		} else {
			res.Error = err.Error()
		}
	case <-dctx.Done():
		res.Error = fmt.Sprintf("sub-agent timed out after %s", timeout)
	}

	parts, _, _ := col.snapshot()
	res.Output = strings.Join(parts, "\n")

	logging.Delegation("Delegation to %s finished: success=%v output=%d bytes", specialty, res.Success, len(res.Output))
	return res
}

// DelegateAll runs the given delegations concurrently and returns results
// in request order. Individual failures do not cancel siblings.
func (m *SubAgentManager) DelegateAll(ctx context.Context, reqs []DelegationRequest) []types.DelegationResult {
	results := make([]types.DelegationResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = m.Delegate(gctx, req.Specialty, req.Task, req.Workspace, req.Timeout)
			return nil
		})
	}
	g.Wait()
	return results
}

func (m *SubAgentManager) record(res *types.DelegationResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, *res)
}

// TakeResults returns and clears the delegation outcomes recorded since the
// last call.
func (m *SubAgentManager) TakeResults() []types.DelegationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.results
	m.results = nil
	return out
}
