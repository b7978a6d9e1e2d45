// Package prompt holds the closed set of expert operating modes and their
// static prompt and tool tables. Everything here is immutable configuration;
// behavior never varies at runtime.
package prompt

import "overseer/internal/types"

// Mode is an expert operating mode. The set is closed; unknown strings are
// rejected by Valid.
type Mode string

const (
	ModeDeveloper         Mode = "developer"
	ModeVulnerabilityScan Mode = "vulnerability_scan"
	ModeCodeReview        Mode = "code_review"
	ModeTestGeneration    Mode = "test_generation"
	ModeDocumentation     Mode = "documentation"
	ModeRefactor          Mode = "refactor"
	ModeDebug             Mode = "debug"
	ModeMigrate           Mode = "migrate"
	ModeOptimize          Mode = "optimize"
	ModeResearch          Mode = "research"
)

// Modes returns all known modes in declaration order.
func Modes() []Mode {
	return []Mode{
		ModeDeveloper,
		ModeVulnerabilityScan,
		ModeCodeReview,
		ModeTestGeneration,
		ModeDocumentation,
		ModeRefactor,
		ModeDebug,
		ModeMigrate,
		ModeOptimize,
		ModeResearch,
	}
}

// Valid reports whether s names a known mode.
func Valid(s string) bool {
	for _, m := range Modes() {
		if Mode(s) == m {
			return true
		}
	}
	return false
}

// expertPrompts are the system prompts that set each mode's role.
var expertPrompts = map[Mode]string{
	ModeVulnerabilityScan: `You are a senior security engineer specializing in vulnerability assessment.
Your task is to scan code for security vulnerabilities including:
- SQL injection, XSS, CSRF, command injection
- Authentication/authorization flaws
- Insecure cryptography
- Hardcoded secrets and credentials
- Dependency vulnerabilities
- OWASP Top 10 issues

For each finding, provide:
1. Severity (Critical/High/Medium/Low)
2. Location (file:line)
3. Description of the vulnerability
4. Proof of concept (if applicable)
5. Remediation guidance with code fix

Format output as structured JSON for automation.`,

	ModeCodeReview: `You are a principal software engineer conducting a thorough code review.
Analyze the code for:
- Code quality and maintainability
- Performance issues and optimizations
- Error handling and edge cases
- API design and interface clarity
- Test coverage gaps
- Documentation completeness
- Adherence to best practices

Provide actionable feedback with specific line references.
Suggest concrete improvements with example code where appropriate.`,

	ModeTestGeneration: `You are a senior QA engineer and test automation specialist.
Generate comprehensive tests including:
- Unit tests for all public functions/methods
- Integration tests for component interactions
- Edge case tests (null, empty, boundary values)
- Error path tests (exceptions, failures)
- Performance/stress tests where appropriate

Use appropriate testing frameworks based on the codebase.
Aim for 90%+ code coverage. Include assertions for both success and failure cases.`,

	ModeDocumentation: `You are a technical writer creating developer documentation.
Generate comprehensive documentation including:
- README with project overview, installation, usage
- API documentation with all endpoints/functions
- Architecture diagrams (in Mermaid format)
- Code comments for complex logic
- Changelog entries for changes
- Example usage and tutorials

Follow documentation best practices: clear and concise, with examples.`,

	ModeRefactor: `You are a senior architect performing strategic code refactoring.
Analyze and refactor code to:
- Reduce complexity and improve readability
- Extract reusable components/functions
- Apply appropriate design patterns
- Improve type safety and interfaces
- Eliminate code duplication (DRY)
- Optimize performance bottlenecks

Maintain backward compatibility where possible. Document breaking changes.`,

	ModeDebug: `You are an expert debugger and performance analyst.
Systematically diagnose issues:
1. Reproduce the problem
2. Isolate the root cause
3. Analyze stack traces and logs
4. Test hypotheses with targeted debugging
5. Implement and verify the fix
6. Add regression tests

Provide a clear explanation of what went wrong and why the fix works.`,

	ModeMigrate: `You are a migration specialist handling code/dependency upgrades.
Plan and execute migrations:
- Analyze current dependencies and their versions
- Identify breaking changes in target versions
- Create migration plan with phases
- Update code for API changes
- Run tests at each phase
- Document migration steps and rollback procedures

Minimize disruption while maximizing improvements.`,

	ModeOptimize: `You are a performance optimization expert.
Identify and fix performance issues:
- Profile code to find bottlenecks
- Optimize algorithms (reduce complexity)
- Improve memory usage
- Add caching where beneficial
- Parallelize where possible
- Optimize database queries

Measure before/after performance and document improvements.`,
}

// selfImprovePrompts ask the agent to report learnings after the task so the
// Learn phase has something to mine. Only modes listed here get the appended
// reflection prompt.
var selfImprovePrompts = map[Mode]string{
	ModeDeveloper: `After completing this task, reflect on what you learned:
- What patterns or approaches worked well?
- What common pitfalls did you encounter?
- What code templates could be reused?
- What insights about this codebase are valuable?

Format your learnings as markdown sections that can be appended to an expertise file.`,

	ModeVulnerabilityScan: `After this security scan, document your learnings:
- What new vulnerability patterns did you discover?
- Were there any false positives to note?
- What remediation approaches were most effective?
- What codebase-specific security risks exist?

Format as markdown for expertise accumulation.`,

	ModeCodeReview: `After this code review, capture your insights:
- What quality patterns indicate well-written code here?
- What anti-patterns are common in this codebase?
- What style preferences should be remembered?
- What performance issues recur?

Format as markdown for expertise accumulation.`,

	ModeTestGeneration: `After generating tests, document what you learned:
- What testing patterns work well for this codebase?
- What edge cases should always be tested?
- What mocking strategies were effective?
- What areas typically lack coverage?

Format as markdown for expertise accumulation.`,

	ModeDocumentation: `After generating documentation, note your learnings:
- What documentation standards work for this project?
- What example formats communicate best?
- What API documentation patterns are effective?
- Who are the documentation consumers?

Format as markdown for expertise accumulation.`,

	ModeRefactor: `After refactoring, capture your insights:
- What refactoring patterns improved the code?
- What complexity reduction approaches worked?
- What transformations are safe vs risky?
- What architectural patterns exist in this codebase?

Format as markdown for expertise accumulation.`,

	ModeDebug: `After debugging this issue, document your learnings:
- What bug patterns are common here?
- What root cause analysis approaches worked?
- What debugging techniques were effective?
- What error signatures indicate specific problems?

Format as markdown for expertise accumulation.`,

	ModeMigrate: `After this migration, capture your insights:
- What migration patterns worked well?
- What breaking changes were encountered?
- What compatibility layers were needed?
- What rollback strategies are safe?

Format as markdown for expertise accumulation.`,

	ModeOptimize: `After optimization, document your learnings:
- What performance patterns work for this codebase?
- What bottleneck signatures indicate problems?
- What optimization techniques were effective?
- What trade-offs should be remembered?

Format as markdown for expertise accumulation.`,
}

// ExpertPrompt returns the system prompt for a mode. Developer and research
// modes run with the engine's default behavior (empty prompt).
func ExpertPrompt(mode Mode) string {
	return expertPrompts[mode]
}

// SelfImprovePrompt returns the reflection prompt appended when learning is
// enabled, or empty if the mode has none.
func SelfImprovePrompt(mode Mode) string {
	return selfImprovePrompts[mode]
}

// ToolsFor returns the tool set the engine should expose for a mode.
// Terminal and file editor are available everywhere; the task tracker is
// added for long-horizon modes and web access for research-heavy modes.
func ToolsFor(mode Mode) []types.ToolID {
	tools := []types.ToolID{types.ToolTerminal, types.ToolFileEditor}

	switch mode {
	case ModeDeveloper, ModeRefactor, ModeMigrate, ModeDebug:
		tools = append(tools, types.ToolTaskTracker)
	case ModeDocumentation, ModeResearch:
		tools = append(tools, types.ToolWeb)
	}

	return tools
}
