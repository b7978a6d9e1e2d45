package session

import (
	"fmt"
	"time"

	"overseer/internal/prompt"
)

// Canned request builders for the common specialized workflows. Each pairs
// a mode with a task template and a timeout sized to the workload.

// VulnerabilityScanRequest builds a full security scan of a codebase.
func VulnerabilityScanRequest(path string) RunRequest {
	return RunRequest{
		Task: fmt.Sprintf(`Perform a comprehensive security vulnerability scan of the codebase at %s.

1. Check for common vulnerability patterns (injection, XSS, auth bypass, path traversal)
2. Review dependency files for known-vulnerable versions
3. Check for hardcoded secrets and credentials
4. Review input validation and sanitization
5. Produce a prioritized findings report with severity ratings`, path),
		Workspace: path,
		Mode:      prompt.ModeVulnerabilityScan,
		Timeout:   10 * time.Minute,
	}
}

// CodeReviewRequest builds a focused review; focus may be empty for a
// general review.
func CodeReviewRequest(path, focus string) RunRequest {
	task := fmt.Sprintf("Perform a thorough code review of %s.", path)
	if focus != "" {
		task += fmt.Sprintf(" Focus on: %s.", focus)
	}
	task += `

Cover correctness, error handling, maintainability, and performance.
Report concrete findings with file and line references.`
	return RunRequest{
		Task:      task,
		Workspace: path,
		Mode:      prompt.ModeCodeReview,
		Timeout:   10 * time.Minute,
	}
}

// TestGenerationRequest builds a test-authoring task targeting the given
// coverage percentage.
func TestGenerationRequest(path string, coverageTarget int) RunRequest {
	if coverageTarget <= 0 {
		coverageTarget = 80
	}
	return RunRequest{
		Task: fmt.Sprintf(`Generate tests for the code at %s targeting %d%% coverage.

Prioritize untested critical paths, cover edge cases and error conditions,
and run the suite to confirm the new tests pass.`, path, coverageTarget),
		Workspace: path,
		Mode:      prompt.ModeTestGeneration,
		Timeout:   15 * time.Minute,
	}
}

// DocumentationRequest builds a documentation task. docType is free-form
// (e.g. "api", "readme", "architecture"); empty means general.
func DocumentationRequest(path, docType string) RunRequest {
	task := fmt.Sprintf("Create developer documentation for %s.", path)
	if docType != "" {
		task = fmt.Sprintf("Create %s documentation for %s.", docType, path)
	}
	task += "\n\nInclude working examples and keep the structure easy to navigate."
	return RunRequest{
		Task:      task,
		Workspace: path,
		Mode:      prompt.ModeDocumentation,
		Timeout:   10 * time.Minute,
	}
}

// RefactorRequest builds a refactoring task for a named target within the
// codebase.
func RefactorRequest(path, target string) RunRequest {
	return RunRequest{
		Task: fmt.Sprintf(`Refactor %s in the codebase at %s.

Preserve behavior exactly: run the existing tests before and after, and make
incremental verifiable changes rather than one large rewrite.`, target, path),
		Workspace: path,
		Mode:      prompt.ModeRefactor,
		Timeout:   15 * time.Minute,
	}
}

// DebugRequest builds a root-cause investigation for a described issue.
func DebugRequest(path, issue string) RunRequest {
	return RunRequest{
		Task: fmt.Sprintf(`Debug the following issue in %s:

%s

Reproduce it first, identify the root cause, apply a minimal fix, and verify
the fix with a regression test.`, path, issue),
		Workspace: path,
		Mode:      prompt.ModeDebug,
		Timeout:   15 * time.Minute,
	}
}
