// Package safety gates agent-proposed actions before the engine executes
// them. Validation is a pure function over the action's literal content: no
// state, no I/O, safe to call at arbitrary frequency.
package safety

import (
	"fmt"
	"strings"

	"overseer/internal/types"
)

// Verdict is the result of validating a single proposed action.
type Verdict struct {
	Safe   bool
	Reason string
}

// destructivePatterns block unconditionally wherever they appear in the
// content, regardless of casing. These are policy constants: changing them
// changes which agent actions survive a run.
var destructivePatterns = []string{
	"rm -rf /",
	"rm -rf /*",
	"sudo rm",
	":(){:|:&};:", // fork bomb
	"> /dev/sda",
	"mkfs.",
	"dd if=",
	"curl | bash",
	"wget | sh",
}

// sensitivePaths block only when the content also mutates. Reading a
// credential file is allowed; writing or deleting one is not.
var sensitivePaths = []string{
	"/etc/passwd",
	"/etc/shadow",
	"~/.ssh",
	"~/.aws",
	".env",
	"credentials",
	"secrets",
}

// mutationVerbs mark content that writes, deletes, truncates, or redirects.
var mutationVerbs = []string{
	"write",
	"delete",
	"rm",
	"truncate",
	">",
}

// Validate classifies a proposed action as safe or blocked. Destructive
// patterns are checked before sensitive paths, so ordering is deterministic
// and the first matching rule wins.
func Validate(kind types.ActionKind, content string) Verdict {
	lower := strings.ToLower(content)

	for _, pattern := range destructivePatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return Verdict{
				Safe:   false,
				Reason: fmt.Sprintf("blocked dangerous pattern: %s", pattern),
			}
		}
	}

	for _, path := range sensitivePaths {
		if !strings.Contains(lower, strings.ToLower(path)) {
			continue
		}
		for _, verb := range mutationVerbs {
			if strings.Contains(lower, verb) {
				return Verdict{
					Safe:   false,
					Reason: fmt.Sprintf("blocked write to sensitive path: %s", path),
				}
			}
		}
	}

	return Verdict{Safe: true, Reason: "OK"}
}
