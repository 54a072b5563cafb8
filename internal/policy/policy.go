// Package policy classifies command strings before execution. It is a
// textual heuristic layer: the block tier rejects patterns with
// near-zero legitimate use, the warn tier flags destructive or
// privileged commands but lets them run. It is not a security boundary.
package policy

import "strings"

// Verdict is the outcome of classifying a command.
type Verdict int

const (
	Allowed Verdict = iota
	Warn
	Blocked
)

func (v Verdict) String() string {
	switch v {
	case Blocked:
		return "blocked"
	case Warn:
		return "warn"
	default:
		return "allowed"
	}
}

// Classification pairs a verdict with the rule that produced it.
type Classification struct {
	Verdict Verdict
	// Pattern is the rule that matched; empty for Allowed.
	Pattern string
}

// blockedPatterns are catastrophic commands rejected outright.
var blockedPatterns = []string{
	"rm -rf /",
	"rm -rf /*",
	"rm -fr /",
	"mkfs",
	"dd if=/dev/zero of=/dev/",
	":(){ :|:& };:",
	"> /dev/sda",
	"mv /* /dev/null",
	"wget -o- | sh",
	"curl | sh",
}

// privilegedPatterns mark privilege escalation; the command still runs
// but the result carries a warning.
var privilegedPatterns = []string{
	"sudo",
	"doas",
	"su -",
	"pkexec",
}

// destructivePatterns mark scoped-but-destructive commands; warn, not block.
var destructivePatterns = []string{
	"rm -rf",
	"rm -fr",
	"chmod 777",
	"chown",
	"dd ",
	"fdisk",
	"shutdown",
	"reboot",
	"init ",
}

// Classify evaluates the rule tiers in order and returns the first match.
func Classify(command string) Classification {
	normalized := strings.ToLower(strings.TrimSpace(command))

	for _, p := range blockedPatterns {
		if matches(normalized, p) {
			return Classification{Verdict: Blocked, Pattern: p}
		}
	}
	for _, p := range privilegedPatterns {
		if matchesToken(normalized, p) {
			return Classification{Verdict: Warn, Pattern: p}
		}
	}
	for _, p := range destructivePatterns {
		if matches(normalized, p) {
			return Classification{Verdict: Warn, Pattern: p}
		}
	}
	return Classification{Verdict: Allowed}
}

// matches reports whether the pattern occurs anywhere in the command.
func matches(command, pattern string) bool {
	return strings.Contains(command, pattern)
}

// matchesToken reports whether the pattern appears as a whole token, so
// "sudo make" matches but "visudoers.txt" does not.
func matchesToken(command, pattern string) bool {
	for _, tok := range strings.Fields(command) {
		if tok == pattern {
			return true
		}
	}
	// Multi-word patterns ("su -") fall back to substring matching.
	return strings.Contains(pattern, " ") && strings.Contains(command, pattern)
}
