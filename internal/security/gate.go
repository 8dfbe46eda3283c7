package security

import (
	"fmt"
	"strings"
)

// ToolCall is the payload the gate validates. Only Bash/Shell calls carry a
// non-empty Command; every other tool name is allowed unconditionally.
type ToolCall struct {
	ToolName string
	Command  string
}

// GateContext is the implicit process context the gate consults: no I/O
// happens here, these are plain values the caller has already resolved.
type GateContext struct {
	ManualVerification    bool
	ManualVerificationSub string
	BlockTestCommands     bool
	TestPlan              []string
	TaskType              string
	Profile               *Profile
}

// Decision is the gate's verdict: either Allow (zero value) or a Block with
// a human-readable Reason.
type Decision struct {
	Block  bool
	Reason string
}

func allow() Decision { return Decision{} }

func block(format string, args ...interface{}) Decision {
	return Decision{Block: true, Reason: fmt.Sprintf(format, args...)}
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// segmentMatchesPlan reports whether segment equals, or is a
// whitespace-delimited prefix/suffix of, any command in plan.
func segmentMatchesPlan(segment string, plan []string) bool {
	segNorm := normalizeWhitespace(segment)
	if segNorm == "" {
		return false
	}
	for _, cmd := range plan {
		cmdNorm := normalizeWhitespace(cmd)
		if cmdNorm == "" {
			continue
		}
		if segNorm == cmdNorm {
			return true
		}
		if strings.HasPrefix(segNorm, cmdNorm+" ") {
			return true
		}
		if strings.HasPrefix(cmdNorm, segNorm+" ") {
			return true
		}
	}
	return false
}

// Gate is the single synchronous enforcement point invoked before every
// shell tool call. It is a pure function of call and ctx - it never reads
// the filesystem, env vars, or the clock - matching spec.md §4.B's
// invariant that the gate "must never perform I/O." Callers resolve
// GateContext from the environment (env vars, profile file, task intake)
// before invoking Gate.
func Gate(call ToolCall, ctx GateContext) Decision {
	if call.ToolName != "Bash" && call.ToolName != "Shell" {
		return allow()
	}

	if ctx.ManualVerification {
		suffix := ""
		if ctx.ManualVerificationSub != "" {
			suffix = fmt.Sprintf(" for subtask %s", ctx.ManualVerificationSub)
		}
		return block("Manual verification mode%s: command execution disabled", suffix)
	}

	command := strings.TrimSpace(call.Command)
	if command == "" {
		return allow()
	}

	segments := SplitCommandSegments(command)

	if ctx.BlockTestCommands {
		plan := ctx.TestPlan
		if len(plan) == 0 {
			plan = DefaultBlockedTestCommands
		}
		for _, seg := range segments {
			if segmentMatchesPlan(seg, plan) {
				return block("Test commands are reserved for Post-Code Tests. Run tests only after coding completes.")
			}
		}
	}

	if ctx.TaskType != "" && ctx.TaskType != "code" {
		for _, seg := range segments {
			if segmentMatchesPlan(seg, NonCodeBlockedCommands) {
				return block("Non-code task: command execution limited to read-only operations.")
			}
		}
	}

	profile := ctx.Profile
	if profile == nil {
		profile = NewProfile(BaseCommands, nil)
	}

	commands := ExtractCommands(command)
	if len(commands) == 0 {
		return block("Could not parse command for security validation: %s", command)
	}

	allowed := profile.AllAllowed()
	for _, cmd := range commands {
		if !allowed[cmd] {
			return block("Command %q is not in the allowlist for this project", cmd)
		}

		if validator, ok := profile.Validators[cmd]; ok {
			segment := GetCommandForValidation(cmd, segments)
			if segment == "" {
				segment = command
			}
			if ok, reason := validator(segment); !ok {
				return block("%s", reason)
			}
		}
	}

	return allow()
}

// ValidateMCPServerSpec applies the additional rules for custom MCP-like
// auxiliary server specs accepted from config (spec.md §4.B step 8): the
// command must have no path separator, must be in the fixed safe set, must
// carry none of the dangerous flags, and must not itself be a shell
// interpreter.
func ValidateMCPServerSpec(program string, args []string) (bool, string) {
	if strings.ContainsAny(program, "/\\") {
		return false, fmt.Sprintf("MCP server command %q must not contain a path separator", program)
	}
	if ShellInterpreterNames[program] {
		return false, fmt.Sprintf("MCP server command %q is a shell interpreter and is not permitted", program)
	}
	if !MCPSafeCommands[program] {
		return false, fmt.Sprintf("MCP server command %q is not in the safe command set", program)
	}
	for _, a := range args {
		if MCPDangerousFlags[a] {
			return false, fmt.Sprintf("MCP server argument %q is in the dangerous flag set", a)
		}
	}
	return true, ""
}
