package security

import "strings"

// gitDangerousSubcommands are git operations that rewrite history or touch
// remotes in ways the allowlist alone should not green-light blindly.
var gitDangerousSubcommands = map[string]bool{
	"push":       true,
	"reset":      true,
	"rebase":     true,
	"cherry-pick": true,
	"filter-branch": true,
}

func validateGit(segment string) (bool, string) {
	tokens := tokenize(segment)
	if len(tokens) < 2 {
		return true, ""
	}
	sub := tokens[1]
	if sub == "reset" {
		for _, t := range tokens[2:] {
			if t == "--hard" {
				return false, "git reset --hard is blocked: discards uncommitted work"
			}
		}
	}
	if sub == "push" {
		for _, t := range tokens[2:] {
			if t == "--force" || t == "-f" || t == "--force-with-lease" {
				return false, "git push --force is blocked: can overwrite remote history"
			}
		}
	}
	if sub == "clean" {
		for _, t := range tokens[2:] {
			if t == "-f" || t == "-fd" || t == "-fdx" {
				return false, "git clean -f is blocked: irreversibly deletes untracked files"
			}
		}
	}
	return true, ""
}

func validateNpm(segment string) (bool, string) {
	tokens := tokenize(segment)
	for _, t := range tokens {
		if t == "install" || t == "i" {
			for _, t2 := range tokens {
				if t2 == "-g" || t2 == "--global" {
					return false, "global package installs are blocked"
				}
			}
		}
	}
	return true, ""
}

func validateRm(segment string) (bool, string) {
	tokens := tokenize(segment)
	hasForce, hasRecursive := false, false
	for _, t := range tokens[1:] {
		if strings.HasPrefix(t, "-") {
			if strings.Contains(t, "f") {
				hasForce = true
			}
			if strings.Contains(t, "r") || strings.Contains(t, "R") {
				hasRecursive = true
			}
		}
	}
	if hasForce && hasRecursive {
		return false, "rm -rf is blocked: use scoped deletes instead"
	}
	return true, ""
}

// DefaultValidators returns the per-command validator table consulted by
// Gate after a command passes the base allowlist check.
func DefaultValidators() map[string]Validator {
	return map[string]Validator{
		"git": validateGit,
		"npm": validateNpm,
		"rm":  validateRm,
	}
}
