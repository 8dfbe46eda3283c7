package security

// Env var names consulted by the command gate. Mirrors
// original_source/apps/backend/security/constants.py.
const (
	ProjectDirEnvVar              = "AUTO_IFLOW_PROJECT_DIR"
	SpecDirEnvVar                 = "AUTO_IFLOW_SPEC_DIR"
	TaskTypeEnvVar                = "AUTO_IFLOW_TASK_TYPE"
	NoiseProfileEnvVar            = "AUTO_IFLOW_NOISE_PROFILE"
	ManualVerificationEnvVar      = "AUTO_IFLOW_MANUAL_VERIFICATION"
	ManualVerificationSubtaskVar  = "AUTO_IFLOW_MANUAL_VERIFICATION_SUBTASK"
	BlockTestCommandsEnvVar       = "AUTO_IFLOW_BLOCK_TEST_COMMANDS"
	TestPlanEnvVar                = "AUTO_IFLOW_TEST_PLAN"
)

// AllowlistFilename is the per-project additive allowlist file.
const AllowlistFilename = ".auto-iflow-allowlist"

// ProfileFilename is the persisted SecurityProfile cache file.
const ProfileFilename = ".auto-iflow-security.json"

// NonCodeBlockedCommands are commands forbidden whenever task_type != "code":
// build/test/package/git-mutating/install commands that would otherwise let
// a non-code task silently perform code-level side effects.
var NonCodeBlockedCommands = []string{
	"npm test",
	"npm run test",
	"npm run test:backend",
	"npm run test:e2e",
	"npm run build",
	"npm run package",
	"pnpm test",
	"pnpm run test",
	"yarn test",
	"pytest",
	"go test",
	"cargo test",
	"bundle exec rspec",
	"dotnet test",
	"mvn test",
	"gradle test",
	"git commit",
	"git merge",
	"git rebase",
	"git cherry-pick",
	"./init.sh",
	"chmod +x init.sh",
}

// DefaultBlockedTestCommands is the fallback test-command deny list used
// when BlockTestCommandsEnvVar is set but no explicit test plan is active.
var DefaultBlockedTestCommands = []string{
	"npm test",
	"npm run test",
	"npm run test:backend",
	"npm run test:e2e",
	"pnpm test",
	"pnpm run test",
	"yarn test",
	"pytest",
	"go test",
	"cargo test",
	"bundle exec rspec",
	"dotnet test",
	"mvn test",
	"gradle test",
}

// BaseCommands is the always-allowed read-only/navigation command set, used
// to seed a fresh SecurityProfile when no project-specific profile exists.
var BaseCommands = []string{
	"ls", "cat", "head", "tail", "grep", "find", "pwd", "echo",
	"git", "go", "node", "npm", "npx", "python", "python3", "pip",
	"wc", "sort", "uniq", "diff", "which", "env",
}

// MCPSafeCommands is the fixed safe program-name set permitted for
// custom MCP-like auxiliary server specs accepted from config.
var MCPSafeCommands = map[string]bool{
	"npx": true, "npm": true, "node": true,
	"python": true, "python3": true, "uv": true, "uvx": true,
}

// MCPDangerousFlags are arguments that, if present on an MCP server spec's
// command line, make the spec unsafe regardless of program name.
var MCPDangerousFlags = map[string]bool{
	"-e": true, "-c": true, "-m": true, "-p": true,
	"--eval": true, "--print": true, "--input-type=module": true,
	"--experimental-loader": true, "--require": true, "-r": true,
}

// ShellInterpreterNames are program names that are never permitted as an
// MCP auxiliary server's command, since they would grant arbitrary code
// execution through the MCP transport.
var ShellInterpreterNames = map[string]bool{
	"bash": true, "sh": true, "zsh": true, "fish": true,
	"powershell": true, "pwsh": true, "cmd": true, "cmd.exe": true,
}
