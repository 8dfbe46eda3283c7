// Package main implements the auto-iflow CLI: the four entry points that
// drive an autonomous coding-agent task from free-text description through
// intake, scoping, phased planning/coding, post-code testing, and QA
// sign-off. The actual command implementations are split across
// cmd_*.go files by concern, mirroring the teacher's cmd/nerd layout.
//
// # File Index
//
//   - main.go               - entry point, rootCmd, global flags, init()
//   - cmd_intake.go         - intakeCmd, runIntake()
//   - cmd_plan_import.go    - planImportCmd, runPlanImport()
//   - cmd_post_code_tests.go - postCodeTestsCmd, runPostCodeTests()
//   - cmd_consilium.go      - consiliumCmd, runConsilium(), the session loop
//   - backend.go            - model backend selection shared by consilium
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/auto-iflow/autoiflow/internal/appconfig"
	"github.com/auto-iflow/autoiflow/internal/logging"
	"github.com/auto-iflow/autoiflow/internal/workspace"
)

var (
	// Global flags
	verbose    bool
	projectDir string
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "autoiflow",
	Short: "auto-iflow - autonomous coding-agent pipeline orchestrator",
	Long: `auto-iflow drives an autonomous coding-agent task from free-text
description through intake, scoping, phased planning/coding, post-code
testing, and QA sign-off, persisting all state as on-disk JSON under a
per-project .auto-iflow/ data directory.

Logic determines what ran; the agent only describes what it did.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		dir := projectDir
		if dir == "" {
			dir, _ = os.Getwd()
		} else if abs, absErr := filepath.Abs(dir); absErr == nil {
			dir = abs
		}
		projectDir = dir

		dataDir, _, err := workspace.InitDataDir(projectDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to init data directory: %v\n", err)
			return nil
		}
		debug := verbose
		if cfg, cfgErr := appconfig.Load(dataDir); cfgErr == nil && cfg.DebugMode {
			debug = true
		}
		if err := logging.Configure(dataDir, debug); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to configure file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project-dir", "", "Project directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 25*time.Minute, "Operation timeout")

	registerIntakeCmd()
	registerPlanImportCmd()
	registerPostCodeTestsCmd()
	registerConsiliumCmd()

	rootCmd.AddCommand(intakeCmd, planImportCmd, postCodeTestsCmd, consiliumCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
