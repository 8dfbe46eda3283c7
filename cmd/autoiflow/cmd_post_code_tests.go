package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/auto-iflow/autoiflow/internal/appconfig"
	"github.com/auto-iflow/autoiflow/internal/posttest"
	"github.com/auto-iflow/autoiflow/internal/scope"
	"github.com/auto-iflow/autoiflow/internal/workspace"
)

var (
	postCodeSpecDir    string
	postCodeProjectDir string
	postCodeForce      bool
)

// postCodeTestsCmd resolves and runs the test plan for a just-coded spec
// directory, writing and printing the resulting post_code_tests.json.
var postCodeTestsCmd = &cobra.Command{
	Use:   "post-code-tests",
	Short: "Run the resolved test plan for a spec directory",
	RunE:  runPostCodeTests,
}

func registerPostCodeTestsCmd() {
	postCodeTestsCmd.Flags().StringVar(&postCodeSpecDir, "spec-dir", "", "Spec working directory (required)")
	postCodeTestsCmd.Flags().StringVar(&postCodeProjectDir, "project-dir", "", "Project directory (required)")
	postCodeTestsCmd.Flags().BoolVar(&postCodeForce, "force", false, "Re-run even if a report already exists at the current HEAD")
	postCodeTestsCmd.MarkFlagRequired("spec-dir")
	postCodeTestsCmd.MarkFlagRequired("project-dir")
}

func gitHead(dir string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func runPostCodeTests(cmd *cobra.Command, args []string) error {
	intake, err := scope.LoadTaskIntake(postCodeSpecDir)
	if err != nil {
		return fmt.Errorf("post-code-tests: loading task intake: %w", err)
	}
	contract := scope.LoadScopeContract(postCodeSpecDir)

	head := gitHead(postCodeProjectDir)
	prior, _ := posttest.LoadReport(postCodeSpecDir)
	taskType := ""
	if intake != nil {
		taskType = intake.TaskType
	}
	if !postCodeForce && !posttest.ShouldRun(taskType, prior, head, postCodeForce) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(prior)
	}

	dataDir, _, err := workspace.InitDataDir(postCodeProjectDir)
	if err != nil {
		return fmt.Errorf("post-code-tests: initializing data directory: %w", err)
	}
	cfg, err := appconfig.Load(dataDir)
	if err != nil {
		return fmt.Errorf("post-code-tests: loading config: %w", err)
	}

	entries := posttest.ResolveTestPlan(intake, contract)
	plan := posttest.BuildPlan(entries, cfg.PostTest.SmartCap)

	runnerCfg := posttest.RunnerConfig{
		PerCommandTimeout: time.Duration(cfg.PostTest.DefaultTimeoutSec) * time.Second,
		OutputLimit:       cfg.PostTest.DefaultOutputCap,
	}
	if runnerCfg.PerCommandTimeout <= 0 {
		runnerCfg = posttest.DefaultRunnerConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report := posttest.Run(ctx, plan, postCodeProjectDir, head, runnerCfg, time.Now())
	if err := posttest.WriteReport(postCodeSpecDir, &report); err != nil {
		return fmt.Errorf("post-code-tests: writing report: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
