package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/auto-iflow/autoiflow/internal/appconfig"
	"github.com/auto-iflow/autoiflow/internal/consilium"
	"github.com/auto-iflow/autoiflow/internal/logging"
	"github.com/auto-iflow/autoiflow/internal/models"
	"github.com/auto-iflow/autoiflow/internal/projectindex"
	"github.com/auto-iflow/autoiflow/internal/scope"
	"github.com/auto-iflow/autoiflow/internal/workspace"
)

var (
	intakeDescription string
	intakeModel       string
	intakeAttachments string
	intakeAnswers     string
	intakeReanalyze   bool
	intakeV2          bool
)

// intakeCmd accepts a free-text task description and produces a written
// TaskIntake, printing it as JSON on stdout.
var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Classify a task description into a task_intake.json",
	RunE:  runIntake,
}

func registerIntakeCmd() {
	intakeCmd.Flags().StringVar(&intakeDescription, "description", "", "Free-text task description (required)")
	intakeCmd.Flags().StringVar(&intakeModel, "model", "", "Model id override for the intake clarification pass")
	intakeCmd.Flags().StringVar(&intakeAttachments, "attachments", "", "JSON or CSV list of attachment paths")
	intakeCmd.Flags().StringVar(&intakeAnswers, "answers", "", "JSON object answering prior clarifying questions")
	intakeCmd.Flags().BoolVar(&intakeReanalyze, "reanalyze", false, "Force re-derivation even if task_intake.json exists")
	intakeCmd.Flags().BoolVar(&intakeV2, "intake-v2", false, "Accepted but ignored: intake runs the same flow either way")
	intakeCmd.MarkFlagRequired("description")
}

func parseAttachments(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runIntake(cmd *cobra.Command, args []string) error {
	log := logging.Get(logging.CategoryScope)
	dataDir, _, err := workspace.InitDataDir(projectDir)
	if err != nil {
		return fmt.Errorf("intake: initializing data directory: %w", err)
	}
	cfg, err := appconfig.Load(dataDir)
	if err != nil {
		return fmt.Errorf("intake: loading config: %w", err)
	}

	specDir, existed, err := workspace.LatestSpecDirectory(dataDir)
	if err != nil {
		return fmt.Errorf("intake: resolving latest spec directory: %w", err)
	}
	if !existed || intakeReanalyze {
		alloc, err := workspace.AllocatePendingSpecDirectory(dataDir)
		if err != nil {
			return fmt.Errorf("intake: allocating spec directory: %w", err)
		}
		specDir = alloc
	}

	req := &scope.Requirements{
		TaskDescription: intakeDescription,
		InputFiles:      parseAttachments(intakeAttachments),
	}
	if intakeAnswers != "" {
		var answered map[string]string
		if jerr := json.Unmarshal([]byte(intakeAnswers), &answered); jerr == nil && len(answered) > 0 {
			var notes []string
			for q, a := range answered {
				notes = append(notes, fmt.Sprintf("%s -> %s", q, a))
			}
			req.Intake = &scope.IntakeResult{Notes: strings.Join(notes, "; ")}
		}
	}
	if err := scope.WriteRequirements(specDir.Path, req); err != nil {
		return fmt.Errorf("intake: writing requirements: %w", err)
	}

	if intakeModel != "" {
		if registry, rerr := models.LoadRegistry(resolveModelsPath(cfg)); rerr == nil {
			resolved := registry.Resolve(models.ResolveRequest{
				Phase:    "intake",
				CLIModel: intakeModel,
				Warn:     func(format string, a ...interface{}) { log.Warn(format, a...) },
			})
			log.Info("intake: resolved model %s (thinking=%s)", resolved.ModelID, resolved.ThinkingLevel)
		}
	}

	idx := projectindex.Scan(projectDir)
	rules := scope.DeriveScopeRules(idx)
	contract := &scope.ScopeContract{
		Intent:         "change",
		AllowedPaths:   rules.AllowedPaths,
		ForbiddenPaths: rules.ForbiddenPaths,
		TestPlan:       rules.TestPlan,
		CandidateFiles: req.FilesToModify,
		Acceptance:     req.AcceptanceCriteria,
	}
	if errs, warnings := scope.ValidateScopeRules(contract.AllowedPaths, contract.ForbiddenPaths); len(errs) > 0 {
		return fmt.Errorf("intake: invalid scope rules: %s", strings.Join(errs, "; "))
	} else if len(warnings) > 0 {
		log.Warn("intake: scope rule warnings: %s", strings.Join(warnings, "; "))
	}
	if err := scope.WriteScopeContract(specDir.Path, contract); err != nil {
		return fmt.Errorf("intake: writing scope contract: %w", err)
	}

	intake, err := scope.RunPreflightScoper(scope.PreflightInput{
		SpecDir:         specDir.Path,
		ProjectDir:      projectDir,
		TaskDescription: intakeDescription,
		ProjectIndex:    idx,
		EstimatedFiles:  len(contract.CandidateFiles),
	})
	if err != nil {
		return fmt.Errorf("intake: running preflight scoper: %w", err)
	}

	name := intakeDescription
	if len(name) > 60 {
		name = name[:60]
	}
	renamed, err := workspace.RenameToSlug(specDir, name)
	if err != nil {
		log.Warn("intake: failed renaming spec directory: %v", err)
	} else {
		specDir = renamed
	}

	if verbose {
		fmt.Fprintln(os.Stderr, consilium.RenderIntakeSummary(intake))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(intake)
}
