package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/auto-iflow/autoiflow/internal/appconfig"
	"github.com/auto-iflow/autoiflow/internal/consilium"
	"github.com/auto-iflow/autoiflow/internal/external"
	"github.com/auto-iflow/autoiflow/internal/logging"
	"github.com/auto-iflow/autoiflow/internal/models"
	"github.com/auto-iflow/autoiflow/internal/phases"
	"github.com/auto-iflow/autoiflow/internal/postsession"
	"github.com/auto-iflow/autoiflow/internal/posttest"
	"github.com/auto-iflow/autoiflow/internal/projectindex"
	"github.com/auto-iflow/autoiflow/internal/qa"
	"github.com/auto-iflow/autoiflow/internal/recovery"
	"github.com/auto-iflow/autoiflow/internal/scope"
	"github.com/auto-iflow/autoiflow/internal/security"
	"github.com/auto-iflow/autoiflow/internal/session"
	"github.com/auto-iflow/autoiflow/internal/session/adapter"
	"github.com/auto-iflow/autoiflow/internal/workspace"
)

var (
	consiliumTask           string
	consiliumProjectName    string
	consiliumProjectDir     string
	consiliumWorkspace      string
	consiliumModel          string
	consiliumPermissionMode string
	consiliumVerbose        bool
)

// consiliumCmd drives one task end to end: intake, scoping, phased
// planning/coding through the agent session runtime, post-code testing,
// and QA sign-off, printing progress on stdio.
var consiliumCmd = &cobra.Command{
	Use:   "consilium",
	Short: "Run one task end to end through the full pipeline",
	RunE:  runConsilium,
}

func registerConsiliumCmd() {
	consiliumCmd.Flags().StringVar(&consiliumTask, "task", "", "Free-text task description (required)")
	consiliumCmd.Flags().StringVar(&consiliumProjectName, "project-name", "", "Project display name")
	consiliumCmd.Flags().StringVar(&consiliumProjectDir, "project-dir", "", "Project directory (default: current)")
	consiliumCmd.Flags().StringVar(&consiliumWorkspace, "workspace", "", "Alias for --project-dir, kept for parity with the direct-action CLIs")
	consiliumCmd.Flags().StringVar(&consiliumModel, "model", "", "Model id override, wins over every routing source")
	consiliumCmd.Flags().StringVar(&consiliumPermissionMode, "permission-mode", "manual", "auto|manual|selective")
	consiliumCmd.Flags().BoolVar(&consiliumVerbose, "verbose", false, "Print tool activity to stdout")
	consiliumCmd.MarkFlagRequired("task")
}

// consiliumRun bundles everything a single run threads through its
// helpers, avoiding a long positional-argument chain across phase
// functions.
type consiliumRun struct {
	cfg        *appconfig.Config
	registry   *models.Registry
	profile    *security.Profile
	backend    external.ModelBackend
	adapterSel session.Adapter
	specDir    string
	projectDir string
	taskDesc   string
	intake     *scope.TaskIntake
	log        *logging.Logger
}

func runConsilium(cmd *cobra.Command, args []string) error {
	dir := consiliumProjectDir
	if dir == "" {
		dir = consiliumWorkspace
	}
	if dir == "" {
		dir, _ = os.Getwd()
	}
	projectDir = dir

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nconsilium: interrupted, leaving state resumable")
		cancel()
	}()

	log := logging.Get(logging.CategoryPhases)

	dataDir, _, err := workspace.InitDataDir(projectDir)
	if err != nil {
		return fmt.Errorf("consilium: initializing data directory: %w", err)
	}
	cfg, err := appconfig.Load(dataDir)
	if err != nil {
		return fmt.Errorf("consilium: loading config: %w", err)
	}

	registry, err := models.LoadRegistry(resolveModelsPath(cfg))
	if err != nil {
		return fmt.Errorf("consilium: loading model registry: %w", err)
	}

	profile := security.LoadProfile(projectDir)

	specName := consiliumProjectName
	if specName == "" {
		specName = consiliumTask
	}
	specDir, err := workspace.AllocateSpecDirectory(dataDir, specName)
	if err != nil {
		return fmt.Errorf("consilium: allocating spec directory: %w", err)
	}

	req := &scope.Requirements{TaskDescription: consiliumTask}
	if err := scope.WriteRequirements(specDir.Path, req); err != nil {
		return fmt.Errorf("consilium: writing requirements: %w", err)
	}

	idx := projectindex.Scan(projectDir)
	rules := scope.DeriveScopeRules(idx)
	contract := &scope.ScopeContract{
		Intent:         "change",
		AllowedPaths:   rules.AllowedPaths,
		ForbiddenPaths: rules.ForbiddenPaths,
		TestPlan:       rules.TestPlan,
	}
	if err := scope.WriteScopeContract(specDir.Path, contract); err != nil {
		return fmt.Errorf("consilium: writing scope contract: %w", err)
	}

	intake, err := scope.RunPreflightScoper(scope.PreflightInput{
		SpecDir:         specDir.Path,
		ProjectDir:      projectDir,
		TaskDescription: consiliumTask,
		ProjectIndex:    idx,
	})
	if err != nil {
		return fmt.Errorf("consilium: running preflight scoper: %w", err)
	}

	envCheck := phases.RunEnvRealityCheck(phases.EnvCheckInputs{ProjectDir: projectDir, SpecDir: specDir.Path})
	if !envCheck.OK() {
		return fmt.Errorf("consilium: environment check failed: %v", envCheck.Errors)
	}

	backend := selectBackend()
	if err := backend.Start(ctx); err != nil {
		return fmt.Errorf("consilium: starting model backend: %w", err)
	}
	defer backend.Stop(context.Background())

	run := &consiliumRun{
		cfg:        cfg,
		registry:   registry,
		profile:    profile,
		backend:    backend,
		adapterSel: adapter.Select("structured"),
		specDir:    specDir.Path,
		projectDir: projectDir,
		taskDesc:   consiliumTask,
		intake:     intake,
		log:        log,
	}

	plan, err := phases.LoadPlan(specDir.Path)
	if err != nil {
		return fmt.Errorf("consilium: loading plan: %w", err)
	}
	if plan == nil {
		plan = &phases.ImplementationPlan{
			Feature: specDir.Slug,
			Status:  phases.PlanStatusBuilding,
			Phases: []phases.Phase{{
				Phase: 1,
				Name:  "build",
				Subtasks: []phases.Subtask{
					{ID: "1.1", Description: consiliumTask, Status: phases.SubtaskPending},
				},
			}},
		}
		if err := phases.WritePlan(specDir.Path, plan); err != nil {
			return fmt.Errorf("consilium: writing initial plan: %w", err)
		}
	}

	orch := phases.NewOrchestrator(os.Stdout)
	orch.Summaries = phases.NewSummaryStore(cfg.Phases.SummaryMaxWords)

	assessment := &phases.ComplexityAssessment{Complexity: intake.Complexity}
	phaseFns := run.buildPhaseFns(ctx, assessment)

	autoApprove := consiliumPermissionMode == "auto"
	reviewFn := func(reviewCtx context.Context, prefix string) (phases.PhaseResult, error) {
		decision, err := phases.RunReviewCheckpoint(reviewCtx, autoApprove, consilium.Prompt(consilium.RenderPlanSummary(plan)))
		if err != nil {
			return phases.PhaseResult{Success: false, Errors: []string{err.Error()}}, err
		}
		return phases.PhaseResult{Success: decision.Approved}, nil
	}

	var results []phases.PhaseResult
	if intake.TaskType == "code" {
		results = orch.RunCodePipeline(ctx, phaseFns, assessment, reviewFn)
	} else {
		results = orch.RunNonCodePipeline(ctx, phaseFns, reviewFn)
	}
	for _, r := range results {
		if !r.Success {
			return fmt.Errorf("consilium: phase %s failed: %s", r.Phase, strings.Join(r.Errors, "; "))
		}
	}

	if intake.TaskType == "code" {
		if err := run.driveBuild(ctx, plan); err != nil {
			return fmt.Errorf("consilium: build loop: %w", err)
		}
	}

	return nil
}

// buildPhaseFns wires every pipeline phase name to a concrete PhaseFunc.
// Deterministic phases (env_reality_check, preflight, senior_review) are
// already satisfied by work done before the orchestrator starts, so they
// are recorded as instantly-successful, idempotent no-ops here;
// complexity_assessment is derived from the intake, and everything else
// (including quick_spec and validation) drives one agent session.
func (r *consiliumRun) buildPhaseFns(ctx context.Context, assessment *phases.ComplexityAssessment) map[string]phases.PhaseFunc {
	noop := func(name string) phases.PhaseFunc {
		return func(context.Context, string) (phases.PhaseResult, error) {
			return phases.PhaseResult{Success: true}, nil
		}
	}

	agentPhase := func(name string) phases.PhaseFunc {
		return func(pctx context.Context, promptPrefix string) (phases.PhaseResult, error) {
			outcome, err := r.runAgentSession(pctx, name, promptPrefix)
			if err != nil {
				return phases.PhaseResult{}, err
			}
			if outcome.Status == "error" {
				return phases.PhaseResult{Success: false, Errors: []string{outcome.Reason}}, nil
			}
			return phases.PhaseResult{Success: true}, nil
		}
	}

	complexityFn := func(context.Context, string) (phases.PhaseResult, error) {
		*assessment = phases.ComplexityAssessment{
			Complexity:        r.intake.Complexity,
			NeedsResearch:     r.intake.NoiseProfile == "high",
			NeedsSelfCritique: r.intake.Risk == "high",
		}
		return phases.PhaseResult{Success: true, OutputFiles: []string{scope.TaskIntakePath(r.specDir)}}, nil
	}

	fns := map[string]phases.PhaseFunc{
		"env_reality_check":     noop("env_reality_check"),
		"preflight":             noop("preflight"),
		"senior_review":         noop("senior_review"),
		"complexity_assessment": complexityFn,
	}
	for _, name := range []string{
		"discovery", "requirements", "quick_spec", "validation",
		"research", "planning", "coding", "self_review",
		"integration_check", "self_critique",
	} {
		fns[name] = agentPhase(name)
	}
	return fns
}

// runAgentSession resolves the model for this phase and runs one
// session.Run round, printing assistant text to stdout when --verbose is
// set and consulting the security gate on every tool start.
func (r *consiliumRun) runAgentSession(ctx context.Context, phaseName, promptPrefix string) (session.Outcome, error) {
	resolved := r.registry.Resolve(models.ResolveRequest{
		Phase:    phaseName,
		CLIModel: consiliumModel,
		Warn:     func(format string, a ...interface{}) { r.log.Warn(format, a...) },
	})

	client, err := r.backend.Client(ctx, external.ClientConfig{
		ModelID:        resolved.ModelID,
		ThinkingBudget: resolved.ThinkingBudget,
		SystemPrompt:   fmt.Sprintf("You are the %s phase of an autonomous coding task.", phaseName),
		WorkDir:        r.projectDir,
	})
	if err != nil {
		return session.Outcome{}, fmt.Errorf("phase %s: opening client: %w", phaseName, err)
	}

	prompt := promptPrefix + "\n\n## Task\n\n" + r.taskDesc + "\n\n## Phase\n\n" + phaseName

	gateCtx := security.GateContext{
		ManualVerification: consiliumPermissionMode == "manual",
		BlockTestCommands:  r.cfg.Security.AllowlistFilename != "",
		TestPlan:           r.intake.TestsToRun,
		TaskType:           r.intake.TaskType,
		Profile:            r.profile,
	}

	handlers := session.Handlers{
		OnText: func(text string) {
			if consiliumVerbose {
				fmt.Print(text)
			}
		},
		OnToolStart: func(name string, input map[string]interface{}) {
			command, _ := input["command"].(string)
			decision := security.Gate(security.ToolCall{ToolName: name, Command: command}, gateCtx)
			if decision.Block {
				r.log.Warn("phase %s: gate blocked %s: %s", phaseName, name, decision.Reason)
			}
		},
		OnToolEnd: func(name string, class session.ToolEndClass, isError bool, result string, headOnly bool) {
			if isError {
				r.log.Warn("phase %s: tool %s failed (%s)", phaseName, name, class)
			}
		},
	}

	return session.Run(ctx, client, r.adapterSel, prompt, r.cfg.IdleTimeout(), func() bool { return true }, handlers)
}

// driveBuild runs the post-phase agent build loop: one session per
// pending subtask, the post-session processor after each, post-code
// tests on the last subtask, and the QA gate / sign-off state machine
// until the plan reaches human_review or the QA iteration cap.
func (r *consiliumRun) driveBuild(ctx context.Context, plan *phases.ImplementationPlan) error {
	recStore, err := recovery.Load(r.specDir)
	if err != nil {
		return fmt.Errorf("loading recovery store: %w", err)
	}

	sessionIndex := 0
	for {
		subtask, ok := plan.PendingSubtask()
		if !ok {
			break
		}
		sessionIndex++
		beforeHEAD := gitHead(r.projectDir)

		outcome, err := r.runAgentSession(ctx, "coding", fmt.Sprintf("## Subtask\n\n%s", subtask.Description))
		if err != nil {
			recStore.RecordAttempt(subtask.ID, sessionIndex, false, "coding", err.Error(), time.Now())
			_ = recovery.Save(r.specDir, recStore)
			return err
		}

		subtaskStatus := phases.SubtaskInProgress
		if outcome.Status == "complete" {
			subtaskStatus = phases.SubtaskCompleted
		} else if outcome.Status == "error" {
			subtaskStatus = phases.SubtaskFailed
		}
		if st, found := plan.FindSubtask(subtask.ID); found {
			st.Status = subtaskStatus
		}
		if err := phases.WritePlan(r.specDir, plan); err != nil {
			return fmt.Errorf("writing plan: %w", err)
		}

		result, err := postsession.Process(ctx, postsession.Input{
			ProjectDir:    r.projectDir,
			SpecDir:       r.specDir,
			SubtaskID:     subtask.ID,
			SubtaskStatus: subtaskStatus,
			SessionIndex:  sessionIndex,
			BeforeHEAD:    beforeHEAD,
			TaskType:      r.intake.TaskType,
			InsightText:   outcome.Transcript,
		})
		if err != nil {
			return fmt.Errorf("post-session processing: %w", err)
		}
		recStore.RecordAttempt(subtask.ID, sessionIndex, subtaskStatus == phases.SubtaskCompleted, "coding", outcome.Reason, time.Now())
		if result.NewCommit != "" {
			recStore.RecordGoodCommit(result.NewCommit, subtask.ID)
		}
		if err := recovery.Save(r.specDir, recStore); err != nil {
			return fmt.Errorf("saving recovery store: %w", err)
		}
		if subtaskStatus == phases.SubtaskFailed && recStore.AttemptCount(subtask.ID) >= 3 {
			recStore.MarkStuck(subtask.ID)
			_ = recovery.Save(r.specDir, recStore)
			return fmt.Errorf("subtask %s stuck after %d attempts", subtask.ID, recStore.AttemptCount(subtask.ID))
		}
	}

	return r.runQAGate(ctx, plan)
}

// runQAGate drives the QA sign-off state machine to a terminal state:
// approved+proof-gate-pass -> human_review, or rejected past the
// iteration cap.
func (r *consiliumRun) runQAGate(ctx context.Context, plan *phases.ImplementationPlan) error {
	for qa.ShouldRunQA(plan, r.intake.TaskType) || qa.ShouldRunFixes(plan) {
		if plan.QASignoff != nil && plan.QASignoff.Status == "rejected" && plan.QASignoff.QASession >= qa.MaxQAIterations {
			break
		}
		if qa.ShouldRunFixes(plan) {
			outcome, err := r.runAgentSession(ctx, "qa_fixes", "Address the QA issues recorded in implementation_plan.json's qa_signoff.")
			if err != nil {
				return err
			}
			qa.ApplyFixesRound(plan)
			if outcome.Status == "error" {
				return fmt.Errorf("qa fixes round: %s", outcome.Reason)
			}
			if err := phases.WritePlan(r.specDir, plan); err != nil {
				return err
			}
			continue
		}

		outcome, err := r.runAgentSession(ctx, "qa_review", "Review the implementation against acceptance criteria and report APPROVED or REJECTED with issues.")
		if err != nil {
			return err
		}
		approved := strings.Contains(strings.ToUpper(outcome.Transcript), "APPROVED")
		qa.ApplyVerdict(plan, qa.Verdict{Approved: approved}, time.Now())
		if err := phases.WritePlan(r.specDir, plan); err != nil {
			return err
		}
	}

	proofs, err := qa.LoadProofs(r.specDir)
	if err != nil {
		return fmt.Errorf("loading proofs: %w", err)
	}
	qa.AutoAppendMissingProofs(r.projectDir, proofs, r.intake.AcceptanceMap, time.Now())
	qa.EnsureNonCodeProof(proofs, time.Now())
	if err := qa.WriteProofs(r.specDir, proofs); err != nil {
		return fmt.Errorf("writing proofs: %w", err)
	}

	gateResult := qa.CheckProofGate(r.intake.TaskType, proofs, r.intake.AcceptanceMap)
	report, _ := posttest.LoadReport(r.specDir)
	testsPassed := report == nil || report.Summary.Failed == 0
	qa.ApplyPostApprovalOutcome(plan, gateResult.OK, testsPassed)
	return phases.WritePlan(r.specDir, plan)
}
