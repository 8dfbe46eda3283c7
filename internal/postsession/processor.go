// Package postsession implements the post-session processor: the
// best-effort bookkeeping pass that runs after every agent session,
// independent of whether the session itself succeeded. It reconciles git
// state against the subtask the session targeted, updates recovery
// history, fires memory/insight extraction on bounded timeouts, and - for
// the final subtask of a code task - triggers the post-code test runner.
package postsession

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/auto-iflow/autoiflow/internal/external"
	"github.com/auto-iflow/autoiflow/internal/logging"
	"github.com/auto-iflow/autoiflow/internal/phases"
	"github.com/auto-iflow/autoiflow/internal/posttest"
	"github.com/auto-iflow/autoiflow/internal/qa"
	"github.com/auto-iflow/autoiflow/internal/recovery"
	"github.com/auto-iflow/autoiflow/internal/scope"
)

// DefaultInsightTimeout and DefaultMemoryTimeout bound the two best-effort
// async steps; when the Input field is zero, a positive whole-second
// POST_SESSION_INSIGHTS_TIMEOUT_SEC or POST_SESSION_MEMORY_TIMEOUT_SEC
// overrides them.
const (
	DefaultInsightTimeout = 60 * time.Second
	DefaultMemoryTimeout  = 60 * time.Second
)

// Input carries everything the processor needs about one just-finished
// session: which subtask it targeted, what the agent loop observed, and
// where to find the spec/project directories.
type Input struct {
	ProjectDir    string
	SpecDir       string
	SubtaskID     string
	SubtaskStatus string // as observed by the orchestrator: completed|in_progress|failed|pending
	SessionIndex  int
	BeforeHEAD    string

	TaskType      string
	InsightText   string // best-effort transcript summary fed to memory/tracker
	MemoryStore   external.MemoryStore
	Tracker       external.Tracker
	InsightTimeout time.Duration
	MemoryTimeout  time.Duration
}

// Result summarizes what the processor did, for logging/display.
type Result struct {
	NewCommit        string
	RecordedAttempt  bool
	RecordedCommit   bool
	MemorySaved      bool
	TestsTriggered   bool
	TestsReport      *posttest.Report
	DowngradedToFix  bool
}

// currentHEAD returns the short commit hash at dir's current HEAD, or ""
// if dir is not a git repository or has no commits yet.
func currentHEAD(dir string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(out.String())
}

// Process runs the full post-session bookkeeping pass described in
// spec.md §4.E. It never returns an error for best-effort sub-steps
// (memory writes, insight extraction, tracker notification); those
// failures are logged and absorbed, as are failures to write the proofs,
// recovery store, or plan. It returns an error only when the
// implementation plan or the recovery store cannot be loaded.
func Process(ctx context.Context, in Input) (Result, error) {
	log := logging.Get(logging.CategorySession)
	now := time.Now()

	plan, err := phases.LoadPlan(in.SpecDir)
	if err != nil {
		return Result{}, fmt.Errorf("postsession: loading plan: %w", err)
	}
	if plan == nil {
		return Result{}, fmt.Errorf("postsession: no implementation_plan.json in %s", in.SpecDir)
	}

	store, err := recovery.Load(in.SpecDir)
	if err != nil {
		return Result{}, fmt.Errorf("postsession: loading recovery store: %w", err)
	}

	afterHEAD := currentHEAD(in.ProjectDir)
	newCommit := ""
	if afterHEAD != "" && afterHEAD != in.BeforeHEAD {
		newCommit = afterHEAD
	}

	result := Result{NewCommit: newCommit}

	switch in.SubtaskStatus {
	case phases.SubtaskCompleted:
		store.RecordAttempt(in.SubtaskID, in.SessionIndex, true, "", "", now)
		result.RecordedAttempt = true
		if newCommit != "" {
			store.RecordGoodCommit(newCommit, in.SubtaskID)
			result.RecordedCommit = true
		}

		acceptanceMap, _, err := loadAcceptanceMap(in.SpecDir)
		if err == nil {
			proofs, perr := qa.LoadProofs(in.SpecDir)
			if perr == nil {
				qa.AutoAppendMissingProofs(in.ProjectDir, proofs, acceptanceMap, now)
				if werr := qa.WriteProofs(in.SpecDir, proofs); werr != nil {
					log.Warn("postsession: writing proofs: %v", werr)
				}
			} else {
				log.Warn("postsession: loading proofs: %v", perr)
			}
		} else {
			log.Warn("postsession: loading acceptance map: %v", err)
		}

	case phases.SubtaskInProgress:
		store.RecordAttempt(in.SubtaskID, in.SessionIndex, false, "", "session ended without completion", now)
		result.RecordedAttempt = true
		if newCommit != "" {
			store.RecordGoodCommit(newCommit, in.SubtaskID)
			result.RecordedCommit = true
		}

	default:
		store.RecordAttempt(in.SubtaskID, in.SessionIndex, false, "", fmt.Sprintf("observed status %q", in.SubtaskStatus), now)
		result.RecordedAttempt = true
	}

	if err := recovery.Save(in.SpecDir, store); err != nil {
		log.Warn("postsession: saving recovery store: %v", err)
	}

	runBestEffortAsync(ctx, in, now, &result, log)

	if in.SubtaskStatus == phases.SubtaskCompleted && in.TaskType == "code" && isLastSubtask(plan, in.SubtaskID) {
		report, triggered := runPostCodeTests(ctx, in, plan, afterHEAD, log)
		if triggered {
			result.TestsTriggered = true
			result.TestsReport = &report
			if report.Status == posttest.StatusFailed || report.Status == posttest.StatusTimedOut {
				plan.PlanStatus = phases.PlanStatusAIReview
				result.DowngradedToFix = true
				appendBuildProgressFailures(in.ProjectDir, report)
			}
			plan.PostCodeTests = &phases.PostCodeTestsSummary{
				Status:      report.Status,
				Commit:      report.Commit,
				TotalTests:  report.Summary.Total,
				Passed:      report.Summary.Passed,
				Failed:      report.Summary.Failed,
				CompletedAt: report.CompletedAt,
			}
			if err := phases.WritePlan(in.SpecDir, plan); err != nil {
				log.Warn("postsession: writing plan after test run: %v", err)
			}
		}
	}

	return result, nil
}

func isLastSubtask(plan *phases.ImplementationPlan, subtaskID string) bool {
	_, pending := plan.PendingSubtask()
	if !pending {
		return true
	}
	st, ok := plan.FindSubtask(subtaskID)
	if !ok {
		return false
	}
	if st.Status != phases.SubtaskCompleted {
		return false
	}
	pend, _ := plan.PendingSubtask()
	return pend == nil
}

func loadAcceptanceMap(specDir string) ([]scope.AcceptanceMapEntry, *scope.TaskIntake, error) {
	intake, err := scope.LoadTaskIntake(specDir)
	if err != nil {
		return nil, nil, err
	}
	if intake == nil {
		return nil, nil, nil
	}
	return intake.AcceptanceMap, intake, nil
}

// runBestEffortAsync fires the memory-write and insight-extraction steps
// concurrently, each under its own bounded timeout, absorbing every
// failure into a log line (spec.md §4.E: these never block or fail the
// overall session).
func runBestEffortAsync(ctx context.Context, in Input, now time.Time, result *Result, log *logging.Logger) {
	if in.MemoryStore == nil && in.Tracker == nil {
		return
	}

	insightTimeout := in.InsightTimeout
	if insightTimeout <= 0 {
		insightTimeout = DefaultInsightTimeout
		if secs, err := strconv.Atoi(os.Getenv("POST_SESSION_INSIGHTS_TIMEOUT_SEC")); err == nil && secs > 0 {
			insightTimeout = time.Duration(secs) * time.Second
		}
	}
	memoryTimeout := in.MemoryTimeout
	if memoryTimeout <= 0 {
		memoryTimeout = DefaultMemoryTimeout
		if secs, err := strconv.Atoi(os.Getenv("POST_SESSION_MEMORY_TIMEOUT_SEC")); err == nil && secs > 0 {
			memoryTimeout = time.Duration(secs) * time.Second
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if in.MemoryStore != nil {
		g.Go(func() error {
			mctx, cancel := context.WithTimeout(gctx, memoryTimeout)
			defer cancel()
			ok, backend, err := in.MemoryStore.Save(mctx, external.SessionSnapshot{
				SpecID:    in.SpecDir,
				SubtaskID: in.SubtaskID,
				Summary:   in.InsightText,
				At:        now,
			})
			if err != nil {
				log.Warn("postsession: memory save failed (%s): %v", backend, err)
				return nil
			}
			result.MemorySaved = ok
			return nil
		})
	}

	if in.Tracker != nil {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, insightTimeout)
			defer cancel()
			var err error
			if in.SubtaskStatus == phases.SubtaskCompleted {
				err = in.Tracker.TaskCompleted(tctx, in.SpecDir, map[string]int{"session": in.SessionIndex})
			} else {
				err = in.Tracker.TaskFailed(tctx, in.SpecDir, in.SessionIndex, in.SubtaskStatus)
			}
			if err != nil {
				log.Warn("postsession: tracker notification failed: %v", err)
			}
			return nil
		})
	}

	_ = g.Wait()
}

// runPostCodeTests resolves and runs the test plan for the finished spec,
// writing post_code_tests.json. The second return reports whether a run
// was actually attempted (ShouldRun may decline).
func runPostCodeTests(ctx context.Context, in Input, plan *phases.ImplementationPlan, head string, log *logging.Logger) (posttest.Report, bool) {
	prior, err := posttest.LoadReport(in.SpecDir)
	if err != nil {
		log.Warn("postsession: loading prior post-code report: %v", err)
	}
	if !posttest.ShouldRun(in.TaskType, prior, head, false) {
		return posttest.Report{}, false
	}

	intake, _ := scope.LoadTaskIntake(in.SpecDir)
	contract := scope.LoadScopeContract(in.SpecDir)
	entries := posttest.ResolveTestPlan(intake, contract)
	testPlan := posttest.BuildPlan(entries, 0)
	if len(testPlan.Dropped) > 0 {
		log.Info("postsession: post-code test cap dropped %d commands: %v", len(testPlan.Dropped), testPlan.Dropped)
	}

	report := posttest.Run(ctx, testPlan, in.ProjectDir, head, posttest.DefaultRunnerConfig(), time.Now())
	if err := posttest.WriteReport(in.SpecDir, &report); err != nil {
		log.Warn("postsession: writing post_code_tests.json: %v", err)
	}
	return report, true
}

// appendBuildProgressFailures appends a short excerpt of every failing
// command's output to build-progress.txt, so the next coding session's
// prompt can see what broke without re-reading the full report.
func appendBuildProgressFailures(projectDir string, report posttest.Report) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n--- post-code tests failed at %s ---\n", report.CompletedAt)
	for _, res := range report.Results {
		if res.Status == posttest.StatusPassed {
			continue
		}
		fmt.Fprintf(&b, "$ %s\nstatus=%s\n", res.Command, res.Status)
		if res.Stderr != "" {
			excerpt := res.Stderr
			if len(excerpt) > 2000 {
				excerpt = excerpt[:2000] + "...\n"
			}
			b.WriteString(excerpt)
			b.WriteString("\n")
		}
	}
	appendFile(filepath.Join(projectDir, "build-progress.txt"), b.String())
}

// appendFile best-effort appends text to path, creating it if absent.
// Failures are swallowed: build-progress.txt is a convenience artifact,
// never load-bearing.
func appendFile(path, text string) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(text)
}
