package qa

import (
	"time"

	"github.com/auto-iflow/autoiflow/internal/phases"
)

// MaxQAIterations is the fixed cap on QA fix-round iterations; exceeding it
// halts the loop in "rejected" rather than looping forever.
const MaxQAIterations = 3

// Verdict is the QA reviewer's judgement of a completed build.
type Verdict struct {
	Approved    bool
	Issues      []string
	TestsPassed *bool
}

// ShouldRunQA reports whether the QA reviewer should run: the build is
// complete, the task is code, and QA has not already been approved.
func ShouldRunQA(plan *phases.ImplementationPlan, taskType string) bool {
	if taskType != "code" {
		return false
	}
	if !plan.BuildComplete() {
		return false
	}
	if plan.QASignoff != nil && plan.QASignoff.Status == "approved" {
		return false
	}
	return true
}

// ShouldRunFixes reports whether the next fix round should run: QA is
// rejected and the iteration cap has not been reached.
func ShouldRunFixes(plan *phases.ImplementationPlan) bool {
	if plan.QASignoff == nil {
		return false
	}
	if plan.QASignoff.Status != "rejected" {
		return false
	}
	return plan.QASignoff.QASession < MaxQAIterations
}

// ApplyVerdict records a QA reviewer verdict, transitioning
// (no signoff)|fixes_applied -> approved|rejected. Exceeding
// MaxQAIterations while rejected is a terminal state: the caller should
// stop invoking fix rounds (ShouldRunFixes reports false once the cap is
// hit).
func ApplyVerdict(plan *phases.ImplementationPlan, v Verdict, now time.Time) {
	session := 1
	if plan.QASignoff != nil {
		session = plan.QASignoff.QASession + 1
	}

	status := "rejected"
	if v.Approved {
		status = "approved"
	}

	plan.QASignoff = &phases.QASignoff{
		Status:      status,
		QASession:   session,
		Timestamp:   now.UTC().Format(time.RFC3339),
		TestsPassed: v.TestsPassed,
		IssuesFound: v.Issues,
	}
}

// ApplyFixesRound marks a rejected QA signoff as fixes_applied, ready for
// re-validation by the next QA reviewer pass.
func ApplyFixesRound(plan *phases.ImplementationPlan) {
	if plan.QASignoff == nil {
		return
	}
	plan.QASignoff.Status = "fixes_applied"
	plan.QASignoff.ReadyForQARevalidation = true
}

// ApplyPostApprovalOutcome transitions an approved QA signoff onward: to
// human_review when the proof gate passes and post-code tests passed, or
// back to ai_review (coding resumes) when the tests failed. It is a no-op
// if QA is not currently approved.
func ApplyPostApprovalOutcome(plan *phases.ImplementationPlan, proofGateOK, testsPassed bool) {
	if plan.QASignoff == nil || plan.QASignoff.Status != "approved" {
		return
	}
	if proofGateOK && testsPassed {
		plan.PlanStatus = phases.PlanStatusHumanReview
		plan.Status = phases.PlanStatusComplete
		return
	}
	if !testsPassed {
		plan.PlanStatus = phases.PlanStatusAIReview
	}
}
