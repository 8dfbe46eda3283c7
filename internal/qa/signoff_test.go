package qa

import (
	"testing"
	"time"

	"github.com/auto-iflow/autoiflow/internal/phases"
)

func completePlan() *phases.ImplementationPlan {
	return &phases.ImplementationPlan{
		Phases: []phases.Phase{
			{Phase: 1, Subtasks: []phases.Subtask{{ID: "s1", Status: phases.SubtaskCompleted}}},
		},
	}
}

func TestShouldRunQA_NonCodeNeverRuns(t *testing.T) {
	if ShouldRunQA(completePlan(), "content") {
		t.Error("non-code task should never run QA")
	}
}

func TestShouldRunQA_IncompleteBuildNeverRuns(t *testing.T) {
	plan := &phases.ImplementationPlan{
		Phases: []phases.Phase{{Subtasks: []phases.Subtask{{ID: "s1", Status: phases.SubtaskPending}}}},
	}
	if ShouldRunQA(plan, "code") {
		t.Error("incomplete build should not trigger QA")
	}
}

func TestShouldRunQA_AlreadyApprovedDoesNotRerun(t *testing.T) {
	plan := completePlan()
	plan.QASignoff = &phases.QASignoff{Status: "approved"}
	if ShouldRunQA(plan, "code") {
		t.Error("already-approved QA should not re-run")
	}
}

func TestShouldRunQA_CompleteCodeBuildRunsOnce(t *testing.T) {
	if !ShouldRunQA(completePlan(), "code") {
		t.Error("expected QA to run on a complete code build with no prior signoff")
	}
}

func TestApplyVerdict_FirstApproval(t *testing.T) {
	plan := completePlan()
	ApplyVerdict(plan, Verdict{Approved: true}, time.Unix(0, 0))
	if plan.QASignoff.Status != "approved" {
		t.Errorf("expected approved, got %s", plan.QASignoff.Status)
	}
	if plan.QASignoff.QASession != 1 {
		t.Errorf("expected qa_session=1, got %d", plan.QASignoff.QASession)
	}
}

func TestApplyVerdict_RejectionIncrementsSession(t *testing.T) {
	plan := completePlan()
	plan.QASignoff = &phases.QASignoff{Status: "fixes_applied", QASession: 1}
	ApplyVerdict(plan, Verdict{Approved: false, Issues: []string{"flaky test"}}, time.Unix(0, 0))
	if plan.QASignoff.Status != "rejected" {
		t.Errorf("expected rejected, got %s", plan.QASignoff.Status)
	}
	if plan.QASignoff.QASession != 2 {
		t.Errorf("expected qa_session=2, got %d", plan.QASignoff.QASession)
	}
	if len(plan.QASignoff.IssuesFound) != 1 {
		t.Errorf("expected issues recorded, got %v", plan.QASignoff.IssuesFound)
	}
}

func TestShouldRunFixes_RejectedUnderCapRuns(t *testing.T) {
	plan := completePlan()
	plan.QASignoff = &phases.QASignoff{Status: "rejected", QASession: 1}
	if !ShouldRunFixes(plan) {
		t.Error("expected fixes to run when rejected and under the iteration cap")
	}
}

func TestShouldRunFixes_AtCapHalts(t *testing.T) {
	plan := completePlan()
	plan.QASignoff = &phases.QASignoff{Status: "rejected", QASession: MaxQAIterations}
	if ShouldRunFixes(plan) {
		t.Error("expected fixes to halt once MaxQAIterations is reached")
	}
}

func TestShouldRunFixes_NotRejectedNeverRuns(t *testing.T) {
	plan := completePlan()
	plan.QASignoff = &phases.QASignoff{Status: "approved", QASession: 1}
	if ShouldRunFixes(plan) {
		t.Error("fixes should only run when QA is rejected")
	}
}

func TestApplyFixesRound_MarksReadyForRevalidation(t *testing.T) {
	plan := completePlan()
	plan.QASignoff = &phases.QASignoff{Status: "rejected", QASession: 1}
	ApplyFixesRound(plan)
	if plan.QASignoff.Status != "fixes_applied" {
		t.Errorf("expected fixes_applied, got %s", plan.QASignoff.Status)
	}
	if !plan.QASignoff.ReadyForQARevalidation {
		t.Error("expected ready_for_qa_revalidation=true")
	}
}

func TestApplyPostApprovalOutcome_PassesToHumanReview(t *testing.T) {
	plan := completePlan()
	plan.QASignoff = &phases.QASignoff{Status: "approved"}
	ApplyPostApprovalOutcome(plan, true, true)
	if plan.PlanStatus != phases.PlanStatusHumanReview {
		t.Errorf("expected human_review, got %s", plan.PlanStatus)
	}
	if plan.Status != phases.PlanStatusComplete {
		t.Errorf("expected status complete, got %s", plan.Status)
	}
}

func TestApplyPostApprovalOutcome_FailedTestsBackToAIReview(t *testing.T) {
	plan := completePlan()
	plan.QASignoff = &phases.QASignoff{Status: "approved"}
	ApplyPostApprovalOutcome(plan, true, false)
	if plan.PlanStatus != phases.PlanStatusAIReview {
		t.Errorf("expected ai_review, got %s", plan.PlanStatus)
	}
}

func TestApplyPostApprovalOutcome_NoopWhenNotApproved(t *testing.T) {
	plan := completePlan()
	plan.QASignoff = &phases.QASignoff{Status: "rejected"}
	ApplyPostApprovalOutcome(plan, true, true)
	if plan.PlanStatus == phases.PlanStatusHumanReview {
		t.Error("expected no transition when QA is not approved")
	}
}
