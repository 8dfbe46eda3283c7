// Package phases implements the ImplementationPlan data model and the
// phase orchestrator: the ordered pipeline that walks a task from
// discovery through review, with a dynamically selected set of phases for
// code tasks and a short bypass pipeline for non-code tasks.
package phases

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Subtask statuses.
const (
	SubtaskPending    = "pending"
	SubtaskInProgress = "in_progress"
	SubtaskCompleted  = "completed"
	SubtaskFailed     = "failed"
)

// Plan statuses.
const (
	PlanStatusBuilding     = "building"
	PlanStatusAIReview     = "ai_review"
	PlanStatusHumanReview  = "human_review"
	PlanStatusComplete     = "complete"
)

// Subtask is one unit of agent-driven work inside a phase.
type Subtask struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	Verification string `json:"verification,omitempty"`
	Service      string `json:"service,omitempty"`
}

// Phase groups subtasks under a named implementation phase.
type Phase struct {
	Phase    int       `json:"phase"`
	Name     string    `json:"name"`
	Subtasks []Subtask `json:"subtasks"`
}

// PostCodeTestsSummary is the subset of a PostCodeReport mirrored onto the
// plan after the post-code test runner executes.
type PostCodeTestsSummary struct {
	Status      string `json:"status"`
	Commit      string `json:"commit,omitempty"`
	TotalTests  int    `json:"total,omitempty"`
	Passed      int    `json:"passed,omitempty"`
	Failed      int    `json:"failed,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// QASignoff is the embedded QA gate state, persisted as part of the plan.
type QASignoff struct {
	Status                  string   `json:"status"` // approved|rejected|fixes_applied
	QASession               int      `json:"qa_session"`
	Timestamp               string   `json:"timestamp,omitempty"`
	TestsPassed             *bool    `json:"tests_passed,omitempty"`
	IssuesFound             []string `json:"issues_found,omitempty"`
	ReadyForQARevalidation  bool     `json:"ready_for_qa_revalidation,omitempty"`
}

// ImplementationPlan is the mutable, append-mostly plan for one spec
// directory. Ownership: mutated by the agent during sessions and by the
// post-session processor; never edited concurrently since only one agent
// session runs per spec at a time.
type ImplementationPlan struct {
	Feature        string                `json:"feature"`
	WorkflowType   string                `json:"workflow_type,omitempty"`
	Phases         []Phase               `json:"phases"`
	Status         string                `json:"status"`
	PlanStatus     string                `json:"planStatus,omitempty"`
	QASignoff      *QASignoff            `json:"qa_signoff,omitempty"`
	PostCodeTests  *PostCodeTestsSummary `json:"post_code_tests,omitempty"`
	UpdatedAt      string                `json:"updated_at,omitempty"`
}

// PlanPath returns the canonical implementation_plan.json path.
func PlanPath(specDir string) string {
	return filepath.Join(specDir, "implementation_plan.json")
}

// LoadPlan reads implementation_plan.json, returning (nil, nil) when
// absent.
func LoadPlan(specDir string) (*ImplementationPlan, error) {
	data, err := os.ReadFile(PlanPath(specDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var p ImplementationPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("phases: parsing implementation_plan.json: %w", err)
	}
	return &p, nil
}

// WritePlan persists the plan atomically: write to a temp file in the same
// directory, then rename, so a reader never observes a partially written
// document (spec.md §9's "on-disk state transitions should be made
// atomic" note, applied to implementation_plan.json).
func WritePlan(specDir string, p *ImplementationPlan) error {
	return atomicWriteJSON(PlanPath(specDir), p)
}

func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// FindSubtask locates a subtask by id across every phase.
func (p *ImplementationPlan) FindSubtask(id string) (*Subtask, bool) {
	for i := range p.Phases {
		for j := range p.Phases[i].Subtasks {
			if p.Phases[i].Subtasks[j].ID == id {
				return &p.Phases[i].Subtasks[j], true
			}
		}
	}
	return nil, false
}

// BuildComplete reports whether every subtask across every phase has
// reached SubtaskCompleted. A plan with no subtasks at all is not
// considered complete.
func (p *ImplementationPlan) BuildComplete() bool {
	found := false
	for _, ph := range p.Phases {
		for _, st := range ph.Subtasks {
			found = true
			if st.Status != SubtaskCompleted {
				return false
			}
		}
	}
	return found
}

// PendingSubtask returns the first subtask that is not yet completed, in
// phase then subtask order.
func (p *ImplementationPlan) PendingSubtask() (*Subtask, bool) {
	for i := range p.Phases {
		for j := range p.Phases[i].Subtasks {
			if p.Phases[i].Subtasks[j].Status != SubtaskCompleted {
				return &p.Phases[i].Subtasks[j], true
			}
		}
	}
	return nil, false
}
