// Package scope implements the Requirements/ScopeContract/TaskIntake data
// model and the preflight scoper that derives a TaskIntake from a task
// description, requirements document, and scope contract.
package scope

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ClarifyingQuestion is a question surfaced during intake (plain dict in
// the Python original; we keep it flat since the teacher's question shape
// never needed sub-fields beyond the text itself).
type ClarifyingQuestion struct {
	Question string `json:"question"`
}

// IntakeResult is the optional `intake` sub-document attached to
// Requirements, produced by an upstream clarification pass.
type IntakeResult struct {
	ClarityLevel        string               `json:"clarity_level,omitempty"`
	IntakeModel          string               `json:"intake_model,omitempty"`
	SuggestedTitle       string               `json:"suggested_title,omitempty"`
	Risks                []string             `json:"risks,omitempty"`
	Assumptions          []string             `json:"assumptions,omitempty"`
	Notes                string               `json:"notes,omitempty"`
	ClarifyingQuestions  []ClarifyingQuestion `json:"clarifying_questions,omitempty"`
}

// Requirements is the write-once task specification produced before
// planning begins.
type Requirements struct {
	TaskDescription     string        `json:"task_description"`
	WorkflowType        string        `json:"workflow_type,omitempty"`
	UserRequirements    []string      `json:"user_requirements,omitempty"`
	AcceptanceCriteria  []string      `json:"acceptance_criteria,omitempty"`
	Constraints         []string      `json:"constraints,omitempty"`
	ServicesInvolved    []string      `json:"services_involved,omitempty"`
	FilesToModify       []string      `json:"files_to_modify,omitempty"`
	InputFiles          []string      `json:"input_files,omitempty"`
	Intake              *IntakeResult `json:"intake,omitempty"`
}

// RequirementsPath returns the canonical requirements.json path for a spec
// directory.
func RequirementsPath(specDir string) string {
	return filepath.Join(specDir, "requirements.json")
}

// LoadRequirements reads requirements.json, returning a zero-value
// Requirements (not an error) when the file does not exist, matching the
// Python reference's tolerant `load_requirements`.
func LoadRequirements(specDir string) (*Requirements, error) {
	data, err := os.ReadFile(RequirementsPath(specDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Requirements{}, nil
		}
		return nil, err
	}
	var r Requirements
	if err := json.Unmarshal(data, &r); err != nil {
		return &Requirements{}, nil
	}
	return &r, nil
}

// WriteRequirements persists Requirements to requirements.json. Requirements
// are write-once by convention; callers are responsible for not overwriting
// an existing file once planning has begun.
func WriteRequirements(specDir string, r *Requirements) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(RequirementsPath(specDir), data, 0o644)
}
