package scope

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TaskTypeValues enumerates every valid TaskIntake.TaskType.
var TaskTypeValues = []string{"code", "analysis", "plan", "audit", "content"}

// AcceptanceMapEntry pairs one acceptance criterion with the (possibly
// empty) single output file it maps to.
type AcceptanceMapEntry struct {
	Criterion string `json:"criterion"`
	File      string `json:"file"`
}

// TaskIntake is the routing/noise-control/proof-gating document produced by
// the preflight scoper.
type TaskIntake struct {
	TaskType              string                `json:"task_type"`
	Complexity            string                `json:"complexity"`
	ComplexityScore       int                   `json:"complexity_score"`
	Risk                  string                `json:"risk"`
	NoiseProfile          string                `json:"noise_profile"`
	InputFiles            []string              `json:"input_files"`
	OutputFiles           []string              `json:"output_files"`
	FilesToModify         []string              `json:"files_to_modify"`
	FilesToModifySource   string                `json:"files_to_modify_source"`
	FilesToModifyInferred bool                  `json:"files_to_modify_inferred"`
	TestsToRun            []string              `json:"tests_to_run"`
	AcceptanceMap         []AcceptanceMapEntry  `json:"acceptance_map"`
	ClarifyingQuestions   []string              `json:"clarifying_questions"`
	RalphLoop             bool                  `json:"ralphLoop"`
	RalphLoopMax          int                   `json:"ralphLoopMax"`
	IntakeResult          *IntakeResult         `json:"intake_result,omitempty"`
}

// TaskIntakePath returns the canonical task_intake.json path.
func TaskIntakePath(specDir string) string {
	return filepath.Join(specDir, "task_intake.json")
}

// LoadTaskIntake reads task_intake.json, returning (nil, nil) when absent
// or malformed, matching the Python reference's tolerant load.
func LoadTaskIntake(specDir string) (*TaskIntake, error) {
	data, err := os.ReadFile(TaskIntakePath(specDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var intake TaskIntake
	if err := json.Unmarshal(data, &intake); err != nil {
		return nil, nil
	}
	return &intake, nil
}

// WriteTaskIntake persists intake to task_intake.json.
func WriteTaskIntake(specDir string, intake *TaskIntake) error {
	data, err := json.MarshalIndent(intake, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(TaskIntakePath(specDir), data, 0o644)
}

// DeterminePipeline returns "code" or "non-code" depending on the intake's
// task type.
func DeterminePipeline(intake *TaskIntake) string {
	if intake == nil || intake.TaskType == "" || intake.TaskType == "code" {
		return "code"
	}
	return "non-code"
}

func renderIntakeReport(intake *IntakeResult, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Intake Report\n\n")
	fmt.Fprintf(&b, "- Generated: %s\n", now.UTC().Format("2006-01-02T15:04:05.000000")+"Z")
	clarity := intake.ClarityLevel
	if clarity == "" {
		clarity = "unknown"
	}
	model := intake.IntakeModel
	if model == "" {
		model = "unknown"
	}
	fmt.Fprintf(&b, "- Clarity: %s\n", clarity)
	fmt.Fprintf(&b, "- Model: %s\n\n", model)

	if intake.SuggestedTitle != "" {
		fmt.Fprintf(&b, "## Suggested Title\n\n%s\n\n", intake.SuggestedTitle)
	}
	if len(intake.Risks) > 0 {
		b.WriteString("## Risks\n")
		for _, r := range intake.Risks {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}
	if len(intake.Assumptions) > 0 {
		b.WriteString("## Assumptions\n")
		for _, a := range intake.Assumptions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		b.WriteString("\n")
	}
	if intake.Notes != "" {
		fmt.Fprintf(&b, "## Notes\n\n%s\n\n", intake.Notes)
	}
	if len(intake.ClarifyingQuestions) > 0 {
		b.WriteString("## Clarifying Questions\n")
		for _, q := range intake.ClarifyingQuestions {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(q.Question))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// writeVersionedIntakeReport writes intake_report.md, first rotating any
// existing report to intake_report.vN.md so regeneration never clobbers a
// prior clarification pass's record.
func writeVersionedIntakeReport(specDir string, intake *IntakeResult, now time.Time) error {
	reportPath := filepath.Join(specDir, "intake_report.md")

	if _, err := os.Stat(reportPath); err == nil {
		matches, _ := filepath.Glob(filepath.Join(specDir, "intake_report.v*.md"))
		maxVersion := 0
		for _, m := range matches {
			base := strings.TrimSuffix(filepath.Base(m), ".md")
			parts := strings.SplitN(base, ".v", 2)
			if len(parts) != 2 {
				continue
			}
			var v int
			if _, err := fmt.Sscanf(parts[1], "%d", &v); err == nil && v > maxVersion {
				maxVersion = v
			}
		}
		nextVersion := maxVersion + 1
		if err := os.Rename(reportPath, filepath.Join(specDir, fmt.Sprintf("intake_report.v%d.md", nextVersion))); err != nil {
			return err
		}
	}

	return os.WriteFile(reportPath, []byte(renderIntakeReport(intake, now)), 0o644)
}

// sortedKeys returns the keys of a map of project-index services in
// ascending order.
func sortedKeys(m map[string]ServiceEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
