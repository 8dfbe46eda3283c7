package consilium

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/auto-iflow/autoiflow/internal/phases"
	"github.com/auto-iflow/autoiflow/internal/scope"
)

// RenderIntakeSummary turns a TaskIntake into a short markdown document and
// renders it for the terminal with glamour, falling back to the plain
// markdown if no terminal renderer is available (e.g. piped output).
func RenderIntakeSummary(intake *scope.TaskIntake) string {
	if intake == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Task intake\n\n")
	fmt.Fprintf(&b, "- **Type**: %s\n", intake.TaskType)
	fmt.Fprintf(&b, "- **Complexity**: %s\n", intake.Complexity)
	fmt.Fprintf(&b, "- **Risk**: %s\n", intake.Risk)
	fmt.Fprintf(&b, "- **Noise profile**: %s\n\n", intake.NoiseProfile)
	if len(intake.AcceptanceMap) > 0 {
		b.WriteString("## Acceptance map\n\n")
		for _, entry := range intake.AcceptanceMap {
			fmt.Fprintf(&b, "- `%s` -> %s\n", entry.File, entry.Criterion)
		}
	}
	return render(b.String())
}

// RenderPlanSummary renders a compact markdown view of the implementation
// plan's current phase/subtask status, used at the review checkpoint.
func RenderPlanSummary(plan *phases.ImplementationPlan) string {
	if plan == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", plan.Feature)
	fmt.Fprintf(&b, "Status: **%s**\n\n", plan.Status)
	for _, phase := range plan.Phases {
		fmt.Fprintf(&b, "## Phase %d: %s\n\n", phase.Phase, phase.Name)
		for _, st := range phase.Subtasks {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", statusMark(st.Status), st.ID, st.Description)
		}
		b.WriteString("\n")
	}
	return render(b.String())
}

func statusMark(status string) string {
	if status == phases.SubtaskCompleted {
		return "x"
	}
	return " "
}

func render(markdown string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return markdown
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
