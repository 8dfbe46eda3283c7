package planimporter

import "fmt"

// NormalizedTask is one plan-imported task payload, shaped for handoff
// into a Requirements/ImplementationPlan subtask.
type NormalizedTask struct {
	Title           string
	Description     string
	ParallelAllowed *bool
	PlanSection     string
}

func buildDescription(sectionTitle string, task Task) string {
	return fmt.Sprintf("Section: %s\nTask: %s\nNotes: Imported from task plan.", sectionTitle, task.Text)
}

// Normalize flattens parsed sections into NormalizedTasks, one per
// checklist item, preserving section provenance and the parallel hint.
func Normalize(sections []Section) []NormalizedTask {
	var tasks []NormalizedTask
	for _, section := range sections {
		for _, task := range section.Tasks {
			tasks = append(tasks, NormalizedTask{
				Title:           task.Text,
				Description:     buildDescription(section.Title, task),
				ParallelAllowed: task.Parallel,
				PlanSection:     section.Title,
			})
		}
	}
	return tasks
}
