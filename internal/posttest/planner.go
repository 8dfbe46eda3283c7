package posttest

import (
	"sort"

	"github.com/auto-iflow/autoiflow/internal/scope"
)

// Plan is a resolved, capped list of raw shell commands to execute.
type Plan struct {
	Commands []string
	Dropped  []string // entries removed by the smart cap, for logging/visibility
}

// ResolveTestPlan picks the source list per spec.md §4.F: task_intake's
// tests_to_run is preferred; failing that (nil/empty), scope_contract's
// test_plan is used.
func ResolveTestPlan(intake *scope.TaskIntake, contract *scope.ScopeContract) []string {
	if intake != nil && len(intake.TestsToRun) > 0 {
		return intake.TestsToRun
	}
	if contract != nil {
		return contract.TestPlan
	}
	return nil
}

type ranked struct {
	command  string
	priority int
	direct   bool
	index    int
}

// BuildPlan expands aliases in entries, then applies the smart cap: direct
// matches (security/*, qa/*, pipeline/* paths) are always preserved; the
// rest are priority-filtered down to cap total commands. cap<=0 means the
// default of 2.
func BuildPlan(entries []string, cap int) Plan {
	if cap <= 0 {
		cap = 2
	}

	var items []ranked
	for i, entry := range entries {
		cmd := ResolveCommand(entry)
		items = append(items, ranked{
			command:  cmd,
			priority: priorityOf(entry),
			direct:   isDirectMatch(cmd),
			index:    i,
		})
	}

	var direct, rest []ranked
	for _, it := range items {
		if it.direct {
			direct = append(direct, it)
		} else {
			rest = append(rest, it)
		}
	}

	sort.SliceStable(rest, func(i, j int) bool { return rest[i].priority < rest[j].priority })

	kept := append([]ranked{}, direct...)
	remaining := cap - len(kept)
	if remaining < 0 {
		remaining = 0
	}
	var dropped []ranked
	for i, it := range rest {
		if i < remaining {
			kept = append(kept, it)
		} else {
			dropped = append(dropped, it)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].index < kept[j].index })

	plan := Plan{}
	for _, it := range kept {
		plan.Commands = append(plan.Commands, it.command)
	}
	for _, it := range dropped {
		plan.Dropped = append(plan.Dropped, it.command)
	}
	return plan
}
