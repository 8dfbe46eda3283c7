package planimporter

import "testing"

func boolPtr(b bool) *bool { return &b }

func TestSchedule_ExplicitParallelGroupedAndChunked(t *testing.T) {
	tasks := []NormalizedTask{
		{Title: "a", ParallelAllowed: boolPtr(true)},
		{Title: "b", ParallelAllowed: boolPtr(true)},
		{Title: "c", ParallelAllowed: boolPtr(true)},
	}
	groups := Schedule(tasks, false, 2)

	var parallelGroups int
	var total int
	for _, g := range groups {
		if !g.Parallel {
			t.Errorf("expected all groups parallel, got %+v", g)
		}
		parallelGroups++
		total += len(g.Tasks)
	}
	if parallelGroups != 2 {
		t.Errorf("expected 2 chunks of size<=2 for 3 parallel tasks, got %d", parallelGroups)
	}
	if total != 3 {
		t.Errorf("expected all 3 tasks scheduled, got %d", total)
	}
}

func TestSchedule_ExplicitSequentialOnePerGroup(t *testing.T) {
	tasks := []NormalizedTask{
		{Title: "a", ParallelAllowed: boolPtr(false)},
		{Title: "b", ParallelAllowed: boolPtr(false)},
	}
	groups := Schedule(tasks, true, 4)
	if len(groups) != 2 {
		t.Fatalf("expected 2 sequential groups, got %d", len(groups))
	}
	for _, g := range groups {
		if g.Parallel || len(g.Tasks) != 1 {
			t.Errorf("expected sequential single-task group, got %+v", g)
		}
	}
}

func TestSchedule_UnsetHintFallsBackToDefault(t *testing.T) {
	tasks := []NormalizedTask{{Title: "a"}}

	parallelGroups := Schedule(tasks, true, 4)
	if len(parallelGroups) != 1 || !parallelGroups[0].Parallel {
		t.Errorf("expected default-parallel fallback, got %+v", parallelGroups)
	}

	sequentialGroups := Schedule(tasks, false, 4)
	if len(sequentialGroups) != 1 || sequentialGroups[0].Parallel {
		t.Errorf("expected default-sequential fallback, got %+v", sequentialGroups)
	}
}

func TestSchedule_MixedHintsProduceParallelThenSequentialGroups(t *testing.T) {
	tasks := []NormalizedTask{
		{Title: "p1", ParallelAllowed: boolPtr(true)},
		{Title: "s1", ParallelAllowed: boolPtr(false)},
		{Title: "p2", ParallelAllowed: boolPtr(true)},
	}
	groups := Schedule(tasks, false, 4)
	if len(groups) != 2 {
		t.Fatalf("expected one parallel chunk + one sequential group, got %d groups", len(groups))
	}
	if !groups[0].Parallel || len(groups[0].Tasks) != 2 {
		t.Errorf("expected first group to be the parallel chunk with p1+p2, got %+v", groups[0])
	}
	if groups[1].Parallel || groups[1].Tasks[0].Title != "s1" {
		t.Errorf("expected second group sequential with s1, got %+v", groups[1])
	}
}

func TestChunk_SizeBelowOneTreatedAsOne(t *testing.T) {
	items := []NormalizedTask{{Title: "a"}, {Title: "b"}}
	chunks := chunk(items, 0)
	if len(chunks) != 2 {
		t.Errorf("expected chunk size<1 to fall back to 1, got %d chunks", len(chunks))
	}
}

func TestSchedule_EmptyTasksReturnsNoGroups(t *testing.T) {
	groups := Schedule(nil, true, 4)
	if len(groups) != 0 {
		t.Errorf("expected no groups for empty input, got %+v", groups)
	}
}
