package posttest

import (
	"reflect"
	"testing"

	"github.com/auto-iflow/autoiflow/internal/scope"
)

func TestResolveTestPlan_PrefersIntake(t *testing.T) {
	intake := &scope.TaskIntake{TestsToRun: []string{"PYTEST_SECURITY"}}
	contract := &scope.ScopeContract{TestPlan: []string{"npm test"}}
	got := ResolveTestPlan(intake, contract)
	if !reflect.DeepEqual(got, []string{"PYTEST_SECURITY"}) {
		t.Errorf("expected intake tests_to_run preferred, got %v", got)
	}
}

func TestResolveTestPlan_FallsBackToContract(t *testing.T) {
	intake := &scope.TaskIntake{}
	contract := &scope.ScopeContract{TestPlan: []string{"npm test"}}
	got := ResolveTestPlan(intake, contract)
	if !reflect.DeepEqual(got, []string{"npm test"}) {
		t.Errorf("expected fallback to scope_contract.test_plan, got %v", got)
	}
}

func TestResolveTestPlan_NilBoth(t *testing.T) {
	if got := ResolveTestPlan(nil, nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestBuildPlan_SmartCapDropsLowerPriority(t *testing.T) {
	entries := []string{"COLLECT", "PYTEST_SECURITY", "NPM_TEST", "PYTEST_PIPELINE"}
	plan := BuildPlan(entries, 2)

	if len(plan.Commands) != 2 {
		t.Fatalf("expected 2 commands kept under cap, got %d: %v", len(plan.Commands), plan.Commands)
	}
	// SECURITY and PIPELINE should win over NPM_TEST and COLLECT.
	wantSecurity := ResolveCommand("PYTEST_SECURITY")
	wantPipeline := ResolveCommand("PYTEST_PIPELINE")
	found := map[string]bool{}
	for _, c := range plan.Commands {
		found[c] = true
	}
	if !found[wantSecurity] || !found[wantPipeline] {
		t.Errorf("expected security+pipeline preserved, got %v", plan.Commands)
	}
	if len(plan.Dropped) != 2 {
		t.Errorf("expected 2 dropped entries, got %d: %v", len(plan.Dropped), plan.Dropped)
	}
}

func TestBuildPlan_DirectMatchAlwaysKept(t *testing.T) {
	entries := []string{
		"python3 -m pytest tests/security/test_hooks.py",
		"PYTEST_PIPELINE",
		"NPM_TEST",
		"COLLECT",
	}
	plan := BuildPlan(entries, 2)

	found := map[string]bool{}
	for _, c := range plan.Commands {
		found[c] = true
	}
	if !found["python3 -m pytest tests/security/test_hooks.py"] {
		t.Errorf("direct-match entry must always survive the cap, got %v", plan.Commands)
	}
	// cap=2: the direct match takes one slot, leaving one for PYTEST_PIPELINE
	if len(plan.Commands) < 1 {
		t.Fatalf("expected at least the direct match kept, got %v", plan.Commands)
	}
}

func TestBuildPlan_PreservesOriginalOrder(t *testing.T) {
	entries := []string{"PYTEST_PIPELINE", "PYTEST_SECURITY"}
	plan := BuildPlan(entries, 2)
	want := []string{ResolveCommand("PYTEST_PIPELINE"), ResolveCommand("PYTEST_SECURITY")}
	if !reflect.DeepEqual(plan.Commands, want) {
		t.Errorf("expected order preserved as %v, got %v", want, plan.Commands)
	}
}

func TestBuildPlan_DefaultCapWhenNonPositive(t *testing.T) {
	entries := []string{"PYTEST_SECURITY", "PYTEST_PIPELINE", "PYTEST_PROOF_GATE", "NPM_TEST"}
	plan := BuildPlan(entries, 0)
	if len(plan.Commands) != 2 {
		t.Errorf("expected default cap of 2, got %d commands", len(plan.Commands))
	}
}
