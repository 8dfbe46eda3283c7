package scope

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

var taskTypeKeywords = map[string][]string{
	"analysis": {"analysis", "analyze", "investigate", "root cause", "diagnose"},
	"audit":    {"audit", "compliance", "security review", "risk review"},
	"plan":     {"plan", "roadmap", "strategy", "proposal", "design doc"},
	"content":  {"docs", "documentation", "readme", "changelog", "write"},
}

var highRiskKeywords = []string{
	"auth", "oauth", "payment", "payments", "pii", "personal data",
	"credit card", "token", "crypto", "security",
}

var externalIntegrationKeywords = []string{
	"api", "webhook", "integration", "third-party", "external service", "oauth",
}

var infrastructureKeywords = []string{
	"docker", "dockerfile", "kubernetes", "k8s", "terraform", "ci/cd", "ci-cd", "pipeline yaml", "helm",
}

var promptRuntimePrefixes = []string{"prompts/", "prompts_pkg/"}
var runtimeConfigNames = map[string]bool{
	"pytest.ini": true, "pyproject.toml": true, "package.json": true, "dockerfile": true,
}
var runtimeConfigPrefixes = []string{".env", "vite.config.", "electron-builder."}
var runtimeConfigPathSegments = []string{".github/workflows/"}
var docPrefixes = []string{"new-plans/"}

func normalizeFilePath(path string) string {
	cleaned := strings.ReplaceAll(path, "\\", "/")
	return strings.TrimPrefix(cleaned, "./")
}

func isConcreteFile(path string) bool {
	if path == "" {
		return false
	}
	n := normalizeFilePath(path)
	if strings.HasSuffix(n, "/") {
		return false
	}
	if strings.ContainsAny(n, "*?[") {
		return false
	}
	return true
}

func isPromptRuntime(normalizedLower string) bool {
	for _, p := range promptRuntimePrefixes {
		if strings.HasPrefix(normalizedLower, p) {
			return true
		}
	}
	return false
}

func isDocFile(normalizedLower string) bool {
	name := filepath.Base(normalizedLower)
	for _, p := range docPrefixes {
		if strings.HasPrefix(normalizedLower, p) {
			return true
		}
	}
	if strings.HasPrefix(name, "codex-") && strings.HasSuffix(name, ".md") {
		return true
	}
	if strings.HasSuffix(normalizedLower, ".md") && !isPromptRuntime(normalizedLower) {
		return true
	}
	return false
}

func isRuntimeConfig(normalizedLower string) bool {
	name := filepath.Base(normalizedLower)
	if runtimeConfigNames[name] {
		return true
	}
	for _, p := range runtimeConfigPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, seg := range runtimeConfigPathSegments {
		if strings.Contains(normalizedLower, seg) {
			return true
		}
	}
	return false
}

// fileHasIPCMarker reports whether a file under the project directory
// contains one of the IPC bridge call markers, used to decide whether a
// frontend change also needs the pipeline suite re-run.
func fileHasIPCMarker(projectDir, filePath string) bool {
	normalized := normalizeFilePath(filePath)
	if strings.Contains(normalized, "frontend/src/main/ipc-handlers/") {
		return true
	}
	data, err := os.ReadFile(filepath.Join(projectDir, normalized))
	if err != nil {
		return false
	}
	content := string(data)
	return strings.Contains(content, "ipcRenderer.invoke(") || strings.Contains(content, "ipcMain.handle(")
}

// testsForFile derives the post-code test aliases a single touched file
// implies, via a path -> alias mapping: security/qa/pipeline subsystem
// paths each pin a specific suite, frontend/shared changes run the
// package's JS suite, and docs/runtime-config files run little to nothing.
func testsForFile(projectDir, filePath string, hasIPCChange bool) []string {
	normalized := normalizeFilePath(filePath)
	lower := strings.ToLower(normalized)

	if isPromptRuntime(lower) {
		return []string{"PYTEST_PIPELINE", "PYTEST_PROMPTS"}
	}
	if isDocFile(lower) {
		return nil
	}
	if isRuntimeConfig(lower) {
		smokeScript := filepath.Join(projectDir, "scripts", "smoke-build.sh")
		if strings.Contains(lower, "dockerfile") || strings.Contains(lower, ".github/workflows/") {
			if _, err := os.Stat(smokeScript); err == nil {
				return []string{"scripts/smoke-build.sh"}
			}
		}
		return []string{"PYTEST_COLLECT"}
	}

	if strings.HasPrefix(lower, "backend/") {
		var matches []string
		if strings.Contains(lower, "backend/security/") {
			matches = append(matches, "PYTEST_SECURITY")
		}
		if strings.Contains(lower, "backend/pipeline/") {
			matches = append(matches, "PYTEST_PIPELINE", "PYTEST_ROUTING")
		}
		if strings.Contains(lower, "backend/qa/") {
			matches = append(matches, "PYTEST_PROOF_GATE")
		}
		if strings.Contains(lower, "backend/ipc/") {
			matches = append(matches, "PYTEST_PIPELINE", "NPM_TEST")
		}
		if strings.Contains(lower, "backend/agents/") {
			matches = append(matches, "PYTEST_PIPELINE")
		}
		if strings.Contains(lower, "backend/prompts_pkg/") {
			matches = append(matches, "PYTEST_PIPELINE")
		}
		if len(matches) > 0 {
			return matches
		}
		return []string{"PYTEST_PIPELINE"}
	}

	if strings.HasPrefix(lower, "frontend/") {
		tests := []string{"NPM_TEST"}
		if hasIPCChange {
			tests = append(tests, "PYTEST_PIPELINE")
		}
		return tests
	}

	if strings.HasPrefix(lower, "shared/") {
		return []string{"NPM_TEST", "PYTEST_PIPELINE"}
	}

	if strings.Contains(lower, "/types/") || strings.HasSuffix(lower, ".d.ts") {
		return []string{"NPM_TEST", "PYTEST_PIPELINE"}
	}

	return nil
}

var testPriorityOrder = []string{
	"PYTEST_SECURITY", "PYTEST_PIPELINE", "PYTEST_PROOF_GATE", "NPM_TEST", "PYTEST_COLLECT",
}

func testPriorityRank(alias string) int {
	for i, a := range testPriorityOrder {
		if a == alias {
			return i
		}
	}
	return len(testPriorityOrder)
}

// applyPriorityFilter keeps the maxCount highest-priority entries, with
// SECURITY > PIPELINE > PROOF_GATE > NPM_TEST > COLLECT, ties broken by
// original order.
func applyPriorityFilter(tests []string, maxCount int) []string {
	type indexed struct {
		idx   int
		alias string
	}
	items := make([]indexed, len(tests))
	for i, t := range tests {
		items[i] = indexed{i, t}
	}
	sortIndexed(items, func(a, b indexed) bool {
		ra, rb := testPriorityRank(a.alias), testPriorityRank(b.alias)
		if ra != rb {
			return ra < rb
		}
		return a.idx < b.idx
	})
	if maxCount > len(items) {
		maxCount = len(items)
	}
	out := make([]string, 0, maxCount)
	for _, it := range items[:maxCount] {
		out = append(out, it.alias)
	}
	return out
}

func sortIndexed[T any](items []T, less func(a, b T) bool) {
	// simple insertion sort: input sizes here are at most a handful of
	// test aliases, so O(n^2) is irrelevant and this avoids importing
	// sort.Slice's reflection-based comparator for a tiny fixed list.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// applySmartCap preserves "direct" suite matches (security/pipeline/proof
// gate - the suites a touched subsystem path names explicitly) and
// priority-filters the remainder into whatever slots are left.
func applySmartCap(tests, filesToModify []string, maxCount int) []string {
	if maxCount <= 0 || len(tests) <= maxCount {
		return tests
	}
	if len(filesToModify) == 0 {
		return applyPriorityFilter(tests, maxCount)
	}

	directSet := map[string]bool{"PYTEST_SECURITY": true, "PYTEST_PROOF_GATE": true, "PYTEST_PIPELINE": true}
	var direct, indirect []string
	for _, alias := range tests {
		if directSet[alias] {
			direct = append(direct, alias)
		} else {
			indirect = append(indirect, alias)
		}
	}

	remaining := maxCount - len(direct)
	if remaining > 0 && len(indirect) > 0 {
		indirect = applyPriorityFilter(indirect, remaining)
	} else {
		indirect = nil
	}

	return append(direct, indirect...)
}

func determineTestsToRun(taskType string, filesToModify []string, projectDir string, clarifyingQuestions *[]string) []string {
	if taskType != "code" {
		return nil
	}
	if len(filesToModify) == 0 {
		if !containsString(*clarifyingQuestions, "Which files will be modified?") {
			*clarifyingQuestions = append(*clarifyingQuestions, "Which files will be modified?")
		}
		return nil
	}

	hasIPCChange := false
	for _, f := range filesToModify {
		if fileHasIPCMarker(projectDir, f) {
			hasIPCChange = true
			break
		}
	}

	var tests []string
	seen := map[string]bool{}
	for _, f := range filesToModify {
		for _, alias := range testsForFile(projectDir, f, hasIPCChange) {
			if !seen[alias] {
				tests = append(tests, alias)
				seen[alias] = true
			}
		}
	}

	if len(tests) > 2 {
		tests = applySmartCap(tests, filesToModify, 2)
	}
	return tests
}

func containsString(items []string, target string) bool {
	for _, i := range items {
		if i == target {
			return true
		}
	}
	return false
}

// resolveFilesToModify implements the files_to_modify resolution order:
// requirements.json's explicit list wins outright; otherwise non-code
// tasks resolve to none; otherwise 1-2 concrete scope_contract candidates
// are accepted with a confirmation question, and anything else is left
// empty with a clarifying question.
func resolveFilesToModify(taskType string, req *Requirements, contract *ScopeContract, clarifyingQuestions *[]string) (files []string, source string, inferred bool) {
	if len(req.FilesToModify) > 0 {
		return req.FilesToModify, "requirements.json", false
	}

	if taskType != "code" {
		return nil, "none", false
	}

	var concrete []string
	for _, path := range contract.CandidateFiles {
		if isConcreteFile(path) {
			concrete = append(concrete, path)
		}
	}

	if len(concrete) > 0 && len(concrete) <= 2 {
		*clarifyingQuestions = append(*clarifyingQuestions,
			"Confirm the list of files to modify: "+strings.Join(concrete, ", "))
		return concrete, "scope_contract", true
	}

	if len(contract.CandidateFiles) > 0 {
		*clarifyingQuestions = append(*clarifyingQuestions,
			"Narrow down the concrete files to modify (candidate_files is too broad).")
	} else {
		*clarifyingQuestions = append(*clarifyingQuestions, "Which files will be modified?")
	}
	return nil, "missing", true
}

func buildAcceptanceMap(acceptance, outputFiles []string, clarifyingQuestions *[]string) []AcceptanceMapEntry {
	mappedFile := ""
	if len(outputFiles) == 1 {
		mappedFile = outputFiles[0]
	} else if len(acceptance) > 0 {
		*clarifyingQuestions = append(*clarifyingQuestions,
			"Which output file does each acceptance criterion correspond to?")
	}
	var out []AcceptanceMapEntry
	for _, criterion := range acceptance {
		if criterion == "" {
			continue
		}
		out = append(out, AcceptanceMapEntry{Criterion: criterion, File: mappedFile})
	}
	return out
}

func inferTaskType(description, workflowType string) string {
	workflow := strings.ToLower(strings.TrimSpace(workflowType))
	switch workflow {
	case "docs", "documentation":
		return "content"
	case "audit", "analysis":
		return "analysis"
	case "plan", "planning":
		return "plan"
	}

	lower := strings.ToLower(description)
	for _, taskType := range []string{"analysis", "audit", "plan", "content"} {
		for _, kw := range taskTypeKeywords[taskType] {
			if strings.Contains(lower, kw) {
				return taskType
			}
		}
	}
	return "code"
}

func inferRisk(description string) string {
	lower := strings.ToLower(description)
	for _, kw := range highRiskKeywords {
		if strings.Contains(lower, kw) {
			return "high"
		}
	}
	return "low"
}

func inferAcceptance(description string, contract *ScopeContract) []string {
	if len(contract.Acceptance) > 0 {
		var out []string
		for _, item := range contract.Acceptance {
			if strings.TrimSpace(item) != "" {
				out = append(out, item)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	if strings.TrimSpace(description) != "" {
		return []string{"Deliver: " + strings.TrimSpace(description)}
	}
	return nil
}

func determineNoiseProfile(taskType, complexityLevel string) string {
	if taskType != "code" {
		return "low"
	}
	switch complexityLevel {
	case "simple":
		return "low"
	case "medium":
		return "medium"
	default:
		return "high"
	}
}

// calculateComplexity scores 1-3 from estimated file count, +1 if the
// project is multi-service, +2 if the description implies external
// integrations, +2 if it implies infrastructure changes, then buckets the
// score into simple (<=2) / medium (<=5) / complex (>5) per spec.md.
func calculateComplexity(idx ProjectIndexSnapshot, description string, estimatedFiles int) (level string, score int) {
	switch {
	case estimatedFiles <= 2:
		score += 1
	case estimatedFiles <= 6:
		score += 2
	default:
		score += 3
	}

	if len(idx.Services) > 1 {
		score++
	}

	lower := strings.ToLower(description)
	for _, kw := range externalIntegrationKeywords {
		if strings.Contains(lower, kw) {
			score += 2
			break
		}
	}
	for _, kw := range infrastructureKeywords {
		if strings.Contains(lower, kw) {
			score += 2
			break
		}
	}

	switch {
	case score <= 2:
		level = "simple"
	case score <= 5:
		level = "medium"
	default:
		level = "complex"
	}
	return level, score
}

// PreflightInput carries every input the preflight scoper needs beyond
// what's already on disk.
type PreflightInput struct {
	SpecDir           string
	ProjectDir        string
	TaskDescription   string
	ProjectIndex      ProjectIndexSnapshot
	EstimatedFiles    int
	Clock             func() time.Time // injected for deterministic tests; defaults to time.Now
}

// RunPreflightScoper derives and persists task_intake.json from the
// spec directory's requirements.json and scope_contract.json, mirroring
// preflight_scoper.py's run_preflight_scoper end to end.
func RunPreflightScoper(in PreflightInput) (*TaskIntake, error) {
	req, err := LoadRequirements(in.SpecDir)
	if err != nil {
		return nil, err
	}
	contract := LoadScopeContract(in.SpecDir)

	taskDesc := in.TaskDescription
	if taskDesc == "" {
		taskDesc = req.TaskDescription
	}

	taskType := inferTaskType(taskDesc, req.WorkflowType)
	risk := inferRisk(taskDesc)

	estimatedFiles := in.EstimatedFiles
	if estimatedFiles == 0 {
		estimatedFiles = len(contract.CandidateFiles)
	}
	complexityLevel, complexityScore := calculateComplexity(in.ProjectIndex, taskDesc, estimatedFiles)
	noiseProfile := determineNoiseProfile(taskType, complexityLevel)

	var clarifyingQuestions []string
	validType := false
	for _, v := range TaskTypeValues {
		if v == taskType {
			validType = true
			break
		}
	}
	if !validType {
		clarifyingQuestions = append(clarifyingQuestions, "Clarify task_type (code | analysis | plan | audit | content).")
	}

	acceptance := inferAcceptance(taskDesc, contract)
	if len(acceptance) == 0 {
		clarifyingQuestions = append(clarifyingQuestions, "Provide explicit acceptance criteria.")
	}

	outputFiles := contract.CandidateFiles

	filesToModify, filesSource, filesInferred := resolveFilesToModify(taskType, req, contract, &clarifyingQuestions)

	acceptanceMap := buildAcceptanceMap(acceptance, outputFiles, &clarifyingQuestions)

	testsToRun := determineTestsToRun(taskType, filesToModify, in.ProjectDir, &clarifyingQuestions)

	ralphLoop := taskType == "code" && noiseProfile == "high"

	intake := &TaskIntake{
		TaskType:              taskType,
		Complexity:            complexityLevel,
		ComplexityScore:       complexityScore,
		Risk:                  risk,
		NoiseProfile:          noiseProfile,
		InputFiles:            req.InputFiles,
		OutputFiles:           outputFiles,
		FilesToModify:         filesToModify,
		FilesToModifySource:   filesSource,
		FilesToModifyInferred: filesInferred,
		TestsToRun:            testsToRun,
		AcceptanceMap:         acceptanceMap,
		ClarifyingQuestions:   clarifyingQuestions,
		RalphLoop:             ralphLoop,
		RalphLoopMax:          3,
	}

	if req.Intake != nil {
		intake.IntakeResult = req.Intake
		clock := in.Clock
		if clock == nil {
			clock = time.Now
		}
		if err := writeVersionedIntakeReport(in.SpecDir, req.Intake, clock()); err != nil {
			return nil, err
		}
	}

	if err := WriteTaskIntake(in.SpecDir, intake); err != nil {
		return nil, err
	}
	return intake, nil
}
