package models

import (
	"encoding/json"
	"os"
)

// ThinkingParams maps a thinking level name to its token budget. A level of
// "none" carries no budget (nil), matching models that do not support
// extended thinking at all.
var ThinkingParams = map[string]*int{
	"none":       nil,
	"low":        intPtr(1024),
	"medium":     intPtr(4096),
	"high":       intPtr(16384),
	"ultrathink": intPtr(65536),
}

func intPtr(v int) *int { return &v }

// PipelineContext is the {phase, feature, roles} bucket a named pipeline
// resolves into for model routing purposes.
type PipelineContext struct {
	Phase     string
	Feature   string
	Roles     []string
	Role      string
	Bootstrap bool
}

// PipelineModelContext is the static table of known pipeline names to their
// routing context, mirroring PIPELINE_MODEL_CONTEXT in the Python reference.
var PipelineModelContext = map[string]PipelineContext{
	"spec_runner":               {Phase: "spec"},
	"planning_runner":           {Phase: "planning"},
	"coding_runner":             {Phase: "coding"},
	"validation_runner":         {Phase: "validation"},
	"consilium_orchestrator":    {Feature: "consilium", Roles: []string{"innovator", "realist", "facilitator"}},
	"insight_extractor":         {Feature: "insights", Role: "extractor"},
	"ideation_generator":        {Feature: "ideation"},
	"github_batch_issues":       {Feature: "github", Role: "batch"},
	"github_followup_reviewer":  {Feature: "github", Role: "followUp"},
	"merge_resolver":            {Feature: "merge", Role: "resolver"},
	"commit_message":            {Feature: "commit", Role: "message"},
	"spec_compaction":           {Bootstrap: true},
}

// GetPipelineContext looks up a pipeline's routing context, optionally
// overriding its role.
func GetPipelineContext(pipelineName string, role string) PipelineContext {
	ctx := PipelineModelContext[pipelineName]
	if role != "" {
		ctx.Role = role
	}
	return ctx
}

func normalizePhase(phase string) string {
	if phase == "qa" {
		return "validation"
	}
	return phase
}

// routingChoice is one {model, thinkingLevel} entry inside a routing
// document's phases/features/advancedRoles maps.
type routingChoice struct {
	Model         string `json:"model"`
	ThinkingLevel string `json:"thinkingLevel"`
}

// routingDocument is the modelRouting section of task_metadata.json,
// project.env.json, or an app settings file.
type routingDocument struct {
	Phases        map[string]routingChoice            `json:"phases"`
	Features      map[string]routingChoice            `json:"features"`
	AdvancedRoles map[string]map[string]routingChoice `json:"advancedRoles"`
}

func selectChoice(routing routingDocument, phase, feature, role string) (routingChoice, bool) {
	if role != "" && feature != "" {
		if byFeature, ok := routing.AdvancedRoles[feature]; ok {
			if choice, ok := byFeature[role]; ok {
				return choice, true
			}
		}
	}
	if feature != "" {
		if choice, ok := routing.Features[feature]; ok {
			return choice, true
		}
	}
	if phase != "" {
		if choice, ok := routing.Phases[phase]; ok {
			return choice, true
		}
	}
	return routingChoice{}, false
}

func resolveFromSources(sources []routingDocument, phase, feature, role string) (model, thinkingLevel string) {
	for _, routing := range sources {
		choice, ok := selectChoice(routing, phase, feature, role)
		if !ok {
			continue
		}
		if model == "" && choice.Model != "" {
			model = choice.Model
		}
		if thinkingLevel == "" && choice.ThinkingLevel != "" {
			thinkingLevel = choice.ThinkingLevel
		}
		if model != "" && thinkingLevel != "" {
			break
		}
	}
	return model, thinkingLevel
}

func (r *Registry) recommendedModel(phase, feature string) string {
	for _, m := range r.Models {
		for _, rec := range m.RecommendedFor {
			if (phase != "" && rec == phase) || (feature != "" && rec == feature) {
				return m.ID
			}
		}
	}
	if len(r.Models) > 0 {
		return r.Models[0].ID
	}
	return ""
}

func (r *Registry) thinkingBudget(thinkingLevel, modelID string, profile *APIProfile, warn Warner) (string, *int) {
	info, ok := r.GetModelInfo(modelID, profile, warn)
	supportsThinking := true
	if ok {
		supportsThinking = info.SupportsThinking
	}
	if !supportsThinking {
		return "none", nil
	}

	level := thinkingLevel
	if _, known := ThinkingParams[level]; !known {
		level = "medium"
	}
	return level, ThinkingParams[level]
}

func loadJSONRouting(path string) routingDocument {
	var wrapper struct {
		ModelRouting routingDocument `json:"modelRouting"`
	}
	if path == "" {
		return routingDocument{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return routingDocument{}
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return routingDocument{}
	}
	return wrapper.ModelRouting
}

// ResolveRequest carries every optional input to Resolve. CLIModel and
// CLIThinking, when set, win over every other source.
type ResolveRequest struct {
	Phase             string
	Feature           string
	Role              string
	TaskMetadataPath  string // spec_dir/task_metadata.json, if any
	ProjectEnvPath    string // project_dir/.auto-iflow/project.env.json
	AppSettingsPath   string // $AUTO_CLAUDE_SETTINGS_PATH or an explicit override
	CLIModel          string
	CLIThinking       string
	Profile           *APIProfile
	Warn              Warner
}

// ResolvedModel is the outcome of Resolve: a concrete model id, the
// thinking level name that won, and its token budget (nil if none/unsupported).
type ResolvedModel struct {
	ModelID        string
	ThinkingLevel  string
	ThinkingBudget *int
}

// Resolve implements the full model-routing precedence chain documented in
// spec.md: CLI overrides > task_metadata.json (advancedRoles > features >
// phases) > project.env.json > app settings > recommended-for fallback.
// Thinking level resolves independently of model id using the same source
// order, then is clamped to "none" for models that do not support it.
func (r *Registry) Resolve(req ResolveRequest) ResolvedModel {
	phase := normalizePhase(req.Phase)

	appSettingsPath := req.AppSettingsPath
	if appSettingsPath == "" {
		appSettingsPath = os.Getenv("AUTO_CLAUDE_SETTINGS_PATH")
	}

	sources := []routingDocument{
		loadJSONRouting(req.TaskMetadataPath),
		loadJSONRouting(req.ProjectEnvPath),
		loadJSONRouting(appSettingsPath),
	}

	modelValue, thinkingLevel := resolveFromSources(sources, phase, req.Feature, req.Role)

	if req.CLIModel != "" {
		modelValue = req.CLIModel
	}
	if req.CLIThinking != "" {
		thinkingLevel = req.CLIThinking
	}

	if modelValue == "" {
		modelValue = r.recommendedModel(phase, req.Feature)
	}
	if thinkingLevel == "" {
		thinkingLevel = "medium"
	}

	modelID := r.ResolveModelID(modelValue, req.Profile, req.Warn)
	resolvedLevel, budget := r.thinkingBudget(thinkingLevel, modelID, req.Profile, req.Warn)

	return ResolvedModel{ModelID: modelID, ThinkingLevel: resolvedLevel, ThinkingBudget: budget}
}
