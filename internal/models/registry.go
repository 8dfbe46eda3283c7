// Package models implements the model registry and resolver: loading the
// shared models.json catalog, validating id/alias uniqueness, merging
// per-profile custom models, and resolving a phase/feature/role request to
// a concrete model id and thinking budget.
package models

import (
	"encoding/json"
	"fmt"
	"os"
)

// Model is one entry in the shared model catalog.
type Model struct {
	ID               string   `json:"id"`
	DisplayName      string   `json:"displayName"`
	Tier             string   `json:"tier"`
	Aliases          []string `json:"aliases,omitempty"`
	SupportsThinking bool     `json:"supportsThinking"`
	RecommendedFor   []string `json:"recommendedFor,omitempty"`
}

// Registry is the parsed shared/models.json document.
type Registry struct {
	Models         []Model           `json:"models"`
	LegacyAliases  map[string]string `json:"legacyAliases"`
	BootstrapModel string            `json:"bootstrapModel"`
}

// CustomModel is a per-profile model override or addition. It requires the
// same fields as Model; entries missing a required field are skipped with
// a logged warning rather than failing the whole load.
type CustomModel = Model

// APIProfile carries the optional per-user custom model overrides.
type APIProfile struct {
	CustomModels []CustomModel `json:"custom_models"`
}

// Warner receives non-fatal registry warnings (duplicate overrides, skipped
// custom entries). A nil Warner discards them.
type Warner func(format string, args ...interface{})

// LoadRegistry reads and validates models.json at path. It fails closed on
// duplicate ids or alias collisions between distinct targets, matching the
// Python reference's load_model_registry.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("models: reading %s: %w", path, err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("models: parsing %s: %w", path, err)
	}

	if err := validateUniqueIDs(reg.Models); err != nil {
		return nil, err
	}
	if err := validateUniqueAliases(reg.Models, reg.LegacyAliases); err != nil {
		return nil, err
	}
	return &reg, nil
}

func validateUniqueIDs(models []Model) error {
	seen := make(map[string]bool, len(models))
	for _, m := range models {
		if m.ID == "" {
			return fmt.Errorf("models: model entry missing required 'id'")
		}
		if seen[m.ID] {
			return fmt.Errorf("models: duplicate model id in models.json: %s", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

func validateUniqueAliases(models []Model, legacyAliases map[string]string) error {
	seen := make(map[string]string)
	for alias, target := range legacyAliases {
		if prior, ok := seen[alias]; ok && prior != target {
			return fmt.Errorf("models: duplicate legacy alias in models.json: %s", alias)
		}
		seen[alias] = target
	}
	for _, m := range models {
		for _, alias := range m.Aliases {
			if prior, ok := seen[alias]; ok && prior != m.ID {
				return fmt.Errorf("models: alias collision in models.json: %s", alias)
			}
			seen[alias] = m.ID
		}
	}
	return nil
}

func collectAliases(models []Model) map[string]string {
	out := make(map[string]string, len(models))
	for _, m := range models {
		for _, alias := range m.Aliases {
			out[alias] = m.ID
		}
	}
	return out
}

func validateCustomModelEntry(m Model, warn Warner) bool {
	missing := []string{}
	if m.ID == "" {
		missing = append(missing, "id")
	}
	if m.DisplayName == "" {
		missing = append(missing, "displayName")
	}
	if m.Tier == "" {
		missing = append(missing, "tier")
	}
	// SupportsThinking is a bool and cannot be "missing" in Go's JSON model;
	// the Python reference treats an absent key the same as false, which
	// our zero value already matches.
	if len(missing) > 0 {
		if warn != nil {
			warn("custom model missing required fields %v; skipping entry: %s", missing, m.ID)
		}
		return false
	}
	return true
}

// AllModels returns the base catalog merged with any custom models from
// profile, with custom entries overriding a base model of the same id.
func (r *Registry) AllModels(profile *APIProfile, warn Warner) []Model {
	merged := make(map[string]Model, len(r.Models))
	order := make([]string, 0, len(r.Models))
	for _, m := range r.Models {
		merged[m.ID] = m
		order = append(order, m.ID)
	}

	if profile != nil {
		for _, custom := range profile.CustomModels {
			if !validateCustomModelEntry(custom, warn) {
				continue
			}
			if _, exists := merged[custom.ID]; exists && warn != nil {
				warn("custom model overrides base model id: %s", custom.ID)
			} else if !exists {
				order = append(order, custom.ID)
			}
			merged[custom.ID] = custom
		}
	}

	out := make([]Model, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}
	return out
}

// BuildAliasMap merges legacy aliases with per-model aliases collected from
// AllModels, with custom-model aliases taking precedence.
func (r *Registry) BuildAliasMap(profile *APIProfile, warn Warner) map[string]string {
	aliasMap := make(map[string]string, len(r.LegacyAliases))
	for k, v := range r.LegacyAliases {
		aliasMap[k] = v
	}

	custom := collectAliases(r.AllModels(profile, warn))
	for alias, target := range custom {
		if prior, ok := aliasMap[alias]; ok && prior != target && warn != nil {
			warn("custom alias overrides legacy alias: %s", alias)
		}
		aliasMap[alias] = target
	}
	return aliasMap
}

var haikuSonnetOpusEnvVars = map[string][]string{
	"haiku":  {"IFLOW_DEFAULT_HAIKU_MODEL"},
	"sonnet": {"IFLOW_DEFAULT_SONNET_MODEL"},
	"opus":   {"IFLOW_DEFAULT_OPUS_MODEL"},
}

// ResolveModelID resolves a shorthand/alias to a full model id. A shorthand
// of "haiku"/"sonnet"/"opus" is first checked against the matching
// IFLOW_DEFAULT_*_MODEL env var before falling back to the alias map, then
// to the literal input if no alias matches.
func (r *Registry) ResolveModelID(model string, profile *APIProfile, warn Warner) string {
	if envVars, ok := haikuSonnetOpusEnvVars[model]; ok {
		for _, envVar := range envVars {
			if v := os.Getenv(envVar); v != "" {
				return v
			}
		}
	}

	aliasMap := r.BuildAliasMap(profile, warn)
	if target, ok := aliasMap[model]; ok {
		return target
	}
	return model
}

// GetModelInfo returns the catalog entry for modelID, if any.
func (r *Registry) GetModelInfo(modelID string, profile *APIProfile, warn Warner) (Model, bool) {
	for _, m := range r.AllModels(profile, warn) {
		if m.ID == modelID {
			return m, true
		}
	}
	return Model{}, false
}

// GetBootstrapModel returns the registry's designated bootstrap model,
// erroring if the catalog does not declare one.
func (r *Registry) GetBootstrapModel() (string, error) {
	if r.BootstrapModel == "" {
		return "", fmt.Errorf("models: bootstrapModel missing from models.json")
	}
	return r.BootstrapModel, nil
}
