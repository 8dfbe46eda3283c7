package scope

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ValidationResult mirrors the teacher/original's ValidationResult shape:
// an overall pass/fail plus human-readable errors, warnings, and fixes.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Name     string   `json:"name"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Fixes    []string `json:"fixes,omitempty"`
}

var scopeContractRequiredFields = []string{
	"intent", "outcome", "where", "why", "when", "acceptance", "test_plan", "allowed_paths",
}

var scopeContractIntentValues = map[string]bool{
	"create": true, "change": true, "delete": true, "investigate": true,
}

func isEmptyJSONValue(raw json.RawMessage) bool {
	if raw == nil {
		return true
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []interface{}:
		return len(val) == 0
	}
	return false
}

// ValidateScopeContractFile validates scope_contract.json on disk against
// the required-field schema and the allowed/forbidden overlap rules.
func ValidateScopeContractFile(specDir string) ValidationResult {
	path := filepath.Join(specDir, "scope_contract.json")

	data, err := os.ReadFile(path)
	if err != nil {
		return ValidationResult{
			Valid:  false,
			Name:   "scope_contract",
			Errors: []string{"scope_contract.json not found"},
			Fixes:  []string{"Create scope_contract.json during preflight"},
		}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ValidationResult{
			Valid:  false,
			Name:   "scope_contract",
			Errors: []string{"scope_contract.json invalid JSON: " + err.Error()},
			Fixes:  []string{"Fix JSON syntax in scope_contract.json"},
		}
	}

	var errs, warnings []string

	var taskType string
	if tt, ok := raw["task_type"]; ok {
		_ = json.Unmarshal(tt, &taskType)
	}

	for _, field := range scopeContractRequiredFields {
		if field == "test_plan" && taskType != "" && taskType != "code" {
			continue
		}
		if isEmptyJSONValue(raw[field]) {
			errs = append(errs, "Missing required field: "+field)
		}
	}

	var intent string
	if v, ok := raw["intent"]; ok {
		_ = json.Unmarshal(v, &intent)
	}
	if intent != "" && !scopeContractIntentValues[intent] {
		errs = append(errs, "Invalid intent value: "+intent)
	}

	allowedPaths := decodeStringList(raw["allowed_paths"])
	forbiddenPaths := decodeStringList(raw["forbidden_paths"])

	ruleErrs, ruleWarnings := ValidateScopeRules(allowedPaths, forbiddenPaths)
	errs = append(errs, ruleErrs...)
	warnings = append(warnings, ruleWarnings...)

	var fixes []string
	if len(errs) > 0 {
		fixes = append(fixes, "Regenerate scope_contract.json with valid fields")
	}

	return ValidationResult{
		Valid:    len(errs) == 0,
		Name:     "scope_contract",
		Errors:   errs,
		Warnings: warnings,
		Fixes:    fixes,
	}
}

func decodeStringList(raw json.RawMessage) []string {
	if raw == nil {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
