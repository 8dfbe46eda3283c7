package main

import (
	"os"
	"strings"

	"github.com/auto-iflow/autoiflow/internal/appconfig"
	"github.com/auto-iflow/autoiflow/internal/external"
	"github.com/auto-iflow/autoiflow/internal/external/genaibackend"
	"github.com/auto-iflow/autoiflow/internal/external/subprocessbackend"
)

// resolveModelsPath finds the model registry JSON: the path recorded in
// config, otherwise the well-known "models.json" resolved against the
// working directory. No data-dir copy is looked up.
func resolveModelsPath(cfg *appconfig.Config) string {
	if cfg.Models.RegistryPath != "" {
		return cfg.Models.RegistryPath
	}
	return "models.json"
}

// selectBackend picks the external.ModelBackend implementation for this
// run: an AUTO_IFLOW_AGENT_CMD environment variable selects the
// subprocess backend (any long-running external agent CLI speaking the
// newline-JSON wire protocol); otherwise falls back to the Gemini backend
// using AUTO_IFLOW_GEMINI_API_KEY/GEMINI_API_KEY.
func selectBackend() external.ModelBackend {
	if cmdLine := os.Getenv("AUTO_IFLOW_AGENT_CMD"); cmdLine != "" {
		parts := strings.Fields(cmdLine)
		if len(parts) > 0 {
			return subprocessbackend.New(parts[0], parts[1:], projectDir)
		}
	}
	key := os.Getenv("AUTO_IFLOW_GEMINI_API_KEY")
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	return genaibackend.New(key)
}
