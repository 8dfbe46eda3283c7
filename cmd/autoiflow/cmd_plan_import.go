package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/auto-iflow/autoiflow/internal/planimporter"
)

var (
	planImportFile          string
	planImportMaxConcurrency int
	planImportAgentPipeline bool
	planImportAgentProfiles string
)

// planImportCmd parses a hand-written markdown task plan into normalized,
// schedulable tasks.
var planImportCmd = &cobra.Command{
	Use:   "plan-import",
	Short: "Parse a markdown task plan into normalized tasks and a schedule",
	RunE:  runPlanImport,
}

func registerPlanImportCmd() {
	planImportCmd.Flags().StringVar(&planImportFile, "file", "", "Markdown plan file (required)")
	planImportCmd.Flags().IntVar(&planImportMaxConcurrency, "max-concurrency", 4, "Maximum parallel group size")
	planImportCmd.Flags().BoolVar(&planImportAgentPipeline, "agent-pipeline", false, "Record agent-pipeline metadata (decompose stage)")
	planImportCmd.Flags().StringVar(&planImportAgentProfiles, "agent-profiles", "", "JSON object mapping task title to agent profile")
	planImportCmd.MarkFlagRequired("file")
}

func runPlanImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(planImportFile)
	if err != nil {
		return fmt.Errorf("plan-import: reading %s: %w", planImportFile, err)
	}

	var result planimporter.Result
	if planImportAgentPipeline {
		var profiles map[string]string
		if planImportAgentProfiles != "" {
			if jerr := json.Unmarshal([]byte(planImportAgentProfiles), &profiles); jerr != nil {
				return fmt.Errorf("plan-import: parsing --agent-profiles: %w", jerr)
			}
		}
		result, err = planimporter.RunAgentPipeline(string(data), planImportMaxConcurrency, profiles)
	} else {
		result, err = planimporter.Run(string(data), planImportMaxConcurrency)
	}
	if err != nil {
		return fmt.Errorf("plan-import: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
