package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	reportDirectoryPermissionsConstant = 0o755
	reportFilePermissionsConstant      = 0o644
	reportMarshalErrorTemplateConstant = "unable to encode batch report: %w"
	reportWriteErrorTemplateConstant   = "unable to write batch report %s: %w"
)

// Result aggregates the outcomes of one run.
type Result struct {
	RunID       string
	Strategy    string
	SampleRate  int
	DryRun      bool
	Interrupted bool
	Total       int
	Succeeded   int
	Failed      int
	Planned     int
	Outcomes    []ItemOutcome
}

// Attempted counts items whose tools were invoked. It always equals Succeeded + Failed.
func (result Result) Attempted() int {
	attempted := 0
	for _, outcome := range result.Outcomes {
		if outcome.Attempted() {
			attempted++
		}
	}
	return attempted
}

// OrphanedArtifacts lists temporary files that could not be removed.
func (result Result) OrphanedArtifacts() []string {
	var orphaned []string
	for _, outcome := range result.Outcomes {
		if outcome.Cleanup.Orphaned {
			orphaned = append(orphaned, outcome.Job.TempPath)
		}
	}
	return orphaned
}

func (result *Result) record(outcome ItemOutcome) {
	result.Outcomes = append(result.Outcomes, outcome)
	switch {
	case outcome.Status == StatusSucceeded:
		result.Succeeded++
	case outcome.Failed():
		result.Failed++
	case outcome.Status == StatusPlanned:
		result.Planned++
	}
}

type batchReport struct {
	RunID       string       `yaml:"run_id"`
	Strategy    string       `yaml:"strategy"`
	SampleRate  int          `yaml:"sample_rate"`
	DryRun      bool         `yaml:"dry_run"`
	Interrupted bool         `yaml:"interrupted,omitempty"`
	Total       int          `yaml:"total"`
	Succeeded   int          `yaml:"succeeded"`
	Failed      int          `yaml:"failed"`
	Items       []itemReport `yaml:"items"`
}

type itemReport struct {
	Input           string `yaml:"input"`
	Output          string `yaml:"output"`
	Status          Status `yaml:"status"`
	Stage           string `yaml:"stage,omitempty"`
	ExitCode        *int   `yaml:"exit_code,omitempty"`
	Error           string `yaml:"error,omitempty"`
	CleanupAttempts int    `yaml:"cleanup_attempts,omitempty"`
	OrphanedTemp    string `yaml:"orphaned_temp,omitempty"`
}

// WriteReport stores the result as YAML at reportPath, creating parent directories.
func (result Result) WriteReport(reportPath string) error {
	encoded, marshalError := yaml.Marshal(result.buildReport())
	if marshalError != nil {
		return fmt.Errorf(reportMarshalErrorTemplateConstant, marshalError)
	}
	if directoryError := os.MkdirAll(filepath.Dir(reportPath), reportDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, directoryError)
	}
	if writeError := os.WriteFile(reportPath, encoded, reportFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, writeError)
	}
	return nil
}

func (result Result) buildReport() batchReport {
	report := batchReport{
		RunID:       result.RunID,
		Strategy:    result.Strategy,
		SampleRate:  result.SampleRate,
		DryRun:      result.DryRun,
		Interrupted: result.Interrupted,
		Total:       result.Total,
		Succeeded:   result.Succeeded,
		Failed:      result.Failed,
		Items:       make([]itemReport, 0, len(result.Outcomes)),
	}
	for _, outcome := range result.Outcomes {
		item := itemReport{
			Input:           outcome.Job.InputPath,
			Output:          outcome.Job.OutputPath,
			Status:          outcome.Status,
			CleanupAttempts: outcome.Cleanup.Attempts,
		}
		if outcome.ToolError != nil {
			exitCode := outcome.ToolError.ExitCode
			item.Stage = string(outcome.ToolError.Stage)
			item.ExitCode = &exitCode
		}
		if outcome.Failure != nil {
			item.Error = outcome.Failure.Error()
		}
		if outcome.Cleanup.Orphaned {
			item.OrphanedTemp = outcome.Job.TempPath
		}
		report.Items = append(report.Items, item)
	}
	return report
}
