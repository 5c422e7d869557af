package toolchain

import (
	"errors"
	"fmt"
)

const (
	toolExecutionErrorTemplateConstant   = "%s stage exited with code %d"
	shellNotConfiguredMessageConstant    = "compatibility shell path is required for shell invocation"
	executorNotConfiguredMessageConstant = "command executor is required"
	invalidSampleRateTemplateConstant    = "sample rate must be positive, got %d"
)

// ErrShellNotConfigured indicates the shell strategy was selected without a shell executable.
var ErrShellNotConfigured = errors.New(shellNotConfiguredMessageConstant)

// ErrExecutorNotConfigured indicates a strategy was built without a command executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// Stage names one half of the round trip.
type Stage string

// Round-trip stages.
const (
	StageEncode Stage = Stage("encode")
	StageDecode Stage = Stage("decode")
)

// ToolExecutionError reports a tool invocation that exited with a non-zero status.
type ToolExecutionError struct {
	Stage          Stage
	Command        []string
	ExitCode       int
	StandardOutput string
	StandardError  string
}

// Error describes the failing stage and its exit code.
func (executionError *ToolExecutionError) Error() string {
	return fmt.Sprintf(toolExecutionErrorTemplateConstant, executionError.Stage, executionError.ExitCode)
}

// InvalidSampleRateError reports a non-positive sample rate.
type InvalidSampleRateError struct {
	SampleRate int
}

// Error describes the rejected rate.
func (rateError InvalidSampleRateError) Error() string {
	return fmt.Sprintf(invalidSampleRateTemplateConstant, rateError.SampleRate)
}

// ValidateSampleRate rejects rates the tools cannot accept.
func ValidateSampleRate(sampleRate int) error {
	if sampleRate <= 0 {
		return InvalidSampleRateError{SampleRate: sampleRate}
	}
	return nil
}
