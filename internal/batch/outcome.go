package batch

import (
	"github.com/temirov/brrbatch/internal/cleanup"
	"github.com/temirov/brrbatch/internal/toolchain"
)

// Status classifies how one item finished.
type Status string

// Item statuses.
const (
	StatusSucceeded         Status = Status("succeeded")
	StatusToolFailure       Status = Status("tool_failure")
	StatusUnexpectedFailure Status = Status("unexpected_failure")
	StatusPlanned           Status = Status("planned")
)

// ItemOutcome is the typed result of processing one ConversionJob.
type ItemOutcome struct {
	Job       toolchain.ConversionJob
	Status    Status
	ToolError *toolchain.ToolExecutionError
	Failure   error
	Stack     string
	Cleanup   cleanup.Outcome
}

// Failed reports whether the item counts towards the failure total.
func (outcome ItemOutcome) Failed() bool {
	return outcome.Status == StatusToolFailure || outcome.Status == StatusUnexpectedFailure
}

// Attempted reports whether the tools were actually invoked for the item.
func (outcome ItemOutcome) Attempted() bool {
	return outcome.Status != StatusPlanned
}
