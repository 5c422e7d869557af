package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/brrbatch/internal/cleanup"
	"github.com/temirov/brrbatch/internal/toolchain"
	"github.com/temirov/brrbatch/internal/wavinfo"
)

const (
	diagnosticSeparatorWidthConstant = 70
	diagnosticSeparatorRuneConstant  = "="

	toolFailureHeaderTemplateConstant      = "\n%s\nERROR processing %s\n"
	toolFailureExitCodeTemplateConstant    = "Exit code: %d\n"
	toolFailureStageTemplateConstant       = "Stage: %s\n"
	toolFailureStdoutTemplateConstant      = "Stdout: %s\n"
	toolFailureStderrTemplateConstant      = "Stderr: %s\n"
	diagnosticFooterTemplateConstant       = "%s\n"
	unexpectedFailureTemplateConstant      = "\nUnexpected error processing %s: %v\n"
	unexpectedFailureStackTemplateConstant = "%s\n"
	recoveredPanicTemplateConstant         = "panic: %v"

	summaryHeaderTemplateConstant      = "\n%s\nBatch processing complete!\n"
	summarySuccessTemplateConstant     = "  Success: %d/%d\n"
	summaryErrorsTemplateConstant      = "  Errors:  %d/%d\n"
	summaryPlannedTemplateConstant     = "  Planned: %d/%d\n"
	summaryInterruptedTemplateConstant = "  Interrupted after %d/%d\n"

	batchStartedMessageConstant           = "batch started"
	batchCompletedMessageConstant         = "batch completed"
	batchInterruptedMessageConstant       = "batch interrupted"
	itemPlannedMessageConstant            = "conversion planned"
	itemSucceededMessageConstant          = "conversion succeeded"
	itemToolFailureMessageConstant        = "conversion tool failed"
	itemUnexpectedFailureMessageConstant  = "conversion failed unexpectedly"
	outputInspectedMessageConstant        = "output inspected"
	outputInspectionFailedMessageConstant = "output inspection failed"
	runIdentifierFieldNameConstant        = "run_id"
	strategyFieldNameConstant             = "strategy"
	totalFieldNameConstant                = "total"
	succeededFieldNameConstant            = "succeeded"
	failedFieldNameConstant               = "failed"
	remainingFieldNameConstant            = "remaining"
	inputFieldNameConstant                = "input"
	outputFieldNameConstant               = "output"
	temporaryFieldNameConstant            = "temporary"
	stageFieldNameConstant                = "stage"
	exitCodeFieldNameConstant             = "exit_code"
	sampleRateFieldNameConstant           = "sample_rate"
	channelsFieldNameConstant             = "channels"
	bitDepthFieldNameConstant             = "bit_depth"
	durationFieldNameConstant             = "duration"
	cleanupAttemptsFieldNameConstant      = "cleanup_attempts"
	orphanedFieldNameConstant             = "orphaned"
	strategyNotConfiguredMessageConstant  = "invocation strategy is required"
	cleanerNotConfiguredMessageConstant   = "temporary artifact cleaner is required"
)

// ErrStrategyNotConfigured indicates the processor was built without an invocation strategy.
var ErrStrategyNotConfigured = errors.New(strategyNotConfiguredMessageConstant)

// ErrCleanerNotConfigured indicates the processor was built without an artifact cleaner.
var ErrCleanerNotConfigured = errors.New(cleanerNotConfiguredMessageConstant)

// State is the lifecycle position of a Processor.
type State string

// Processor states.
const (
	StateIdle     State = State("idle")
	StateRunning  State = State("running")
	StateComplete State = State("complete")
)

// ArtifactCleaner removes the intermediate artifact of a successful item.
type ArtifactCleaner interface {
	Cleanup(executionContext context.Context, temporaryPath string) cleanup.Outcome
}

// ProgressIndicator is advanced once per item.
type ProgressIndicator interface {
	Describe(itemName string)
	Advance()
	Finish()
}

// OutputInspector reads produced WAV headers for debug logging.
type OutputInspector interface {
	Inspect(path string) (wavinfo.Info, error)
}

// Options wires a Processor.
type Options struct {
	Logger      *zap.Logger
	Strategy    toolchain.InvocationStrategy
	Cleaner     ArtifactCleaner
	Progress    ProgressIndicator
	Inspector   OutputInspector
	Summary     Reporter
	Diagnostics Reporter
	SampleRate  int
	DryRun      bool
	RunID       string
}

// Processor converts jobs sequentially and aggregates their outcomes.
type Processor struct {
	logger      *zap.Logger
	strategy    toolchain.InvocationStrategy
	cleaner     ArtifactCleaner
	progress    ProgressIndicator
	inspector   OutputInspector
	summary     Reporter
	diagnostics Reporter
	sampleRate  int
	dryRun      bool
	runID       string
	state       State
}

// NewProcessor validates options and constructs an idle Processor.
func NewProcessor(options Options) (*Processor, error) {
	if options.Strategy == nil {
		return nil, ErrStrategyNotConfigured
	}
	if options.Cleaner == nil {
		return nil, ErrCleanerNotConfigured
	}
	if rateError := toolchain.ValidateSampleRate(options.SampleRate); rateError != nil {
		return nil, rateError
	}

	runID := strings.TrimSpace(options.RunID)
	if len(runID) == 0 {
		runID = uuid.NewString()
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	progress := options.Progress
	if progress == nil {
		progress = noopProgressIndicator{}
	}

	summary := options.Summary
	if summary == nil {
		summary = NewWriterReporter(os.Stdout)
	}

	diagnostics := options.Diagnostics
	if diagnostics == nil {
		diagnostics = NewWriterReporter(os.Stderr)
	}

	return &Processor{
		logger:      logger.With(zap.String(runIdentifierFieldNameConstant, runID)),
		strategy:    options.Strategy,
		cleaner:     options.Cleaner,
		progress:    progress,
		inspector:   options.Inspector,
		summary:     summary,
		diagnostics: diagnostics,
		sampleRate:  options.SampleRate,
		dryRun:      options.DryRun,
		runID:       runID,
		state:       StateIdle,
	}, nil
}

// State reports the lifecycle position.
func (processor *Processor) State() State {
	return processor.state
}

// RunID identifies this processor's run in logs and reports.
func (processor *Processor) RunID() string {
	return processor.runID
}

// Run processes jobs in order. Per-item failures never abort the loop; a cancelled
// context stops it before the next item starts.
func (processor *Processor) Run(executionContext context.Context, jobs []toolchain.ConversionJob) Result {
	processor.state = StateRunning
	result := Result{
		RunID:      processor.runID,
		Strategy:   processor.strategy.Name(),
		SampleRate: processor.sampleRate,
		DryRun:     processor.dryRun,
		Total:      len(jobs),
		Outcomes:   make([]ItemOutcome, 0, len(jobs)),
	}

	processor.logger.Info(
		batchStartedMessageConstant,
		zap.String(strategyFieldNameConstant, result.Strategy),
		zap.Int(totalFieldNameConstant, result.Total),
		zap.Int(sampleRateFieldNameConstant, processor.sampleRate),
	)

	for jobIndex, job := range jobs {
		if executionContext.Err() != nil {
			result.Interrupted = true
			processor.logger.Warn(
				batchInterruptedMessageConstant,
				zap.Int(remainingFieldNameConstant, len(jobs)-jobIndex),
				zap.Error(executionContext.Err()),
			)
			break
		}

		processor.progress.Describe(job.DisplayName())
		outcome := processor.processItem(executionContext, job)
		result.record(outcome)
		processor.reportOutcome(outcome)
		processor.progress.Advance()
	}

	processor.progress.Finish()
	processor.state = StateComplete

	processor.logger.Info(
		batchCompletedMessageConstant,
		zap.Int(totalFieldNameConstant, result.Total),
		zap.Int(succeededFieldNameConstant, result.Succeeded),
		zap.Int(failedFieldNameConstant, result.Failed),
	)
	processor.printSummary(result)
	return result
}

func (processor *Processor) processItem(executionContext context.Context, job toolchain.ConversionJob) (outcome ItemOutcome) {
	outcome = ItemOutcome{Job: job}

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome.Status = StatusUnexpectedFailure
			outcome.ToolError = nil
			outcome.Failure = fmt.Errorf(recoveredPanicTemplateConstant, recovered)
			outcome.Stack = string(debug.Stack())
		}
	}()

	if processor.dryRun {
		outcome.Status = StatusPlanned
		return outcome
	}

	invocationError := processor.strategy.Invoke(executionContext, job, processor.sampleRate)
	if invocationError != nil {
		var toolError *toolchain.ToolExecutionError
		if errors.As(invocationError, &toolError) {
			outcome.Status = StatusToolFailure
			outcome.ToolError = toolError
			outcome.Failure = invocationError
			return outcome
		}
		outcome.Status = StatusUnexpectedFailure
		outcome.Failure = invocationError
		outcome.Stack = string(debug.Stack())
		return outcome
	}

	outcome.Status = StatusSucceeded
	outcome.Cleanup = processor.cleaner.Cleanup(executionContext, job.TempPath)
	processor.inspectOutput(job)
	return outcome
}

func (processor *Processor) inspectOutput(job toolchain.ConversionJob) {
	if processor.inspector == nil || !processor.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	info, inspectError := processor.inspector.Inspect(job.OutputPath)
	if inspectError != nil {
		processor.logger.Debug(outputInspectionFailedMessageConstant, zap.String(outputFieldNameConstant, job.OutputPath), zap.Error(inspectError))
		return
	}
	processor.logger.Debug(
		outputInspectedMessageConstant,
		zap.String(outputFieldNameConstant, job.OutputPath),
		zap.Int(sampleRateFieldNameConstant, info.SampleRate),
		zap.Int(channelsFieldNameConstant, info.Channels),
		zap.Int(bitDepthFieldNameConstant, info.BitDepth),
		zap.Duration(durationFieldNameConstant, info.Duration),
	)
}

func (processor *Processor) reportOutcome(outcome ItemOutcome) {
	job := outcome.Job
	switch outcome.Status {
	case StatusPlanned:
		processor.logger.Info(
			itemPlannedMessageConstant,
			zap.String(inputFieldNameConstant, job.InputPath),
			zap.String(temporaryFieldNameConstant, job.TempPath),
			zap.String(outputFieldNameConstant, job.OutputPath),
		)
	case StatusSucceeded:
		processor.logger.Debug(
			itemSucceededMessageConstant,
			zap.String(inputFieldNameConstant, job.InputPath),
			zap.String(outputFieldNameConstant, job.OutputPath),
			zap.Int(cleanupAttemptsFieldNameConstant, outcome.Cleanup.Attempts),
			zap.Bool(orphanedFieldNameConstant, outcome.Cleanup.Orphaned),
		)
	case StatusToolFailure:
		processor.logger.Debug(
			itemToolFailureMessageConstant,
			zap.String(inputFieldNameConstant, job.InputPath),
			zap.String(stageFieldNameConstant, string(outcome.ToolError.Stage)),
			zap.Int(exitCodeFieldNameConstant, outcome.ToolError.ExitCode),
		)
		processor.printToolFailure(outcome)
	default:
		processor.logger.Error(
			itemUnexpectedFailureMessageConstant,
			zap.String(inputFieldNameConstant, job.InputPath),
			zap.Error(outcome.Failure),
		)
		processor.printUnexpectedFailure(outcome)
	}
}

func (processor *Processor) printToolFailure(outcome ItemOutcome) {
	separator := strings.Repeat(diagnosticSeparatorRuneConstant, diagnosticSeparatorWidthConstant)
	toolError := outcome.ToolError

	processor.diagnostics.Printf(toolFailureHeaderTemplateConstant, separator, outcome.Job.DisplayName())
	processor.diagnostics.Printf(toolFailureStageTemplateConstant, toolError.Stage)
	processor.diagnostics.Printf(toolFailureExitCodeTemplateConstant, toolError.ExitCode)
	if trimmedOutput := strings.TrimSpace(toolError.StandardOutput); len(trimmedOutput) > 0 {
		processor.diagnostics.Printf(toolFailureStdoutTemplateConstant, trimmedOutput)
	}
	if trimmedError := strings.TrimSpace(toolError.StandardError); len(trimmedError) > 0 {
		processor.diagnostics.Printf(toolFailureStderrTemplateConstant, trimmedError)
	}
	processor.diagnostics.Printf(diagnosticFooterTemplateConstant, separator)
}

func (processor *Processor) printUnexpectedFailure(outcome ItemOutcome) {
	processor.diagnostics.Printf(unexpectedFailureTemplateConstant, outcome.Job.DisplayName(), outcome.Failure)
	if len(outcome.Stack) > 0 {
		processor.diagnostics.Printf(unexpectedFailureStackTemplateConstant, outcome.Stack)
	}
}

func (processor *Processor) printSummary(result Result) {
	separator := strings.Repeat(diagnosticSeparatorRuneConstant, diagnosticSeparatorWidthConstant)
	processor.summary.Printf(summaryHeaderTemplateConstant, separator)
	processor.summary.Printf(summarySuccessTemplateConstant, result.Succeeded, result.Total)
	processor.summary.Printf(summaryErrorsTemplateConstant, result.Failed, result.Total)
	if result.DryRun {
		processor.summary.Printf(summaryPlannedTemplateConstant, result.Planned, result.Total)
	}
	if result.Interrupted {
		processor.summary.Printf(summaryInterruptedTemplateConstant, len(result.Outcomes), result.Total)
	}
	processor.summary.Printf(diagnosticFooterTemplateConstant, separator)
}

type noopProgressIndicator struct{}

func (noopProgressIndicator) Describe(string) {}

func (noopProgressIndicator) Advance() {}

func (noopProgressIndicator) Finish() {}
