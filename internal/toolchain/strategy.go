package toolchain

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/temirov/brrbatch/internal/execshell"
)

const (
	// EncoderExecutableName is the BRRtools encoder binary inside the bin directory.
	EncoderExecutableName = "brr_encoder"
	// DecoderExecutableName is the BRRtools decoder binary inside the bin directory.
	DecoderExecutableName = "brr_decoder"

	nativeStrategyNameConstant          = "native"
	shellStrategyNameConstant           = "compatibility-shell"
	encoderRateArgumentTemplateConstant = "-sb%d"
	decoderRateArgumentTemplateConstant = "-s%d"
	decoderGaussianFilterFlagConstant   = "-g"
	shellCommandFlagConstant            = "-c"
	shellWordSeparatorConstant          = " "
	shellDoubleQuoteConstant            = `"`
	stageFailureTemplateConstant        = "%s stage: %w"
	pathTranslationTemplateConstant     = "%s stage path translation: %w"
)

var shellDoubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

// CommandExecutor runs a single external command.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// PathTranslator rewrites native paths for the compatibility shell.
type PathTranslator interface {
	Translate(nativePath string) (string, error)
}

// InvocationStrategy performs the encode then decode round trip for one job.
type InvocationStrategy interface {
	Invoke(executionContext context.Context, job ConversionJob, sampleRate int) error
	Name() string
}

// StrategyOptions carries everything SelectStrategy needs to build either strategy.
type StrategyOptions struct {
	Executor              CommandExecutor
	BinDirectory          string
	UseCompatibilityShell bool
	CompatibilityShell    string
	Translator            PathTranslator
}

// SelectStrategy chooses the invocation strategy once for the whole run.
func SelectStrategy(options StrategyOptions) (InvocationStrategy, error) {
	if options.UseCompatibilityShell {
		return NewShellStrategy(options.Executor, options.BinDirectory, options.CompatibilityShell, options.Translator)
	}
	return NewNativeStrategy(options.Executor, options.BinDirectory)
}

type stageInvocation struct {
	stage   Stage
	command execshell.ShellCommand
}

// NativeStrategy executes the encoder and decoder binaries directly.
type NativeStrategy struct {
	executor     CommandExecutor
	binDirectory string
}

// NewNativeStrategy constructs a NativeStrategy for tools in binDirectory.
func NewNativeStrategy(executor CommandExecutor, binDirectory string) (*NativeStrategy, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &NativeStrategy{executor: executor, binDirectory: binDirectory}, nil
}

// Name identifies the strategy in logs.
func (strategy *NativeStrategy) Name() string {
	return nativeStrategyNameConstant
}

// Invoke runs brr_encoder -sb<rate> <in> <tmp> and then brr_decoder -s<rate> -g <tmp> <out>.
func (strategy *NativeStrategy) Invoke(executionContext context.Context, job ConversionJob, sampleRate int) error {
	if rateError := ValidateSampleRate(sampleRate); rateError != nil {
		return rateError
	}

	encoderPath := filepath.Join(strategy.binDirectory, EncoderExecutableName)
	decoderPath := filepath.Join(strategy.binDirectory, DecoderExecutableName)

	invocations := []stageInvocation{
		{
			stage: StageEncode,
			command: execshell.ShellCommand{
				Name:    execshell.CommandName(encoderPath),
				Role:    execshell.CommandRoleEncoder,
				Details: execshell.CommandDetails{Arguments: encoderArguments(sampleRate, job.InputPath, job.TempPath), WorkingDirectory: job.workingDirectory()},
				Subject: execshell.CommandSubject{SourcePath: job.InputPath, DestinationPath: job.TempPath, SampleRate: sampleRate},
			},
		},
		{
			stage: StageDecode,
			command: execshell.ShellCommand{
				Name:    execshell.CommandName(decoderPath),
				Role:    execshell.CommandRoleDecoder,
				Details: execshell.CommandDetails{Arguments: decoderArguments(sampleRate, job.TempPath, job.OutputPath), WorkingDirectory: job.workingDirectory()},
				Subject: execshell.CommandSubject{SourcePath: job.TempPath, DestinationPath: job.OutputPath, SampleRate: sampleRate},
			},
		},
	}

	return runStages(executionContext, strategy.executor, invocations)
}

// ShellStrategy runs each stage as `<shell> -c "<command>"` with translated paths.
type ShellStrategy struct {
	executor     CommandExecutor
	binDirectory string
	shellPath    string
	translator   PathTranslator
}

// NewShellStrategy constructs a ShellStrategy.
func NewShellStrategy(executor CommandExecutor, binDirectory string, shellPath string, translator PathTranslator) (*ShellStrategy, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if len(strings.TrimSpace(shellPath)) == 0 || translator == nil {
		return nil, ErrShellNotConfigured
	}
	return &ShellStrategy{
		executor:     executor,
		binDirectory: binDirectory,
		shellPath:    shellPath,
		translator:   translator,
	}, nil
}

// Name identifies the strategy in logs.
func (strategy *ShellStrategy) Name() string {
	return shellStrategyNameConstant
}

// Invoke translates the tool and file paths and runs both stages through the shell.
func (strategy *ShellStrategy) Invoke(executionContext context.Context, job ConversionJob, sampleRate int) error {
	if rateError := ValidateSampleRate(sampleRate); rateError != nil {
		return rateError
	}

	translatedEncoder, encoderError := strategy.translator.Translate(filepath.Join(strategy.binDirectory, EncoderExecutableName))
	if encoderError != nil {
		return fmt.Errorf(pathTranslationTemplateConstant, StageEncode, encoderError)
	}
	translatedDecoder, decoderError := strategy.translator.Translate(filepath.Join(strategy.binDirectory, DecoderExecutableName))
	if decoderError != nil {
		return fmt.Errorf(pathTranslationTemplateConstant, StageDecode, decoderError)
	}

	translatedPaths := make([]string, 0, 3)
	for _, nativePath := range []string{job.InputPath, job.TempPath, job.OutputPath} {
		translatedPath, translationError := strategy.translator.Translate(nativePath)
		if translationError != nil {
			return fmt.Errorf(pathTranslationTemplateConstant, StageEncode, translationError)
		}
		translatedPaths = append(translatedPaths, translatedPath)
	}
	translatedInput, translatedTemp, translatedOutput := translatedPaths[0], translatedPaths[1], translatedPaths[2]

	invocations := []stageInvocation{
		{
			stage: StageEncode,
			command: strategy.buildShellCommand(
				execshell.CommandRoleEncoder,
				job.workingDirectory(),
				buildShellCommandLine(translatedEncoder, encoderArguments(sampleRate, translatedInput, translatedTemp)),
				execshell.CommandSubject{SourcePath: translatedInput, DestinationPath: translatedTemp, SampleRate: sampleRate},
			),
		},
		{
			stage: StageDecode,
			command: strategy.buildShellCommand(
				execshell.CommandRoleDecoder,
				job.workingDirectory(),
				buildShellCommandLine(translatedDecoder, decoderArguments(sampleRate, translatedTemp, translatedOutput)),
				execshell.CommandSubject{SourcePath: translatedTemp, DestinationPath: translatedOutput, SampleRate: sampleRate},
			),
		},
	}

	return runStages(executionContext, strategy.executor, invocations)
}

func (strategy *ShellStrategy) buildShellCommand(role execshell.CommandRole, workingDirectory string, commandLine string, subject execshell.CommandSubject) execshell.ShellCommand {
	return execshell.ShellCommand{
		Name: execshell.CommandName(strategy.shellPath),
		Role: role,
		Details: execshell.CommandDetails{
			Arguments:        []string{shellCommandFlagConstant, commandLine},
			WorkingDirectory: workingDirectory,
		},
		Subject: subject,
	}
}

func runStages(executionContext context.Context, executor CommandExecutor, invocations []stageInvocation) error {
	for _, invocation := range invocations {
		if _, executionError := executor.Execute(executionContext, invocation.command); executionError != nil {
			return classifyStageError(invocation, executionError)
		}
	}
	return nil
}

func classifyStageError(invocation stageInvocation, executionError error) error {
	var failedError execshell.CommandFailedError
	if !errors.As(executionError, &failedError) {
		return fmt.Errorf(stageFailureTemplateConstant, invocation.stage, executionError)
	}

	commandLine := append([]string{string(invocation.command.Name)}, invocation.command.Details.Arguments...)
	return &ToolExecutionError{
		Stage:          invocation.stage,
		Command:        commandLine,
		ExitCode:       failedError.Result.ExitCode,
		StandardOutput: failedError.Result.StandardOutput,
		StandardError:  failedError.Result.StandardError,
	}
}

func encoderArguments(sampleRate int, sourcePath string, destinationPath string) []string {
	return []string{fmt.Sprintf(encoderRateArgumentTemplateConstant, sampleRate), sourcePath, destinationPath}
}

func decoderArguments(sampleRate int, sourcePath string, destinationPath string) []string {
	return []string{fmt.Sprintf(decoderRateArgumentTemplateConstant, sampleRate), decoderGaussianFilterFlagConstant, sourcePath, destinationPath}
}

// buildShellCommandLine quotes the executable and every path argument; flags stay bare.
func buildShellCommandLine(executable string, arguments []string) string {
	words := []string{quoteShellWord(executable)}
	for _, argument := range arguments {
		if strings.HasPrefix(argument, "-") {
			words = append(words, argument)
			continue
		}
		words = append(words, quoteShellWord(argument))
	}
	return strings.Join(words, shellWordSeparatorConstant)
}

func quoteShellWord(word string) string {
	return shellDoubleQuoteConstant + shellDoubleQuoteEscaper.Replace(word) + shellDoubleQuoteConstant
}
