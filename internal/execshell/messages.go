package execshell

import (
	"fmt"
	"path/filepath"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	unknownValueLabelConstant               = "unknown"
	emptyStringConstant                     = ""
)

const (
	encoderStartTemplateConstant            = "Encoding %s into %s at %d Hz"
	encoderSuccessTemplateConstant          = "Encoded %s into %s"
	encoderFailureTemplateConstant          = "Failed to encode %s (exit code %d%s)"
	encoderExecutionFailureTemplateConstant = "Unable to encode %s: %s"
	decoderStartTemplateConstant            = "Decoding %s into %s at %d Hz"
	decoderSuccessTemplateConstant          = "Decoded %s into %s"
	decoderFailureTemplateConstant          = "Failed to decode %s (exit code %d%s)"
	decoderExecutionFailureTemplateConstant = "Unable to decode %s: %s"
)

type roleTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

var roleTemplateLookup = map[CommandRole]roleTemplates{
	CommandRoleEncoder: {
		start:            encoderStartTemplateConstant,
		success:          encoderSuccessTemplateConstant,
		failure:          encoderFailureTemplateConstant,
		executionFailure: encoderExecutionFailureTemplateConstant,
	},
	CommandRoleDecoder: {
		start:            decoderStartTemplateConstant,
		success:          decoderSuccessTemplateConstant,
		failure:          decoderFailureTemplateConstant,
		executionFailure: decoderExecutionFailureTemplateConstant,
	},
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	templates, isKnownRole := roleTemplateLookup[command.Role]
	if !isKnownRole {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	source := formatter.describePath(command.Subject.SourcePath)
	destination := formatter.describePath(command.Subject.DestinationPath)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, source, destination, command.Subject.SampleRate)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, source, destination)
	case messageStageFailure:
		return fmt.Sprintf(templates.failure, source, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(templates.executionFailure, source, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	return fmt.Sprintf(commandLabelTemplateConstant, describeCommand(command), formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describePath(path string) string {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return unknownValueLabelConstant
	}
	// Compatibility-shell paths use forward slashes on every platform.
	normalizedPath := strings.ReplaceAll(trimmedPath, `\`, "/")
	if slashIndex := strings.LastIndex(normalizedPath, "/"); slashIndex >= 0 {
		return normalizedPath[slashIndex+1:]
	}
	return filepath.Base(normalizedPath)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}
