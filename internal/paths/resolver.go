package paths

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	// AudioFileExtension is the only input extension a batch picks up, compared case-insensitively.
	AudioFileExtension = ".wav"

	toolBinaryDirectoryNameConstant           = "bin"
	outputDirectoryPermissionsConstant        = fs.FileMode(0o755)
	inputDirectoryMissingReasonConstant       = "input directory does not exist"
	inputDirectoryNotDirectoryReasonConstant  = "input path is not a directory"
	inputDirectoryUnreadableReasonConstant    = "unable to list input directory"
	inputFilesMissingReasonConstant           = "no .wav files found in"
	outputDirectoryNotDirectoryReasonConstant = "output path exists but is not a directory"
	outputDirectoryCreationReasonConstant     = "unable to create output directory"
	outputDirectoryInspectionReasonConstant   = "unable to inspect output directory"
	toolDirectoryMissingReasonConstant        = "tool directory does not exist"
	toolBinaryDirectoryMissingReasonConstant  = "tool bin directory does not exist"
	pathResolutionReasonConstant              = "unable to resolve absolute path"
	inputFilesDiscoveredMessageConstant       = "Found input files to process"
	outputDirectoryCreatedMessageConstant     = "Created output directory"
	compatibilityShellSelectedMessageConstant = "Using compatibility shell"
	logFieldDirectoryConstant                 = "directory"
	logFieldFileCountConstant                 = "file_count"
	logFieldShellConstant                     = "shell"
)

// CompatibilityShellLocator finds the POSIX shell used to run tools on platforms without one.
type CompatibilityShellLocator interface {
	Locate(executionContext context.Context) (string, error)
}

// Request names the directories a batch run should use.
type Request struct {
	ToolDirectory   string
	InputDirectory  string
	OutputDirectory string
}

// Resolution is the validated, absolute layout of a batch run.
type Resolution struct {
	InputFiles         []string
	OutputDirectory    string
	ToolBinDirectory   string
	CompatibilityShell string
}

// Resolver validates batch directories and discovers input files.
type Resolver struct {
	logger       *zap.Logger
	fileSystem   FileSystem
	shellLocator CompatibilityShellLocator
	platform     string
}

// NewResolver constructs a Resolver for the given platform identifier (a GOOS value).
func NewResolver(logger *zap.Logger, fileSystem FileSystem, shellLocator CompatibilityShellLocator, platform string) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fileSystem == nil {
		fileSystem = OSFileSystem{}
	}
	return &Resolver{
		logger:       logger,
		fileSystem:   fileSystem,
		shellLocator: shellLocator,
		platform:     platform,
	}
}

// Resolve validates every directory in the request and, where required, locates the compatibility shell.
func (resolver *Resolver) Resolve(executionContext context.Context, request Request) (Resolution, error) {
	inputFiles, inputError := resolver.ResolveInputFiles(request.InputDirectory)
	if inputError != nil {
		return Resolution{}, inputError
	}

	outputDirectory, outputError := resolver.ResolveOutputDirectory(request.OutputDirectory)
	if outputError != nil {
		return Resolution{}, outputError
	}

	toolBinDirectory, toolError := resolver.ResolveToolBinDirectory(request.ToolDirectory)
	if toolError != nil {
		return Resolution{}, toolError
	}

	resolution := Resolution{
		InputFiles:       inputFiles,
		OutputDirectory:  outputDirectory,
		ToolBinDirectory: toolBinDirectory,
	}

	if !RequiresCompatibilityShell(resolver.platform) {
		return resolution, nil
	}
	if resolver.shellLocator == nil {
		return Resolution{}, &ToolNotFoundError{Tool: compatibilityShellToolNameConstant, Remediation: compatibilityShellRemediationConstant}
	}

	compatibilityShell, locateError := resolver.shellLocator.Locate(executionContext)
	if locateError != nil {
		return Resolution{}, locateError
	}
	resolver.logger.Info(compatibilityShellSelectedMessageConstant, zap.String(logFieldShellConstant, compatibilityShell))
	resolution.CompatibilityShell = compatibilityShell

	return resolution, nil
}

// ResolveInputFiles lists the .wav files directly inside inputDirectory, sorted by path.
func (resolver *Resolver) ResolveInputFiles(inputDirectory string) ([]string, error) {
	absoluteDirectory, absoluteError := resolver.absolute(inputDirectory)
	if absoluteError != nil {
		return nil, absoluteError
	}

	directoryInfo, statError := resolver.fileSystem.Stat(absoluteDirectory)
	if statError != nil {
		return nil, &ConfigError{Reason: inputDirectoryMissingReasonConstant, Path: absoluteDirectory, Cause: statError}
	}
	if !directoryInfo.IsDir() {
		return nil, &ConfigError{Reason: inputDirectoryNotDirectoryReasonConstant, Path: absoluteDirectory}
	}

	directoryEntries, readError := resolver.fileSystem.ReadDir(absoluteDirectory)
	if readError != nil {
		return nil, &ConfigError{Reason: inputDirectoryUnreadableReasonConstant, Path: absoluteDirectory, Cause: readError}
	}

	var inputFiles []string
	for _, directoryEntry := range directoryEntries {
		if !strings.EqualFold(filepath.Ext(directoryEntry.Name()), AudioFileExtension) {
			continue
		}
		candidatePath := filepath.Join(absoluteDirectory, directoryEntry.Name())
		candidateInfo, candidateError := resolver.fileSystem.Stat(candidatePath)
		if candidateError != nil || !candidateInfo.Mode().IsRegular() {
			continue
		}
		inputFiles = append(inputFiles, candidatePath)
	}

	if len(inputFiles) == 0 {
		return nil, &ConfigError{Reason: inputFilesMissingReasonConstant, Path: absoluteDirectory}
	}

	sort.Strings(inputFiles)
	resolver.logger.Info(
		inputFilesDiscoveredMessageConstant,
		zap.String(logFieldDirectoryConstant, absoluteDirectory),
		zap.Int(logFieldFileCountConstant, len(inputFiles)),
	)

	return inputFiles, nil
}

// ResolveOutputDirectory returns the absolute output directory, creating it when absent.
func (resolver *Resolver) ResolveOutputDirectory(outputDirectory string) (string, error) {
	absoluteDirectory, absoluteError := resolver.absolute(outputDirectory)
	if absoluteError != nil {
		return "", absoluteError
	}

	directoryInfo, statError := resolver.fileSystem.Stat(absoluteDirectory)
	switch {
	case statError == nil:
		if !directoryInfo.IsDir() {
			return "", &ConfigError{Reason: outputDirectoryNotDirectoryReasonConstant, Path: absoluteDirectory}
		}
		return absoluteDirectory, nil
	case errors.Is(statError, fs.ErrNotExist):
		if creationError := resolver.fileSystem.MkdirAll(absoluteDirectory, outputDirectoryPermissionsConstant); creationError != nil {
			return "", &ConfigError{Reason: outputDirectoryCreationReasonConstant, Path: absoluteDirectory, Cause: creationError}
		}
		resolver.logger.Info(outputDirectoryCreatedMessageConstant, zap.String(logFieldDirectoryConstant, absoluteDirectory))
		return absoluteDirectory, nil
	default:
		return "", &ConfigError{Reason: outputDirectoryInspectionReasonConstant, Path: absoluteDirectory, Cause: statError}
	}
}

// ResolveToolBinDirectory returns the absolute bin directory of a BRRtools installation.
func (resolver *Resolver) ResolveToolBinDirectory(toolDirectory string) (string, error) {
	absoluteDirectory, absoluteError := resolver.absolute(toolDirectory)
	if absoluteError != nil {
		return "", absoluteError
	}

	if !resolver.isDirectory(absoluteDirectory) {
		return "", &ConfigError{Reason: toolDirectoryMissingReasonConstant, Path: absoluteDirectory}
	}

	binDirectory := filepath.Join(absoluteDirectory, toolBinaryDirectoryNameConstant)
	if !resolver.isDirectory(binDirectory) {
		return "", &ConfigError{Reason: toolBinaryDirectoryMissingReasonConstant, Path: binDirectory}
	}

	return binDirectory, nil
}

func (resolver *Resolver) isDirectory(path string) bool {
	directoryInfo, statError := resolver.fileSystem.Stat(path)
	return statError == nil && directoryInfo.IsDir()
}

func (resolver *Resolver) absolute(path string) (string, error) {
	absolutePath, absoluteError := resolver.fileSystem.Abs(strings.TrimSpace(path))
	if absoluteError != nil {
		return "", &ConfigError{Reason: pathResolutionReasonConstant, Path: path, Cause: absoluteError}
	}
	return absolutePath, nil
}
