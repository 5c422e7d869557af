package paths

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultShellRootEnvironmentVariable names the variable pointing at a non-standard Cygwin installation.
	DefaultShellRootEnvironmentVariable = "CYGWIN_ROOT"

	compatibilityShellToolNameConstant     = "Cygwin bash.exe"
	compatibilityShellExecutableConstant   = "bash.exe"
	compatibilityShellVendorMarkerConstant = "cygwin"
	systemDirectoryMarkerConstant          = "system32"
	pathEnvironmentVariableConstant        = "PATH"
	compatibilityShellRemediationConstant  = "Make sure Cygwin is installed.\n" +
		"If Cygwin is installed in a non-standard location, set the CYGWIN_ROOT environment variable.\n" +
		"Example: set CYGWIN_ROOT=C:\\cygwin64"
	shellCandidateRejectedMessageConstant = "Skipping shell outside the compatibility installation"
	logFieldCandidateConstant             = "candidate"
)

// DefaultConventionalShellPaths lists the standard Cygwin installation locations checked after the root variable.
var DefaultConventionalShellPaths = []string{
	"C:/cygwin64/bin/bash.exe",
	"C:/cygwin/bin/bash.exe",
}

// EnvironmentLookup reads an environment variable.
type EnvironmentLookup func(key string) (string, bool)

// ShellLocatorOptions configures where ShellLocator looks for the compatibility shell.
type ShellLocatorOptions struct {
	RootEnvironmentVariable string
	ConventionalPaths       []string
	EnvironmentLookup       EnvironmentLookup
}

// ShellLocator finds a Cygwin bash, refusing shells from the OS system directory such as the WSL launcher.
type ShellLocator struct {
	logger                  *zap.Logger
	fileSystem              FileSystem
	rootEnvironmentVariable string
	conventionalPaths       []string
	environmentLookup       EnvironmentLookup
}

// NewShellLocator constructs a ShellLocator, filling unset options with defaults.
func NewShellLocator(logger *zap.Logger, fileSystem FileSystem, options ShellLocatorOptions) *ShellLocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fileSystem == nil {
		fileSystem = OSFileSystem{}
	}

	rootEnvironmentVariable := strings.TrimSpace(options.RootEnvironmentVariable)
	if len(rootEnvironmentVariable) == 0 {
		rootEnvironmentVariable = DefaultShellRootEnvironmentVariable
	}

	conventionalPaths := append([]string{}, options.ConventionalPaths...)
	if len(conventionalPaths) == 0 {
		conventionalPaths = append(conventionalPaths, DefaultConventionalShellPaths...)
	}

	environmentLookup := options.EnvironmentLookup
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}

	return &ShellLocator{
		logger:                  logger,
		fileSystem:              fileSystem,
		rootEnvironmentVariable: rootEnvironmentVariable,
		conventionalPaths:       conventionalPaths,
		environmentLookup:       environmentLookup,
	}
}

// Locate returns the first usable shell: the root variable's bin/bash.exe, then the
// conventional paths, then a Cygwin bash.exe found on PATH outside system32.
func (locator *ShellLocator) Locate(executionContext context.Context) (string, error) {
	var searchedLocations []string

	for _, candidatePath := range locator.configuredCandidates() {
		searchedLocations = append(searchedLocations, candidatePath)
		if locator.isExecutableFile(candidatePath) {
			return candidatePath, nil
		}
	}

	for _, candidatePath := range locator.searchPathCandidates() {
		if executionContext != nil && executionContext.Err() != nil {
			return "", executionContext.Err()
		}
		searchedLocations = append(searchedLocations, candidatePath)

		normalizedCandidate := strings.ToLower(candidatePath)
		if strings.Contains(normalizedCandidate, systemDirectoryMarkerConstant) || !strings.Contains(normalizedCandidate, compatibilityShellVendorMarkerConstant) {
			locator.logger.Debug(shellCandidateRejectedMessageConstant, zap.String(logFieldCandidateConstant, candidatePath))
			continue
		}
		if locator.isExecutableFile(candidatePath) {
			return candidatePath, nil
		}
	}

	return "", &ToolNotFoundError{
		Tool:        compatibilityShellToolNameConstant,
		Searched:    searchedLocations,
		Remediation: compatibilityShellRemediationConstant,
	}
}

func (locator *ShellLocator) configuredCandidates() []string {
	candidates := make([]string, 0, len(locator.conventionalPaths)+1)
	if rootDirectory, rootConfigured := locator.environmentLookup(locator.rootEnvironmentVariable); rootConfigured && len(strings.TrimSpace(rootDirectory)) > 0 {
		candidates = append(candidates, filepath.Join(strings.TrimSpace(rootDirectory), toolBinaryDirectoryNameConstant, compatibilityShellExecutableConstant))
	}
	return append(candidates, locator.conventionalPaths...)
}

func (locator *ShellLocator) searchPathCandidates() []string {
	searchPath, searchPathConfigured := locator.environmentLookup(pathEnvironmentVariableConstant)
	if !searchPathConfigured {
		return nil
	}

	var candidates []string
	for _, searchDirectory := range filepath.SplitList(searchPath) {
		trimmedDirectory := strings.TrimSpace(searchDirectory)
		if len(trimmedDirectory) == 0 {
			continue
		}
		candidates = append(candidates, filepath.Join(trimmedDirectory, compatibilityShellExecutableConstant))
	}
	return candidates
}

func (locator *ShellLocator) isExecutableFile(path string) bool {
	fileInfo, statError := locator.fileSystem.Stat(path)
	return statError == nil && !fileInfo.IsDir()
}
