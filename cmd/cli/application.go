package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/brrbatch/internal/batch"
	"github.com/temirov/brrbatch/internal/cleanup"
	"github.com/temirov/brrbatch/internal/execshell"
	"github.com/temirov/brrbatch/internal/paths"
	"github.com/temirov/brrbatch/internal/toolchain"
	"github.com/temirov/brrbatch/internal/ui"
	"github.com/temirov/brrbatch/internal/utils"
	flagutils "github.com/temirov/brrbatch/internal/utils/flags"
	"github.com/temirov/brrbatch/internal/wavinfo"
)

const (
	applicationNameConstant                 = "brrbatch"
	applicationUseConstant                  = applicationNameConstant + " <tool_directory> <input_directory> <output_directory>"
	applicationShortDescriptionConstant     = "Batch process WAV files to make them sound like SNES sounds"
	applicationLongDescriptionConstant      = "brrbatch round-trips every .wav file in the input directory through the BRRtools encoder and decoder, writing the degraded audio to the output directory."
	applicationExampleConstant              = "  brrbatch ~/BRRtools ./samples ./snes --rate 32000"
	applicationEpilogConstant               = "Requires Cygwin on Windows. Set CYGWIN_ROOT if installed in non-standard location."
	positionalArgumentCountConstant         = 3
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	rateFlagNameConstant                    = "rate"
	rateFlagShorthandConstant               = "r"
	rateFlagUsageConstant                   = "Sample rate in Hz for BRR compression (default from configuration: 16000)."
	dryRunFlagNameConstant                  = "dry-run"
	dryRunFlagUsageConstant                 = "List the planned conversions without invoking the tools."
	reportFlagNameConstant                  = "report"
	reportFlagUsageConstant                 = "Write a YAML report of the run to this path."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	conversionConfigurationKeyConstant      = "conversion"
	conversionRateConfigKeyConstant         = conversionConfigurationKeyConstant + ".rate"
	cleanupAttemptsConfigKeyConstant        = conversionConfigurationKeyConstant + ".cleanup.attempts"
	cleanupDelayConfigKeyConstant           = conversionConfigurationKeyConstant + ".cleanup.delay"
	shellMountPrefixConfigKeyConstant       = conversionConfigurationKeyConstant + ".shell.mount_prefix"
	shellRootVariableConfigKeyConstant      = conversionConfigurationKeyConstant + ".shell.root_environment_variable"
	defaultSampleRateConstant               = 16000
	environmentPrefixConstant               = "BRRBATCH"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	executorCreationErrorTemplateConstant   = "unable to create command executor: %w"
	strategySelectionErrorTemplateConstant  = "unable to select invocation strategy: %w"
	processorCreationErrorTemplateConstant  = "unable to create batch processor: %w"
	invalidSampleRateReasonConstant         = "invalid sample rate"
	sampleRateFlagSourceConstant            = "--" + rateFlagNameConstant
	batchAbortedMessageConstant             = "batch aborted"
	batchConfiguredMessageConstant          = "batch configured"
	reportWrittenMessageConstant            = "batch report written"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
	stackFieldNameConstant                  = "stack"
	toolDirectoryFieldNameConstant          = "tool_directory"
	inputDirectoryFieldNameConstant         = "input_directory"
	outputDirectoryFieldNameConstant        = "output_directory"
	sampleRateFieldNameConstant             = "sample_rate"
	strategyFieldNameConstant               = "strategy"
	shellFieldNameConstant                  = "compatibility_shell"
	reportFieldNameConstant                 = "report"
	foundInputsTemplateConstant             = "Found %d WAV files to process\n"
	usingShellTemplateConstant              = "Using Cygwin bash: %s\n"
	dryRunNoticeTemplateConstant            = "Dry run: %d conversions planned, no tools will be invoked\n"
	doneMessageTemplateConstant             = "\nDONE\n"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common     ApplicationCommonConfiguration `mapstructure:"common"`
	Conversion ConversionConfiguration        `mapstructure:"conversion"`
}

// ApplicationCommonConfiguration stores logging configuration.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ConversionConfiguration stores the round-trip settings.
type ConversionConfiguration struct {
	Rate    int                  `mapstructure:"rate"`
	Cleanup CleanupConfiguration `mapstructure:"cleanup"`
	Shell   ShellConfiguration   `mapstructure:"shell"`
}

// CleanupConfiguration bounds temporary artifact removal.
type CleanupConfiguration struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

// ShellConfiguration tunes compatibility-shell discovery and path translation.
type ShellConfiguration struct {
	MountPrefix             string `mapstructure:"mount_prefix"`
	RootEnvironmentVariable string `mapstructure:"root_environment_variable"`
}

// BatchConfiguration is the validated, immutable description of one run.
type BatchConfiguration struct {
	ToolDirectory   string
	InputDirectory  string
	OutputDirectory string
	SampleRate      int
}

// Validate rejects a non-positive sample rate with a ConfigError.
func (configuration BatchConfiguration) Validate() error {
	if rateError := toolchain.ValidateSampleRate(configuration.SampleRate); rateError != nil {
		return &paths.ConfigError{Reason: invalidSampleRateReasonConstant, Path: sampleRateFlagSourceConstant, Cause: rateError}
	}
	return nil
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	consoleLogger         *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	rateFlagValue         int
	dryRunFlagValue       bool
	reportPathFlagValue   string
	platform              string
	fileSystem            paths.FileSystem
	commandRunner         execshell.CommandRunner
	homeExpander          *paths.HomeExpander
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	embeddedConfiguration, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	configurationLoader.SetEmbeddedConfiguration(embeddedConfiguration, embeddedConfigurationType)

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
		consoleLogger:       zap.NewNop(),
		platform:            runtime.GOOS,
		fileSystem:          paths.OSFileSystem{},
		commandRunner:       execshell.NewOSCommandRunner(),
		homeExpander:        paths.NewHomeExpander(nil),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationUseConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant + "\n\n" + applicationEpilogConstant,
		Example:       applicationExampleConstant,
		Args:          cobra.ExactArgs(positionalArgumentCountConstant),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.Flags().IntVarP(&application.rateFlagValue, rateFlagNameConstant, rateFlagShorthandConstant, defaultSampleRateConstant, rateFlagUsageConstant)
	cobraCommand.Flags().StringVar(&application.reportPathFlagValue, reportFlagNameConstant, "", reportFlagUsageConstant)
	flagutils.AddToggleFlag(cobraCommand.Flags(), &application.dryRunFlagValue, dryRunFlagNameConstant, "", false, dryRunFlagUsageConstant)

	application.rootCommand = cobraCommand

	return application
}

// SetArguments replaces the command-line arguments parsed by Execute.
func (application *Application) SetArguments(arguments []string) {
	application.rootCommand.SetArgs(arguments)
}

// SetOutput redirects console output; nil writers keep the process streams.
func (application *Application) SetOutput(standardOutput io.Writer, standardError io.Writer) {
	if standardOutput != nil {
		application.rootCommand.SetOut(standardOutput)
	}
	if standardError != nil {
		application.rootCommand.SetErr(standardError)
	}
}

// Execute runs the root command and ensures logger flushing. An interrupt stops
// the batch before the next item starts.
func (application *Application) Execute() error {
	executionContext, stopNotifications := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopNotifications()

	executionError := application.rootCommand.ExecuteContext(executionContext)
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:    string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:   string(utils.LogFormatStructured),
		conversionRateConfigKeyConstant:    defaultSampleRateConstant,
		cleanupAttemptsConfigKeyConstant:   cleanup.DefaultAttempts,
		cleanupDelayConfigKeyConstant:      cleanup.DefaultDelay,
		shellMountPrefixConfigKeyConstant:  paths.DefaultMountPrefix,
		shellRootVariableConfigKeyConstant: paths.DefaultShellRootEnvironmentVariable,
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.flagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.flagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	if application.flagChanged(command, rateFlagNameConstant) {
		application.configuration.Conversion.Rate = application.rateFlagValue
	}

	loggerOutputs, loggerCreationError := application.loggerFactory.CreateLoggerOutputs(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = loggerOutputs.DiagnosticLogger
	application.consoleLogger = loggerOutputs.ConsoleLogger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	runError := application.runBatch(command, arguments)
	if runError != nil {
		application.logger.Error(batchAbortedMessageConstant, zap.Error(runError), zap.Stack(stackFieldNameConstant))
	}
	return runError
}

func (application *Application) runBatch(command *cobra.Command, arguments []string) error {
	executionContext := command.Context()
	standardOutput := utils.NewFlushingWriter(command.OutOrStdout())
	standardError := utils.NewFlushingWriter(command.ErrOrStderr())
	conversionConfiguration := application.configuration.Conversion

	request := application.homeExpander.ExpandRequest(paths.Request{
		ToolDirectory:   arguments[0],
		InputDirectory:  arguments[1],
		OutputDirectory: arguments[2],
	})
	batchConfiguration := BatchConfiguration{
		ToolDirectory:   request.ToolDirectory,
		InputDirectory:  request.InputDirectory,
		OutputDirectory: request.OutputDirectory,
		SampleRate:      conversionConfiguration.Rate,
	}
	if validationError := batchConfiguration.Validate(); validationError != nil {
		return validationError
	}

	shellLocator := paths.NewShellLocator(application.logger, application.fileSystem, paths.ShellLocatorOptions{
		RootEnvironmentVariable: conversionConfiguration.Shell.RootEnvironmentVariable,
	})
	resolver := paths.NewResolver(application.logger, application.fileSystem, shellLocator, application.platform)
	resolution, resolveError := resolver.Resolve(executionContext, request)
	if resolveError != nil {
		return resolveError
	}

	fmt.Fprintf(standardOutput, foundInputsTemplateConstant, len(resolution.InputFiles))
	if len(resolution.CompatibilityShell) > 0 {
		fmt.Fprintf(standardOutput, usingShellTemplateConstant, resolution.CompatibilityShell)
	}

	var observers []execshell.CommandEventObserver
	if application.humanReadableLoggingEnabled() {
		observers = append(observers, ui.NewConsoleCommandEventLogger(application.consoleLogger))
	}
	executor, executorError := execshell.NewShellExecutor(application.logger, application.commandRunner, observers...)
	if executorError != nil {
		return fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}

	strategy, strategyError := toolchain.SelectStrategy(toolchain.StrategyOptions{
		Executor:              executor,
		BinDirectory:          resolution.ToolBinDirectory,
		UseCompatibilityShell: paths.RequiresCompatibilityShell(application.platform),
		CompatibilityShell:    resolution.CompatibilityShell,
		Translator:            paths.NewTranslator(conversionConfiguration.Shell.MountPrefix, application.fileSystem.Abs),
	})
	if strategyError != nil {
		return fmt.Errorf(strategySelectionErrorTemplateConstant, strategyError)
	}

	jobs := toolchain.NewConversionJobs(resolution.InputFiles, resolution.OutputDirectory)
	processor, processorError := batch.NewProcessor(batch.Options{
		Logger:   application.logger,
		Strategy: strategy,
		Cleaner: cleanup.NewTempArtifactManager(application.logger, application.fileSystem, cleanup.Options{
			Attempts: conversionConfiguration.Cleanup.Attempts,
			Delay:    conversionConfiguration.Cleanup.Delay,
		}),
		Progress:    ui.NewProgressIndicator(standardError, len(jobs)),
		Inspector:   wavinfo.NewInspector(),
		Summary:     batch.NewWriterReporter(standardOutput),
		Diagnostics: batch.NewWriterReporter(standardError),
		SampleRate:  batchConfiguration.SampleRate,
		DryRun:      application.dryRunFlagValue,
	})
	if processorError != nil {
		return fmt.Errorf(processorCreationErrorTemplateConstant, processorError)
	}

	application.logger.Info(
		batchConfiguredMessageConstant,
		zap.String(toolDirectoryFieldNameConstant, resolution.ToolBinDirectory),
		zap.String(inputDirectoryFieldNameConstant, batchConfiguration.InputDirectory),
		zap.String(outputDirectoryFieldNameConstant, resolution.OutputDirectory),
		zap.Int(sampleRateFieldNameConstant, batchConfiguration.SampleRate),
		zap.String(strategyFieldNameConstant, strategy.Name()),
		zap.String(shellFieldNameConstant, resolution.CompatibilityShell),
	)

	if application.dryRunFlagValue {
		fmt.Fprintf(standardOutput, dryRunNoticeTemplateConstant, len(jobs))
	}

	result := processor.Run(executionContext, jobs)

	if reportPath := strings.TrimSpace(application.reportPathFlagValue); len(reportPath) > 0 {
		expandedReportPath := application.homeExpander.Expand(reportPath)
		if reportError := result.WriteReport(expandedReportPath); reportError != nil {
			return reportError
		}
		application.logger.Info(reportWrittenMessageConstant, zap.String(reportFieldNameConstant, expandedReportPath))
	}

	fmt.Fprint(standardOutput, doneMessageTemplateConstant)
	return nil
}

func (application *Application) flushLogger() error {
	for _, logger := range []*zap.Logger{application.logger, application.consoleLogger} {
		if syncError := application.syncLoggerInstance(logger); syncError != nil {
			return syncError
		}
	}
	return nil
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) flagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.Flags(),
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
