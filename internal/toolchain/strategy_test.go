package toolchain_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/brrbatch/internal/execshell"
	"github.com/temirov/brrbatch/internal/paths"
	"github.com/temirov/brrbatch/internal/toolchain"
)

const (
	testSampleRateConstant   = 16000
	testBinDirectoryConstant = "/opt/BRRtools/bin"
	testShellPathConstant    = `C:\cygwin64\bin\bash.exe`
)

type scriptedExecutor struct {
	responses []error
	commands  []execshell.ShellCommand
}

func (executor *scriptedExecutor) Execute(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.commands = append(executor.commands, command)
	responseIndex := len(executor.commands) - 1
	if responseIndex < len(executor.responses) && executor.responses[responseIndex] != nil {
		return execshell.ExecutionResult{}, executor.responses[responseIndex]
	}
	return execshell.ExecutionResult{}, nil
}

func nativeJob() toolchain.ConversionJob {
	return toolchain.ConversionJob{
		InputPath:  "/music/kick.wav",
		OutputPath: "/out/kick.wav",
		TempPath:   "/out/kick.brr",
	}
}

func TestNativeStrategyRunsEncodeThenDecode(testInstance *testing.T) {
	executor := &scriptedExecutor{}
	strategy, creationError := toolchain.NewNativeStrategy(executor, testBinDirectoryConstant)
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, strategy.Invoke(context.Background(), nativeJob(), testSampleRateConstant))

	require.Len(testInstance, executor.commands, 2)
	encodeCommand := executor.commands[0]
	require.Equal(testInstance, execshell.CommandName(filepath.Join(testBinDirectoryConstant, "brr_encoder")), encodeCommand.Name)
	require.Equal(testInstance, execshell.CommandRoleEncoder, encodeCommand.Role)
	require.Equal(testInstance, []string{"-sb16000", "/music/kick.wav", "/out/kick.brr"}, encodeCommand.Details.Arguments)

	decodeCommand := executor.commands[1]
	require.Equal(testInstance, execshell.CommandName(filepath.Join(testBinDirectoryConstant, "brr_decoder")), decodeCommand.Name)
	require.Equal(testInstance, execshell.CommandRoleDecoder, decodeCommand.Role)
	require.Equal(testInstance, []string{"-s16000", "-g", "/out/kick.brr", "/out/kick.wav"}, decodeCommand.Details.Arguments)
	require.Equal(testInstance, "native", strategy.Name())

	for _, command := range executor.commands {
		require.Equal(testInstance, filepath.Dir(nativeJob().OutputPath), command.Details.WorkingDirectory)
	}
}

func TestNativeStrategyFailureContract(testInstance *testing.T) {
	encodeFailure := execshell.CommandFailedError{
		Result: execshell.ExecutionResult{ExitCode: 2, StandardOutput: "reading", StandardError: "bad wav"},
	}
	decodeFailure := execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 3}}
	startFailure := execshell.CommandExecutionError{Cause: errors.New("permission denied")}

	testCases := []struct {
		name             string
		responses        []error
		expectedCommands int
		expectedStage    toolchain.Stage
		expectedExitCode int
		expectToolError  bool
	}{
		{name: "encode_failure_skips_decode", responses: []error{encodeFailure}, expectedCommands: 1, expectedStage: toolchain.StageEncode, expectedExitCode: 2, expectToolError: true},
		{name: "decode_failure", responses: []error{nil, decodeFailure}, expectedCommands: 2, expectedStage: toolchain.StageDecode, expectedExitCode: 3, expectToolError: true},
		{name: "start_failure_is_not_tool_error", responses: []error{startFailure}, expectedCommands: 1},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedExecutor{responses: testCase.responses}
			strategy, creationError := toolchain.NewNativeStrategy(executor, testBinDirectoryConstant)
			require.NoError(testInstance, creationError)

			invocationError := strategy.Invoke(context.Background(), nativeJob(), testSampleRateConstant)
			require.Error(testInstance, invocationError)
			require.Len(testInstance, executor.commands, testCase.expectedCommands)

			var toolError *toolchain.ToolExecutionError
			if !testCase.expectToolError {
				require.False(testInstance, errors.As(invocationError, &toolError))
				require.ErrorIs(testInstance, invocationError, startFailure.Cause)
				return
			}

			require.ErrorAs(testInstance, invocationError, &toolError)
			require.Equal(testInstance, testCase.expectedStage, toolError.Stage)
			require.Equal(testInstance, testCase.expectedExitCode, toolError.ExitCode)
			require.NotEmpty(testInstance, toolError.Command)
		})
	}
}

func TestNativeStrategyEncodeFailureCarriesOutput(testInstance *testing.T) {
	executor := &scriptedExecutor{responses: []error{execshell.CommandFailedError{
		Result: execshell.ExecutionResult{ExitCode: 2, StandardOutput: "reading", StandardError: "bad wav"},
	}}}
	strategy, creationError := toolchain.NewNativeStrategy(executor, testBinDirectoryConstant)
	require.NoError(testInstance, creationError)

	invocationError := strategy.Invoke(context.Background(), nativeJob(), testSampleRateConstant)

	var toolError *toolchain.ToolExecutionError
	require.ErrorAs(testInstance, invocationError, &toolError)
	require.Equal(testInstance, "reading", toolError.StandardOutput)
	require.Equal(testInstance, "bad wav", toolError.StandardError)
	require.Equal(testInstance, "encode stage exited with code 2", toolError.Error())
}

func TestStrategiesRejectNonPositiveSampleRate(testInstance *testing.T) {
	executor := &scriptedExecutor{}
	strategy, creationError := toolchain.NewNativeStrategy(executor, testBinDirectoryConstant)
	require.NoError(testInstance, creationError)

	invocationError := strategy.Invoke(context.Background(), nativeJob(), 0)

	var rateError toolchain.InvalidSampleRateError
	require.ErrorAs(testInstance, invocationError, &rateError)
	require.Empty(testInstance, executor.commands)
}

func TestShellStrategyBuildsQuotedCommands(testInstance *testing.T) {
	executor := &scriptedExecutor{}
	translator := paths.NewTranslator(paths.DefaultMountPrefix, func(path string) (string, error) {
		return path, nil
	})
	strategy, creationError := toolchain.NewShellStrategy(executor, `C:\BRRtools\bin`, testShellPathConstant, translator)
	require.NoError(testInstance, creationError)

	job := toolchain.ConversionJob{
		InputPath:  `D:\Samples\Snare Hit.wav`,
		OutputPath: `D:\Out\Snare Hit.wav`,
		TempPath:   `D:\Out\Snare Hit.brr`,
	}
	require.NoError(testInstance, strategy.Invoke(context.Background(), job, 32000))

	require.Len(testInstance, executor.commands, 2)
	for _, command := range executor.commands {
		require.Equal(testInstance, execshell.CommandName(testShellPathConstant), command.Name)
		require.Len(testInstance, command.Details.Arguments, 2)
		require.Equal(testInstance, "-c", command.Details.Arguments[0])
		require.NotContains(testInstance, command.Details.Arguments[1], `\`)
		require.Equal(testInstance, filepath.Dir(job.OutputPath), command.Details.WorkingDirectory)
	}

	encoderPath := translatorOutput(testInstance, translator, filepath.Join(`C:\BRRtools\bin`, "brr_encoder"))
	decoderPath := translatorOutput(testInstance, translator, filepath.Join(`C:\BRRtools\bin`, "brr_decoder"))

	require.Equal(testInstance,
		`"`+encoderPath+`" -sb32000 "/cygdrive/d/Samples/Snare Hit.wav" "/cygdrive/d/Out/Snare Hit.brr"`,
		executor.commands[0].Details.Arguments[1],
	)
	require.Equal(testInstance,
		`"`+decoderPath+`" -s32000 -g "/cygdrive/d/Out/Snare Hit.brr" "/cygdrive/d/Out/Snare Hit.wav"`,
		executor.commands[1].Details.Arguments[1],
	)
	require.Equal(testInstance, "/cygdrive/d/Out/Snare Hit.wav", executor.commands[1].Subject.DestinationPath)
	require.Equal(testInstance, "compatibility-shell", strategy.Name())
}

func TestShellStrategyEscapesShellMetacharacters(testInstance *testing.T) {
	executor := &scriptedExecutor{}
	translator := paths.NewTranslator("", func(path string) (string, error) {
		return path, nil
	})
	strategy, creationError := toolchain.NewShellStrategy(executor, "/opt/bin", "/usr/bin/bash", translator)
	require.NoError(testInstance, creationError)

	job := toolchain.ConversionJob{InputPath: `/in/$HOME "quoted".wav`, OutputPath: "/out/x.wav", TempPath: "/out/x.brr"}
	require.NoError(testInstance, strategy.Invoke(context.Background(), job, testSampleRateConstant))

	require.Contains(testInstance, executor.commands[0].Details.Arguments[1], `"/in/\$HOME \"quoted\".wav"`)
}

func translatorOutput(testInstance *testing.T, translator *paths.Translator, nativePath string) string {
	testInstance.Helper()
	translatedPath, translationError := translator.Translate(nativePath)
	require.NoError(testInstance, translationError)
	return translatedPath
}

func TestSelectStrategy(testInstance *testing.T) {
	executor := &scriptedExecutor{}

	nativeStrategy, nativeError := toolchain.SelectStrategy(toolchain.StrategyOptions{Executor: executor, BinDirectory: testBinDirectoryConstant})
	require.NoError(testInstance, nativeError)
	require.IsType(testInstance, &toolchain.NativeStrategy{}, nativeStrategy)

	shellStrategy, shellError := toolchain.SelectStrategy(toolchain.StrategyOptions{
		Executor:              executor,
		BinDirectory:          testBinDirectoryConstant,
		UseCompatibilityShell: true,
		CompatibilityShell:    testShellPathConstant,
		Translator:            paths.NewTranslator("", nil),
	})
	require.NoError(testInstance, shellError)
	require.IsType(testInstance, &toolchain.ShellStrategy{}, shellStrategy)

	_, missingShellError := toolchain.SelectStrategy(toolchain.StrategyOptions{Executor: executor, UseCompatibilityShell: true})
	require.ErrorIs(testInstance, missingShellError, toolchain.ErrShellNotConfigured)

	_, missingExecutorError := toolchain.SelectStrategy(toolchain.StrategyOptions{})
	require.ErrorIs(testInstance, missingExecutorError, toolchain.ErrExecutorNotConfigured)
}
