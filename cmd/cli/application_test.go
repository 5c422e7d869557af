package cli_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/brrbatch/cmd/cli"
	"github.com/temirov/brrbatch/internal/paths"
)

const (
	testBinDirectoryNameConstant     = "bin"
	testEncoderScriptNameConstant    = "brr_encoder"
	testDecoderScriptNameConstant    = "brr_decoder"
	testCopyingEncoderScriptConstant = "#!/bin/sh\ncp \"$2\" \"$3\"\n"
	testCopyingDecoderScriptConstant = "#!/bin/sh\ncp \"$3\" \"$4\"\n"
	testFailingEncoderScriptConstant = "#!/bin/sh\necho \"bad header\" >&2\nexit 2\n"
	testWaveContentConstant          = "RIFF-not-really-audio"
	testReportFileNameConstant       = "report.yaml"
	testLogLevelFlagConstant         = "--log-level"
	testQuietLogLevelConstant        = "error"
)

type testEnvironment struct {
	toolDirectory   string
	inputDirectory  string
	outputDirectory string
}

func newTestEnvironment(testInstance *testing.T, encoderScript string, inputNames ...string) testEnvironment {
	testInstance.Helper()
	if runtime.GOOS == "windows" {
		testInstance.Skip("tool stubs are POSIX shell scripts")
	}

	rootDirectory := testInstance.TempDir()
	environment := testEnvironment{
		toolDirectory:   filepath.Join(rootDirectory, "tools"),
		inputDirectory:  filepath.Join(rootDirectory, "input"),
		outputDirectory: filepath.Join(rootDirectory, "output"),
	}

	binDirectory := filepath.Join(environment.toolDirectory, testBinDirectoryNameConstant)
	require.NoError(testInstance, os.MkdirAll(binDirectory, 0o755))
	require.NoError(testInstance, os.MkdirAll(environment.inputDirectory, 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(binDirectory, testEncoderScriptNameConstant), []byte(encoderScript), 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(binDirectory, testDecoderScriptNameConstant), []byte(testCopyingDecoderScriptConstant), 0o755))

	for _, inputName := range inputNames {
		require.NoError(testInstance, os.WriteFile(filepath.Join(environment.inputDirectory, inputName), []byte(testWaveContentConstant), 0o644))
	}

	return environment
}

func (environment testEnvironment) run(extraArguments ...string) (string, string, error) {
	application := cli.NewApplication()
	arguments := []string{environment.toolDirectory, environment.inputDirectory, environment.outputDirectory, testLogLevelFlagConstant, testQuietLogLevelConstant}
	application.SetArguments(append(arguments, extraArguments...))

	standardOutput := &bytes.Buffer{}
	standardError := &bytes.Buffer{}
	application.SetOutput(standardOutput, standardError)

	executionError := application.Execute()
	return standardOutput.String(), standardError.String(), executionError
}

func TestApplicationConvertsEveryWaveFile(testInstance *testing.T) {
	environment := newTestEnvironment(testInstance, testCopyingEncoderScriptConstant, "a.wav", "b.WAV", "notes.txt")

	standardOutput, _, executionError := environment.run()
	require.NoError(testInstance, executionError)

	require.Contains(testInstance, standardOutput, "Found 2 WAV files to process")
	require.Contains(testInstance, standardOutput, "Success: 2/2")
	require.Contains(testInstance, standardOutput, "Errors:  0/2")
	require.Contains(testInstance, standardOutput, "DONE")

	for _, outputName := range []string{"a.wav", "b.WAV"} {
		content, readError := os.ReadFile(filepath.Join(environment.outputDirectory, outputName))
		require.NoError(testInstance, readError)
		require.Equal(testInstance, testWaveContentConstant, string(content))
	}

	leftovers, globError := filepath.Glob(filepath.Join(environment.outputDirectory, "*.brr"))
	require.NoError(testInstance, globError)
	require.Empty(testInstance, leftovers)
	require.NoFileExists(testInstance, filepath.Join(environment.outputDirectory, "notes.txt"))
}

func TestApplicationReportsToolFailuresWithoutAborting(testInstance *testing.T) {
	environment := newTestEnvironment(testInstance, testFailingEncoderScriptConstant, "kick.wav")

	standardOutput, standardError, executionError := environment.run()
	require.NoError(testInstance, executionError)

	require.Contains(testInstance, standardError, "ERROR processing kick.wav")
	require.Contains(testInstance, standardError, "Exit code: 2")
	require.Contains(testInstance, standardError, "bad header")
	require.Contains(testInstance, standardOutput, "Success: 0/1")
	require.Contains(testInstance, standardOutput, "Errors:  1/1")
	require.NoFileExists(testInstance, filepath.Join(environment.outputDirectory, "kick.wav"))
}

func TestApplicationDryRunInvokesNothing(testInstance *testing.T) {
	environment := newTestEnvironment(testInstance, testFailingEncoderScriptConstant, "kick.wav", "snare.wav")

	standardOutput, standardError, executionError := environment.run("--dry-run")
	require.NoError(testInstance, executionError)

	require.Contains(testInstance, standardOutput, "Dry run: 2 conversions planned")
	require.Contains(testInstance, standardOutput, "Planned: 2/2")
	require.NotContains(testInstance, standardError, "ERROR processing")
	require.NoFileExists(testInstance, filepath.Join(environment.outputDirectory, "kick.wav"))
}

func TestApplicationWritesReport(testInstance *testing.T) {
	environment := newTestEnvironment(testInstance, testCopyingEncoderScriptConstant, "a.wav")
	reportPath := filepath.Join(testInstance.TempDir(), "reports", testReportFileNameConstant)

	_, _, executionError := environment.run("--report", reportPath, "--rate", "32000")
	require.NoError(testInstance, executionError)

	reportContent, readError := os.ReadFile(reportPath)
	require.NoError(testInstance, readError)

	var report map[string]any
	require.NoError(testInstance, yaml.Unmarshal(reportContent, &report))
	require.Equal(testInstance, 32000, report["sample_rate"])
	require.Equal(testInstance, 1, report["succeeded"])
	require.NotEmpty(testInstance, report["run_id"])
}

func TestApplicationFatalConfigurationErrors(testInstance *testing.T) {
	testCases := []struct {
		name      string
		prepare   func(environment *testEnvironment)
		arguments []string
	}{
		{
			name: "no wave files",
		},
		{
			name: "missing tool bin directory",
			prepare: func(environment *testEnvironment) {
				environment.toolDirectory = filepath.Join(environment.toolDirectory, "absent")
			},
		},
		{
			name:      "non-positive rate",
			arguments: []string{"--rate", "0"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			inputNames := []string{"a.wav"}
			if testCase.prepare == nil && len(testCase.arguments) == 0 {
				inputNames = nil
			}
			environment := newTestEnvironment(subTest, testCopyingEncoderScriptConstant, inputNames...)
			if testCase.prepare != nil {
				testCase.prepare(&environment)
			}

			standardOutput, _, executionError := environment.run(testCase.arguments...)
			require.Error(subTest, executionError)

			var configError *paths.ConfigError
			require.True(subTest, errors.As(executionError, &configError))
			require.NotContains(subTest, standardOutput, "DONE")
		})
	}
}

func TestApplicationRequiresThreePositionalArguments(testInstance *testing.T) {
	application := cli.NewApplication()
	application.SetArguments([]string{"only-one"})
	application.SetOutput(&bytes.Buffer{}, &bytes.Buffer{})
	require.Error(testInstance, application.Execute())
}
