package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/brrbatch/internal/utils"
)

const (
	testEnvironmentPrefixConstant        = "TESTBRRBATCH"
	testRateEnvironmentVariableConstant  = testEnvironmentPrefixConstant + "_CONVERSION_RATE"
	testDelayEnvironmentVariableConstant = testEnvironmentPrefixConstant + "_CONVERSION_CLEANUP_DELAY"
	testRateKeyConstant                  = "conversion.rate"
	testAttemptsKeyConstant              = "conversion.cleanup.attempts"
	testConfigurationNameConstant        = "config"
	testConfigurationTypeConstant        = "yaml"
	testConfigFileNameConstant           = "config.yaml"
	testConfigContentTemplateConstant    = "conversion:\n  rate: %d\n"
	testEmbeddedConfigurationConstant    = "conversion:\n  rate: 16000\n  cleanup:\n    attempts: 6\n    delay: 50ms\n"
	testMalformedConfigurationConstant   = "conversion: [rate\n"
	testSubtestNameTemplateConstant      = "%d_%s"
	testDefaultRateConstant              = 8000
	testEmbeddedRateConstant             = 16000
	testFileRateConstant                 = 22050
	testEnvironmentRateConstant          = 32000
)

type conversionConfigurationFixture struct {
	Conversion struct {
		Rate    int `mapstructure:"rate"`
		Cleanup struct {
			Attempts int           `mapstructure:"attempts"`
			Delay    time.Duration `mapstructure:"delay"`
		} `mapstructure:"cleanup"`
	} `mapstructure:"conversion"`
}

func TestConfigurationLoaderPrecedence(testInstance *testing.T) {
	testCases := []struct {
		name            string
		embedded        bool
		fileRate        int
		environmentRate int
		searchPathFile  bool
		expectedRate    int
	}{
		{name: "defaults only", expectedRate: testDefaultRateConstant},
		{name: "embedded beats defaults", embedded: true, expectedRate: testEmbeddedRateConstant},
		{name: "explicit file beats embedded", embedded: true, fileRate: testFileRateConstant, expectedRate: testFileRateConstant},
		{name: "search path file beats embedded", embedded: true, fileRate: testFileRateConstant, searchPathFile: true, expectedRate: testFileRateConstant},
		{name: "environment beats file", embedded: true, fileRate: testFileRateConstant, environmentRate: testEnvironmentRateConstant, expectedRate: testEnvironmentRateConstant},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(subTest *testing.T) {
			searchDirectory := subTest.TempDir()
			explicitPath := ""
			expectedFileUsed := ""

			if testCase.fileRate > 0 {
				filePath := filepath.Join(subTest.TempDir(), testConfigFileNameConstant)
				if testCase.searchPathFile {
					filePath = filepath.Join(searchDirectory, testConfigFileNameConstant)
				} else {
					explicitPath = filePath
				}
				require.NoError(subTest, os.WriteFile(filePath, []byte(fmt.Sprintf(testConfigContentTemplateConstant, testCase.fileRate)), 0o600))
				expectedFileUsed = filePath
			}

			if testCase.environmentRate > 0 {
				subTest.Setenv(testRateEnvironmentVariableConstant, fmt.Sprint(testCase.environmentRate))
			}

			loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{searchDirectory})
			if testCase.embedded {
				loader.SetEmbeddedConfiguration([]byte(testEmbeddedConfigurationConstant), testConfigurationTypeConstant)
			}

			loadedConfiguration := conversionConfigurationFixture{}
			metadata, loadError := loader.LoadConfiguration(explicitPath, map[string]any{
				testRateKeyConstant:     testDefaultRateConstant,
				testAttemptsKeyConstant: 1,
			}, &loadedConfiguration)
			require.NoError(subTest, loadError)
			require.Equal(subTest, testCase.expectedRate, loadedConfiguration.Conversion.Rate)
			require.Equal(subTest, expectedFileUsed, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderDecodesDurations(testInstance *testing.T) {
	testInstance.Setenv(testDelayEnvironmentVariableConstant, "120ms")

	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{testInstance.TempDir()})
	loader.SetEmbeddedConfiguration([]byte(testEmbeddedConfigurationConstant), testConfigurationTypeConstant)

	loadedConfiguration := conversionConfigurationFixture{}
	_, loadError := loader.LoadConfiguration("", map[string]any{}, &loadedConfiguration)
	require.NoError(testInstance, loadError)

	require.Equal(testInstance, 6, loadedConfiguration.Conversion.Cleanup.Attempts)
	require.Equal(testInstance, 120*time.Millisecond, loadedConfiguration.Conversion.Cleanup.Delay)
}

func TestConfigurationLoaderRejectsMalformedFiles(testInstance *testing.T) {
	testCases := []struct {
		name     string
		embedded string
		file     string
	}{
		{name: "malformed file", file: testMalformedConfigurationConstant},
		{name: "malformed embedded", embedded: testMalformedConfigurationConstant},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(subTest *testing.T) {
			loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{subTest.TempDir()})
			loader.SetEmbeddedConfiguration([]byte(testCase.embedded), testConfigurationTypeConstant)

			explicitPath := ""
			if len(testCase.file) > 0 {
				explicitPath = filepath.Join(subTest.TempDir(), testConfigFileNameConstant)
				require.NoError(subTest, os.WriteFile(explicitPath, []byte(testCase.file), 0o600))
			}

			_, loadError := loader.LoadConfiguration(explicitPath, map[string]any{}, &conversionConfigurationFixture{})
			require.Error(subTest, loadError)
		})
	}
}
