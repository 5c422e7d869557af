package paths_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/brrbatch/internal/paths"
)

const testHomeDirectoryConstant = "/home/composer"

func TestHomeExpanderExpand(testInstance *testing.T) {
	expander := paths.NewHomeExpander(func() (string, error) {
		return testHomeDirectoryConstant, nil
	})

	testCases := []struct {
		name         string
		candidate    string
		expectedPath string
	}{
		{name: "bare_shortcut", candidate: "~", expectedPath: testHomeDirectoryConstant},
		{name: "slash_prefix", candidate: "~/samples/in", expectedPath: filepath.Join(testHomeDirectoryConstant, "samples", "in")},
		{name: "other_user_untouched", candidate: "~other/samples", expectedPath: "~other/samples"},
		{name: "absolute_untouched", candidate: "/srv/samples", expectedPath: "/srv/samples"},
		{name: "empty_untouched", candidate: "", expectedPath: ""},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.candidate))
		})
	}
}

func TestHomeExpanderExpandRequest(testInstance *testing.T) {
	providerCalls := 0
	expander := paths.NewHomeExpander(func() (string, error) {
		providerCalls++
		return testHomeDirectoryConstant, nil
	})

	expanded := expander.ExpandRequest(paths.Request{
		ToolDirectory:   "~/BRRtools",
		InputDirectory:  "~/in",
		OutputDirectory: "relative/out",
	})

	require.Equal(testInstance, paths.Request{
		ToolDirectory:   filepath.Join(testHomeDirectoryConstant, "BRRtools"),
		InputDirectory:  filepath.Join(testHomeDirectoryConstant, "in"),
		OutputDirectory: "relative/out",
	}, expanded)
	require.Equal(testInstance, 1, providerCalls)
}

func TestHomeExpanderLeavesPathsWhenHomeUnknown(testInstance *testing.T) {
	expander := paths.NewHomeExpander(func() (string, error) {
		return "", errors.New("no home")
	})
	require.Equal(testInstance, "~/in", expander.Expand("~/in"))
}
