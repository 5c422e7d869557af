package main

import (
	"fmt"
	"os"

	"github.com/temirov/brrbatch/cmd/cli"
)

const (
	exitErrorTemplateConstant = "FATAL ERROR: %v\n"
)

// main executes the brrbatch command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
