package toolchain

import (
	"path/filepath"
	"strings"
)

const temporaryArtifactExtensionConstant = ".brr"

// ConversionJob names the three files touched while converting one input.
type ConversionJob struct {
	InputPath  string
	OutputPath string
	TempPath   string
}

// NewConversionJob derives the output and intermediate paths for inputPath inside outputDirectory.
// The output keeps the input's file name; the intermediate artifact uses its stem with a .brr extension.
func NewConversionJob(inputPath string, outputDirectory string) ConversionJob {
	inputFileName := filepath.Base(inputPath)
	inputStem := strings.TrimSuffix(inputFileName, filepath.Ext(inputFileName))
	return ConversionJob{
		InputPath:  inputPath,
		OutputPath: filepath.Join(outputDirectory, inputFileName),
		TempPath:   filepath.Join(outputDirectory, inputStem+temporaryArtifactExtensionConstant),
	}
}

// NewConversionJobs builds one job per input path, preserving order. Inputs whose
// stems collide (a.wav and a.WAV) name their intermediate after the full file name
// instead, so every job owns a distinct temporary path.
func NewConversionJobs(inputPaths []string, outputDirectory string) []ConversionJob {
	stemCounts := make(map[string]int, len(inputPaths))
	for _, inputPath := range inputPaths {
		stemCounts[temporaryStem(inputPath)]++
	}

	jobs := make([]ConversionJob, 0, len(inputPaths))
	for _, inputPath := range inputPaths {
		job := NewConversionJob(inputPath, outputDirectory)
		if stemCounts[temporaryStem(inputPath)] > 1 {
			job.TempPath = filepath.Join(outputDirectory, filepath.Base(inputPath)+temporaryArtifactExtensionConstant)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// Stems are compared case-insensitively since Windows and macOS filesystems fold case.
func temporaryStem(inputPath string) string {
	inputFileName := filepath.Base(inputPath)
	return strings.ToLower(strings.TrimSuffix(inputFileName, filepath.Ext(inputFileName)))
}

// Tools run inside the output directory so any stray files they write land beside the results.
func (job ConversionJob) workingDirectory() string {
	return filepath.Dir(job.OutputPath)
}

// DisplayName is the input file name shown in progress and diagnostics.
func (job ConversionJob) DisplayName() string {
	return filepath.Base(job.InputPath)
}
