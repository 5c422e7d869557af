// Package cli constructs the brrbatch command-line interface. It wires the
// Cobra root command, the Viper-backed configuration loader, and the zap
// loggers, then assembles path resolution, tool invocation, artifact cleanup,
// and the batch processor for a single run.
package cli
