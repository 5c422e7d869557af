// Package batch drives the round-trip conversion over every discovered input.
//
// Processor runs jobs strictly one at a time. Each item yields an ItemOutcome;
// tool failures and unexpected failures are recorded and reported without
// stopping the run, and the aggregate Result is rendered as a console summary
// and optionally as a YAML report.
package batch
