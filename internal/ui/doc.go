// Package ui renders batch activity for people watching the terminal.
//
// ConsoleCommandEventLogger turns encoder and decoder lifecycle events into
// short console messages, and ProgressIndicator draws the per-item progress bar.
// Structured telemetry continues to flow through the zap loggers.
package ui
