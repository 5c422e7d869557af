// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions brrbatch uses to run
// the BRR encoder, the BRR decoder, and the compatibility shell in a testable
// manner.
package execshell
