// Package toolchain runs the BRRtools encode/decode round trip for a single
// conversion job.
//
// Two InvocationStrategy implementations exist: NativeStrategy executes the
// encoder and decoder directly, and ShellStrategy routes both stages through a
// compatibility shell after rewriting every path into that shell's syntax. The
// strategy is chosen once per run by SelectStrategy.
package toolchain
