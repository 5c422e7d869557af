// Package wavinfo reads the header of converted WAV files so the batch can log
// what the decoder produced.
package wavinfo
