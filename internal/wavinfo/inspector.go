package wavinfo

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

const (
	openFileErrorTemplateConstant   = "unable to open %s: %w"
	durationErrorTemplateConstant   = "unable to compute duration of %s: %w"
	invalidWaveFileTemplateConstant = "%s is not a valid WAV file"
	headerReadErrorTemplateConstant = "unable to read header of %s: %w"
)

// ErrInvalidWaveFile indicates the file lacks a RIFF/WAVE header.
var ErrInvalidWaveFile = errors.New("invalid WAV file")

// Info summarises a WAV header.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// Inspector decodes WAV headers from disk.
type Inspector struct{}

// NewInspector constructs an Inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// Inspect reads the format chunk and duration of the WAV file at path.
func (inspector *Inspector) Inspect(path string) (Info, error) {
	file, openError := os.Open(path)
	if openError != nil {
		return Info{}, fmt.Errorf(openFileErrorTemplateConstant, path, openError)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return Info{}, fmt.Errorf("%w: "+invalidWaveFileTemplateConstant, ErrInvalidWaveFile, path)
	}
	decoder.ReadInfo()
	if decoderError := decoder.Err(); decoderError != nil {
		return Info{}, fmt.Errorf(headerReadErrorTemplateConstant, path, decoderError)
	}

	duration, durationError := decoder.Duration()
	if durationError != nil {
		return Info{}, fmt.Errorf(durationErrorTemplateConstant, path, durationError)
	}

	return Info{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
		Duration:   duration,
	}, nil
}
