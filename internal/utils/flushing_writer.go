package utils

import (
	"errors"
	"io"
	"sync"
	"syscall"
)

type bufferedWriter interface {
	Flush() error
}

type syncableWriter interface {
	Sync() error
}

// FlushingWriter makes console output visible as soon as it is written. Buffered
// writers are flushed and files are synced after every write so summary lines,
// diagnostic blocks, and the progress bar reach the terminal in order.
type FlushingWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

// NewFlushingWriter wraps writer; nil stays nil and an existing FlushingWriter is returned as is.
func NewFlushingWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return nil
	}
	if _, alreadyWrapped := writer.(*FlushingWriter); alreadyWrapped {
		return writer
	}
	return &FlushingWriter{writer: writer}
}

// Write delegates to the underlying writer and then flushes it.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.writer == nil {
		return 0, nil
	}

	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}

	return bytesWritten, flushingWriter.flush()
}

func (flushingWriter *FlushingWriter) flush() error {
	switch typedWriter := flushingWriter.writer.(type) {
	case bufferedWriter:
		return typedWriter.Flush()
	case syncableWriter:
		return ignoreUnsupportedSync(typedWriter.Sync())
	default:
		return nil
	}
}

// Pipes and terminals reject fsync; that is not a write failure.
func ignoreUnsupportedSync(syncError error) error {
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.EINVAL), errors.Is(syncError, syscall.ENOTSUP), errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}
