package xmlser

import "strings"

// DefaultFlushChars is the buffered text size that triggers a flush.
const DefaultFlushChars = 64 * 1024

// ByteSink receives encoded chunks. final is true exactly once, on an empty
// chunk pushed by ChunkWriter.Finish.
type ByteSink interface {
	Push(chunk []byte, final bool) error
}

// ByteSinkFunc adapts a function to ByteSink.
type ByteSinkFunc func(chunk []byte, final bool) error

// Push calls f.
func (f ByteSinkFunc) Push(chunk []byte, final bool) error {
	return f(chunk, final)
}

// ChunkWriter buffers text and hands it to a ByteSink as UTF-8 chunks once
// flushChars characters are pending.
type ChunkWriter struct {
	sink       ByteSink
	flushChars int
	pending    strings.Builder
	chars      int
	count      int
	finished   bool
}

// NewChunkWriter creates a writer. flushChars <= 0 selects DefaultFlushChars.
func NewChunkWriter(sink ByteSink, flushChars int) *ChunkWriter {
	if flushChars <= 0 {
		flushChars = DefaultFlushChars
	}
	return &ChunkWriter{sink: sink, flushChars: flushChars}
}

// WriteString implements io.StringWriter.
func (w *ChunkWriter) WriteString(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	w.pending.WriteString(s)
	w.chars += len(s)
	if w.chars >= w.flushChars {
		if err := w.Flush(); err != nil {
			return 0, err
		}
	}
	return len(s), nil
}

// Flush pushes pending text, if any, as a non-final chunk.
func (w *ChunkWriter) Flush() error {
	if w.chars == 0 {
		return nil
	}
	// Go strings are already UTF-8.
	chunk := []byte(w.pending.String())
	w.pending.Reset()
	w.chars = 0
	w.count += len(chunk)
	return w.sink.Push(chunk, false)
}

// Finish flushes and then signals end of stream with an empty final chunk.
// Calls after the first are no-ops.
func (w *ChunkWriter) Finish() error {
	if w.finished {
		return nil
	}
	w.finished = true
	if err := w.Flush(); err != nil {
		return err
	}
	return w.sink.Push([]byte{}, true)
}

// Count returns the number of bytes pushed so far.
func (w *ChunkWriter) Count() int {
	return w.count
}
