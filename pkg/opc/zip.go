// Package opc writes 3MF documents as OPC (Open Packaging Conventions) ZIP
// packages, streaming the archive bytes to a caller supplied sink.
package opc

import (
	"archive/zip"
	"errors"
	"io"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/Faultbox/midgard-3mf/pkg/xmlser"
)

// ErrDeflateUnavailable is returned when no ZIP provider with a Deflate
// compressor could be obtained.
var ErrDeflateUnavailable = errors.New("zip provider unavailable: Deflate compressor is required")

// Sink receives archive bytes in order. final is true once, after the
// archive is complete, with a nil chunk. A non-nil err reports a failure of
// the archive layer.
type Sink func(err error, chunk []byte, final bool)

// ZipArchive is an archive being written.
type ZipArchive interface {
	// AddDeflate starts a deflated entry. Chunks pushed to the returned sink
	// form its content; the final marker ends it.
	AddDeflate(name string, level int) (xmlser.ByteSink, error)
	// End writes the central directory and delivers the final marker.
	End() error
}

// ZipProvider creates archives.
type ZipProvider interface {
	NewArchive(sink Sink) (ZipArchive, error)
}

// DeflateProvider writes archives with archive/zip, compressing entries with
// klauspost/compress/flate.
type DeflateProvider struct {
	// Modified is stamped on every entry. The zero value keeps output
	// byte-for-byte reproducible.
	Modified time.Time
}

// NewArchive implements ZipProvider.
func (p DeflateProvider) NewArchive(sink Sink) (ZipArchive, error) {
	if sink == nil {
		return nil, errors.New("nil sink")
	}
	return &deflateArchive{
		zw:       zip.NewWriter(sinkWriter(sink)),
		sink:     sink,
		modified: p.Modified,
	}, nil
}

// sinkWriter forwards archive writes to a Sink. archive/zip reuses its
// buffer, so every chunk is copied.
type sinkWriter Sink

func (w sinkWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	w(nil, chunk, false)
	return len(p), nil
}

type deflateArchive struct {
	zw       *zip.Writer
	sink     Sink
	modified time.Time
	ended    bool
}

func (a *deflateArchive) AddDeflate(name string, level int) (xmlser.ByteSink, error) {
	if a.ended {
		return nil, errors.New("archive already ended")
	}
	a.zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
	if !a.modified.IsZero() {
		hdr.Modified = a.modified
	}
	w, err := a.zw.CreateHeader(hdr)
	if err != nil {
		a.sink(err, nil, false)
		return nil, err
	}
	return entrySink{w: w, zw: a.zw, sink: a.sink}, nil
}

func (a *deflateArchive) End() error {
	if a.ended {
		return nil
	}
	a.ended = true
	if err := a.zw.Close(); err != nil {
		a.sink(err, nil, false)
		return err
	}
	a.sink(nil, nil, true)
	return nil
}

type entrySink struct {
	w    io.Writer
	zw   *zip.Writer
	sink Sink
}

// Push writes chunk into the entry. The final marker flushes what the
// archive has buffered so far down to the sink.
func (e entrySink) Push(chunk []byte, final bool) error {
	if len(chunk) > 0 {
		if _, err := e.w.Write(chunk); err != nil {
			e.sink(err, nil, false)
			return err
		}
	}
	if final {
		if err := e.zw.Flush(); err != nil {
			e.sink(err, nil, false)
			return err
		}
	}
	return nil
}
