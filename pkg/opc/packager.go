package opc

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-3mf/pkg/threemf"
	"github.com/Faultbox/midgard-3mf/pkg/xmlser"
)

// Entry paths, in the order they are written.
const (
	ContentTypesPath  = threemf.ContentTypesName
	RelationshipsPath = threemf.RelsDirName + threemf.RelsFileName
	ModelPath         = threemf.Object3dDirName + threemf.ModelFileName
)

// DefaultCompressionLevel is the Deflate level used for every entry.
const DefaultCompressionLevel = 6

// ErrIncompleteDocument is returned for a document missing one of its parts.
var ErrIncompleteDocument = errors.New("document is missing a package part")

// Option configures a Packager.
type Option func(*Packager)

// WithFormatOptions sets the number formatting used for all parts.
func WithFormatOptions(opts xmlser.FormatOptions) Option {
	return func(p *Packager) { p.format = opts }
}

// WithFlushChars sets the text buffered per entry before compressing.
func WithFlushChars(n int) Option {
	return func(p *Packager) { p.flushChars = n }
}

// WithCompressionLevel overrides DefaultCompressionLevel.
func WithCompressionLevel(level int) Option {
	return func(p *Packager) { p.level = level }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(p *Packager) { p.log = l }
}

// Packager writes a Document as a 3MF package.
type Packager struct {
	resolver   *Resolver
	format     xmlser.FormatOptions
	flushChars int
	level      int
	log        *zap.Logger
}

// NewPackager creates a packager. A nil resolver uses DefaultResolver.
func NewPackager(resolver *Resolver, opts ...Option) *Packager {
	if resolver == nil {
		resolver = DefaultResolver()
	}
	p := &Packager{
		resolver:   resolver,
		format:     xmlser.DefaultFormatOptions(),
		flushChars: xmlser.DefaultFlushChars,
		level:      DefaultCompressionLevel,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(zap.String("component", "opc"))
	return p
}

type part struct {
	path string
	root any
	ext  []threemf.Extension
}

// Write streams doc to sink. A nil doc writes nothing and returns nil. The
// provider is resolved before any byte is written, so a missing provider
// fails without output. A sink that fails can cancel ctx; Write then stops
// before the next chunk and returns the cancellation cause.
func (p *Packager) Write(ctx context.Context, sink Sink, doc *threemf.Document) error {
	if doc == nil {
		return nil
	}
	if doc.ContentTypes == nil || doc.Relationships == nil || doc.Model == nil {
		return ErrIncompleteDocument
	}

	provider, err := p.resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve zip provider: %w", err)
	}

	archive, err := provider.NewArchive(sink)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	parts := []part{
		{path: ContentTypesPath, root: doc.ContentTypes},
		{path: RelationshipsPath, root: doc.Relationships},
		{path: ModelPath, root: doc.Model, ext: doc.Model.Extensions},
	}
	for _, pt := range parts {
		if err := ctx.Err(); err != nil {
			return context.Cause(ctx)
		}
		n, err := p.writePart(ctx, archive, pt)
		if err != nil {
			return fmt.Errorf("write %s: %w", pt.path, err)
		}
		p.log.Debug("entry written", zap.String("path", pt.path), zap.Int("bytes", n))
	}

	if err := archive.End(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func (p *Packager) writePart(ctx context.Context, archive ZipArchive, pt part) (int, error) {
	entry, err := archive.AddDeflate(pt.path, p.level)
	if err != nil {
		return 0, err
	}

	cw := xmlser.NewChunkWriter(stopOnDone(ctx, entry), p.flushChars)
	b := xmlser.NewBuilder(cw).Dec("1.0", "UTF-8")
	s, err := xmlser.NewSerializer(b, threemf.Registry(), p.format)
	if err != nil {
		return 0, err
	}
	for _, ext := range pt.ext {
		s.WithPrefix(ext.Prefix, ext.Namespace)
	}
	if err := s.Serialize(pt.root); err != nil {
		return 0, err
	}
	if err := cw.Finish(); err != nil {
		return 0, err
	}
	return cw.Count(), nil
}

// stopOnDone refuses chunks once ctx is done, so a sink that cancels the
// context after a failed write stops compression within one chunk.
func stopOnDone(ctx context.Context, next xmlser.ByteSink) xmlser.ByteSink {
	return xmlser.ByteSinkFunc(func(chunk []byte, final bool) error {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return next.Push(chunk, final)
	})
}

// WriteToMemory returns the package bytes, or nil when doc is nil. The
// first error reported through the sink is returned and stops the write.
func (p *Packager) WriteToMemory(ctx context.Context, doc *threemf.Document) ([]byte, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		buf     bytes.Buffer
		sinkErr error
	)
	err := p.Write(ctx, func(err error, chunk []byte, _ bool) {
		if err != nil {
			if sinkErr == nil {
				sinkErr = err
				cancel(err)
			}
			return
		}
		buf.Write(chunk)
	}, doc)
	if sinkErr != nil {
		return nil, sinkErr
	}
	if err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, nil
	}
	return buf.Bytes(), nil
}
