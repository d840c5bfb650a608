package export

import (
	"bytes"
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-3mf/pkg/opc"
)

// Write builds the document for scene and streams the package to sink. An
// empty scene writes nothing and returns nil.
func (e *Exporter) Write(ctx context.Context, sink opc.Sink, scene Scene) (err error) {
	ctx, span := e.tracer.Start(ctx, "export.Write",
		trace.WithAttributes(attribute.String("scene.name", scene.Name)))
	start := time.Now()

	var stats Stats
	status := StatusOK
	defer func() {
		stats.Duration = time.Since(start)
		if err != nil {
			status = StatusError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.String("export.status", status),
			attribute.Int("export.objects", stats.Objects),
			attribute.Int("export.vertices", stats.Vertices),
			attribute.Int("export.triangles", stats.Triangles),
			attribute.Int64("export.bytes", stats.Bytes),
		)
		span.End()
		e.metrics.RecordExport(status, stats)
	}()

	doc, built, err := e.build(scene)
	stats = built
	if err != nil {
		return err
	}
	if doc == nil {
		status = StatusEmpty
		return nil
	}
	span.AddEvent("document built")

	counted := func(err error, chunk []byte, final bool) {
		stats.Bytes += int64(len(chunk))
		sink(err, chunk, final)
	}
	if err := e.packager.Write(ctx, counted, doc); err != nil {
		return err
	}

	e.log.Info("scene exported",
		zap.String("scene", scene.Name),
		zap.Int("objects", stats.Objects),
		zap.Int("instances", stats.Instances),
		zap.Int64("bytes", stats.Bytes),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// WriteToMemory returns the package bytes for scene, or nil when there is
// nothing to export. The first error reported through the sink is returned
// and stops the write.
func (e *Exporter) WriteToMemory(ctx context.Context, scene Scene) ([]byte, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		buf     bytes.Buffer
		sinkErr error
	)
	err := e.Write(ctx, func(err error, chunk []byte, _ bool) {
		if err != nil {
			if sinkErr == nil {
				sinkErr = err
				cancel(err)
			}
			return
		}
		buf.Write(chunk)
	}, scene)
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
