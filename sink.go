package pipeline

import (
	"context"

	"github.com/caffix/pipeline/v2/datum"
)

// OutputSink is implemented by types that can operate as the tail of a pipeline.
type OutputSink interface {
	// Consume processes a datum that has been emitted out of a Pipeline
	// instance. The last datum consumed after a normal run is always a
	// Complete datum.
	Consume(context.Context, datum.Datum) error
}

// SinkFunc is an adapter to allow the use of plain functions as OutputSink instances.
type SinkFunc func(context.Context, datum.Datum) error

// Consume calls f(ctx, d)
func (f SinkFunc) Consume(ctx context.Context, d datum.Datum) error {
	return f(ctx, d)
}
