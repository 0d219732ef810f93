package pipeline

import (
	"context"

	"github.com/caffix/pipeline/v2/datum"
	"github.com/caffix/stringset"
	"github.com/google/uuid"
)

// TaskParams provides access to pipeline mechanisms needed by a Task.
// The Stage passes a TaskParams instance to the Process method of
// each task.
type TaskParams interface {
	// Pipeline returns the pipeline executing this task.
	Pipeline() *Pipeline

	// RunID returns the identifier of the current pipeline execution.
	RunID() uuid.UUID

	// Registry returns a map of stage names to stage data queues.
	Registry() StageRegistry
}

type taskParams struct {
	pipeline *Pipeline
	runID    uuid.UUID
	registry StageRegistry
	exited   *stringset.Set
}

func (tp *taskParams) Pipeline() *Pipeline     { return tp.pipeline }
func (tp *taskParams) RunID() uuid.UUID        { return tp.runID }
func (tp *taskParams) Registry() StageRegistry { return tp.registry }

func newTaskParams(sp StageParams) *taskParams {
	return &taskParams{
		pipeline: sp.Pipeline(),
		runID:    sp.RunID(),
		registry: sp.Registry(),
		exited:   exitedStages(sp),
	}
}

func exitedStages(sp StageParams) *stringset.Set {
	if p, ok := sp.(*params); ok {
		return p.exited
	}
	return nil
}

// stageExited reports whether the stage registered as id has returned from Run.
func (tp *taskParams) stageExited(id string) bool {
	return tp.exited != nil && tp.exited.Has(id)
}

// Task is implemented by types that can process Data datums as part of a
// pipeline stage. Control and error datums bypass tasks.
type Task interface {
	// Process operates on the input datum and returns back a new datum to be
	// forwarded to the next pipeline stage. Task instances may also opt to
	// prevent the datum from reaching the rest of the pipeline by returning
	// a nil datum instead.
	Process(context.Context, datum.Datum, TaskParams) (datum.Datum, error)
}

// TaskFunc is an adapter to allow the use of plain functions as Task instances.
type TaskFunc func(context.Context, datum.Datum, TaskParams) (datum.Datum, error)

// Process calls f(ctx, d, tp)
func (f TaskFunc) Process(ctx context.Context, d datum.Datum, tp TaskParams) (datum.Datum, error) {
	return f(ctx, d, tp)
}

// consumed reports whether the input of a task is finished with once the
// task returned out. Dropping the input or replacing it with a datum that
// carries no payload both end the life of the input payload.
func consumed(out datum.Datum) bool {
	return out == nil || out.Kind() != datum.KindData
}
