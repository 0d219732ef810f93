package pipeline

import (
	"context"
	"fmt"

	"github.com/caffix/pipeline/v2/datum"
	"github.com/caffix/queue"
	"github.com/google/uuid"
)

// StageRegistry is a map of stage identifiers to stage data queues.
type StageRegistry map[string]queue.Queue

// StageParams provides the information needed for executing a pipeline
// Stage. The Pipeline passes a StageParams instance to the Run method
// of each stage.
type StageParams interface {
	// Pipeline returns the pipeline executing this stage.
	Pipeline() *Pipeline

	// RunID returns the identifier of the current pipeline execution.
	RunID() uuid.UUID

	// Position returns the position of this stage in the pipeline.
	Position() int

	// Input returns the input channel for this stage.
	Input() <-chan datum.Datum

	// Output returns the output channel for this stage.
	Output() chan<- datum.Datum

	// DataQueue returns the alternative data queue for this stage.
	DataQueue() queue.Queue

	// Error returns the queue that reports errors encountered by the stage.
	Error() queue.Queue

	// Registry returns a map of stage names to stage data queues.
	Registry() StageRegistry
}

// Stage is designed to be executed in sequential order to
// form a multi-stage data pipeline.
type Stage interface {
	// ID returns the optional identifier assigned to this stage.
	ID() string

	// Run executes the processing logic for this stage by reading
	// datums from the input channel, processing the data and sending
	// the results to the output channel. Run blocks until the stage
	// input channel is closed, the context expires, or an error occurs.
	Run(context.Context, StageParams)
}

// SendData places d on the data queue of the stage registered as id.
// The stage handles it as if it had arrived on its input channel.
// An error is returned once the target stage has returned from Run. A stage
// that is still draining its queue while SendData runs may exit before
// reaching d.
func SendData(ctx context.Context, id string, d datum.Datum, tp TaskParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q, found := tp.Registry()[id]
	if !found {
		return fmt.Errorf("pipeline: no stage registered as %q", id)
	}
	if t, ok := tp.(*taskParams); ok && t.stageExited(id) {
		return fmt.Errorf("pipeline: stage %q is no longer running", id)
	}

	q.Append(d)
	return nil
}

type execTask func(context.Context, datum.Datum, StageParams)

// nextDatum blocks until the stage has another datum to handle. It returns
// false once the input channel is closed and the data queue is drained,
// or when the context expires.
func nextDatum(ctx context.Context, sp StageParams) (datum.Datum, bool) {
	for {
		select {
		case <-ctx.Done():
			return nil, false
		case d, ok := <-sp.Input():
			if ok {
				return d, true
			}
			// Only the queued datums are left
			e, found := sp.DataQueue().Next()
			if !found {
				return nil, false
			}
			if d, ok := e.(datum.Datum); ok {
				return d, true
			}
		case <-sp.DataQueue().Signal():
			if e, found := sp.DataQueue().Next(); found {
				if d, ok := e.(datum.Datum); ok {
					return d, true
				}
			}
		}
	}
}

func processStageData(ctx context.Context, sp StageParams, task execTask) bool {
	d, ok := nextDatum(ctx, sp)
	if !ok {
		return false
	}
	if d == nil {
		return true
	}

	if d.Kind() != datum.KindData {
		forward(ctx, sp, d)
		return true
	}

	task(ctx, d, sp)
	return true
}

func forward(ctx context.Context, sp StageParams, d datum.Datum) {
	select {
	case <-ctx.Done():
		markAsProcessed(d)
	case sp.Output() <- d:
	}
}

func reportError(sp StageParams, err error) {
	sp.Error().Append(fmt.Errorf("pipeline stage %d: %v", sp.Position(), err))
}
