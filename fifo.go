package pipeline

import (
	"context"

	"github.com/caffix/pipeline/v2/datum"
)

type fifo struct {
	id   string
	task Task
}

// FIFO returns a Stage that processes incoming datums in a first-in first-out
// fashion. Each Data datum is passed to the specified Task and its output
// is emitted to the next Stage. Other datums are forwarded as they are.
func FIFO(id string, task Task) Stage {
	return &fifo{
		id:   id,
		task: task,
	}
}

// ID implements Stage.
func (r *fifo) ID() string {
	return r.id
}

// Run implements Stage.
func (r *fifo) Run(ctx context.Context, sp StageParams) {
	for {
		if !processStageData(ctx, sp, r.executeTask) {
			break
		}
	}
}

func (r *fifo) executeTask(ctx context.Context, d datum.Datum, sp StageParams) {
	select {
	case <-ctx.Done():
		markAsProcessed(d)
		return
	default:
	}

	dataOut, err := r.task.Process(ctx, d, newTaskParams(sp))
	if err != nil {
		reportError(sp, err)
		markAsProcessed(d)
		return
	}
	if consumed(dataOut) {
		markAsProcessed(d)
	}
	// If the task did not output a datum for the
	// next stage there is nothing we need to do
	if dataOut == nil {
		return
	}
	forward(ctx, sp, dataOut)
}
