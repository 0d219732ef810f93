package pipeline

import (
	"context"

	"github.com/caffix/pipeline/v2/datum"
)

type parallel struct {
	id    string
	tasks []Task
}

// Parallel returns a Stage that passes a copy of each incoming Data datum
// to all specified tasks, waits for all the tasks to finish before
// sending the datum to the next stage, and only passes the original datum
// through to the following stage.
func Parallel(id string, tasks ...Task) Stage {
	if len(tasks) == 0 {
		return nil
	}

	return &parallel{
		id:    id,
		tasks: tasks,
	}
}

// ID implements Stage.
func (p *parallel) ID() string {
	return p.id
}

// Run implements Stage.
func (p *parallel) Run(ctx context.Context, sp StageParams) {
	for {
		if !processStageData(ctx, sp, p.executeTask) {
			break
		}
	}
}

func (p *parallel) executeTask(ctx context.Context, d datum.Datum, sp StageParams) {
	select {
	case <-ctx.Done():
		markAsProcessed(d)
		return
	default:
	}

	done := make(chan datum.Datum, len(p.tasks))
	for i := 0; i < len(p.tasks); i++ {
		c := cloneDatum(d)

		go func(idx int, clone datum.Datum) {
			out, err := p.tasks[idx].Process(ctx, clone, newTaskParams(sp))
			if err != nil {
				reportError(sp, err)
			}

			if clone != d {
				markAsProcessed(clone)
			}
			done <- out
		}(i, c)
	}

	var failed bool
	for i := 0; i < len(p.tasks); i++ {
		if out := <-done; out == nil {
			failed = true
		}
	}
	if failed {
		markAsProcessed(d)
		return
	}

	forward(ctx, sp, d)
}
