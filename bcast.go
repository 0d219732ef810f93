package pipeline

import (
	"context"
	"sync"

	"github.com/caffix/pipeline/v2/datum"
	"github.com/caffix/queue"
)

type broadcast struct {
	id    string
	fifos []Stage
	inChs []chan datum.Datum
}

// Broadcast returns a Stage that passes a copy of each incoming Data datum
// to all specified tasks and emits their outputs to the next stage.
// Control and error datums are emitted to the next stage once.
func Broadcast(id string, tasks ...Task) Stage {
	if len(tasks) == 0 {
		return nil
	}

	fifos := make([]Stage, len(tasks))
	for i, t := range tasks {
		fifos[i] = FIFO("", t)
	}

	return &broadcast{
		id:    id,
		fifos: fifos,
		inChs: make([]chan datum.Datum, len(fifos)),
	}
}

// ID implements Stage.
func (b *broadcast) ID() string {
	return b.id
}

// Run implements Stage.
func (b *broadcast) Run(ctx context.Context, sp StageParams) {
	var wg sync.WaitGroup

	// Start each FIFO in a goroutine. Each FIFO gets its own dedicated
	// input channel and the shared output channel passed to Run.
	for i := 0; i < len(b.fifos); i++ {
		wg.Add(1)
		b.inChs[i] = make(chan datum.Datum)
		go func(idx int) {
			defer wg.Done()
			b.fifos[idx].Run(ctx, &params{
				pipeline:  sp.Pipeline(),
				runID:     sp.RunID(),
				stage:     sp.Position(),
				inCh:      b.inChs[idx],
				outCh:     sp.Output(),
				dataQueue: queue.NewQueue(),
				errQueue:  sp.Error(),
				registry:  sp.Registry(),
				exited:    exitedStages(sp),
			})
		}(i)
	}

	for {
		d, ok := nextDatum(ctx, sp)
		if !ok {
			break
		}
		if d == nil {
			continue
		}

		if d.Kind() == datum.KindData {
			b.executeTask(ctx, d)
		} else {
			forward(ctx, sp, d)
		}
	}

	// Close input channels and wait for FIFOs to exit
	for _, ch := range b.inChs {
		close(ch)
	}
	wg.Wait()
}

func (b *broadcast) executeTask(ctx context.Context, d datum.Datum) {
	for i := len(b.fifos) - 1; i >= 0; i-- {
		// As each FIFO might modify the payload, to
		// avoid data races we need to make a copy
		// of the datum for all FIFOs except the first.
		var fifoData = d
		if i != 0 {
			fifoData = cloneDatum(d)
		}

		select {
		case <-ctx.Done():
			return
		case b.inChs[i] <- fifoData:
			// datum sent to i_th FIFO
		}
	}
}
