package pipeline

import (
	"context"
	"sync"

	"github.com/caffix/pipeline/v2/datum"
)

type fixedPool struct {
	id    string
	fifos []Stage
}

// FixedPool returns a Stage that spins up a pool containing num workers
// to process incoming datums in parallel and emit their outputs to the next stage.
// Control datums are forwarded by whichever worker receives them, so they
// are not ordered relative to datums still being processed by other workers.
func FixedPool(id string, task Task, num int) Stage {
	if num <= 0 {
		return nil
	}

	fifos := make([]Stage, num)
	for i := 0; i < num; i++ {
		fifos[i] = FIFO("", task)
	}

	return &fixedPool{
		id:    id,
		fifos: fifos,
	}
}

// ID implements Stage.
func (p *fixedPool) ID() string {
	return p.id
}

// Run implements Stage.
func (p *fixedPool) Run(ctx context.Context, sp StageParams) {
	var wg sync.WaitGroup

	// Spin up each task in the pool and wait for them to exit
	for i := 0; i < len(p.fifos); i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			p.fifos[idx].Run(ctx, sp)
		}(i)
	}

	wg.Wait()
}

type dynamicPool struct {
	id        string
	task      Task
	tokenPool chan struct{}
}

// DynamicPool returns a Stage that maintains a dynamic pool that can scale
// up to max parallel tasks for processing incoming datums in parallel and
// emitting their outputs to the next stage. Control and error datums act as
// barriers: every task in flight finishes before they are forwarded.
func DynamicPool(id string, task Task, max int) Stage {
	if max <= 0 {
		return nil
	}

	tokenPool := make(chan struct{}, max)
	for i := 0; i < max; i++ {
		tokenPool <- struct{}{}
	}

	return &dynamicPool{
		id:        id,
		task:      task,
		tokenPool: tokenPool,
	}
}

// ID implements Stage.
func (p *dynamicPool) ID() string {
	return p.id
}

// Run implements Stage.
func (p *dynamicPool) Run(ctx context.Context, sp StageParams) {
	for {
		d, ok := nextDatum(ctx, sp)
		if !ok {
			break
		}
		if d == nil {
			continue
		}

		if d.Kind() == datum.KindData {
			p.executeTask(ctx, d, sp)
		} else {
			p.barrier(ctx, sp, d)
		}
	}

	// Wait for all workers to exit by trying to empty the token pool,
	// then restore it so the stage can be executed again
	p.drain()
	p.refill()
}

func (p *dynamicPool) drain() {
	for i := 0; i < cap(p.tokenPool); i++ {
		<-p.tokenPool
	}
}

func (p *dynamicPool) refill() {
	for i := 0; i < cap(p.tokenPool); i++ {
		p.tokenPool <- struct{}{}
	}
}

func (p *dynamicPool) barrier(ctx context.Context, sp StageParams, d datum.Datum) {
	p.drain()
	defer p.refill()

	forward(ctx, sp, d)
}

func (p *dynamicPool) executeTask(ctx context.Context, d datum.Datum, sp StageParams) {
	var token struct{}

	select {
	case <-ctx.Done():
		markAsProcessed(d)
		return
	case token = <-p.tokenPool:
	}

	go func(dataIn datum.Datum, token struct{}) {
		defer func() { p.tokenPool <- token }()

		dataOut, err := p.task.Process(ctx, dataIn, newTaskParams(sp))
		if err != nil {
			reportError(sp, err)
			markAsProcessed(dataIn)
			return
		}
		if consumed(dataOut) {
			markAsProcessed(dataIn)
		}
		// If the task did not output a datum for the
		// next stage there is nothing we need to do.
		if dataOut == nil {
			return
		}
		forward(ctx, sp, dataOut)
	}(d, token)
}
