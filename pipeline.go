package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/caffix/pipeline/v2/datum"
	"github.com/caffix/queue"
	"github.com/caffix/stringset"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

type params struct {
	pipeline  *Pipeline
	runID     uuid.UUID
	stage     int
	inCh      <-chan datum.Datum
	outCh     chan<- datum.Datum
	dataQueue queue.Queue
	errQueue  queue.Queue
	registry  StageRegistry
	exited    *stringset.Set
}

func (p *params) Pipeline() *Pipeline        { return p.pipeline }
func (p *params) RunID() uuid.UUID           { return p.runID }
func (p *params) Position() int              { return p.stage }
func (p *params) Input() <-chan datum.Datum  { return p.inCh }
func (p *params) Output() chan<- datum.Datum { return p.outCh }
func (p *params) DataQueue() queue.Queue     { return p.dataQueue }
func (p *params) Error() queue.Queue         { return p.errQueue }
func (p *params) Registry() StageRegistry    { return p.registry }

// Pipeline is an abstract and extendable asynchronous datum
// pipeline with concurrent tasks at each stage. Each pipeline
// is constructed from an InputSource, an OutputSink, and zero
// or more Stage instances for processing.
type Pipeline struct {
	stages []Stage
	logger zerolog.Logger
}

// NewPipeline returns a new pipeline instance where datums
// traverse each of the provided Stage instances.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{
		stages: stages,
		logger: zerolog.Nop(),
	}
}

// WithLogger sets the logger used while executing the pipeline.
func (p *Pipeline) WithLogger(l zerolog.Logger) *Pipeline {
	p.logger = l
	return p
}

// Execute performs ExecuteBuffered with a bufsize parameter equal to 1.
func (p *Pipeline) Execute(ctx context.Context, src InputSource, sink OutputSink) error {
	return p.ExecuteBuffered(ctx, src, sink, 1)
}

// ExecuteConfig validates cfg and performs ExecuteBuffered with its buffer size.
func (p *Pipeline) ExecuteConfig(ctx context.Context, src InputSource, sink OutputSink, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return p.ExecuteBuffered(ctx, src, sink, cfg.BufferSize)
}

// ExecuteBuffered reads datums from the InputSource, sends them through
// each of the Stage instances, and finishes with the OutputSink.
// All errors are returned that occurred during the execution.
// ExecuteBuffered will block until all datums from the InputSource have
// been processed, or an error occurs, or the context expires.
func (p *Pipeline) ExecuteBuffered(ctx context.Context, src InputSource, sink OutputSink, bufsize int) error {
	if bufsize < 1 {
		bufsize = 1
	}

	registry, queues, err := p.buildRegistry()
	if err != nil {
		return err
	}

	runID := uuid.New()
	logger := p.logger.With().Str("run_id", runID.String()).Logger()
	logger.Debug().Int("stages", len(p.stages)).Int("bufsize", bufsize).Msg("pipeline execution started")

	parent := ctx
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(ctx)
	defer cancel()

	// Create channels for wiring together the InputSource, the pipeline
	// Stage instances, and the OutputSink
	stageCh := make([]chan datum.Datum, len(p.stages)+1)
	for i := 0; i < len(stageCh); i++ {
		stageCh[i] = make(chan datum.Datum, bufsize)
	}
	errQueue := queue.NewQueue()
	exited := stringset.New()
	defer exited.Close()

	var wg sync.WaitGroup
	// Start a goroutine for each Stage
	for i := 0; i < len(p.stages); i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			p.stages[idx].Run(ctx, &params{
				pipeline:  p,
				runID:     runID,
				stage:     idx + 1,
				inCh:      stageCh[idx],
				outCh:     stageCh[idx+1],
				dataQueue: queues[idx],
				errQueue:  errQueue,
				registry:  registry,
				exited:    exited,
			})
			if id := p.stages[idx].ID(); id != "" {
				exited.Insert(id)
			}
			// Tell the next Stage that no more datums are available
			close(stageCh[idx+1])
			logger.Debug().Int("stage", idx+1).Str("id", p.stages[idx].ID()).Msg("pipeline stage exited")
		}(i)
	}

	// Start goroutines for the InputSource and OutputSink
	wg.Add(2)
	go func() {
		defer wg.Done()
		inputSourceRunner(ctx, src, stageCh[0], errQueue, logger)
		// Tell the next Stage that no more datums are available
		close(stageCh[0])
	}()

	go func() {
		defer wg.Done()
		outputSinkRunner(ctx, sink, stageCh[len(stageCh)-1], errQueue, logger)
	}()

	// Monitor for completion of the pipeline execution
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	case <-errQueue.Signal():
	}
	cancel()
	<-done

	// Only a clean drain ends with the Complete datum
	if errQueue.Len() == 0 && parent.Err() == nil {
		if err := consumeComplete(parent, sink); err != nil {
			errQueue.Append(err)
		}
	}

	// Collect any emitted errors and wrap them in a multi-error
	err = nil
	errQueue.Process(func(e interface{}) {
		if qErr, ok := e.(error); ok {
			err = multierror.Append(err, qErr)
		}
	})
	if pErr := parent.Err(); pErr != nil {
		err = multierror.Append(err, pErr)
	}

	if err != nil {
		logger.Debug().Err(err).Msg("pipeline execution failed")
	} else {
		logger.Debug().Msg("pipeline execution finished")
	}
	return err
}

// buildRegistry creates the data queue of every stage and registers the
// queues of the identified stages by name.
func (p *Pipeline) buildRegistry() (StageRegistry, []queue.Queue, error) {
	ids := stringset.New()
	defer ids.Close()

	registry := make(StageRegistry)
	queues := make([]queue.Queue, len(p.stages))
	for i, s := range p.stages {
		if s == nil {
			return nil, nil, fmt.Errorf("pipeline: stage %d is nil", i+1)
		}

		q := queue.NewQueue()
		queues[i] = q
		id := s.ID()
		if id == "" {
			continue
		}
		if ids.Has(id) {
			return nil, nil, fmt.Errorf("pipeline: duplicate stage identifier %q", id)
		}
		ids.Insert(id)
		registry[id] = q
	}
	return registry, queues, nil
}

// inputSourceRunner drives the InputSource to continue providing
// datums to the first stage of the pipeline.
func inputSourceRunner(ctx context.Context, src InputSource, outCh chan<- datum.Datum, errQueue queue.Queue, logger zerolog.Logger) {
	for src.Next(ctx) {
		d := src.Datum()
		if d == nil {
			logger.Warn().Msg("pipeline input source produced a nil datum")
			continue
		}
		// The source declared the end of its input
		if d.Kind() == datum.KindComplete {
			break
		}

		select {
		case outCh <- d:
		case <-ctx.Done():
			return
		}
	}
	// Check for errors
	if err := src.Error(); err != nil {
		errQueue.Append(fmt.Errorf("pipeline input source: %v", err))
	}
}

func outputSinkRunner(ctx context.Context, sink OutputSink, inCh <-chan datum.Datum, errQueue queue.Queue, logger zerolog.Logger) {
	consume := func(d datum.Datum) bool {
		if sink == nil {
			markAsProcessed(d)
			return true
		}
		if err := sink.Consume(ctx, d); err != nil {
			errQueue.Append(fmt.Errorf("pipeline output sink: %v", err))
			return false
		}
		markAsProcessed(d)
		return true
	}

	for {
		select {
		case d, ok := <-inCh:
			if !ok {
				return
			}
			if d == nil {
				continue
			}

			switch d.Kind() {
			case datum.KindComplete:
				logger.Debug().Msg("discarding a complete datum emitted by a stage")
				continue
			case datum.KindError:
				logger.Warn().Str("message", d.ErrorMessage()).Msg("error datum reached the pipeline sink")
			}

			if !consume(d) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func consumeComplete(ctx context.Context, sink OutputSink) error {
	if sink == nil {
		return nil
	}
	if err := sink.Consume(ctx, datum.Complete()); err != nil {
		return fmt.Errorf("pipeline output sink: %v", err)
	}
	return nil
}

// IsCanceled reports whether err resulted from the pipeline context expiring.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
