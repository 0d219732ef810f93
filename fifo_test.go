package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/caffix/pipeline/v2/datum"
)

func TestFIFO(t *testing.T) {
	stages := make([]Stage, 10)
	for i := 0; i < len(stages); i++ {
		stages[i] = FIFO("", makePassthroughTask())
	}

	src := &sourceStub{data: stringDataValues(3)}
	sink := new(sinkStub)

	p := NewPipeline(stages...)
	if err := p.Execute(context.TODO(), src, sink); err != nil {
		t.Errorf("Error executing the Pipeline: %v", err)
	}
	if got := dataOnly(t, sink.data); !reflect.DeepEqual(got, src.data) {
		t.Errorf("Data does not match.\nWanted:%v\nGot:%v\n", src.data, got)
	}

	assertAllProcessed(t, src.data)
}

func TestFIFODropsNilOutput(t *testing.T) {
	src := &sourceStub{data: stringDataValues(3)}
	sink := new(sinkStub)

	task := TaskFunc(func(_ context.Context, d datum.Datum, _ TaskParams) (datum.Datum, error) {
		if v, _ := datum.Value[*stringPayload](d); v.val == "1" {
			return nil, nil
		}
		return d, nil
	})

	p := NewPipeline(FIFO("", task))
	if err := p.Execute(context.TODO(), src, sink); err != nil {
		t.Errorf("Error executing the Pipeline: %v", err)
	}

	assertDatums(t, sink.data, []datum.Datum{src.data[0], src.data[2], datum.Complete()})
	assertAllProcessed(t, src.data)
}

func TestFIFOTaskErrorMarksProcessed(t *testing.T) {
	src := &sourceStub{data: stringDataValues(1)}

	task := TaskFunc(func(_ context.Context, _ datum.Datum, _ TaskParams) (datum.Datum, error) {
		return nil, errors.New("task error")
	})

	p := NewPipeline(FIFO("", task))
	if err := p.Execute(context.TODO(), src, new(sinkStub)); err == nil {
		t.Errorf("Expected the task error to fail the execution")
	}

	assertAllProcessed(t, src.data)
}

func makePassthroughTask() Task {
	return TaskFunc(func(_ context.Context, d datum.Datum, _ TaskParams) (datum.Datum, error) {
		return d, nil
	})
}
