package pipeline

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/caffix/pipeline/v2/datum"
)

func TestSourceErrorHandling(t *testing.T) {
	src := &sourceStub{
		data: stringDataValues(3),
		err:  errors.New("source error"),
	}
	sink := new(sinkStub)

	p := NewPipeline(testStage{t: t})
	re := regexp.MustCompile("(?s).*pipeline input source: source error.*")
	if err := p.Execute(context.TODO(), src, sink); err == nil || !re.MatchString(err.Error()) {
		t.Errorf("Error did not match the expectation: %v", err)
	}
}

func TestSliceSource(t *testing.T) {
	in := []datum.Datum{datum.New(1), datum.Empty(), datum.New(2)}
	src := SliceSource(in...)

	var got []datum.Datum
	for src.Next(context.TODO()) {
		got = append(got, src.Datum())
	}
	if err := src.Error(); err != nil {
		t.Errorf("Unexpected source error: %v", err)
	}

	assertDatums(t, got, in)
}

func TestSourceNilDatumSkipped(t *testing.T) {
	a := datum.New(&stringPayload{val: "a"})
	src := &sourceStub{data: []datum.Datum{nil, a, nil}}
	sink := new(sinkStub)

	if err := NewPipeline(FIFO("", makePassthroughTask())).Execute(context.TODO(), src, sink); err != nil {
		t.Errorf("Error executing the Pipeline: %v", err)
	}

	assertDatums(t, sink.data, []datum.Datum{a, datum.Complete()})
}
