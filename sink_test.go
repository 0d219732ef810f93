package pipeline

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/caffix/pipeline/v2/datum"
)

func TestSinkErrorHandling(t *testing.T) {
	src := &sourceStub{data: stringDataValues(3)}
	sink := &sinkStub{err: errors.New("sink error")}

	p := NewPipeline(testStage{t: t})
	re := regexp.MustCompile("(?s).*pipeline output sink: sink error.*")
	if err := p.Execute(context.TODO(), src, sink); err == nil || !re.MatchString(err.Error()) {
		t.Errorf("Error did not match the expectation: %v", err)
	}
}

func TestSinkFunc(t *testing.T) {
	var kinds []datum.Kind
	sink := SinkFunc(func(_ context.Context, d datum.Datum) error {
		kinds = append(kinds, d.Kind())
		return nil
	})

	src := SliceSource(datum.New("a"), datum.Flush(), datum.New("b"))
	if err := NewPipeline().Execute(context.TODO(), src, sink); err != nil {
		t.Errorf("Error executing the Pipeline: %v", err)
	}

	want := []datum.Kind{datum.KindData, datum.KindFlush, datum.KindData, datum.KindComplete}
	if len(kinds) != len(want) {
		t.Fatalf("Kinds do not match.\nWanted:%v\nGot:%v\n", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Kinds do not match.\nWanted:%v\nGot:%v\n", want, kinds)
			break
		}
	}
}

func TestNilSink(t *testing.T) {
	src := &sourceStub{data: stringDataValues(3)}

	p := NewPipeline(FIFO("", makePassthroughTask()))
	if err := p.Execute(context.TODO(), src, nil); err != nil {
		t.Errorf("Error executing the Pipeline: %v", err)
	}

	assertAllProcessed(t, src.data)
}

func TestSinkRejectsComplete(t *testing.T) {
	sink := SinkFunc(func(_ context.Context, d datum.Datum) error {
		if d.Kind() == datum.KindComplete {
			return errors.New("commit failed")
		}
		return nil
	})

	src := &sourceStub{data: stringDataValues(2)}
	re := regexp.MustCompile("pipeline output sink: commit failed")
	if err := NewPipeline().Execute(context.TODO(), src, sink); err == nil || !re.MatchString(err.Error()) {
		t.Errorf("Error did not match the expectation: %v", err)
	}
}
