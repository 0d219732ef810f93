package pipeline

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/caffix/pipeline/v2/datum"
)

func TestBroadcast(t *testing.T) {
	num := 3
	tasks := make([]Task, num)
	for i := 0; i < num; i++ {
		tasks[i] = makeMutatingTask(i)
	}

	src := &sourceStub{data: stringDataValues(1)}
	sink := new(sinkStub)

	p := NewPipeline(Broadcast("", tasks...))
	if err := p.Execute(context.TODO(), src, sink); err != nil {
		t.Errorf("Error executing the Pipeline: %v", err)
	}
	assertAllProcessed(t, src.data)

	// Tasks run as goroutines so outputs will be shuffled. We need
	// to sort them first so we can check for equality.
	var got []string
	for _, d := range dataOnly(t, sink.data) {
		if v, ok := datum.Value[*stringPayload](d); ok {
			got = append(got, v.val)
		}
	}
	sort.Strings(got)

	want := []string{"0_0", "0_1", "0_2"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Data does not match.\nWanted:%v\nGot:%v\n", want, got)
	}
}

func TestBroadcastForwardsSignalsOnce(t *testing.T) {
	src := &sourceStub{data: []datum.Datum{datum.Flush(), datum.Error("bad")}}
	sink := new(sinkStub)

	p := NewPipeline(Broadcast("", makePassthroughTask(), makePassthroughTask()))
	if err := p.Execute(context.TODO(), src, sink); err != nil {
		t.Errorf("Error executing the Pipeline: %v", err)
	}

	assertDatums(t, sink.data, []datum.Datum{datum.Flush(), datum.Error("bad"), datum.Complete()})
}

func TestBroadcastWithoutTasks(t *testing.T) {
	if s := Broadcast("empty"); s != nil {
		t.Errorf("Expected a nil stage when no tasks are provided")
	}
}

func makeMutatingTask(index int) Task {
	return TaskFunc(func(_ context.Context, d datum.Datum, _ TaskParams) (datum.Datum, error) {
		// Mutate the payload to check that each task got a copy
		sd, _ := datum.Value[*stringPayload](d)
		sd.val = fmt.Sprintf("%s_%d", sd.val, index)
		return d, nil
	})
}
