package pipeline

import (
	"context"

	"github.com/caffix/pipeline/v2/datum"
)

// InputSource is implemented by types that generate datums which can be
// used as inputs to a Pipeline instance.
type InputSource interface {
	// Next fetches the next datum from the source. If no more items are
	// available or an error occurs, calls to Next return false.
	Next(context.Context) bool

	// Datum returns the next datum to be processed. A Complete datum
	// ends the input just like Next returning false.
	Datum() datum.Datum

	// Error return the last error observed by the source.
	Error() error
}

type sliceSource struct {
	index int
	data  []datum.Datum
}

// SliceSource returns an InputSource that emits the provided datums in order.
func SliceSource(ds ...datum.Datum) InputSource {
	return &sliceSource{data: ds}
}

func (s *sliceSource) Next(ctx context.Context) bool {
	if ctx.Err() != nil || s.index == len(s.data) {
		return false
	}
	s.index++
	return true
}

func (s *sliceSource) Datum() datum.Datum { return s.data[s.index-1] }
func (s *sliceSource) Error() error       { return nil }
