// Package datum defines the value that travels along every pipeline edge.
//
// A Datum is one of five kinds. Data datums carry an opaque payload, Error
// datums carry a message, and the remaining kinds (Empty, Flush, Complete)
// are control signals without extra fields. Datums are immutable and may be
// shared freely between goroutines.
package datum

import (
	"fmt"
	"reflect"
)

// Kind identifies which variant a Datum is.
type Kind int

// The set of kinds is closed. Consumers may switch on it exhaustively.
const (
	KindData Kind = iota
	KindEmpty
	KindFlush
	KindComplete
	KindError
)

var kindNames = [...]string{
	KindData:     "data",
	KindEmpty:    "empty",
	KindFlush:    "flush",
	KindComplete: "complete",
	KindError:    "error",
}

func (k Kind) String() string {
	if k < KindData || k > KindError {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsControl reports whether k is a structural signal rather than data or an error.
func (k Kind) IsControl() bool {
	return k == KindEmpty || k == KindFlush || k == KindComplete
}

// Datum is implemented only by the values returned from the constructors in
// this package.
type Datum interface {
	// Kind returns the variant selected at construction.
	Kind() Kind

	// ErrorMessage returns the message of an Error datum and the empty
	// string for every other kind.
	ErrorMessage() string

	// Data returns the payload of a Data datum with true. For every other
	// kind it returns nil and false, which tells the absence of a payload
	// apart from a payload that is itself nil.
	Data() (any, bool)

	// Equal reports whether both datums have the same kind, payload and message.
	Equal(Datum) bool

	String() string

	sealed()
}

type payload struct {
	v any
}

type signal struct {
	kind Kind
}

type failure struct {
	msg string
}

var (
	emptyDatum    Datum = signal{kind: KindEmpty}
	flushDatum    Datum = signal{kind: KindFlush}
	completeDatum Datum = signal{kind: KindComplete}
)

// New returns a Data datum carrying v. A nil v is a valid payload.
func New(v any) Datum {
	return &payload{v: v}
}

// Empty returns the datum signalling that no data is available for this step.
func Empty() Datum { return emptyDatum }

// Flush returns the datum asking downstream stages to flush buffered state.
func Flush() Datum { return flushDatum }

// Complete returns the datum marking the end of a stream.
func Complete() Datum { return completeDatum }

// Error returns an Error datum carrying msg verbatim.
func Error(msg string) Datum {
	return failure{msg: msg}
}

// Errorf is Error with fmt.Sprintf formatting.
func Errorf(format string, args ...any) Datum {
	return failure{msg: fmt.Sprintf(format, args...)}
}

// Value returns the payload of d as a T. It reports false when d is not a
// Data datum or when its payload is not a T.
func Value[T any](d Datum) (T, bool) {
	var zero T

	if d == nil {
		return zero, false
	}
	v, ok := d.Data()
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Equal is the nil-safe form of Datum.Equal. Two nil datums are equal.
func Equal(a, b Datum) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

func (p *payload) Kind() Kind           { return KindData }
func (p *payload) ErrorMessage() string { return "" }
func (p *payload) Data() (any, bool)    { return p.v, true }
func (p *payload) String() string       { return fmt.Sprintf("data(%v)", p.v) }
func (p *payload) sealed()              {}

func (p *payload) Equal(o Datum) bool {
	if o == nil || o.Kind() != KindData {
		return false
	}
	v, _ := o.Data()
	return reflect.DeepEqual(p.v, v)
}

func (s signal) Kind() Kind           { return s.kind }
func (s signal) ErrorMessage() string { return "" }
func (s signal) Data() (any, bool)    { return nil, false }
func (s signal) String() string       { return s.kind.String() }
func (s signal) sealed()              {}

func (s signal) Equal(o Datum) bool {
	return o != nil && o.Kind() == s.kind
}

func (f failure) Kind() Kind           { return KindError }
func (f failure) ErrorMessage() string { return f.msg }
func (f failure) Data() (any, bool)    { return nil, false }
func (f failure) String() string       { return fmt.Sprintf("error(%q)", f.msg) }
func (f failure) sealed()              {}

func (f failure) Equal(o Datum) bool {
	return o != nil && o.Kind() == KindError && o.ErrorMessage() == f.msg
}
