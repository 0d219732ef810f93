package pipeline

import "github.com/caffix/pipeline/v2/datum"

// Cloner is implemented by payloads that must be deep-copied when a datum
// is handed to more than one task. Payloads that do not implement it are
// shared between the tasks.
type Cloner interface {
	// Clone returns a deep-copy of the payload.
	Clone() any
}

// Processable is implemented by payloads that want to know when the pipeline
// is done with them.
type Processable interface {
	// MarkAsProcessed is invoked by the pipeline when the payload either
	// reaches the pipeline sink or gets discarded by one of the
	// pipeline stages.
	MarkAsProcessed()
}

// cloneDatum returns a datum safe to hand to another task. Only Data
// datums with a Cloner payload are copied.
func cloneDatum(d datum.Datum) datum.Datum {
	v, ok := d.Data()
	if !ok {
		return d
	}
	if c, ok := v.(Cloner); ok {
		return datum.New(c.Clone())
	}
	return d
}

func markAsProcessed(d datum.Datum) {
	if d == nil {
		return
	}
	if v, ok := d.Data(); ok {
		if p, ok := v.(Processable); ok {
			p.MarkAsProcessed()
		}
	}
}
