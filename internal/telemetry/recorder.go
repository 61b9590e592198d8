// Package telemetry bridges property state change events into the
// time-series store.
package telemetry

import "github.com/emberhome/devices-core/internal/states"

// Writer is the sink for property state telemetry. influxdb.Client
// satisfies it.
type Writer interface {
	WriteStateMetric(entityKind, propertyID, field string, value float64)
	WriteStateFlag(entityKind, propertyID, flag string, set bool)
}

// Recorder forwards state change events to a time-series sink. Numeric
// actual and expected values are recorded as samples in their display form;
// the valid and pending flags go out as 0/1 series. Non-numeric values and
// deletions are skipped.
type Recorder struct {
	writer Writer
}

// NewRecorder creates a recorder over the given sink.
func NewRecorder(w Writer) *Recorder {
	return &Recorder{writer: w}
}

// Listener returns the event listener to subscribe on a state manager.
func (r *Recorder) Listener() states.Listener {
	return func(ev states.Event) {
		if ev.Type == states.EventDeleted || ev.State == nil {
			return
		}

		kind := string(ev.State.EntityKind)

		if f, ok := ev.State.Read.Actual.Float64(); ok {
			r.writer.WriteStateMetric(kind, ev.PropertyID, "actual", f)
		}
		if f, ok := ev.State.Read.Expected.Float64(); ok {
			r.writer.WriteStateMetric(kind, ev.PropertyID, "expected", f)
		}

		r.writer.WriteStateFlag(kind, ev.PropertyID, "valid", ev.State.Valid)
		r.writer.WriteStateFlag(kind, ev.PropertyID, "pending", ev.State.Pending.IsSet())
	}
}
