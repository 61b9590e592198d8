package telemetry

import (
	"testing"

	"github.com/emberhome/devices-core/internal/catalog"
	"github.com/emberhome/devices-core/internal/states"
	"github.com/emberhome/devices-core/internal/value"
)

type fakeWriter struct {
	metrics []metricSample
	flags   []flagSample
}

type metricSample struct {
	entityKind, propertyID, field string
	value                         float64
}

type flagSample struct {
	entityKind, propertyID, flag string
	set                          bool
}

func (f *fakeWriter) WriteStateMetric(entityKind, propertyID, field string, value float64) {
	f.metrics = append(f.metrics, metricSample{entityKind, propertyID, field, value})
}

func (f *fakeWriter) WriteStateFlag(entityKind, propertyID, flag string, set bool) {
	f.flags = append(f.flags, flagSample{entityKind, propertyID, flag, set})
}

func TestRecorder_NumericState(t *testing.T) {
	w := &fakeWriter{}
	listener := NewRecorder(w).Listener()

	listener(states.Event{
		Type:       states.EventUpdated,
		PropertyID: "prop-1",
		State: &states.StateProjection{
			PropertyID: "prop-1",
			EntityKind: catalog.EntityChannel,
			Read:       states.View{Actual: value.Float(21.5), Expected: value.Float(23)},
			Valid:      true,
			Pending:    states.PendingTrue(),
		},
		Source: "driver",
	})

	if len(w.metrics) != 2 {
		t.Fatalf("recorded %d metrics, want 2", len(w.metrics))
	}
	if w.metrics[0] != (metricSample{"channel", "prop-1", "actual", 21.5}) {
		t.Errorf("actual sample = %+v", w.metrics[0])
	}
	if w.metrics[1] != (metricSample{"channel", "prop-1", "expected", 23}) {
		t.Errorf("expected sample = %+v", w.metrics[1])
	}

	if len(w.flags) != 2 {
		t.Fatalf("recorded %d flags, want 2", len(w.flags))
	}
	if w.flags[0] != (flagSample{"channel", "prop-1", "valid", true}) {
		t.Errorf("valid flag = %+v", w.flags[0])
	}
	if w.flags[1] != (flagSample{"channel", "prop-1", "pending", true}) {
		t.Errorf("pending flag = %+v", w.flags[1])
	}
}

func TestRecorder_NonNumericSkipped(t *testing.T) {
	w := &fakeWriter{}
	listener := NewRecorder(w).Listener()

	listener(states.Event{
		Type:       states.EventUpdated,
		PropertyID: "prop-1",
		State: &states.StateProjection{
			PropertyID: "prop-1",
			EntityKind: catalog.EntityDevice,
			Read:       states.View{Actual: value.String("heat")},
			Valid:      true,
		},
	})

	if len(w.metrics) != 0 {
		t.Errorf("recorded %d metrics for non-numeric value", len(w.metrics))
	}
	if len(w.flags) != 2 {
		t.Errorf("recorded %d flags, want 2", len(w.flags))
	}
}

func TestRecorder_DeletedSkipped(t *testing.T) {
	w := &fakeWriter{}
	listener := NewRecorder(w).Listener()

	listener(states.Event{Type: states.EventDeleted, PropertyID: "prop-1"})

	if len(w.metrics) != 0 || len(w.flags) != 0 {
		t.Error("deleted event produced telemetry")
	}
}
