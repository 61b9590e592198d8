package states

import (
	"testing"
	"time"

	"github.com/emberhome/devices-core/internal/value"
)

func TestPendingString(t *testing.T) {
	if got := PendingFalse().String(); got != "false" {
		t.Errorf("PendingFalse().String() = %q, want %q", got, "false")
	}
	if got := PendingTrue().String(); got != "true" {
		t.Errorf("PendingTrue().String() = %q, want %q", got, "true")
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := PendingAt(at).String(); got != "2026-03-01T12:00:00Z" {
		t.Errorf("PendingAt().String() = %q", got)
	}
}

func TestParsePending(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "false"},
		{"false", "false"},
		{"0", "false"},
		{"true", "true"},
		{"1", "true"},
		{"2026-03-01T12:00:00Z", "2026-03-01T12:00:00Z"},
		{"garbage", "true"},
	}

	for _, tt := range tests {
		if got := ParsePending(tt.in).String(); got != tt.want {
			t.Errorf("ParsePending(%q).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPendingStartedAt(t *testing.T) {
	if _, ok := PendingTrue().StartedAt(); ok {
		t.Error("PendingTrue().StartedAt() ok = true, want false")
	}
	if _, ok := PendingFalse().StartedAt(); ok {
		t.Error("PendingFalse().StartedAt() ok = true, want false")
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got, ok := PendingAt(at).StartedAt()
	if !ok || !got.Equal(at) {
		t.Errorf("PendingAt().StartedAt() = %v, %v", got, ok)
	}
}

func TestFieldsIsEmpty(t *testing.T) {
	if !(Fields{}).IsEmpty() {
		t.Error("empty Fields reported not empty")
	}
	if (Fields{Valid: boolRef(true)}).IsEmpty() {
		t.Error("Fields with valid reported empty")
	}
}

func TestFieldsApply(t *testing.T) {
	rec := StateRecord{
		Actual:  value.Float(25.5),
		Pending: PendingFalse(),
		Valid:   true,
	}

	// Same values in different representations change nothing.
	same := Fields{
		Actual: fieldRef(value.String("25.5")),
		Valid:  boolRef(true),
	}
	if _, changed := same.apply(rec); changed {
		t.Error("apply() with equivalent values reported a change")
	}

	update := Fields{
		Expected: fieldRef(value.Float(30)),
		Pending:  pendingRef(PendingTrue()),
	}
	got, changed := update.apply(rec)
	if !changed {
		t.Fatal("apply() with new expected reported no change")
	}
	if got.Expected.FlattenString() != "30" {
		t.Errorf("Expected = %q, want %q", got.Expected.FlattenString(), "30")
	}
	if !got.Pending.IsSet() {
		t.Error("Pending not set after apply")
	}
	if got.Actual.FlattenString() != "25.5" {
		t.Errorf("Actual changed unexpectedly to %q", got.Actual.FlattenString())
	}
}
