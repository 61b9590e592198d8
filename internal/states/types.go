package states

import (
	"encoding/json"
	"time"

	"github.com/emberhome/devices-core/internal/catalog"
	"github.com/emberhome/devices-core/internal/value"
)

// Pending marks that an expected value has not yet been confirmed as actual.
// It is either a plain boolean, or carries the timestamp of when the pending
// write began.
type Pending struct {
	set bool
	at  time.Time
}

// PendingFalse returns the cleared pending marker.
func PendingFalse() Pending { return Pending{} }

// PendingTrue returns a set pending marker without a timestamp.
func PendingTrue() Pending { return Pending{set: true} }

// PendingAt returns a set pending marker recording when the write began.
func PendingAt(t time.Time) Pending { return Pending{set: true, at: t.UTC()} }

// IsSet reports whether a write is pending.
func (p Pending) IsSet() bool { return p.set }

// StartedAt returns the pending timestamp. The second result is false when
// the marker is a plain boolean.
func (p Pending) StartedAt() (time.Time, bool) {
	if !p.set || p.at.IsZero() {
		return time.Time{}, false
	}
	return p.at, true
}

// String returns the storage form: "false", "true", or an RFC3339 timestamp.
func (p Pending) String() string {
	if !p.set {
		return "false"
	}
	if p.at.IsZero() {
		return "true"
	}
	return p.at.Format(time.RFC3339)
}

// Flatten returns the primitive payload for serialization: false, true, or
// an RFC3339 timestamp string.
func (p Pending) Flatten() any {
	if !p.set {
		return false
	}
	if p.at.IsZero() {
		return true
	}
	return p.at.Format(time.RFC3339)
}

// MarshalJSON serializes the flattened payload.
func (p Pending) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Flatten())
}

// UnmarshalJSON decodes the flattened payload produced by MarshalJSON.
func (p *Pending) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case bool:
		if val {
			*p = PendingTrue()
		} else {
			*p = PendingFalse()
		}
	case string:
		*p = ParsePending(val)
	default:
		*p = PendingFalse()
	}
	return nil
}

// ParsePending parses the storage form produced by String.
func ParsePending(s string) Pending {
	switch s {
	case "", "false", "0":
		return PendingFalse()
	case "true", "1":
		return PendingTrue()
	default:
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return PendingAt(t)
		}
		return PendingTrue()
	}
}

// StateRecord is the persisted runtime state of one dynamic property.
// Mapped properties share their parent's record and never own one.
type StateRecord struct {
	PropertyID string
	EntityKind catalog.EntityKind

	// Actual is the last known real value, in system canonical form.
	Actual value.Value

	// Expected is a caller-requested value awaiting confirmation.
	Expected value.Value

	Pending Pending
	Valid   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Fields is a partial update to a state record. Nil pointers mean "leave
// unchanged"; a pointer to a null Value means "clear".
type Fields struct {
	Actual   *value.Value
	Expected *value.Value
	Pending  *Pending
	Valid    *bool
}

// IsEmpty reports whether the update carries no fields at all.
func (f Fields) IsEmpty() bool {
	return f.Actual == nil && f.Expected == nil && f.Pending == nil && f.Valid == nil
}

// apply returns a copy of rec with the fields applied, and whether anything
// actually changed.
func (f Fields) apply(rec StateRecord) (StateRecord, bool) {
	changed := false

	if f.Actual != nil && !value.Equal(*f.Actual, rec.Actual) {
		rec.Actual = *f.Actual
		changed = true
	}
	if f.Expected != nil && !value.Equal(*f.Expected, rec.Expected) {
		rec.Expected = *f.Expected
		changed = true
	}
	if f.Pending != nil && f.Pending.String() != rec.Pending.String() {
		rec.Pending = *f.Pending
		changed = true
	}
	if f.Valid != nil && *f.Valid != rec.Valid {
		rec.Valid = *f.Valid
		changed = true
	}

	return rec, changed
}

// View is one representation of a record's actual and expected values.
type View struct {
	Actual   value.Value `json:"actual"`
	Expected value.Value `json:"expected"`
}

// StateProjection is the read-only result of reading a property's state.
// Read holds the display representation, Get the device wire representation.
type StateProjection struct {
	PropertyID string              `json:"property_id"`
	EntityKind catalog.EntityKind  `json:"entity_kind"`
	OwnerID    string              `json:"owner_id"`
	Read       View                `json:"read"`
	Get        View                `json:"get"`
	Valid      bool                `json:"valid"`
	Pending    Pending             `json:"pending"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// fieldRef returns a pointer to v, for building Fields literals.
func fieldRef(v value.Value) *value.Value { return &v }

// boolRef returns a pointer to b.
func boolRef(b bool) *bool { return &b }

// pendingRef returns a pointer to p.
func pendingRef(p Pending) *Pending { return &p }
