package states

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emberhome/devices-core/internal/catalog"
	"github.com/emberhome/devices-core/internal/value"
)

// Logger defines the logging interface used by the Manager.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Catalog is the property lookup surface the manager needs: parent
// resolution for mapped properties and child enumeration for event fan-out.
// catalog.Registry satisfies it.
type Catalog interface {
	ResolveParent(ctx context.Context, p *catalog.Property) (*catalog.Property, error)
	Children(ctx context.Context, parentID string) ([]catalog.Property, error)
}

// Publisher delivers get/set actions to the action bus when a remote
// process owns a property's ground truth.
type Publisher interface {
	PublishGet(p *catalog.Property) error
	PublishSet(p *catalog.Property, fields map[string]any, forDevice bool) error
}

// Manager orchestrates property state reads and writes for one entity kind.
//
// In local delivery mode it loads and persists state records through the
// Store, runs values through the conversion pipeline, applies the
// actual/expected reconciliation rules, and emits change events. When a
// Publisher is attached (exchange delivery mode), reads and writes degrade
// to publishing get/set actions; the bus is authoritative and local state
// is never consulted.
//
// All public methods are thread-safe; concurrent writers to the same
// property race at the store layer.
type Manager struct {
	entityKind catalog.EntityKind
	catalog    Catalog
	store      Store
	pipeline   *value.Pipeline
	publisher  Publisher
	cache      *readCache
	logger     Logger
	now        func() time.Time

	notifier
}

// NewManager creates a state manager for one entity kind. The read cache
// starts disabled; enable it with SetReadCacheTTL.
func NewManager(kind catalog.EntityKind, cat Catalog, store Store, pipeline *value.Pipeline) *Manager {
	return &Manager{
		entityKind: kind,
		catalog:    cat,
		store:      store,
		pipeline:   pipeline,
		cache:      newReadCache(0),
		logger:     noopLogger{},
		now:        time.Now,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetPublisher switches the manager into exchange delivery mode: reads and
// writes publish actions instead of touching local storage.
func (m *Manager) SetPublisher(p Publisher) {
	m.publisher = p
}

// SetReadCacheTTL enables the short-lived read cache. A zero or negative
// TTL disables it.
func (m *Manager) SetReadCacheTTL(ttl time.Duration) {
	m.cache = newReadCache(ttl)
}

// Subscribe registers a listener for state change events.
func (m *Manager) Subscribe(l Listener) {
	m.subscribe(l)
}

// EntityKind returns the entity kind this manager serves.
func (m *Manager) EntityKind() catalog.EntityKind {
	return m.entityKind
}

// Read returns the property's state projection.
//
// In exchange delivery mode it publishes a GET action and returns nil (the
// bus is authoritative). Otherwise it consults the read cache, falling back
// to ReadState on a miss. A nil projection with a nil error means no state
// exists or storage is unavailable.
func (m *Manager) Read(ctx context.Context, p *catalog.Property, source string) (*StateProjection, error) {
	if m.publisher != nil {
		if err := m.publisher.PublishGet(p); err != nil {
			return nil, fmt.Errorf("%w: publishing get action for %s: %v", ErrInvalidState, p.ID, err)
		}
		return nil, nil
	}

	key := readCacheKey(p.ID)
	if state, ok := m.cache.get(key); ok {
		return state, nil
	}

	state, err := m.ReadState(ctx, p)
	if err != nil || state == nil {
		return state, err
	}

	tags := []string{p.ID}
	if p.IsMapped() && p.ParentID != nil {
		tags = append(tags, *p.ParentID)
	}
	m.cache.put(key, state, tags...)

	return state, nil
}

// ReadState loads the property's state record and converts it into a
// projection, bypassing the cache.
//
// When converting a stored value fails, the offending field is corrected in
// storage (nulled and invalidated) and the read retried once before giving
// up and returning nil.
func (m *Manager) ReadState(ctx context.Context, p *catalog.Property) (*StateProjection, error) {
	target, parent, err := m.resolveTarget(ctx, p)
	if err != nil {
		return nil, err
	}

	rec, err := m.store.Find(ctx, target.ID)
	switch {
	case errors.Is(err, ErrNotConfigured):
		m.logger.Warn("state store not configured", "op", "read", "property", p.ID)
		return nil, nil
	case errors.Is(err, ErrStateNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}

	state, fix := m.project(p, parent, rec)
	if fix == nil {
		return state, nil
	}

	// Only correct the shared record when the owning dynamic property's own
	// views fail. A mapped property's transform failing is local to that
	// mapping and must not null out the parent's stored value.
	if parent != nil {
		if _, parentFix := m.project(target, nil, rec); parentFix == nil {
			m.logger.Warn("mapped view conversion failed", "property", p.ID, "parent", target.ID)
			return nil, nil
		}
	}

	// Corrective write-back, then one retry.
	m.logger.Warn("stored state failed conversion, correcting", "property", target.ID)
	corrected, _, err := m.store.Update(ctx, target, rec, *fix)
	if err != nil {
		m.logger.Warn("state correction failed", "property", target.ID, "error", err)
		return nil, nil
	}

	state, fix = m.project(p, parent, corrected)
	if fix != nil {
		return nil, nil
	}
	return state, nil
}

// Write applies a partial value set in the for-device direction: hardware
// reporting into the system. Only Write may carry the actual field.
func (m *Manager) Write(ctx context.Context, p *catalog.Property, fields Fields, source string) error {
	return m.writeState(ctx, p, fields, source, true)
}

// Set applies a partial value set in the for-use direction: a caller
// requesting a change. The actual field is rejected with ErrInvalidArgument.
func (m *Manager) Set(ctx context.Context, p *catalog.Property, fields Fields, source string) error {
	return m.writeState(ctx, p, fields, source, false)
}

// SetValidState sets the validity flag on each property's state.
func (m *Manager) SetValidState(ctx context.Context, properties []*catalog.Property, valid bool, source string) error {
	for _, p := range properties {
		if err := m.Set(ctx, p, Fields{Valid: boolRef(valid)}, source); err != nil {
			return err
		}
	}
	return nil
}

// SetPendingState marks or clears the pending flag on each property's
// state. Marking records the current time as the start of the in-flight
// write; clearing also clears the expected value.
func (m *Manager) SetPendingState(ctx context.Context, properties []*catalog.Property, pending bool, source string) error {
	for _, p := range properties {
		var fields Fields
		if pending {
			fields = Fields{Pending: pendingRef(PendingAt(m.now()))}
		} else {
			fields = Fields{Expected: fieldRef(value.Null()), Pending: pendingRef(PendingFalse())}
		}
		if err := m.Set(ctx, p, fields, source); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the property's state record. On success a Deleted event is
// emitted for the property and for every mapped child. Storage being
// unavailable is a soft failure: logged, reported as false, never an error.
func (m *Manager) Delete(ctx context.Context, p *catalog.Property, source string) (bool, error) {
	children, err := m.catalog.Children(ctx, p.ID)
	if err != nil {
		m.logger.Warn("listing mapped children failed", "property", p.ID, "error", err)
		children = nil
	}

	ok, err := m.store.Delete(ctx, p.ID)
	if errors.Is(err, ErrNotConfigured) {
		m.logger.Warn("state store not configured", "op", "delete", "property", p.ID)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	m.cache.invalidate(p.ID)

	m.notify(Event{Type: EventDeleted, PropertyID: p.ID, Source: source})
	for i := range children {
		m.notify(Event{Type: EventDeleted, PropertyID: children[i].ID, Source: source})
	}

	return true, nil
}

// writeState is the local write path shared by Write and Set.
func (m *Manager) writeState(ctx context.Context, p *catalog.Property, fields Fields, source string, forDevice bool) error {
	// Contract checks come first: they are pure, and in exchange mode the
	// caller should be told immediately instead of the remote consumer
	// rejecting the published action.
	if fields.Actual != nil {
		if !forDevice {
			return fmt.Errorf("%w: actual may only be written through Write", ErrInvalidArgument)
		}
		if p.IsMapped() {
			return fmt.Errorf("%w: actual may only be written on the owning dynamic property", ErrInvalidArgument)
		}
	}

	if m.publisher != nil {
		if err := m.publisher.PublishSet(p, flattenFields(fields), forDevice); err != nil {
			return fmt.Errorf("%w: publishing set action for %s: %v", ErrInvalidState, p.ID, err)
		}
		return nil
	}

	target, parent, err := m.resolveTarget(ctx, p)
	if err != nil {
		return err
	}

	var rec *StateRecord
	found, err := m.store.Find(ctx, target.ID)
	switch {
	case errors.Is(err, ErrNotConfigured):
		m.logger.Warn("state store not configured", "op", "write", "property", p.ID)
		return nil
	case errors.Is(err, ErrStateNotFound):
		rec = nil
	case err != nil:
		return err
	default:
		rec = found
	}

	changes, err := m.convertFields(p, parent, fields)
	if err != nil {
		return err
	}

	// Explicit flags override anything derived from conversion.
	if fields.Valid != nil {
		changes.Valid = fields.Valid
	}
	if fields.Pending != nil {
		changes.Pending = fields.Pending
	}

	reconcile(&changes, rec)

	if changes.IsEmpty() {
		m.logger.Debug("write reconciled to a no-op", "property", p.ID)
		return nil
	}

	evType := EventUpdated
	var stored *StateRecord
	if rec == nil {
		stored, err = m.store.Create(ctx, target, changes)
		evType = EventCreated
	} else {
		var changed bool
		stored, changed, err = m.store.Update(ctx, target, rec, changes)
		if err == nil && !changed {
			return nil
		}
	}
	if errors.Is(err, ErrNotConfigured) {
		m.logger.Warn("state store not configured", "op", "write", "property", p.ID)
		return nil
	}
	if err != nil {
		return err
	}

	m.cache.invalidate(target.ID)
	m.emitChange(ctx, evType, target, stored, source)
	return nil
}

// convertFields runs the incoming partial values through the conversion
// pipeline, degrading fields that fail conversion to null/invalid.
func (m *Manager) convertFields(p, parent *catalog.Property, fields Fields) (Fields, error) {
	var changes Fields

	if fields.Actual != nil {
		incoming := *fields.Actual
		switch {
		case incoming.IsNull():
			changes.Actual = fieldRef(value.Null())
		case p.Invalid != nil && incoming.FlattenString() == *p.Invalid:
			// The device reported its declared "invalid" sentinel.
			changes.Actual = fieldRef(value.Null())
			changes.Valid = boolRef(false)
		default:
			converted, err := m.pipeline.ForActualWrite(p, incoming)
			if err != nil {
				m.logger.Warn("actual value failed conversion", "property", p.ID, "error", err)
				changes.Actual = fieldRef(value.Null())
				changes.Valid = boolRef(false)
			} else {
				changes.Actual = fieldRef(converted)
				changes.Valid = boolRef(true)
			}
		}
	}

	if fields.Expected != nil {
		incoming := *fields.Expected
		if incoming.IsNull() {
			changes.Expected = fieldRef(value.Null())
			changes.Pending = pendingRef(PendingFalse())
		} else {
			var converted value.Value
			var err error
			if parent != nil {
				converted, err = m.pipeline.ForMappedExpectedWrite(p, parent, incoming)
			} else {
				converted, err = m.pipeline.ForExpectedWrite(p, incoming)
			}
			switch {
			case err != nil:
				m.logger.Warn("expected value failed conversion", "property", p.ID, "error", err)
				changes.Expected = fieldRef(value.Null())
				changes.Pending = pendingRef(PendingFalse())
			case !converted.IsNull() && !p.Settable:
				return Fields{}, fmt.Errorf("%w: property %s is not settable", ErrInvalidArgument, p.ID)
			default:
				changes.Expected = fieldRef(converted)
				if converted.IsNull() {
					changes.Pending = pendingRef(PendingFalse())
				} else {
					changes.Pending = pendingRef(PendingTrue())
				}
			}
		}
	}

	return changes, nil
}

// reconcile compares the converted changes against the stored record and
// drops or clears fields that already match.
func reconcile(changes *Fields, rec *StateRecord) {
	if rec == nil {
		return
	}

	// The requested expected value already matches the stored actual:
	// nothing to change.
	if changes.Expected != nil && !changes.Expected.IsNull() && value.Equal(*changes.Expected, rec.Actual) {
		changes.Expected = nil
		changes.Pending = nil
	}

	// The device caught up to an earlier request: clear expected/pending.
	if changes.Actual != nil && !rec.Expected.IsNull() && value.Equal(*changes.Actual, rec.Expected) {
		changes.Expected = fieldRef(value.Null())
		changes.Pending = pendingRef(PendingFalse())
	}
}

// resolveTarget resolves the dynamic property owning the state record. For
// mapped properties that is the parent; structural problems are
// ErrInvalidState.
func (m *Manager) resolveTarget(ctx context.Context, p *catalog.Property) (target, parent *catalog.Property, err error) {
	if !p.IsMapped() {
		return p, nil, nil
	}

	parent, err = m.catalog.ResolveParent(ctx, p)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if !typesCompatible(p.DataType, parent.DataType) {
		return nil, nil, fmt.Errorf("%w: mapped property %s type %s is incompatible with parent type %s",
			ErrInvalidState, p.ID, p.DataType, parent.DataType)
	}
	return parent, parent, nil
}

// typesCompatible reports whether a mapped property's data type can be
// derived from its parent's. Numeric types interconvert; everything else
// must match exactly.
func typesCompatible(child, parent catalog.DataType) bool {
	if child == parent {
		return true
	}
	return child.IsNumeric() && parent.IsNumeric()
}

// project converts a record into the property's projection. When a stored
// value fails conversion, project returns the corrective Fields to persist
// instead of a projection.
func (m *Manager) project(p, parent *catalog.Property, rec *StateRecord) (*StateProjection, *Fields) {
	var fix Fields

	readActual, getActual, err := m.views(p, parent, rec.Actual)
	if err != nil {
		fix.Actual = fieldRef(value.Null())
		fix.Valid = boolRef(false)
	}

	readExpected, getExpected, err := m.views(p, parent, rec.Expected)
	if err != nil {
		fix.Expected = fieldRef(value.Null())
		fix.Pending = pendingRef(PendingFalse())
	}

	if !fix.IsEmpty() {
		return nil, &fix
	}

	return &StateProjection{
		PropertyID: p.ID,
		EntityKind: p.EntityKind,
		OwnerID:    p.OwnerID,
		Read:       View{Actual: readActual, Expected: readExpected},
		Get:        View{Actual: getActual, Expected: getExpected},
		Valid:      rec.Valid,
		Pending:    rec.Pending,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

// views computes the read and get representations of one stored value.
func (m *Manager) views(p, parent *catalog.Property, stored value.Value) (read, get value.Value, err error) {
	if parent != nil {
		read, err = m.pipeline.MappedReadView(p, parent, stored)
		if err != nil {
			return value.Null(), value.Null(), err
		}
		get, err = m.pipeline.MappedGetView(p, parent, stored)
		if err != nil {
			return value.Null(), value.Null(), err
		}
		return read, get, nil
	}

	read, err = m.pipeline.ReadView(p, stored)
	if err != nil {
		return value.Null(), value.Null(), err
	}
	get, err = m.pipeline.GetView(p, stored)
	if err != nil {
		return value.Null(), value.Null(), err
	}
	return read, get, nil
}

// emitChange fans a change event out to the dynamic property and every
// mapped child.
func (m *Manager) emitChange(ctx context.Context, evType EventType, target *catalog.Property, rec *StateRecord, source string) {
	if state, fix := m.project(target, nil, rec); fix == nil {
		m.notify(Event{Type: evType, PropertyID: target.ID, State: state, Source: source})
	}

	children, err := m.catalog.Children(ctx, target.ID)
	if err != nil {
		m.logger.Warn("listing mapped children failed", "property", target.ID, "error", err)
		return
	}
	for i := range children {
		child := &children[i]
		if state, fix := m.project(child, target, rec); fix == nil {
			m.notify(Event{Type: evType, PropertyID: child.ID, State: state, Source: source})
		}
	}
}

// flattenFields serializes a partial value set for an action document.
func flattenFields(f Fields) map[string]any {
	out := make(map[string]any)
	if f.Actual != nil {
		out["actual"] = f.Actual.Flatten()
	}
	if f.Expected != nil {
		out["expected"] = f.Expected.Flatten()
	}
	if f.Pending != nil {
		out["pending"] = f.Pending.Flatten()
	}
	if f.Valid != nil {
		out["valid"] = *f.Valid
	}
	return out
}

// FieldsFromMap adapts a decoded action document's value set into Fields.
func FieldsFromMap(raw map[string]any) Fields {
	var f Fields

	if v, ok := raw["actual"]; ok {
		f.Actual = fieldRef(value.FromAny(v))
	}
	if v, ok := raw["expected"]; ok {
		f.Expected = fieldRef(value.FromAny(v))
	}
	if v, ok := raw["valid"]; ok {
		if b, ok := v.(bool); ok {
			f.Valid = boolRef(b)
		}
	}
	if v, ok := raw["pending"]; ok {
		switch val := v.(type) {
		case bool:
			if val {
				f.Pending = pendingRef(PendingTrue())
			} else {
				f.Pending = pendingRef(PendingFalse())
			}
		case string:
			f.Pending = pendingRef(ParsePending(val))
		}
	}

	return f
}
