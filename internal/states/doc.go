// Package states manages the runtime state of dynamic properties: the last
// actual value reported by hardware, the expected value a caller asked for,
// and the pending/valid flags tying the two together.
//
// A Manager serves one entity kind (connector, device, or channel). In local
// delivery mode it persists records through a Store, converts values through
// the pipeline in internal/value, reconciles actual against expected, and
// fans change events out to subscribed listeners. Mapped properties never
// own a record; their reads and writes are re-expressed against the parent
// dynamic property's record through the mapping equations.
//
// In exchange delivery mode the manager instead publishes get/set actions on
// the bus; the Consumer on the owning process executes them, and the
// Broadcaster republishes the resulting state retained for subscribers.
//
// Usage:
//
//	pipeline, _ := value.NewPipeline()
//	store := states.NewSQLiteStore(db, catalog.EntityChannel)
//	mgr := states.NewManager(catalog.EntityChannel, registry, store, pipeline)
//	mgr.Subscribe(func(ev states.Event) { ... })
//
//	err := mgr.Write(ctx, prop, states.Fields{Actual: &raw}, "driver")
//	state, err := mgr.Read(ctx, prop, "api")
package states
