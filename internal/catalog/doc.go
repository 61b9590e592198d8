// Package catalog provides the property catalog for devices-core.
//
// The catalog is the read-mostly description of every connector, device and
// channel property in an installation: identity, declared data type, value
// format, scale, equation transformers and the dynamic/mapped distinction.
// The runtime state subsystem (internal/states) resolves properties through
// this package on every read and write.
//
// # Key Types
//
//   - Property: a catalog property with its full value-space declaration
//   - PropertyKind: dynamic (owns a state record) vs mapped (view onto a parent)
//   - NumberRange / EnumSet: parsed property formats
//   - Registry: cached lookups, parent resolution and child queries
//   - Repository: persistence interface with a SQLite implementation
//
// # Usage
//
//	repo := catalog.NewSQLiteRepository(db)
//	registry := catalog.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	prop, err := registry.GetProperty(ctx, id)
//	if err != nil {
//	    return err
//	}
//	if prop.IsMapped() {
//	    parent, err := registry.ResolveParent(ctx, prop)
//	    ...
//	}
//
// Mapped properties are one level deep only: a parent is always a dynamic
// property, and ResolveParent reports ErrInvalidParent otherwise.
package catalog
