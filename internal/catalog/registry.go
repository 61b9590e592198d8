package catalog

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
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

// Registry provides property catalog lookups with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for the hot read/write
// paths of the state subsystem, which resolve properties on every call.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Property // Cached properties by ID
	cacheMu sync.RWMutex         // Protects cache
	logger  Logger
}

// NewRegistry creates a new property registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Property),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all properties from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	properties, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading properties: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Property, len(properties))
	for i := range properties {
		p := properties[i]
		r.cache[p.ID] = p.Copy()
	}

	r.logger.Info("property cache refreshed", "count", len(properties))
	return nil
}

// GetProperty retrieves a property by ID.
// Returns ErrPropertyNotFound if the property does not exist.
// The returned property is a copy; callers can safely modify it.
func (r *Registry) GetProperty(ctx context.Context, id string) (*Property, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.Copy(), nil
	}

	// Fall back to repository (might be a new property not yet cached)
	p, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = p.Copy()
	r.cacheMu.Unlock()

	return p, nil
}

// ListByOwner retrieves all properties belonging to one catalog entity.
// The returned properties are copies; callers can safely modify them.
func (r *Registry) ListByOwner(ctx context.Context, kind EntityKind, ownerID string) ([]Property, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		var properties []Property
		for _, p := range r.cache {
			if p.EntityKind == kind && p.OwnerID == ownerID {
				properties = append(properties, *p.Copy())
			}
		}
		return properties, nil
	}

	return r.repo.ListByOwner(ctx, kind, ownerID)
}

// ResolveParent locates the dynamic parent of a mapped property.
//
// Returns ErrInvalidParent if the property references a missing parent or
// one that is not itself dynamic: mapped-of-mapped is structurally invalid.
// Calling ResolveParent on a dynamic property is a caller bug and also
// reports ErrInvalidParent.
func (r *Registry) ResolveParent(ctx context.Context, p *Property) (*Property, error) {
	if !p.IsMapped() || p.ParentID == nil {
		return nil, fmt.Errorf("%w: property %s is not mapped", ErrInvalidParent, p.ID)
	}

	parent, err := r.GetProperty(ctx, *p.ParentID)
	if err != nil {
		return nil, fmt.Errorf("%w: parent %s of property %s: %v", ErrInvalidParent, *p.ParentID, p.ID, err)
	}

	if parent.Kind != KindDynamic {
		return nil, fmt.Errorf("%w: parent %s of property %s is %s, not dynamic", ErrInvalidParent, parent.ID, p.ID, parent.Kind)
	}

	return parent, nil
}

// Children retrieves the mapped properties of a dynamic property.
// The returned properties are copies; callers can safely modify them.
func (r *Registry) Children(ctx context.Context, parentID string) ([]Property, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		var children []Property
		for _, p := range r.cache {
			if p.ParentID != nil && *p.ParentID == parentID {
				children = append(children, *p.Copy())
			}
		}
		return children, nil
	}

	return r.repo.ListChildren(ctx, parentID)
}

// CreateProperty creates a new catalog property.
// It validates the property, generates an ID if needed, checks the parent
// reference for mapped properties, and persists it.
func (r *Registry) CreateProperty(ctx context.Context, p *Property) error {
	if p.ID == "" {
		p.ID = GenerateID()
	}

	if err := ValidateProperty(p); err != nil {
		return err
	}

	// A mapped property's parent must exist and be dynamic before insert.
	if p.IsMapped() {
		if _, err := r.ResolveParent(ctx, p); err != nil {
			return err
		}
	}

	if err := r.repo.Create(ctx, p); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[p.ID] = p.Copy()
	r.cacheMu.Unlock()

	r.logger.Info("property created", "id", p.ID, "identifier", p.Identifier, "entity_kind", p.EntityKind)
	return nil
}

// UpdateProperty updates an existing catalog property.
func (r *Registry) UpdateProperty(ctx context.Context, p *Property) error {
	if err := ValidateProperty(p); err != nil {
		return err
	}

	if p.IsMapped() {
		if _, err := r.ResolveParent(ctx, p); err != nil {
			return err
		}
	}

	if err := r.repo.Update(ctx, p); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[p.ID] = p.Copy()
	r.cacheMu.Unlock()

	r.logger.Info("property updated", "id", p.ID, "identifier", p.Identifier)
	return nil
}

// DeleteProperty removes a catalog property and drops it, along with any
// mapped children, from the cache.
func (r *Registry) DeleteProperty(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	// Children go with the parent via ON DELETE CASCADE.
	for cid, p := range r.cache {
		if p.ParentID != nil && *p.ParentID == id {
			delete(r.cache, cid)
		}
	}
	r.cacheMu.Unlock()

	r.logger.Info("property deleted", "id", id)
	return nil
}

// PropertyCount returns the number of cached properties.
func (r *Registry) PropertyCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
