package entity

import (
	"sync/atomic"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
)

// Entity is an instance of an entity type tracked by a Manager
type Entity struct {
	bag *propertyBag

	manager atomic.Pointer[Manager]
	state   EntityState // guarded by the manager's lock
}

func newEntity(t *schema.StructuralType) (*Entity, error) {
	bag, err := newPropertyBag(t)
	if err != nil {
		return nil, err
	}
	e := &Entity{bag: bag, state: Detached}
	bag.setOwner(e)
	return e, nil
}

// Type returns the entity type
func (e *Entity) Type() *schema.StructuralType {
	return e.bag.stype
}

// GetProperty returns the current value of a data property
func (e *Entity) GetProperty(name string) (any, error) {
	return e.bag.get(name)
}

// SetProperty changes a data property. Unchanged entities become Modified.
func (e *Entity) SetProperty(name string, value any) error {
	if err := e.bag.set(name, value); err != nil {
		return err
	}
	e.touch()
	return nil
}

// Values returns the current data property values
func (e *Entity) Values() map[string]any {
	return e.bag.values()
}

// State returns the entity state
func (e *Entity) State() EntityState {
	m := e.lockManager()
	if m == nil {
		return Detached
	}
	defer m.mu.Unlock()
	return e.state
}

// Manager returns the manager the entity is attached to, or nil
func (e *Entity) Manager() *Manager {
	return e.manager.Load()
}

// lockManager locks the attached manager and returns it, or returns nil when detached
func (e *Entity) lockManager() *Manager {
	for {
		m := e.manager.Load()
		if m == nil {
			return nil
		}
		m.mu.Lock()
		if e.manager.Load() == m {
			return m
		}
		m.mu.Unlock()
	}
}

// Key returns the entity key, named after the root of the type's inheritance chain
func (e *Entity) Key() EntityKey {
	t := e.Type()
	keys := t.KeyProperties()
	values := make([]any, len(keys))
	for i, p := range keys {
		values[i] = e.bag.tracker.CurrentValue(p.Name())
	}
	return EntityKey{TypeName: rootType(t).QualifiedName(), Values: values}
}

// OriginalValues returns the accepted values of properties changed since the
// entity was last unchanged. Added entities have no original values.
func (e *Entity) OriginalValues() map[string]any {
	switch e.State() {
	case Modified, Deleted:
		return e.bag.originalValues(false)
	default:
		return map[string]any{}
	}
}

// HasChanges reports whether any value differs from its accepted value
func (e *Entity) HasChanges() bool {
	return e.bag.hasChanges()
}

// AcceptChanges makes the current values the accepted ones. Added and Modified
// entities become Unchanged; Deleted entities are detached.
func (e *Entity) AcceptChanges() {
	m := e.lockManager()
	if m == nil {
		e.bag.accept()
		return
	}
	defer m.mu.Unlock()
	e.bag.accept()
	switch e.state {
	case Deleted:
		m.detachLocked(e)
	case Added, Modified:
		e.state = Unchanged
	}
}

// RejectChanges restores accepted values. Added entities are detached.
func (e *Entity) RejectChanges() {
	m := e.lockManager()
	if m == nil {
		e.bag.reject()
		return
	}
	defer m.mu.Unlock()
	switch e.state {
	case Added:
		m.detachLocked(e)
	case Modified, Deleted:
		e.bag.reject()
		e.state = Unchanged
	}
}

// SetDeleted marks the entity for deletion. An Added entity is simply detached.
func (e *Entity) SetDeleted() error {
	m := e.lockManager()
	if m == nil {
		return ErrNotAttached
	}
	defer m.mu.Unlock()
	if e.state == Added {
		m.detachLocked(e)
		return nil
	}
	e.state = Deleted
	return nil
}

// touch moves an unchanged entity to Modified
func (e *Entity) touch() {
	m := e.lockManager()
	if m == nil {
		return
	}
	defer m.mu.Unlock()
	if e.state == Unchanged {
		e.state = Modified
	}
}
