// Package entity creates and tracks entity instances described by a
// schema.MetadataStore.
package entity

import (
	"context"
	"fmt"
	"sync"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"go.uber.org/zap"
)

// Manager binds to one metadata store and tracks the entities created or attached through it
type Manager struct {
	mu          sync.RWMutex
	store       *schema.MetadataStore
	serviceName string
	keys        KeyGenerator
	logger      *zap.Logger
	entities    []*Entity
}

// Option configures a Manager
type Option func(*Manager)

// WithMetadataStore binds the manager to an existing store
func WithMetadataStore(store *schema.MetadataStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithServiceName sets the data service used by FetchMetadata
func WithServiceName(name string) Option {
	return func(m *Manager) {
		m.serviceName = schema.NormalizeServiceName(name)
	}
}

// WithKeyGenerator replaces the temporary key generator
func WithKeyGenerator(g KeyGenerator) Option {
	return func(m *Manager) {
		m.keys = g
	}
}

// WithLogger sets the manager's logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a manager. A fresh metadata store is created when none is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		keys:   NewTempKeyGenerator(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = schema.NewMetadataStore(schema.WithLogger(m.logger))
	}
	return m
}

// MetadataStore returns the bound store
func (m *Manager) MetadataStore() *schema.MetadataStore {
	return m.store
}

// ServiceName returns the configured data service name
func (m *Manager) ServiceName() string {
	return m.serviceName
}

// FetchMetadata fetches metadata for the manager's data service into its store
func (m *Manager) FetchMetadata(ctx context.Context) error {
	return m.store.FetchMetadata(ctx, m.serviceName)
}

// CreateEntity creates an entity of the named type with the given values and
// attaches it in the given state (Added when omitted). Pass Detached to create
// an entity without attaching it.
func (m *Manager) CreateEntity(typeName string, values map[string]any, state ...EntityState) (*Entity, error) {
	t, err := m.store.GetEntityType(typeName)
	if err != nil {
		return nil, err
	}
	if t.IsComplexType() {
		return nil, &schema.ConfigurationError{
			Type:    t.QualifiedName(),
			Message: "complex types are created with NewComplexObject",
		}
	}
	if t.IsAbstract() {
		return nil, &schema.ConfigurationError{
			Type:    t.QualifiedName(),
			Message: "cannot create an instance of an abstract type",
		}
	}

	e, err := newEntity(t)
	if err != nil {
		return nil, err
	}
	if err := e.bag.setValues(values); err != nil {
		return nil, err
	}

	st := Added
	if len(state) > 0 {
		st = state[0]
	}
	if st == Added && autoKeyType(t) != schema.KeyNone {
		if err := m.generateKeys(e); err != nil {
			return nil, err
		}
	}
	if st == Detached {
		return e, nil
	}

	if err := m.AttachEntity(e, st); err != nil {
		return nil, err
	}
	m.logger.Debug("created entity",
		zap.String("type", t.QualifiedName()),
		zap.Stringer("key", e.Key()),
		zap.Stringer("state", st))
	return e, nil
}

func (m *Manager) generateKeys(e *Entity) error {
	for _, p := range e.Type().KeyProperties() {
		if !isZeroKey(e.bag.tracker.CurrentValue(p.Name())) {
			continue
		}
		v, err := m.keys.Generate(p)
		if err != nil {
			return err
		}
		e.bag.tracker.SetValue(p.Name(), v)
	}
	return nil
}

// AttachEntity starts tracking an entity in the given state
func (m *Manager) AttachEntity(e *Entity, state EntityState) error {
	t := e.Type()
	if state == Detached {
		return &schema.InvalidOperationError{Type: t.QualifiedName(), Message: "cannot attach an entity in the Detached state"}
	}
	if t.MetadataStore() != m.store {
		return &schema.InvalidOperationError{
			Type:    t.QualifiedName(),
			Message: "the entity type belongs to a different metadata store",
		}
	}
	if state == Added && autoKeyType(t) != schema.KeyNone && e.Key().IsEmpty() {
		if err := m.generateKeys(e); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if owner := e.manager.Load(); owner != nil && owner != m {
		return &schema.InvalidOperationError{Type: t.QualifiedName(), Message: "the entity is attached to another manager"}
	}
	if e.manager.Load() == m {
		e.state = state
		return nil
	}

	key := e.Key()
	if existing := m.findByKeyLocked(key); existing != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}

	if state == Unchanged || state == Added {
		e.bag.accept()
	}
	e.state = state
	e.manager.Store(m)
	m.entities = append(m.entities, e)
	return nil
}

// DetachEntity stops tracking an entity. It reports whether the entity was attached.
func (m *Manager) DetachEntity(e *Entity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.manager.Load() != m {
		return false
	}
	m.detachLocked(e)
	return true
}

func (m *Manager) detachLocked(e *Entity) {
	for i, candidate := range m.entities {
		if candidate == e {
			m.entities = append(m.entities[:i], m.entities[i+1:]...)
			break
		}
	}
	e.state = Detached
	e.manager.Store(nil)
}

// Clear detaches every entity
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entities {
		e.state = Detached
		e.manager.Store(nil)
	}
	m.entities = nil
}

// GetEntities returns attached entities of the named types and their subtypes,
// or every attached entity when no names are given
func (m *Manager) GetEntities(typeNames ...string) ([]*Entity, error) {
	types, err := m.resolveTypes(typeNames)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(types, func(*Entity) bool { return true }), nil
}

// GetChanges returns the Added, Modified and Deleted entities of the named types
func (m *Manager) GetChanges(typeNames ...string) ([]*Entity, error) {
	types, err := m.resolveTypes(typeNames)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(types, func(e *Entity) bool { return e.state.IsChanged() }), nil
}

// HasChanges reports whether any attached entity has pending changes
func (m *Manager) HasChanges() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entities {
		if e.state.IsChanged() {
			return true
		}
	}
	return false
}

// AcceptChanges accepts the changes of every attached entity
func (m *Manager) AcceptChanges() {
	for _, e := range m.snapshot() {
		e.AcceptChanges()
	}
}

// RejectChanges rejects the changes of every attached entity
func (m *Manager) RejectChanges() {
	for _, e := range m.snapshot() {
		e.RejectChanges()
	}
}

// GetEntityByKey finds an attached entity of the named type (or a subtype) by
// key values. It returns nil when no entity matches.
func (m *Manager) GetEntityByKey(typeName string, keyValues ...any) (*Entity, error) {
	t, err := m.store.GetEntityType(typeName)
	if err != nil {
		return nil, err
	}
	keyProps := t.KeyProperties()
	if len(keyProps) != len(keyValues) {
		return nil, &schema.InvalidOperationError{
			Type:    t.QualifiedName(),
			Message: fmt.Sprintf("expected %d key values, got %d", len(keyProps), len(keyValues)),
		}
	}

	values := make([]any, len(keyValues))
	for i, p := range keyProps {
		v, err := coerceValue(p, keyValues[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	key := EntityKey{TypeName: rootType(t).QualifiedName(), Values: values}

	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.findByKeyLocked(key)
	if e == nil || !e.Type().IsSubtypeOf(t) {
		return nil, nil
	}
	return e, nil
}

func (m *Manager) findByKeyLocked(key EntityKey) *Entity {
	if key.IsEmpty() {
		return nil
	}
	for _, e := range m.entities {
		if e.Key().Equal(key) {
			return e
		}
	}
	return nil
}

func (m *Manager) resolveTypes(names []string) ([]*schema.StructuralType, error) {
	types := make([]*schema.StructuralType, 0, len(names))
	for _, name := range names {
		t, err := m.store.GetEntityType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func (m *Manager) filterLocked(types []*schema.StructuralType, keep func(*Entity) bool) []*Entity {
	result := make([]*Entity, 0)
	for _, e := range m.entities {
		if !keep(e) || !matchesAny(e.Type(), types) {
			continue
		}
		result = append(result, e)
	}
	return result
}

func matchesAny(t *schema.StructuralType, types []*schema.StructuralType) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if t.IsSubtypeOf(candidate) {
			return true
		}
	}
	return false
}

func (m *Manager) snapshot() []*Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Entity(nil), m.entities...)
}
