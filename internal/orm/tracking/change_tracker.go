// Package tracking records property changes of entity instances.
// It keeps the values an entity had when it was attached or last accepted so
// that changes can be exported, rejected or accepted.
package tracking

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// PropertyChange represents a change to a single property
type PropertyChange struct {
	Property string
	OldValue any
	NewValue any
}

// ChangeTracker tracks property changes on one entity instance
type ChangeTracker struct {
	mu       sync.RWMutex
	original map[string]any
	current  map[string]any
	changes  map[string]*PropertyChange
}

// NewChangeTracker creates a tracker
// original: the accepted state of the entity
// current: the state with modifications
func NewChangeTracker(original, current map[string]any) *ChangeTracker {
	ct := &ChangeTracker{
		original: deepCopyMap(original),
		current:  deepCopyMap(current),
		changes:  make(map[string]*PropertyChange),
	}
	ct.computeChanges()
	return ct
}

// deepCopyMap creates a deep copy of a map
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

// deepCopyValue creates a deep copy of a value
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}

	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.Slice:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			return append([]byte(nil), val.Bytes()...)
		}
		slice := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			slice[i] = deepCopyValue(val.Index(i).Interface())
		}
		return slice
	case reflect.Map:
		m := make(map[string]any, val.Len())
		for _, key := range val.MapKeys() {
			m[fmt.Sprint(key.Interface())] = deepCopyValue(val.MapIndex(key).Interface())
		}
		return m
	default:
		// primitives, structs and pointers are kept as-is
		return v
	}
}

// computeChanges calculates which properties have changed
func (ct *ChangeTracker) computeChanges() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	for property, newValue := range ct.current {
		oldValue, hadOldValue := ct.original[property]
		if !hadOldValue || !deepEqual(oldValue, newValue) {
			ct.changes[property] = &PropertyChange{
				Property: property,
				OldValue: oldValue,
				NewValue: newValue,
			}
		}
	}

	for property, oldValue := range ct.original {
		if _, exists := ct.current[property]; !exists {
			ct.changes[property] = &PropertyChange{
				Property: property,
				OldValue: oldValue,
				NewValue: nil,
			}
		}
	}
}

// deepEqual compares two values for equality, handling nil and different types
func deepEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Changed returns true if the specified property has changed
func (ct *ChangeTracker) Changed(property string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	_, ok := ct.changes[property]
	return ok
}

// ChangedProperties returns the names of changed properties in sorted order
func (ct *ChangeTracker) ChangedProperties() []string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	properties := make([]string, 0, len(ct.changes))
	for property := range ct.changes {
		properties = append(properties, property)
	}
	sort.Strings(properties)
	return properties
}

// OriginalValue returns the accepted value of a property
// Returns nil if the property didn't exist in the original state
func (ct *ChangeTracker) OriginalValue(property string) any {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.original[property]
}

// CurrentValue returns the current value of a property
func (ct *ChangeTracker) CurrentValue(property string) any {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.current[property]
}

// GetChange returns the PropertyChange for a property, or nil if unchanged
func (ct *ChangeTracker) GetChange(property string) *PropertyChange {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.changes[property]
}

// Changes returns a copy of all changes
func (ct *ChangeTracker) Changes() map[string]*PropertyChange {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make(map[string]*PropertyChange, len(ct.changes))
	for k, v := range ct.changes {
		result[k] = v
	}
	return result
}

// HasChanges returns true if any property has changed
func (ct *ChangeTracker) HasChanges() bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.changes) > 0
}

// OriginalValues returns the accepted values of the changed properties only
func (ct *ChangeTracker) OriginalValues() map[string]any {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make(map[string]any, len(ct.changes))
	for property, change := range ct.changes {
		result[property] = deepCopyValue(change.OldValue)
	}
	return result
}

// Accept makes the current state the new original state
func (ct *ChangeTracker) Accept() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.original = deepCopyMap(ct.current)
	ct.changes = make(map[string]*PropertyChange)
}

// Reject restores the original values and returns those that were changed
func (ct *ChangeTracker) Reject() map[string]any {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	restored := make(map[string]any, len(ct.changes))
	for property, change := range ct.changes {
		restored[property] = deepCopyValue(change.OldValue)
	}
	ct.current = deepCopyMap(ct.original)
	ct.changes = make(map[string]*PropertyChange)
	return restored
}

// SetValue updates a property value and recomputes its change status
func (ct *ChangeTracker) SetValue(property string, value any) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.current[property] = value

	oldValue, hadOldValue := ct.original[property]
	if !hadOldValue || !deepEqual(oldValue, value) {
		ct.changes[property] = &PropertyChange{
			Property: property,
			OldValue: oldValue,
			NewValue: value,
		}
	} else {
		// value reverted to original
		delete(ct.changes, property)
	}
}

// SetOriginalValue overrides the accepted value of a property, as when an
// exported entity with original values is imported
func (ct *ChangeTracker) SetOriginalValue(property string, value any) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.original[property] = deepCopyValue(value)
	current := ct.current[property]
	if deepEqual(ct.original[property], current) {
		delete(ct.changes, property)
		return
	}
	ct.changes[property] = &PropertyChange{
		Property: property,
		OldValue: ct.original[property],
		NewValue: current,
	}
}

// GetChangedData returns a map of only the changed properties with their new values
func (ct *ChangeTracker) GetChangedData() map[string]any {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make(map[string]any, len(ct.changes))
	for property, change := range ct.changes {
		result[property] = change.NewValue
	}
	return result
}
