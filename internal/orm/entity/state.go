package entity

import "fmt"

// EntityState is the change state of an entity within a manager
type EntityState int

const (
	// Detached entities are not tracked by any manager
	Detached EntityState = iota
	// Unchanged entities match their last accepted values
	Unchanged
	// Added entities are new and have no server counterpart yet
	Added
	// Modified entities have property changes since the last accept
	Modified
	// Deleted entities are marked for deletion
	Deleted
)

var stateNames = map[EntityState]string{
	Detached:  "Detached",
	Unchanged: "Unchanged",
	Added:     "Added",
	Modified:  "Modified",
	Deleted:   "Deleted",
}

// String returns the state name
func (s EntityState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("EntityState(%d)", int(s))
}

// IsChanged reports whether the state carries pending changes
func (s EntityState) IsChanged() bool {
	return s == Added || s == Modified || s == Deleted
}

// ParseEntityState converts a state name back to its value
func ParseEntityState(s string) (EntityState, error) {
	for state, name := range stateNames {
		if name == s {
			return state, nil
		}
	}
	return Detached, fmt.Errorf("unknown entity state %q", s)
}

// MergeStrategy decides what happens when imported entities collide with attached ones
type MergeStrategy int

const (
	// PreserveChanges keeps a locally changed entity and only refreshes unchanged ones
	PreserveChanges MergeStrategy = iota
	// OverwriteChanges replaces the local entity with the imported values and state
	OverwriteChanges
)

// String returns the strategy name
func (m MergeStrategy) String() string {
	if m == OverwriteChanges {
		return "OverwriteChanges"
	}
	return "PreserveChanges"
}
