package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Metadata error kinds
var (
	// ErrConfiguration is returned when a descriptor is built from invalid options
	ErrConfiguration = errors.New("invalid metadata configuration")

	// ErrDuplicateProperty is returned when a type already declares a property with the same name
	ErrDuplicateProperty = errors.New("duplicate property")

	// ErrUnresolvedTypeReference is returned when a base or complex type reference cannot be linked
	ErrUnresolvedTypeReference = errors.New("unresolved type reference")

	// ErrInheritanceCycle is returned when base type references form a cycle
	ErrInheritanceCycle = errors.New("inheritance cycle detected")

	// ErrMetadataConflict is returned when imported metadata is incompatible with registered metadata
	ErrMetadataConflict = errors.New("metadata conflict")

	// ErrMetadataNotFound is returned when a type lookup fails
	ErrMetadataNotFound = errors.New("metadata not found")

	// ErrFetchFailed is returned when the remote metadata fetch fails
	ErrFetchFailed = errors.New("metadata fetch failed")

	// ErrInvalidOperation is returned when mutating a locked descriptor
	ErrInvalidOperation = errors.New("invalid operation")
)

// ConfigurationError reports an invalid descriptor option.
type ConfigurationError struct {
	Type     string
	Property string
	Message  string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid metadata configuration: %s%s", location(e.Type, e.Property), e.Message)
}

// Is reports whether target is ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// DuplicatePropertyError reports a property declared twice on one type.
type DuplicatePropertyError struct {
	Type     string
	Property string
}

// Error implements the error interface
func (e *DuplicatePropertyError) Error() string {
	return fmt.Sprintf("duplicate property: %s already declares %q", e.Type, e.Property)
}

// Is reports whether target is ErrDuplicateProperty
func (e *DuplicatePropertyError) Is(target error) bool {
	return target == ErrDuplicateProperty
}

// UnresolvedTypeReferenceError reports a type reference that could not be linked.
type UnresolvedTypeReferenceError struct {
	Type      string
	Reference string
	Cycles    [][]string
}

// Error implements the error interface
func (e *UnresolvedTypeReferenceError) Error() string {
	if len(e.Cycles) > 0 {
		return fmt.Sprintf("unresolved type reference: inheritance cycle detected:\n%s", formatCycles(e.Cycles))
	}
	return fmt.Sprintf("unresolved type reference: %s refers to unknown type %q", e.Type, e.Reference)
}

// Is reports whether target is ErrUnresolvedTypeReference, or ErrInheritanceCycle when cycles were found
func (e *UnresolvedTypeReferenceError) Is(target error) bool {
	if target == ErrInheritanceCycle {
		return len(e.Cycles) > 0
	}
	return target == ErrUnresolvedTypeReference
}

// MetadataConflictError reports imported metadata that cannot be reconciled with the store.
type MetadataConflictError struct {
	Type     string
	Property string
	Message  string
}

// Error implements the error interface
func (e *MetadataConflictError) Error() string {
	return fmt.Sprintf("metadata conflict: %s%s", location(e.Type, e.Property), e.Message)
}

// Is reports whether target is ErrMetadataConflict
func (e *MetadataConflictError) Is(target error) bool {
	return target == ErrMetadataConflict
}

// MetadataNotFoundError reports a failed type lookup. StoreEmpty is set when
// nothing has been imported or fetched yet.
type MetadataNotFoundError struct {
	Name       string
	StoreEmpty bool
}

// Error implements the error interface
func (e *MetadataNotFoundError) Error() string {
	if e.StoreEmpty {
		return fmt.Sprintf("unable to locate type %q: the metadata store is empty; "+
			"call fetchMetadata for the data service or import a metadata document first", e.Name)
	}
	return fmt.Sprintf("unable to locate type %q in the metadata store", e.Name)
}

// Is reports whether target is ErrMetadataNotFound
func (e *MetadataNotFoundError) Is(target error) bool {
	return target == ErrMetadataNotFound
}

// FetchFailedError wraps a transport failure reported by an Adapter.
type FetchFailedError struct {
	ServiceName string
	Err         error
}

// Error implements the error interface
func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("metadata fetch failed for %s: %v", e.ServiceName, e.Err)
}

// Unwrap returns the underlying adapter error
func (e *FetchFailedError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFetchFailed
func (e *FetchFailedError) Is(target error) bool {
	return target == ErrFetchFailed
}

// InvalidOperationError reports a mutation that is not allowed in the descriptor's current state.
type InvalidOperationError struct {
	Type     string
	Property string
	Message  string
}

// Error implements the error interface
func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("invalid operation: %s%s", location(e.Type, e.Property), e.Message)
}

// Is reports whether target is ErrInvalidOperation
func (e *InvalidOperationError) Is(target error) bool {
	return target == ErrInvalidOperation
}

// IsConfigurationError returns true if the error is a configuration error
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsDuplicateProperty returns true if the error is a duplicate property error
func IsDuplicateProperty(err error) bool {
	return errors.Is(err, ErrDuplicateProperty)
}

// IsUnresolvedTypeReference returns true if the error is an unresolved reference error
func IsUnresolvedTypeReference(err error) bool {
	return errors.Is(err, ErrUnresolvedTypeReference)
}

// IsMetadataConflict returns true if the error is a metadata conflict
func IsMetadataConflict(err error) bool {
	return errors.Is(err, ErrMetadataConflict)
}

// IsMetadataNotFound returns true if the error is a failed type lookup
func IsMetadataNotFound(err error) bool {
	return errors.Is(err, ErrMetadataNotFound)
}

// IsFetchFailed returns true if the error is a fetch failure
func IsFetchFailed(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}

// IsInvalidOperation returns true if the error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func location(typeName, property string) string {
	switch {
	case typeName != "" && property != "":
		return typeName + "." + property + ": "
	case typeName != "":
		return typeName + ": "
	case property != "":
		return property + ": "
	}
	return ""
}

// formatCycles formats cycle information for error messages
func formatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("  Cycle %d: %s -> %s",
			i+1,
			strings.Join(cycle, " -> "),
			cycle[0]))
	}
	return b.String()
}
