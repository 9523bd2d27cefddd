package entity

import (
	"errors"
	"fmt"
)

// Entity error kinds
var (
	// ErrUnknownProperty is returned when a value names a property the type does not declare
	ErrUnknownProperty = errors.New("unknown property")

	// ErrInvalidValue is returned when a value cannot be stored in a property
	ErrInvalidValue = errors.New("invalid property value")

	// ErrDuplicateKey is returned when an entity with the same key is already attached
	ErrDuplicateKey = errors.New("an entity with this key is already attached")

	// ErrNotAttached is returned when an operation needs an attached entity
	ErrNotAttached = errors.New("entity is not attached to this manager")
)

// PropertyError reports a failure tied to one property of a type.
type PropertyError struct {
	Type     string
	Property string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *PropertyError) Error() string {
	msg := fmt.Sprintf("%s.%s: %v", e.Type, e.Property, e.Err)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap returns the error kind
func (e *PropertyError) Unwrap() error {
	return e.Err
}

// IsUnknownProperty checks if an error is an unknown property error
func IsUnknownProperty(err error) bool {
	return errors.Is(err, ErrUnknownProperty)
}

// IsInvalidValue checks if an error is an invalid value error
func IsInvalidValue(err error) bool {
	return errors.Is(err, ErrInvalidValue)
}

func unknownProperty(typeName, property string) error {
	return &PropertyError{Type: typeName, Property: property, Err: ErrUnknownProperty}
}

func invalidValue(typeName, property, format string, args ...any) error {
	return &PropertyError{Type: typeName, Property: property, Message: fmt.Sprintf(format, args...), Err: ErrInvalidValue}
}
