// Package schema provides the metadata type system for entity clients.
// It describes entity and complex types, their data and navigation
// properties, single inheritance and opaque custom annotations, and a
// MetadataStore that registers, imports, exports and fetches them.
package schema

import (
	"fmt"
	"time"
)

// DataType represents the primitive type of a data property
type DataType int

const (
	TypeUndefined DataType = iota

	// Text
	TypeString

	// Numeric types
	TypeByte
	TypeInt16
	TypeInt32
	TypeInt64
	TypeDecimal
	TypeDouble
	TypeSingle

	// Boolean
	TypeBoolean

	// Time types
	TypeDateTime
	TypeDateTimeOffset
	TypeTime

	// Identifiers and blobs
	TypeGuid
	TypeBinary
	TypeMongoObjectId
)

var dataTypeNames = map[DataType]string{
	TypeUndefined:      "Undefined",
	TypeString:         "String",
	TypeByte:           "Byte",
	TypeInt16:          "Int16",
	TypeInt32:          "Int32",
	TypeInt64:          "Int64",
	TypeDecimal:        "Decimal",
	TypeDouble:         "Double",
	TypeSingle:         "Single",
	TypeBoolean:        "Boolean",
	TypeDateTime:       "DateTime",
	TypeDateTimeOffset: "DateTimeOffset",
	TypeTime:           "Time",
	TypeGuid:           "Guid",
	TypeBinary:         "Binary",
	TypeMongoObjectId:  "MongoObjectId",
}

// String returns the wire name of the data type
func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// ParseDataType converts a wire name into a DataType
func ParseDataType(s string) (DataType, error) {
	for t, name := range dataTypeNames {
		if name == s {
			return t, nil
		}
	}
	return TypeUndefined, &ConfigurationError{Message: fmt.Sprintf("unknown data type %q", s)}
}

// IsNumeric returns true for integer and floating point types
func (t DataType) IsNumeric() bool {
	switch t {
	case TypeByte, TypeInt16, TypeInt32, TypeInt64, TypeDecimal, TypeDouble, TypeSingle:
		return true
	default:
		return false
	}
}

// IsInteger returns true for integer types
func (t DataType) IsInteger() bool {
	switch t {
	case TypeByte, TypeInt16, TypeInt32, TypeInt64:
		return true
	default:
		return false
	}
}

// DefaultValue returns the value a non-nullable property of this type starts with
func (t DataType) DefaultValue() any {
	switch t {
	case TypeString, TypeMongoObjectId:
		return ""
	case TypeByte, TypeInt16, TypeInt32, TypeInt64:
		return int64(0)
	case TypeDecimal, TypeDouble, TypeSingle:
		return float64(0)
	case TypeBoolean:
		return false
	case TypeDateTime, TypeDateTimeOffset:
		return time.Time{}
	case TypeTime:
		return time.Duration(0)
	default:
		return nil
	}
}

// AutoGeneratedKeyType describes how key values of an entity type are produced
type AutoGeneratedKeyType int

const (
	KeyNone AutoGeneratedKeyType = iota
	KeyIdentity
	KeyGenerator
)

// String returns the wire name of the key generation strategy
func (k AutoGeneratedKeyType) String() string {
	switch k {
	case KeyIdentity:
		return "Identity"
	case KeyGenerator:
		return "KeyGenerator"
	default:
		return "None"
	}
}

// ParseAutoGeneratedKeyType converts a wire name; the empty string means None
func ParseAutoGeneratedKeyType(s string) (AutoGeneratedKeyType, error) {
	switch s {
	case "", "None":
		return KeyNone, nil
	case "Identity":
		return KeyIdentity, nil
	case "KeyGenerator":
		return KeyGenerator, nil
	}
	return KeyNone, &ConfigurationError{Message: fmt.Sprintf("unknown autoGeneratedKeyType %q", s)}
}

// PropertyKind separates data properties from navigation properties
type PropertyKind int

const (
	DataProperty PropertyKind = iota
	NavigationProperty
)

// String returns the string representation of the property kind
func (k PropertyKind) String() string {
	if k == NavigationProperty {
		return "navigation"
	}
	return "data"
}

// ConcurrencyMode marks properties used for optimistic concurrency checks
type ConcurrencyMode string

const (
	ConcurrencyNone  ConcurrencyMode = "None"
	ConcurrencyFixed ConcurrencyMode = "Fixed"
)
