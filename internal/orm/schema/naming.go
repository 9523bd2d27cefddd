package schema

import (
	"fmt"
	"strings"
	"sync"

	casing "github.com/conduit-lang/entitymeta/internal/util/strings"
)

// NamingConvention translates property names between the client and the server
type NamingConvention struct {
	Name           string
	ServerToClient func(string) string
	ClientToServer func(string) string
}

var (
	// NoneConvention keeps names unchanged
	NoneConvention = NamingConvention{
		Name:           "none",
		ServerToClient: func(s string) string { return s },
		ClientToServer: func(s string) string { return s },
	}

	// CamelCaseConvention maps CustomerID on the server to customerID on the client
	CamelCaseConvention = NamingConvention{
		Name:           "camelCase",
		ServerToClient: casing.LowerFirst,
		ClientToServer: casing.UpperFirst,
	}

	// SnakeCaseConvention maps customer_id on the server to customerId on the client
	SnakeCaseConvention = NamingConvention{
		Name:           "snakeCase",
		ServerToClient: casing.ToLowerCamelCase,
		ClientToServer: casing.ToSnakeCase,
	}
)

var (
	conventionsMu sync.RWMutex
	conventions   = map[string]NamingConvention{
		NoneConvention.Name:      NoneConvention,
		CamelCaseConvention.Name: CamelCaseConvention,
		SnakeCaseConvention.Name: SnakeCaseConvention,
	}
)

// RegisterNamingConvention makes a convention available to LookupNamingConvention
func RegisterNamingConvention(nc NamingConvention) error {
	if nc.Name == "" || nc.ServerToClient == nil || nc.ClientToServer == nil {
		return &ConfigurationError{Message: "naming convention requires a name and both translation functions"}
	}

	conventionsMu.Lock()
	defer conventionsMu.Unlock()
	conventions[nc.Name] = nc
	return nil
}

// LookupNamingConvention returns a registered convention; the empty name is NoneConvention
func LookupNamingConvention(name string) (NamingConvention, error) {
	if name == "" {
		return NoneConvention, nil
	}

	conventionsMu.RLock()
	defer conventionsMu.RUnlock()
	nc, ok := conventions[name]
	if !ok {
		return NamingConvention{}, &ConfigurationError{Message: fmt.Sprintf("unknown naming convention %q", name)}
	}
	return nc, nil
}

// QualifyName builds the store-wide identity of a type: ShortName:#Namespace
func QualifyName(shortName, namespace string) string {
	if namespace == "" {
		return shortName
	}
	return shortName + ":#" + namespace
}

// ParseQualifiedName splits "Name:#Namespace" or "Namespace.Name" into its parts
func ParseQualifiedName(s string) (shortName, namespace string) {
	if i := strings.Index(s, ":#"); i >= 0 {
		return s[:i], s[i+2:]
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:], s[:i]
	}
	return s, ""
}

// NormalizeTypeName converts any accepted spelling of a type name to its qualified form
func NormalizeTypeName(s string) string {
	short, ns := ParseQualifiedName(s)
	return QualifyName(short, ns)
}

// NormalizeServiceName gives service names a trailing slash so "api/x" and "api/x/" match
func NormalizeServiceName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
