package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MetadataVersion is written to every exported document
const MetadataVersion = "1.0.5"

// Document is the self-describing serialized form of a MetadataStore
type Document struct {
	MetadataVersion             string            `json:"metadataVersion" yaml:"metadataVersion"`
	NamingConvention            string            `json:"namingConvention,omitempty" yaml:"namingConvention,omitempty"`
	LocalQueryComparisonOptions string            `json:"localQueryComparisonOptions,omitempty" yaml:"localQueryComparisonOptions,omitempty"`
	DataServices                []DataServiceSpec `json:"dataServices,omitempty" yaml:"dataServices,omitempty"`
	StructuralTypes             []TypeSpec        `json:"structuralTypes" yaml:"structuralTypes"`
	ResourceEntityTypeMap       map[string]string `json:"resourceEntityTypeMap,omitempty" yaml:"resourceEntityTypeMap,omitempty"`
}

// DataServiceSpec describes a remote data service
type DataServiceSpec struct {
	ServiceName        string `json:"serviceName" yaml:"serviceName"`
	HasServerMetadata  *bool  `json:"hasServerMetadata,omitempty" yaml:"hasServerMetadata,omitempty"`
	AdapterName        string `json:"adapterName,omitempty" yaml:"adapterName,omitempty"`
	UriBuilderName     string `json:"uriBuilderName,omitempty" yaml:"uriBuilderName,omitempty"`
	JsonResultsAdapter string `json:"jsonResultsAdapter,omitempty" yaml:"jsonResultsAdapter,omitempty"`
}

// TypeSpec describes an entity or complex type
type TypeSpec struct {
	ShortName            string                   `json:"shortName" yaml:"shortName"`
	Namespace            string                   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	BaseTypeName         string                   `json:"baseTypeName,omitempty" yaml:"baseTypeName,omitempty"`
	IsComplexType        bool                     `json:"isComplexType,omitempty" yaml:"isComplexType,omitempty"`
	IsAbstract           bool                     `json:"isAbstract,omitempty" yaml:"isAbstract,omitempty"`
	AutoGeneratedKeyType string                   `json:"autoGeneratedKeyType,omitempty" yaml:"autoGeneratedKeyType,omitempty"`
	DefaultResourceName  string                   `json:"defaultResourceName,omitempty" yaml:"defaultResourceName,omitempty"`
	DataProperties       []DataPropertySpec       `json:"dataProperties,omitempty" yaml:"dataProperties,omitempty"`
	NavigationProperties []NavigationPropertySpec `json:"navigationProperties,omitempty" yaml:"navigationProperties,omitempty"`
	Custom               Custom                   `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// DataPropertySpec describes a primitive or complex-valued property
type DataPropertySpec struct {
	Name            string           `json:"name,omitempty" yaml:"name,omitempty"`
	NameOnServer    string           `json:"nameOnServer,omitempty" yaml:"nameOnServer,omitempty"`
	DataType        string           `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	ComplexTypeName string           `json:"complexTypeName,omitempty" yaml:"complexTypeName,omitempty"`
	IsNullable      *bool            `json:"isNullable,omitempty" yaml:"isNullable,omitempty"`
	IsPartOfKey     bool             `json:"isPartOfKey,omitempty" yaml:"isPartOfKey,omitempty"`
	IsScalar        *bool            `json:"isScalar,omitempty" yaml:"isScalar,omitempty"`
	DefaultValue    any              `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	MaxLength       *int             `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	ConcurrencyMode string           `json:"concurrencyMode,omitempty" yaml:"concurrencyMode,omitempty"`
	Validators      []map[string]any `json:"validators,omitempty" yaml:"validators,omitempty"`
	Custom          Custom           `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// NavigationPropertySpec describes a relationship to another entity type
type NavigationPropertySpec struct {
	Name               string           `json:"name,omitempty" yaml:"name,omitempty"`
	NameOnServer       string           `json:"nameOnServer,omitempty" yaml:"nameOnServer,omitempty"`
	EntityTypeName     string           `json:"entityTypeName" yaml:"entityTypeName"`
	IsScalar           *bool            `json:"isScalar,omitempty" yaml:"isScalar,omitempty"`
	AssociationName    string           `json:"associationName,omitempty" yaml:"associationName,omitempty"`
	ForeignKeyNames    []string         `json:"foreignKeyNames,omitempty" yaml:"foreignKeyNames,omitempty"`
	InvForeignKeyNames []string         `json:"invForeignKeyNames,omitempty" yaml:"invForeignKeyNames,omitempty"`
	Validators         []map[string]any `json:"validators,omitempty" yaml:"validators,omitempty"`
	Custom             Custom           `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// DecodeDocument parses a JSON or YAML metadata document
func DecodeDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ConfigurationError{Message: "metadata document is empty"}
	}

	var doc Document
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode metadata JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode metadata YAML: %w", err)
		}
		doc.normalize()
	}
	return &doc, nil
}

// JSON encodes the document as indented JSON
func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// YAML encodes the document as YAML
func (d *Document) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// normalize rewrites decoder-specific map types inside opaque payloads
func (d *Document) normalize() {
	for i := range d.StructuralTypes {
		ts := &d.StructuralTypes[i]
		ts.Custom = ts.Custom.Copy()
		for j := range ts.DataProperties {
			dp := &ts.DataProperties[j]
			dp.Custom = dp.Custom.Copy()
			dp.DefaultValue = DeepCopyValue(dp.DefaultValue)
			dp.Validators = copyValidators(dp.Validators)
		}
		for j := range ts.NavigationProperties {
			np := &ts.NavigationProperties[j]
			np.Custom = np.Custom.Copy()
			np.Validators = copyValidators(np.Validators)
		}
	}
}

func copyValidators(vs []map[string]any) []map[string]any {
	if vs == nil {
		return nil
	}
	result := make([]map[string]any, len(vs))
	for i, v := range vs {
		result[i] = map[string]any(Custom(v).Copy())
	}
	return result
}

func boolPtr(b bool) *bool {
	return &b
}
