package schema

import (
	"fmt"
)

// Property describes one data or navigation property of a StructuralType
type Property struct {
	name            string
	nameOnServer    string
	kind            PropertyKind
	dataType        DataType
	complexTypeName string
	isNullable      bool
	isPartOfKey     bool
	isScalar        bool
	defaultValue    any
	hasDefault      bool
	maxLength       *int
	concurrencyMode ConcurrencyMode

	// navigation only
	entityTypeName     string
	associationName    string
	foreignKeyNames    []string
	invForeignKeyNames []string

	validators []map[string]any
	custom     Custom

	// which half of the name pair was derived and should follow the store's convention
	nameDerived   bool
	serverDerived bool

	parent      *StructuralType
	complexType *StructuralType
}

// PropertyPatch carries the fields SetProperties may change. Nil fields are left unchanged.
type PropertyPatch struct {
	Name            *string
	NameOnServer    *string
	IsPartOfKey     *bool
	IsNullable      *bool
	DefaultValue    any
	MaxLength       *int
	ConcurrencyMode *ConcurrencyMode
	AssociationName *string
	ForeignKeyNames []string
	Validators      []map[string]any
	Custom          Custom
}

// NewDataProperty builds a data property from its spec
func NewDataProperty(spec DataPropertySpec) (*Property, error) {
	p := &Property{
		kind:            DataProperty,
		name:            spec.Name,
		nameOnServer:    spec.NameOnServer,
		complexTypeName: spec.ComplexTypeName,
		isPartOfKey:     spec.IsPartOfKey,
		isNullable:      true,
		isScalar:        true,
		maxLength:       spec.MaxLength,
		concurrencyMode: ConcurrencyMode(spec.ConcurrencyMode),
		validators:      copyValidators(spec.Validators),
		custom:          spec.Custom.Copy(),
	}
	if err := p.initNames(); err != nil {
		return nil, err
	}

	if spec.ComplexTypeName != "" {
		if spec.DataType != "" && spec.DataType != TypeUndefined.String() {
			return nil, &ConfigurationError{Property: p.name, Message: "a property cannot declare both dataType and complexTypeName"}
		}
		p.complexTypeName = NormalizeTypeName(spec.ComplexTypeName)
		p.dataType = TypeUndefined
		p.isNullable = false
	} else {
		p.dataType = TypeString
		if spec.DataType != "" {
			dt, err := ParseDataType(spec.DataType)
			if err != nil {
				return nil, &ConfigurationError{Property: p.name, Message: fmt.Sprintf("unknown data type %q", spec.DataType)}
			}
			p.dataType = dt
		}
	}

	if spec.IsNullable != nil {
		p.isNullable = *spec.IsNullable
	}
	if spec.IsScalar != nil {
		p.isScalar = *spec.IsScalar
	}
	if spec.DefaultValue != nil {
		p.defaultValue = DeepCopyValue(spec.DefaultValue)
		p.hasDefault = true
	}

	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewNavigationProperty builds a navigation property from its spec
func NewNavigationProperty(spec NavigationPropertySpec) (*Property, error) {
	p := &Property{
		kind:               NavigationProperty,
		name:               spec.Name,
		nameOnServer:       spec.NameOnServer,
		dataType:           TypeUndefined,
		isNullable:         true,
		isScalar:           true,
		associationName:    spec.AssociationName,
		foreignKeyNames:    append([]string(nil), spec.ForeignKeyNames...),
		invForeignKeyNames: append([]string(nil), spec.InvForeignKeyNames...),
		validators:         copyValidators(spec.Validators),
		custom:             spec.Custom.Copy(),
	}
	if err := p.initNames(); err != nil {
		return nil, err
	}
	if spec.EntityTypeName == "" {
		return nil, &ConfigurationError{Property: p.name, Message: "navigation property requires entityTypeName"}
	}
	p.entityTypeName = NormalizeTypeName(spec.EntityTypeName)
	if spec.IsScalar != nil {
		p.isScalar = *spec.IsScalar
	}
	return p, nil
}

func (p *Property) initNames() error {
	switch {
	case p.name == "" && p.nameOnServer == "":
		return &ConfigurationError{Message: "property requires a name or nameOnServer"}
	case p.name == "":
		p.name = p.nameOnServer
		p.nameDerived = true
	case p.nameOnServer == "":
		p.nameOnServer = p.name
		p.serverDerived = true
	}
	return nil
}

func (p *Property) validate() error {
	if p.isPartOfKey {
		if p.complexTypeName != "" {
			return &ConfigurationError{Property: p.name, Message: "a complex property cannot be part of the key"}
		}
		if !p.isScalar {
			return &ConfigurationError{Property: p.name, Message: "a non-scalar property cannot be part of the key"}
		}
		p.isNullable = false
	}
	if p.maxLength != nil && *p.maxLength < 0 {
		return &ConfigurationError{Property: p.name, Message: fmt.Sprintf("maxLength must not be negative, got %d", *p.maxLength)}
	}
	switch p.concurrencyMode {
	case "", ConcurrencyNone, ConcurrencyFixed:
	default:
		return &ConfigurationError{Property: p.name, Message: fmt.Sprintf("unknown concurrencyMode %q", p.concurrencyMode)}
	}
	return nil
}

// applyConvention fills the derived half of the name pair
func (p *Property) applyConvention(nc NamingConvention) {
	if p.nameDerived {
		p.name = nc.ServerToClient(p.nameOnServer)
	}
	if p.serverDerived {
		p.nameOnServer = nc.ClientToServer(p.name)
	}
}

// locked reports whether the owning type is registered in a store
func (p *Property) locked() bool {
	return p.parent != nil && p.parent.store != nil
}

// SetProperties updates non-identity fields. Name and IsPartOfKey may only
// change before the owning type is registered. A rejected patch leaves the
// property unchanged.
func (p *Property) SetProperties(patch PropertyPatch) error {
	if p.locked() {
		return p.parent.store.setPropertyProperties(p, patch)
	}
	return p.setProperties(patch, NoneConvention)
}

// setProperties validates the patched descriptor on a copy and only then
// applies it. nc re-derives a server name that followed the client name.
func (p *Property) setProperties(patch PropertyPatch, nc NamingConvention) error {
	if p.locked() {
		if patch.Name != nil && *patch.Name != p.name {
			return &InvalidOperationError{Type: p.parent.QualifiedName(), Property: p.name, Message: "cannot rename a property of a registered type"}
		}
		if patch.IsPartOfKey != nil && *patch.IsPartOfKey != p.isPartOfKey {
			return &InvalidOperationError{Type: p.parent.QualifiedName(), Property: p.name, Message: "cannot change the key of a registered type"}
		}
	}
	if patch.Name != nil {
		if *patch.Name == "" {
			return &ConfigurationError{Property: p.name, Message: "property name cannot be empty"}
		}
		if p.parent != nil && *patch.Name != p.name {
			if _, exists := p.parent.index[*patch.Name]; exists {
				return &DuplicatePropertyError{Type: p.parent.QualifiedName(), Property: *patch.Name}
			}
		}
	}
	if patch.IsPartOfKey != nil && *patch.IsPartOfKey && (p.kind == NavigationProperty || p.complexTypeName != "") {
		return &ConfigurationError{Property: p.name, Message: "only scalar primitive properties can be part of the key"}
	}

	next := *p
	renamed := patch.Name != nil && *patch.Name != p.name
	if renamed {
		next.name = *patch.Name
		next.nameDerived = false
		if next.serverDerived {
			next.nameOnServer = nc.ClientToServer(next.name)
		}
	}
	if patch.NameOnServer != nil {
		next.nameOnServer = *patch.NameOnServer
		next.serverDerived = false
	}
	if patch.IsPartOfKey != nil {
		next.isPartOfKey = *patch.IsPartOfKey
	}
	if patch.IsNullable != nil {
		next.isNullable = *patch.IsNullable
	}
	if patch.DefaultValue != nil {
		next.defaultValue = DeepCopyValue(patch.DefaultValue)
		next.hasDefault = true
	}
	if patch.MaxLength != nil {
		n := *patch.MaxLength
		next.maxLength = &n
	}
	if patch.ConcurrencyMode != nil {
		next.concurrencyMode = *patch.ConcurrencyMode
	}
	if patch.AssociationName != nil {
		next.associationName = *patch.AssociationName
	}
	if patch.ForeignKeyNames != nil {
		next.foreignKeyNames = append([]string(nil), patch.ForeignKeyNames...)
	}
	if patch.Validators != nil {
		next.validators = copyValidators(patch.Validators)
	}
	if patch.Custom != nil {
		next.custom = patch.Custom.Copy()
	}
	if err := next.validate(); err != nil {
		return err
	}

	if renamed && p.parent != nil {
		delete(p.parent.index, p.name)
		p.parent.index[next.name] = p
	}
	*p = next
	if p.parent != nil {
		p.parent.invalidate()
	}
	return nil
}

// Name returns the client-side property name
func (p *Property) Name() string { return p.name }

// NameOnServer returns the server-side property name
func (p *Property) NameOnServer() string { return p.nameOnServer }

// Kind returns whether this is a data or navigation property
func (p *Property) Kind() PropertyKind { return p.kind }

// DataType returns the primitive type; TypeUndefined for complex and navigation properties
func (p *Property) DataType() DataType { return p.dataType }

// ComplexTypeName returns the qualified name of the complex type, if any
func (p *Property) ComplexTypeName() string { return p.complexTypeName }

// IsNullable reports whether the property accepts nil
func (p *Property) IsNullable() bool { return p.isNullable }

// IsPartOfKey reports whether the property is part of the entity key
func (p *Property) IsPartOfKey() bool { return p.isPartOfKey }

// IsScalar reports whether the property holds a single value
func (p *Property) IsScalar() bool { return p.isScalar }

// MaxLength returns the declared maximum length
func (p *Property) MaxLength() (int, bool) {
	if p.maxLength == nil {
		return 0, false
	}
	return *p.maxLength, true
}

// ConcurrencyMode returns the optimistic concurrency mode
func (p *Property) ConcurrencyMode() ConcurrencyMode { return p.concurrencyMode }

// EntityTypeName returns the qualified name of the navigation target
func (p *Property) EntityTypeName() string { return p.entityTypeName }

// AssociationName returns the association shared with the inverse property
func (p *Property) AssociationName() string { return p.associationName }

// ForeignKeyNames returns the foreign key property names on the owning type
func (p *Property) ForeignKeyNames() []string { return append([]string(nil), p.foreignKeyNames...) }

// InvForeignKeyNames returns the foreign key property names on the target type
func (p *Property) InvForeignKeyNames() []string {
	return append([]string(nil), p.invForeignKeyNames...)
}

// Validators returns a copy of the opaque validator descriptors
func (p *Property) Validators() []map[string]any { return copyValidators(p.validators) }

// Custom returns a copy of the property's custom annotation
func (p *Property) Custom() Custom { return p.custom.Copy() }

// ParentType returns the type that declares this property
func (p *Property) ParentType() *StructuralType { return p.parent }

// ComplexType returns the linked complex type of a complex property
func (p *Property) ComplexType() *StructuralType { return p.complexType }

// IsDataProperty reports whether this is a data property
func (p *Property) IsDataProperty() bool { return p.kind == DataProperty }

// IsNavigationProperty reports whether this is a navigation property
func (p *Property) IsNavigationProperty() bool { return p.kind == NavigationProperty }

// IsComplexProperty reports whether the property holds complex type instances
func (p *Property) IsComplexProperty() bool { return p.complexTypeName != "" }

// DefaultValue returns the explicit default, or the data type's default for non-nullable properties
func (p *Property) DefaultValue() any {
	if p.hasDefault {
		return DeepCopyValue(p.defaultValue)
	}
	if p.isNullable || p.kind == NavigationProperty {
		return nil
	}
	return p.dataType.DefaultValue()
}

// EntityType returns the navigation target once it is registered in the owning store
func (p *Property) EntityType() *StructuralType {
	if p.kind != NavigationProperty || !p.locked() {
		return nil
	}
	t, ok := p.parent.store.FindEntityType(p.entityTypeName)
	if !ok {
		return nil
	}
	return t
}

// Inverse returns the navigation property on the target type that shares this association
func (p *Property) Inverse() *Property {
	if p.associationName == "" {
		return nil
	}
	target := p.EntityType()
	if target == nil {
		return nil
	}
	for _, candidate := range target.NavigationProperties() {
		if candidate != p && candidate.associationName == p.associationName {
			return candidate
		}
	}
	return nil
}

// String returns Type.name
func (p *Property) String() string {
	if p.parent == nil {
		return p.name
	}
	return p.parent.QualifiedName() + "." + p.name
}

// clone copies the property without its owner or resolved links
func (p *Property) clone() *Property {
	c := *p
	c.defaultValue = DeepCopyValue(p.defaultValue)
	c.foreignKeyNames = append([]string(nil), p.foreignKeyNames...)
	c.invForeignKeyNames = append([]string(nil), p.invForeignKeyNames...)
	c.validators = copyValidators(p.validators)
	c.custom = p.custom.Copy()
	if p.maxLength != nil {
		n := *p.maxLength
		c.maxLength = &n
	}
	c.parent = nil
	c.complexType = nil
	return &c
}

// dataSpec converts a data property back into its wire form
func (p *Property) dataSpec() DataPropertySpec {
	spec := DataPropertySpec{
		Name:            p.name,
		NameOnServer:    p.nameOnServer,
		ComplexTypeName: p.complexTypeName,
		IsNullable:      boolPtr(p.isNullable),
		IsPartOfKey:     p.isPartOfKey,
		MaxLength:       p.maxLength,
		Validators:      copyValidators(p.validators),
		Custom:          p.custom.Copy(),
	}
	if p.complexTypeName == "" {
		spec.DataType = p.dataType.String()
	}
	if !p.isScalar {
		spec.IsScalar = boolPtr(false)
	}
	if p.hasDefault {
		spec.DefaultValue = DeepCopyValue(p.defaultValue)
	}
	if p.concurrencyMode != "" && p.concurrencyMode != ConcurrencyNone {
		spec.ConcurrencyMode = string(p.concurrencyMode)
	}
	return spec
}

// navigationSpec converts a navigation property back into its wire form
func (p *Property) navigationSpec() NavigationPropertySpec {
	spec := NavigationPropertySpec{
		Name:               p.name,
		NameOnServer:       p.nameOnServer,
		EntityTypeName:     p.entityTypeName,
		AssociationName:    p.associationName,
		ForeignKeyNames:    append([]string(nil), p.foreignKeyNames...),
		InvForeignKeyNames: append([]string(nil), p.invForeignKeyNames...),
		Validators:         copyValidators(p.validators),
		Custom:             p.custom.Copy(),
	}
	if len(spec.ForeignKeyNames) == 0 {
		spec.ForeignKeyNames = nil
	}
	if len(spec.InvForeignKeyNames) == 0 {
		spec.InvForeignKeyNames = nil
	}
	if !p.isScalar {
		spec.IsScalar = boolPtr(false)
	}
	return spec
}
