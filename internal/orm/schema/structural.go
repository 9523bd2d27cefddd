package schema

import (
	"sync"
)

// StructuralType describes an entity type or a complex (value) type
type StructuralType struct {
	shortName            string
	namespace            string
	baseTypeName         string
	isComplexType        bool
	isAbstract           bool
	autoGeneratedKeyType AutoGeneratedKeyType
	defaultResourceName  string
	custom               Custom

	properties []*Property
	index      map[string]*Property

	baseType *StructuralType
	subtypes []*StructuralType
	store    *MetadataStore

	memoMu        sync.Mutex
	allProperties []*Property
	keyProperties []*Property
}

// TypePatch carries the fields SetProperties may change. Nil fields are left unchanged.
type TypePatch struct {
	ShortName            *string
	Namespace            *string
	BaseTypeName         *string
	IsAbstract           *bool
	AutoGeneratedKeyType *AutoGeneratedKeyType
	DefaultResourceName  *string
	Custom               Custom
}

// NewStructuralType builds an unregistered type from its spec. The base type
// reference is kept by name and linked when the type is registered.
func NewStructuralType(spec TypeSpec) (*StructuralType, error) {
	if spec.ShortName == "" {
		return nil, &ConfigurationError{Message: "structural type requires a shortName"}
	}

	keyType, err := ParseAutoGeneratedKeyType(spec.AutoGeneratedKeyType)
	if err != nil {
		return nil, withType(err, QualifyName(spec.ShortName, spec.Namespace))
	}

	t := &StructuralType{
		shortName:            spec.ShortName,
		namespace:            spec.Namespace,
		isComplexType:        spec.IsComplexType,
		isAbstract:           spec.IsAbstract,
		autoGeneratedKeyType: keyType,
		defaultResourceName:  spec.DefaultResourceName,
		custom:               spec.Custom.Copy(),
		index:                make(map[string]*Property),
	}
	if spec.BaseTypeName != "" {
		t.baseTypeName = NormalizeTypeName(spec.BaseTypeName)
	}

	if t.isComplexType {
		if keyType != KeyNone {
			return nil, &ConfigurationError{Type: t.QualifiedName(), Message: "a complex type cannot have an auto-generated key"}
		}
		if spec.DefaultResourceName != "" {
			return nil, &ConfigurationError{Type: t.QualifiedName(), Message: "a complex type cannot be mapped to a resource name"}
		}
		if len(spec.NavigationProperties) > 0 {
			return nil, &ConfigurationError{Type: t.QualifiedName(), Message: "a complex type cannot declare navigation properties"}
		}
	}

	for _, ps := range spec.DataProperties {
		p, err := NewDataProperty(ps)
		if err != nil {
			return nil, withType(err, t.QualifiedName())
		}
		if err := t.AddProperty(p); err != nil {
			return nil, err
		}
	}
	for _, ps := range spec.NavigationProperties {
		p, err := NewNavigationProperty(ps)
		if err != nil {
			return nil, withType(err, t.QualifiedName())
		}
		if err := t.AddProperty(p); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// AddProperty appends a property to the type's own list
func (t *StructuralType) AddProperty(p *Property) error {
	if t.store != nil {
		return t.store.addProperty(t, p)
	}
	return t.addProperty(p, nil)
}

// addProperty checks and appends p. resolve links complex references for registered types.
func (t *StructuralType) addProperty(p *Property, resolve func(ref, namespace string) *StructuralType) error {
	if p == nil {
		return &ConfigurationError{Type: t.QualifiedName(), Message: "property cannot be nil"}
	}
	if p.parent != nil && p.parent != t {
		return &InvalidOperationError{Type: t.QualifiedName(), Property: p.name, Message: "property already belongs to " + p.parent.QualifiedName()}
	}
	if t.isComplexType {
		if p.kind == NavigationProperty {
			return &ConfigurationError{Type: t.QualifiedName(), Property: p.name, Message: "a complex type cannot declare navigation properties"}
		}
		if p.isPartOfKey {
			return &ConfigurationError{Type: t.QualifiedName(), Property: p.name, Message: "a complex type cannot declare key properties"}
		}
	}
	if t.store != nil {
		if p.isPartOfKey {
			return &InvalidOperationError{Type: t.QualifiedName(), Property: p.name, Message: "cannot add a key property to a registered type"}
		}
		p.applyConvention(t.store.namingConvention)
	}
	if _, exists := t.index[p.name]; exists {
		return &DuplicatePropertyError{Type: t.QualifiedName(), Property: p.name}
	}
	if t.store != nil && t.inheritedProperty(p.name) != nil {
		return &DuplicatePropertyError{Type: t.QualifiedName(), Property: p.name}
	}

	if resolve != nil && p.complexTypeName != "" {
		ct := resolve(p.complexTypeName, t.namespace)
		if ct == nil || !ct.isComplexType {
			return &UnresolvedTypeReferenceError{Type: t.QualifiedName(), Reference: p.complexTypeName}
		}
		p.complexType = ct
	}

	p.parent = t
	t.properties = append(t.properties, p)
	t.index[p.name] = p
	t.invalidate()
	return nil
}

// SetProperties updates type-level fields. Identity fields (ShortName,
// Namespace, BaseTypeName) may only change before registration.
func (t *StructuralType) SetProperties(patch TypePatch) error {
	if t.store != nil {
		return t.store.setTypeProperties(t, patch)
	}
	return t.setProperties(patch)
}

func (t *StructuralType) setProperties(patch TypePatch) error {
	if t.store != nil && (patch.ShortName != nil || patch.Namespace != nil || patch.BaseTypeName != nil) {
		return &InvalidOperationError{Type: t.QualifiedName(), Message: "cannot change the name or base type of a registered type"}
	}
	if patch.ShortName != nil && *patch.ShortName == "" {
		return &ConfigurationError{Type: t.QualifiedName(), Message: "shortName cannot be empty"}
	}
	if t.isComplexType {
		if patch.AutoGeneratedKeyType != nil && *patch.AutoGeneratedKeyType != KeyNone {
			return &ConfigurationError{Type: t.QualifiedName(), Message: "a complex type cannot have an auto-generated key"}
		}
		if patch.DefaultResourceName != nil && *patch.DefaultResourceName != "" {
			return &ConfigurationError{Type: t.QualifiedName(), Message: "a complex type cannot be mapped to a resource name"}
		}
	}

	if patch.ShortName != nil {
		t.shortName = *patch.ShortName
	}
	if patch.Namespace != nil {
		t.namespace = *patch.Namespace
	}
	if patch.BaseTypeName != nil {
		t.baseTypeName = ""
		if *patch.BaseTypeName != "" {
			t.baseTypeName = NormalizeTypeName(*patch.BaseTypeName)
		}
	}
	if patch.IsAbstract != nil {
		t.isAbstract = *patch.IsAbstract
	}
	if patch.AutoGeneratedKeyType != nil {
		t.autoGeneratedKeyType = *patch.AutoGeneratedKeyType
	}
	if patch.DefaultResourceName != nil {
		t.defaultResourceName = *patch.DefaultResourceName
	}
	if patch.Custom != nil {
		t.custom = patch.Custom.Copy()
	}
	return nil
}

// ShortName returns the unqualified type name
func (t *StructuralType) ShortName() string { return t.shortName }

// Namespace returns the type's namespace
func (t *StructuralType) Namespace() string { return t.namespace }

// QualifiedName returns ShortName:#Namespace
func (t *StructuralType) QualifiedName() string { return QualifyName(t.shortName, t.namespace) }

// BaseTypeName returns the qualified name of the base type, or ""
func (t *StructuralType) BaseTypeName() string { return t.baseTypeName }

// BaseType returns the linked base type; nil for root types and unregistered types
func (t *StructuralType) BaseType() *StructuralType { return t.baseType }

// IsComplexType reports whether this is a complex (value) type
func (t *StructuralType) IsComplexType() bool { return t.isComplexType }

// IsEntityType reports whether this is an entity type
func (t *StructuralType) IsEntityType() bool { return !t.isComplexType }

// IsAbstract reports whether entities of exactly this type may be created
func (t *StructuralType) IsAbstract() bool { return t.isAbstract }

// AutoGeneratedKeyType returns how key values are produced
func (t *StructuralType) AutoGeneratedKeyType() AutoGeneratedKeyType { return t.autoGeneratedKeyType }

// DefaultResourceName returns the resource name queries for this type use
func (t *StructuralType) DefaultResourceName() string { return t.defaultResourceName }

// Custom returns a copy of the type's custom annotation
func (t *StructuralType) Custom() Custom { return t.custom.Copy() }

// MetadataStore returns the owning store, or nil before registration
func (t *StructuralType) MetadataStore() *MetadataStore { return t.store }

// Subtypes returns the registered types that directly derive from this one
func (t *StructuralType) Subtypes() []*StructuralType {
	return append([]*StructuralType(nil), t.subtypes...)
}

// IsSubtypeOf reports whether t is other or derives from it
func (t *StructuralType) IsSubtypeOf(other *StructuralType) bool {
	for cur := t; cur != nil; cur = cur.baseType {
		if cur == other {
			return true
		}
	}
	return false
}

// OwnProperties returns the properties declared directly on this type
func (t *StructuralType) OwnProperties() []*Property {
	return append([]*Property(nil), t.properties...)
}

// Properties returns inherited and own properties, base types first
func (t *StructuralType) Properties() []*Property {
	return append([]*Property(nil), t.derivedProperties()...)
}

// DataProperties returns inherited and own data properties
func (t *StructuralType) DataProperties() []*Property {
	return t.filter(func(p *Property) bool { return p.kind == DataProperty })
}

// NavigationProperties returns inherited and own navigation properties
func (t *StructuralType) NavigationProperties() []*Property {
	return t.filter(func(p *Property) bool { return p.kind == NavigationProperty })
}

// ComplexProperties returns data properties holding complex type instances
func (t *StructuralType) ComplexProperties() []*Property {
	return t.filter(func(p *Property) bool { return p.complexTypeName != "" })
}

// KeyProperties returns key properties ordered from the root type to this one
func (t *StructuralType) KeyProperties() []*Property {
	t.memoMu.Lock()
	defer t.memoMu.Unlock()

	if t.keyProperties == nil {
		keys := make([]*Property, 0)
		for _, p := range t.derivedLocked() {
			if p.isPartOfKey {
				keys = append(keys, p)
			}
		}
		t.keyProperties = keys
	}
	return append([]*Property(nil), t.keyProperties...)
}

// GetProperty finds an own or inherited property by client name, then by
// server name. It returns nil when no property matches.
func (t *StructuralType) GetProperty(name string) *Property {
	props := t.derivedProperties()
	for _, p := range props {
		if p.name == name {
			return p
		}
	}
	for _, p := range props {
		if p.nameOnServer == name {
			return p
		}
	}
	return nil
}

// Clone returns an unregistered deep copy that can be added to another store
func (t *StructuralType) Clone() *StructuralType {
	c := &StructuralType{
		shortName:            t.shortName,
		namespace:            t.namespace,
		baseTypeName:         t.baseTypeName,
		isComplexType:        t.isComplexType,
		isAbstract:           t.isAbstract,
		autoGeneratedKeyType: t.autoGeneratedKeyType,
		defaultResourceName:  t.defaultResourceName,
		custom:               t.custom.Copy(),
		index:                make(map[string]*Property, len(t.properties)),
	}
	for _, p := range t.properties {
		pc := p.clone()
		pc.parent = c
		c.properties = append(c.properties, pc)
		c.index[pc.name] = pc
	}
	return c
}

// String returns the qualified name
func (t *StructuralType) String() string {
	return t.QualifiedName()
}

func (t *StructuralType) filter(keep func(*Property) bool) []*Property {
	result := make([]*Property, 0)
	for _, p := range t.derivedProperties() {
		if keep(p) {
			result = append(result, p)
		}
	}
	return result
}

func (t *StructuralType) derivedProperties() []*Property {
	t.memoMu.Lock()
	defer t.memoMu.Unlock()
	return t.derivedLocked()
}

func (t *StructuralType) derivedLocked() []*Property {
	if t.allProperties == nil {
		var all []*Property
		if t.baseType != nil {
			all = append(all, t.baseType.derivedProperties()...)
		}
		all = append(all, t.properties...)
		if all == nil {
			all = make([]*Property, 0)
		}
		t.allProperties = all
	}
	return t.allProperties
}

func (t *StructuralType) inheritedProperty(name string) *Property {
	for base := t.baseType; base != nil; base = base.baseType {
		if p, ok := base.index[name]; ok {
			return p
		}
	}
	return nil
}

// invalidate drops memoized lists for this type and every subtype
func (t *StructuralType) invalidate() {
	t.memoMu.Lock()
	t.allProperties = nil
	t.keyProperties = nil
	subtypes := t.subtypes
	t.memoMu.Unlock()

	for _, sub := range subtypes {
		sub.invalidate()
	}
}

// applyConvention fills derived names and re-checks for collisions they cause
func (t *StructuralType) applyConvention(nc NamingConvention) error {
	index := make(map[string]*Property, len(t.properties))
	for _, p := range t.properties {
		p.applyConvention(nc)
		if _, exists := index[p.name]; exists {
			return &DuplicatePropertyError{Type: t.QualifiedName(), Property: p.name}
		}
		index[p.name] = p
	}
	t.index = index
	t.invalidate()
	return nil
}

// spec converts the type back into its wire form; only own properties are written
func (t *StructuralType) spec() TypeSpec {
	ts := TypeSpec{
		ShortName:           t.shortName,
		Namespace:           t.namespace,
		BaseTypeName:        t.baseTypeName,
		IsComplexType:       t.isComplexType,
		IsAbstract:          t.isAbstract,
		DefaultResourceName: t.defaultResourceName,
		Custom:              t.custom.Copy(),
	}
	if t.autoGeneratedKeyType != KeyNone {
		ts.AutoGeneratedKeyType = t.autoGeneratedKeyType.String()
	}
	for _, p := range t.properties {
		if p.kind == NavigationProperty {
			ts.NavigationProperties = append(ts.NavigationProperties, p.navigationSpec())
		} else {
			ts.DataProperties = append(ts.DataProperties, p.dataSpec())
		}
	}
	return ts
}

func withType(err error, typeName string) error {
	if ce, ok := err.(*ConfigurationError); ok && ce.Type == "" {
		ce.Type = typeName
	}
	return err
}
