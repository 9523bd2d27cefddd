package schema

import (
	"fmt"
	"sort"
)

// importBatch stages a set of types so they can be linked and committed together
type importBatch struct {
	store      *MetadataStore
	convention NamingConvention

	added     map[string]*StructuralType
	order     []string
	bases     map[string]*StructuralType
	merges    []*typeMerge
	resources map[string]string
	targets   map[string]*StructuralType
	services  []*DataService
}

// typeMerge holds the changes an import makes to an already registered type
type typeMerge struct {
	target       *StructuralType
	custom       Custom
	newProps     []*Property
	propCustom   map[*Property]Custom
	resourceName string
}

func newImportBatch(s *MetadataStore, nc NamingConvention) *importBatch {
	return &importBatch{
		store:      s,
		convention: nc,
		added:      make(map[string]*StructuralType),
		bases:      make(map[string]*StructuralType),
		resources:  make(map[string]string),
		targets:    make(map[string]*StructuralType),
	}
}

func (b *importBatch) resolve(ref, namespace string) *StructuralType {
	return b.store.resolveLocked(ref, namespace, b.added)
}

// stage builds new types and plans merges without touching the store
func (b *importBatch) stage(doc *Document, allowMerge bool) error {
	merged := make(map[string]bool)

	for _, spec := range doc.StructuralTypes {
		if spec.ShortName == "" {
			return &ConfigurationError{Message: "structural type requires a shortName"}
		}
		qn := QualifyName(spec.ShortName, spec.Namespace)

		if _, dup := b.added[qn]; dup || merged[qn] {
			return &MetadataConflictError{Type: qn, Message: "type is declared more than once in the document"}
		}
		if existing, ok := b.store.types[qn]; ok {
			if !allowMerge {
				return &MetadataConflictError{Type: qn, Message: "type is already registered"}
			}
			if err := b.planMerge(existing, spec); err != nil {
				return err
			}
			merged[qn] = true
			continue
		}

		t, err := NewStructuralType(spec)
		if err != nil {
			return err
		}
		if err := t.applyConvention(b.convention); err != nil {
			return err
		}
		b.added[qn] = t
		b.order = append(b.order, qn)
	}

	for res, typeName := range doc.ResourceEntityTypeMap {
		b.resources[res] = typeName
	}

	for _, spec := range doc.DataServices {
		if NormalizeServiceName(spec.ServiceName) == "" {
			return &ConfigurationError{Message: "data service requires a service name"}
		}
		b.services = append(b.services, newDataServiceFromSpec(spec))
	}
	return nil
}

// planMerge checks an incoming spec against a registered type and records what to change
func (b *importBatch) planMerge(existing *StructuralType, spec TypeSpec) error {
	qn := existing.QualifiedName()
	m := &typeMerge{
		target:       existing,
		custom:       spec.Custom.Copy(),
		propCustom:   make(map[*Property]Custom),
		resourceName: spec.DefaultResourceName,
	}

	if spec.BaseTypeName != "" && b.resolve(spec.BaseTypeName, spec.Namespace) != existing.baseType {
		return &MetadataConflictError{Type: qn, Message: fmt.Sprintf("base type %q conflicts with registered base type %q", spec.BaseTypeName, existing.baseTypeName)}
	}
	if spec.IsComplexType && !existing.isComplexType {
		return &MetadataConflictError{Type: qn, Message: "an entity type cannot be redeclared as a complex type"}
	}
	if existing.isComplexType && spec.DefaultResourceName != "" {
		return &ConfigurationError{Type: qn, Message: "a complex type cannot be mapped to a resource name"}
	}
	if existing.isComplexType && len(spec.NavigationProperties) > 0 {
		return &ConfigurationError{Type: qn, Message: "a complex type cannot declare navigation properties"}
	}

	seen := make(map[string]bool)
	add := func(p *Property) error {
		p.applyConvention(b.convention)
		if p.isPartOfKey {
			return &MetadataConflictError{Type: qn, Property: p.name, Message: "cannot add a key property to a registered type"}
		}
		if seen[p.name] || subtypeDeclares(existing, p.name) {
			return &DuplicatePropertyError{Type: qn, Property: p.name}
		}
		seen[p.name] = true
		m.newProps = append(m.newProps, p)
		return nil
	}

	for _, ps := range spec.DataProperties {
		name := b.clientName(ps.Name, ps.NameOnServer)
		if p := existing.GetProperty(name); p != nil {
			if err := checkDataCompatible(qn, p, ps); err != nil {
				return err
			}
			if ps.Custom != nil {
				m.propCustom[p] = m.propCustom[p].Merge(ps.Custom)
			}
			continue
		}
		p, err := NewDataProperty(ps)
		if err != nil {
			return withType(err, qn)
		}
		if err := add(p); err != nil {
			return err
		}
	}

	for _, ps := range spec.NavigationProperties {
		name := b.clientName(ps.Name, ps.NameOnServer)
		if p := existing.GetProperty(name); p != nil {
			if p.kind != NavigationProperty {
				return &MetadataConflictError{Type: qn, Property: p.name, Message: "registered as a data property"}
			}
			if ps.EntityTypeName != "" && !sameTypeName(ps.EntityTypeName, p.entityTypeName) {
				return &MetadataConflictError{Type: qn, Property: p.name, Message: fmt.Sprintf("target %q conflicts with registered target %q", ps.EntityTypeName, p.entityTypeName)}
			}
			if ps.Custom != nil {
				m.propCustom[p] = m.propCustom[p].Merge(ps.Custom)
			}
			continue
		}
		p, err := NewNavigationProperty(ps)
		if err != nil {
			return withType(err, qn)
		}
		if err := add(p); err != nil {
			return err
		}
	}

	b.merges = append(b.merges, m)
	return nil
}

func (b *importBatch) clientName(name, nameOnServer string) string {
	if name != "" {
		return name
	}
	return b.convention.ServerToClient(nameOnServer)
}

func checkDataCompatible(qn string, p *Property, ps DataPropertySpec) error {
	if p.kind != DataProperty {
		return &MetadataConflictError{Type: qn, Property: p.name, Message: "registered as a navigation property"}
	}
	if ps.ComplexTypeName != "" {
		if !sameTypeName(ps.ComplexTypeName, p.complexTypeName) {
			return &MetadataConflictError{Type: qn, Property: p.name, Message: fmt.Sprintf("complex type %q conflicts with registered %q", ps.ComplexTypeName, p.complexTypeName)}
		}
		return nil
	}
	if ps.DataType == "" {
		return nil
	}
	dt, err := ParseDataType(ps.DataType)
	if err != nil {
		return &ConfigurationError{Type: qn, Property: p.name, Message: fmt.Sprintf("unknown data type %q", ps.DataType)}
	}
	if p.complexTypeName != "" || dt != p.dataType {
		registered := p.dataType.String()
		if p.complexTypeName != "" {
			registered = p.complexTypeName
		}
		return &MetadataConflictError{Type: qn, Property: p.name, Message: fmt.Sprintf("data type %s conflicts with registered %s", dt, registered)}
	}
	return nil
}

// sameTypeName compares references that may be written short or qualified
func sameTypeName(a, b string) bool {
	a, b = NormalizeTypeName(a), NormalizeTypeName(b)
	if a == b {
		return true
	}
	shortA, nsA := ParseQualifiedName(a)
	shortB, nsB := ParseQualifiedName(b)
	return shortA == shortB && (nsA == "" || nsB == "")
}

// link resolves base types, rejects cycles and name collisions along
// inheritance chains, links complex properties and resource names. It returns
// the new types ordered bases first.
func (b *importBatch) link() ([]string, error) {
	for _, qn := range b.order {
		t := b.added[qn]
		if t.baseTypeName == "" {
			continue
		}
		base := b.resolve(t.baseTypeName, t.namespace)
		if base == nil {
			return nil, &UnresolvedTypeReferenceError{Type: qn, Reference: t.baseTypeName}
		}
		if base.isComplexType != t.isComplexType {
			return nil, &ConfigurationError{Type: qn, Message: "entity types and complex types cannot derive from each other"}
		}
		b.bases[qn] = base
	}

	graph := NewInheritanceGraph(b.added, func(t *StructuralType) string {
		if base := b.bases[t.QualifiedName()]; base != nil {
			return base.QualifiedName()
		}
		return ""
	})
	if cycles := graph.DetectCycles(); len(cycles) > 0 {
		return nil, &UnresolvedTypeReferenceError{Cycles: cycles}
	}
	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	names := make(map[string]map[string]bool, len(order))
	for _, qn := range order {
		t := b.added[qn]
		visible := make(map[string]bool)
		if base := b.bases[qn]; base != nil {
			if staged, ok := names[base.QualifiedName()]; ok {
				for name := range staged {
					visible[name] = true
				}
			} else {
				for _, p := range base.Properties() {
					visible[p.name] = true
				}
			}
		}
		for _, p := range t.properties {
			if visible[p.name] {
				return nil, &DuplicatePropertyError{Type: qn, Property: p.name}
			}
			visible[p.name] = true
			if err := b.linkComplex(t, p); err != nil {
				return nil, err
			}
		}
		names[qn] = visible
	}

	for _, m := range b.merges {
		for _, p := range m.newProps {
			if err := b.linkComplex(m.target, p); err != nil {
				return nil, err
			}
		}
	}

	for _, res := range sortedKeys(b.resources) {
		typeName := b.resources[res]
		t := b.resolve(typeName, "")
		if t == nil {
			return nil, &UnresolvedTypeReferenceError{Type: res, Reference: typeName}
		}
		if t.isComplexType {
			return nil, &ConfigurationError{Type: t.QualifiedName(), Message: "a complex type cannot be mapped to a resource name"}
		}
		b.targets[res] = t
	}

	return order, nil
}

func (b *importBatch) linkComplex(owner *StructuralType, p *Property) error {
	if p.complexTypeName == "" {
		return nil
	}
	ct := b.resolve(p.complexTypeName, owner.namespace)
	if ct == nil {
		return &UnresolvedTypeReferenceError{Type: owner.QualifiedName(), Reference: p.complexTypeName}
	}
	if !ct.isComplexType {
		return &ConfigurationError{Type: owner.QualifiedName(), Property: p.name, Message: fmt.Sprintf("%s is not a complex type", ct.QualifiedName())}
	}
	p.complexType = ct
	return nil
}

// commit publishes a linked batch. It must not fail.
func (b *importBatch) commit(order []string) {
	s := b.store
	for _, qn := range order {
		s.registerLocked(b.added[qn], b.bases[qn])
	}

	for _, m := range b.merges {
		t := m.target
		for p, c := range m.propCustom {
			p.custom = p.custom.Merge(c)
		}
		for _, p := range m.newProps {
			p.parent = t
			t.properties = append(t.properties, p)
			t.index[p.name] = p
		}
		if m.custom != nil {
			t.custom = t.custom.Merge(m.custom)
		}
		if m.resourceName != "" {
			if t.defaultResourceName == "" {
				t.defaultResourceName = m.resourceName
			}
			s.resources[m.resourceName] = t.QualifiedName()
		}
		t.invalidate()
	}

	for _, res := range sortedKeys(b.targets) {
		t := b.targets[res]
		s.resources[res] = t.QualifiedName()
		if t.defaultResourceName == "" {
			t.defaultResourceName = res
		}
	}

	for _, ds := range b.services {
		if entry, ok := s.services[ds.ServiceName]; ok {
			entry.ds = ds
			entry.state = FetchComplete
			continue
		}
		s.services[ds.ServiceName] = &serviceEntry{ds: ds, state: FetchComplete}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
