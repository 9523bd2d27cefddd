package entity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"github.com/conduit-lang/entitymeta/internal/orm/tracking"
)

// propertyBag holds the data property values of an entity or complex object
type propertyBag struct {
	stype   *schema.StructuralType
	tracker *tracking.ChangeTracker
}

func newPropertyBag(t *schema.StructuralType) (*propertyBag, error) {
	initial := make(map[string]any)
	for _, p := range t.DataProperties() {
		v, err := initialValue(p)
		if err != nil {
			return nil, err
		}
		initial[p.Name()] = v
	}
	return &propertyBag{stype: t, tracker: tracking.NewChangeTracker(initial, initial)}, nil
}

func initialValue(p *schema.Property) (any, error) {
	if !p.IsScalar() {
		return &Collection{property: p}, nil
	}
	if p.IsComplexProperty() {
		ct := p.ComplexType()
		if ct == nil {
			return nil, &schema.UnresolvedTypeReferenceError{
				Type:      p.ParentType().QualifiedName(),
				Reference: p.ComplexTypeName(),
			}
		}
		return NewComplexObject(ct, nil)
	}
	return p.DefaultValue(), nil
}

func (b *propertyBag) property(name string) (*schema.Property, error) {
	p := b.stype.GetProperty(name)
	if p == nil {
		return nil, unknownProperty(b.stype.QualifiedName(), name)
	}
	if p.IsNavigationProperty() {
		return nil, &schema.InvalidOperationError{
			Type:     b.stype.QualifiedName(),
			Property: p.Name(),
			Message:  "navigation property values are not tracked",
		}
	}
	return p, nil
}

func (b *propertyBag) get(name string) (any, error) {
	p, err := b.property(name)
	if err != nil {
		return nil, err
	}
	return b.tracker.CurrentValue(p.Name()), nil
}

func (b *propertyBag) set(name string, value any) error {
	p, err := b.property(name)
	if err != nil {
		return err
	}
	current := b.tracker.CurrentValue(p.Name())

	switch {
	case !p.IsScalar():
		return current.(*Collection).replace(value)
	case p.IsComplexProperty():
		if value == nil {
			return invalidValue(b.stype.QualifiedName(), p.Name(), "complex properties cannot be null")
		}
		m, err := asValueMap(value)
		if err != nil {
			return invalidValue(b.stype.QualifiedName(), p.Name(), "%v", err)
		}
		return current.(*ComplexObject).bag.setValues(m)
	default:
		v, err := coerceValue(p, value)
		if err != nil {
			return err
		}
		b.tracker.SetValue(p.Name(), v)
		return nil
	}
}

func (b *propertyBag) setValues(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := b.set(name, values[name]); err != nil {
			return err
		}
	}
	return nil
}

// children returns the complex objects and collections held by the bag
func (b *propertyBag) children() ([]*ComplexObject, []*Collection) {
	var objects []*ComplexObject
	var collections []*Collection
	for _, p := range b.stype.DataProperties() {
		switch v := b.tracker.CurrentValue(p.Name()).(type) {
		case *ComplexObject:
			objects = append(objects, v)
		case *Collection:
			collections = append(collections, v)
		}
	}
	return objects, collections
}

func (b *propertyBag) hasChanges() bool {
	if b.tracker.HasChanges() {
		return true
	}
	objects, collections := b.children()
	for _, co := range objects {
		if co.bag.hasChanges() {
			return true
		}
	}
	for _, c := range collections {
		if c.hasChanges() {
			return true
		}
	}
	return false
}

func (b *propertyBag) accept() {
	b.tracker.Accept()
	objects, collections := b.children()
	for _, co := range objects {
		co.bag.accept()
	}
	for _, c := range collections {
		c.accept()
	}
}

func (b *propertyBag) reject() {
	b.tracker.Reject()
	objects, collections := b.children()
	for _, co := range objects {
		co.bag.reject()
	}
	for _, c := range collections {
		c.reject()
	}
}

func (b *propertyBag) setOwner(e *Entity) {
	objects, collections := b.children()
	for _, co := range objects {
		co.setOwner(e)
	}
	for _, c := range collections {
		c.setOwner(e)
	}
}

// values returns the current values; complex objects and collections are returned as-is
func (b *propertyBag) values() map[string]any {
	out := make(map[string]any)
	for _, p := range b.stype.DataProperties() {
		out[p.Name()] = b.tracker.CurrentValue(p.Name())
	}
	return out
}

func (b *propertyBag) export() map[string]any {
	out := make(map[string]any)
	for _, p := range b.stype.DataProperties() {
		out[p.Name()] = exportValue(b.tracker.CurrentValue(p.Name()))
	}
	return out
}

// originalValues returns the accepted values of changed properties. Changed
// scalar complex objects contribute a nested map of their own originals.
func (b *propertyBag) originalValues(export bool) map[string]any {
	out := b.tracker.OriginalValues()
	if export {
		for name, v := range out {
			out[name] = exportValue(v)
		}
	}
	for _, p := range b.stype.DataProperties() {
		co, ok := b.tracker.CurrentValue(p.Name()).(*ComplexObject)
		if !ok {
			continue
		}
		if nested := co.bag.originalValues(export); len(nested) > 0 {
			out[p.Name()] = nested
		}
	}
	return out
}

func (b *propertyBag) applyOriginals(originals map[string]any) error {
	for name, v := range originals {
		p, err := b.property(name)
		if err != nil {
			return err
		}
		switch current := b.tracker.CurrentValue(p.Name()).(type) {
		case *Collection:
			continue
		case *ComplexObject:
			m, err := asValueMap(v)
			if err != nil {
				return invalidValue(b.stype.QualifiedName(), p.Name(), "%v", err)
			}
			if err := current.bag.applyOriginals(m); err != nil {
				return err
			}
		default:
			cv, err := coerceValue(p, v)
			if err != nil {
				return err
			}
			b.tracker.SetOriginalValue(p.Name(), cv)
		}
	}
	return nil
}

// ComplexObject is an instance of a complex type embedded in an entity
type ComplexObject struct {
	mu    sync.RWMutex
	bag   *propertyBag
	owner *Entity
}

// NewComplexObject creates an instance of a complex type with the given initial values
func NewComplexObject(ct *schema.StructuralType, values map[string]any) (*ComplexObject, error) {
	if ct == nil {
		return nil, &schema.ConfigurationError{Message: "a complex type is required"}
	}
	if !ct.IsComplexType() {
		return nil, &schema.ConfigurationError{Type: ct.QualifiedName(), Message: "not a complex type"}
	}
	bag, err := newPropertyBag(ct)
	if err != nil {
		return nil, err
	}
	if err := bag.setValues(values); err != nil {
		return nil, err
	}
	bag.accept()
	return &ComplexObject{bag: bag}, nil
}

// ComplexType returns the object's type
func (co *ComplexObject) ComplexType() *schema.StructuralType {
	return co.bag.stype
}

// GetProperty returns the current value of a property
func (co *ComplexObject) GetProperty(name string) (any, error) {
	return co.bag.get(name)
}

// SetProperty changes a property value and marks the owning entity modified
func (co *ComplexObject) SetProperty(name string, value any) error {
	if err := co.bag.set(name, value); err != nil {
		return err
	}
	if owner := co.Owner(); owner != nil {
		owner.touch()
	}
	return nil
}

// Values returns the current property values
func (co *ComplexObject) Values() map[string]any {
	return co.bag.values()
}

// OriginalValues returns the accepted values of changed properties
func (co *ComplexObject) OriginalValues() map[string]any {
	return co.bag.originalValues(false)
}

// Owner returns the entity this object belongs to, or nil
func (co *ComplexObject) Owner() *Entity {
	co.mu.RLock()
	defer co.mu.RUnlock()
	return co.owner
}

func (co *ComplexObject) setOwner(e *Entity) {
	co.mu.Lock()
	co.owner = e
	co.mu.Unlock()
	co.bag.setOwner(e)
}

func (co *ComplexObject) exportValues() map[string]any {
	return co.bag.export()
}

// Collection holds the values of a non-scalar data property
type Collection struct {
	mu       sync.RWMutex
	property *schema.Property
	items    []any
	original []any
	owner    *Entity
}

// Property returns the property the collection belongs to
func (c *Collection) Property() *schema.Property {
	return c.property
}

// Push appends items. Complex items may be given as ComplexObjects or maps.
func (c *Collection) Push(items ...any) error {
	converted := make([]any, 0, len(items))
	for _, item := range items {
		v, err := c.convert(item)
		if err != nil {
			return err
		}
		converted = append(converted, v)
	}

	c.mu.Lock()
	c.items = append(c.items, converted...)
	owner := c.owner
	c.mu.Unlock()

	for _, v := range converted {
		if co, ok := v.(*ComplexObject); ok {
			co.setOwner(owner)
		}
	}
	if owner != nil {
		owner.touch()
	}
	return nil
}

func (c *Collection) convert(item any) (any, error) {
	owner := c.property.ParentType().QualifiedName()
	if !c.property.IsComplexProperty() {
		return coerceValue(c.property, item)
	}

	ct := c.property.ComplexType()
	switch v := item.(type) {
	case *ComplexObject:
		if v.ComplexType() != ct {
			return nil, invalidValue(owner, c.property.Name(), "expected %s, got %s", ct.ShortName(), v.ComplexType().ShortName())
		}
		if o := v.Owner(); o != nil && o != c.ownerEntity() {
			return nil, invalidValue(owner, c.property.Name(), "complex object already belongs to another entity")
		}
		return v, nil
	case map[string]any:
		return NewComplexObject(ct, v)
	default:
		return nil, invalidValue(owner, c.property.Name(), "expected %s, got %T", ct.ShortName(), item)
	}
}

func (c *Collection) ownerEntity() *Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// Len returns the number of items
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// At returns the item at index i, or nil when out of range
func (c *Collection) At(i int) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// Items returns a copy of the item list
func (c *Collection) Items() []any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]any(nil), c.items...)
}

// replace swaps the contents for a slice or another collection
func (c *Collection) replace(value any) error {
	var items []any
	switch v := value.(type) {
	case nil:
	case *Collection:
		for _, item := range v.Items() {
			if co, ok := item.(*ComplexObject); ok {
				item = co.bag.export()
			}
			items = append(items, item)
		}
	case []any:
		items = v
	case []map[string]any:
		for _, m := range v {
			items = append(items, m)
		}
	default:
		return invalidValue(c.property.ParentType().QualifiedName(), c.property.Name(), "expected a list, got %T", value)
	}

	converted := make([]any, 0, len(items))
	for _, item := range items {
		v, err := c.convert(item)
		if err != nil {
			return err
		}
		converted = append(converted, v)
	}

	c.mu.Lock()
	c.items = converted
	owner := c.owner
	c.mu.Unlock()
	for _, v := range converted {
		if co, ok := v.(*ComplexObject); ok {
			co.setOwner(owner)
		}
	}
	return nil
}

func (c *Collection) hasChanges() bool {
	c.mu.RLock()
	items := append([]any(nil), c.items...)
	changed := len(c.items) != len(c.original)
	for i := 0; !changed && i < len(c.items); i++ {
		changed = !sameItem(c.items[i], c.original[i])
	}
	c.mu.RUnlock()

	if changed {
		return true
	}
	for _, item := range items {
		if co, ok := item.(*ComplexObject); ok && co.bag.hasChanges() {
			return true
		}
	}
	return false
}

func sameItem(a, b any) bool {
	if ca, ok := a.(*ComplexObject); ok {
		return ca == b
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func (c *Collection) accept() {
	c.mu.Lock()
	c.original = append([]any(nil), c.items...)
	items := c.original
	c.mu.Unlock()
	for _, item := range items {
		if co, ok := item.(*ComplexObject); ok {
			co.bag.accept()
		}
	}
}

func (c *Collection) reject() {
	c.mu.Lock()
	c.items = append([]any(nil), c.original...)
	items := c.items
	c.mu.Unlock()
	for _, item := range items {
		if co, ok := item.(*ComplexObject); ok {
			co.bag.reject()
		}
	}
}

func (c *Collection) setOwner(e *Entity) {
	c.mu.Lock()
	c.owner = e
	items := append([]any(nil), c.items...)
	c.mu.Unlock()
	for _, item := range items {
		if co, ok := item.(*ComplexObject); ok {
			co.setOwner(e)
		}
	}
}
