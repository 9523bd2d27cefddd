package entity

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"github.com/google/uuid"
)

// KeyGenerator produces temporary values for auto-generated key properties
type KeyGenerator interface {
	Generate(p *schema.Property) (any, error)
}

// TempKeyGenerator hands out negative integers and random identifiers.
// The values are placeholders until the server assigns the real key.
type TempKeyGenerator struct {
	mu   sync.Mutex
	next int64
}

// NewTempKeyGenerator creates a generator starting at -1
func NewTempKeyGenerator() *TempKeyGenerator {
	return &TempKeyGenerator{next: -1}
}

// Generate returns the next temporary value for the property's data type
func (g *TempKeyGenerator) Generate(p *schema.Property) (any, error) {
	dt := p.DataType()
	switch {
	case dt.IsInteger():
		g.mu.Lock()
		defer g.mu.Unlock()
		v := g.next
		g.next--
		return v, nil
	case dt == schema.TypeGuid, dt == schema.TypeString:
		return uuid.NewString(), nil
	case dt == schema.TypeMongoObjectId:
		id := uuid.New()
		return hex.EncodeToString(id[:12]), nil
	default:
		return nil, &schema.ConfigurationError{
			Type:     p.ParentType().QualifiedName(),
			Property: p.Name(),
			Message:  fmt.Sprintf("cannot generate a temporary key for data type %s", dt),
		}
	}
}

// EntityKey identifies an entity by its root type and key values
type EntityKey struct {
	TypeName string
	Values   []any
}

// String returns Type(v1,v2)
func (k EntityKey) String() string {
	parts := make([]string, len(k.Values))
	for i, v := range k.Values {
		parts[i] = fmt.Sprint(v)
	}
	return k.TypeName + "(" + strings.Join(parts, ",") + ")"
}

// Equal compares type and values
func (k EntityKey) Equal(other EntityKey) bool {
	if k.TypeName != other.TypeName || len(k.Values) != len(other.Values) {
		return false
	}
	for i := range k.Values {
		if !reflect.DeepEqual(k.Values[i], other.Values[i]) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether any key value is still unset
func (k EntityKey) IsEmpty() bool {
	if len(k.Values) == 0 {
		return true
	}
	for _, v := range k.Values {
		if isZeroKey(v) {
			return true
		}
	}
	return false
}

func isZeroKey(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.IsZero()
}

// rootType walks to the top of the inheritance chain; keys are unique per root
func rootType(t *schema.StructuralType) *schema.StructuralType {
	for t.BaseType() != nil {
		t = t.BaseType()
	}
	return t
}

// autoKeyType returns the key generation strategy, inherited from a base type when t leaves it unset
func autoKeyType(t *schema.StructuralType) schema.AutoGeneratedKeyType {
	for cur := t; cur != nil; cur = cur.BaseType() {
		if k := cur.AutoGeneratedKeyType(); k != schema.KeyNone {
			return k
		}
	}
	return schema.KeyNone
}
