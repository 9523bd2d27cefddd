package entity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"github.com/google/uuid"
)

// coerceValue converts v into the representation stored for a primitive data property:
// int64 for integers, float64 for floating point, time.Time, time.Duration and []byte.
func coerceValue(p *schema.Property, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	owner := p.ParentType().QualifiedName()
	dt := p.DataType()

	switch {
	case dt.IsInteger():
		n, ok := toInt64(v)
		if !ok {
			return nil, invalidValue(owner, p.Name(), "expected an integer, got %v (%T)", v, v)
		}
		if lo, hi := integerRange(dt); n < lo || n > hi {
			return nil, invalidValue(owner, p.Name(), "%d is out of range for %s", n, dt)
		}
		return n, nil
	case dt.IsNumeric():
		f, ok := toFloat64(v)
		if !ok {
			return nil, invalidValue(owner, p.Name(), "expected a number, got %T", v)
		}
		return f, nil
	}

	switch dt {
	case schema.TypeString, schema.TypeMongoObjectId:
		s, ok := v.(string)
		if !ok {
			return nil, invalidValue(owner, p.Name(), "expected a string, got %T", v)
		}
		return s, nil
	case schema.TypeGuid:
		switch g := v.(type) {
		case uuid.UUID:
			return g.String(), nil
		case string:
			if _, err := uuid.Parse(g); err != nil {
				return nil, invalidValue(owner, p.Name(), "%v", err)
			}
			return g, nil
		}
		return nil, invalidValue(owner, p.Name(), "expected a guid, got %T", v)
	case schema.TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, invalidValue(owner, p.Name(), "expected a boolean, got %T", v)
		}
		return b, nil
	case schema.TypeDateTime, schema.TypeDateTimeOffset:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, invalidValue(owner, p.Name(), "%v", err)
			}
			return parsed, nil
		}
		return nil, invalidValue(owner, p.Name(), "expected a time, got %T", v)
	case schema.TypeTime:
		switch d := v.(type) {
		case time.Duration:
			return d, nil
		case string:
			parsed, err := time.ParseDuration(d)
			if err != nil {
				return nil, invalidValue(owner, p.Name(), "%v", err)
			}
			return parsed, nil
		}
		return nil, invalidValue(owner, p.Name(), "expected a duration, got %T", v)
	case schema.TypeBinary:
		switch b := v.(type) {
		case []byte:
			return append([]byte(nil), b...), nil
		case string:
			decoded, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				return nil, invalidValue(owner, p.Name(), "%v", err)
			}
			return decoded, nil
		}
		return nil, invalidValue(owner, p.Name(), "expected binary data, got %T", v)
	default:
		return schema.DeepCopyValue(v), nil
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// integerRange returns the bounds of an integer data type
func integerRange(dt schema.DataType) (int64, int64) {
	switch dt {
	case schema.TypeByte:
		return 0, math.MaxUint8
	case schema.TypeInt16:
		return math.MinInt16, math.MaxInt16
	case schema.TypeInt32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// exportValue converts a stored value into its JSON form
func exportValue(v any) any {
	switch t := v.(type) {
	case *ComplexObject:
		return t.exportValues()
	case *Collection:
		items := t.Items()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = exportValue(item)
		}
		return out
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case time.Duration:
		return t.String()
	default:
		return v
	}
}

// asValueMap accepts a complex value given as a map or as a ComplexObject
func asValueMap(v any) (map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case *ComplexObject:
		return t.Values(), nil
	default:
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
}
