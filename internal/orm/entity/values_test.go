package entity

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const measureYAML = `
namingConvention: camelCase
structuralTypes:
  - shortName: Measure
    namespace: Lab
    dataProperties:
      - nameOnServer: Id
        dataType: Int32
        isPartOfKey: true
      - nameOnServer: Tiny
        dataType: Byte
      - nameOnServer: Small
        dataType: Int16
      - nameOnServer: Medium
        dataType: Int32
      - nameOnServer: Large
        dataType: Int64
`

func TestSetProperty_IntegerRanges(t *testing.T) {
	m := newManager(t, measureYAML)
	e, err := m.CreateEntity("Measure", map[string]any{"id": 1}, Unchanged)
	require.NoError(t, err)

	tests := []struct {
		property string
		value    any
		want     int64
		wantErr  bool
	}{
		{"tiny", 255, 255, false},
		{"tiny", 256, 0, true},
		{"tiny", -1, 0, true},
		{"small", int64(math.MinInt16), math.MinInt16, false},
		{"small", 100000, 0, true},
		{"medium", float64(math.MaxInt32), math.MaxInt32, false},
		{"medium", int64(math.MaxInt32) + 1, 0, true},
		{"large", json.Number("9223372036854775807"), math.MaxInt64, false},
		{"large", 1e19, 0, true},
		{"large", -1e19, 0, true},
		{"large", uint64(math.MaxUint64), 0, true},
		{"large", math.Inf(1), 0, true},
		{"large", 2.5, 0, true},
	}

	for _, tt := range tests {
		err := e.SetProperty(tt.property, tt.value)
		if tt.wantErr {
			assert.True(t, IsInvalidValue(err), "%s = %v: %v", tt.property, tt.value, err)
			continue
		}
		require.NoError(t, err, "%s = %v", tt.property, tt.value)
		got, err := e.GetProperty(tt.property)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s = %v", tt.property, tt.value)
	}
}
