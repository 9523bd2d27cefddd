package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphOf(t *testing.T, bases map[string]string) *InheritanceGraph {
	t.Helper()
	types := make(map[string]*StructuralType, len(bases))
	for name, base := range bases {
		st, err := NewStructuralType(TypeSpec{ShortName: name, BaseTypeName: base})
		require.NoError(t, err)
		types[name] = st
	}
	return NewInheritanceGraph(types, func(st *StructuralType) string { return st.BaseTypeName() })
}

func TestInheritanceGraph_TopologicalSort(t *testing.T) {
	graph := graphOf(t, map[string]string{
		"Apple":         "Fruit",
		"Fruit":         "ItemOfProduce",
		"ItemOfProduce": "",
		"Vegetable":     "ItemOfProduce",
		"Loose":         "Unknown",
	})

	order, err := graph.TopologicalSort()
	require.NoError(t, err)
	position := make(map[string]int)
	for i, name := range order {
		position[name] = i
	}
	assert.Len(t, order, 5)
	assert.Less(t, position["ItemOfProduce"], position["Fruit"])
	assert.Less(t, position["Fruit"], position["Apple"])
	assert.Less(t, position["ItemOfProduce"], position["Vegetable"])

	assert.Equal(t, []string{"Fruit", "Vegetable"}, graph.GetSubtypes("ItemOfProduce"))
	assert.Equal(t, 2, graph.Depth("Apple"))
	assert.Equal(t, 0, graph.Depth("Loose"))
	assert.Empty(t, graph.DetectCycles())
}

func TestInheritanceGraph_Cycles(t *testing.T) {
	graph := graphOf(t, map[string]string{
		"A": "B",
		"B": "A",
		"C": "C",
	})

	cycles := graph.DetectCycles()
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"A", "B"}, cycles[0])
	assert.Equal(t, []string{"C"}, cycles[1])

	_, err := graph.TopologicalSort()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInheritanceCycle)
	assert.Contains(t, err.Error(), "A -> B -> A")
}
