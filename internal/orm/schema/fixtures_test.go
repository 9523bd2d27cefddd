package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// produceDocument declares Apple -> Fruit -> ItemOfProduce with the derived
// types listed before their bases.
func produceDocument() *Document {
	return &Document{
		MetadataVersion:  MetadataVersion,
		NamingConvention: "camelCase",
		StructuralTypes: []TypeSpec{
			{
				ShortName:    "Apple",
				Namespace:    "Models.Produce",
				BaseTypeName: "Fruit:#Models.Produce",
				DataProperties: []DataPropertySpec{
					{NameOnServer: "Variety", DataType: "String"},
				},
				Custom: Custom{"foo": 7, "bar": "Apple", "fooBar": map[string]any{"x": 8, "y": 9, "z": true}},
			},
			{
				ShortName:    "Fruit",
				Namespace:    "Models.Produce",
				BaseTypeName: "ItemOfProduce:#Models.Produce",
				IsAbstract:   true,
				DataProperties: []DataPropertySpec{
					{NameOnServer: "Name", DataType: "String", IsNullable: boolPtr(false)},
					{NameOnServer: "USDACategory", DataType: "String"},
				},
			},
			{
				ShortName:            "ItemOfProduce",
				Namespace:            "Models.Produce",
				AutoGeneratedKeyType: "KeyGenerator",
				DataProperties: []DataPropertySpec{
					{
						NameOnServer: "ID",
						DataType:     "Guid",
						IsPartOfKey:  true,
						Custom:       Custom{"fooDp": 7, "barDp": "ID"},
					},
					{NameOnServer: "QuantityPerUnit", DataType: "String"},
					{NameOnServer: "UnitPrice", DataType: "Decimal"},
				},
			},
		},
		ResourceEntityTypeMap: map[string]string{
			"Apples":         "Apple:#Models.Produce",
			"Fruits":         "Fruit:#Models.Produce",
			"ItemsOfProduce": "ItemOfProduce:#Models.Produce",
		},
	}
}

// personDocument declares an entity with a non-scalar complex property
func personDocument() *Document {
	return &Document{
		MetadataVersion:  MetadataVersion,
		NamingConvention: "camelCase",
		DataServices: []DataServiceSpec{
			{ServiceName: "breeze/myservice/", HasServerMetadata: boolPtr(true), AdapterName: "mongo"},
		},
		StructuralTypes: []TypeSpec{
			{
				ShortName:            "Person",
				Namespace:            "mynamespace",
				AutoGeneratedKeyType: "Identity",
				DefaultResourceName:  "Person",
				DataProperties: []DataPropertySpec{
					{Name: "_id", DataType: "MongoObjectId", IsPartOfKey: true},
					{Name: "displayName", DataType: "String", IsNullable: boolPtr(false)},
					{Name: "addresses", ComplexTypeName: "Address:#mynamespace", IsScalar: boolPtr(false)},
				},
			},
			{
				ShortName:     "Address",
				Namespace:     "mynamespace",
				IsComplexType: true,
				DataProperties: []DataPropertySpec{
					{Name: "street"},
					{Name: "city", IsNullable: boolPtr(false)},
				},
			},
		},
	}
}

func newProduceStore(t *testing.T) *MetadataStore {
	t.Helper()
	store := NewMetadataStore(WithNamingConvention(CamelCaseConvention))
	require.NoError(t, store.ImportMetadata(produceDocument(), false))
	return store
}
