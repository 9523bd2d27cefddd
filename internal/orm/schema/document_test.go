package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const northwindYAML = `
metadataVersion: 1.0.5
namingConvention: camelCase
localQueryComparisonOptions: caseInsensitiveSQL
dataServices:
  - serviceName: breeze/Northwind
structuralTypes:
  - shortName: Order
    namespace: Northwind.Models
    autoGeneratedKeyType: Identity
    defaultResourceName: Orders
    dataProperties:
      - nameOnServer: OrderID
        dataType: Int32
        isPartOfKey: true
      - nameOnServer: ShipTo
        complexTypeName: Location:#Northwind.Models
    custom:
      audit:
        enabled: true
        fields: [ShipTo]
  - shortName: Location
    namespace: Northwind.Models
    isComplexType: true
    dataProperties:
      - nameOnServer: City
        maxLength: 40
`

func TestDecodeDocument_YAML(t *testing.T) {
	doc, err := DecodeDocument([]byte(northwindYAML))
	require.NoError(t, err)
	assert.Equal(t, "camelCase", doc.NamingConvention)
	require.Len(t, doc.StructuralTypes, 2)
	assert.Equal(t, map[string]any{"enabled": true, "fields": []any{"ShipTo"}}, doc.StructuralTypes[0].Custom["audit"])

	store := NewMetadataStore()
	require.NoError(t, store.ImportMetadata(doc, false))
	assert.Equal(t, "caseInsensitiveSQL", store.LocalQueryComparisonOptions())
	assert.True(t, store.HasMetadataFor("breeze/Northwind/"))

	order := mustType(t, store, "Orders")
	shipTo := order.GetProperty("shipTo")
	require.NotNil(t, shipTo)
	assert.Equal(t, "Location", shipTo.ComplexType().ShortName())
	n, ok := shipTo.ComplexType().GetProperty("city").MaxLength()
	assert.True(t, ok)
	assert.Equal(t, 40, n)
	assert.Equal(t, KeyIdentity, order.AutoGeneratedKeyType())
}

func TestDecodeDocument_Errors(t *testing.T) {
	_, err := DecodeDocument([]byte("   "))
	assert.True(t, IsConfigurationError(err))

	_, err = DecodeDocument([]byte(`{"structuralTypes": [`))
	assert.Error(t, err)

	_, err = DecodeDocument([]byte("structuralTypes: [unclosed"))
	assert.Error(t, err)
}

func TestExportMetadataYAML_RoundTrip(t *testing.T) {
	store := NewMetadataStore()
	require.NoError(t, store.ImportMetadataJSON([]byte(northwindYAML), false))

	data, err := store.ExportMetadataYAML()
	require.NoError(t, err)

	restored := NewMetadataStore()
	require.NoError(t, restored.ImportMetadataJSON(data, false))
	assert.Equal(t, store.ExportMetadata(), restored.ExportMetadata())
}

func TestCustom_MergeAndCopy(t *testing.T) {
	base := Custom{"a": 1, "nested": map[string]any{"x": 1, "y": 2}, "list": []any{1, 2}}
	merged := base.Merge(Custom{"b": 2, "nested": map[string]any{"y": 3}})

	assert.Equal(t, Custom{
		"a":      1,
		"b":      2,
		"nested": map[string]any{"x": 1, "y": 3},
		"list":   []any{1, 2},
	}, merged)
	assert.Equal(t, 2, base["nested"].(map[string]any)["y"], "receiver is not modified")

	copied := base.Copy()
	copied["list"].([]any)[0] = 99
	assert.Equal(t, 1, base["list"].([]any)[0])

	assert.Nil(t, Custom(nil).Copy())
	assert.Equal(t, Custom{"k": "v"}, Custom(nil).Merge(Custom{"k": "v"}))
}

func TestDeepCopyValue_NormalizesMaps(t *testing.T) {
	v := DeepCopyValue(map[any]any{"a": map[any]any{1: "one"}})
	assert.Equal(t, map[string]any{"a": map[string]any{"1": "one"}}, v)

	b := []byte("abc")
	c := DeepCopyValue(b).([]byte)
	c[0] = 'z'
	assert.Equal(t, "abc", string(b))
}

func TestNamingConventions(t *testing.T) {
	assert.Equal(t, "customerID", CamelCaseConvention.ServerToClient("CustomerID"))
	assert.Equal(t, "CustomerID", CamelCaseConvention.ClientToServer("customerID"))
	assert.Equal(t, "orderDate", SnakeCaseConvention.ServerToClient("order_date"))
	assert.Equal(t, "order_date", SnakeCaseConvention.ClientToServer("orderDate"))

	nc, err := LookupNamingConvention("")
	require.NoError(t, err)
	assert.Equal(t, "none", nc.Name)

	_, err = LookupNamingConvention("kebab")
	assert.True(t, IsConfigurationError(err))

	require.NoError(t, RegisterNamingConvention(NamingConvention{
		Name:           "upper",
		ServerToClient: func(s string) string { return s },
		ClientToServer: func(s string) string { return s },
	}))
	nc, err = LookupNamingConvention("upper")
	require.NoError(t, err)
	assert.Equal(t, "upper", nc.Name)
	assert.True(t, IsConfigurationError(RegisterNamingConvention(NamingConvention{Name: "broken"})))
}

func TestQualifiedNames(t *testing.T) {
	tests := []struct {
		input string
		short string
		ns    string
	}{
		{"Customer:#Northwind.Models", "Customer", "Northwind.Models"},
		{"Northwind.Models.Customer", "Customer", "Northwind.Models"},
		{"Customer", "Customer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			short, ns := ParseQualifiedName(tt.input)
			assert.Equal(t, tt.short, short)
			assert.Equal(t, tt.ns, ns)
		})
	}

	assert.Equal(t, "Customer", QualifyName("Customer", ""))
	assert.Equal(t, "Customer:#Northwind", NormalizeTypeName("Northwind.Customer"))
	assert.Equal(t, "api/x/", NormalizeServiceName("api/x"))
	assert.Equal(t, "api/x/", NormalizeServiceName(" api/x/ "))
	assert.Equal(t, "", NormalizeServiceName(""))
}

func TestDataTypes(t *testing.T) {
	for dt, name := range dataTypeNames {
		parsed, err := ParseDataType(name)
		require.NoError(t, err)
		assert.Equal(t, dt, parsed)
		assert.Equal(t, name, dt.String())
	}

	_, err := ParseDataType("Varchar")
	assert.True(t, IsConfigurationError(err))
	assert.True(t, TypeInt64.IsInteger())
	assert.True(t, TypeDecimal.IsNumeric())
	assert.False(t, TypeDecimal.IsInteger())
	assert.Equal(t, false, TypeBoolean.DefaultValue())
	assert.Nil(t, TypeGuid.DefaultValue())

	kt, err := ParseAutoGeneratedKeyType("")
	require.NoError(t, err)
	assert.Equal(t, KeyNone, kt)
	assert.Equal(t, "KeyGenerator", KeyGenerator.String())
}
