package entity

import (
	"testing"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"github.com/stretchr/testify/require"
)

const personYAML = `
metadataVersion: 1.0.5
namingConvention: camelCase
dataServices:
  - serviceName: breeze/myservice/
structuralTypes:
  - shortName: Person
    namespace: mynamespace
    autoGeneratedKeyType: Identity
    defaultResourceName: Person
    dataProperties:
      - name: _id
        dataType: MongoObjectId
        isPartOfKey: true
      - name: displayName
        isNullable: false
      - name: addresses
        complexTypeName: Address:#mynamespace
        isScalar: false
      - name: nicknames
        isScalar: false
  - shortName: Address
    namespace: mynamespace
    isComplexType: true
    dataProperties:
      - name: street
      - name: city
        isNullable: false
`

const northwindYAML = `
metadataVersion: 1.0.5
namingConvention: camelCase
structuralTypes:
  - shortName: Order
    namespace: Northwind.Models
    autoGeneratedKeyType: Identity
    defaultResourceName: Orders
    dataProperties:
      - nameOnServer: OrderID
        dataType: Int32
        isPartOfKey: true
      - nameOnServer: ShipName
        isNullable: false
      - nameOnServer: Freight
        dataType: Decimal
      - nameOnServer: OrderDate
        dataType: DateTime
      - nameOnServer: ShipTo
        complexTypeName: Location:#Northwind.Models
    navigationProperties:
      - nameOnServer: Customer
        entityTypeName: Customer:#Northwind.Models
  - shortName: Location
    namespace: Northwind.Models
    isComplexType: true
    dataProperties:
      - nameOnServer: City
      - nameOnServer: Country
  - shortName: ItemOfProduce
    namespace: Northwind.Models
    isAbstract: true
    autoGeneratedKeyType: KeyGenerator
    dataProperties:
      - nameOnServer: Id
        dataType: Guid
        isPartOfKey: true
  - shortName: Apple
    namespace: Northwind.Models
    baseTypeName: ItemOfProduce:#Northwind.Models
    dataProperties:
      - nameOnServer: Variety
  - shortName: Region
    namespace: Northwind.Models
    dataProperties:
      - nameOnServer: RegionID
        dataType: Int32
        isPartOfKey: true
      - nameOnServer: Description
  - shortName: Blob
    namespace: Northwind.Models
    autoGeneratedKeyType: KeyGenerator
    dataProperties:
      - nameOnServer: Hash
        dataType: Binary
        isPartOfKey: true
`

func newManager(t *testing.T, documents ...string) *Manager {
	t.Helper()
	m := NewManager()
	for _, doc := range documents {
		require.NoError(t, m.MetadataStore().ImportMetadataJSON([]byte(doc), false))
	}
	return m
}

func mustType(t *testing.T, m *Manager, name string) *schema.StructuralType {
	t.Helper()
	st, err := m.MetadataStore().GetEntityType(name)
	require.NoError(t, err)
	return st
}
