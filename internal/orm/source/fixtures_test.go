package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
)

const regionJSON = `{
  "metadataVersion": "1.0.5",
  "namingConvention": "camelCase",
  "structuralTypes": [
    {
      "shortName": "Region",
      "namespace": "Northwind",
      "dataProperties": [
        {"nameOnServer": "RegionID", "dataType": "Int32", "isPartOfKey": true},
        {"nameOnServer": "RegionDescription", "dataType": "String", "maxLength": 50}
      ]
    }
  ],
  "resourceEntityTypeMap": {"Regions": "Region:#Northwind"}
}`

const territoryYAML = `
metadataVersion: "1.0.5"
namingConvention: camelCase
structuralTypes:
  - shortName: Territory
    namespace: Northwind
    dataProperties:
      - nameOnServer: TerritoryID
        dataType: String
        isPartOfKey: true
      - nameOnServer: TerritoryDescription
        dataType: String
`

func decode(t *testing.T, data string) *schema.Document {
	t.Helper()
	doc, err := schema.DecodeDocument([]byte(data))
	require.NoError(t, err)
	return doc
}

// fetchInto fetches serviceName through a fresh store using adapter
func fetchInto(t *testing.T, adapter schema.Adapter, serviceName string) (*schema.MetadataStore, error) {
	t.Helper()
	store := schema.NewMetadataStore(schema.WithAdapter(adapter))
	return store, store.FetchMetadata(context.Background(), serviceName)
}
