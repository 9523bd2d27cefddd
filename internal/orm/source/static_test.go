package source

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
)

func TestStaticAdapter_FetchesIntoStore(t *testing.T) {
	adapter := NewStaticAdapter()
	require.NoError(t, adapter.AddJSON("breeze/Northwind", []byte(regionJSON)))

	store, err := fetchInto(t, adapter, "breeze/Northwind/")
	require.NoError(t, err)

	region, err := store.GetEntityType("Region")
	require.NoError(t, err)
	assert.Equal(t, "Region:#Northwind", region.QualifiedName())
	assert.Equal(t, schema.FetchComplete, store.FetchState("breeze/Northwind"))
	assert.Equal(t, 1, adapter.Calls())
}

func TestStaticAdapter_ReturnsCopies(t *testing.T) {
	adapter := NewStaticAdapter()
	require.NoError(t, adapter.Add("svc", decode(t, regionJSON)))
	ds := schema.NewDataService("svc")

	first, err := adapter.FetchMetadata(context.Background(), nil, ds)
	require.NoError(t, err)
	first.StructuralTypes[0].ShortName = "Mutated"

	second, err := adapter.FetchMetadata(context.Background(), nil, ds)
	require.NoError(t, err)
	assert.Equal(t, "Region", second.StructuralTypes[0].ShortName)
}

func TestStaticAdapter_Errors(t *testing.T) {
	adapter := NewStaticAdapter()

	_, err := fetchInto(t, adapter, "missing")
	require.Error(t, err)
	assert.True(t, schema.IsFetchFailed(err))
	assert.True(t, IsDocumentNotFound(err))

	require.NoError(t, adapter.AddJSON("svc", []byte(territoryYAML)))
	adapter.Remove("svc/")
	_, err = adapter.FetchMetadata(context.Background(), nil, schema.NewDataService("svc"))
	assert.True(t, IsDocumentNotFound(err))

	assert.True(t, schema.IsConfigurationError(adapter.Add("svc", nil)))
	assert.Error(t, adapter.AddJSON("svc", []byte("{not json")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = adapter.FetchMetadata(ctx, nil, schema.NewDataService("svc"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertDBError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"no rows", sql.ErrNoRows, IsDocumentNotFound},
		{"undefined table", &pgconn.PgError{Code: "42P01", Message: `relation "metadata_documents" does not exist`}, IsTableMissing},
		{"unique violation", &pgconn.PgError{Code: "23505", Detail: "Key exists"}, IsVersionConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(ConvertDBError(tt.err)))
		})
	}

	other := errors.New("connection reset")
	assert.Equal(t, other, ConvertDBError(other))
	assert.NoError(t, ConvertDBError(nil))
}

func TestFileBase(t *testing.T) {
	assert.Equal(t, "api_breeze_Northwind", fileBase("api/breeze/Northwind/"))
	assert.Equal(t, "Northwind", fileBase(" Northwind "))
	assert.Equal(t, "Northwind", lastSegment("api/breeze/Northwind/"))
}
