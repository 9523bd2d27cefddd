package entity

import (
	"context"
	"testing"
	"time"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEntity_EmptyStore(t *testing.T) {
	m := NewManager()

	_, err := m.CreateEntity("Person", nil)
	require.Error(t, err)
	assert.True(t, schema.IsMetadataNotFound(err))
	assert.Contains(t, err.Error(), "fetchMetadata")
}

func TestCreateEntity_InitializesProperties(t *testing.T) {
	m := newManager(t, personYAML)

	person, err := m.CreateEntity("Person", map[string]any{"displayName": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, Added, person.State())
	assert.Same(t, m, person.Manager())

	name, err := person.GetProperty("displayName")
	require.NoError(t, err)
	assert.Equal(t, "Ann", name)

	id, err := person.GetProperty("_id")
	require.NoError(t, err)
	assert.Len(t, id, 24, "temporary object ids are 12 bytes of hex")

	addresses, err := person.GetProperty("addresses")
	require.NoError(t, err)
	require.IsType(t, &Collection{}, addresses)
	assert.Equal(t, 0, addresses.(*Collection).Len())

	nicknames, err := person.GetProperty("nicknames")
	require.NoError(t, err)
	require.NoError(t, nicknames.(*Collection).Push("annie", "a"))
	assert.Equal(t, []any{"annie", "a"}, nicknames.(*Collection).Items())
}

func TestCreateEntity_Errors(t *testing.T) {
	m := newManager(t, northwindYAML)

	_, err := m.CreateEntity("Location", nil)
	assert.True(t, schema.IsConfigurationError(err), "complex types are not entities")

	_, err = m.CreateEntity("ItemOfProduce", nil)
	assert.True(t, schema.IsConfigurationError(err), "abstract types cannot be created")

	_, err = m.CreateEntity("Order", map[string]any{"shippedVia": 3})
	assert.True(t, IsUnknownProperty(err))

	_, err = m.CreateEntity("Order", map[string]any{"freight": "cheap"})
	assert.True(t, IsInvalidValue(err))

	_, err = m.CreateEntity("Blob", nil)
	assert.True(t, schema.IsConfigurationError(err), "binary keys cannot be generated")

	_, err = m.CreateEntity("Order", map[string]any{"customer": "ALFKI"})
	assert.True(t, schema.IsInvalidOperation(err))

	assert.Empty(t, must(m.GetEntities()))
}

func TestCreateEntity_TemporaryKeys(t *testing.T) {
	m := newManager(t, northwindYAML)

	first, err := m.CreateEntity("Order", nil)
	require.NoError(t, err)
	second, err := m.CreateEntity("Orders", nil)
	require.NoError(t, err)

	assert.Equal(t, []any{int64(-1)}, first.Key().Values)
	assert.Equal(t, []any{int64(-2)}, second.Key().Values)
	assert.Equal(t, "Order:#Northwind.Models(-1)", first.Key().String())

	apple, err := m.CreateEntity("Apple", map[string]any{"variety": "Fuji"})
	require.NoError(t, err)
	assert.Equal(t, "ItemOfProduce:#Northwind.Models", apple.Key().TypeName)
	assert.False(t, apple.Key().IsEmpty())

	explicit, err := m.CreateEntity("Order", map[string]any{"orderID": 10248})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(10248)}, explicit.Key().Values)

	region, err := m.CreateEntity("Region", nil)
	require.NoError(t, err)
	assert.True(t, region.Key().IsEmpty(), "types without generated keys keep their zero key")
}

func TestEntity_SetPropertyTracksChanges(t *testing.T) {
	m := newManager(t, northwindYAML)

	order, err := m.CreateEntity("Order", map[string]any{"orderID": 1, "shipName": "Alfreds", "freight": 10}, Unchanged)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, order.State())
	assert.False(t, m.HasChanges())

	require.NoError(t, order.SetProperty("ShipName", "Alfreds Futterkiste"))
	assert.Equal(t, Modified, order.State())
	assert.True(t, m.HasChanges())
	assert.Equal(t, map[string]any{"shipName": "Alfreds"}, order.OriginalValues())

	freight, err := order.GetProperty("freight")
	require.NoError(t, err)
	assert.Equal(t, float64(10), freight)

	order.RejectChanges()
	assert.Equal(t, Unchanged, order.State())
	name, _ := order.GetProperty("shipName")
	assert.Equal(t, "Alfreds", name)

	when := time.Date(1996, 7, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, order.SetProperty("orderDate", when.Format(time.RFC3339)))
	got, _ := order.GetProperty("orderDate")
	assert.True(t, when.Equal(got.(time.Time)))

	order.AcceptChanges()
	assert.Equal(t, Unchanged, order.State())
	assert.Empty(t, order.OriginalValues())
	assert.False(t, order.HasChanges())
}

func TestEntity_ComplexPropertyChanges(t *testing.T) {
	m := newManager(t, northwindYAML)

	order, err := m.CreateEntity("Order", map[string]any{
		"orderID": 1,
		"shipTo":  map[string]any{"city": "Berlin", "country": "Germany"},
	}, Unchanged)
	require.NoError(t, err)

	v, err := order.GetProperty("shipTo")
	require.NoError(t, err)
	shipTo := v.(*ComplexObject)
	assert.Equal(t, "Location", shipTo.ComplexType().ShortName())
	assert.Same(t, order, shipTo.Owner())

	require.NoError(t, shipTo.SetProperty("city", "Hamburg"))
	assert.Equal(t, Modified, order.State())
	assert.Equal(t, map[string]any{"shipTo": map[string]any{"city": "Berlin"}}, order.OriginalValues())

	order.RejectChanges()
	city, _ := shipTo.GetProperty("city")
	assert.Equal(t, "Berlin", city)

	assert.True(t, IsInvalidValue(order.SetProperty("shipTo", nil)))
	_, err = shipTo.GetProperty("zip")
	assert.True(t, IsUnknownProperty(err))
}

func TestEntity_SetDeleted(t *testing.T) {
	m := newManager(t, northwindYAML)

	added, err := m.CreateEntity("Region", map[string]any{"regionID": 1})
	require.NoError(t, err)
	require.NoError(t, added.SetDeleted())
	assert.Equal(t, Detached, added.State(), "deleting an added entity detaches it")
	assert.ErrorIs(t, added.SetDeleted(), ErrNotAttached)

	existing, err := m.CreateEntity("Region", map[string]any{"regionID": 2}, Unchanged)
	require.NoError(t, err)
	require.NoError(t, existing.SetDeleted())
	assert.Equal(t, Deleted, existing.State())

	changes, err := m.GetChanges()
	require.NoError(t, err)
	assert.Equal(t, []*Entity{existing}, changes)

	existing.RejectChanges()
	assert.Equal(t, Unchanged, existing.State())

	require.NoError(t, existing.SetDeleted())
	existing.AcceptChanges()
	assert.Equal(t, Detached, existing.State())
	assert.Empty(t, must(m.GetEntities("Region")))
}

func TestManager_AttachAndLookup(t *testing.T) {
	m := newManager(t, northwindYAML)

	region, err := m.CreateEntity("Region", map[string]any{"regionID": 1, "description": "Eastern"}, Detached)
	require.NoError(t, err)
	assert.Equal(t, Detached, region.State())
	assert.Nil(t, region.Manager())

	require.NoError(t, m.AttachEntity(region, Unchanged))
	found, err := m.GetEntityByKey("Region", 1)
	require.NoError(t, err)
	assert.Same(t, region, found)

	duplicate, err := m.CreateEntity("Region", map[string]any{"regionID": 1}, Detached)
	require.NoError(t, err)
	assert.ErrorIs(t, m.AttachEntity(duplicate, Unchanged), ErrDuplicateKey)

	missing, err := m.GetEntityByKey("Region", 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = m.GetEntityByKey("Region", 1, 2)
	assert.True(t, schema.IsInvalidOperation(err))

	assert.True(t, m.DetachEntity(region))
	assert.False(t, m.DetachEntity(region))
	assert.Equal(t, Detached, region.State())

	other := newManager(t, northwindYAML)
	foreign, err := other.CreateEntity("Region", map[string]any{"regionID": 5})
	require.NoError(t, err)
	assert.True(t, schema.IsInvalidOperation(m.AttachEntity(foreign, Unchanged)))
}

func TestManager_GetEntitiesBySubtype(t *testing.T) {
	m := newManager(t, northwindYAML)

	apple, err := m.CreateEntity("Apple", nil)
	require.NoError(t, err)
	_, err = m.CreateEntity("Order", nil)
	require.NoError(t, err)

	produce, err := m.GetEntities("ItemOfProduce")
	require.NoError(t, err)
	assert.Equal(t, []*Entity{apple}, produce)

	all, err := m.GetEntities()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = m.GetEntities("Nope")
	assert.True(t, schema.IsMetadataNotFound(err))

	byKey, err := m.GetEntityByKey("ItemOfProduce", apple.Key().Values[0])
	require.NoError(t, err)
	assert.Same(t, apple, byKey)

	m.AcceptChanges()
	assert.False(t, m.HasChanges())

	m.Clear()
	assert.Empty(t, must(m.GetEntities()))
}

func TestManager_FetchMetadata(t *testing.T) {
	doc, err := schema.DecodeDocument([]byte(personYAML))
	require.NoError(t, err)

	store := schema.NewMetadataStore(schema.WithAdapter(staticAdapter{doc: doc}))
	m := NewManager(WithMetadataStore(store), WithServiceName("breeze/myservice"))
	assert.Equal(t, "breeze/myservice/", m.ServiceName())

	_, err = m.CreateEntity("Person", nil)
	require.Error(t, err)

	require.NoError(t, m.FetchMetadata(context.Background()))
	assert.True(t, store.HasMetadataFor("breeze/myservice"))

	_, err = m.CreateEntity("Person", map[string]any{"displayName": "Ann"})
	require.NoError(t, err)
}

type staticAdapter struct {
	doc *schema.Document
}

func (a staticAdapter) FetchMetadata(context.Context, *schema.MetadataStore, *schema.DataService) (*schema.Document, error) {
	return a.doc, nil
}

func TestTempKeyGenerator(t *testing.T) {
	m := newManager(t, northwindYAML)
	g := NewTempKeyGenerator()

	orderID := mustType(t, m, "Order").GetProperty("orderID")
	v1, err := g.Generate(orderID)
	require.NoError(t, err)
	v2, err := g.Generate(orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v1)
	assert.Equal(t, int64(-2), v2)

	id, err := g.Generate(mustType(t, m, "Apple").GetProperty("id"))
	require.NoError(t, err)
	assert.Len(t, id, 36)

	_, err = g.Generate(mustType(t, m, "Blob").GetProperty("hash"))
	assert.True(t, schema.IsConfigurationError(err))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
