package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relquery/internal/orm/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	b := schema.NewBuilder(schema.DefaultNaming())
	b.Entity("Manufacturer").
		PrimaryKey("id", schema.TypeInt).
		Field("name", schema.TypeString).
		OneToMany("models", "Model", schema.WithForeignKey("manufacturer_id"))
	b.Entity("Model").
		PrimaryKey("id", schema.TypeInt).
		Field("modelName", schema.TypeString).
		ManyToOne("manufacturer", "Manufacturer")

	reg, err := b.Build()
	require.NoError(t, err)
	return reg
}

func TestEntity_Values(t *testing.T) {
	reg := testRegistry(t)
	m := New(reg.MustGet("Manufacturer"))

	assert.Nil(t, m.ID())
	require.NoError(t, m.Set("name", "ACME"))
	require.NoError(t, m.Set("id", int64(3)))
	assert.Equal(t, int64(3), m.ID())

	v, ok := m.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "ACME", v)

	err := m.Set("title", "x")
	assert.ErrorIs(t, err, ErrUnknownField)

	values := m.Values()
	values["name"] = "changed"
	v, _ = m.Get("name")
	assert.Equal(t, "ACME", v, "Values returns a copy")

	assert.Equal(t, "Manufacturer{id=3 name=ACME}", m.String())
}

func TestEntity_References(t *testing.T) {
	reg := testRegistry(t)
	model := New(reg.MustGet("Model"))

	assert.False(t, model.IsPopulated("manufacturer"))
	_, ok := model.Reference("manufacturer")
	assert.False(t, ok)

	require.NoError(t, model.SetReference("manufacturer", int64(7)))
	ref, ok := model.Reference("manufacturer")
	assert.True(t, ok)
	assert.Equal(t, int64(7), ref)
	assert.False(t, model.IsPopulated("manufacturer"))

	m := New(reg.MustGet("Manufacturer"))
	require.NoError(t, model.SetRelated("manufacturer", m))
	assert.True(t, model.IsPopulated("manufacturer"))

	// Unsaved owners take over the reference once they get an id
	m.SetID(int64(9))
	ref, _ = model.Reference("manufacturer")
	assert.Equal(t, int64(9), ref)

	related, ok := model.Related("manufacturer")
	assert.True(t, ok)
	assert.Same(t, m, related)

	assert.ErrorIs(t, model.SetRelated("maker", m), ErrUnknownRelation)
	assert.ErrorIs(t, model.SetReference("modelName", 1), ErrUnknownRelation)
}

func TestEntity_RelatedNil(t *testing.T) {
	reg := testRegistry(t)
	model := New(reg.MustGet("Model"))

	require.NoError(t, model.SetRelated("manufacturer", nil))
	related, ok := model.Related("manufacturer")
	assert.True(t, ok)
	assert.Nil(t, related)
	assert.True(t, model.IsPopulated("manufacturer"))
}

func TestEntity_Collection(t *testing.T) {
	reg := testRegistry(t)
	m := New(reg.MustGet("Manufacturer"))
	a := New(reg.MustGet("Model"))
	b := New(reg.MustGet("Model"))

	_, ok := m.Collection("models")
	assert.False(t, ok)

	require.NoError(t, m.InitCollection("models"))
	items, ok := m.Collection("models")
	assert.True(t, ok)
	assert.Empty(t, items)

	require.NoError(t, m.AddToCollection("models", a))
	require.NoError(t, m.AddToCollection("models", b))
	require.NoError(t, m.AddToCollection("models", a))

	items, _ = m.Collection("models")
	require.Len(t, items, 2)
	assert.Same(t, a, items[0])
	assert.Same(t, b, items[1])

	assert.ErrorIs(t, m.AddToCollection("name", a), ErrUnknownRelation)
	assert.ErrorIs(t, a.InitCollection("manufacturer"), ErrUnknownRelation)
}
