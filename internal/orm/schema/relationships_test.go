package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DependencyOrder(t *testing.T) {
	b := NewBuilder(DefaultNaming())
	// Declared in reverse dependency order on purpose
	b.Entity("Equipment").PrimaryKey("id", TypeInt).ManyToOne("model", "Model")
	b.Entity("Model").PrimaryKey("id", TypeInt).ManyToOne("manufacturer", "Manufacturer")
	b.Entity("Manufacturer").PrimaryKey("id", TypeInt)

	reg, err := b.Build()
	require.NoError(t, err)

	order, err := reg.DependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"Manufacturer", "Model", "Equipment"}, order)
}

func TestRegistry_DependencyOrderSelfReference(t *testing.T) {
	b := NewBuilder(DefaultNaming())
	b.Entity("Category").PrimaryKey("id", TypeInt).ManyToOne("parent", "Category", Optional())

	reg, err := b.Build()
	require.NoError(t, err)

	order, err := reg.DependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"Category"}, order)
}

func TestRelationshipGraph_Cycles(t *testing.T) {
	b := NewBuilder(DefaultNaming())
	b.Entity("A").PrimaryKey("id", TypeInt).ManyToOne("b", "B")
	b.Entity("B").PrimaryKey("id", TypeInt).ManyToOne("a", "A")
	b.Entity("C").PrimaryKey("id", TypeInt)

	reg, err := b.Build()
	require.NoError(t, err)

	graph := NewRelationshipGraph(reg)
	cycles := graph.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"A", "B"}, cycles[0])

	_, err = reg.DependencyOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cycle 1: A -> B -> A")

	assert.Equal(t, []string{"B"}, graph.Dependencies("A"))
	assert.Empty(t, graph.Dependencies("C"))
}
