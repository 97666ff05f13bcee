package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relquery/internal/orm/schema"
)

// testRegistry declares:
//
//	Manufacturer 1..* Model 1..* Equipment
//	Equipment *..0..1 Person (owner) *..1 Manufacturer (company)
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
	b.Entity("Person").
		PrimaryKey("id", schema.TypeInt).
		Field("name", schema.TypeString).
		ManyToOne("company", "Manufacturer")
	b.Entity("Equipment").
		PrimaryKey("id", schema.TypeInt).
		Field("displayName", schema.TypeString).
		ManyToOne("model", "Model").
		ManyToOne("owner", "Person", schema.Optional())

	reg, err := b.Build()
	require.NoError(t, err)
	return reg
}

func newTestResolver(t *testing.T) (*Resolver, *schema.EntityMetadata) {
	t.Helper()
	reg := testRegistry(t)
	return NewResolver(reg), reg.MustGet("Equipment")
}

func mustSpec(t *testing.T, r *Resolver, root *schema.EntityMetadata, filter Filter, opts FindOptions) QuerySpec {
	t.Helper()
	spec, err := r.Spec(root, filter, opts)
	require.NoError(t, err)
	return spec
}

func mustPlan(t *testing.T, spec QuerySpec) *JoinPlan {
	t.Helper()
	plan, err := Plan(spec)
	require.NoError(t, err)
	return plan
}

func intPtr(i int) *int {
	return &i
}
