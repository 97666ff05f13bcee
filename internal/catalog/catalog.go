// Package catalog declares the equipment catalog used by the demo command and
// the end-to-end tests: equipment belongs to a model, a model belongs to a
// manufacturer.
package catalog

import (
	"context"

	"github.com/conduit-lang/relquery/internal/orm"
	"github.com/conduit-lang/relquery/internal/orm/query"
	"github.com/conduit-lang/relquery/internal/orm/schema"
)

// Entity names
const (
	Manufacturer = "Manufacturer"
	Model        = "Model"
	Equipment    = "Equipment"
)

// Registry declares the catalog entities
func Registry(naming schema.NamingStrategy) (*schema.Registry, error) {
	b := schema.NewBuilder(naming)

	b.Entity(Manufacturer).
		PrimaryKey("id", schema.TypeInt).
		Field("name", schema.TypeString).
		OneToMany("models", Model, schema.WithForeignKey(naming.JoinColumnName("manufacturer")))

	b.Entity(Model).
		PrimaryKey("id", schema.TypeInt).
		Field("modelName", schema.TypeString).
		ManyToOne("manufacturer", Manufacturer)

	b.Entity(Equipment).
		PrimaryKey("id", schema.TypeInt).
		Field("displayName", schema.TypeString).
		ManyToOne("model", Model)

	return b.Build()
}

// Seed creates one manufacturer, one model and one piece of equipment, and
// flushes them
func Seed(ctx context.Context, sess *orm.Session) error {
	manufacturer, err := sess.Create(Manufacturer, map[string]interface{}{"name": "Manufacturer"})
	if err != nil {
		return err
	}
	model, err := sess.Create(Model, map[string]interface{}{"modelName": "Model", "manufacturer": manufacturer})
	if err != nil {
		return err
	}
	if _, err := sess.Create(Equipment, map[string]interface{}{"displayName": "Equipment", "model": model}); err != nil {
		return err
	}
	if err := sess.Flush(ctx); err != nil {
		return err
	}
	sess.Clear()
	return nil
}

// Scenario is one find against Equipment
type Scenario struct {
	Name    string
	Options query.FindOptions
	// Populated lists the relation paths expected to be loaded
	Populated []string
}

// ByManufacturerName orders equipment by the name of its model's manufacturer
func ByManufacturerName() []query.OrderMap {
	return []query.OrderMap{{"model": query.OrderMap{"manufacturer": query.OrderMap{"name": query.Asc}}}}
}

// Scenarios returns the four equipment finds: plain, ordered through two
// relations, ordered with the full path populated, and ordered with only the
// first hop populated
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "find all"},
		{Name: "order by manufacturer name", Options: query.FindOptions{OrderBy: ByManufacturerName()}},
		{
			Name:      "populate model.manufacturer, order by manufacturer name",
			Options:   query.FindOptions{Populate: []string{"model.manufacturer"}, OrderBy: ByManufacturerName()},
			Populated: []string{"model", "model.manufacturer"},
		},
		{
			Name:      "populate model, order by manufacturer name",
			Options:   query.FindOptions{Populate: []string{"model"}, OrderBy: ByManufacturerName()},
			Populated: []string{"model"},
		},
	}
}
