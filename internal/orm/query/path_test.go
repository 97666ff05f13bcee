package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	r, equipment := newTestResolver(t)

	path, err := r.Resolve(equipment, "model.manufacturer")
	require.NoError(t, err)

	assert.Equal(t, 2, path.Len())
	assert.Equal(t, []string{"model", "manufacturer"}, path.Names())
	assert.Equal(t, "model.manufacturer", path.String())
	assert.Equal(t, "Equipment:model.manufacturer", path.Key())
	assert.Equal(t, "Manufacturer", path.Target().Name)
	assert.True(t, path.Parent().Equal(path.Prefix(1)))
	assert.False(t, path.HasCollection())

	prefixes := path.Prefixes()
	require.Len(t, prefixes, 2)
	assert.Equal(t, "model", prefixes[0].String())
	assert.Equal(t, "model.manufacturer", prefixes[1].String())

	again, err := r.ResolveSegments(equipment, []string{"model", "manufacturer"})
	require.NoError(t, err)
	assert.True(t, path.Equal(again))
}

func TestResolver_ResolveErrors(t *testing.T) {
	r, equipment := newTestResolver(t)

	t.Run("unknown relation", func(t *testing.T) {
		_, err := r.Resolve(equipment, "model.maker")
		var unknown *UnknownRelationError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "Model", unknown.Entity)
		assert.Equal(t, "maker", unknown.Segment)
		assert.Equal(t, "model.maker", unknown.Path)
	})

	t.Run("scalar segment", func(t *testing.T) {
		_, err := r.Resolve(equipment, "model.modelName.foo")
		var notRel *NotARelationError
		require.True(t, errors.As(err, &notRel))
		assert.Equal(t, "Model", notRel.Entity)
		assert.Equal(t, "modelName", notRel.Segment)
	})

	t.Run("empty segment", func(t *testing.T) {
		_, err := r.Resolve(equipment, "model..manufacturer")
		var unknown *UnknownRelationError
		assert.True(t, errors.As(err, &unknown))
	})
}

func TestAccessPath_RootAndCollection(t *testing.T) {
	r, _ := newTestResolver(t)
	manufacturer := r.Registry().MustGet("Manufacturer")

	root := RootPath(manufacturer)
	assert.True(t, root.IsRoot())
	assert.Equal(t, "", root.String())
	assert.Equal(t, "Manufacturer:", root.Key())
	assert.Same(t, manufacturer, root.Target())
	_, ok := root.Last()
	assert.False(t, ok)

	models, err := r.Resolve(manufacturer, "models")
	require.NoError(t, err)
	assert.True(t, models.HasCollection())
	assert.Equal(t, "Model", models.Target().Name)
}
