package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_ResolveFilter(t *testing.T) {
	r, equipment := newTestResolver(t)

	group, err := r.ResolveFilter(equipment, Filter{
		"displayName": "Drill",
		"model": Filter{
			"manufacturer": Filter{"name": Filter{"$like": "A%"}},
		},
		"owner": nil,
	})
	require.NoError(t, err)
	require.Len(t, group.Conditions, 3)
	assert.False(t, group.Or)

	assert.Equal(t, "display_name", group.Conditions[0].Column)
	assert.Equal(t, OpEqual, group.Conditions[0].Operator)
	assert.Equal(t, "Drill", group.Conditions[0].Value)

	assert.Equal(t, "model.manufacturer", group.Conditions[1].Path.String())
	assert.Equal(t, OpLike, group.Conditions[1].Operator)

	assert.Equal(t, "owner_id", group.Conditions[2].Column)
	assert.Equal(t, OpIsNull, group.Conditions[2].Operator)

	paths := group.Paths()
	require.Len(t, paths, 1)
	assert.Equal(t, "model.manufacturer", paths[0].String())
}

func TestResolver_ResolveFilterOperators(t *testing.T) {
	r, equipment := newTestResolver(t)

	group, err := r.ResolveFilter(equipment, Filter{
		"id": Filter{"$gte": 2, "$lt": 10, "$in": []int{2, 3}, "$ne": nil},
	})
	require.NoError(t, err)
	require.Len(t, group.Conditions, 4)

	// Operators are applied in sorted key order: $gte $in $lt $ne
	assert.Equal(t, OpGreaterThanOrEqual, group.Conditions[0].Operator)
	assert.Equal(t, OpIn, group.Conditions[1].Operator)
	assert.Equal(t, []interface{}{2, 3}, group.Conditions[1].Value)
	assert.Equal(t, OpLessThan, group.Conditions[2].Operator)
	assert.Equal(t, OpIsNotNull, group.Conditions[3].Operator)

	group, err = r.ResolveFilter(equipment, Filter{"owner": Filter{"$null": false}})
	require.NoError(t, err)
	assert.Equal(t, OpIsNotNull, group.Conditions[0].Operator)
	assert.Equal(t, "owner_id", group.Conditions[0].Column)
}

func TestResolver_ResolveFilterLogical(t *testing.T) {
	r, equipment := newTestResolver(t)

	group, err := r.ResolveFilter(equipment, Filter{
		"$or": []Filter{
			{"displayName": "Drill"},
			{"model": Filter{"modelName": "X1"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, group.Groups, 1)

	or := group.Groups[0]
	assert.True(t, or.Or)
	require.Len(t, or.Groups, 2)
	assert.False(t, group.IsEmpty())

	paths := group.Paths()
	require.Len(t, paths, 1)
	assert.Equal(t, "model", paths[0].String())

	group, err = r.ResolveFilter(equipment, Filter{"$or": []Filter{{}, {"displayName": "nope"}}})
	require.NoError(t, err)
	require.Len(t, group.Groups, 1)
	require.Len(t, group.Groups[0].Groups, 2)
	assert.True(t, group.Groups[0].Groups[0].IsEmpty())

	group, err = r.ResolveFilter(equipment, Filter{"$or": []Filter{}})
	require.NoError(t, err)
	require.Len(t, group.Groups, 1)
	assert.True(t, group.Groups[0].Or)
	assert.Empty(t, group.Groups[0].Groups)
}

func TestResolver_ResolveFilterErrors(t *testing.T) {
	r, equipment := newTestResolver(t)
	manufacturer := r.Registry().MustGet("Manufacturer")

	tests := []struct {
		name   string
		filter Filter
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unknown relation",
			filter: Filter{"maker": Filter{"name": "x"}},
			check: func(t *testing.T, err error) {
				var e *UnknownRelationError
				assert.True(t, errors.As(err, &e))
			},
		},
		{
			name:   "unknown field",
			filter: Filter{"model": Filter{"title": "x"}},
			check: func(t *testing.T, err error) {
				var e *UnknownFieldError
				assert.True(t, errors.As(err, &e))
			},
		},
		{
			name:   "field used as relation",
			filter: Filter{"displayName": Filter{"x": 1}},
			check: func(t *testing.T, err error) {
				var e *NotARelationError
				assert.True(t, errors.As(err, &e))
			},
		},
		{
			name:   "unknown operator",
			filter: Filter{"id": Filter{"$between": 1}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnknownOperator)
			},
		},
		{
			name:   "null expects boolean",
			filter: Filter{"id": Filter{"$null": "yes"}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidFilter)
			},
		},
		{
			name:   "in expects list",
			filter: Filter{"id": Filter{"$in": 3}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidFilter)
			},
		},
		{
			name:   "or expects list",
			filter: Filter{"$or": Filter{"id": 1}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidFilter)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ResolveFilter(equipment, tt.filter)
			require.Error(t, err)
			tt.check(t, err)
		})
	}

	_, err := r.ResolveFilter(manufacturer, Filter{"models": 3})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestPredicateGroup_Empty(t *testing.T) {
	var nilGroup *PredicateGroup
	assert.True(t, nilGroup.IsEmpty())
	assert.Empty(t, nilGroup.Paths())

	g := NewPredicateGroup(false)
	g.AddGroup(NewPredicateGroup(true))
	assert.True(t, g.IsEmpty())
}
