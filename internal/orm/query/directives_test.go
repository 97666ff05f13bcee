package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Spec(t *testing.T) {
	r, equipment := newTestResolver(t)

	spec, err := r.Spec(equipment, Filter{"displayName": "Drill"}, FindOptions{
		Populate: []string{"model", " ", "model.manufacturer"},
		OrderBy:  []OrderMap{{"displayName": "desc"}},
		Limit:    intPtr(10),
	})
	require.NoError(t, err)

	require.Len(t, spec.Populate, 2)
	assert.Equal(t, "model.manufacturer", spec.Populate[1].String())
	require.Len(t, spec.OrderBy, 1)
	assert.Equal(t, "display_name DESC", spec.OrderBy[0].String())
	assert.False(t, spec.Where.IsEmpty())
	assert.Equal(t, 10, *spec.Limit)
}

func TestResolver_SpecErrors(t *testing.T) {
	r, equipment := newTestResolver(t)

	tests := []struct {
		name    string
		filter  Filter
		opts    FindOptions
		wantErr string
	}{
		{"populate", nil, FindOptions{Populate: []string{"vendor"}}, "populate:"},
		{"order by", nil, FindOptions{OrderBy: []OrderMap{{"vendor": "asc"}}}, "orderBy:"},
		{"filter", Filter{"colour": "red"}, FindOptions{}, "filter:"},
		{"limit", nil, FindOptions{Limit: intPtr(-1)}, "limit must not be negative"},
		{"offset", nil, FindOptions{Offset: intPtr(-5)}, "offset must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Spec(equipment, tt.filter, tt.opts)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseFilterTerms(t *testing.T) {
	filter, err := ParseFilterTerms([]string{
		"displayName=Drill",
		"model.manufacturer.name=ACME",
		"model.manufacturer.id=3",
		"owner=null",
		"model.modelName=x=y",
	})
	require.NoError(t, err)

	assert.Equal(t, Filter{
		"displayName": "Drill",
		"owner":       nil,
		"model": Filter{
			"modelName":    "x=y",
			"manufacturer": Filter{"name": "ACME", "id": int64(3)},
		},
	}, filter)

	empty, err := ParseFilterTerms(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, bad := range []string{"displayName", "=x", "model..name=x", "model.=x"} {
		_, err := ParseFilterTerms([]string{bad})
		assert.ErrorIs(t, err, ErrInvalidFilter, bad)
	}
}

func TestParseFilterTerms_Conflicts(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
	}{
		{"value then nested", []string{"model=1", "model.name=x"}},
		{"nested then value", []string{"model.name=x", "model=1"}},
		{"deep value then nested", []string{"model.manufacturer=2", "model.manufacturer.name=ACME"}},
		{"repeated path", []string{"displayName=Drill", "displayName=Saw"}},
		{"repeated null", []string{"owner=null", "owner=null"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilterTerms(tt.terms)
			assert.ErrorIs(t, err, ErrInvalidFilter)
			assert.ErrorContains(t, err, "conflicts")
		})
	}
}

func TestParseFilterTerms_Resolves(t *testing.T) {
	r, equipment := newTestResolver(t)

	filter, err := ParseFilterTerms([]string{"model.manufacturer.name=ACME"})
	require.NoError(t, err)

	group, err := r.ResolveFilter(equipment, filter)
	require.NoError(t, err)
	paths := group.Paths()
	require.Len(t, paths, 1)
	assert.Equal(t, "model.manufacturer", paths[0].String())
}
