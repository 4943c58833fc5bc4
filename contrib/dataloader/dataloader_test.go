package dataloader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type product struct {
	ID         int
	CategoryID int
	Name       string
}

func TestUniqueKeys(t *testing.T) {
	products := []product{
		{ID: 1, CategoryID: 3},
		{ID: 2, CategoryID: 1},
		{ID: 3, CategoryID: 3},
		{ID: 4, CategoryID: 0},
	}
	keyFn := func(p product) int { return p.CategoryID }

	assert.Equal(t, []int{3, 1, 0}, UniqueKeys(products, keyFn, nil))
	assert.Equal(t, []int{3, 1}, UniqueKeys(products, keyFn, func(k int) bool { return k == 0 }))
	assert.Empty(t, UniqueKeys(nil, keyFn, nil))
}

func TestOrderByKeys(t *testing.T) {
	keyFn := func(p *product) int { return p.ID }

	t.Run("AllFound", func(t *testing.T) {
		values := []*product{{ID: 3, Name: "c"}, {ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
		result, errs := OrderByKeys([]int{1, 2, 3}, values, keyFn)
		require.Len(t, result, 3)
		assert.Equal(t, "a", result[0].Name)
		assert.Equal(t, "b", result[1].Name)
		assert.Equal(t, "c", result[2].Name)
		for _, err := range errs {
			assert.NoError(t, err)
		}
	})

	t.Run("SomeMissing", func(t *testing.T) {
		values := []*product{{ID: 1, Name: "a"}}
		result, errs := OrderByKeys([]int{1, 2}, values, keyFn)
		require.Len(t, result, 2)
		assert.Equal(t, "a", result[0].Name)
		assert.Nil(t, result[1])
		assert.NoError(t, errs[0])
		assert.ErrorIs(t, errs[1], ErrNotFound)
	})

	t.Run("Empty", func(t *testing.T) {
		result, errs := OrderByKeys([]int{}, nil, keyFn)
		assert.Empty(t, result)
		assert.Empty(t, errs)
	})
}

func TestGroupByKey(t *testing.T) {
	products := []product{
		{ID: 1, CategoryID: 1, Name: "a"},
		{ID: 2, CategoryID: 2, Name: "b"},
		{ID: 3, CategoryID: 1, Name: "c"},
	}
	grouped := GroupByKey(products, func(p product) int { return p.CategoryID })
	require.Len(t, grouped, 2)
	assert.Equal(t, []product{products[0], products[2]}, grouped[1])
	assert.Equal(t, []product{products[1]}, grouped[2])
	assert.Nil(t, grouped[3])
}

func TestContext(t *testing.T) {
	type loaders struct{ name string }
	type other struct{ name string }

	ctx := With(context.Background(), &loaders{name: "a"})
	ctx = With(ctx, other{name: "b"})

	l, ok := For[*loaders](ctx)
	require.True(t, ok)
	assert.Equal(t, "a", l.name)

	o, ok := For[other](ctx)
	require.True(t, ok)
	assert.Equal(t, "b", o.name)

	_, ok = For[string](ctx)
	assert.False(t, ok)
}
