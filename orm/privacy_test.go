package orm

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/dialect/sql"
	"github.com/syssam/arbor/model"
	"github.com/syssam/arbor/privacy"
)

// withProductPolicy returns the test schemas guarding products with p.
func withProductPolicy(p privacy.QueryMutationRule) []model.Schema {
	s := schemas()
	s[1].Policy = p
	return s
}

func TestPrivacy_Query(t *testing.T) {
	ctx := context.Background()
	byCategory := privacy.FilterFunc(func(ctx context.Context, f privacy.Filter) error {
		v := privacy.ViewerFromContext(ctx)
		if v == nil {
			return privacy.Denyf("category viewer required")
		}
		id, err := strconv.ParseInt(v.GetTenantID(), 10, 64)
		if err != nil {
			return err
		}
		f.Where(sql.Eq{"products.id_category": id})
		return privacy.Skip
	})
	c, stats := newClientWith(t, withProductPolicy(privacy.Policy{Query: privacy.QueryPolicy{byCategory}}))
	seed(t, c)
	viewer := privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "1", TenantID: "8"})

	t.Run("Filtered", func(t *testing.T) {
		ms, err := c.Query("Product").Order("products.id").FetchAll(viewer)
		require.NoError(t, err)
		assert.Equal(t, []string{"iphone", "galaxy"}, names(ms))

		n, err := c.Query("Product").Count(viewer)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		rows, err := c.Query("Product").Select("name").FetchRows(viewer)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("Denied", func(t *testing.T) {
		before := stats.QueryStats().Stats().TotalQueries
		_, err := c.Query("Product").FetchAll(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, privacy.Deny)
		assert.Contains(t, err.Error(), "arbor: query Product")
		assert.Equal(t, before, stats.QueryStats().Stats().TotalQueries, "denied queries do not reach the database")

		for _, err := range c.Query("Product").FetchIterator(ctx, 0) {
			assert.ErrorIs(t, err, privacy.Deny)
		}
	})

	t.Run("BuilderUnchanged", func(t *testing.T) {
		b := c.Query("Product")
		_, err := b.FetchAll(viewer)
		require.NoError(t, err)
		query, _, err := b.SQL()
		require.NoError(t, err)
		assert.NotContains(t, query, "WHERE")
	})

	t.Run("With", func(t *testing.T) {
		cats, err := c.Query("Category").With("products").Order("categories.id").FetchAll(viewer)
		require.NoError(t, err)
		require.Len(t, cats, 3)
		var got [][]string
		for _, cat := range cats {
			v, ok := cat.Related("products")
			require.True(t, ok)
			got = append(got, names(v.([]model.Model)))
		}
		assert.Equal(t, [][]string{{}, {"iphone", "galaxy"}, {}}, got)
	})

	t.Run("Decision", func(t *testing.T) {
		ms, err := c.Query("Product").FetchAll(privacy.DecisionContext(ctx, privacy.Allow))
		require.NoError(t, err)
		assert.Len(t, ms, 4)
	})
}

func TestPrivacy_Mutation(t *testing.T) {
	ctx := context.Background()
	c, _ := newClientWith(t, withProductPolicy(privacy.Policy{
		Mutation: privacy.MutationPolicy{
			privacy.DenyMutationOperationRule(privacy.OpDeleteMany),
			privacy.DenyIfNoViewer(),
			privacy.HasRole("admin"),
			privacy.IsOwner("id_category"),
			privacy.AlwaysDenyRule(),
		},
	}))
	admin := privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "1", Roles: []string{"admin"}})
	owner := privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "8"})
	seedContext(t, admin, c)

	insert := func(ctx context.Context, category int64) error {
		m, err := c.New("Product", map[string]any{"name": "pixel", "id_category": category})
		require.NoError(t, err)
		return c.Insert(ctx, m)
	}

	t.Run("NoViewer", func(t *testing.T) {
		err := insert(ctx, 8)
		require.Error(t, err)
		assert.True(t, arbor.IsMutationError(err))
		assert.ErrorIs(t, err, privacy.Deny)
		assert.Contains(t, err.Error(), "viewer required")
	})

	t.Run("Owner", func(t *testing.T) {
		require.NoError(t, insert(owner, 8))
		assert.ErrorIs(t, insert(owner, 9), privacy.Deny)
	})

	t.Run("Bulk", func(t *testing.T) {
		_, err := c.Query("Product").Update(owner, map[string]any{"description": "x"})
		assert.ErrorIs(t, err, privacy.Deny, "bulk updates do not carry the owner field")

		n, err := c.Query("Product").Where(sql.Eq{"products.name": "bolt"}).Update(admin, map[string]any{"description": "x"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = c.Query("Product").DeleteAll(admin)
		require.Error(t, err)
		assert.ErrorIs(t, err, privacy.Deny)
		assert.Contains(t, err.Error(), "operation delete_many is not allowed on Product")
	})

	t.Run("Delete", func(t *testing.T) {
		m, err := c.FindByID(ctx, "Product", int64(4))
		require.NoError(t, err)
		assert.ErrorIs(t, c.Delete(owner, m), privacy.Deny)
		require.NoError(t, c.Delete(admin, m))
	})
}

func TestPrivacy_BulkFilter(t *testing.T) {
	ctx := context.Background()
	c, _ := newClientWith(t, withProductPolicy(privacy.Policy{
		Mutation: privacy.MutationPolicy{
			privacy.FilterFunc(func(_ context.Context, f privacy.Filter) error {
				f.Where(sql.Eq{"products.id_category": int64(8)})
				return privacy.Skip
			}),
		},
	}))
	seedContext(t, privacy.DecisionContext(ctx, privacy.Allow), c)

	n, err := c.Query("Product").Update(ctx, map[string]any{"description": "sale"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = c.Query("Product").Where(sql.Eq{"products.description": "sale"}).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	m, err := c.New("Product", map[string]any{"name": "pixel"})
	require.NoError(t, err)
	err = c.Insert(ctx, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert of Product does not support filtering")
}
