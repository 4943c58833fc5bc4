package orm

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/syssam/arbor/contrib/dataloader"
	"github.com/syssam/arbor/dialect/sql"
	"github.com/syssam/arbor/model"
)

// loadRelation loads rel for every parent with one query and stores the
// result on each parent. Parents without a key get the empty value of the
// relation; when no parent has a key no query runs.
func (c *Client) loadRelation(ctx context.Context, parents []model.Model, rel *model.Relation) error {
	if len(parents) == 0 {
		return nil
	}
	localKey := func(m model.Model) any { return normalizeKey(m.Get(rel.LocalKey)) }
	keys := dataloader.UniqueKeys(parents, localKey, isNilKey)
	if len(keys) == 0 {
		for _, p := range parents {
			p.SetRelated(rel.Name, rel.Extract(nil))
		}
		return nil
	}
	target, err := c.definition(rel.Target)
	if err != nil {
		return err
	}
	q := c.Query(target.Name).
		Where(sql.Eq{target.Table + "." + rel.ForeignKey: keys}).
		Where(rel.Condition)
	if len(rel.Order) > 0 {
		q.Order(rel.Order...)
	}
	children, err := q.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("arbor: loading %s: %w", rel, err)
	}
	if s, ok := sessionFrom(ctx); ok {
		c.log.DebugContext(ctx, "batch load", "session", s.id, "relation", rel.String(), "keys", len(keys), "rows", len(children))
	}
	byKey := dataloader.GroupByKey(children, func(m model.Model) any {
		return normalizeKey(m.Get(rel.ForeignKey))
	})
	for _, p := range parents {
		k := localKey(p)
		if isNilKey(k) {
			p.SetRelated(rel.Name, rel.Extract(nil))
			continue
		}
		p.SetRelated(rel.Name, rel.Extract(byKey[k]))
	}
	return nil
}

// Related returns the relation called name of m, loading it when needed.
// A load covers every model fetched in the same result set as m that has
// not loaded the relation yet, so walking a result set costs one query
// per relation.
func (c *Client) Related(ctx context.Context, m model.Model, name string) (any, error) {
	if v, ok := m.Related(name); ok {
		return v, nil
	}
	def := m.Definition()
	rel, err := def.Relation(name)
	if err != nil {
		return nil, err
	}
	var peers []model.Model
	if batch := m.Batch(); batch != nil {
		for _, p := range batch.Models {
			if _, ok := p.Related(name); !ok && p.Definition() == def {
				peers = append(peers, p)
			}
		}
	}
	if !slices.Contains(peers, m) {
		peers = append(peers, m)
	}
	if _, ok := sessionFrom(ctx); !ok {
		ctx = dataloader.With(ctx, &session{id: uuid.NewString()})
	}
	if err := c.loadRelation(ctx, peers, rel); err != nil {
		return nil, err
	}
	v, _ := m.Related(name)
	return v, nil
}

// normalizeKey maps the integer types drivers and callers use to int64 and
// byte slices to strings so keys compare equal.
func normalizeKey(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case []byte:
		return string(v)
	default:
		return v
	}
}

func isNilKey(k any) bool { return k == nil }
