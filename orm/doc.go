// Package orm maps models declared in a model.Registry to SQL tables.
//
// A Client binds a registry to a driver. Builders returned by
// Client.Query select one model, join or eagerly load its relations and
// convert the rows back into models:
//
//	cats, err := client.Query("Category").
//	    Join("parent").
//	    With("products").
//	    Where(sql.Eq{"categories.name": "phones"}).
//	    Order("categories.id").
//	    FetchAll(ctx)
//
// Joined to-one relations are read from the same row: every column is
// selected as <alias>_<field> and the row is split per alias. Relations
// loaded With run one extra query per relation for the whole result set.
// Models of one result set share a model.Batch, so Client.Related loads a
// relation for all of them at once.
//
// Select switches a builder to raw rows:
//
//	rows, err := client.Query("Product").
//	    Select("id_category", "count(*)").
//	    GroupBy("id_category").
//	    FetchRows(ctx)
//
// Builder.Update and Builder.DeleteAll run a single statement and skip
// model callbacks. Client.Insert, Client.Update and Client.Delete work on
// one model and run them.
package orm
