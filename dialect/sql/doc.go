// Package sql renders and executes SQL for MySQL, PostgreSQL and SQLite.
//
// A Query is a plain descriptor: table, select list, where clauses, joins,
// ordering, paging, locking and a trailing comment. A Dialect turns it into
// a SQL string with "?" placeholders and a flat argument list, then rebinds
// the placeholders to the driver's form:
//
//	q := sql.NewQuery("products")
//	_ = q.AddWhere(sql.Eq{"name": sql.StartsWith("b"), "id_category": []int{1, 2}})
//	q.Order = []string{"name"}
//	q.Limit = 10
//
//	query, args, err := sql.Postgres().BuildQuery(q)
//	// SELECT * FROM products WHERE id_category IN (?, ?) AND name LIKE ? ORDER BY name LIMIT ?
//
// # Where clauses
//
// Eq maps column names to values or restrictions. A nil value renders
// IS NULL and a slice renders IN. Raw embeds a SQL fragment and is wrapped
// in parentheses when it contains OR. Or and And combine clauses; Exists
// and NotExists embed a sub-query.
//
// # Execution
//
// Prepare binds a Query to a connection. The Executor fetches rows in the
// query's FetchMode, counts, updates and deletes. It is the only part of
// the package that talks to the database.
//
// # Drivers
//
// Driver adapts database/sql to dialect.Driver. StatsDriver and DebugDriver
// wrap any dialect.Driver with counters, slow-query reporting and debug
// logging.
package sql
