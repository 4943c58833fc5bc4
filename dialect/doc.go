// Package dialect names the supported SQL dialects and defines the driver
// interfaces the query layer executes through.
//
// The following dialects are supported:
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// The Driver interface is implemented by dialect/sql.Driver and by the
// statistics and debug wrappers in the same package:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// SQL rendering differences between the dialects (quoting, REGEXP spelling,
// batch insert, conflict clauses) live in dialect/sql.
package dialect
