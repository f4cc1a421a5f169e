// Package migrations holds the SQL schema of the property history,
// compiled into the binary.
package migrations

import "embed"

// FS contains every *.sql file of this directory at its root.
// Pass it to database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
