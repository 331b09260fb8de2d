// Package migrations embeds the SQLite schema files applied at startup.
package migrations

import "embed"

// FS holds the ordered .sql migration files.
//
//go:embed *.sql
var FS embed.FS
