package migrations

import "embed"

// FS contains the SQLite migrations.
//
//go:embed *.sql
var FS embed.FS
