package migrations

import "embed"

// FS contains embedded SQLite migrations for numbering storage.
//
//go:embed *.sql
var FS embed.FS
