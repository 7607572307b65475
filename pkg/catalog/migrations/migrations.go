// Package migrations embeds the catalog database's golang-migrate source
// files, so the postgres backend can run them without shipping a separate
// migrations directory alongside the binary.
package migrations

import "embed"

// FS holds the embedded *.up.sql/*.down.sql migration files.
//
//go:embed *.sql
var FS embed.FS
