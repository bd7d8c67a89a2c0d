// Package migrations embeds the goose SQL migration files so the
// binary can run schema migrations without external files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
