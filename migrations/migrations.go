// Package migrations embeds the schema migrations applied by cmd/migrate and cmd/api.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
