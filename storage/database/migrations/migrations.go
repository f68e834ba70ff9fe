// Package migrations embeds the goose SQL migrations. They must run on both postgres and sqlite.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
