// Package migrations embeds the SQL migration files for credentials.db.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
