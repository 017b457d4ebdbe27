// Package migrations embeds the SQL schema migrations for the review store.
package migrations

import "embed"

// FS holds the up migrations, applied in lexical order at startup.
//
//go:embed *.up.sql
var FS embed.FS
