// Package migrations holds the SQL schema, embedded so binaries and tests
// apply the same files regardless of working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
