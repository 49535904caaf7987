// Package migrations bundles the schema for each supported SQL dialect. Files are
// applied in lexical order by db.Migrate.
package migrations

import "embed"

// FS holds one directory per dialect: postgres/ and sqlite/.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
