package appfs

import "embed"

// FS holds the database migrations, email templates and static assets shipped with the binary.
//go:embed migrations all:templates assets
var FS embed.FS
