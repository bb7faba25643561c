package appfs

import "embed"

// FS holds the SQL migrations and the static assets (templates, pages, password list).
//go:embed migrations all:assets
var FS embed.FS
