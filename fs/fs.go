package appfs

import "embed"

// FS holds the SQL migrations (one directory per dialect) and the email templates.
//
//go:embed migrations all:assets
var FS embed.FS
