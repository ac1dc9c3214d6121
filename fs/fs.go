package appfs

import "embed"

// FS embeds the files needed at runtime so the binary can be deployed alone.
//go:embed migrations
var FS embed.FS
